package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stalexteam/tmix/pkg/tmix"
	"github.com/stalexteam/tmix/pkg/tmix/ui"
	"github.com/stalexteam/tmix/pkg/tmix/util"
)

var (
	gitCommit  string
	versionTag string
	buildType  string

	verbose      bool
	configFile   string
	server       string
	pollInterval time.Duration
)

const connectTimeout = 5 * time.Second

var rootCmd = &cobra.Command{
	Use:   "tmix",
	Short: "Terminal volume mixer for PulseAudio",
	Long: `tmix shows a level meter for every stream playing on your PulseAudio
(or pipewire-pulse) server, grouped by the sink it plays into.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMixer(cmd)
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "log everything, and dump goroutines on SIGUSR1")
	flags.StringVar(&configFile, "config", "", "config file (default is ./config.yaml, then $XDG_CONFIG_HOME/tmix/config.yaml)")
	flags.StringVar(&server, "server", "", "audio server address (default is the local server)")
	flags.DurationVar(&pollInterval, "poll-interval", 250*time.Millisecond, "how often to query the audio server")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newTmix creates the logger and the tmix instance, and applies the command line flags
func newTmix(cmd *cobra.Command) (*tmix.Tmix, *zap.SugaredLogger, error) {
	// the terminal belongs to the UI (or to stdout for list), so logs always go to a file
	logger, err := tmix.NewLogger(buildType, true, verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	named := logger.Named("main")
	named.Debug("Created logger")

	named.Infow("Version info",
		"gitCommit", gitCommit,
		"versionTag", versionTag,
		"buildType", buildType)

	// provide a fair warning if the user's running in verbose mode
	if verbose {
		named.Debug("Verbose flag provided, all log messages will be shown")
	}

	t, err := tmix.NewTmix(logger, verbose)
	if err != nil {
		named.Errorw("Failed to create tmix object", "error", err)
		return nil, nil, fmt.Errorf("create tmix: %w", err)
	}

	if versionString := versionString(); versionString != "" {
		t.SetVersion(versionString)
	}

	if configFile != "" {
		if !util.FileExists(configFile) {
			named.Errorw("Config file not found", "path", configFile)
			return nil, nil, fmt.Errorf("config file %s: %w", configFile, os.ErrNotExist)
		}

		t.Config().SetConfigFile(configFile)
	}

	if err := t.Config().BindFlags(cmd.Flags()); err != nil {
		named.Errorw("Failed to bind command line flags", "error", err)
		return nil, nil, fmt.Errorf("bind flags: %w", err)
	}

	return t, named, nil
}

func runMixer(cmd *cobra.Command) error {
	t, named, err := newTmix(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := t.Initialize(ctx); err != nil {
		named.Errorw("Failed to initialize tmix", "error", err)
		return err
	}

	if err := t.Start(); err != nil {
		named.Errorw("Failed to start tmix", "error", err)
		t.Stop()
		return err
	}

	program := tea.NewProgram(ui.New(t.Cache(), ui.OptionsFromValues(t.Config().Values())), tea.WithAltScreen())

	// the screen follows config reloads
	reloads := t.Config().SubscribeToChanges()
	go func() {
		for range reloads {
			program.Send(ui.OptionsFromValues(t.Config().Values()))
		}
	}()

	// interrupts and connection loss end the program too
	go func() {
		<-t.Done()
		program.Quit()
	}()

	if _, err := program.Run(); err != nil {
		named.Errorw("UI failed", "error", err)
		t.Stop()
		return fmt.Errorf("run ui: %w", err)
	}

	if err := t.Stop(); err != nil {
		named.Warnw("Poll loop ended with an error", "error", err)
		return err
	}

	return nil
}

func versionString() string {
	if buildType == "" || (versionTag == "" && gitCommit == "") {
		return ""
	}

	identifier := gitCommit
	if versionTag != "" {
		identifier = versionTag
	}

	return fmt.Sprintf("Version %s-%s", buildType, identifier)
}
