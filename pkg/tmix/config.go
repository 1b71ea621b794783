package tmix

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"
)

// Values is a consistent copy of every config field, safe to keep around
type Values struct {
	Server          string
	ApplicationName string

	PollInterval   time.Duration
	QueryTimeout   time.Duration
	StepWait       time.Duration
	UpdateWait     time.Duration
	RenderInterval time.Duration

	ChannelCapacity int

	HiddenStreams []string
	ShowSinks     bool
	Notifications bool

	RelayPort int
}

// CanonicalConfig provides application-wide access to configuration fields,
// as well as loading/file watching logic for tmix's configuration file
type CanonicalConfig struct {
	logger             *zap.SugaredLogger
	notifier           Notifier
	stopWatcherChannel chan bool
	stopOnce           sync.Once

	reloadConsumers []chan bool
	consumersMutex  sync.Mutex

	userConfig *viper.Viper
	fileLoaded bool

	mu     sync.RWMutex
	values Values
}

const (
	userConfigName = "config"
	userConfigPath = "."
	configType     = "yaml"

	configKey_Server          = "server"
	configKey_ApplicationName = "application_name"
	configKey_PollInterval    = "poll_interval"
	configKey_QueryTimeout    = "query_timeout"
	configKey_StepWait        = "step_wait"
	configKey_UpdateWait      = "update_wait"
	configKey_RenderInterval  = "render_interval"
	configKey_ChannelCapacity = "channel_capacity"
	configKey_HiddenStreams   = "hidden_streams"
	configKey_ShowSinks       = "show_sinks"
	configKey_Notifications   = "notifications"
	configKey_RelayPort       = "relay_port"

	default_RenderInterval = 50 * time.Millisecond

	// anything faster than this just hammers the server
	minPollInterval = 20 * time.Millisecond
)

// NewConfig creates a config instance and sets up the viper instance for tmix's config file
func NewConfig(logger *zap.SugaredLogger) (*CanonicalConfig, error) {
	logger = logger.Named("config")

	cc := &CanonicalConfig{
		logger:             logger,
		notifier:           nopNotifier{},
		reloadConsumers:    []chan bool{},
		stopWatcherChannel: make(chan bool),
	}

	userConfig := viper.New()
	userConfig.SetConfigName(userConfigName)
	userConfig.SetConfigType(configType)
	userConfig.AddConfigPath(userConfigPath)

	if configDir, err := os.UserConfigDir(); err == nil {
		userConfig.AddConfigPath(filepath.Join(configDir, "tmix"))
	}

	userConfig.SetDefault(configKey_Server, "")
	userConfig.SetDefault(configKey_ApplicationName, defaultApplicationName)
	userConfig.SetDefault(configKey_PollInterval, defaultPollInterval)
	userConfig.SetDefault(configKey_QueryTimeout, defaultQueryTimeout)
	userConfig.SetDefault(configKey_StepWait, defaultStepWait)
	userConfig.SetDefault(configKey_UpdateWait, defaultUpdateWait)
	userConfig.SetDefault(configKey_RenderInterval, default_RenderInterval)
	userConfig.SetDefault(configKey_ChannelCapacity, defaultChannelCapacity)
	userConfig.SetDefault(configKey_HiddenStreams, []string{})
	userConfig.SetDefault(configKey_ShowSinks, true)
	userConfig.SetDefault(configKey_Notifications, true)
	userConfig.SetDefault(configKey_RelayPort, 0)

	cc.userConfig = userConfig

	// usable before Load, e.g. for one-shot commands
	if err := cc.populateFromViper(); err != nil {
		return nil, fmt.Errorf("populate config defaults: %w", err)
	}

	logger.Debug("Created config instance")

	return cc, nil
}

// SetConfigFile makes Load read exactly this file instead of searching for config.yaml
func (cc *CanonicalConfig) SetConfigFile(path string) {
	cc.userConfig.SetConfigFile(path)
}

// BindFlags lets command line flags override their config keys
func (cc *CanonicalConfig) BindFlags(flags *pflag.FlagSet) error {
	bindings := map[string]string{
		configKey_Server:       "server",
		configKey_PollInterval: "poll-interval",
	}

	for key, flagName := range bindings {
		flag := flags.Lookup(flagName)
		if flag == nil {
			continue
		}

		if err := cc.userConfig.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("bind flag %s: %w", flagName, err)
		}
	}

	return nil
}

// Load reads the config file, if there is one, and parses it. A missing config file is fine
func (cc *CanonicalConfig) Load() error {
	cc.logger.Debug("Loading config")

	if err := cc.userConfig.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			cc.logger.Debugw("No config file found, using defaults", "reminder", "this is fine")
		} else {
			cc.logger.Warnw("Viper failed to read user config", "error", err)
			if strings.Contains(err.Error(), "yaml:") {
				cc.notifier.Notify("Invalid configuration!", "Please make sure your tmix config is in a valid YAML format.")
			} else {
				cc.notifier.Notify("Error loading configuration!", "Please check tmix's logs for more details.")
			}
			return fmt.Errorf("read user config: %w", err)
		}
	} else {
		cc.fileLoaded = true
		cc.logger.Debugw("Read config file", "path", cc.userConfig.ConfigFileUsed())
	}

	if err := cc.populateFromViper(); err != nil {
		cc.logger.Warnw("Failed to populate config fields", "error", err)
		return fmt.Errorf("populate config fields: %w", err)
	}

	values := cc.Values()

	cc.logger.Info("Loaded config successfully")
	cc.logger.Infow("Config values",
		"server", values.Server,
		"pollInterval", values.PollInterval,
		"queryTimeout", values.QueryTimeout,
		"updateWait", values.UpdateWait,
		"renderInterval", values.RenderInterval,
		"hiddenStreams", values.HiddenStreams,
		"showSinks", values.ShowSinks,
		"relayPort", values.RelayPort,
	)

	return nil
}

// Values returns a copy of the current config
func (cc *CanonicalConfig) Values() Values {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	values := cc.values
	values.HiddenStreams = append([]string(nil), cc.values.HiddenStreams...)

	return values
}

// NotificationsEnabled reports whether toast notifications should be shown
func (cc *CanonicalConfig) NotificationsEnabled() bool {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	return cc.values.Notifications
}

// SubscribeToChanges allows external components to receive updates when the config is reloaded
func (cc *CanonicalConfig) SubscribeToChanges() chan bool {
	c := make(chan bool, 1)

	cc.consumersMutex.Lock()
	cc.reloadConsumers = append(cc.reloadConsumers, c)
	cc.consumersMutex.Unlock()

	return c
}

// WatchConfigFileChanges starts watching for configuration file changes
// and attempts reloading the config when they happen
func (cc *CanonicalConfig) WatchConfigFileChanges() {
	if !cc.fileLoaded {
		cc.logger.Debug("No config file in use, nothing to watch")
		<-cc.stopWatcherChannel
		return
	}

	configFile := cc.userConfig.ConfigFileUsed()
	cc.logger.Debugw("Starting to watch user config file for changes", "path", configFile)

	const (
		minTimeBetweenReloadAttempts = time.Millisecond * 500
		delayBetweenEventAndReload   = time.Millisecond * 50
	)

	lastAttemptedReload := time.Now()

	// establish watch using viper as opposed to doing it ourselves, though our internal cooldown is still required
	cc.userConfig.OnConfigChange(func(event fsnotify.Event) {

		// when we get a write event...
		if event.Op&fsnotify.Write == fsnotify.Write {

			now := time.Now()

			// ... check if it's not a duplicate (many editors will write to a file twice)
			if lastAttemptedReload.Add(minTimeBetweenReloadAttempts).Before(now) {

				cc.logger.Debugw("Config file modified, attempting reload", "event", event)

				// wait a bit to let the editor actually flush the new file contents to disk
				<-time.After(delayBetweenEventAndReload)

				if err := cc.Load(); err != nil {
					cc.logger.Warnw("Failed to reload config file", "error", err)
				} else {
					cc.logger.Info("Reloaded config successfully")
					cc.notifier.Notify("Configuration reloaded!", "Your changes have been applied.")

					cc.onConfigReloaded()
				}

				lastAttemptedReload = now
			}
		}
	})
	cc.userConfig.WatchConfig()

	// wait till they stop us
	<-cc.stopWatcherChannel
	cc.logger.Debug("Stopping user config file watcher")
	cc.userConfig.OnConfigChange(func(fsnotify.Event) {})
}

// StopWatchingConfigFile signals our filesystem watcher to stop
func (cc *CanonicalConfig) StopWatchingConfigFile() {
	cc.stopOnce.Do(func() {
		close(cc.stopWatcherChannel)
		cc.closeReloadChannels()
	})
}

func (cc *CanonicalConfig) closeReloadChannels() {
	cc.consumersMutex.Lock()
	defer cc.consumersMutex.Unlock()

	for _, ch := range cc.reloadConsumers {
		close(ch)
	}
	cc.reloadConsumers = nil

	cc.logger.Debug("Closed all config reload channels")
}

func (cc *CanonicalConfig) populateFromViper() error {
	values := Values{
		Server:          strings.TrimSpace(cc.userConfig.GetString(configKey_Server)),
		ApplicationName: strings.TrimSpace(cc.userConfig.GetString(configKey_ApplicationName)),
		PollInterval:    cc.userConfig.GetDuration(configKey_PollInterval),
		QueryTimeout:    cc.userConfig.GetDuration(configKey_QueryTimeout),
		StepWait:        cc.userConfig.GetDuration(configKey_StepWait),
		UpdateWait:      cc.userConfig.GetDuration(configKey_UpdateWait),
		RenderInterval:  cc.userConfig.GetDuration(configKey_RenderInterval),
		ChannelCapacity: cc.userConfig.GetInt(configKey_ChannelCapacity),
		HiddenStreams:   cleanStreamNames(cc.userConfig.GetStringSlice(configKey_HiddenStreams)),
		ShowSinks:       cc.userConfig.GetBool(configKey_ShowSinks),
		Notifications:   cc.userConfig.GetBool(configKey_Notifications),
		RelayPort:       cc.userConfig.GetInt(configKey_RelayPort),
	}

	if values.ApplicationName == "" {
		values.ApplicationName = defaultApplicationName
	}

	if values.PollInterval < minPollInterval {
		cc.logger.Warnw("Poll interval too short, clamping", "value", values.PollInterval, "min", minPollInterval)
		values.PollInterval = minPollInterval
	}

	if values.QueryTimeout < 0 {
		cc.logger.Warnw("Negative query timeout, waiting indefinitely instead", "value", values.QueryTimeout)
		values.QueryTimeout = 0
	}

	if values.StepWait <= 0 {
		values.StepWait = defaultStepWait
	}

	if values.UpdateWait <= 0 {
		values.UpdateWait = defaultUpdateWait
	}

	if values.RenderInterval <= 0 {
		values.RenderInterval = default_RenderInterval
	}

	if values.ChannelCapacity <= 0 {
		values.ChannelCapacity = defaultChannelCapacity
	}

	if values.RelayPort < 0 || values.RelayPort > 65535 {
		return fmt.Errorf("relay port out of range: %d", values.RelayPort)
	}

	cc.mu.Lock()
	cc.values = values
	cc.mu.Unlock()

	cc.logger.Debug("Populated config fields from viper")

	return nil
}

func (cc *CanonicalConfig) onConfigReloaded() {
	cc.logger.Debug("Notifying consumers about configuration reload")

	cc.consumersMutex.Lock()
	defer cc.consumersMutex.Unlock()

	for _, consumer := range cc.reloadConsumers {
		select {
		case consumer <- true:
		default:
			// a reload is already pending for this consumer
		}
	}
}

// stream names are matched case-insensitively, so store them lowercased and deduplicated
func cleanStreamNames(names []string) []string {
	lowered := make([]string, len(names))
	for i, name := range names {
		lowered[i] = strings.ToLower(strings.TrimSpace(name))
	}

	return funk.UniqString(funk.FilterString(lowered, func(s string) bool {
		return s != ""
	}))
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}
