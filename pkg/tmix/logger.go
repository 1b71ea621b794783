package tmix

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/stalexteam/tmix/pkg/tmix/util"
)

const (
	buildTypeNone    = ""
	buildTypeDev     = "dev"
	buildTypeRelease = "release"

	logDirectory = "logs"
	logFilename  = "tmix-latest-run.log"
)

// NewLogger provides a logger instance for the whole program.
// toFile forces file output, which is what the terminal UI needs since it owns the screen.
// verbose logs debug and above regardless of build type
func NewLogger(buildType string, toFile bool, verbose bool) (*zap.SugaredLogger, error) {
	loggerConfig := newLoggerConfig(buildType, toFile, verbose)

	if buildType == buildTypeRelease || toFile {
		if err := util.EnsureDirExists(logDirectory); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("create zap logger: %w", err)
	}

	// no reason not to use the sugared logger - it's fast enough for anything we're gonna do
	sugar := logger.Sugar()

	return sugar, nil
}

func newLoggerConfig(buildType string, toFile bool, verbose bool) zap.Config {
	var loggerConfig zap.Config

	// release or fullscreen: info and above, log to file only
	if buildType == buildTypeRelease || toFile {
		loggerConfig = zap.NewProductionConfig()

		loggerConfig.OutputPaths = []string{filepath.Join(logDirectory, logFilename)}
		loggerConfig.ErrorOutputPaths = loggerConfig.OutputPaths
		loggerConfig.Encoding = "console"

		if buildType != buildTypeRelease {
			loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}

		// development: debug and above, log to stderr only, colorful
	} else {
		loggerConfig = zap.NewDevelopmentConfig()

		// make it colorful
		loggerConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	if verbose {
		loggerConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	// all build types: make it readable
	loggerConfig.EncoderConfig.EncodeCaller = nil
	loggerConfig.EncoderConfig.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
	}

	loggerConfig.EncoderConfig.EncodeName = func(s string, enc zapcore.PrimitiveArrayEncoder) {
		enc.AppendString(fmt.Sprintf("%-27s", s))
	}

	return loggerConfig
}
