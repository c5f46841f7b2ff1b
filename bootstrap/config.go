package bootstrap

import (
	"fmt"
	"os"

	"secanalytics/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// InitLogger initializes the zap logger. The console encoding uses
// colored levels for humans; json is meant for log shippers.
func InitLogger(level, encoding string) (*zap.Logger, *zap.SugaredLogger, error) {
	lvl := zapcore.InfoLevel
	if level != "" {
		if err := lvl.Set(level); err != nil {
			return nil, nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	var encoder zapcore.Encoder
	switch encoding {
	case "json":
		encoderConfig := zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", "console":
		encoderConfig := zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, nil, fmt.Errorf("unsupported log encoding %q", encoding)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), lvl)
	logger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, logger.Sugar(), nil
}

// InitConfig loads the application configuration.
func InitConfig(configFile string, sugar *zap.SugaredLogger) (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if configFile == "" {
		sugar.Info("Config loaded from default search paths and environment")
	}
	sugar.Infow("Config loaded",
		"backend_url", cfg.Backend.URL,
		"backend_auth", cfg.Backend.Auth.Mode,
		"refresh_window", cfg.Refresh.Start+" .. "+cfg.Refresh.End,
		"refresh_interval", cfg.Refresh.Interval.String(),
		"redis_enabled", cfg.Cache.Redis.Enabled,
		"api_auth", cfg.Auth.Enabled)

	return cfg, nil
}
