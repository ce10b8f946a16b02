package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"deployer-backend/internal/config"
)

type Logger struct {
	*zap.Logger
}

func NewLogger(cfg config.LoggingConfig) (*Logger, error) {
	var zcfg zap.Config

	if cfg.Debug || cfg.Format == "text" {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.Development = false
	} else {
		zcfg = zap.NewProductionConfig()
	}

	level := zapcore.InfoLevel
	if err := level.Set(cfg.Level); err != nil {
		level = zapcore.InfoLevel
	}
	if cfg.Debug {
		level = zapcore.DebugLevel
	}
	zcfg.Level.SetLevel(level)
	zcfg.OutputPaths = []string{"stdout"}

	l, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{Logger: l}, nil
}

func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// With returns a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

func (l *Logger) SSHConnectionAttempt(method, target string) {
	l.Info("SSH connection attempt",
		zap.String("type", "ssh_connection"),
		zap.String("method", method),
		zap.String("target", target),
	)
}

func (l *Logger) DeploymentStep(step, project string) {
	l.Info("deployment step started",
		zap.String("type", "deployment"),
		zap.String("step", step),
		zap.String("project", project),
	)
}

func (l *Logger) DeploymentError(step string, err error) {
	l.Error("deployment step failed",
		zap.String("type", "deployment"),
		zap.String("step", step),
		zap.Error(err),
	)
}

func (l *Logger) DeploymentSuccess(step string) {
	l.Info("deployment step succeeded",
		zap.String("type", "deployment"),
		zap.String("step", step),
	)
}

func (l *Logger) UploadProgress(file string, uploaded, total, percent int) {
	l.Debug("file uploaded",
		zap.String("type", "upload"),
		zap.String("file", file),
		zap.Int("uploaded", uploaded),
		zap.Int("total", total),
		zap.Int("percent", percent),
	)
}
