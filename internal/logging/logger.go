package logging

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "RTINSPECT_LOG_LEVEL"

// Masking parameters for credential values
const (
	maskPreserveLen = 4
	maskMinLength   = 12
	maskPlaceholder = "***"
)

// Initialize creates a new logger with the specified level writing to outputPath.
// If level is empty, it checks the RTINSPECT_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
// An empty outputPath writes to stderr.
func Initialize(level string, outputPath string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	zapLevel, err := ParseLevel(level)
	if err != nil {
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	if outputPath == "" {
		outputPath = "stderr"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{outputPath},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	if outputPath == "stderr" || outputPath == "stdout" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = built

	return nil
}

// InitializeFromEnv initializes a stderr logger from RTINSPECT_LOG_LEVEL.
func InitializeFromEnv() error {
	return Initialize("", "")
}

// ParseLevel converts a level name into a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// SetLogger replaces the global logger. Tests use this with zaptest/observer.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Silent unless initialized
		logger = zap.NewNop()
	}
	return logger
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogConfigChange logs a replacement of the active connection configuration.
// source names the write path (commit, credentials, external).
func LogConfigChange(source string, projectRef string, token string, bearer string) {
	Info("Connection config replaced",
		zap.String("source", source),
		zap.String("project_ref", projectRef),
		zap.String("token", Mask(token)),
		zap.Bool("impersonating", bearer != ""),
	)
}

// LogCredentials logs a credential list refresh without revealing values.
func LogCredentials(origin string, labels []string) {
	Info("Credentials refreshed",
		zap.String("origin", origin),
		zap.Strings("labels", labels),
	)
}

// LogChannelMessage logs a realtime channel message
func LogChannelMessage(direction string, topic string, event string, ref string, data []byte) {
	fields := []zap.Field{
		zap.String("direction", direction),
		zap.String("topic", topic),
		zap.String("event", event),
		zap.String("ref", ref),
		zap.Int("length", len(data)),
	}

	// Payload bodies only at debug level; join payloads carry access tokens
	if GetLogger().Core().Enabled(zapcore.DebugLevel) && event != "phx_join" && event != "access_token" {
		fields = append(fields, zap.String("payload", truncate(string(data), 512)))
	}

	Info("Channel message", fields...)
}

// Mask hides a secret value, keeping a short prefix and suffix for recognition.
// Values shorter than maskMinLength are fully replaced.
func Mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) < maskMinLength {
		return maskPlaceholder
	}
	return secret[:maskPreserveLen] + "..." + secret[len(secret)-maskPreserveLen:]
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
