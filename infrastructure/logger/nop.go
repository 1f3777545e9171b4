package logger

// NoOpLogger discards every entry. Tests use it where log output is irrelevant.
type NoOpLogger struct{}

// NewNop creates a new no-op logger instance.
func NewNop() Logger {
	return &NoOpLogger{}
}

func (l *NoOpLogger) Debug(string, ...Field) {}

func (l *NoOpLogger) Info(string, ...Field) {}

func (l *NoOpLogger) Warn(string, ...Field) {}

func (l *NoOpLogger) Error(string, ...Field) {}

// Fatal does not exit.
func (l *NoOpLogger) Fatal(string, ...Field) {}

func (l *NoOpLogger) With(...Field) Logger {
	return l
}

func (l *NoOpLogger) Sync() error {
	return nil
}
