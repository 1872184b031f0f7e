package log

// nullLogger discards everything. Used in tests that don't want
// console noise.
type nullLogger struct{}

// NewNullLogger returns a Logger that discards everything.
func NewNullLogger() Logger { return nullLogger{} }

func (nullLogger) Errorf(format string, args ...interface{}) {}
func (nullLogger) Warnf(format string, args ...interface{})  {}
func (nullLogger) Infof(format string, args ...interface{})  {}
func (nullLogger) Debugf(format string, args ...interface{}) {}
func (nullLogger) Tracef(format string, args ...interface{}) {}
func (nullLogger) Log(level Level, line string)              {}
func (n nullLogger) With(key, value string) Logger           { return n }
