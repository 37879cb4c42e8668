package calculation

// Logger receives engine diagnostics. *zap.SugaredLogger satisfies it.
type Logger interface {
	Debugf(template string, args ...any)
	Infof(template string, args ...any)
	Warnf(template string, args ...any)
	Errorf(template string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}

// planLogger prefixes each message with the combination it concerns.
type planLogger struct {
	Logger
	name string
}

func withPlan(l Logger, name string) Logger {
	if l == nil {
		return NopLogger{}
	}
	if _, nop := l.(NopLogger); nop || name == "" {
		return l
	}
	return planLogger{Logger: l, name: name}
}

func (l planLogger) args(args []any) []any { return append([]any{l.name}, args...) }

func (l planLogger) Debugf(t string, args ...any) { l.Logger.Debugf("%s: "+t, l.args(args)...) }
func (l planLogger) Infof(t string, args ...any)  { l.Logger.Infof("%s: "+t, l.args(args)...) }
func (l planLogger) Warnf(t string, args ...any)  { l.Logger.Warnf("%s: "+t, l.args(args)...) }
func (l planLogger) Errorf(t string, args ...any) { l.Logger.Errorf("%s: "+t, l.args(args)...) }
