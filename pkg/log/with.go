package log

// With returns a Logger that adds fields to every message. Fields given at
// the call site are logged after the bound ones.
func With(logger Logger, fields ...Field) Logger {
	if len(fields) == 0 {
		return logger
	}
	switch l := logger.(type) {
	case *ZerologAdapter:
		return l.with(fields)
	case discard:
		return l
	case *withLogger:
		bound := make([]Field, 0, len(l.fields)+len(fields))
		bound = append(bound, l.fields...)
		return &withLogger{next: l.next, fields: append(bound, fields...)}
	}
	return &withLogger{next: logger, fields: fields}
}

type withLogger struct {
	next   Logger
	fields []Field
}

func (w *withLogger) merge(fields []Field) []Field {
	if len(fields) == 0 {
		return w.fields
	}
	out := make([]Field, 0, len(w.fields)+len(fields))
	out = append(out, w.fields...)
	return append(out, fields...)
}

func (w *withLogger) Debug(msg string, fields ...Field) { w.next.Debug(msg, w.merge(fields)...) }
func (w *withLogger) Info(msg string, fields ...Field)  { w.next.Info(msg, w.merge(fields)...) }
func (w *withLogger) Warn(msg string, fields ...Field)  { w.next.Warn(msg, w.merge(fields)...) }
func (w *withLogger) Error(msg string, fields ...Field) { w.next.Error(msg, w.merge(fields)...) }
