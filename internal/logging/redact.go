package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Redacted replaces the value of any sensitive field.
const Redacted = "[REDACTED]"

var sensitiveKeys = map[string]bool{
	"body":     true,
	"content":  true,
	"password": true,
	"key":      true,
	"token":    true,
}

type redactCore struct {
	zapcore.Core
}

// Redact wraps core so that fields named body, content, password, key or
// token are written as Redacted, whether added with With or per entry.
func Redact(core zapcore.Core) zapcore.Core {
	return redactCore{core}
}

func (c redactCore) With(fields []zapcore.Field) zapcore.Core {
	return redactCore{c.Core.With(redact(fields))}
}

func (c redactCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c redactCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, redact(fields))
}

func redact(fields []zapcore.Field) []zapcore.Field {
	var out []zapcore.Field
	for i, f := range fields {
		if !sensitiveKeys[f.Key] {
			continue
		}
		if out == nil {
			out = make([]zapcore.Field, len(fields))
			copy(out, fields)
		}
		out[i] = zap.String(f.Key, Redacted)
	}
	if out == nil {
		return fields
	}
	return out
}
