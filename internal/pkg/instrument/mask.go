package instrument

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/samber/lo"
)

const maskedValue = "***"

// masker decides which attribute keys carry secrets. A key matches when it
// equals a field or its last dotted segment does, so "target.password"
// matches "password".
type masker struct {
	fields map[string]struct{}
}

func newMasker(fields []string) masker {
	normalized := lo.FilterMap(fields, func(f string, _ int) (string, bool) {
		f = strings.ToLower(strings.TrimSpace(f))
		return f, f != ""
	})
	return masker{fields: lo.Keyify(normalized)}
}

func (m masker) matches(key string) bool {
	key = strings.ToLower(key)
	if _, ok := m.fields[key]; ok {
		return true
	}
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		_, ok := m.fields[key[i+1:]]
		return ok
	}
	return false
}

func (m masker) attr(a slog.Attr) slog.Attr {
	if m.matches(a.Key) {
		return slog.String(a.Key, maskedValue)
	}

	switch a.Value.Kind() {
	case slog.KindGroup:
		a.Value = slog.GroupValue(lo.Map(a.Value.Group(), func(ga slog.Attr, _ int) slog.Attr {
			return m.attr(ga)
		})...)
	case slog.KindString:
		if s := a.Value.String(); s != "" && (s[0] == '{' || s[0] == '[') {
			if out, ok := m.json([]byte(s)); ok {
				a.Value = slog.StringValue(out)
			}
		}
	case slog.KindAny:
		switch v := a.Value.Any().(type) {
		case map[string]any, []any:
			a.Value = slog.AnyValue(m.data(v))
		case map[string]string:
			a.Value = slog.AnyValue(m.data(lo.MapValues(v, func(s string, _ string) any { return s })))
		case []byte:
			if out, ok := m.json(v); ok {
				a.Value = slog.StringValue(out)
			}
		}
	}
	return a
}

// json masks a JSON document. It reports false when payload is not JSON.
func (m masker) json(payload []byte) (string, bool) {
	var body any
	if len(payload) == 0 || json.Unmarshal(payload, &body) != nil {
		return "", false
	}
	out, err := json.Marshal(m.data(body))
	if err != nil {
		return "", false
	}
	return string(out), true
}

func (m masker) data(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, v2 := range val {
			if m.matches(k) {
				out[k] = maskedValue
				continue
			}
			out[k] = m.data(v2)
		}
		return out
	case []any:
		return lo.Map(val, func(v2 any, _ int) any { return m.data(v2) })
	default:
		return v
	}
}

type maskHandler struct {
	handler slog.Handler
	masker  masker
}

func (h *maskHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *maskHandler) Handle(ctx context.Context, record slog.Record) error {
	if len(h.masker.fields) == 0 {
		return h.handler.Handle(ctx, record)
	}

	masked := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(h.masker.attr(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

func (h *maskHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &maskHandler{
		handler: h.handler.WithAttrs(lo.Map(attrs, func(a slog.Attr, _ int) slog.Attr { return h.masker.attr(a) })),
		masker:  h.masker,
	}
}

func (h *maskHandler) WithGroup(name string) slog.Handler {
	return &maskHandler{handler: h.handler.WithGroup(name), masker: h.masker}
}
