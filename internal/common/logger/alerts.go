package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// AlertSender delivers a log line to an out-of-band channel such as a webhook.
type AlertSender interface {
	SendLogMessage(level, message string, fields map[string]interface{}) error
}

// alert forwards ERROR and FATAL events, with their fields, to the sender.
func (l *loggerImpl) alert(level zerolog.Level, msg string, fields []interface{}, wait bool) {
	if l.alerts == nil || level < l.zl.GetLevel() {
		return
	}
	name := strings.ToUpper(level.String())
	data := alertFields(fields)
	send := func() {
		// Delivery errors are dropped; logging them would re-enter alert.
		_ = l.alerts.SendLogMessage(name, msg, data)
	}
	if wait {
		send()
		return
	}
	go send()
}

// alertFields flattens the fields passed to a log call into a map, rendering
// errors as their message.
func alertFields(fields []interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	if len(fields) == 1 {
		if m, ok := fields[0].(map[string]interface{}); ok {
			for k, v := range m {
				out[k] = alertValue(v)
			}
			return out
		}
	}
	if len(fields)%2 != 0 {
		return out
	}
	for i := 0; i < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		out[key] = alertValue(fields[i+1])
	}
	return out
}

func alertValue(v interface{}) interface{} {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return v
}
