package config

import "strings"

const redacted = "***REDACTED***"

var redactKeys = map[string]struct{}{
	"token":       {},
	"password":    {},
	"passphrase":  {},
	"secret":      {},
	"private_key": {},
}

// Redact returns a copy of settings (as produced by viper.AllSettings) with
// credential values masked. Nested maps and lists are walked.
func Redact(settings map[string]any) map[string]any {
	out, _ := redactValue(settings).(map[string]any)
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			if _, ok := redactKeys[strings.ToLower(k)]; ok {
				if s, isStr := vv.(string); isStr && s == "" {
					out[k] = ""
					continue
				}
				out[k] = redacted
				continue
			}
			out[k] = redactValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = redactValue(t[i])
		}
		return out
	default:
		return v
	}
}
