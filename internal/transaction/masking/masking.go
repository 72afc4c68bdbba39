package masking

import (
	"net/http"
	"strings"
)

const maskToken = "****"

var sensitiveHeaders = map[string]struct{}{
	"authorization":       {},
	"proxy-authorization": {},
	"cookie":              {},
	"set-cookie":          {},
	"x-api-key":           {},
	"api-key":             {},
}

// MaskSecret redacts a secret while keeping a minimal suffix for auditing.
func MaskSecret(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}

	prefix, remainder := splitScheme(trimmed)
	if strings.HasPrefix(remainder, maskToken) {
		return trimmed
	}
	if len(remainder) <= 8 {
		return prefix + maskToken
	}
	return prefix + maskToken + remainder[len(remainder)-4:]
}

// IsSensitiveHeader reports whether a header carries credentials.
func IsSensitiveHeader(name string) bool {
	key := strings.ToLower(strings.TrimSpace(name))
	if _, ok := sensitiveHeaders[key]; ok {
		return true
	}
	return strings.Contains(key, "token") || strings.Contains(key, "secret")
}

// FlattenHeaders joins multi-value headers and masks credentials.
func FlattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for name, values := range headers {
		value := strings.Join(values, ", ")
		if IsSensitiveHeader(name) {
			value = MaskSecret(value)
		}
		out[http.CanonicalHeaderKey(name)] = value
	}
	return out
}

// MaskHeaders returns a copy of headers with credential values masked.
func MaskHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for name, value := range headers {
		if IsSensitiveHeader(name) {
			value = MaskSecret(value)
		}
		out[name] = value
	}
	return out
}

// splitScheme keeps an auth scheme such as "Bearer " visible.
func splitScheme(value string) (string, string) {
	idx := strings.IndexByte(value, ' ')
	if idx <= 0 || idx == len(value)-1 {
		return "", value
	}
	return value[:idx+1], strings.TrimSpace(value[idx+1:])
}
