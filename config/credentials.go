package config

import "strings"

// placeholderCredentials are the values shipped in example env files. A credential
// set containing any of them is treated as absent.
var placeholderCredentials = []string{
	"your_cloud_name",
	"your_api_key",
	"your_api_secret",
}

// IsPlaceholder reports whether v is one of the template credential values. The
// comparison ignores case and treats '-' and '_' as the same separator.
func IsPlaceholder(v string) bool {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), "-", "_")
	for _, p := range placeholderCredentials {
		if normalized == p {
			return true
		}
	}

	return false
}

// Configured reports whether the remote media backend may be used: all three
// fields are present and none of them is a placeholder.
func (c Credentials) Configured() bool {
	for _, v := range []string{c.CloudName, c.ApiKey, c.ApiSecret} {
		if strings.TrimSpace(v) == "" || IsPlaceholder(v) {
			return false
		}
	}

	return true
}

// Redacted returns a copy safe to print in logs.
func (c Credentials) Redacted() Credentials {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return "****"
	}

	return Credentials{CloudName: c.CloudName, ApiKey: mask(c.ApiKey), ApiSecret: mask(c.ApiSecret)}
}
