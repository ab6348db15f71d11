package cache

import "strings"

// SettingsKey caches the singleton system settings.
const SettingsKey = "settings:site"

// ProfileKey derives the cache key for a profile variant. The username is
// trimmed and lower-cased so differently-cased lookups share one entry, and
// the language tag keeps variants of the same account from colliding.
func ProfileKey(username, language string) string {
	if language == "" {
		language = "default"
	}
	return "profile:" + strings.ToLower(strings.TrimSpace(username)) + ":" + language
}
