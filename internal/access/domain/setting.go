package domain

import "strings"

// ParseBoolSetting interprets a boolean-like system setting value.
// ok is false when value is not recognised.
func ParseBoolSetting(value string) (enabled bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on", "enabled":
		return true, true
	case "0", "false", "no", "off", "disabled":
		return false, true
	default:
		return false, false
	}
}
