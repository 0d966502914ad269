package misc

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Getenv returns the trimmed value of key or def when it is unset or blank.
func Getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ParseDuration accepts Go duration syntax or a bare integer number of seconds.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d, nil
}

// ParseBool understands the usual truthy and falsy spellings.
func ParseBool(s string) (value, ok bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "1", "true", "t", "yes", "y", "on":
		return true, true
	case "0", "false", "f", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

// GetBool reads a boolean from the environment, falling back to def.
func GetBool(key string, def bool) bool {
	if v, ok := ParseBool(os.Getenv(key)); ok {
		return v
	}
	return def
}
