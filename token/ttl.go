package token

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTTL parses a Go duration with an optional leading day component, so
// "15m", "24h", "7d" and "1d12h" are all accepted. A bare integer is read as
// seconds. The result must be positive.
func ParseTTL(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("parse ttl: empty value")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("parse ttl %q: must be positive", s)
		}
		return time.Duration(n) * time.Second, nil
	}

	var total time.Duration
	rest := s
	if i := strings.IndexByte(rest, 'd'); i >= 0 {
		days, err := strconv.ParseInt(rest[:i], 10, 64)
		if err != nil || days < 0 {
			return 0, fmt.Errorf("parse ttl %q: invalid day component", s)
		}
		total = time.Duration(days) * 24 * time.Hour
		rest = rest[i+1:]
	}
	if rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("parse ttl %q: %w", s, err)
		}
		total += d
	}
	if total <= 0 {
		return 0, fmt.Errorf("parse ttl %q: must be positive", s)
	}
	return total, nil
}
