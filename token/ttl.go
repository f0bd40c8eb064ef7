package token

import (
	"regexp"
	"strconv"
)

var ttlPattern = regexp.MustCompile(`^(\d+)([smhd])?$`)

// ParseTTLSeconds converts a lifetime string such as "15m", "7d", or "30s"
// to seconds. A bare number is taken as seconds. Inputs that match neither
// form fall back to a plain numeric parse and finally to 0.
func ParseTTLSeconds(ttl string) int64 {
	if ttl == "" {
		return 0
	}

	m := ttlPattern.FindStringSubmatch(ttl)
	if m == nil {
		v, err := strconv.ParseInt(ttl, 10, 64)
		if err != nil {
			return 0
		}
		return v
	}

	v, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0
	}

	switch m[2] {
	case "m":
		return v * 60
	case "h":
		return v * 3600
	case "d":
		return v * 24 * 3600
	default: // "s" or no unit
		return v
	}
}
