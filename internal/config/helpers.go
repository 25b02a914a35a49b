package config

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var offsetPattern = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)

// ListenAddress returns the host:port the HTTP server binds to
func (c *ServerConfig) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// Lookback returns the default statistics window as a duration
func (c *QueryConfig) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// Location returns the timezone for offset-less date-times.
// Returns UTC if not configured or invalid.
// Supports formats:
//   - IANA timezone names: "Asia/Tokyo", "America/New_York", "UTC"
//   - Offset format: "+09:00", "-05:00", "+00:00"
func (c *QueryConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := parseLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func parseLocation(tz string) (*time.Location, error) {
	if loc, err := time.LoadLocation(tz); err == nil {
		return loc, nil
	}
	return parseOffsetTimezone(tz)
}

// parseOffsetTimezone parses timezone offset format like "+09:00", "-05:00"
func parseOffsetTimezone(offset string) (*time.Location, error) {
	matches := offsetPattern.FindStringSubmatch(offset)
	if len(matches) != 4 {
		return nil, fmt.Errorf("invalid timezone: %s", offset)
	}

	sign := 1
	if matches[1] == "-" {
		sign = -1
	}

	hours, err := strconv.Atoi(matches[2])
	if err != nil {
		return nil, fmt.Errorf("invalid hours: %s", matches[2])
	}

	minutes, err := strconv.Atoi(matches[3])
	if err != nil {
		return nil, fmt.Errorf("invalid minutes: %s", matches[3])
	}

	return time.FixedZone(offset, sign*(hours*3600+minutes*60)), nil
}
