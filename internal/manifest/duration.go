package manifest

import (
	"fmt"
	"time"

	"github.com/rickb777/date/period"
)

// ParseDuration converts an ISO-8601 duration such as "PT4S" to a time.Duration.
func ParseDuration(s string) (time.Duration, error) {
	p, err := period.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d, _ := p.Duration()
	return d, nil
}

// parseSeconds parses an optional ISO-8601 duration into seconds. Empty is zero.
func parseSeconds(field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d.Seconds(), nil
}
