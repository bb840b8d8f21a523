package scope

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/en"
)

var ErrInvalidSince = errors.New("unrecognized date")

// ParseSince reads the lower bound of a date scope: an ISO date
// ("2025-12-01") or an English expression ("last friday", "2 weeks ago").
// The result is midnight of the matched day in now's location.
func ParseSince(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", text, now.Location()); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	r, err := w.Parse(strings.ToLower(text), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w %q: %v", ErrInvalidSince, text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w %q", ErrInvalidSince, text)
	}
	t := r.Time.In(now.Location())
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location()), nil
}
