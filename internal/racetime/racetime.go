// Package racetime parses and formats biathlon race-clock strings.
package racetime

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Duration is a race time in seconds that may be unmeasurable. The zero value
// is unmeasurable; Of(0) is a measured zero.
type Duration struct {
	secs float64
	ok   bool
}

// Unmeasurable is the "no data" duration.
var Unmeasurable = Duration{}

// Of returns a measured duration. Negative or non-finite input is
// unmeasurable.
func Of(secs float64) Duration {
	if secs < 0 || math.IsNaN(secs) || math.IsInf(secs, 0) {
		return Unmeasurable
	}
	return Duration{secs: secs, ok: true}
}

// Seconds returns the value and whether it was measured.
func (d Duration) Seconds() (float64, bool) { return d.secs, d.ok }

// Measurable reports whether d holds a value.
func (d Duration) Measurable() bool { return d.ok }

// Add sums two durations; either side unmeasurable gives unmeasurable.
func (d Duration) Add(o Duration) Duration {
	if !d.ok || !o.ok {
		return Unmeasurable
	}
	return Of(d.secs + o.secs)
}

// Sub subtracts o from d. A negative difference is unmeasurable, never zero.
func (d Duration) Sub(o Duration) Duration {
	if !d.ok || !o.ok {
		return Unmeasurable
	}
	return Of(d.secs - o.secs)
}

func (d Duration) String() string { return Format(d) }

// MarshalJSON writes seconds, or null when unmeasurable.
func (d Duration) MarshalJSON() ([]byte, error) {
	if !d.ok {
		return []byte("null"), nil
	}
	return json.Marshal(math.Round(d.secs*10) / 10)
}

// Clock is a parsed race-clock string.
type Clock struct {
	Value    Duration
	Relative bool // written as "+diff" behind the leader
}

var sentinels = map[string]bool{
	"-":   true,
	"DNS": true,
	"DNF": true,
	"DSQ": true,
	"LAP": true,
	"LPD": true,
	"OTL": true,
	"DNQ": true,
}

// Parse reads "ss.d", "mm:ss.d" or "hh:mm:ss.d", optionally prefixed by "+".
// Empty text, status markers and malformed numbers are unmeasurable.
func Parse(text string) Clock {
	s := strings.TrimSpace(text)
	if s == "" || sentinels[strings.ToUpper(s)] {
		return Clock{}
	}
	var c Clock
	if strings.HasPrefix(s, "+") {
		c.Relative = true
		s = strings.TrimSpace(s[1:])
	}
	secs, ok := parseClock(s)
	if !ok {
		return Clock{Relative: c.Relative}
	}
	c.Value = Of(secs)
	return c
}

func parseClock(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	last := parts[len(parts)-1]
	if !isDecimal(last) {
		return 0, false
	}
	sec, err := strconv.ParseFloat(last, 64)
	if err != nil {
		return 0, false
	}
	whole := make([]int, 0, 2)
	for _, p := range parts[:len(parts)-1] {
		if !isDigits(p) {
			return 0, false
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, false
		}
		whole = append(whole, n)
	}
	switch len(whole) {
	case 0:
		return sec, true
	case 1:
		if sec >= 60 {
			return 0, false
		}
		return float64(whole[0])*60 + sec, true
	default:
		if sec >= 60 || whole[1] >= 60 {
			return 0, false
		}
		return float64(whole[0])*3600 + float64(whole[1])*60 + sec, true
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDecimal(s string) bool {
	head, tail, found := strings.Cut(s, ".")
	if !isDigits(head) {
		return false
	}
	return !found || isDigits(tail)
}

// Resolve parses text and anchors a relative value to leader. Relative times
// stay unmeasurable when the leader is unknown.
func Resolve(text string, leader Duration) Duration {
	c := Parse(text)
	if !c.Relative {
		return c.Value
	}
	return leader.Add(c.Value)
}

// Format renders d as "m:ss.t" or "h:mm:ss.t", "-" when unmeasurable.
func Format(d Duration) string {
	if !d.ok {
		return "-"
	}
	tenths := int64(math.Round(d.secs * 10))
	hours := tenths / 36000
	minutes := tenths / 600 % 60
	secs := tenths % 600
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d.%d", hours, minutes, secs/10, secs%10)
	}
	return fmt.Sprintf("%d:%02d.%d", tenths/600, secs/10, secs%10)
}
