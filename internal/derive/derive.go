// Package derive computes per-competitor metrics for a single race: resolved
// result time, course/ski/range/shooting segments, penalty time, the
// prone/standing miss split and pursuit places gained.
package derive

import (
	"biathlonstats/internal/discipline"
	"biathlonstats/internal/payload"
	"biathlonstats/internal/racetime"
	"biathlonstats/internal/results"
)

// Segment is an analytic result type id of the results service.
type Segment string

const (
	Course   Segment = "CRST"
	Ski      Segment = "SKIT"
	Range    Segment = "RNGT"
	Shooting Segment = "STTM"
)

// Row-level fallbacks, tried in order when no analytic time is available.
var rowFields = map[Segment][]string{
	Course:   {"TotalCourseTime", "CourseTime", "RunTime"},
	Ski:      {"TotalSkiTime", "SkiTime", "SkiTimeTotal", "SKITime", "Ski"},
	Range:    {"TotalRangeTime", "RangeTime"},
	Shooting: {"TotalShootingTime", "ShootingTime"},
}

// Segments holds supplementary segment times of one race, keyed by segment
// then by athlete (federation id, else bib, else name).
type Segments map[Segment]map[string]string

// Add stores the rows of an analytic result payload under seg. Team rows are
// ignored; the first time seen for an athlete wins.
func (s Segments) Add(seg Segment, rec payload.Record) {
	list, ok := rec.List("Results")
	if !ok {
		return
	}
	times := s[seg]
	if times == nil {
		times = make(map[string]string, len(list))
		s[seg] = times
	}
	for _, item := range list {
		if item.Bool("IsTeam") {
			continue
		}
		key := item.String("IBUId", "Bib", "Name")
		if key == "" {
			continue
		}
		if _, seen := times[key]; seen {
			continue
		}
		times[key] = item.String("TotalTime", "Result")
	}
}

func (s Segments) lookup(seg Segment, row results.Row) string {
	times := s[seg]
	if times == nil {
		return ""
	}
	for _, key := range []string{row.ID, row.Bib, row.Name} {
		if key == "" {
			continue
		}
		if v := times[key]; v != "" {
			return v
		}
	}
	return ""
}

// Context is what the deriver needs to know about a race beyond one row.
type Context struct {
	Profile  discipline.Profile
	Leader   racetime.Duration
	Segments Segments
}

// Supported reports whether the discipline is known to the rule table.
func (c Context) Supported() bool { return c.Profile.Code != "" }

// TimeKind names one derived time.
type TimeKind string

const (
	TimeResult     TimeKind = "result"
	TimePursuitNet TimeKind = "pursuit-net"
	TimeCourse     TimeKind = "course"
	TimeSki        TimeKind = "ski"
	TimeRange      TimeKind = "range"
	TimeShooting   TimeKind = "shooting"
	TimePenalty    TimeKind = "penalty"
)

// Metrics are the derived values of one competitor in one race. Each time is
// unmeasurable when it could not be determined.
type Metrics struct {
	Result       racetime.Duration
	PursuitNet   racetime.Duration
	Course       racetime.Duration
	Ski          racetime.Duration
	Range        racetime.Duration
	ShootingTime racetime.Duration
	Penalty      racetime.Duration
	Misses       MissSplit
	Gain         Gain
}

// Time returns the derived time of the given kind.
func (m Metrics) Time(kind TimeKind) racetime.Duration {
	switch kind {
	case TimeResult:
		return m.Result
	case TimePursuitNet:
		return m.PursuitNet
	case TimeCourse:
		return m.Course
	case TimeSki:
		return m.Ski
	case TimeRange:
		return m.Range
	case TimeShooting:
		return m.ShootingTime
	case TimePenalty:
		return m.Penalty
	}
	return racetime.Unmeasurable
}

// Derive computes every metric of row under ctx.
func Derive(row results.Row, ctx Context) Metrics {
	m := Metrics{
		Result: racetime.Resolve(row.Result, ctx.Leader),
		Misses: SplitMisses(row.Shootings, row.ShootingTotal, ctx),
		Gain:   PlacesGained(row),
	}
	if row.Status() == "DNS" {
		m.Result = racetime.Unmeasurable
	}

	m.Course = segmentTime(row, ctx, Course)
	m.Ski = segmentTime(row, ctx, Ski)
	if !m.Ski.Measurable() {
		m.Ski = m.Course
	}
	m.Range = segmentTime(row, ctx, Range)
	m.ShootingTime = segmentTime(row, ctx, Shooting)

	if delay := startDelay(row); delay.Measurable() {
		m.PursuitNet = m.Result.Sub(delay)
	}
	m.Penalty = penalty(row, ctx, m)
	return m
}

func segmentTime(row results.Row, ctx Context, seg Segment) racetime.Duration {
	text := ctx.Segments.lookup(seg, row)
	if text == "" {
		text = row.Record.String(rowFields[seg]...)
	}
	return racetime.Parse(text).Value
}

// startDelay is the pursuit handicap; a leading "+" is part of the notation.
func startDelay(row results.Row) racetime.Duration {
	if row.StartDelay == "" {
		return racetime.Unmeasurable
	}
	return racetime.Parse(row.StartDelay).Value
}

func penalty(row results.Row, ctx Context, m Metrics) racetime.Duration {
	switch ctx.Profile.Penalty {
	case discipline.PenaltyMinute:
		if !m.Misses.Known {
			return racetime.Unmeasurable
		}
		return racetime.Of(float64(m.Misses.Total) * 60)
	case discipline.PenaltyLoop:
		return m.Result.Sub(m.Ski).Sub(m.Range)
	case discipline.PenaltyLoopFromStart:
		delay := startDelay(row)
		if !delay.Measurable() {
			return racetime.Unmeasurable
		}
		return m.Result.Sub(delay).Sub(m.Ski).Sub(m.Range)
	}
	return racetime.Unmeasurable
}
