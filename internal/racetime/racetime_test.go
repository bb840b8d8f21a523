package racetime

import (
	"fmt"
	"math"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		want     float64
		ok       bool
		relative bool
	}{
		{"45.3", 45.3, true, false},
		{"24:15.3", 1455.3, true, false},
		{"1:02:03.4", 3723.4, true, false},
		{"+12.1", 12.1, true, true},
		{"+1:05.0", 65, true, true},
		{"0:00.0", 0, true, false},
		{"75:00.0", 4500, true, false},
		{" 24:15.3 ", 1455.3, true, false},
		{"", 0, false, false},
		{"-", 0, false, false},
		{"DNS", 0, false, false},
		{"dnf", 0, false, false},
		{"LAP", 0, false, false},
		{"1:2:3:4", 0, false, false},
		{"1:60.0", 0, false, false},
		{"1:60:00.0", 0, false, false},
		{"-5.0", 0, false, false},
		{"1e3", 0, false, false},
		{"abc", 0, false, false},
		{"12.", 0, false, false},
		{"+", 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := Parse(tt.in)
			got, ok := c.Value.Seconds()
			if ok != tt.ok {
				t.Fatalf("Parse(%q) measurable = %v, want %v", tt.in, ok, tt.ok)
			}
			if ok && math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
			if c.Relative != tt.relative {
				t.Errorf("Parse(%q) relative = %v, want %v", tt.in, c.Relative, tt.relative)
			}
		})
	}
}

func TestZeroIsNotNoData(t *testing.T) {
	zero := Parse("0:00.0").Value
	if !zero.Measurable() {
		t.Fatal("0:00.0 should be a measured zero")
	}
	if Parse("-").Value.Measurable() {
		t.Fatal("- should be unmeasurable")
	}
	if Format(zero) != "0:00.0" {
		t.Errorf("Format(zero) = %q, want %q", Format(zero), "0:00.0")
	}
}

func TestResolve_LeaderAnchor(t *testing.T) {
	leader := Parse("24:15.3").Value
	got := Resolve("+12.1", leader)
	if Format(got) != "24:27.4" {
		t.Errorf("Resolve(+12.1) = %q, want %q", Format(got), "24:27.4")
	}

	if Resolve("+12.1", Unmeasurable).Measurable() {
		t.Error("relative time without a leader should stay unmeasurable")
	}
	if Format(Resolve("25:00.0", Unmeasurable)) != "25:00.0" {
		t.Error("absolute time should not need a leader")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		d    Duration
		want string
	}{
		{Unmeasurable, "-"},
		{Of(59.96), "1:00.0"},
		{Of(119.97), "2:00.0"},
		{Of(3723.4), "1:02:03.4"},
		{Of(3599.99), "1:00:00.0"},
		{Of(5.25), "0:05.3"},
	}
	for _, tt := range tests {
		if got := Format(tt.d); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.d.secs, got, tt.want)
		}
	}
}

func TestArithmetic(t *testing.T) {
	a, b := Of(100), Of(30)
	if s, _ := a.Sub(b).Seconds(); s != 70 {
		t.Errorf("Sub = %v, want 70", s)
	}
	if b.Sub(a).Measurable() {
		t.Error("negative difference must be unmeasurable")
	}
	if a.Add(Unmeasurable).Measurable() {
		t.Error("Add with unmeasurable must be unmeasurable")
	}
	if Of(-1).Measurable() || Of(math.NaN()).Measurable() {
		t.Error("Of(negative/NaN) must be unmeasurable")
	}
}

func TestMarshalJSON(t *testing.T) {
	b, _ := Of(12.14).MarshalJSON()
	if string(b) != "12.1" {
		t.Errorf("MarshalJSON = %s, want 12.1", b)
	}
	b, _ = Unmeasurable.MarshalJSON()
	if string(b) != "null" {
		t.Errorf("MarshalJSON(unmeasurable) = %s, want null", b)
	}
}

func TestRoundTrip(t *testing.T) {
	f := gofakeit.New(42)
	for i := 0; i < 2000; i++ {
		tenths := f.IntRange(0, 5*36000)
		text := fmt.Sprintf("%d:%02d.%d", tenths/600, tenths%600/10, tenths%10)
		if f.Bool() && tenths >= 36000 {
			text = fmt.Sprintf("%d:%02d:%02d.%d", tenths/36000, tenths/600%60, tenths%600/10, tenths%10)
		}

		first, ok := Parse(text).Value.Seconds()
		if !ok {
			t.Fatalf("Parse(%q) unmeasurable", text)
		}
		again, ok := Parse(Format(Of(first))).Value.Seconds()
		if !ok {
			t.Fatalf("Parse(Format(%q)) unmeasurable", text)
		}
		if math.Abs(first-again) > 0.1 {
			t.Errorf("round trip %q: %v -> %v", text, first, again)
		}
	}
}
