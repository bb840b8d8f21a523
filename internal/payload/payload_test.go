package payload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeObject_FoldsKeys(t *testing.T) {
	rec, err := DecodeObject([]byte(`{"Competition":{"catId":"SW"},"Results":[{"IBUId":"BTNOR1","Rank":"1"}]}`))
	require.NoError(t, err)

	comp, ok := rec.Object("competition")
	require.True(t, ok)
	assert.Equal(t, "SW", comp.String("CATID"))

	rows, ok := rec.List("results")
	require.True(t, ok)
	require.Len(t, rows, 1)
	assert.Equal(t, "BTNOR1", rows[0].String("IbuId"))
}

func TestDecodeObject_RejectsArray(t *testing.T) {
	_, err := DecodeObject([]byte(`[1,2]`))
	if err == nil {
		t.Fatal("DecodeObject() on array should fail")
	}
}

func TestDecodeList_DropsNonObjects(t *testing.T) {
	recs, err := DecodeList([]byte(`[{"SeasonId":"2526"}, 3, "x", {"SeasonId":"2425"}]`))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "2425", recs[1].String("seasonid"))
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := DecodeObject([]byte(`{"a":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestFirst_OrderedFallback(t *testing.T) {
	rec := FromMap(map[string]any{
		"TotalSkiTime": "",
		"SkiTime":      nil,
		"SKITime":      "12:01.4",
		"Ski":          "11:00.0",
	})

	got, ok := rec.First("TotalSkiTime", "SkiTime", "SkiTimeTotal", "SKITime", "Ski")
	if !ok || got != "12:01.4" {
		t.Errorf("First() = %q, %v, want %q, true", got, ok, "12:01.4")
	}

	if _, ok := rec.First("Missing", "TotalSkiTime"); ok {
		t.Error("First() should report false when every key is blank or missing")
	}
}

func TestInt(t *testing.T) {
	rec, err := DecodeObject([]byte(`{"Rank":"7","ResultOrder":12,"Leg":2.0,"Bad":"=","Frac":1.5}`))
	require.NoError(t, err)

	tests := []struct {
		key    string
		want   int
		wantOK bool
	}{
		{"rank", 7, true},
		{"ResultOrder", 12, true},
		{"leg", 2, true},
		{"bad", 0, false},
		{"frac", 0, false},
		{"none", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, ok := rec.Int(tt.key)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Int(%q) = %d, %v, want %d, %v", tt.key, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestBool(t *testing.T) {
	rec := FromMap(map[string]any{
		"IsTeam":    true,
		"IsCurrent": "true",
		"Flag":      "no",
		"Off":       false,
	})
	assert.True(t, rec.Bool("isteam"))
	assert.True(t, rec.Bool("iscurrent"))
	assert.False(t, rec.Bool("flag"))
	assert.False(t, rec.Bool("off"))
	assert.False(t, rec.Bool("missing"))
}
