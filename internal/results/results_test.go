package results

import (
	"testing"

	"biathlonstats/internal/payload"
	"biathlonstats/internal/racetime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, raw string) payload.Record {
	t.Helper()
	rec, err := payload.DecodeObject([]byte(raw))
	require.NoError(t, err)
	return rec
}

func TestExtract_SortsAndDropsTeams(t *testing.T) {
	rec := mustDecode(t, `{
		"Results": [
			{"IBUId":"C","Name":"Carla","Rank":"3","ResultOrder":3},
			{"IBUId":"X","Name":"NOR","IsTeam":true,"Rank":"1","ResultOrder":1},
			{"IBUId":"Z","Name":"Zoe","Rank":"","ResultOrder":9,"IRM":"DNS"},
			{"IBUId":"A","Name":"Anna","Rank":"1","ResultOrder":1},
			{"IBUId":"Y","Name":"Yara","Rank":"DNF","ResultOrder":8},
			{"IBUId":"B","Name":"Bea","Rank":2,"ResultOrder":2}
		]
	}`)

	rows := Extract(rec, Options{})
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"A", "B", "C", "Y", "Z"}, ids)

	withTeams := Extract(rec, Options{IncludeTeams: true})
	assert.Len(t, withTeams, 6)
}

func TestExtract_ListFallback(t *testing.T) {
	rec := mustDecode(t, `{"Results":[],"ResultList":[{"Name":"Anna","Rank":"1"}]}`)
	rows := Extract(rec, Options{})
	require.Len(t, rows, 1)
	assert.Equal(t, "Anna", rows[0].Name)

	if got := Extract(mustDecode(t, `{"Competition":{}}`), Options{}); got != nil {
		t.Errorf("Extract() without list = %v, want nil", got)
	}
}

func TestRow_StatusAndFinish(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		status   string
		finished bool
	}{
		{"normal", `{"Rank":"4","Result":"24:15.3","IRM":"OK"}`, "", true},
		{"irm", `{"Rank":"","IRM":"dnf"}`, "DNF", false},
		{"result-dns", `{"Result":"DNS"}`, "DNS", false},
		{"placeholder", `{"Rank":"10000","Result":"25:00.0"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := FromRecord(mustDecode(t, tt.raw))
			if row.Status() != tt.status {
				t.Errorf("Status() = %q, want %q", row.Status(), tt.status)
			}
			if row.Finished() != tt.finished {
				t.Errorf("Finished() = %v, want %v", row.Finished(), tt.finished)
			}
		})
	}
}

func TestFromRecord_StartOrderFallback(t *testing.T) {
	row := FromRecord(mustDecode(t, `{"StartPosition":"7","StartInfo":"+0:35"}`))
	if !row.HasStartOrder || row.StartOrder != 7 {
		t.Errorf("StartOrder = %d, %v, want 7, true", row.StartOrder, row.HasStartOrder)
	}
	assert.Equal(t, "+0:35", row.StartDelay)
}

func TestLeaderTime(t *testing.T) {
	rows := Extract(mustDecode(t, `{"Results":[
		{"Rank":"1","TotalTime":"","Result":"DNS"},
		{"Rank":"2","TotalTime":"24:15.3","Result":"24:15.3"},
		{"Rank":"3","Result":"+12.1"}
	]}`), Options{})

	got := LeaderTime(rows)
	if racetime.Format(got) != "24:15.3" {
		t.Errorf("LeaderTime() = %s, want 24:15.3", racetime.Format(got))
	}

	if LeaderTime(rows[2:]).Measurable() {
		t.Error("relative-only rows must not yield a leader time")
	}
}

func TestHasCompletedResults(t *testing.T) {
	done := Extract(mustDecode(t, `{"Results":[{"Rank":"1"}]}`), Options{})
	pending := Extract(mustDecode(t, `{"Results":[{"Rank":"10000"},{"Rank":""}]}`), Options{})
	assert.True(t, HasCompletedResults(done))
	assert.False(t, HasCompletedResults(pending))
}
