// Package scopetest provides an in-memory results source for tests.
package scopetest

import (
	"context"
	"fmt"
	"sync"

	"biathlonstats/internal/ibu"
	"biathlonstats/internal/payload"
)

// Source serves canned payloads. Missing entries fail with ibu.ErrUnavailable.
type Source struct {
	SeasonID     string
	SeasonList   []payload.Record
	EventList    []payload.Record
	Comps        map[string][]payload.Record
	ResultData   map[string]string
	AnalyticData map[string]string // keyed by "raceID/typeID"
	CupList      []payload.Record
	CupData      map[string]string

	mu    sync.Mutex
	calls []string
}

// Calls lists the requests served so far, e.g. "results W-SP1".
func (s *Source) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *Source) record(call string) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()
}

func (s *Source) Seasons(ctx context.Context) ([]payload.Record, error) {
	s.record("seasons")
	return s.SeasonList, nil
}

func (s *Source) CurrentSeason(ctx context.Context) (string, error) {
	s.record("season")
	if s.SeasonID == "" {
		return "", fmt.Errorf("%w: no current season", ibu.ErrUnavailable)
	}
	return s.SeasonID, nil
}

func (s *Source) Events(ctx context.Context, seasonID string, level int) ([]payload.Record, error) {
	s.record("events " + seasonID)
	if seasonID != s.SeasonID {
		return nil, nil
	}
	return s.EventList, nil
}

func (s *Source) Competitions(ctx context.Context, eventID string) ([]payload.Record, error) {
	s.record("competitions " + eventID)
	c, ok := s.Comps[eventID]
	if !ok {
		return nil, fmt.Errorf("%w: no event %s", ibu.ErrUnavailable, eventID)
	}
	return c, nil
}

func (s *Source) Results(ctx context.Context, raceID string) (payload.Record, error) {
	s.record("results " + raceID)
	return decode(s.ResultData, raceID)
}

func (s *Source) Analytic(ctx context.Context, raceID, typeID string) (payload.Record, error) {
	s.record("analytic " + raceID + "/" + typeID)
	return decode(s.AnalyticData, raceID+"/"+typeID)
}

func (s *Source) Cups(ctx context.Context, seasonID string) ([]payload.Record, error) {
	s.record("cups " + seasonID)
	return s.CupList, nil
}

func (s *Source) CupResults(ctx context.Context, cupID string) (payload.Record, error) {
	s.record("cup " + cupID)
	return decode(s.CupData, cupID)
}

func decode(m map[string]string, key string) (payload.Record, error) {
	raw, ok := m[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ibu.ErrUnavailable, key)
	}
	return payload.DecodeObject([]byte(raw))
}

// Rec builds a payload record from a literal.
func Rec(m map[string]any) payload.Record { return payload.FromMap(m) }

// Sprints is a women's season with two completed sprints, a sprint whose
// results are missing, one pursuit and a men's race.
func Sprints() *Source {
	return &Source{
		SeasonID: "2526",
		SeasonList: []payload.Record{
			Rec(map[string]any{"SeasonId": "2425", "Description": "2024/2025", "SortOrder": 47}),
			Rec(map[string]any{"SeasonId": "2526", "Description": "2025/2026", "SortOrder": 48, "IsCurrent": true}),
		},
		EventList: []payload.Record{
			Rec(map[string]any{"EventId": "E1", "SeasonId": "2526", "Level": 1, "Description": "BMW IBU World Cup Biathlon Kontiolahti", "ShortDescription": "Kontiolahti", "Nat": "FIN", "StartDate": "2025-11-29", "EndDate": "2025-12-07"}),
			Rec(map[string]any{"EventId": "E2", "SeasonId": "2526", "Level": 1, "Description": "BMW IBU World Cup Biathlon Hochfilzen", "ShortDescription": "Hochfilzen", "Nat": "AUT", "StartDate": "2025-12-12", "EndDate": "2025-12-14"}),
		},
		Comps: map[string][]payload.Record{
			"E1": {
				Rec(map[string]any{"RaceId": "W-SP1", "DisciplineId": "SP", "catId": "SW", "StartTime": "2025-11-29T10:00:00Z", "ShortDescription": "Women 7.5 km Sprint"}),
				Rec(map[string]any{"RaceId": "M-SP1", "DisciplineId": "SP", "catId": "SM", "StartTime": "2025-11-29T13:00:00Z"}),
			},
			"E2": {
				Rec(map[string]any{"RaceId": "W-SP2", "DisciplineId": "SP", "catId": "SW", "StartTime": "2025-12-12T10:00:00Z", "ShortDescription": "Women 7.5 km Sprint"}),
				Rec(map[string]any{"RaceId": "W-PU2", "DisciplineId": "PU", "catId": "SW", "StartTime": "2025-12-13T10:00:00Z", "ShortDescription": "Women 10 km Pursuit"}),
				Rec(map[string]any{"RaceId": "W-SP3", "DisciplineId": "SP", "catId": "SW", "StartTime": "2025-12-14T10:00:00Z", "ShortDescription": "Women 7.5 km Sprint"}),
			},
		},
		ResultData: map[string]string{
			"W-SP1": `{"Competition":{"catId":"SW","DisciplineId":"SP"},"Results":[
				{"IBUId":"A","Name":"Alma","Nat":"NOR","Rank":"1","Result":"20:00.0","Shootings":"1+1","ShootingTotal":"2"},
				{"IBUId":"B","Name":"Beth","Nat":"SWE","Rank":"2","Result":"+10.0","Shootings":"0+0","ShootingTotal":"0"},
				{"IBUId":"C","Name":"Cara","Nat":"NOR","Rank":"3","Result":"+1:00.0","Shootings":"0+1","ShootingTotal":"1"}]}`,
			"W-SP2": `{"Competition":{"catId":"SW","DisciplineId":"SP"},"Results":[
				{"IBUId":"A","Name":"Alma","Nat":"NOR","Rank":"1","Result":"20:05.0","Shootings":"0+0","ShootingTotal":"0"},
				{"IBUId":"B","Name":"Beth","Nat":"SWE","Rank":"2","Result":"+15.0","Shootings":"1+0","ShootingTotal":"1"}]}`,
			"W-PU2": `{"Competition":{"catId":"SW","DisciplineId":"PU"},"Results":[
				{"IBUId":"B","Name":"Beth","Nat":"SWE","Rank":"1","Result":"30:00.0","StartOrder":"2","StartInfo":"+10.0"},
				{"IBUId":"A","Name":"Alma","Nat":"NOR","Rank":"2","Result":"+5.0","StartOrder":"1","StartInfo":"0.0"},
				{"IBUId":"C","Name":"Cara","Nat":"NOR","Result":"DNS","IRM":"DNS","StartOrder":"3"}]}`,
		},
		AnalyticData: map[string]string{},
		CupList: []payload.Record{
			Rec(map[string]any{"CupId": "SW-TS", "CatId": "SW", "Level": 1, "DisciplineId": "TS"}),
			Rec(map[string]any{"CupId": "SW-SP", "CatId": "SW", "Level": 1, "DisciplineId": "SP"}),
			Rec(map[string]any{"CupId": "SW-PU", "CatId": "SW", "Level": 1, "DisciplineId": "PU"}),
		},
		CupData: map[string]string{
			"SW-TS": `{"Rows":[
				{"IBUId":"B","Name":"Beth","Nat":"SWE","Rank":"1","Score":"250"},
				{"IBUId":"A","Name":"Alma","Nat":"NOR","Rank":"2","Score":"240"},
				{"IBUId":"C","Name":"Cara","Nat":"NOR","Rank":"3","Score":"43"}]}`,
			"SW-SP": `{"Rows":[
				{"IBUId":"A","Name":"Alma","Rank":"1","Score":"180"},
				{"IBUId":"B","Name":"Beth","Rank":"2","Score":"150"},
				{"IBUId":"C","Name":"Cara","Rank":"3","Score":"43"}]}`,
			"SW-PU": `{"Rows":[
				{"IBUId":"B","Name":"Beth","Rank":"1","Score":"100"},
				{"IBUId":"A","Name":"Alma","Rank":"2","Score":"60"}]}`,
		},
	}
}
