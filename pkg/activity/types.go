package activity

import (
	"encoding/json"
	"fmt"
	"math"
)

// Summary is a host store's daily aggregate of the three ring metrics.
type Summary struct {
	Components         DateComponents `json:"date_components"`
	ActiveEnergyBurned Quantity       `json:"active_energy_burned"`
	ExerciseTime       Quantity       `json:"exercise_time"`
	StandHours         Quantity       `json:"stand_hours"`
}

// Entry is the flat record published for one summary. Absent fields are
// omitted from the encoded object rather than written as null.
type Entry struct {
	Date     *string `json:"date,omitempty"`
	Move     *int    `json:"move,omitempty"`
	Exercise *int    `json:"exercise,omitempty"`
	Stand    *int    `json:"stand,omitempty"`
}

// Project maps s to an Entry. It reports false when s lacks any of its day,
// month or year components.
func Project(s Summary) (Entry, bool) {
	d, ok := s.Components.Date()
	if !ok {
		return Entry{}, false
	}
	date := d.String()
	return Entry{
		Date:     &date,
		Move:     truncated(s.ActiveEnergyBurned, Kilocalorie),
		Exercise: truncated(s.ExerciseTime, Minute),
		Stand:    truncated(s.StandHours, Count),
	}, true
}

// ProjectAll keeps the order of summaries and skips the ones Project rejects.
func ProjectAll(summaries []Summary) []Entry {
	out := make([]Entry, 0, len(summaries))
	for _, s := range summaries {
		if e, ok := Project(s); ok {
			out = append(out, e)
		}
	}
	return out
}

func truncated(q Quantity, u Unit) *int {
	v, err := q.In(u)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	n := int(math.Trunc(v))
	return &n
}

// Encode renders entries as indented JSON. A nil or empty slice encodes as [].
func Encode(entries []Entry) (string, error) {
	if entries == nil {
		entries = []Entry{}
	}
	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode entries: %w", err)
	}
	return string(raw), nil
}

func Decode(text string) ([]Entry, error) {
	entries := []Entry{}
	if err := json.Unmarshal([]byte(text), &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}
