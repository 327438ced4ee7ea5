// Package healthstore defines the host health data store the exporter reads.
package healthstore

import (
	"context"
	"errors"

	"github.com/brk3/healthdata/pkg/activity"
)

// ErrIncompleteDate is returned by stores that cannot key a summary by its
// day, either because a component is missing or the year is out of range.
var ErrIncompleteDate = errors.New("summary date components incomplete")

type Category string

const (
	ActivitySummary    Category = "activity_summary"
	ActiveEnergyBurned Category = "active_energy_burned"
	ExerciseTime       Category = "exercise_time"
	StandHour          Category = "stand_hour"
)

// ReadCategories is the fixed set of record types the exporter asks to read.
var ReadCategories = []Category{
	ActivitySummary,
	ActiveEnergyBurned,
	ExerciseTime,
	StandHour,
}

func ValidCategory(c Category) bool {
	switch c {
	case ActivitySummary, ActiveEnergyBurned, ExerciseTime, StandHour:
		return true
	}
	return false
}

// Store is a read-only view of a host health store.
//
// A store asks for read permission at most once per profile and remembers the
// answer. While activity summaries are not readable, ActivitySummaries returns
// an empty result rather than an error.
type Store interface {
	RequestAuthorization(ctx context.Context, categories []Category) (bool, error)
	ActivitySummaries(ctx context.Context, days activity.DayRange) ([]activity.Summary, error)
	Close() error
}

// Prompter shows the permission prompt to the user.
type Prompter interface {
	Confirm(ctx context.Context, categories []Category) (bool, error)
}

type PrompterFunc func(ctx context.Context, categories []Category) (bool, error)

func (f PrompterFunc) Confirm(ctx context.Context, categories []Category) (bool, error) {
	return f(ctx, categories)
}

// StaticPrompter answers every prompt with granted.
func StaticPrompter(granted bool) Prompter {
	return PrompterFunc(func(context.Context, []Category) (bool, error) {
		return granted, nil
	})
}
