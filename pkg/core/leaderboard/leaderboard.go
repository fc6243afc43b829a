// Package leaderboard ranks volunteers by points.
package leaderboard

import (
	"context"
	"fmt"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// Entry is one row of the leaderboard
type Entry struct {
	Position         int
	User             model.User
	Points           int
	TasksCompleted   int
	TasksReassigned  int
	HoursVolunteered int
	Level            int
	Rank             string
}

// Store defines the database operations needed to build the leaderboard
type Store interface {
	QueryVolunteersByPoints(ctx context.Context, limit int) ([]db.VolunteerPoints, error)
}

// TopN returns the n best volunteers, or all of them when n <= 0.
// Ordering is points desc, tasks completed desc, then user id asc. Each call reads fresh data.
func TopN(ctx context.Context, store Store, n int) ([]Entry, error) {
	if n < 0 {
		n = 0
	}

	rows, err := store.QueryVolunteersByPoints(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query volunteer points: %w", err)
	}

	db.SortVolunteerPoints(rows)
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}

	entries := make([]Entry, len(rows))
	for i, row := range rows {
		entries[i] = Entry{
			Position:         i + 1,
			User:             row.User,
			Points:           row.Points.Points,
			TasksCompleted:   row.Points.TasksCompleted,
			TasksReassigned:  row.Points.TasksReassigned,
			HoursVolunteered: row.Points.HoursVolunteered,
			Level:            row.Points.Level,
			Rank:             row.Points.Rank,
		}
	}
	return entries, nil
}
