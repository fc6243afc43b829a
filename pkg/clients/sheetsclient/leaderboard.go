package sheetsclient

import (
	"fmt"
	"time"
)

// LeaderboardRow is one volunteer line of a published leaderboard
type LeaderboardRow struct {
	Position         int
	Name             string
	Points           int
	Level            int
	Rank             string
	TasksCompleted   int
	HoursVolunteered int
}

var leaderboardHeader = []interface{}{"Position", "Volunteer", "Points", "Level", "Rank", "Tasks completed", "Hours volunteered"}

// PublishLeaderboard overwrites the tab with the given rows, creating the tab if needed
func (c *Client) PublishLeaderboard(spreadsheetID, tab string, rows []LeaderboardRow, generatedAt time.Time) error {
	exists, err := c.HasSheet(spreadsheetID, tab)
	if err != nil {
		return err
	}
	if !exists {
		if _, err := c.CreateSheet(spreadsheetID, tab); err != nil {
			return fmt.Errorf("failed to create tab: %w", err)
		}
	}

	return c.ReplaceValues(spreadsheetID, tab, LeaderboardValues(rows, generatedAt))
}

// LeaderboardValues lays out a title row, a blank row, the header and then one row per volunteer
func LeaderboardValues(rows []LeaderboardRow, generatedAt time.Time) [][]interface{} {
	values := make([][]interface{}, 0, len(rows)+3)
	values = append(values,
		[]interface{}{fmt.Sprintf("Updated %s", generatedAt.UTC().Format("Mon Jan 02 2006 15:04 MST"))},
		[]interface{}{},
		leaderboardHeader,
	)
	for _, r := range rows {
		values = append(values, []interface{}{
			r.Position, r.Name, r.Points, r.Level, r.Rank, r.TasksCompleted, r.HoursVolunteered,
		})
	}
	return values
}
