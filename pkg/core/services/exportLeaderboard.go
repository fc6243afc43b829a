package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/leaderboard"
)

const leaderboardSheet = "Leaderboard"

var xlsxHeaders = []string{
	"Position", "Volunteer", "Username", "Points", "Level", "Rank",
	"Tasks completed", "Tasks reassigned", "Hours volunteered",
}

// ExportLeaderboardXLSX writes the top n volunteers (all when n <= 0) as an Excel workbook to w
func ExportLeaderboardXLSX(
	ctx context.Context,
	store leaderboard.Store,
	n int,
	w io.Writer,
	logger *zap.Logger,
	now time.Time,
) ([]leaderboard.Entry, error) {
	entries, err := leaderboard.TopN(ctx, store, n)
	if err != nil {
		return nil, err
	}

	f, err := buildLeaderboardWorkbook(entries, now)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.Info("Exported leaderboard", zap.Int("entries", len(entries)))
	return entries, nil
}

func buildLeaderboardWorkbook(entries []leaderboard.Entry, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(leaderboardSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if f.GetSheetName(0) != leaderboardSheet {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to remove default sheet: %w", err)
		}
	}

	if err := f.SetCellValue(leaderboardSheet, "A1", "Updated "+now.UTC().Format("Mon Jan 02 2006 15:04 MST")); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write title: %w", err)
	}

	header := make([]interface{}, len(xlsxHeaders))
	for i, h := range xlsxHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(leaderboardSheet, "A3", &header); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(leaderboardSheet, 3, 3, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	for i, e := range entries {
		row := []interface{}{
			e.Position, e.User.DisplayName(), e.User.Username, e.Points, e.Level, e.Rank,
			e.TasksCompleted, e.TasksReassigned, e.HoursVolunteered,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+4)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(leaderboardSheet, cell, &row); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	f.SetColWidth(leaderboardSheet, "A", "A", 10)
	f.SetColWidth(leaderboardSheet, "B", "C", 24)
	f.SetColWidth(leaderboardSheet, "D", "I", 16)

	return f, nil
}
