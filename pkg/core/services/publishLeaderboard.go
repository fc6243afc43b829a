package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/internal/config"
	"github.com/jakechorley/helping-hands/pkg/clients/sheetsclient"
	"github.com/jakechorley/helping-hands/pkg/core/leaderboard"
)

// LeaderboardPublisher defines the sheets operation needed to publish the leaderboard
type LeaderboardPublisher interface {
	PublishLeaderboard(spreadsheetID, tab string, rows []sheetsclient.LeaderboardRow, generatedAt time.Time) error
}

// PublishLeaderboard writes the current top volunteers to the configured spreadsheet tab
func PublishLeaderboard(
	ctx context.Context,
	store leaderboard.Store,
	publisher LeaderboardPublisher,
	cfg *config.Config,
	logger *zap.Logger,
	now time.Time,
) ([]leaderboard.Entry, error) {
	if cfg.Leaderboard.SheetID == "" {
		return nil, fmt.Errorf("leaderboard.sheetID is not configured")
	}

	entries, err := leaderboard.TopN(ctx, store, cfg.Leaderboard.Size)
	if err != nil {
		return nil, err
	}
	logger.Debug("Built leaderboard", zap.Int("entries", len(entries)))

	if err := publisher.PublishLeaderboard(cfg.Leaderboard.SheetID, cfg.Leaderboard.Tab, leaderboardRows(entries), now); err != nil {
		return nil, fmt.Errorf("failed to publish leaderboard: %w", err)
	}

	logger.Info("Published leaderboard",
		zap.String("sheet_id", cfg.Leaderboard.SheetID),
		zap.String("tab", cfg.Leaderboard.Tab),
		zap.Int("entries", len(entries)))
	return entries, nil
}

func leaderboardRows(entries []leaderboard.Entry) []sheetsclient.LeaderboardRow {
	rows := make([]sheetsclient.LeaderboardRow, len(entries))
	for i, e := range entries {
		rows[i] = sheetsclient.LeaderboardRow{
			Position:         e.Position,
			Name:             e.User.DisplayName(),
			Points:           e.Points,
			Level:            e.Level,
			Rank:             e.Rank,
			TasksCompleted:   e.TasksCompleted,
			HoursVolunteered: e.HoursVolunteered,
		}
	}
	return rows
}
