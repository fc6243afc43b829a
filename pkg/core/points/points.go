// Package points computes volunteer points, levels and ranks.
//
// All functions are pure: callers persist the returned record.
package points

import "github.com/jakechorley/helping-hands/pkg/core/model"

const (
	// PointsPerBlock is awarded for every full BlockMinutes of estimated task duration
	PointsPerBlock = 10
	BlockMinutes   = 30

	// ReassignmentPenalty is deducted from a volunteer removed from a task
	ReassignmentPenalty = 20

	PointsPerLevel = 500
)

const (
	RankMaster   = "Master Volunteer"
	RankExpert   = "Expert Volunteer"
	RankSenior   = "Senior Volunteer"
	RankRegular  = "Regular Volunteer"
	RankNewcomer = "Newcomer"
)

// NewRecord returns a zero-points record with level and rank populated
func NewRecord(userID string) model.UserPointsRecord {
	return recompute(model.UserPointsRecord{UserID: userID})
}

// AwardFor returns the points and whole hours credited for a completed task
func AwardFor(durationMinutes int) (points, hours int) {
	return (durationMinutes / BlockMinutes) * PointsPerBlock, durationMinutes / 60
}

// CompleteTask credits a completed task of the given estimated duration
func CompleteTask(rec model.UserPointsRecord, durationMinutes int) model.UserPointsRecord {
	awarded, hours := AwardFor(durationMinutes)
	rec.TasksCompleted++
	rec.HoursVolunteered += hours
	rec.Points += awarded
	return recompute(rec)
}

// ReassignPenalty applies the fixed penalty for being removed from a task
func ReassignPenalty(rec model.UserPointsRecord) model.UserPointsRecord {
	rec.TasksReassigned++
	rec.Points -= ReassignmentPenalty
	return recompute(rec)
}

// LevelFor returns 1 + floor(points / 500). Negative balances floor towards minus infinity.
func LevelFor(points int) int {
	q := points / PointsPerLevel
	if points%PointsPerLevel != 0 && points < 0 {
		q--
	}
	return 1 + q
}

// RankFor maps a level to its rank label
func RankFor(level int) string {
	switch {
	case level >= 10:
		return RankMaster
	case level >= 7:
		return RankExpert
	case level >= 5:
		return RankSenior
	case level >= 3:
		return RankRegular
	default:
		return RankNewcomer
	}
}

func recompute(rec model.UserPointsRecord) model.UserPointsRecord {
	rec.Level = LevelFor(rec.Points)
	rec.Rank = RankFor(rec.Level)
	return rec
}
