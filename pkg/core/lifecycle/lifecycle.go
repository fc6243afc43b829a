// Package lifecycle implements the task state machine: assignment, the two-sided
// confirmation handshake, reassignment and cancellation, together with the points
// bookkeeping each transition triggers.
//
// Every transition runs inside a single store transaction. The task row is updated
// with a compare-and-swap on its status, so of two racing callers only one wins and
// the other receives a *model.ConflictError.
package lifecycle

import (
	"context"
	"errors"
	"slices"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/points"
	"github.com/jakechorley/helping-hands/pkg/db"
)

// DefaultMaxOccurrences caps how many tasks a recurring series may create
const DefaultMaxOccurrences = 52

// Lifecycle applies task transitions against a Database
type Lifecycle struct {
	database       db.Database
	logger         *zap.Logger
	validate       *validator.Validate
	maxOccurrences int
}

// Option configures a Lifecycle
type Option func(*Lifecycle)

// WithMaxOccurrences overrides the cap on recurring series size
func WithMaxOccurrences(n int) Option {
	return func(l *Lifecycle) {
		if n > 0 {
			l.maxOccurrences = n
		}
	}
}

// New creates a Lifecycle
func New(database db.Database, logger *zap.Logger, opts ...Option) *Lifecycle {
	l := &Lifecycle{
		database:       database,
		logger:         logger,
		validate:       validator.New(),
		maxOccurrences: DefaultMaxOccurrences,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Get returns a task by id
func (l *Lifecycle) Get(ctx context.Context, taskID string) (*model.Task, error) {
	return l.database.GetTask(ctx, taskID)
}

// Assign gives an available task to a volunteer
func (l *Lifecycle) Assign(ctx context.Context, taskID, volunteerID string, opts ...TransitionOption) (*model.Task, error) {
	return l.apply(ctx, taskID, opts, transition{
		op:      "assign",
		actorID: volunteerID,
		role:    model.RoleVolunteer,
		from:    []model.TaskStatus{model.StatusAvailable},
		mutate: func(t *model.Task) error {
			t.VolunteerID = volunteerID
			t.Status = model.StatusAssigned
			return nil
		},
	})
}

// MarkInProgress records that the assigned volunteer has started the task
func (l *Lifecycle) MarkInProgress(ctx context.Context, taskID, volunteerID string, opts ...TransitionOption) (*model.Task, error) {
	return l.apply(ctx, taskID, opts, transition{
		op:      "start",
		actorID: volunteerID,
		role:    model.RoleVolunteer,
		from:    []model.TaskStatus{model.StatusAssigned},
		mutate: func(t *model.Task) error {
			if err := requireVolunteer(t, volunteerID); err != nil {
				return err
			}
			t.Status = model.StatusInProgress
			return nil
		},
	})
}

// VolunteerConfirm records the volunteer's side of the completion handshake.
// The task completes, and points are awarded, if the requester already confirmed.
func (l *Lifecycle) VolunteerConfirm(ctx context.Context, taskID, volunteerID string, opts ...TransitionOption) (*model.Task, error) {
	return l.apply(ctx, taskID, opts, transition{
		op:      "volunteer-confirm",
		actorID: volunteerID,
		role:    model.RoleVolunteer,
		from: []model.TaskStatus{
			model.StatusAssigned,
			model.StatusInProgress,
			model.StatusPendingVolunteerConfirmation,
		},
		mutate: func(t *model.Task) error {
			if err := requireVolunteer(t, volunteerID); err != nil {
				return err
			}
			t.VolunteerConfirmed = true
			if t.ElderlyConfirmed {
				t.Status = model.StatusCompleted
			} else {
				t.Status = model.StatusPendingElderlyConfirmation
			}
			return nil
		},
		after: l.awardOnCompletion,
	})
}

// ElderlyConfirm records the requester's side of the completion handshake.
// The task completes, and points are awarded, if the volunteer already confirmed.
func (l *Lifecycle) ElderlyConfirm(ctx context.Context, taskID, requesterID string, opts ...TransitionOption) (*model.Task, error) {
	return l.apply(ctx, taskID, opts, transition{
		op:      "elderly-confirm",
		actorID: requesterID,
		role:    model.RoleElderly,
		from: []model.TaskStatus{
			model.StatusAssigned,
			model.StatusInProgress,
			model.StatusPendingElderlyConfirmation,
		},
		mutate: func(t *model.Task) error {
			if err := requireRequester(t, requesterID); err != nil {
				return err
			}
			t.ElderlyConfirmed = true
			if t.VolunteerConfirmed {
				t.Status = model.StatusCompleted
			} else {
				t.Status = model.StatusPendingVolunteerConfirmation
			}
			return nil
		},
		after: l.awardOnCompletion,
	})
}

// Reassign removes the current volunteer, returning the task to AVAILABLE and
// penalizing the removed volunteer
func (l *Lifecycle) Reassign(ctx context.Context, taskID, requesterID, reason string, opts ...TransitionOption) (*model.Task, error) {
	return l.apply(ctx, taskID, opts, transition{
		op:      "reassign",
		actorID: requesterID,
		role:    model.RoleElderly,
		from: []model.TaskStatus{
			model.StatusAssigned,
			model.StatusInProgress,
			model.StatusPendingVolunteerConfirmation,
			model.StatusPendingElderlyConfirmation,
		},
		mutate: func(t *model.Task) error {
			if err := requireRequester(t, requesterID); err != nil {
				return err
			}
			if !t.HasVolunteer() {
				return &model.ConflictError{TaskID: t.ID, Op: "reassign", Status: t.Status, Reason: "no volunteer assigned"}
			}
			t.PreviousVolunteerID = t.VolunteerID
			t.VolunteerID = ""
			t.VolunteerConfirmed = false
			t.ElderlyConfirmed = false
			t.ReassignmentReason = reason
			t.Status = model.StatusAvailable
			return nil
		},
		// The removed volunteer is read from the row the update locked
		after: func(ctx context.Context, tx db.Database, _, after *model.Task) error {
			_, err := tx.UpdatePoints(ctx, after.PreviousVolunteerID, points.ReassignPenalty)
			if err != nil {
				return err
			}
			l.logger.Info("Reassignment penalty applied",
				zap.String("task_id", after.ID),
				zap.String("volunteer_id", after.PreviousVolunteerID),
				zap.Int("penalty", points.ReassignmentPenalty))
			return nil
		},
	})
}

// Cancel withdraws a task that has not completed
func (l *Lifecycle) Cancel(ctx context.Context, taskID, requesterID string, opts ...TransitionOption) (*model.Task, error) {
	return l.apply(ctx, taskID, opts, transition{
		op:      "cancel",
		actorID: requesterID,
		role:    model.RoleElderly,
		from: []model.TaskStatus{
			model.StatusAvailable,
			model.StatusAssigned,
			model.StatusInProgress,
			model.StatusPendingVolunteerConfirmation,
			model.StatusPendingElderlyConfirmation,
			model.StatusCancelled,
		},
		mutate: func(t *model.Task) error {
			if err := requireRequester(t, requesterID); err != nil {
				return err
			}
			if t.HasVolunteer() {
				t.PreviousVolunteerID = t.VolunteerID
			}
			t.VolunteerID = ""
			t.VolunteerConfirmed = false
			t.ElderlyConfirmed = false
			t.Status = model.StatusCancelled
			return nil
		},
	})
}

// Delete removes an AVAILABLE or CANCELLED task
func (l *Lifecycle) Delete(ctx context.Context, taskID, requesterID string) error {
	deletable := []model.TaskStatus{model.StatusAvailable, model.StatusCancelled}

	err := l.database.WithTx(ctx, func(tx db.Database) error {
		if _, err := l.actor(ctx, tx, requesterID, model.RoleElderly); err != nil {
			return err
		}
		task, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if err := requireRequester(task, requesterID); err != nil {
			return err
		}
		if !slices.Contains(deletable, task.Status) {
			return &model.ConflictError{TaskID: taskID, Op: "delete", Status: task.Status}
		}
		deleted, err := tx.DeleteTaskIf(ctx, taskID, deletable...)
		if err != nil {
			return err
		}
		if !deleted {
			return &model.ConflictError{TaskID: taskID, Op: "delete", Status: task.Status, Reason: "task changed concurrently"}
		}
		return nil
	})
	if err != nil {
		l.logFailure("delete", taskID, requesterID, err)
		return err
	}

	l.logger.Info("Task deleted", zap.String("task_id", taskID), zap.String("requester_id", requesterID))
	return nil
}

// TransitionOption adjusts a single transition call
type TransitionOption func(*transition)

// ExpectStatus rejects the transition with a *model.ConflictError unless the task
// is in status when the transaction reads it. The status compare-and-swap then
// holds the update to that same status.
func ExpectStatus(status model.TaskStatus) TransitionOption {
	return func(tr *transition) {
		tr.expected = status
	}
}

// transition describes one state machine edge
type transition struct {
	op       string
	actorID  string
	role     model.Role
	from     []model.TaskStatus
	expected model.TaskStatus
	// mutate runs against the locked row; it re-checks actor ownership on fresh data
	mutate func(t *model.Task) error
	after  func(ctx context.Context, tx db.Database, before, after *model.Task) error
}

func (l *Lifecycle) apply(ctx context.Context, taskID string, opts []TransitionOption, tr transition) (*model.Task, error) {
	for _, opt := range opts {
		opt(&tr)
	}
	var result *model.Task

	err := l.database.WithTx(ctx, func(tx db.Database) error {
		if _, err := l.actor(ctx, tx, tr.actorID, tr.role); err != nil {
			return err
		}

		current, err := tx.GetTask(ctx, taskID)
		if err != nil {
			return err
		}
		if tr.expected != "" && current.Status != tr.expected {
			return &model.ConflictError{TaskID: taskID, Op: tr.op, Status: current.Status,
				Reason: "expected status " + string(tr.expected)}
		}
		if !slices.Contains(tr.from, current.Status) {
			return &model.ConflictError{TaskID: taskID, Op: tr.op, Status: current.Status}
		}
		before := *current

		updated, err := tx.UpdateTaskIf(ctx, taskID, current.Status, func(t *model.Task) error {
			if err := tr.mutate(t); err != nil {
				return err
			}
			return t.CheckInvariants()
		})
		if err != nil {
			return err
		}

		if tr.after != nil {
			if err := tr.after(ctx, tx, &before, updated); err != nil {
				return err
			}
		}
		result = updated
		return nil
	})
	if err != nil {
		l.logFailure(tr.op, taskID, tr.actorID, err)
		return nil, err
	}

	l.logger.Info("Task transition applied",
		zap.String("op", tr.op),
		zap.String("task_id", taskID),
		zap.String("actor_id", tr.actorID),
		zap.String("status", string(result.Status)))

	return result, nil
}

// awardOnCompletion credits the volunteer exactly when the task enters COMPLETED
func (l *Lifecycle) awardOnCompletion(ctx context.Context, tx db.Database, before, after *model.Task) error {
	if before.Status == model.StatusCompleted || after.Status != model.StatusCompleted {
		return nil
	}

	rec, err := tx.UpdatePoints(ctx, after.VolunteerID, func(rec model.UserPointsRecord) model.UserPointsRecord {
		return points.CompleteTask(rec, after.EstimatedDurationMinutes)
	})
	if err != nil {
		return err
	}

	awarded, hours := points.AwardFor(after.EstimatedDurationMinutes)
	l.logger.Info("Points awarded for completed task",
		zap.String("task_id", after.ID),
		zap.String("volunteer_id", after.VolunteerID),
		zap.Int("points_awarded", awarded),
		zap.Int("hours_credited", hours),
		zap.Int("total_points", rec.Points),
		zap.String("rank", rec.Rank))
	return nil
}

// actor loads a user and checks their role
func (l *Lifecycle) actor(ctx context.Context, tx db.Database, userID string, role model.Role) (*model.User, error) {
	if userID == "" {
		return nil, &model.ValidationError{Field: "actor", Reason: "actor id is required"}
	}
	user, err := tx.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != role {
		return nil, &model.ValidationError{Field: "actor", Reason: "user " + userID + " is not a " + string(role) + " user"}
	}
	return user, nil
}

func (l *Lifecycle) logFailure(op, taskID, actorID string, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("task_id", taskID),
		zap.String("actor_id", actorID),
		zap.Error(err),
	}
	var conflict *model.ConflictError
	if errors.As(err, &conflict) {
		l.logger.Info("Task transition rejected", fields...)
		return
	}
	l.logger.Warn("Task transition failed", fields...)
}

func requireVolunteer(t *model.Task, volunteerID string) error {
	if t.VolunteerID != volunteerID {
		return &model.ValidationError{Field: "volunteer", Reason: "volunteer " + volunteerID + " is not assigned to task " + t.ID}
	}
	return nil
}

func requireRequester(t *model.Task, requesterID string) error {
	if t.RequesterID != requesterID {
		return &model.ValidationError{Field: "requester", Reason: "user " + requesterID + " did not create task " + t.ID}
	}
	return nil
}
