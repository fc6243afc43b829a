package api

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jakechorley/helping-hands/pkg/core/leaderboard"
	"github.com/jakechorley/helping-hands/pkg/core/lifecycle"
	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/services"
)

func (s *Server) registerUser(c *fiber.Ctx) error {
	var req userRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := services.RegisterUser(c.UserContext(), s.database, services.NewUser{
		ID:        req.ID,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Role:      req.Role,
	}, s.logger)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toUserResponse(user))
}

func (s *Server) getUser(c *fiber.Ctx) error {
	user, err := s.database.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toUserResponse(user))
}

func (s *Server) createTask(c *fiber.Ctx) error {
	var req createTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	task, err := s.lifecycle.Create(c.UserContext(), req.toNewTask())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toTaskResponse(task))
}

func (s *Server) createSeries(c *fiber.Ctx) error {
	var req createSeriesRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tasks, err := s.lifecycle.CreateSeries(c.UserContext(), req.toNewTask(), req.RRule, req.Count)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toTaskResponses(tasks))
}

func (r createTaskRequest) toNewTask() lifecycle.NewTask {
	return lifecycle.NewTask{
		RequesterID:              r.RequesterID,
		Title:                    r.Title,
		Description:              r.Description,
		Location:                 r.Location,
		ScheduledAt:              r.ScheduledAt,
		EstimatedDurationMinutes: r.EstimatedDurationMinutes,
	}
}

func (s *Server) getTask(c *fiber.Ctx) error {
	task, err := s.lifecycle.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(toTaskResponse(task))
}

// listTasks serves exactly one catalog view, chosen by query parameter
func (s *Server) listTasks(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var (
		tasks []model.Task
		err   error
	)
	switch {
	case c.Query("requester") != "":
		tasks, err = s.catalog.ByRequester(ctx, c.Query("requester"))
	case c.Query("volunteer") != "":
		tasks, err = s.catalog.ByVolunteer(ctx, c.Query("volunteer"))
	case c.Query("awaiting") == "true":
		tasks, err = s.catalog.AwaitingConfirmation(ctx)
	case c.Query("available") == "true":
		tasks, err = s.catalog.Available(ctx)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "one of available=true, awaiting=true, requester or volunteer is required")
	}
	if err != nil {
		return err
	}
	return c.JSON(toTaskResponses(tasks))
}

func (s *Server) deleteTask(c *fiber.Ctx) error {
	actorID := c.Query("actorId")
	if actorID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "actorId is required")
	}
	if err := s.lifecycle.Delete(c.UserContext(), c.Params("id"), actorID); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type transitionFunc func(ctx context.Context, taskID string, req actionRequest, opts ...lifecycle.TransitionOption) (*model.Task, error)

// transitionHandler parses the action body and applies fn. An expectedStatus is
// enforced by the lifecycle inside the same transaction as the update.
func (s *Server) transitionHandler(fn transitionFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req actionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if req.ActorID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "actorId is required")
		}

		var opts []lifecycle.TransitionOption
		if req.ExpectedStatus != "" {
			expected, err := model.ParseTaskStatus(req.ExpectedStatus)
			if err != nil {
				return err
			}
			opts = append(opts, lifecycle.ExpectStatus(expected))
		}

		task, err := fn(c.UserContext(), c.Params("id"), req, opts...)
		if err != nil {
			return err
		}
		return c.JSON(toTaskResponse(task))
	}
}

func (s *Server) assignTask(c *fiber.Ctx) error {
	return s.transitionHandler(func(ctx context.Context, id string, req actionRequest, opts ...lifecycle.TransitionOption) (*model.Task, error) {
		return s.lifecycle.Assign(ctx, id, req.ActorID, opts...)
	})(c)
}

func (s *Server) startTask(c *fiber.Ctx) error {
	return s.transitionHandler(func(ctx context.Context, id string, req actionRequest, opts ...lifecycle.TransitionOption) (*model.Task, error) {
		return s.lifecycle.MarkInProgress(ctx, id, req.ActorID, opts...)
	})(c)
}

func (s *Server) volunteerConfirm(c *fiber.Ctx) error {
	return s.transitionHandler(func(ctx context.Context, id string, req actionRequest, opts ...lifecycle.TransitionOption) (*model.Task, error) {
		return s.lifecycle.VolunteerConfirm(ctx, id, req.ActorID, opts...)
	})(c)
}

func (s *Server) elderlyConfirm(c *fiber.Ctx) error {
	return s.transitionHandler(func(ctx context.Context, id string, req actionRequest, opts ...lifecycle.TransitionOption) (*model.Task, error) {
		return s.lifecycle.ElderlyConfirm(ctx, id, req.ActorID, opts...)
	})(c)
}

func (s *Server) reassignTask(c *fiber.Ctx) error {
	return s.transitionHandler(func(ctx context.Context, id string, req actionRequest, opts ...lifecycle.TransitionOption) (*model.Task, error) {
		return s.lifecycle.Reassign(ctx, id, req.ActorID, req.Reason, opts...)
	})(c)
}

func (s *Server) cancelTask(c *fiber.Ctx) error {
	return s.transitionHandler(func(ctx context.Context, id string, req actionRequest, opts ...lifecycle.TransitionOption) (*model.Task, error) {
		return s.lifecycle.Cancel(ctx, id, req.ActorID, opts...)
	})(c)
}

func (s *Server) getLeaderboard(c *fiber.Ctx) error {
	n := 0
	if raw := c.Query("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "n must be a non-negative integer")
		}
		n = parsed
	}

	entries, err := leaderboard.TopN(c.UserContext(), s.database, n)
	if err != nil {
		return err
	}
	return c.JSON(toLeaderboardResponse(entries))
}
