package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jakechorley/helping-hands/pkg/core/model"
	"github.com/jakechorley/helping-hands/pkg/core/points"
)

// MemoryDB is an in-process Database. A single mutex serializes all access,
// and WithTx works on a copy of the state that is swapped in on success.
type MemoryDB struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	tasks  map[string]model.Task
	users  map[string]model.User
	points map[string]model.UserPointsRecord
	now    func() time.Time
}

// NewMemoryDB creates an empty in-memory database
func NewMemoryDB() *MemoryDB {
	return &MemoryDB{
		state: &memState{
			tasks:  make(map[string]model.Task),
			users:  make(map[string]model.User),
			points: make(map[string]model.UserPointsRecord),
			now:    time.Now,
		},
	}
}

func (m *MemoryDB) Close() {}

func (m *MemoryDB) CreateTask(ctx context.Context, task *model.Task) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.CreateTask(ctx, task)
}

func (m *MemoryDB) GetTask(ctx context.Context, id string) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetTask(ctx, id)
}

func (m *MemoryDB) UpdateTaskIf(ctx context.Context, id string, expected model.TaskStatus, mutate TaskMutation) (*model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdateTaskIf(ctx, id, expected, mutate)
}

func (m *MemoryDB) DeleteTaskIf(ctx context.Context, id string, allowed ...model.TaskStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.DeleteTaskIf(ctx, id, allowed...)
}

func (m *MemoryDB) QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.QueryTasks(ctx, filter)
}

func (m *MemoryDB) InsertUser(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.InsertUser(ctx, user)
}

func (m *MemoryDB) GetUser(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetUser(ctx, id)
}

func (m *MemoryDB) ListUsers(ctx context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.ListUsers(ctx)
}

func (m *MemoryDB) GetPoints(ctx context.Context, userID string) (*model.UserPointsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.GetPoints(ctx, userID)
}

func (m *MemoryDB) UpsertPoints(ctx context.Context, rec *model.UserPointsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpsertPoints(ctx, rec)
}

func (m *MemoryDB) UpdatePoints(ctx context.Context, userID string, mutate PointsMutation) (*model.UserPointsRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.UpdatePoints(ctx, userID, mutate)
}

func (m *MemoryDB) QueryVolunteersByPoints(ctx context.Context, limit int) ([]VolunteerPoints, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.QueryVolunteersByPoints(ctx, limit)
}

// WithTx runs fn against a copy of the state while holding the lock
func (m *MemoryDB) WithTx(ctx context.Context, fn func(tx Database) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	draft := m.state.clone()
	if err := fn(&memTx{state: draft}); err != nil {
		return err
	}
	m.state = draft
	return nil
}

// memTx is the transactional view handed to WithTx callbacks. It must not lock.
type memTx struct {
	state *memState
}

func (t *memTx) Close() {}

func (t *memTx) WithTx(ctx context.Context, fn func(tx Database) error) error {
	return fn(t)
}

func (t *memTx) CreateTask(ctx context.Context, task *model.Task) (string, error) {
	return t.state.CreateTask(ctx, task)
}

func (t *memTx) GetTask(ctx context.Context, id string) (*model.Task, error) {
	return t.state.GetTask(ctx, id)
}

func (t *memTx) UpdateTaskIf(ctx context.Context, id string, expected model.TaskStatus, mutate TaskMutation) (*model.Task, error) {
	return t.state.UpdateTaskIf(ctx, id, expected, mutate)
}

func (t *memTx) DeleteTaskIf(ctx context.Context, id string, allowed ...model.TaskStatus) (bool, error) {
	return t.state.DeleteTaskIf(ctx, id, allowed...)
}

func (t *memTx) QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	return t.state.QueryTasks(ctx, filter)
}

func (t *memTx) InsertUser(ctx context.Context, user *model.User) error {
	return t.state.InsertUser(ctx, user)
}

func (t *memTx) GetUser(ctx context.Context, id string) (*model.User, error) {
	return t.state.GetUser(ctx, id)
}

func (t *memTx) ListUsers(ctx context.Context) ([]model.User, error) {
	return t.state.ListUsers(ctx)
}

func (t *memTx) GetPoints(ctx context.Context, userID string) (*model.UserPointsRecord, error) {
	return t.state.GetPoints(ctx, userID)
}

func (t *memTx) UpsertPoints(ctx context.Context, rec *model.UserPointsRecord) error {
	return t.state.UpsertPoints(ctx, rec)
}

func (t *memTx) UpdatePoints(ctx context.Context, userID string, mutate PointsMutation) (*model.UserPointsRecord, error) {
	return t.state.UpdatePoints(ctx, userID, mutate)
}

func (t *memTx) QueryVolunteersByPoints(ctx context.Context, limit int) ([]VolunteerPoints, error) {
	return t.state.QueryVolunteersByPoints(ctx, limit)
}

func (s *memState) clone() *memState {
	c := &memState{
		tasks:  make(map[string]model.Task, len(s.tasks)),
		users:  make(map[string]model.User, len(s.users)),
		points: make(map[string]model.UserPointsRecord, len(s.points)),
		now:    s.now,
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.points {
		c.points[k] = v
	}
	return c
}

func (s *memState) CreateTask(ctx context.Context, task *model.Task) (string, error) {
	task.ID = uuid.New().String()
	now := s.now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	s.tasks[task.ID] = *task
	return task.ID, nil
}

func (s *memState) GetTask(ctx context.Context, id string) (*model.Task, error) {
	task, ok := s.tasks[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "task", ID: id}
	}
	return &task, nil
}

func (s *memState) UpdateTaskIf(ctx context.Context, id string, expected model.TaskStatus, mutate TaskMutation) (*model.Task, error) {
	current, ok := s.tasks[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "task", ID: id}
	}
	if current.Status != expected {
		return nil, &model.ConflictError{TaskID: id, Op: "update", Status: current.Status,
			Reason: "expected status " + string(expected)}
	}

	updated := current
	if err := mutate(&updated); err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.UpdatedAt = s.now().UTC()
	s.tasks[id] = updated
	return &updated, nil
}

func (s *memState) DeleteTaskIf(ctx context.Context, id string, allowed ...model.TaskStatus) (bool, error) {
	task, ok := s.tasks[id]
	if !ok {
		return false, nil
	}
	for _, status := range allowed {
		if task.Status == status {
			delete(s.tasks, id)
			return true, nil
		}
	}
	return false, nil
}

func (s *memState) QueryTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	result := make([]model.Task, 0)
	for _, task := range s.tasks {
		if filter.Matches(&task) {
			result = append(result, task)
		}
	}
	// Map iteration order is random; callers rely on a stable base order
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (s *memState) InsertUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if _, exists := s.users[user.ID]; exists {
		return &model.ValidationError{Field: "id", Reason: "user already exists: " + user.ID}
	}
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return &model.ValidationError{Field: "username", Reason: "username already taken: " + user.Username}
		}
	}
	s.users[user.ID] = *user
	return nil
}

func (s *memState) GetUser(ctx context.Context, id string) (*model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, &model.NotFoundError{Kind: "user", ID: id}
	}
	return &user, nil
}

func (s *memState) ListUsers(ctx context.Context) ([]model.User, error) {
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (s *memState) GetPoints(ctx context.Context, userID string) (*model.UserPointsRecord, error) {
	rec, ok := s.points[userID]
	if !ok {
		return nil, &model.NotFoundError{Kind: "points", ID: userID}
	}
	return &rec, nil
}

func (s *memState) UpsertPoints(ctx context.Context, rec *model.UserPointsRecord) error {
	s.points[rec.UserID] = *rec
	return nil
}

func (s *memState) UpdatePoints(ctx context.Context, userID string, mutate PointsMutation) (*model.UserPointsRecord, error) {
	current, ok := s.points[userID]
	if !ok {
		current = points.NewRecord(userID)
	}
	updated := mutate(current)
	updated.UserID = userID
	s.points[userID] = updated
	return &updated, nil
}

func (s *memState) QueryVolunteersByPoints(ctx context.Context, limit int) ([]VolunteerPoints, error) {
	result := make([]VolunteerPoints, 0)
	for _, user := range s.users {
		if user.Role != model.RoleVolunteer {
			continue
		}
		rec, ok := s.points[user.ID]
		if !ok {
			rec = points.NewRecord(user.ID)
		}
		result = append(result, VolunteerPoints{User: user, Points: rec})
	}
	SortVolunteerPoints(result)
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// SortVolunteerPoints orders by points desc, tasks completed desc, then user id asc
func SortVolunteerPoints(list []VolunteerPoints) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].Points, list[j].Points
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.TasksCompleted != b.TasksCompleted {
			return a.TasksCompleted > b.TasksCompleted
		}
		return list[i].User.ID < list[j].User.ID
	})
}
