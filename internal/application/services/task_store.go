package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/futuretasks/core/internal/domain/entities"
	"github.com/futuretasks/core/internal/infrastructure/logger"
	"github.com/futuretasks/core/internal/ports"
)

// DefaultTasksKey is the backend key holding the serialized task list.
const DefaultTasksKey = "futureTasks"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// OperationRecorder receives operation outcomes, typically for metrics.
type OperationRecorder interface {
	ObserveOperation(operation string, err error)
	ObservePersistenceFailure(op string)
	SetTaskCounts(stats entities.Stats)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, error)   {}
func (nopRecorder) ObservePersistenceFailure(string) {}
func (nopRecorder) SetTaskCounts(entities.Stats)     {}

// TaskStoreOptions configures a TaskStore. Zero values select defaults.
type TaskStoreOptions struct {
	TasksKey    string
	SeedSamples bool
	Clock       Clock
	Recorder    OperationRecorder
	Logger      *logger.Logger
}

// TaskStore owns the ordered task collection and persists it after every mutation.
// Operations are serialized, so at most one save is in flight.
type TaskStore struct {
	mu     sync.Mutex
	kv     ports.KeyValueStore
	tasks  []entities.Task
	lastID int64

	key      string
	seed     bool
	clock    Clock
	recorder OperationRecorder
	logger   *logger.Logger
	validate *validator.Validate
}

var _ ports.TaskService = (*TaskStore)(nil)

// NewTaskStore creates an empty store backed by kv. Call Load to read persisted state.
func NewTaskStore(kv ports.KeyValueStore, opts TaskStoreOptions) *TaskStore {
	s := &TaskStore{
		kv:       kv,
		tasks:    []entities.Task{},
		key:      opts.TasksKey,
		seed:     opts.SeedSamples,
		clock:    opts.Clock,
		recorder: opts.Recorder,
		logger:   opts.Logger,
		validate: validator.New(),
	}
	if s.key == "" {
		s.key = DefaultTasksKey
	}
	if s.clock == nil {
		s.clock = RealClock{}
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	if s.logger == nil {
		s.logger = logger.NewNop()
	}
	s.logger = s.logger.WithComponent("task_store")
	return s
}

// Load replaces the in-memory list with the persisted one. Missing, unreadable
// or corrupt data yields an empty list; the failure is logged, never returned.
func (s *TaskStore) Load(ctx context.Context) []entities.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = []entities.Task{}

	raw, found, err := s.kv.Get(ctx, s.key)
	switch {
	case err != nil:
		s.recorder.ObservePersistenceFailure("read")
		s.logger.LogStorageFailure("read", s.key, err)
	case !found:
		if s.seed {
			s.tasks = sampleTasks(s.now())
			s.bumpLastID(s.tasks)
			if err := s.saveLocked(ctx); err != nil {
				s.logger.Warnw("Could not persist sample tasks", "error", err)
			}
			s.logger.Infow("Seeded sample tasks", "count", len(s.tasks))
		}
	default:
		tasks, err := s.decode([]byte(raw))
		if err != nil {
			s.logger.Errorw("Discarding unreadable task data", "key", s.key, "error", err)
			break
		}
		s.tasks = tasks
		s.bumpLastID(tasks)
		s.logger.Infow("Tasks loaded", "count", len(tasks))
	}

	s.recorder.ObserveOperation("load", nil)
	s.recorder.SetTaskCounts(s.statsLocked())
	return cloneAll(s.tasks)
}

// Save writes the full list to the backend.
func (s *TaskStore) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.saveLocked(ctx)
	s.recorder.ObserveOperation("save", err)
	return err
}

// Add creates a task at the head of the list.
func (s *TaskStore) Add(ctx context.Context, input ports.TaskInput) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := normalizeInput(input)
	if err != nil {
		s.recorder.ObserveOperation("add", err)
		return entities.Task{}, err
	}

	now := s.now()
	task := entities.Task{
		ID:        s.nextID(now),
		Text:      fields.Text,
		Priority:  fields.Priority,
		Category:  fields.Category,
		DueDate:   fields.DueDate,
		CreatedAt: now,
	}

	s.tasks = append([]entities.Task{task}, s.tasks...)

	err = s.mutated(ctx, "add", task.ID)
	return task.Clone(), err
}

// Get returns a single task.
func (s *TaskStore) Get(id int64) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return entities.Task{}, notFound(id)
	}
	return s.tasks[i].Clone(), nil
}

// Update overwrites the editable fields of a task.
func (s *TaskStore) Update(ctx context.Context, id int64, input ports.TaskInput) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		err := notFound(id)
		s.recorder.ObserveOperation("update", err)
		return entities.Task{}, err
	}

	fields, err := normalizeInput(input)
	if err != nil {
		s.recorder.ObserveOperation("update", err)
		return entities.Task{}, err
	}

	task := &s.tasks[i]
	task.Text = fields.Text
	task.Priority = fields.Priority
	task.Category = fields.Category
	task.DueDate = fields.DueDate

	err = s.mutated(ctx, "update", id)
	return task.Clone(), err
}

// ToggleCompleted flips the completion state of a task.
func (s *TaskStore) ToggleCompleted(ctx context.Context, id int64) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		err := notFound(id)
		s.recorder.ObserveOperation("toggle", err)
		return entities.Task{}, err
	}

	task := &s.tasks[i]
	task.Toggle(s.now())

	err := s.mutated(ctx, "toggle", id)
	return task.Clone(), err
}

// Delete removes a task. Deleting an unknown id fails with ErrTaskNotFound.
func (s *TaskStore) Delete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		err := notFound(id)
		s.recorder.ObserveOperation("delete", err)
		return err
	}

	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)

	return s.mutated(ctx, "delete", id)
}

// Reorder moves a task immediately before beforeID, or to the end when beforeID
// is nil or names no task.
func (s *TaskStore) Reorder(ctx context.Context, id int64, beforeID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.indexOf(id)
	if from < 0 {
		err := notFound(id)
		s.recorder.ObserveOperation("reorder", err)
		return err
	}
	if beforeID != nil && *beforeID == id {
		s.recorder.ObserveOperation("reorder", nil)
		return nil
	}

	moved := s.tasks[from]
	s.tasks = append(s.tasks[:from], s.tasks[from+1:]...)

	to := -1
	if beforeID != nil {
		to = s.indexOf(*beforeID)
	}
	if to < 0 {
		s.tasks = append(s.tasks, moved)
	} else {
		s.tasks = append(s.tasks, entities.Task{})
		copy(s.tasks[to+1:], s.tasks[to:])
		s.tasks[to] = moved
	}

	return s.mutated(ctx, "reorder", id)
}

// Query returns copies of the tasks passing search, status and category filters,
// applied in that order, in store order.
func (s *TaskStore) Query(q ports.TaskQuery) []entities.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	search := strings.ToLower(q.Search)
	mode := entities.ParseFilterMode(string(q.Filter))
	category := q.Category
	if category == entities.AllCategories {
		category = ""
	}

	result := make([]entities.Task, 0, len(s.tasks))
	for i := range s.tasks {
		task := &s.tasks[i]
		if !task.Matches(search) {
			continue
		}
		if !matchesMode(task, mode) {
			continue
		}
		if category != "" && string(task.Category) != category {
			continue
		}
		result = append(result, task.Clone())
	}
	return result
}

// Stats derives the summary counters.
func (s *TaskStore) Stats() entities.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.statsLocked()
}

// ExportSnapshot serializes the whole list as an indented JSON array.
func (s *TaskStore) ExportSnapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.tasks, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	s.recorder.ObserveOperation("export", nil)
	return data, nil
}

// ImportSnapshot replaces the list with the tasks in blob. Anything other than a
// JSON array of task-shaped records fails with ErrInvalidFormat and changes nothing.
func (s *TaskStore) ImportSnapshot(ctx context.Context, blob []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.decode(blob)
	if err != nil {
		s.recorder.ObserveOperation("import", err)
		return 0, err
	}

	s.tasks = tasks
	s.bumpLastID(tasks)

	err = s.mutated(ctx, "import", 0)
	return len(tasks), err
}

// SnapshotFileName names an export taken at now.
func SnapshotFileName(now time.Time) string {
	return fmt.Sprintf("future-tasks-%s.json", now.Format(entities.DateLayout))
}

func (s *TaskStore) mutated(ctx context.Context, op string, id int64) error {
	err := s.saveLocked(ctx)
	s.recorder.ObserveOperation(op, err)
	s.recorder.SetTaskCounts(s.statsLocked())
	s.logger.LogTaskAction(op, id, map[string]interface{}{
		"total":     len(s.tasks),
		"persisted": err == nil,
	})
	return err
}

func (s *TaskStore) saveLocked(ctx context.Context) error {
	data, err := json.Marshal(s.tasks)
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}

	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		s.recorder.ObservePersistenceFailure("write")
		s.logger.LogStorageFailure("write", s.key, err)
		return entities.NewWriteError(s.key, err)
	}
	return nil
}

func (s *TaskStore) decode(blob []byte) ([]entities.Task, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of tasks: %v", entities.ErrInvalidFormat, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: expected a JSON array of tasks", entities.ErrInvalidFormat)
	}

	tasks := make([]entities.Task, 0, len(records))
	seen := make(map[int64]bool, len(records))
	for i, record := range records {
		if trimmed := bytes.TrimSpace(record); len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, fmt.Errorf("%w: record %d is not an object", entities.ErrInvalidFormat, i)
		}

		var task entities.Task
		if err := json.Unmarshal(record, &task); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", entities.ErrInvalidFormat, i, err)
		}

		task.Text = strings.TrimSpace(task.Text)
		if err := s.validate.Struct(task); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", entities.ErrInvalidFormat, i, err)
		}
		if seen[task.ID] {
			return nil, fmt.Errorf("%w: record %d repeats id %d", entities.ErrInvalidFormat, i, task.ID)
		}
		seen[task.ID] = true

		if task.Priority == "" {
			task.Priority = entities.PriorityMedium
		}
		if strings.TrimSpace(string(task.Category)) == "" {
			task.Category = entities.CategoryPersonal
		}
		if !task.Completed {
			task.CompletedAt = nil
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (s *TaskStore) statsLocked() entities.Stats {
	today := entities.DateOf(s.now())

	stats := entities.Stats{Total: len(s.tasks)}
	for i := range s.tasks {
		if s.tasks[i].Completed {
			stats.Completed++
		} else if s.tasks[i].IsOverdue(today) {
			stats.Overdue++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}

// nextID derives an id from the creation time, bumped past every id handed out before.
func (s *TaskStore) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *TaskStore) bumpLastID(tasks []entities.Task) {
	for i := range tasks {
		if tasks[i].ID > s.lastID {
			s.lastID = tasks[i].ID
		}
	}
}

func (s *TaskStore) indexOf(id int64) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// Now reads the store's clock in UTC.
func (s *TaskStore) Now() time.Time {
	return s.now()
}

func (s *TaskStore) now() time.Time {
	return s.clock.Now().UTC()
}

func normalizeInput(input ports.TaskInput) (ports.TaskInput, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return ports.TaskInput{}, fmt.Errorf("%w: task text must not be empty", entities.ErrInvalidInput)
	}

	priority := entities.Priority(strings.ToLower(strings.TrimSpace(string(input.Priority))))
	if priority == "" {
		priority = entities.PriorityMedium
	}
	if !priority.IsValid() {
		return ports.TaskInput{}, fmt.Errorf("%w: unknown priority %q", entities.ErrInvalidInput, input.Priority)
	}

	category := entities.Category(strings.TrimSpace(string(input.Category)))
	if category == "" {
		category = entities.CategoryPersonal
	}

	var due *entities.Date
	if input.DueDate != nil && !input.DueDate.IsZero() {
		d := *input.DueDate
		due = &d
	}

	return ports.TaskInput{Text: text, Priority: priority, Category: category, DueDate: due}, nil
}

func matchesMode(task *entities.Task, mode entities.FilterMode) bool {
	switch mode {
	case entities.FilterCompleted:
		return task.Completed
	case entities.FilterPending:
		return !task.Completed
	case entities.FilterHigh:
		return task.Priority == entities.PriorityHigh
	}
	return true
}

func notFound(id int64) error {
	return fmt.Errorf("%w: %d", entities.ErrTaskNotFound, id)
}

func cloneAll(tasks []entities.Task) []entities.Task {
	out := make([]entities.Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
