package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futuretasks/core/internal/domain/entities"
	"github.com/futuretasks/core/internal/ports"
)

var errBackendDown = errors.New("backend down")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, time.March, 10, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubKV is an in-memory backend whose reads and writes can be made to fail.
type stubKV struct {
	mu         sync.Mutex
	data       map[string]string
	sets       int
	failReads  bool
	failWrites bool
}

func newStubKV() *stubKV {
	return &stubKV{data: map[string]string{}}
}

func (s *stubKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failReads {
		return "", false, errBackendDown
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *stubKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errBackendDown
	}
	s.sets++
	s.data[key] = value
	return nil
}

func (s *stubKV) Ping(context.Context) error { return nil }

func (s *stubKV) Close() error { return nil }

func (s *stubKV) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

type recorder struct {
	ops      []string
	failures int
	counts   entities.Stats
}

func (r *recorder) ObserveOperation(op string, _ error) { r.ops = append(r.ops, op) }
func (r *recorder) ObservePersistenceFailure(string)     { r.failures++ }
func (r *recorder) SetTaskCounts(st entities.Stats)      { r.counts = st }

func newTestStore(t *testing.T, kv ports.KeyValueStore, clock Clock) *TaskStore {
	t.Helper()
	s := NewTaskStore(kv, TaskStoreOptions{Clock: clock})
	s.Load(context.Background())
	return s
}

func mustAdd(t *testing.T, s *TaskStore, text string, priority entities.Priority, category entities.Category) entities.Task {
	t.Helper()
	task, err := s.Add(context.Background(), ports.TaskInput{Text: text, Priority: priority, Category: category})
	require.NoError(t, err)
	return task
}

func ids(tasks []entities.Task) []int64 {
	out := make([]int64, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestTaskStore_Add(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	kv := newStubKV()
	s := newTestStore(t, kv, clock)

	t.Run("prepends with defaults", func(t *testing.T) {
		first, err := s.Add(ctx, ports.TaskInput{Text: "  Buy milk  "})
		require.NoError(t, err)
		second, err := s.Add(ctx, ports.TaskInput{Text: "Write report", Priority: entities.PriorityHigh, Category: entities.CategoryWork})
		require.NoError(t, err)

		assert.Equal(t, "Buy milk", first.Text)
		assert.Equal(t, entities.PriorityMedium, first.Priority)
		assert.Equal(t, entities.CategoryPersonal, first.Category)
		assert.False(t, first.Completed)
		assert.Nil(t, first.CompletedAt)
		assert.Equal(t, clock.Now(), first.CreatedAt)
		assert.Equal(t, clock.Now().UnixMilli(), first.ID)

		all := s.Query(ports.TaskQuery{})
		assert.Equal(t, []int64{second.ID, first.ID}, ids(all))
	})

	t.Run("ids stay unique within one millisecond", func(t *testing.T) {
		a := mustAdd(t, s, "a", "", "")
		b := mustAdd(t, s, "b", "", "")
		assert.Greater(t, b.ID, a.ID)
	})

	t.Run("blank text is rejected", func(t *testing.T) {
		before := s.Stats().Total
		sets := kv.setCount()

		_, err := s.Add(ctx, ports.TaskInput{Text: "   "})
		assert.ErrorIs(t, err, entities.ErrInvalidInput)
		assert.False(t, entities.IsWarning(err))
		assert.Equal(t, before, s.Stats().Total)
		assert.Equal(t, sets, kv.setCount())
	})

	t.Run("unknown priority is rejected", func(t *testing.T) {
		_, err := s.Add(ctx, ports.TaskInput{Text: "x", Priority: "urgent"})
		assert.ErrorIs(t, err, entities.ErrInvalidInput)
	})

	t.Run("due date is kept", func(t *testing.T) {
		due := entities.NewDate(2024, time.April, 1)
		task, err := s.Add(ctx, ports.TaskInput{Text: "due", DueDate: &due})
		require.NoError(t, err)
		require.NotNil(t, task.DueDate)
		assert.Equal(t, "2024-04-01", task.DueDate.String())
	})
}

func TestTaskStore_Update(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, newStubKV(), clock)

	orig := mustAdd(t, s, "Draft", entities.PriorityLow, entities.CategoryWork)
	_, err := s.ToggleCompleted(ctx, orig.ID)
	require.NoError(t, err)

	clock.Advance(time.Hour)
	due := entities.NewDate(2024, time.May, 5)
	updated, err := s.Update(ctx, orig.ID, ports.TaskInput{Text: "Final", Priority: entities.PriorityHigh, Category: "errands", DueDate: &due})
	require.NoError(t, err)

	assert.Equal(t, orig.ID, updated.ID)
	assert.Equal(t, orig.CreatedAt, updated.CreatedAt)
	assert.True(t, updated.Completed)
	assert.NotNil(t, updated.CompletedAt)
	assert.Equal(t, "Final", updated.Text)
	assert.Equal(t, entities.PriorityHigh, updated.Priority)
	assert.Equal(t, entities.Category("errands"), updated.Category)
	assert.Equal(t, "2024-05-05", updated.DueDate.String())

	t.Run("clearing the due date", func(t *testing.T) {
		cleared, err := s.Update(ctx, orig.ID, ports.TaskInput{Text: "Final"})
		require.NoError(t, err)
		assert.Nil(t, cleared.DueDate)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := s.Update(ctx, 42, ports.TaskInput{Text: "x"})
		assert.ErrorIs(t, err, entities.ErrTaskNotFound)
	})

	t.Run("blank text leaves the task alone", func(t *testing.T) {
		_, err := s.Update(ctx, orig.ID, ports.TaskInput{Text: ""})
		assert.ErrorIs(t, err, entities.ErrInvalidInput)

		got, err := s.Get(orig.ID)
		require.NoError(t, err)
		assert.Equal(t, "Final", got.Text)
	})
}

func TestTaskStore_ToggleCompleted(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, newStubKV(), clock)
	task := mustAdd(t, s, "Walk", "", "")

	clock.Advance(time.Minute)
	done, err := s.ToggleCompleted(ctx, task.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock.Now(), *done.CompletedAt)

	undone, err := s.ToggleCompleted(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.Nil(t, undone.CompletedAt)

	_, err = s.ToggleCompleted(ctx, 7)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
}

func TestTaskStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newStubKV(), newFakeClock())
	a := mustAdd(t, s, "a", "", "")
	b := mustAdd(t, s, "b", "", "")

	require.NoError(t, s.Delete(ctx, a.ID))
	assert.Equal(t, []int64{b.ID}, ids(s.Query(ports.TaskQuery{})))

	err := s.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
	assert.Equal(t, 1, s.Stats().Total)
}

func TestTaskStore_Reorder(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*TaskStore, *stubKV, []int64) {
		kv := newStubKV()
		s := newTestStore(t, kv, newFakeClock())
		c := mustAdd(t, s, "c", "", "")
		b := mustAdd(t, s, "b", "", "")
		a := mustAdd(t, s, "a", "", "")
		return s, kv, []int64{a.ID, b.ID, c.ID}
	}

	t.Run("moves before target", func(t *testing.T) {
		s, _, order := setup(t)
		before := order[0]
		require.NoError(t, s.Reorder(ctx, order[2], &before))
		assert.Equal(t, []int64{order[2], order[0], order[1]}, ids(s.Query(ports.TaskQuery{})))
	})

	t.Run("moves down before target", func(t *testing.T) {
		s, _, order := setup(t)
		before := order[2]
		require.NoError(t, s.Reorder(ctx, order[0], &before))
		assert.Equal(t, []int64{order[1], order[0], order[2]}, ids(s.Query(ports.TaskQuery{})))
	})

	t.Run("nil target moves to end", func(t *testing.T) {
		s, _, order := setup(t)
		require.NoError(t, s.Reorder(ctx, order[0], nil))
		assert.Equal(t, []int64{order[1], order[2], order[0]}, ids(s.Query(ports.TaskQuery{})))
	})

	t.Run("unknown target moves to end", func(t *testing.T) {
		s, _, order := setup(t)
		missing := int64(99)
		require.NoError(t, s.Reorder(ctx, order[1], &missing))
		assert.Equal(t, []int64{order[0], order[2], order[1]}, ids(s.Query(ports.TaskQuery{})))
	})

	t.Run("same id is a no-op", func(t *testing.T) {
		s, kv, order := setup(t)
		sets := kv.setCount()
		same := order[1]
		require.NoError(t, s.Reorder(ctx, order[1], &same))
		assert.Equal(t, order, ids(s.Query(ports.TaskQuery{})))
		assert.Equal(t, sets, kv.setCount())
	})

	t.Run("unknown id", func(t *testing.T) {
		s, _, order := setup(t)
		err := s.Reorder(ctx, 12345, nil)
		assert.ErrorIs(t, err, entities.ErrTaskNotFound)
		assert.Equal(t, order, ids(s.Query(ports.TaskQuery{})))
	})

	t.Run("keeps every task exactly once", func(t *testing.T) {
		s, _, order := setup(t)
		before := order[1]
		require.NoError(t, s.Reorder(ctx, order[2], &before))
		require.NoError(t, s.Reorder(ctx, order[0], nil))
		assert.ElementsMatch(t, order, ids(s.Query(ports.TaskQuery{})))
	})
}

func TestTaskStore_Query(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newStubKV(), newFakeClock())

	groceries := mustAdd(t, s, "Buy Groceries", entities.PriorityLow, entities.CategoryPersonal)
	report := mustAdd(t, s, "Quarterly report", entities.PriorityHigh, entities.CategoryWork)
	call := mustAdd(t, s, "Call plumber", entities.PriorityHigh, entities.CategoryOther)
	_, err := s.ToggleCompleted(ctx, call.ID)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query ports.TaskQuery
		want  []int64
	}{
		{"everything", ports.TaskQuery{}, []int64{call.ID, report.ID, groceries.ID}},
		{"completed", ports.TaskQuery{Filter: entities.FilterCompleted}, []int64{call.ID}},
		{"pending", ports.TaskQuery{Filter: entities.FilterPending}, []int64{report.ID, groceries.ID}},
		{"high priority", ports.TaskQuery{Filter: entities.FilterHigh}, []int64{call.ID, report.ID}},
		{"unknown filter means all", ports.TaskQuery{Filter: "bogus"}, []int64{call.ID, report.ID, groceries.ID}},
		{"category", ports.TaskQuery{Category: "work"}, []int64{report.ID}},
		{"all categories", ports.TaskQuery{Category: entities.AllCategories}, []int64{call.ID, report.ID, groceries.ID}},
		{"search is case-insensitive", ports.TaskQuery{Search: "GROCER"}, []int64{groceries.ID}},
		{"search matches category", ports.TaskQuery{Search: "work"}, []int64{report.ID}},
		{"combined", ports.TaskQuery{Filter: entities.FilterHigh, Category: "other", Search: "plumb"}, []int64{call.ID}},
		{"no match", ports.TaskQuery{Search: "zzz"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(s.Query(tt.query)))
		})
	}

	t.Run("results are copies", func(t *testing.T) {
		got := s.Query(ports.TaskQuery{})
		got[0].Text = "mutated"
		fresh, err := s.Get(got[0].ID)
		require.NoError(t, err)
		assert.NotEqual(t, "mutated", fresh.Text)
	})
}

func TestTaskStore_Stats(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, newStubKV(), clock)

	assert.Equal(t, entities.Stats{}, s.Stats())

	yesterday := entities.DateOf(clock.Now().AddDate(0, 0, -1))
	today := entities.DateOf(clock.Now())

	a, err := s.Add(ctx, ports.TaskInput{Text: "late", DueDate: &yesterday})
	require.NoError(t, err)
	_, err = s.Add(ctx, ports.TaskInput{Text: "today", DueDate: &today})
	require.NoError(t, err)
	c := mustAdd(t, s, "done", "", "")
	_, err = s.ToggleCompleted(ctx, c.ID)
	require.NoError(t, err)

	st := s.Stats()
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 2, st.Pending)
	assert.Equal(t, 33, st.CompletionRate)
	assert.Equal(t, 1, st.Overdue)

	_, err = s.ToggleCompleted(ctx, a.ID)
	require.NoError(t, err)
	st = s.Stats()
	assert.Equal(t, 67, st.CompletionRate)
	assert.Equal(t, 0, st.Overdue)
	assert.Equal(t, st.Total, st.Completed+st.Pending)
}

func TestTaskStore_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds samples on first start", func(t *testing.T) {
		kv := newStubKV()
		s := NewTaskStore(kv, TaskStoreOptions{Clock: newFakeClock(), SeedSamples: true})
		tasks := s.Load(ctx)

		require.Len(t, tasks, 3)
		assert.True(t, tasks[2].Completed)
		assert.NotNil(t, tasks[1].DueDate)
		_, stored := kv.data[DefaultTasksKey]
		assert.True(t, stored)

		added := mustAdd(t, s, "next", "", "")
		for _, task := range tasks {
			assert.Greater(t, added.ID, task.ID)
		}
	})

	t.Run("does not seed an emptied list", func(t *testing.T) {
		kv := newStubKV()
		kv.data[DefaultTasksKey] = "[]"
		s := NewTaskStore(kv, TaskStoreOptions{Clock: newFakeClock(), SeedSamples: true})
		assert.Empty(t, s.Load(ctx))
	})

	t.Run("missing key without seeding", func(t *testing.T) {
		s := NewTaskStore(newStubKV(), TaskStoreOptions{Clock: newFakeClock()})
		assert.Empty(t, s.Load(ctx))
	})

	t.Run("corrupt data loads empty", func(t *testing.T) {
		kv := newStubKV()
		kv.data[DefaultTasksKey] = "{not json"
		s := NewTaskStore(kv, TaskStoreOptions{Clock: newFakeClock(), SeedSamples: true})
		assert.Empty(t, s.Load(ctx))
		assert.Equal(t, 0, kv.setCount())
	})

	t.Run("read failure loads empty", func(t *testing.T) {
		kv := newStubKV()
		kv.failReads = true
		rec := &recorder{}
		s := NewTaskStore(kv, TaskStoreOptions{Clock: newFakeClock(), Recorder: rec})
		assert.Empty(t, s.Load(ctx))
		assert.Equal(t, 1, rec.failures)
	})

	t.Run("custom key", func(t *testing.T) {
		kv := newStubKV()
		kv.data["other"] = `[{"id":5,"text":"kept"}]`
		s := NewTaskStore(kv, TaskStoreOptions{Clock: newFakeClock(), TasksKey: "other"})
		tasks := s.Load(ctx)
		require.Len(t, tasks, 1)
		assert.Equal(t, "kept", tasks[0].Text)
	})
}

func TestTaskStore_PersistsEveryMutation(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	kv := newStubKV()
	s := newTestStore(t, kv, clock)

	a := mustAdd(t, s, "a", entities.PriorityHigh, entities.CategoryWork)
	b := mustAdd(t, s, "b", "", "")
	_, err := s.ToggleCompleted(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, s.Reorder(ctx, b.ID, nil))

	reloaded := newTestStore(t, kv, clock)
	assert.Equal(t, s.Query(ports.TaskQuery{}), reloaded.Query(ports.TaskQuery{}))
	assert.Equal(t, 4, kv.setCount())
}

func TestTaskStore_PersistenceWarning(t *testing.T) {
	ctx := context.Background()
	kv := newStubKV()
	rec := &recorder{}
	s := NewTaskStore(kv, TaskStoreOptions{Clock: newFakeClock(), Recorder: rec})
	s.Load(ctx)

	kv.failWrites = true
	task, err := s.Add(ctx, ports.TaskInput{Text: "unsaved"})

	require.Error(t, err)
	assert.True(t, entities.IsWarning(err))
	assert.ErrorIs(t, err, entities.ErrPersistenceWrite)
	assert.ErrorIs(t, err, errBackendDown)
	assert.NotZero(t, task.ID)

	got, err := s.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, "unsaved", got.Text)
	assert.Equal(t, 1, rec.failures)
	assert.Equal(t, 1, rec.counts.Total)

	err = s.Delete(ctx, task.ID)
	assert.True(t, entities.IsWarning(err))
	assert.Equal(t, 0, s.Stats().Total)

	kv.failWrites = false
	assert.NoError(t, s.Save(ctx))
	assert.Equal(t, "[]", kv.data[DefaultTasksKey])
}

func TestTaskStore_ExportImport(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, newStubKV(), clock)

	due := entities.NewDate(2024, time.June, 1)
	a, err := s.Add(ctx, ports.TaskInput{Text: "with due", DueDate: &due, Priority: entities.PriorityHigh})
	require.NoError(t, err)
	b := mustAdd(t, s, "plain", "", entities.CategoryWork)
	_, err = s.ToggleCompleted(ctx, b.ID)
	require.NoError(t, err)

	snapshot, err := s.ExportSnapshot()
	require.NoError(t, err)
	assert.Contains(t, string(snapshot), "\n  {")
	assert.Contains(t, string(snapshot), `"dueDate": "2024-06-01"`)

	other := newTestStore(t, newStubKV(), clock)
	mustAdd(t, other, "replaced", "", "")

	count, err := other.ImportSnapshot(ctx, snapshot)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, s.Query(ports.TaskQuery{}), other.Query(ports.TaskQuery{}))
	assert.Equal(t, []int64{b.ID, a.ID}, ids(other.Query(ports.TaskQuery{})))
}

func TestTaskStore_ImportRejectsBadSnapshots(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		blob string
	}{
		{"not json", "hello"},
		{"object", `{"id":1,"text":"x"}`},
		{"null", "null"},
		{"string element", `["task"]`},
		{"missing id", `[{"text":"x"}]`},
		{"negative id", `[{"id":-4,"text":"x"}]`},
		{"missing text", `[{"id":1}]`},
		{"blank text", `[{"id":1,"text":"   "}]`},
		{"bad priority", `[{"id":1,"text":"x","priority":"urgent"}]`},
		{"bad due date", `[{"id":1,"text":"x","dueDate":"tomorrow"}]`},
		{"duplicate ids", `[{"id":1,"text":"x"},{"id":1,"text":"y"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kv := newStubKV()
			s := newTestStore(t, kv, newFakeClock())
			keep := mustAdd(t, s, "keep me", "", "")
			sets := kv.setCount()

			count, err := s.ImportSnapshot(ctx, []byte(tt.blob))
			assert.ErrorIs(t, err, entities.ErrInvalidFormat)
			assert.Zero(t, count)
			assert.Equal(t, []int64{keep.ID}, ids(s.Query(ports.TaskQuery{})))
			assert.Equal(t, sets, kv.setCount())
		})
	}
}

func TestTaskStore_ImportDefaultsAndIDs(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	s := newTestStore(t, newStubKV(), clock)

	future := clock.Now().UnixMilli() + 1_000_000
	blob := []byte(`[{"id":` + strconv.FormatInt(future, 10) + `,"text":" legacy ","completed":false}]`)

	count, err := s.ImportSnapshot(ctx, blob)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	got, err := s.Get(future)
	require.NoError(t, err)
	assert.Equal(t, "legacy", got.Text)
	assert.Equal(t, entities.PriorityMedium, got.Priority)
	assert.Equal(t, entities.CategoryPersonal, got.Category)

	added := mustAdd(t, s, "after import", "", "")
	assert.Greater(t, added.ID, future)

	count, err = s.ImportSnapshot(ctx, []byte("[]"))
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, s.Stats().Total)
}

func TestTaskStore_ImportClearsStaleCompletedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newStubKV(), newFakeClock())

	blob := []byte(`[
		{"id":1,"text":"open","completed":false,"completedAt":"2024-01-01T10:00:00Z"},
		{"id":2,"text":"closed","completed":true,"completedAt":"2024-01-02T10:00:00Z"}
	]`)
	_, err := s.ImportSnapshot(ctx, blob)
	require.NoError(t, err)

	open, err := s.Get(1)
	require.NoError(t, err)
	assert.False(t, open.Completed)
	assert.Nil(t, open.CompletedAt)

	closed, err := s.Get(2)
	require.NoError(t, err)
	require.NotNil(t, closed.CompletedAt)
	assert.Equal(t, time.Date(2024, time.January, 2, 10, 0, 0, 0, time.UTC), closed.CompletedAt.UTC())
}

func TestTaskStore_StatsUsesUTCDay(t *testing.T) {
	ctx := context.Background()
	// 23:30 on March 10 in New York is already March 11 in UTC.
	zone := time.FixedZone("EST", -5*60*60)
	clock := &fakeClock{now: time.Date(2024, time.March, 10, 23, 30, 0, 0, zone)}
	s := newTestStore(t, newStubKV(), clock)

	localToday := entities.NewDate(2024, time.March, 10)
	_, err := s.Add(ctx, ports.TaskInput{Text: "due on the local day", DueDate: &localToday})
	require.NoError(t, err)

	assert.Equal(t, 1, s.Stats().Overdue)
	assert.Equal(t, entities.NewDate(2024, time.March, 11), entities.DateOf(s.Now()))
}

func TestSnapshotFileName(t *testing.T) {
	now := time.Date(2025, time.January, 2, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "future-tasks-2025-01-02.json", SnapshotFileName(now))
}

func TestTaskStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, newStubKV(), newFakeClock())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Add(ctx, ports.TaskInput{Text: "parallel"})
		}()
	}
	wg.Wait()

	seen := map[int64]bool{}
	for _, id := range ids(s.Query(ports.TaskQuery{})) {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 20)
}
