package download

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner blocks each task until released, so tests control exactly
// when completions happen.
type fakeRunner struct {
	mu      sync.Mutex
	started []int
	release map[int]chan Progress
	cancels int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{release: map[int]chan Progress{}}
}

func (f *fakeRunner) Run(ctx context.Context, task Task, index int, emit func(Progress)) string {
	f.mu.Lock()
	f.started = append(f.started, index)
	ch := make(chan Progress, 1)
	f.release[index] = ch
	f.mu.Unlock()

	terminal := <-ch
	emit(terminal)
	return "file"
}

func (f *fakeRunner) Cancel() {
	f.mu.Lock()
	f.cancels++
	f.mu.Unlock()
}

func (f *fakeRunner) startedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func (f *fakeRunner) finish(index int, status ProgressStatus, message string) {
	f.mu.Lock()
	ch := f.release[index]
	f.mu.Unlock()
	ch <- Progress{Index: index, Status: status, Message: message}
}

func waitStarted(t *testing.T, f *fakeRunner, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return f.startedCount() >= n },
		2*time.Second, 5*time.Millisecond, "expected %d started tasks", n)
}

func makeTasks(n int) []Task {
	tasks := make([]Task, n)
	for i := range tasks {
		tasks[i] = NewTask("https://youtu.be/x", "/tmp", ModeVideo, "")
	}
	return tasks
}

func TestPool_BoundedAdmission(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(context.Background(), runner, 3)

	pool.AddTasks(makeTasks(5))
	waitStarted(t, runner, 3)

	active, queued := pool.Status()
	assert.Equal(t, 3, active)
	assert.Equal(t, 2, queued)
	assert.Equal(t, 3, runner.startedCount(), "no more than max tasks may start")

	for _, i := range []int{1, 2, 3} {
		runner.finish(i, StatusFinished, "done")
	}
	waitStarted(t, runner, 5)
	runner.finish(4, StatusFinished, "done")
	runner.finish(5, StatusFinished, "done")
	pool.Wait()
}

func TestPool_PromotionOnCompletion(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(context.Background(), runner, 2)

	pool.AddTasks(makeTasks(3))
	waitStarted(t, runner, 2)

	runner.finish(1, StatusFinished, "done")
	waitStarted(t, runner, 3)

	_, queued := pool.Status()
	assert.Equal(t, 0, queued)
	runner.mu.Lock()
	order := append([]int(nil), runner.started...)
	runner.mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, order, "promotion follows enqueue order")

	runner.finish(2, StatusFinished, "done")
	runner.finish(3, StatusFinished, "done")
	pool.Wait()
}

func TestPool_ResultsClassified(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(context.Background(), runner, 3)

	var mu sync.Mutex
	results := map[int]Result{}
	pool.OnResult = func(r Result) {
		mu.Lock()
		results[r.Index] = r
		mu.Unlock()
	}

	pool.AddTasks(makeTasks(3))
	waitStarted(t, runner, 3)
	runner.finish(1, StatusFinished, "done")
	runner.finish(2, StatusError, "ERROR: Sign in to confirm you're not a bot")
	runner.finish(3, StatusError, "connection reset")
	pool.Wait()

	require.Len(t, results, 3)
	assert.Equal(t, ResultSuccess, results[1].Status)
	assert.Equal(t, "file", results[1].CookieSource)
	assert.Equal(t, ResultAuthError, results[2].Status)
	assert.Equal(t, ResultNetworkError, results[3].Status)
}

func TestPool_CancelAllClearsBacklog(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(context.Background(), runner, 1)

	pool.AddTasks(makeTasks(4))
	waitStarted(t, runner, 1)

	pool.CancelAll()
	active, queued := pool.Status()
	assert.Equal(t, 1, active, "running tasks are not killed")
	assert.Equal(t, 0, queued)
	assert.Equal(t, 1, runner.cancels)

	runner.finish(1, StatusFinished, "done")
	pool.Wait()
	assert.Equal(t, 1, runner.startedCount(), "cancelled backlog must not be promoted")
}

func TestPool_DefaultConcurrency(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(context.Background(), runner, 0)

	pool.AddTasks(makeTasks(5))
	waitStarted(t, runner, DefaultConcurrency)
	active, _ := pool.Status()
	assert.Equal(t, DefaultConcurrency, active)

	pool.CancelAll()
	for i := 1; i <= DefaultConcurrency; i++ {
		runner.finish(i, StatusError, "cancelled")
	}
	pool.Wait()
}

func TestPool_ResultReportedBeforePromotion(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(context.Background(), runner, 1)

	var mu sync.Mutex
	var order []string
	record := func(event string) {
		mu.Lock()
		order = append(order, event)
		mu.Unlock()
	}
	pool.OnResult = func(r Result) { record("result") }

	pool.AddTasks(makeTasks(2))
	waitStarted(t, runner, 1)
	record("finish")
	runner.finish(1, StatusFinished, "done")
	waitStarted(t, runner, 2)
	record("promoted")

	mu.Lock()
	got := append([]string(nil), order...)
	mu.Unlock()
	assert.Equal(t, []string{"finish", "result", "promoted"}, got,
		"the completed task's result is reported before the next task is admitted")

	runner.finish(2, StatusFinished, "done")
	pool.Wait()
}

func TestPool_ProgressForwarded(t *testing.T) {
	runner := newFakeRunner()
	pool := NewPool(context.Background(), runner, 1)

	var mu sync.Mutex
	var events []Progress
	pool.OnProgress = func(index int, p Progress) {
		mu.Lock()
		events = append(events, p)
		mu.Unlock()
	}

	pool.AddTasks(makeTasks(1))
	waitStarted(t, runner, 1)
	runner.finish(1, StatusFinished, "done")
	pool.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	assert.Equal(t, StatusFinished, events[len(events)-1].Status)
}
