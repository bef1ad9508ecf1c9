package download

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vidra-dl/vidra/utils"
)

// DefaultConcurrency is the pool's worker ceiling when none is given.
const DefaultConcurrency = 3

// TaskRunner executes one task, emitting progress until a terminal event.
// Satisfied by *Downloader.
type TaskRunner interface {
	Run(ctx context.Context, task Task, index int, emit func(Progress)) string
	Cancel()
}

type queuedTask struct {
	index int
	task  Task
}

// Pool runs download tasks through a bounded set of workers with a FIFO
// backlog. Admission is serialized under one mutex: AddTasks and task
// completion are the only writers of the active set and the queue, and
// exactly one queued task is promoted per completion.
type Pool struct {
	downloader TaskRunner
	max        int
	ctx        context.Context

	// Callbacks fire outside the admission lock except OnStatus, which
	// reflects a consistent snapshot. Set them before AddTasks.
	OnProgress func(index int, p Progress)
	OnResult   func(r Result)
	OnStatus   func(active, queued int)

	mu        sync.Mutex
	queue     []queuedTask
	active    map[int]struct{}
	nextIndex int
	wg        sync.WaitGroup
	log       zerolog.Logger
}

// NewPool builds a pool over the shared downloader with the given worker
// ceiling. max values below 1 fall back to DefaultConcurrency.
func NewPool(ctx context.Context, downloader TaskRunner, max int) *Pool {
	if max < 1 {
		max = DefaultConcurrency
	}
	return &Pool{
		downloader: downloader,
		max:        max,
		ctx:        ctx,
		active:     map[int]struct{}{},
		log:        utils.GetLogger("download-pool"),
	}
}

// AddTasks enqueues all tasks in order, then admits from the queue head
// while slots remain. Task indexes are assigned 1-based in enqueue order.
func (p *Pool) AddTasks(tasks []Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, task := range tasks {
		p.nextIndex++
		p.queue = append(p.queue, queuedTask{index: p.nextIndex, task: task})
	}
	p.admitLocked()
}

// admitLocked promotes queued tasks into free slots and reports the pool
// snapshot. Caller must hold mu.
func (p *Pool) admitLocked() {
	for len(p.queue) > 0 && len(p.active) < p.max {
		next := p.queue[0]
		p.queue = p.queue[1:]
		p.active[next.index] = struct{}{}
		p.wg.Add(1)
		go p.runTask(next.index, next.task)
	}
	if p.OnStatus != nil {
		p.OnStatus(len(p.active), len(p.queue))
	}
}

func (p *Pool) runTask(index int, task Task) {
	defer p.wg.Done()

	var last Progress
	source := p.downloader.Run(p.ctx, task, index, func(progress Progress) {
		last = progress
		if p.OnProgress != nil {
			p.OnProgress(index, progress)
		}
	})
	result := buildResult(index, last, source)

	// Completion order: leave the active set, report the result, then
	// admit from the backlog.
	p.mu.Lock()
	delete(p.active, index)
	p.mu.Unlock()

	p.log.Debug().Int("index", index).Str("status", string(result.Status)).Msg("task finished")
	if p.OnResult != nil {
		p.OnResult(result)
	}

	p.mu.Lock()
	p.admitLocked()
	p.mu.Unlock()
}

func buildResult(index int, last Progress, cookieSource string) Result {
	switch last.Status {
	case StatusFinished:
		return Result{Index: index, Status: ResultSuccess, Message: last.Message, CookieSource: cookieSource}
	case StatusError:
		return Result{Index: index, Status: Classify(last.Message), Message: last.Message, CookieSource: cookieSource}
	default:
		return Result{Index: index, Status: ResultUnknown, Message: "no terminal progress reported"}
	}
}

// Status returns a consistent (active, queued) snapshot.
func (p *Pool) Status() (active, queued int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active), len(p.queue)
}

// CancelAll clears the backlog and signals cooperative cancellation.
// Already-running subprocesses are not killed; they stop being reported
// at the next checkpoint and run to completion.
func (p *Pool) CancelAll() {
	p.mu.Lock()
	p.queue = nil
	if p.OnStatus != nil {
		p.OnStatus(len(p.active), 0)
	}
	p.mu.Unlock()
	p.downloader.Cancel()
	p.log.Info().Msg("downloads cancelled")
}

// Wait blocks until every admitted task has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
