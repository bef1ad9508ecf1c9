// Package download builds per-task yt-dlp invocations, streams their
// progress protocol into structured events, and schedules tasks through a
// bounded-concurrency pool with a FIFO backlog.
package download

import "github.com/google/uuid"

// Mode selects what a task downloads.
type Mode string

const (
	ModeAudio    Mode = "audio"
	ModeVideo    Mode = "video"
	ModeTogether Mode = "together"
	// ModeNone downloads nothing but the cover image.
	ModeNone Mode = "none"
)

// ClipWindow bounds a download to a start/end second range of the source.
type ClipWindow struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Task is one download request. Caller-constructed, immutable, consumed
// by exactly one pool worker.
type Task struct {
	ID      string
	URL     string
	Dir     string
	Mode    Mode
	Quality string
	Clip    *ClipWindow
	Cover   bool
}

// NewTask builds a Task with a fresh correlation ID.
func NewTask(url, dir string, mode Mode, quality string) Task {
	return Task{
		ID:      uuid.NewString(),
		URL:     url,
		Dir:     dir,
		Mode:    mode,
		Quality: quality,
	}
}

// ProgressStatus is the lifecycle phase reported by a progress event.
type ProgressStatus string

const (
	StatusPending     ProgressStatus = "pending"
	StatusDownloading ProgressStatus = "downloading"
	StatusConverting  ProgressStatus = "converting"
	StatusFinished    ProgressStatus = "finished"
	StatusError       ProgressStatus = "error"
)

// Progress is one live progress event for a task. Events per task are
// strictly ordered and end with exactly one terminal event.
type Progress struct {
	Index   int
	Status  ProgressStatus
	Percent float64
	Speed   string
	ETA     string
	Message string
}

// Terminal reports whether no further events follow this one.
func (p Progress) Terminal() bool {
	return p.Status == StatusFinished || p.Status == StatusError
}

// ResultStatus classifies how a task ended.
type ResultStatus string

const (
	ResultSuccess      ResultStatus = "success"
	ResultAuthError    ResultStatus = "auth_error"
	ResultNetworkError ResultStatus = "network_error"
	ResultUnknown      ResultStatus = "unknown"
)

// Result is the single terminal record for a task.
type Result struct {
	Index        int
	Status       ResultStatus
	Message      string
	CookieSource string
}
