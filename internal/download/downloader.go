package download

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidra-dl/vidra/internal/config"
	"github.com/vidra-dl/vidra/internal/cookies"
	"github.com/vidra-dl/vidra/utils"
)

const (
	// downloadTimeout is the hard per-task subprocess ceiling.
	downloadTimeout = 600 * time.Second
	coverTimeout    = 30 * time.Second
	stderrLimit     = 150
)

// CookieStatuser is the slice of cookies.Manager the downloader needs.
type CookieStatuser interface {
	Status(ctx context.Context) cookies.Status
}

// Downloader runs yt-dlp for one task at a time per caller, resolving the
// cookie argument and translating the JSON progress protocol into typed
// events. A single Downloader is shared by all pool workers.
type Downloader struct {
	cfg       config.Config
	manager   CookieStatuser
	onMissing func() bool
	timeout   time.Duration
	cancelled atomic.Bool
	log       zerolog.Logger
}

// New builds a Downloader. onMissing decides whether to proceed without
// cookies when none can be resolved; nil means proceed.
func New(cfg config.Config, manager CookieStatuser, onMissing func() bool) *Downloader {
	return &Downloader{
		cfg:       cfg,
		manager:   manager,
		onMissing: onMissing,
		timeout:   downloadTimeout,
		log:       utils.GetLogger("downloader"),
	}
}

// Cancel requests cooperative cancellation. In-flight subprocesses are
// not killed; workers stop forwarding progress at the next checkpoint.
func (d *Downloader) Cancel() {
	d.cancelled.Store(true)
}

// Cancelled reports whether cooperative cancellation was requested.
func (d *Downloader) Cancelled() bool {
	return d.cancelled.Load()
}

// ResolveCookieArgs decides the cookie argument for one invocation. A jar
// file already on disk always wins without consulting the manager. Next
// the manager's status is checked; if not ready, the missing-cookie
// callback decides between aborting and degraded unauthenticated mode.
func (d *Downloader) ResolveCookieArgs(ctx context.Context) ([]string, string, error) {
	if _, err := os.Stat(d.cfg.CookieJarPath); err == nil {
		return []string{"--cookies", d.cfg.CookieJarPath}, string(cookies.SourceFile), nil
	}

	status := d.manager.Status(ctx)
	if status.Ready() {
		source := string(status.Source)
		if source == "" {
			source = "auto"
		}
		return []string{"--cookies", d.cfg.CookieJarPath}, source, nil
	}

	if d.onMissing != nil && !d.onMissing() {
		return nil, "", errors.New("download aborted: cookies unavailable")
	}
	d.log.Warn().Msg("no cookies available, downloading unauthenticated")
	return nil, "", nil
}

// Run executes one task, pushing progress events through emit until a
// single terminal event. It returns the cookie source used, empty when
// the task never reached the download stage.
func (d *Downloader) Run(ctx context.Context, task Task, index int, emit func(Progress)) string {
	if task.Cover {
		err := d.downloadCover(ctx, task)
		coverOnly := task.Mode == ModeNone
		switch {
		case err != nil:
			d.log.Warn().Err(err).Int("index", index).Msg("cover download failed")
			status := StatusPending // a note, not the task terminal
			if coverOnly {
				status = StatusError
			}
			emit(Progress{Index: index, Status: status, Message: fmt.Sprintf("cover #%d failed", index)})
		case coverOnly:
			emit(Progress{Index: index, Status: StatusFinished, Message: fmt.Sprintf("cover #%d saved", index)})
		default:
			emit(Progress{Index: index, Status: StatusPending, Message: fmt.Sprintf("cover #%d saved", index)})
		}
	}
	if task.Mode == ModeNone {
		return ""
	}

	cookieArgs, source, err := d.ResolveCookieArgs(ctx)
	if err != nil {
		emit(Progress{Index: index, Status: StatusError, Message: err.Error()})
		return ""
	}

	args := buildArgs(d.cfg, task, index, cookieArgs, time.Now())
	d.log.Info().Str("task", task.ID).Str("url", task.URL).Msg("starting yt-dlp")
	d.log.Debug().Strs("args", args).Msg("yt-dlp invocation")

	runCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.cfg.YtDlpPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		emit(Progress{Index: index, Status: StatusError, Message: fmt.Sprintf("stdout pipe: %v", err)})
		return source
	}
	if err := cmd.Start(); err != nil {
		emit(Progress{Index: index, Status: StatusError, Message: fmt.Sprintf("starting yt-dlp: %v", err)})
		return source
	}

	emit(Progress{Index: index, Status: StatusDownloading, Message: "starting"})

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if d.cancelled.Load() {
			continue // drain without emitting; process runs to completion
		}
		if progress, ok := parseProgressLine(index, scanner.Text()); ok {
			emit(progress)
		}
	}

	err = cmd.Wait()
	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		emit(Progress{Index: index, Status: StatusError, Message: fmt.Sprintf("timed out after %s", d.timeout)})
	case err != nil:
		emit(Progress{Index: index, Status: StatusError, Message: truncate(stderr.String(), stderrLimit)})
	default:
		emit(Progress{Index: index, Status: StatusFinished, Message: "done"})
	}
	return source
}

type progressLine struct {
	Status     string `json:"status"`
	Downloaded int64  `json:"downloaded"`
	Total      int64  `json:"total"`
	Speed      string `json:"speed"`
	ETA        string `json:"eta"`
}

// parseProgressLine converts one stdout line into a progress event.
// Non-JSON lines only surface when they carry an error marker.
func parseProgressLine(index int, line string) (Progress, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Progress{}, false
	}

	var record progressLine
	if err := json.Unmarshal([]byte(line), &record); err != nil {
		if strings.Contains(strings.ToLower(line), "error") {
			return Progress{Index: index, Status: StatusError, Message: line}, true
		}
		return Progress{}, false
	}

	switch record.Status {
	case "downloading":
		total := record.Total
		if total == 0 {
			total = 1
		}
		percent := float64(record.Downloaded) / float64(total) * 100
		return Progress{
			Index:   index,
			Status:  StatusDownloading,
			Percent: percent,
			Speed:   record.Speed,
			ETA:     record.ETA,
			Message: fmt.Sprintf("%.1f%% | %s | ETA %s", percent, record.Speed, record.ETA),
		}, true
	case "finished":
		// Fragment complete; conversion or merging follows before exit.
		return Progress{Index: index, Status: StatusConverting, Message: "processing"}, true
	}
	return Progress{}, false
}

func (d *Downloader) downloadCover(ctx context.Context, task Task) error {
	coverCtx, cancel := context.WithTimeout(ctx, coverTimeout)
	defer cancel()
	cmd := exec.CommandContext(coverCtx, d.cfg.YtDlpPath, coverArgs(d.cfg, task)...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("thumbnail fetch: %w", err)
	}
	return nil
}

func truncate(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
