package download

import (
	"fmt"
	"time"

	"github.com/vidra-dl/vidra/internal/config"
)

// QualitySelectors maps user-facing quality names to yt-dlp format
// selectors for combined (video+audio) downloads.
var QualitySelectors = map[string]string{
	"auto":  "bestvideo+bestaudio/best",
	"1080p": "bestvideo*[height<=1080]+bestaudio/best",
	"720p":  "bestvideo*[height<=720]+bestaudio/best",
	"2160p": "bestvideo*[height=2160]+bestaudio/best",
}

const (
	audioSelector = "bestaudio[ext=m4a][acodec=aac]/bestaudio"
	videoSelector = "bestvideo"
)

// progressTemplate requests line-delimited JSON progress records on
// stdout with a fixed schema.
const progressTemplate = `{"status":"%(progress.status)s",` +
	`"downloaded":%(progress.downloaded_bytes)s,` +
	`"total":%(progress.total_bytes)s,` +
	`"speed":"%(progress.speed)s",` +
	`"eta":"%(progress.eta)s"}`

// buildArgs assembles the yt-dlp argv for a task, minus the leading
// binary path. The output template switches to a fragment-indexed,
// timestamped name when a clip window is set so several clips cut from
// one source never collide.
func buildArgs(cfg config.Config, task Task, index int, cookieArgs []string, now time.Time) []string {
	args := []string{
		"--ffmpeg-location", cfg.FFmpegPath,
		"--paths", task.Dir,
		"--no-overwrites",
		"--extractor-args", "youtube:player_client=default,-tv_simply",
	}
	args = append(args, cookieArgs...)

	if task.Clip != nil {
		args = append(args, "--download-sections", fmt.Sprintf("*%d-%d", task.Clip.Start, task.Clip.End))
		args = append(args, "--output", fmt.Sprintf("%%(title)s_frag_%d_%s.%%(ext)s", index, now.Format("15-04-05")))
	} else {
		args = append(args, "--output", "%(title)s_%(resolution)s.%(ext)s")
	}

	switch task.Mode {
	case ModeAudio:
		args = append(args, "-f", audioSelector)
	case ModeVideo:
		args = append(args, "-f", videoSelector)
	case ModeTogether:
		args = append(args, "-f", task.Quality)
	}

	args = append(args, "--progress-template", progressTemplate)
	args = append(args, task.URL)
	return args
}

// coverArgs assembles the argv for the best-effort thumbnail fetch.
func coverArgs(cfg config.Config, task Task) []string {
	return []string{
		"--write-thumbnail",
		"--skip-download",
		"--quiet",
		"--convert-thumbnails", "jpg",
		"--ffmpeg-location", cfg.FFmpegPath,
		"--paths", task.Dir,
		"--output", "%(title)s.%(ext)s",
		task.URL,
	}
}
