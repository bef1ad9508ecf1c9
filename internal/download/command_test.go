package download

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-dl/vidra/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		YtDlpPath:     "/usr/bin/yt-dlp",
		FFmpegPath:    "/usr/bin/ffmpeg",
		CookieJarPath: "/tmp/cookies.txt",
	}
}

func argAfter(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i, a := range args {
		if a == flag {
			require.Less(t, i+1, len(args), "flag %s has no value", flag)
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

func TestBuildArgs_Basics(t *testing.T) {
	task := NewTask("https://youtu.be/x", "/downloads", ModeTogether, QualitySelectors["1080p"])
	args := buildArgs(testConfig(), task, 1, nil, time.Now())

	assert.Equal(t, "/usr/bin/ffmpeg", argAfter(t, args, "--ffmpeg-location"))
	assert.Equal(t, "/downloads", argAfter(t, args, "--paths"))
	assert.Contains(t, args, "--no-overwrites")
	assert.Equal(t, "youtube:player_client=default,-tv_simply", argAfter(t, args, "--extractor-args"))
	assert.Equal(t, task.URL, args[len(args)-1], "url must come last")
}

func TestBuildArgs_CookieArgsIncluded(t *testing.T) {
	task := NewTask("https://youtu.be/x", "/downloads", ModeVideo, "")
	args := buildArgs(testConfig(), task, 1, []string{"--cookies", "/tmp/cookies.txt"}, time.Now())
	assert.Equal(t, "/tmp/cookies.txt", argAfter(t, args, "--cookies"))
}

func TestBuildArgs_NoCookieArgs(t *testing.T) {
	task := NewTask("https://youtu.be/x", "/downloads", ModeVideo, "")
	args := buildArgs(testConfig(), task, 1, nil, time.Now())
	assert.NotContains(t, args, "--cookies")
}

func TestBuildArgs_ModeSelectors(t *testing.T) {
	cases := []struct {
		mode Mode
		want string
	}{
		{ModeAudio, audioSelector},
		{ModeVideo, videoSelector},
		{ModeTogether, QualitySelectors["720p"]},
	}
	for _, tc := range cases {
		task := NewTask("u", "d", tc.mode, QualitySelectors["720p"])
		args := buildArgs(testConfig(), task, 1, nil, time.Now())
		assert.Equal(t, tc.want, argAfter(t, args, "-f"), "mode %s", tc.mode)
	}
}

func TestBuildArgs_ClipTemplate(t *testing.T) {
	task := NewTask("u", "d", ModeVideo, "")
	task.Clip = &ClipWindow{Start: 10, End: 45}
	when := time.Date(2026, 1, 2, 9, 30, 15, 0, time.UTC)

	args := buildArgs(testConfig(), task, 7, nil, when)
	assert.Equal(t, "*10-45", argAfter(t, args, "--download-sections"))
	assert.Equal(t, "%(title)s_frag_7_09-30-15.%(ext)s", argAfter(t, args, "--output"))
}

func TestBuildArgs_DefaultTemplate(t *testing.T) {
	task := NewTask("u", "d", ModeVideo, "")
	args := buildArgs(testConfig(), task, 1, nil, time.Now())
	assert.Equal(t, "%(title)s_%(resolution)s.%(ext)s", argAfter(t, args, "--output"))
	assert.NotContains(t, args, "--download-sections")
}

func TestBuildArgs_ProgressTemplateBeforeURL(t *testing.T) {
	task := NewTask("https://youtu.be/x", "d", ModeVideo, "")
	args := buildArgs(testConfig(), task, 1, nil, time.Now())
	template := argAfter(t, args, "--progress-template")
	assert.True(t, strings.Contains(template, `"status":"%(progress.status)s"`))
	assert.Equal(t, template, args[len(args)-2], "template value directly precedes the url")
}

func TestCoverArgs(t *testing.T) {
	task := NewTask("https://youtu.be/x", "/downloads", ModeNone, "")
	args := coverArgs(testConfig(), task)

	assert.Contains(t, args, "--write-thumbnail")
	assert.Contains(t, args, "--skip-download")
	assert.Equal(t, "jpg", argAfter(t, args, "--convert-thumbnails"))
	assert.Equal(t, "/downloads", argAfter(t, args, "--paths"))
	assert.Equal(t, task.URL, args[len(args)-1])
}
