package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-dl/vidra/internal/config"
	"github.com/vidra-dl/vidra/internal/download"
)

func writeBatchFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testCmdConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{SettingsPath: filepath.Join(t.TempDir(), "settings.yaml")}
}

func TestReadBatchFile(t *testing.T) {
	path := writeBatchFile(t, `
- link: https://youtu.be/a
  dir: /downloads
  mode: audio
- link: https://youtu.be/b
  clip: 10-30
  cover: true
`)
	tasks, err := readBatchFile(testCmdConfig(t), path)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	assert.Equal(t, download.ModeAudio, tasks[0].Mode)
	assert.Equal(t, "/downloads", tasks[0].Dir)
	assert.Equal(t, download.ModeTogether, tasks[1].Mode, "mode defaults to together")
	require.NotNil(t, tasks[1].Clip)
	assert.Equal(t, 10, tasks[1].Clip.Start)
	assert.Equal(t, 30, tasks[1].Clip.End)
	assert.True(t, tasks[1].Cover)
}

func TestReadBatchFile_SkipsInvalidMode(t *testing.T) {
	path := writeBatchFile(t, `
- link: https://youtu.be/a
  mode: foo
- link: https://youtu.be/b
  mode: video
`)
	tasks, err := readBatchFile(testCmdConfig(t), path)
	require.NoError(t, err)
	require.Len(t, tasks, 1, "entry with an unknown mode is skipped")
	assert.Equal(t, download.ModeVideo, tasks[0].Mode)
}

func TestReadBatchFile_SkipsEmptyLinkAndBadClip(t *testing.T) {
	path := writeBatchFile(t, `
- dir: /downloads
- link: https://youtu.be/a
  clip: backwards
- link: https://youtu.be/b
`)
	tasks, err := readBatchFile(testCmdConfig(t), path)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "https://youtu.be/b", tasks[0].URL)
}

func TestParseMode(t *testing.T) {
	for _, name := range []string{"audio", "video", "together", "none"} {
		mode, err := parseMode(name)
		require.NoError(t, err)
		assert.Equal(t, download.Mode(name), mode)
	}
	_, err := parseMode("foo")
	assert.Error(t, err)
}

func TestParseClip(t *testing.T) {
	clip, err := parseClip("30-90")
	require.NoError(t, err)
	assert.Equal(t, 30, clip.Start)
	assert.Equal(t, 90, clip.End)

	for _, bad := range []string{"90-30", "30", "a-b", "10-10"} {
		_, err := parseClip(bad)
		assert.Error(t, err, "clip %q should be rejected", bad)
	}
}
