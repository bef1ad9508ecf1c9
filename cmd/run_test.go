package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidra-dl/vidra/internal/config"
	"github.com/vidra-dl/vidra/internal/download"
)

func TestRunPool_NoTasks(t *testing.T) {
	err := runPool(testCmdConfig(t), nil)
	assert.Error(t, err)
}

func TestRunPool_SavesDirEvenOnFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("stub scripts need a unix shell")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "yt-dlp")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\nexit 1\n"), 0755))
	jarPath := filepath.Join(dir, "cookies.txt")
	require.NoError(t, os.WriteFile(jarPath, []byte("# Netscape HTTP Cookie File\n"), 0600))

	cfg := config.Config{
		YtDlpPath:     stub,
		FFmpegPath:    "/usr/bin/ffmpeg",
		CookieJarPath: jarPath,
		SettingsPath:  filepath.Join(dir, "settings.yaml"),
	}
	downloadDir := filepath.Join(dir, "videos")
	task := download.NewTask("https://youtu.be/x", downloadDir, download.ModeVideo, "")

	err := runPool(cfg, []download.Task{task})
	require.Error(t, err, "failed task must surface as an error")
	assert.Equal(t, downloadDir, cfg.LoadSetting(config.SettingDownloadDir, ""),
		"the chosen directory is remembered regardless of the outcome")
}
