package config

import (
	"os"
	"os/exec"
	"path/filepath"
)

// Config holds the resolved paths and site parameters used across the
// cookie and download subsystems. It is built once at startup and passed
// by value into each component.
type Config struct {
	BaseDir       string
	YtDlpPath     string
	FFmpegPath    string
	CookieJarPath string
	CachePath     string
	SettingsPath  string
	TargetURL     string
	Domains       []string
}

// New builds a Config rooted at baseDir, creating the directory if needed.
// External tool paths resolve from PATH first, then next to the executable.
func New(baseDir string) Config {
	_ = os.MkdirAll(baseDir, 0755)
	return Config{
		BaseDir:       baseDir,
		YtDlpPath:     locateTool("yt-dlp"),
		FFmpegPath:    locateTool("ffmpeg"),
		CookieJarPath: filepath.Join(baseDir, "cookies.txt"),
		CachePath:     filepath.Join(baseDir, ".cookies_cache.json"),
		SettingsPath:  filepath.Join(baseDir, "settings.yaml"),
		TargetURL:     "https://www.youtube.com",
		Domains:       []string{"youtube.com", "google.com"},
	}
}

// DefaultBaseDir returns the per-user data directory for vidra.
func DefaultBaseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vidra"
	}
	return filepath.Join(home, ".vidra")
}

func locateTool(name string) string {
	if path, err := exec.LookPath(name); err == nil {
		return path
	}
	executable, err := os.Executable()
	if err != nil {
		return name
	}
	for _, candidate := range []string{name, name + ".exe"} {
		path := filepath.Join(filepath.Dir(executable), candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	// Fall back to the bare name so exec errors carry something readable.
	return name
}
