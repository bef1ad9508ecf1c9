package cookies

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/vidra-dl/vidra/utils"
)

// settleDelay is how long the automated browser sits on the target page
// before the cookie jar is read, letting session cookies populate.
const settleDelay = 3 * time.Second

// automationPort is separate from DefaultDebugPort so the automation
// strategy never collides with a user's own debugging session.
const automationPort = 9223

// BrowserStrategy extracts cookies by driving a disposable headless
// browser: navigate to the target site, wait for the session to settle,
// read all cookies, tear the browser down whether or not it worked.
type BrowserStrategy struct {
	targetURL string
	domains   []string
	port      int
	log       zerolog.Logger
}

func NewBrowserStrategy(targetURL string, domains []string) *BrowserStrategy {
	return &BrowserStrategy{
		targetURL: targetURL,
		domains:   domains,
		port:      automationPort,
		log:       utils.GetLogger("cookie-browser"),
	}
}

func (s *BrowserStrategy) Name() Source { return SourceBrowser }

func (s *BrowserStrategy) Extract(ctx context.Context) Result {
	browserPath := findBrowser()
	if browserPath == "" {
		return Result{Success: false, Error: "no chrome or chromium binary found"}
	}

	profileDir, err := os.MkdirTemp("", "vidra-browser-profile-")
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("creating temp profile: %v", err)}
	}
	defer os.RemoveAll(profileDir)

	cmd := exec.Command(browserPath,
		"--headless=new",
		"--disable-gpu",
		"--no-sandbox",
		"--disable-dev-shm-usage",
		"--disable-blink-features=AutomationControlled",
		fmt.Sprintf("--remote-debugging-port=%d", s.port),
		"--user-data-dir="+profileDir,
		"--no-first-run",
		"about:blank",
	)
	if err := cmd.Start(); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("launching browser: %v", err)}
	}
	defer stopProcess(cmd, stopGrace)

	wsURL := waitForSocketURL(ctx, s.port)
	if wsURL == "" {
		return Result{Success: false, Error: "browser did not expose a debug socket"}
	}

	conn, err := dialCDP(ctx, wsURL)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	defer conn.close()

	if _, err := conn.call(ctx, "Page.navigate", map[string]any{"url": s.targetURL}); err != nil {
		return Result{Success: false, Error: fmt.Sprintf("navigating to %s: %v", s.targetURL, err)}
	}

	select {
	case <-ctx.Done():
		return Result{Success: false, Error: "extraction cancelled during settle"}
	case <-time.After(settleDelay):
	}

	records, err := conn.getAllCookies(ctx)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	s.log.Debug().Int("cookies", len(records)).Msg("browser automation extracted cookies")
	return Result{
		Success: true,
		Cookies: filterDomains(records, s.domains),
		Source:  SourceBrowser,
	}
}

// findBrowser locates a Chrome or Chromium binary via PATH, then the
// usual install locations per platform.
func findBrowser() string {
	names := []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "windows":
		candidates = []string{
			filepath.Join(os.Getenv("ProgramFiles"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("ProgramFiles(x86)"), "Google", "Chrome", "Application", "chrome.exe"),
			filepath.Join(os.Getenv("LOCALAPPDATA"), "Google", "Chrome", "Application", "chrome.exe"),
		}
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
