package cookies

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"

	"github.com/vidra-dl/vidra/utils"
)

// DefaultDebugPort is the conventional Chrome remote-debugging port. A
// debugger already listening there is reused instead of launching a new
// browser instance.
const DefaultDebugPort = 9222

const (
	wsURLAttempts = 5
	wsURLInterval = time.Second
)

type debugTab struct {
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
}

var debugClient = &http.Client{Timeout: time.Second}

// debugTabs fetches the tab list from the local debug metadata endpoint.
func debugTabs(ctx context.Context, port int) ([]debugTab, error) {
	url := fmt.Sprintf("http://127.0.0.1:%d/json", port)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := debugClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("debug endpoint returned status %d", resp.StatusCode)
	}
	var tabs []debugTab
	if err := json.NewDecoder(resp.Body).Decode(&tabs); err != nil {
		return nil, err
	}
	return tabs, nil
}

// waitForSocketURL polls the metadata endpoint until a tab exposes its
// control-socket URL, up to wsURLAttempts tries one interval apart.
func waitForSocketURL(ctx context.Context, port int) string {
	for attempt := 0; attempt < wsURLAttempts; attempt++ {
		tabs, err := debugTabs(ctx, port)
		if err == nil && len(tabs) > 0 && tabs[0].WebSocketDebuggerURL != "" {
			return tabs[0].WebSocketDebuggerURL
		}
		select {
		case <-ctx.Done():
			return ""
		case <-time.After(wsURLInterval):
		}
	}
	return ""
}

// cdpConn is a minimal Chrome DevTools Protocol client over one websocket.
// Commands are issued sequentially with an incrementing id.
type cdpConn struct {
	conn   *websocket.Conn
	nextID int
}

func dialCDP(ctx context.Context, wsURL string) (*cdpConn, error) {
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing debug socket: %w", err)
	}
	conn.SetReadLimit(32 << 20) // cookie dumps can be large
	return &cdpConn{conn: conn}, nil
}

func (c *cdpConn) close() {
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

type cdpResponse struct {
	ID     int             `json:"id"`
	Result json.RawMessage `json:"result"`
}

// call issues one protocol command and reads messages until the matching
// response id arrives. Event notifications in between are skipped.
func (c *cdpConn) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	c.nextID++
	id := c.nextID
	payload, err := json.Marshal(map[string]any{"id": id, "method": method, "params": params})
	if err != nil {
		return nil, err
	}
	if err := c.conn.Write(ctx, websocket.MessageText, payload); err != nil {
		return nil, fmt.Errorf("sending %s: %w", method, err)
	}
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading %s response: %w", method, err)
		}
		var resp cdpResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			continue
		}
		if resp.ID == id {
			return resp.Result, nil
		}
	}
}

type cdpCookie struct {
	Name    string  `json:"name"`
	Value   string  `json:"value"`
	Domain  string  `json:"domain"`
	Path    string  `json:"path"`
	Secure  bool    `json:"secure"`
	Expires float64 `json:"expires"`
}

// getAllCookies issues Network.getAllCookies and converts the response.
// Session cookies report a negative expiry and map to 0.
func (c *cdpConn) getAllCookies(ctx context.Context) ([]Record, error) {
	raw, err := c.call(ctx, "Network.getAllCookies", map[string]any{})
	if err != nil {
		return nil, err
	}
	var result struct {
		Cookies []cdpCookie `json:"cookies"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decoding cookie list: %w", err)
	}
	records := make([]Record, 0, len(result.Cookies))
	for _, ck := range result.Cookies {
		expiry := int64(ck.Expires)
		if expiry < 0 {
			expiry = 0
		}
		records = append(records, Record{
			Name:   ck.Name,
			Value:  ck.Value,
			Domain: ck.Domain,
			Path:   ck.Path,
			Secure: ck.Secure,
			Expiry: expiry,
		})
	}
	return records, nil
}

// CDPStrategy obtains cookies through the Chrome remote-debug protocol.
// An already-listening debug endpoint is reused; otherwise a disposable
// headless instance is launched and torn down afterwards.
type CDPStrategy struct {
	domains []string
	port    int
	log     zerolog.Logger
}

func NewCDPStrategy(domains []string) *CDPStrategy {
	return &CDPStrategy{
		domains: domains,
		port:    DefaultDebugPort,
		log:     utils.GetLogger("cookie-cdp"),
	}
}

func (s *CDPStrategy) Name() Source { return SourceCDP }

func (s *CDPStrategy) Extract(ctx context.Context) Result {
	if tabs, err := debugTabs(ctx, s.port); err == nil && len(tabs) > 0 {
		s.log.Debug().Int("port", s.port).Msg("reusing existing debug endpoint")
		return s.fetch(ctx, tabs[0].WebSocketDebuggerURL)
	}

	browserPath := findBrowser()
	if browserPath == "" {
		return Result{Success: false, Error: "no chrome or chromium binary found"}
	}

	profileDir, err := os.MkdirTemp("", "vidra-cdp-profile-")
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("creating temp profile: %v", err)}
	}
	defer os.RemoveAll(profileDir)

	cmd := exec.Command(browserPath,
		"--headless=new",
		"--disable-gpu",
		"--no-sandbox",
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
		return Result{Success: false, Error: "could not connect to browser debug endpoint"}
	}
	return s.fetch(ctx, wsURL)
}

func (s *CDPStrategy) fetch(ctx context.Context, wsURL string) Result {
	conn, err := dialCDP(ctx, wsURL)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	defer conn.close()

	records, err := conn.getAllCookies(ctx)
	if err != nil {
		return Result{Success: false, Error: err.Error()}
	}
	return Result{
		Success: true,
		Cookies: filterDomains(records, s.domains),
		Source:  SourceCDP,
	}
}
