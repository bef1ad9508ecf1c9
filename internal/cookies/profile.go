package cookies

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/vidra-dl/vidra/utils"
)

// chromeEpochOffset is seconds between the Windows NT epoch (1601-01-01)
// and the Unix epoch. Chrome stores expiry as microseconds since 1601.
const chromeEpochOffset int64 = 11_644_473_600

type profileStore struct {
	browser string
	kind    string // "firefox" or "chrome"
	path    string
}

// ProfileStrategy reads the installed browser's persisted cookie database
// directly, without launching any browser process. Firefox stores are
// resolved through profiles.ini; Chromium-family stores are fixed paths.
type ProfileStrategy struct {
	domains []string
	stores  func() []profileStore
	log     zerolog.Logger
}

func NewProfileStrategy(domains []string) *ProfileStrategy {
	return &ProfileStrategy{
		domains: domains,
		stores:  platformStores,
		log:     utils.GetLogger("cookie-profile"),
	}
}

func (s *ProfileStrategy) Name() Source { return SourceProfile }

func (s *ProfileStrategy) Extract(ctx context.Context) Result {
	var lastErr string
	for _, store := range s.stores() {
		if _, err := os.Stat(store.path); err != nil {
			continue
		}
		records, err := s.readStore(store)
		if err != nil {
			s.log.Debug().Err(err).Str("browser", store.browser).Msg("profile store unreadable")
			lastErr = err.Error()
			continue
		}
		filtered := filterDomains(records, s.domains)
		if len(filtered) == 0 {
			continue
		}
		s.log.Debug().Str("browser", store.browser).Int("cookies", len(filtered)).Msg("read cookies from profile")
		return Result{Success: true, Cookies: filtered, Source: SourceProfile}
	}
	if lastErr == "" {
		lastErr = "no readable browser profile found"
	}
	return Result{Success: false, Error: lastErr}
}

// readStore copies the live database aside first so the query never
// contends with a running browser's lock.
func (s *ProfileStrategy) readStore(store profileStore) ([]Record, error) {
	tempDir, cleanup, err := safeCopy(store.path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	dbPath := filepath.Join(tempDir, filepath.Base(store.path))
	switch store.kind {
	case "firefox":
		return queryFirefox(dbPath)
	case "chrome":
		return queryChrome(dbPath)
	default:
		return nil, fmt.Errorf("unknown profile store kind %q", store.kind)
	}
}

func queryFirefox(dbPath string) ([]Record, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening firefox cookie database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT name, value, host, path, expiry, isSecure FROM moz_cookies`)
	if err != nil {
		return nil, fmt.Errorf("querying firefox cookies: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var secure int
		if err := rows.Scan(&r.Name, &r.Value, &r.Domain, &r.Path, &r.Expiry, &secure); err != nil {
			return nil, fmt.Errorf("scanning firefox cookie row: %w", err)
		}
		r.Secure = secure != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

func queryChrome(dbPath string) ([]Record, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?immutable=1", dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening chrome cookie database: %w", err)
	}
	defer db.Close()

	// Encrypted values come back empty through the plain value column and
	// are skipped.
	rows, err := db.Query(`SELECT name, value, host_key, path, expires_utc, is_secure FROM cookies WHERE value != ''`)
	if err != nil {
		return nil, fmt.Errorf("querying chrome cookies: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var expiresUTC int64
		var secure int
		if err := rows.Scan(&r.Name, &r.Value, &r.Domain, &r.Path, &expiresUTC, &secure); err != nil {
			return nil, fmt.Errorf("scanning chrome cookie row: %w", err)
		}
		if expiresUTC > 0 {
			r.Expiry = expiresUTC/1_000_000 - chromeEpochOffset
		}
		r.Secure = secure != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// safeCopy copies a SQLite cookie file (plus -wal/-shm companions when
// present) into a temp directory. The caller must invoke cleanup.
func safeCopy(srcPath string) (string, func(), error) {
	tempDir, err := os.MkdirTemp("", "vidra-cookies-")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp directory: %w", err)
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	baseName := filepath.Base(srcPath)
	if err := copyFile(srcPath, filepath.Join(tempDir, baseName)); err != nil {
		cleanup()
		return "", nil, err
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		companion := srcPath + suffix
		if _, err := os.Stat(companion); err == nil {
			_ = copyFile(companion, filepath.Join(tempDir, baseName+suffix))
		}
	}
	return tempDir, cleanup, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}

// platformStores lists cookie database candidates in priority order.
func platformStores() []profileStore {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	var stores []profileStore
	addFirefox := func(iniPath string) {
		if profileDir := firefoxDefaultProfile(iniPath); profileDir != "" {
			stores = append(stores, profileStore{
				browser: "firefox",
				kind:    "firefox",
				path:    filepath.Join(profileDir, "cookies.sqlite"),
			})
		}
	}
	switch runtime.GOOS {
	case "darwin":
		addFirefox(filepath.Join(home, "Library", "Application Support", "Firefox", "profiles.ini"))
		stores = append(stores, profileStore{
			browser: "chrome", kind: "chrome",
			path: filepath.Join(home, "Library", "Application Support", "Google", "Chrome", "Default", "Cookies"),
		})
	case "windows":
		addFirefox(filepath.Join(os.Getenv("APPDATA"), "Mozilla", "Firefox", "profiles.ini"))
		stores = append(stores, profileStore{
			browser: "chrome", kind: "chrome",
			path: filepath.Join(os.Getenv("LOCALAPPDATA"), "Google", "Chrome", "User Data", "Default", "Network", "Cookies"),
		})
	default:
		addFirefox(filepath.Join(home, ".mozilla", "firefox", "profiles.ini"))
		stores = append(stores,
			profileStore{browser: "chrome", kind: "chrome", path: filepath.Join(home, ".config", "google-chrome", "Default", "Cookies")},
			profileStore{browser: "chromium", kind: "chrome", path: filepath.Join(home, ".config", "chromium", "Default", "Cookies")},
		)
	}
	return stores
}

// firefoxDefaultProfile resolves the default profile directory from a
// profiles.ini file. [Install*] Default= wins over [Profile*] Default=1.
func firefoxDefaultProfile(iniPath string) string {
	f, err := os.Open(iniPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	iniDir := filepath.Dir(iniPath)
	var installDefault, profileDefault, currentPath string
	var inInstall, inProfile, currentIsDefault bool

	flush := func() {
		if inProfile && currentIsDefault && profileDefault == "" {
			profileDefault = currentPath
		}
	}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			flush()
			section := strings.Trim(line, "[]")
			inInstall = strings.HasPrefix(section, "Install")
			inProfile = strings.HasPrefix(section, "Profile")
			currentPath = ""
			currentIsDefault = false
			continue
		}
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		switch {
		case inInstall && key == "Default" && installDefault == "":
			installDefault = filepath.Join(iniDir, filepath.FromSlash(value))
		case inProfile && key == "Path":
			currentPath = filepath.Join(iniDir, filepath.FromSlash(value))
		case inProfile && key == "Default" && value == "1":
			currentIsDefault = true
		}
	}
	flush()

	if installDefault != "" {
		return installDefault
	}
	return profileDefault
}
