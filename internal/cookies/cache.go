package cookies

import (
	"encoding/json"
	"os"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"

	"github.com/vidra-dl/vidra/utils"
)

// CacheTTL is how long a cached extraction result stays valid.
const CacheTTL = 24 * time.Hour

const cacheVersion = 1

type cacheEntry struct {
	Version   int    `json:"version"`
	Timestamp int64  `json:"timestamp"`
	Result    Result `json:"result"`
}

// Cache persists the last successful extraction result with a capture
// timestamp. Any read, decode, or version problem is treated as a miss,
// never an error.
type Cache struct {
	path string
	now  func() time.Time
	log  zerolog.Logger
}

func NewCache(path string) *Cache {
	return &Cache{
		path: path,
		now:  time.Now,
		log:  utils.GetLogger("cookie-cache"),
	}
}

// Get returns the stored result, or nil when the cache file is absent,
// unreadable, from another format version, or older than CacheTTL.
func (c *Cache) Get() *Result {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.log.Debug().Err(err).Msg("cookie cache unreadable, treating as miss")
		return nil
	}
	if entry.Version != cacheVersion {
		c.log.Debug().Int("version", entry.Version).Msg("cookie cache version mismatch, treating as miss")
		return nil
	}
	if c.now().Sub(time.Unix(entry.Timestamp, 0)) > CacheTTL {
		return nil
	}
	return &entry.Result
}

// Set overwrites the cache with a freshly timestamped entry. Persist
// failures are logged and swallowed: the extraction already succeeded
// in-process.
func (c *Cache) Set(result Result) {
	entry := cacheEntry{
		Version:   cacheVersion,
		Timestamp: c.now().Unix(),
		Result:    result,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		c.log.Error().Err(err).Msg("failed to encode cookie cache")
		return
	}
	if err := renameio.WriteFile(c.path, data, 0600); err != nil {
		c.log.Error().Err(err).Msg("failed to write cookie cache")
	}
}

// Remove deletes the cache file.
func (c *Cache) Remove() {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		c.log.Error().Err(err).Msg("failed to remove cookie cache")
	}
}

// ModAge returns hours since the cache file was last written. The second
// return is false when the file does not exist.
func (c *Cache) ModAge() (float64, bool) {
	info, err := os.Stat(c.path)
	if err != nil {
		return 0, false
	}
	return c.now().Sub(info.ModTime()).Hours(), true
}
