package shelf

import (
	"fmt"
	"strings"
	"time"

	"github.com/aigotowork/shelf/internal/codec"
)

// Config holds the settings a store is opened with.
type Config struct {
	// AllowObjects enables the OBJECT serialization kind for values that are
	// not plain structured data. Reading OBJECT rows never requires it.
	// Default: false
	AllowObjects bool `json:"allow_objects"`

	// Compression is "", "none", "snappy", "zstd" or "zstd:LEVEL" (1-22).
	// Default: "" (no compression)
	Compression string `json:"compression"`

	// CompressionThreshold is the smallest serialized size, in bytes, that
	// gets compressed.
	// Default: 1024
	CompressionThreshold int `json:"compression_threshold"`

	// BusyTimeout is how long SQLite waits on a locked database before
	// failing. Zero keeps the engine default.
	// Default: 0
	BusyTimeout time.Duration `json:"busy_timeout"`

	// JournalMode is the SQLite journal mode.
	// Default: "WAL"
	JournalMode string `json:"journal_mode"`

	// Synchronous is the SQLite synchronous level.
	// Default: "NORMAL"
	Synchronous string `json:"synchronous"`

	// CacheSize is the SQLite page cache size (PRAGMA cache_size).
	// Default: 1000
	CacheSize int `json:"cache_size"`
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	return Config{
		AllowObjects:         false,
		Compression:          "",
		CompressionThreshold: codec.DefaultCompressionThreshold,
		BusyTimeout:          0,
		JournalMode:          "WAL",
		Synchronous:          "NORMAL",
		CacheSize:            1000,
	}
}

var (
	journalModes = []string{"DELETE", "TRUNCATE", "PERSIST", "MEMORY", "WAL", "OFF"}
	syncLevels   = []string{"OFF", "NORMAL", "FULL", "EXTRA"}
)

// Validate checks if the configuration is valid. Compression problems are
// reported with ErrUnknownCompressionAlgorithm or ErrInvalidCompressionLevel,
// everything else with ErrInvalidConfig.
func (c *Config) Validate() error {
	if _, err := codec.ParseCompression(c.Compression); err != nil {
		return err
	}
	if c.CompressionThreshold < 0 {
		return fmt.Errorf("%w: compression threshold must not be negative", ErrInvalidConfig)
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("%w: busy timeout must not be negative", ErrInvalidConfig)
	}
	if !oneOf(c.JournalMode, journalModes) {
		return fmt.Errorf("%w: journal mode %q", ErrInvalidConfig, c.JournalMode)
	}
	if !oneOf(c.Synchronous, syncLevels) {
		return fmt.Errorf("%w: synchronous level %q", ErrInvalidConfig, c.Synchronous)
	}
	return nil
}

// pragmas returns the statements applied to every new connection.
func (c *Config) pragmas() []string {
	pragmas := []string{
		"journal_mode = " + strings.ToUpper(c.JournalMode),
		"synchronous = " + strings.ToUpper(c.Synchronous),
		fmt.Sprintf("cache_size = %d", c.CacheSize),
		"temp_store = MEMORY",
	}
	if c.BusyTimeout > 0 {
		pragmas = append(pragmas, fmt.Sprintf("busy_timeout = %d", c.BusyTimeout.Milliseconds()))
	}
	return pragmas
}

func oneOf(value string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return true
		}
	}
	return false
}
