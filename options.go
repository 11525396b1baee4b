package shelf

import "time"

// Option is a function that configures a Store.
type Option func(*storeOptions)

// storeOptions holds configuration options for opening a store.
type storeOptions struct {
	config Config
	logger Logger
}

// WithConfig replaces the whole configuration. Options given after it still apply.
func WithConfig(config Config) Option {
	return func(o *storeOptions) {
		o.config = config
	}
}

// WithAllowObjects enables or disables the OBJECT serialization kind for writes.
//
// Example:
//
//	store, err := shelf.Open("app.db", shelf.WithAllowObjects(true))
func WithAllowObjects(allow bool) Option {
	return func(o *storeOptions) {
		o.config.AllowObjects = allow
	}
}

// WithCompression sets the compression applied to large values.
//
// Example:
//
//	store, err := shelf.Open("app.db", shelf.WithCompression("zstd:9"))
func WithCompression(compression string) Option {
	return func(o *storeOptions) {
		o.config.Compression = compression
	}
}

// WithCompressionThreshold sets the smallest serialized size, in bytes,
// that gets compressed.
func WithCompressionThreshold(bytes int) Option {
	return func(o *storeOptions) {
		o.config.CompressionThreshold = bytes
	}
}

// WithBusyTimeout sets how long SQLite waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *storeOptions) {
		o.config.BusyTimeout = d
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(logger Logger) Option {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// SetOption is a function that configures a Set or SetMany operation.
type SetOption func(*setOptions)

// setOptions holds options for write operations.
type setOptions struct {
	ttl time.Duration
}

// WithTTL makes the written rows expire after d. Expired rows are invisible
// to reads and are removed by PurgeExpired. A zero or negative d means no
// expiry.
//
// Example:
//
//	sessions.Set(shelf.TextKey(id), token, shelf.WithTTL(time.Hour))
func WithTTL(d time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = d
	}
}

// ListOption is a function that configures a ListKeys operation.
type ListOption func(*listOptions)

// listOptions holds options for key listing.
type listOptions struct {
	like string
}

// WithLike keeps only keys matching a SQL LIKE pattern ('%' and '_'
// wildcards, ASCII case-insensitive).
//
// Example:
//
//	keys, err := users.ListKeys(shelf.WithLike("admin:%"))
func WithLike(pattern string) ListOption {
	return func(o *listOptions) {
		o.like = pattern
	}
}

// RenameOption is a function that configures a Rename operation.
type RenameOption func(*renameOptions)

// renameOptions holds the rename conflict policy.
type renameOptions struct {
	mustExist bool
	overwrite bool
}

func defaultRenameOptions() renameOptions {
	return renameOptions{mustExist: true, overwrite: false}
}

// MustExist controls whether a missing source key aborts the rename with
// ErrKeyNotFound (true, the default) or is skipped.
func MustExist(v bool) RenameOption {
	return func(o *renameOptions) {
		o.mustExist = v
	}
}

// Overwrite controls whether an existing target key is replaced (true) or
// aborts the rename with ErrKeyAlreadyExists (false, the default).
func Overwrite(v bool) RenameOption {
	return func(o *renameOptions) {
		o.overwrite = v
	}
}
