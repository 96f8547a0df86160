// Package pool provides object pooling for gqlite's hot paths: building
// dedup keys for every matched row and rendering query results for the
// CLI both allocate a scratch buffer per call, which sync.Pool reuse
// turns from a GC cost into a cache hit under sustained query load.
package pool

import "sync"

// Config configures object pooling behavior.
type Config struct {
	// Enabled controls whether pooling is active.
	Enabled bool
	// MaxSize is the largest capacity a string slice may have and still
	// be returned to its pool. String builders use a fixed 64 KiB limit
	// instead.
	MaxSize int
}

var globalConfig = Config{Enabled: true, MaxSize: 1000}

// Configure sets the global pool configuration. Call early during
// startup; it is not safe to call concurrently with Get/Put calls.
func Configure(cfg Config) {
	globalConfig = cfg
}

// IsEnabled reports whether pooling is active.
func IsEnabled() bool {
	return globalConfig.Enabled
}

var stringBuilderPool = sync.Pool{
	New: func() any {
		return &StringBuilder{buf: make([]byte, 0, 256)}
	},
}

// StringBuilder is a poolable byte-accumulating string builder, used for
// the key strings the query executor builds to deduplicate rows and for
// the path-value text the CLI renders.
type StringBuilder struct {
	buf []byte
}

func (b *StringBuilder) WriteString(s string) { b.buf = append(b.buf, s...) }
func (b *StringBuilder) WriteByte(c byte)     { b.buf = append(b.buf, c) }
func (b *StringBuilder) String() string       { return string(b.buf) }
func (b *StringBuilder) Len() int             { return len(b.buf) }
func (b *StringBuilder) Reset()               { b.buf = b.buf[:0] }

// GetStringBuilder returns a reset builder from the pool.
func GetStringBuilder() *StringBuilder {
	if !globalConfig.Enabled {
		return &StringBuilder{buf: make([]byte, 0, 256)}
	}
	b := stringBuilderPool.Get().(*StringBuilder)
	b.Reset()
	return b
}

// PutStringBuilder returns b to the pool. Oversized buffers are dropped
// rather than pooled, so one pathologically long row doesn't pin memory.
func PutStringBuilder(b *StringBuilder) {
	if !globalConfig.Enabled || b == nil {
		return
	}
	if cap(b.buf) > 64*1024 {
		return
	}
	b.Reset()
	stringBuilderPool.Put(b)
}

var stringSlicePool = sync.Pool{
	New: func() any {
		return make([]string, 0, 16)
	},
}

// GetStringSlice returns a zero-length string slice from the pool.
func GetStringSlice() []string {
	if !globalConfig.Enabled {
		return make([]string, 0, 16)
	}
	return stringSlicePool.Get().([]string)[:0]
}

// PutStringSlice returns s to the pool.
func PutStringSlice(s []string) {
	if !globalConfig.Enabled {
		return
	}
	if cap(s) > globalConfig.MaxSize {
		return
	}
	stringSlicePool.Put(s[:0])
}
