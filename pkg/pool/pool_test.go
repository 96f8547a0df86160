package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigureAndIsEnabled(t *testing.T) {
	orig := globalConfig
	defer func() { globalConfig = orig }()

	Configure(Config{Enabled: false, MaxSize: 10})
	require.False(t, IsEnabled())

	Configure(Config{Enabled: true, MaxSize: 1000})
	require.True(t, IsEnabled())
}

func TestStringBuilderPool(t *testing.T) {
	orig := globalConfig
	defer func() { globalConfig = orig }()
	Configure(Config{Enabled: true, MaxSize: 1000})

	b := GetStringBuilder()
	require.Equal(t, 0, b.Len())

	b.WriteString("hello")
	b.WriteByte(' ')
	b.WriteString("world")
	require.Equal(t, "hello world", b.String())

	PutStringBuilder(b)

	b2 := GetStringBuilder()
	require.Equal(t, 0, b2.Len(), "builder must come back reset")
}

func TestStringBuilderPoolDropsOversizedBuffers(t *testing.T) {
	orig := globalConfig
	defer func() { globalConfig = orig }()
	Configure(Config{Enabled: true, MaxSize: 1000})

	b := &StringBuilder{buf: make([]byte, 0, 128*1024)}
	PutStringBuilder(b) // should not panic, and must not be pooled back

	require.NotPanics(t, func() { PutStringBuilder(nil) })
}

func TestStringBuilderDisabledPoolingBypassesPool(t *testing.T) {
	orig := globalConfig
	defer func() { globalConfig = orig }()
	Configure(Config{Enabled: false, MaxSize: 1000})

	b := GetStringBuilder()
	b.WriteString("x")
	require.Equal(t, "x", b.String())
	PutStringBuilder(b) // no-op, must not panic
}

func TestStringSlicePool(t *testing.T) {
	orig := globalConfig
	defer func() { globalConfig = orig }()
	Configure(Config{Enabled: true, MaxSize: 1000})

	s := GetStringSlice()
	require.Len(t, s, 0)

	s = append(s, "a", "b", "c")
	PutStringSlice(s)

	s2 := GetStringSlice()
	require.Len(t, s2, 0, "slice must come back with zero length")
}

func TestStringSlicePoolDropsOversizedSlices(t *testing.T) {
	orig := globalConfig
	defer func() { globalConfig = orig }()
	Configure(Config{Enabled: true, MaxSize: 4})

	big := make([]string, 0, 64)
	require.NotPanics(t, func() { PutStringSlice(big) })
}

func TestConcurrentPoolAccess(t *testing.T) {
	orig := globalConfig
	defer func() { globalConfig = orig }()
	Configure(Config{Enabled: true, MaxSize: 1000})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b := GetStringBuilder()
			b.WriteString("row")
			PutStringBuilder(b)

			s := GetStringSlice()
			s = append(s, "cell")
			PutStringSlice(s)
		}()
	}
	wg.Wait()
}
