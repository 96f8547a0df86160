package storage_test

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gqlite/gqlite/pkg/storage"
)

func engines(t *testing.T) map[string]storage.Engine {
	t.Helper()
	badgerEngine, err := storage.NewBadgerEngineInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { badgerEngine.Close() })

	return map[string]storage.Engine{
		"badger": badgerEngine,
		"memory": storage.NewMemoryEngine(),
	}
}

func TestEnginePutGetDelete(t *testing.T) {
	for name, eng := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := eng.Get([]byte("missing"))
			require.ErrorIs(t, err, storage.ErrNotFound)

			require.NoError(t, eng.Put([]byte("k1"), []byte("v1")))
			v, err := eng.Get([]byte("k1"))
			require.NoError(t, err)
			require.Equal(t, "v1", string(v))

			require.NoError(t, eng.Put([]byte("k1"), []byte("v2")))
			v, err = eng.Get([]byte("k1"))
			require.NoError(t, err)
			require.Equal(t, "v2", string(v))

			require.NoError(t, eng.Delete([]byte("k1")))
			_, err = eng.Get([]byte("k1"))
			require.ErrorIs(t, err, storage.ErrNotFound)

			require.NoError(t, eng.Delete([]byte("k1")))
		})
	}
}

func TestEnginePrefixScanOrder(t *testing.T) {
	for name, eng := range engines(t) {
		t.Run(name, func(t *testing.T) {
			keys := []string{"Oa:1:c", "Oa:1:a", "Oa:1:b", "Ob:1:z", "N1"}
			for _, k := range keys {
				require.NoError(t, eng.Put([]byte(k), []byte{}))
			}

			it := eng.Iterator([]byte("Oa:1:"))
			var got []string
			for it.Next() {
				got = append(got, string(it.Key()))
			}
			require.NoError(t, it.Err())
			it.Close()
			require.Equal(t, []string{"Oa:1:a", "Oa:1:b", "Oa:1:c"}, got)
		})
	}
}

func TestEngineCloseRejectsFurtherOps(t *testing.T) {
	eng := storage.NewMemoryEngine()
	require.NoError(t, eng.Close())
	require.ErrorIs(t, eng.Put([]byte("k"), []byte("v")), storage.ErrClosed)
	_, err := eng.Get([]byte("k"))
	require.ErrorIs(t, err, storage.ErrClosed)
}

func TestSetLoggerAcceptsCustomAndNilLoggers(t *testing.T) {
	var buf bytes.Buffer
	storage.SetLogger(log.New(&buf, "", 0))
	defer storage.SetLogger(nil)

	require.NotPanics(t, func() { storage.SetLogger(nil) })
	require.NotPanics(t, func() { storage.SetLogger(log.New(&buf, "", 0)) })
}
