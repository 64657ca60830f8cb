package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/stores/kvp"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/kvp/kvptest"
)

func TestBuckets(t *testing.T) {
	kvptest.Run(t, func(t *testing.T) kvp.KeyValueStore {
		b, err := InitBuckets(filepath.Join(t.TempDir(), "events.db"))
		require.NoError(t, err)
		return b
	})
}
