package graviton

import (
	"fmt"
	"testing"

	"github.com/deroproject/graviton"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HORNET-Storage/hornet-groups/lib/stores/kvp"
	"github.com/HORNET-Storage/hornet-groups/lib/stores/kvp/kvptest"
)

func TestMemTrees(t *testing.T) {
	kvptest.Run(t, func(t *testing.T) kvp.KeyValueStore {
		trees, err := InitMemTrees()
		require.NoError(t, err)
		return trees
	})
}

func TestDiskTrees(t *testing.T) {
	kvptest.Run(t, func(t *testing.T) kvp.KeyValueStore {
		trees, err := InitTrees(t.TempDir())
		require.NoError(t, err)
		return trees
	})
}

func TestGetErrorMapping(t *testing.T) {
	trees, err := InitMemTrees()
	require.NoError(t, err)
	defer trees.Cleanup()

	_, err = trees.GetBucket("b").Get("missing")
	assert.ErrorIs(t, err, kvp.ErrKeyNotFound)

	assert.ErrorIs(t, getError("k", fmt.Errorf("wrapped: %w", graviton.ErrNotFound)), kvp.ErrKeyNotFound)
	err = getError("k", graviton.ErrCorruption)
	assert.ErrorIs(t, err, graviton.ErrCorruption)
	assert.NotErrorIs(t, err, kvp.ErrKeyNotFound)
}

func TestIteratorKeepsCursorError(t *testing.T) {
	it := &Iterator{started: true}
	it.settle([]byte("k"), []byte("v"), nil)
	assert.Equal(t, []byte("k"), it.Key())

	it.settle(nil, nil, graviton.ErrNoMoreKeys)
	assert.Nil(t, it.Key())
	assert.NoError(t, it.Error())

	it.settle(nil, nil, graviton.ErrCorruption)
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Error(), graviton.ErrCorruption)
}
