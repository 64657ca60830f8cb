package graviton

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/deroproject/graviton"

	"github.com/HORNET-Storage/hornet-groups/lib/stores/kvp"
)

const bucketIndexTree = "_buckets"

// Trees maps kvp buckets onto graviton trees. Every write commits a new
// snapshot version.
type Trees struct {
	db *graviton.Store
	mu sync.Mutex
}

type Tree struct {
	name  string
	trees *Trees
}

type Iterator struct {
	cursor  *graviton.Cursor
	started bool
	k, v    []byte
	err     error
}

var _ kvp.KeyValueStore = (*Trees)(nil)

// InitTrees opens a disk-backed store under path.
func InitTrees(path string) (*Trees, error) {
	db, err := graviton.NewDiskStore(path)
	if err != nil {
		return nil, fmt.Errorf("could not open graviton store: %w", err)
	}
	return &Trees{db: db}, nil
}

// InitMemTrees opens a store that lives only in memory.
func InitMemTrees() (*Trees, error) {
	db, err := graviton.NewMemStore()
	if err != nil {
		return nil, err
	}
	return &Trees{db: db}, nil
}

func (t *Trees) Cleanup() error {
	t.db.Close()
	return nil
}

func (t *Trees) GetBucket(name string) kvp.KeyValueStoreBucket {
	return &Tree{name: name, trees: t}
}

func (t *Trees) GetBucketList() []string {
	snapshot, err := t.db.LoadSnapshot(0)
	if err != nil {
		return nil
	}
	index, err := snapshot.GetTree(bucketIndexTree)
	if err != nil {
		return nil
	}

	var list []string
	c := index.Cursor()
	for k, _, err := c.First(); err == nil; k, _, err = c.Next() {
		list = append(list, string(k))
	}
	sort.Strings(list)
	return list
}

func (t *Tree) GetPrefix() string {
	return t.name
}

func (t *Tree) current() (*graviton.Tree, error) {
	snapshot, err := t.trees.db.LoadSnapshot(0)
	if err != nil {
		return nil, err
	}
	return snapshot.GetTree(t.name)
}

func (t *Tree) Get(key string) ([]byte, error) {
	tree, err := t.current()
	if err != nil {
		return nil, err
	}

	value, err := tree.Get([]byte(key))
	if err != nil {
		return nil, getError(key, err)
	}
	return value, nil
}

// getError maps graviton's missing-leaf error to kvp.ErrKeyNotFound and
// passes everything else through.
func getError(key string, err error) error {
	if errors.Is(err, graviton.ErrNotFound) {
		return fmt.Errorf("%w: %s", kvp.ErrKeyNotFound, key)
	}
	return fmt.Errorf("could not read %s: %w", key, err)
}

func (t *Tree) Put(key string, value []byte) error {
	t.trees.mu.Lock()
	defer t.trees.mu.Unlock()

	snapshot, err := t.trees.db.LoadSnapshot(0)
	if err != nil {
		return err
	}
	tree, err := snapshot.GetTree(t.name)
	if err != nil {
		return err
	}
	index, err := snapshot.GetTree(bucketIndexTree)
	if err != nil {
		return err
	}

	if err := tree.Put([]byte(key), value); err != nil {
		return err
	}
	if err := index.Put([]byte(t.name), []byte{1}); err != nil {
		return err
	}

	_, err = graviton.Commit(tree, index)
	return err
}

func (t *Tree) Delete(keys []string) error {
	t.trees.mu.Lock()
	defer t.trees.mu.Unlock()

	tree, err := t.current()
	if err != nil {
		return err
	}

	changed := false
	for _, key := range keys {
		if _, err := tree.Get([]byte(key)); errors.Is(err, graviton.ErrNotFound) {
			continue
		} else if err != nil {
			return getError(key, err)
		}
		if err := tree.Delete([]byte(key)); err != nil {
			return err
		}
		changed = true
	}
	if !changed {
		return nil
	}

	_, err = graviton.Commit(tree)
	return err
}

// Scan iterates the tree as of the latest committed snapshot.
func (t *Tree) Scan() (kvp.Iterator, error) {
	tree, err := t.current()
	if err != nil {
		return nil, err
	}
	c := tree.Cursor()
	return &Iterator{cursor: &c}, nil
}

func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.started {
		it.started = true
		it.settle(it.cursor.First())
	} else if it.k != nil {
		it.settle(it.cursor.Next())
	}
	return it.k != nil
}

// settle stores one cursor step. ErrNoMoreKeys ends the scan cleanly; any
// other error ends it and is kept for Error.
func (it *Iterator) settle(k, v []byte, err error) {
	if err != nil {
		it.k, it.v = nil, nil
		if !errors.Is(err, graviton.ErrNoMoreKeys) {
			it.err = err
		}
		return
	}
	it.k, it.v = k, v
}

func (it *Iterator) Key() []byte {
	return it.k
}

func (it *Iterator) Value() []byte {
	return it.v
}

func (it *Iterator) Error() error {
	return it.err
}

func (it *Iterator) Close() error {
	return nil
}
