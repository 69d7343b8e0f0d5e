package storage

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// InmemoryStore keeps marshalled hives in memory, keyed by path.
type InmemoryStore struct {
	mu    sync.Mutex
	hives map[string][]byte
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		hives: make(map[string][]byte),
	}
}

func (i *InmemoryStore) Save(path string, k *Key) error {
	data, err := Marshal(k)
	if err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.hives[path]; ok {
		return &os.PathError{Op: "save", Path: path, Err: os.ErrExist}
	}

	i.hives[path] = data
	return nil
}

func (i *InmemoryStore) Load(path string) (*Key, error) {
	i.mu.Lock()
	data, ok := i.hives[path]
	i.mu.Unlock()

	if !ok {
		return nil, &os.PathError{Op: "load", Path: path, Err: os.ErrNotExist}
	}

	return Unmarshal(data)
}

// Paths lists the stored hives in sorted order.
func (i *InmemoryStore) Paths() []string {
	i.mu.Lock()
	defer i.mu.Unlock()

	paths := make([]string, 0, len(i.hives))
	for path := range i.hives {
		paths = append(paths, path)
	}

	sort.Strings(paths)
	return paths
}

// Backup returns every stored hive as a single JSON array of
// {"path": ..., "hive": ...} objects.
func (i *InmemoryStore) Backup() ([]byte, error) {
	doc := []byte("[]")

	for _, path := range i.Paths() {
		i.mu.Lock()
		hive := i.hives[path]
		i.mu.Unlock()

		entry, err := sjson.SetBytes([]byte("{}"), "path", path)
		if err != nil {
			return nil, err
		}

		if entry, err = sjson.SetRawBytes(entry, "hive", hive); err != nil {
			return nil, err
		}

		if doc, err = sjson.SetRawBytes(doc, "-1", entry); err != nil {
			return nil, err
		}
	}

	return doc, nil
}

// Restore replaces the contents of the store with a Backup.
func (i *InmemoryStore) Restore(backup []byte) error {
	if !gjson.ValidBytes(backup) {
		return fmt.Errorf("%w: invalid backup", ErrBadHive)
	}

	hives := make(map[string][]byte)
	var err error

	gjson.ParseBytes(backup).ForEach(func(_, entry gjson.Result) bool {
		hive := entry.Get("hive")
		if _, err = unmarshalKey(hive.Get("root")); err != nil {
			return false
		}

		hives[entry.Get("path").String()] = []byte(hive.Raw)
		return true
	})
	if err != nil {
		return err
	}

	i.mu.Lock()
	i.hives = hives
	i.mu.Unlock()

	return nil
}

var _ Store = (*InmemoryStore)(nil)
