package storage

import "os"

// Store persists hives for SaveKey and LoadKey.
//
// Save must refuse to replace an existing hive with an error matching
// os.ErrExist. Load reports a missing hive with an error matching
// os.ErrNotExist.
type Store interface {
	Save(path string, k *Key) error
	Load(path string) (*Key, error)
}

// FileStore keeps each hive in its own file on disk.
type FileStore struct {
	// Mode is used for newly created files. Zero means 0600.
	Mode os.FileMode
}

func (f *FileStore) Save(path string, k *Key) (err error) {
	data, err := Marshal(k)
	if err != nil {
		return err
	}

	mode := f.Mode
	if mode == 0 {
		mode = 0o600
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = file.Write(data)
	return err
}

func (f *FileStore) Load(path string) (*Key, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Unmarshal(data)
}

var _ Store = (*FileStore)(nil)
