package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kailas-cloud/tablens/internal/domain"
)

var (
	bucketObjects = []byte("objects")
	bucketMeta    = []byte("object_meta")
)

// Info describes a stored object.
type Info struct {
	Key         string    `json:"key"`
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	StoredAt    time.Time `json:"stored_at"`
}

// Store is a bbolt-backed object store.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open opens or creates the store file at dbPath.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create blob directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open blob database: %w", err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketObjects, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores data under key, replacing any previous object, and returns the
// object path.
func (s *Store) Put(_ context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("blob key: %w", domain.ErrInvalidInput)
	}
	info := Info{Key: key, ContentType: contentType, Size: len(data), StoredAt: s.now().UTC()}
	meta, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("marshal blob info: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketObjects).Put([]byte(key), data); err != nil {
			return fmt.Errorf("store object: %w", err)
		}
		if err := tx.Bucket(bucketMeta).Put([]byte(key), meta); err != nil {
			return fmt.Errorf("store object info: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return string(bucketObjects) + "/" + key, nil
}

// Get returns a copy of the object. Missing objects yield domain.ErrNotFound.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketObjects).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		// bbolt memory is only valid inside the transaction
		out = append([]byte(nil), data...)
		return nil
	})
	return out, err
}

// Stat returns the object info.
func (s *Store) Stat(_ context.Context, key string) (Info, error) {
	var info Info
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte(key))
		if data == nil {
			return fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &info)
	})
	return info, err
}

// Exists reports whether key is stored.
func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	var exists bool
	err := s.db.View(func(tx *bolt.Tx) error {
		exists = tx.Bucket(bucketObjects).Get([]byte(key)) != nil
		return nil
	})
	return exists, err
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(_ context.Context, key string) (bool, error) {
	var existed bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		objects := tx.Bucket(bucketObjects)
		existed = objects.Get([]byte(key)) != nil
		if !existed {
			return nil
		}
		if err := objects.Delete([]byte(key)); err != nil {
			return fmt.Errorf("delete object: %w", err)
		}
		return tx.Bucket(bucketMeta).Delete([]byte(key))
	})
	return existed, err
}

// Ping checks that the database is readable.
func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketObjects) == nil {
			return fmt.Errorf("bucket %s missing", bucketObjects)
		}
		return nil
	})
}
