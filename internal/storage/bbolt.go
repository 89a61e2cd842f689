package storage

import (
	"context"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	MetaBucket    = []byte("meta")    // Format version and timestamps
	EntriesBucket = []byte("entries") // Stored values, keyed as given
)

// Meta keys
var (
	MetaVersion  = []byte("version")
	MetaCreated  = []byte("created")
	MetaModified = []byte("modified")
)

const boltFormatVersion = "1"

// Bolt provides BBolt-based persistent storage
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates a database file and makes sure its buckets exist
func OpenBolt(path string) (*Bolt, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	b := &Bolt{db: db}
	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Bolt) initialize() error {
	return b.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{MetaBucket, EntriesBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket(MetaBucket)
		if meta.Get(MetaVersion) != nil {
			return nil
		}
		if err := meta.Put(MetaVersion, []byte(boltFormatVersion)); err != nil {
			return err
		}
		created, _ := time.Now().MarshalBinary()
		if err := meta.Put(MetaCreated, created); err != nil {
			return err
		}
		return meta.Put(MetaModified, created)
	})
}

// Path returns the database file path
func (b *Bolt) Path() string {
	return b.db.Path()
}

// Close closes the database
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Get retrieves the value stored under key
func (b *Bolt) Get(_ context.Context, key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		entries := tx.Bucket(EntriesBucket)
		if entries == nil {
			return fmt.Errorf("entries bucket not found")
		}
		v := entries.Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// Make a copy since the slice is only valid during the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	return data, err
}

// Set stores value under key and bumps the modified timestamp
func (b *Bolt) Set(_ context.Context, key string, value []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(EntriesBucket).Put([]byte(key), value); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Delete removes key; deleting an absent key is not an error
func (b *Bolt) Delete(_ context.Context, key string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		entries := tx.Bucket(EntriesBucket)
		if entries.Get([]byte(key)) == nil {
			return nil
		}
		if err := entries.Delete([]byte(key)); err != nil {
			return err
		}
		return touch(tx)
	})
}

// Keys returns all stored keys in byte order
func (b *Bolt) Keys(_ context.Context) ([]string, error) {
	var keys []string
	err := b.db.View(func(tx *bolt.Tx) error {
		entries := tx.Bucket(EntriesBucket)
		if entries == nil {
			return nil
		}
		return entries.ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, err
}

// Modified returns the time of the last write
func (b *Bolt) Modified() (time.Time, error) {
	var modified time.Time
	err := b.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(MetaBucket).Get(MetaModified)
		if data == nil {
			return fmt.Errorf("modified time not found")
		}
		return modified.UnmarshalBinary(data)
	})
	return modified, err
}

func touch(tx *bolt.Tx) error {
	modified, _ := time.Now().MarshalBinary()
	return tx.Bucket(MetaBucket).Put(MetaModified, modified)
}

// Compact creates a compacted copy of the database, removing unused space.
// Expired and removed entries leave free pages behind until this runs.
func (b *Bolt) Compact() error {
	srcPath := b.db.Path()
	tmpPath := srcPath + ".compact"

	// Create new database
	dst, err := bolt.Open(tmpPath, 0600, nil)
	if err != nil {
		return fmt.Errorf("failed to create compact database: %w", err)
	}

	// Copy all buckets
	err = b.db.View(func(srcTx *bolt.Tx) error {
		return dst.Update(func(dstTx *bolt.Tx) error {
			return srcTx.ForEach(func(name []byte, srcBucket *bolt.Bucket) error {
				dstBucket, err := dstTx.CreateBucketIfNotExists(name)
				if err != nil {
					return err
				}
				return srcBucket.ForEach(func(k, v []byte) error {
					return dstBucket.Put(k, v)
				})
			})
		})
	})

	if err != nil {
		dst.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to copy data: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close compact database: %w", err)
	}

	if err := b.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close source database: %w", err)
	}

	// Atomic replace
	backupPath := srcPath + ".backup"
	if err := os.Rename(srcPath, backupPath); err != nil {
		return fmt.Errorf("failed to backup original: %w", err)
	}
	if err := os.Rename(tmpPath, srcPath); err != nil {
		os.Rename(backupPath, srcPath) // rollback
		return fmt.Errorf("failed to replace database: %w", err)
	}
	os.Remove(backupPath)

	// Reopen database
	b.db, err = bolt.Open(srcPath, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to reopen database: %w", err)
	}

	return nil
}
