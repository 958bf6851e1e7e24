package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"go.etcd.io/bbolt"

	"ragrec/internal/logging"
)

// CurrentSchemaVersion is bumped whenever the on-disk layout changes.
const CurrentSchemaVersion = 1

var (
	bucketEmbeddings = []byte("embeddings")
	bucketMeta       = []byte("meta")
	keyStamp         = []byte("stamp")
)

// Stamp identifies the embedding space the cached vectors belong to.
type Stamp struct {
	Version   int    `json:"version"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// Hash is a short digest of the stamp.
func (s Stamp) Hash() string {
	data, _ := json.Marshal(s)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:8])
}

// BoltCache persists embeddings in a bbolt file and mirrors them in memory.
// When the stored stamp differs from the one given at open time (other
// model, other dimension, older schema) the cached vectors are discarded.
type BoltCache struct {
	db      *bbolt.DB
	mu      sync.RWMutex
	entries map[string][]float32
}

// OpenBoltCache opens or creates the cache file at path.
func OpenBoltCache(path string, stamp Stamp) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open embedding cache %s: %w", path, err)
	}

	c := &BoltCache{db: db, entries: make(map[string][]float32)}
	if err := c.init(stamp); err != nil {
		db.Close()
		return nil, err
	}
	if err := c.load(); err != nil {
		db.Close()
		return nil, fmt.Errorf("load embedding cache: %w", err)
	}
	return c, nil
}

func (c *BoltCache) init(stamp Stamp) error {
	stamp.Version = CurrentSchemaVersion
	return c.db.Update(func(tx *bbolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}

		var old Stamp
		if raw := meta.Get(keyStamp); raw != nil {
			if err := json.Unmarshal(raw, &old); err != nil {
				old = Stamp{}
			}
		}

		if old != stamp && tx.Bucket(bucketEmbeddings) != nil {
			logging.Info().
				Str("old", old.Hash()).
				Str("new", stamp.Hash()).
				Str("model", stamp.Model).
				Msg("embedding space changed, clearing cache")
			if err := tx.DeleteBucket(bucketEmbeddings); err != nil {
				return err
			}
		}
		if _, err := tx.CreateBucketIfNotExists(bucketEmbeddings); err != nil {
			return err
		}

		data, err := json.Marshal(stamp)
		if err != nil {
			return err
		}
		return meta.Put(keyStamp, data)
	})
}

func (c *BoltCache) load() error {
	return c.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).ForEach(func(k, v []byte) error {
			vec, err := UnpackEmbedding(v)
			if err != nil {
				return nil // skip corrupted entries
			}
			c.entries[string(k)] = vec
			return nil
		})
	})
}

func (c *BoltCache) Get(_ context.Context, key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *BoltCache) Put(_ context.Context, key string, vec []float32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; exists {
		return nil
	}

	err := c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEmbeddings).Put([]byte(key), PackEmbedding(vec))
	})
	if err != nil {
		return err
	}
	c.entries[key] = vec
	return nil
}

func (c *BoltCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every cached vector.
func (c *BoltCache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketEmbeddings); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketEmbeddings)
		return err
	})
	if err != nil {
		return err
	}
	c.entries = make(map[string][]float32)
	return nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}
