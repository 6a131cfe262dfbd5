// ABOUTME: BadgerDB-backed TTL cache in front of an Enricher
// ABOUTME: Keys by normalised domain or company name so repeated runs skip the network
package enrichment

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/harperreed/introengine/logger"
	"github.com/harperreed/introengine/models"
)

// OpenCache opens (or creates) the on-disk cache. An empty dir opens an
// in-memory store.
func OpenCache(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	return badger.Open(opts)
}

type CachedEnricher struct {
	next Enricher
	db   *badger.DB
	ttl  time.Duration
	log  *logger.Logger
}

func NewCachedEnricher(next Enricher, db *badger.DB, ttl time.Duration, log *logger.Logger) *CachedEnricher {
	if log == nil {
		log = logger.NewNop()
	}
	return &CachedEnricher{next: next, db: db, ttl: ttl, log: log}
}

func cacheKey(c models.Company) []byte {
	if d := models.NormalizeDomain(c.Domain); d != "" {
		return []byte("enrich:d:" + d)
	}
	return []byte("enrich:n:" + models.NormalizeCompanyName(c.Name))
}

// Enrich serves from cache when possible. Source errors are not cached.
func (c *CachedEnricher) Enrich(ctx context.Context, company models.Company) (Enrichment, error) {
	key := cacheKey(company)

	var cached Enrichment
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &cached)
		})
	})
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		c.log.Warn("enrichment cache read error", "key", string(key), "error", err)
	}

	fresh, err := c.next.Enrich(ctx, company)
	if err != nil {
		return Enrichment{}, err
	}

	val, err := json.Marshal(fresh)
	if err != nil {
		return fresh, nil
	}
	err = c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key, val)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		c.log.Warn("enrichment cache write error", "key", string(key), "error", err)
	}
	return fresh, nil
}
