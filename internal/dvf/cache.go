package dvf

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"immoval/server/internal/models"
)

// datasetCache keeps normalized regional tables in memory, keyed by
// region and invalidated when the file's modification time changes.
// Each entry has its own lock so at most one goroutine parses a given
// region at a time while other regions load in parallel.
type datasetCache struct {
	loader  *Loader
	logger  *logrus.Logger
	mu      sync.Mutex
	entries map[string]*cacheEntry
}

type cacheEntry struct {
	mu           sync.Mutex
	loaded       bool
	modTime      time.Time
	transactions []models.Transaction
}

func newDatasetCache(loader *Loader, logger *logrus.Logger) *datasetCache {
	return &datasetCache{
		loader:  loader,
		logger:  logger,
		entries: make(map[string]*cacheEntry),
	}
}

// Get returns the normalized transactions for a region, loading and
// parsing the backing file when absent or stale.
func (c *datasetCache) Get(region string) ([]models.Transaction, error) {
	c.mu.Lock()
	entry, ok := c.entries[region]
	if !ok {
		entry = &cacheEntry{}
		c.entries[region] = entry
	}
	c.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	_, modTime, err := c.loader.Locate(region)
	if err != nil {
		return nil, err
	}

	if entry.loaded && entry.modTime.Equal(modTime) {
		return entry.transactions, nil
	}

	table, err := c.loader.Load(region)
	if err != nil {
		return nil, err
	}
	transactions, err := Normalize(region, table)
	if err != nil {
		return nil, err
	}

	entry.loaded = true
	entry.modTime = modTime
	entry.transactions = transactions

	c.logger.WithFields(logrus.Fields{
		"region":       region,
		"transactions": len(transactions),
	}).Debug("Cached regional dataset")

	return transactions, nil
}
