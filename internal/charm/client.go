// ABOUTME: Charm KV client wrapper for pain diary storage.
// ABOUTME: Provides thread-safe initialization and automatic cloud sync.
package charm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/charmbracelet/charm/client"
	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

const (
	dbName           = "painlog"
	defaultCharmHost = "charm.2389.dev"

	UserPrefix     = "user:"
	PhonePrefix    = "phone:"
	EntryPrefix    = "entry:"
	EntryKeyPrefix = "entry_key:"
	SeqPrefix      = "seq:"
)

var errReadOnly = errors.New("cannot write: database is locked by another process (MCP server?)")

// Store is the subset of *kv.KV the client relies on.
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Keys() ([][]byte, error)
	Sync() error
	Reset() error
	IsReadOnly() bool
	Close() error
}

var (
	globalClient *Client
	clientOnce   sync.Once
	clientErr    error
)

type Client struct {
	kv       Store
	autoSync bool
	mu       sync.RWMutex
}

// InitClient initializes the global Charm client.
// Thread-safe; can be called multiple times. CHARM_HOST is honoured when set.
func InitClient() (*Client, error) {
	clientOnce.Do(func() {
		if os.Getenv("CHARM_HOST") == "" {
			if err := os.Setenv("CHARM_HOST", defaultCharmHost); err != nil {
				clientErr = err
				return
			}
		}

		db, err := kv.OpenWithDefaultsFallback(dbName)
		if err != nil {
			clientErr = err
			return
		}

		globalClient = NewClient(db, true)

		// Pull remote data on startup (skip in read-only mode)
		if !db.IsReadOnly() {
			_ = db.Sync()
		}
	})

	return globalClient, clientErr
}

// NewClient wraps an already opened store.
func NewClient(store Store, autoSync bool) *Client {
	return &Client{kv: store, autoSync: autoSync}
}

// Close closes the KV database connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.kv != nil {
		return c.kv.Close()
	}
	return nil
}

// IsReadOnly returns true if the database is open in read-only mode.
// This happens when another process (like an MCP server) holds the lock.
func (c *Client) IsReadOnly() bool {
	return c.kv.IsReadOnly()
}

// Sync synchronizes local state with Charm Cloud.
func (c *Client) Sync() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.kv.IsReadOnly() {
		return nil
	}
	return c.kv.Sync()
}

// syncIfEnabled calls Sync if autoSync is enabled.
func (c *Client) syncIfEnabled() {
	if c.autoSync && !c.kv.IsReadOnly() {
		_ = c.kv.Sync()
	}
}

// ID returns the Charm user ID for the current account.
func (c *Client) ID() (string, error) {
	cc, err := client.NewClientWithDefaults()
	if err != nil {
		return "", fmt.Errorf("create charm client: %w", err)
	}
	return cc.ID()
}

// Reset wipes local data and rebuilds from Charm Cloud.
func (c *Client) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.kv.Reset()
}

// get reads a key; missing keys report found=false. Callers hold c.mu.
func (c *Client) get(key string) ([]byte, bool, error) {
	val, err := c.kv.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// set stores a value with the given key. Callers hold c.mu for writing.
func (c *Client) set(key string, data []byte) error {
	if c.kv.IsReadOnly() {
		return errReadOnly
	}
	return c.kv.Set([]byte(key), data)
}

// del removes a key. Callers hold c.mu for writing.
func (c *Client) del(key string) error {
	if c.kv.IsReadOnly() {
		return errReadOnly
	}
	return c.kv.Delete([]byte(key))
}

// listByPrefix returns all values with keys matching the given prefix,
// in key order. Callers hold c.mu.
func (c *Client) listByPrefix(prefix string) ([][]byte, error) {
	var results [][]byte
	prefixBytes := []byte(prefix)

	keys, err := c.kv.Keys()
	if err != nil {
		return nil, err
	}

	for _, key := range keys {
		if bytes.HasPrefix(key, prefixBytes) {
			val, err := c.kv.Get(key)
			if err != nil {
				return nil, err
			}
			results = append(results, val)
		}
	}

	return results, nil
}

// nextID increments and returns the named sequence. Callers hold c.mu for writing.
func (c *Client) nextID(name string) (int64, error) {
	current, err := c.currentID(name)
	if err != nil {
		return 0, err
	}
	next := current + 1
	if err := c.set(SeqPrefix+name, []byte(strconv.FormatInt(next, 10))); err != nil {
		return 0, err
	}
	return next, nil
}

// bumpID raises the named sequence to at least id.
func (c *Client) bumpID(name string, id int64) error {
	current, err := c.currentID(name)
	if err != nil {
		return err
	}
	if id <= current {
		return nil
	}
	return c.set(SeqPrefix+name, []byte(strconv.FormatInt(id, 10)))
}

func (c *Client) currentID(name string) (int64, error) {
	raw, ok, err := c.get(SeqPrefix + name)
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse sequence %s: %w", name, err)
	}
	return n, nil
}

// unmarshalJSON is a helper to unmarshal JSON data.
func unmarshalJSON[T any](data []byte) (*T, error) {
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// marshalJSON is a helper to marshal data to JSON.
func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

// idKey builds a zero-padded key so key order matches numeric order.
func idKey(prefix string, id int64) string {
	return fmt.Sprintf("%s%020d", prefix, id)
}

// entryKeyIndex builds the idempotency index key for a user.
func entryKeyIndex(userID int64, key string) string {
	return fmt.Sprintf("%s%d:%s", EntryKeyPrefix, userID, key)
}
