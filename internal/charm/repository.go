// ABOUTME: Repository implementation on top of Charm KV.
// ABOUTME: Uses zero-padded numeric keys, a phone index, and an idempotency key index.
package charm

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/storage"
)

var _ storage.Repository = (*Client)(nil)

// CreateUser stores a new user, enforcing phone uniqueness.
func (c *Client) CreateUser(_ context.Context, u *models.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, taken, err := c.get(PhonePrefix + u.Phone); err != nil {
		return fmt.Errorf("create user: %w", err)
	} else if taken {
		return fmt.Errorf("create user: %w", storage.ErrPhoneTaken)
	}

	if u.ID == 0 {
		id, err := c.nextID("user")
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		u.ID = id
	} else if err := c.bumpID("user", u.ID); err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	data, err := marshalJSON(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	// Phone index first; removed again if the user write fails.
	phoneKey := PhonePrefix + u.Phone
	if err := c.set(phoneKey, []byte(strconv.FormatInt(u.ID, 10))); err != nil {
		return fmt.Errorf("index user phone: %w", err)
	}
	if err := c.set(idKey(UserPrefix, u.ID), data); err != nil {
		if delErr := c.del(phoneKey); delErr != nil {
			return fmt.Errorf("create user: %w (phone index left behind: %v)", err, delErr)
		}
		return fmt.Errorf("create user: %w", err)
	}

	c.syncIfEnabled()
	return nil
}

// GetUser retrieves a user by ID.
func (c *Client) GetUser(_ context.Context, id int64) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.getUser(id)
}

func (c *Client) getUser(id int64) (*models.User, error) {
	data, ok, err := c.get(idKey(UserPrefix, id))
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	u, err := unmarshalJSON[models.User](data)
	if err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return u, nil
}

// GetUserByPhone resolves the phone index and loads the user.
func (c *Client) GetUserByPhone(_ context.Context, phone string) (*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, ok, err := c.get(PhonePrefix + phone)
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse phone index: %w", err)
	}
	return c.getUser(id)
}

// ListUsers returns all users ordered by ID.
func (c *Client) ListUsers(_ context.Context) ([]*models.User, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	allData, err := c.listByPrefix(UserPrefix)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var users []*models.User
	for _, data := range allData {
		u, err := unmarshalJSON[models.User](data)
		if err != nil {
			continue // Skip invalid entries
		}
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// CreatePainEntry stores the entry with its form embedded in a single value,
// so the pair is written atomically.
func (c *Client) CreatePainEntry(_ context.Context, e *models.PainEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok, err := c.get(idKey(UserPrefix, e.UserID)); err != nil {
		return fmt.Errorf("create pain entry: %w", err)
	} else if !ok {
		return fmt.Errorf("create pain entry: %w", storage.ErrNotFound)
	}

	if e.IdempotencyKey != nil {
		if _, used, err := c.get(entryKeyIndex(e.UserID, *e.IdempotencyKey)); err != nil {
			return fmt.Errorf("create pain entry: %w", err)
		} else if used {
			return fmt.Errorf("create pain entry: %w", storage.ErrDuplicateKey)
		}
	}

	if err := c.assignID("entry", &e.ID); err != nil {
		return fmt.Errorf("create pain entry: %w", err)
	}
	if f := e.TreatmentForm; f != nil {
		if err := c.assignID("form", &f.ID); err != nil {
			return fmt.Errorf("create treatment form: %w", err)
		}
		f.PainEntryID = e.ID
	}

	data, err := marshalJSON(e)
	if err != nil {
		return fmt.Errorf("marshal pain entry: %w", err)
	}
	if err := c.set(idKey(EntryPrefix, e.ID), data); err != nil {
		return fmt.Errorf("create pain entry: %w", err)
	}
	if e.IdempotencyKey != nil {
		if err := c.set(entryKeyIndex(e.UserID, *e.IdempotencyKey), []byte(strconv.FormatInt(e.ID, 10))); err != nil {
			return fmt.Errorf("index idempotency key: %w", err)
		}
	}

	c.syncIfEnabled()
	return nil
}

func (c *Client) assignID(seq string, id *int64) error {
	if *id != 0 {
		return c.bumpID(seq, *id)
	}
	next, err := c.nextID(seq)
	if err != nil {
		return err
	}
	*id = next
	return nil
}

// FindPainEntryByKey resolves the idempotency index for a user.
func (c *Client) FindPainEntryByKey(_ context.Context, userID int64, key string) (*models.PainEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	raw, ok, err := c.get(entryKeyIndex(userID, key))
	if err != nil {
		return nil, fmt.Errorf("find pain entry: %w", err)
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse idempotency index: %w", err)
	}

	data, ok, err := c.get(idKey(EntryPrefix, id))
	if err != nil {
		return nil, fmt.Errorf("find pain entry: %w", err)
	}
	if !ok {
		return nil, storage.ErrNotFound
	}
	return unmarshalJSON[models.PainEntry](data)
}

// ListPainEntries filters client-side and sorts newest first.
func (c *Client) ListPainEntries(_ context.Context, filter storage.EntryFilter) ([]*models.PainEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	allData, err := c.listByPrefix(EntryPrefix)
	if err != nil {
		return nil, fmt.Errorf("list pain entries: %w", err)
	}

	entries := []*models.PainEntry{}
	for _, data := range allData {
		e, err := unmarshalJSON[models.PainEntry](data)
		if err != nil {
			continue // Skip invalid entries
		}
		if filter.UserID > 0 && e.UserID != filter.UserID {
			continue
		}
		if filter.BodyPart != "" && e.BodyPart != filter.BodyPart {
			continue
		}
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID > entries[j].ID
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}

	return entries, nil
}

// GetAllData retrieves all data for export.
func (c *Client) GetAllData(ctx context.Context) (*storage.ExportData, error) {
	users, err := c.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := c.ListPainEntries(ctx, storage.EntryFilter{})
	if err != nil {
		return nil, err
	}
	return storage.NewExportData(users, entries), nil
}

// ImportData replays users then entries, keeping IDs. KV has no
// transactions, so the whole export is checked against the store before
// the first write.
func (c *Client) ImportData(ctx context.Context, data *storage.ExportData) error {
	if err := c.checkImport(data); err != nil {
		return err
	}
	for _, u := range data.Users {
		if err := c.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("import user %d: %w", u.ID, err)
		}
	}
	for _, e := range data.Entries {
		if err := c.CreatePainEntry(ctx, e); err != nil {
			return fmt.Errorf("import pain entry %d: %w", e.ID, err)
		}
	}
	return nil
}

// checkImport rejects an export that would collide with stored data or
// reference users it does not bring.
func (c *Client) checkImport(data *storage.ExportData) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	users := make(map[int64]bool, len(data.Users))
	phones := make(map[string]bool, len(data.Users))
	for _, u := range data.Users {
		if phones[u.Phone] {
			return fmt.Errorf("import user %d: %w", u.ID, storage.ErrPhoneTaken)
		}
		phones[u.Phone] = true
		if _, taken, err := c.get(PhonePrefix + u.Phone); err != nil {
			return fmt.Errorf("import user %d: %w", u.ID, err)
		} else if taken {
			return fmt.Errorf("import user %d: %w", u.ID, storage.ErrPhoneTaken)
		}
		if u.ID != 0 {
			if _, exists, err := c.get(idKey(UserPrefix, u.ID)); err != nil {
				return fmt.Errorf("import user %d: %w", u.ID, err)
			} else if exists {
				return fmt.Errorf("import user %d: already exists", u.ID)
			}
			users[u.ID] = true
		}
	}

	for _, e := range data.Entries {
		if !users[e.UserID] {
			if _, ok, err := c.get(idKey(UserPrefix, e.UserID)); err != nil {
				return fmt.Errorf("import pain entry %d: %w", e.ID, err)
			} else if !ok {
				return fmt.Errorf("import pain entry %d: %w", e.ID, storage.ErrNotFound)
			}
		}
		if e.ID != 0 {
			if _, exists, err := c.get(idKey(EntryPrefix, e.ID)); err != nil {
				return fmt.Errorf("import pain entry %d: %w", e.ID, err)
			} else if exists {
				return fmt.Errorf("import pain entry %d: already exists", e.ID)
			}
		}
		if e.IdempotencyKey != nil {
			if _, used, err := c.get(entryKeyIndex(e.UserID, *e.IdempotencyKey)); err != nil {
				return fmt.Errorf("import pain entry %d: %w", e.ID, err)
			} else if used {
				return fmt.Errorf("import pain entry %d: %w", e.ID, storage.ErrDuplicateKey)
			}
		}
	}
	return nil
}
