// ABOUTME: Export and import functionality for diary data.
// ABOUTME: Supports JSON (round-trippable) and YAML (human-readable) formats.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/harperreed/painlog/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportData represents the full export format for diary data.
type ExportData struct {
	Version    string              `json:"version" yaml:"version"`
	ExportedAt time.Time           `json:"exported_at" yaml:"exported_at"`
	Tool       string              `json:"tool" yaml:"tool"`
	Users      []*models.User      `json:"users" yaml:"users"`
	Entries    []*models.PainEntry `json:"entries" yaml:"entries"`
}

// FormCount returns how many entries carry a treatment form.
func (x *ExportData) FormCount() int {
	n := 0
	for _, e := range x.Entries {
		if e.TreatmentForm != nil {
			n++
		}
	}
	return n
}

// NewExportData wraps users and entries in the current export envelope.
func NewExportData(users []*models.User, entries []*models.PainEntry) *ExportData {
	// Oldest first so an import replays history in order.
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
	return &ExportData{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Tool:       "painlog",
		Users:      users,
		Entries:    entries,
	}
}

// GetAllData retrieves all data for export.
func (d *DB) GetAllData(ctx context.Context) (*ExportData, error) {
	return collectAll(ctx, d)
}

// ImportData imports data from an export, keeping the original IDs.
// Nothing is written unless every user and entry goes in.
func (d *DB) ImportData(ctx context.Context, data *ExportData) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, u := range data.Users {
		if err := insertUser(ctx, tx, u); err != nil {
			return fmt.Errorf("import user %d: %w", u.ID, err)
		}
	}
	ids := make([][2]int64, len(data.Entries))
	for i, e := range data.Entries {
		entryID, formID, err := insertPainEntry(ctx, tx, e)
		if err != nil {
			return fmt.Errorf("import pain entry %d: %w", e.ID, err)
		}
		ids[i] = [2]int64{entryID, formID}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	for i, e := range data.Entries {
		assignIDs(e, ids[i][0], ids[i][1])
	}
	return nil
}

func collectAll(ctx context.Context, r Repository) (*ExportData, error) {
	users, err := r.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	entries, err := r.ListPainEntries(ctx, EntryFilter{})
	if err != nil {
		return nil, fmt.Errorf("list pain entries: %w", err)
	}
	return NewExportData(users, entries), nil
}

// ExportJSON exports all data as JSON.
func ExportJSON(ctx context.Context, r Repository) ([]byte, error) {
	data, err := r.GetAllData(ctx)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ImportJSON imports data from JSON bytes produced by ExportJSON.
func ImportJSON(ctx context.Context, r Repository, raw []byte) (*ExportData, error) {
	var exportData ExportData
	if err := json.Unmarshal(raw, &exportData); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if err := r.ImportData(ctx, &exportData); err != nil {
		return nil, err
	}
	return &exportData, nil
}

// ExportYAML exports all data as YAML with entries grouped under their user.
func ExportYAML(ctx context.Context, r Repository) ([]byte, error) {
	data, err := r.GetAllData(ctx)
	if err != nil {
		return nil, err
	}

	yamlData := struct {
		Version    string     `yaml:"version"`
		ExportedAt string     `yaml:"exported_at"`
		Tool       string     `yaml:"tool"`
		Users      []yamlUser `yaml:"users"`
	}{
		Version:    data.Version,
		ExportedAt: data.ExportedAt.Format(time.RFC3339),
		Tool:       data.Tool,
		Users:      make([]yamlUser, 0, len(data.Users)),
	}

	byUser := make(map[int64][]yamlEntry)
	for _, e := range data.Entries {
		ye := yamlEntry{
			ID:        e.ID,
			BodyPart:  e.BodyPart.Label(),
			PainLevel: e.PainLevel,
			Severity:  models.PainDescription(e.PainLevel),
			CreatedAt: e.CreatedAt.Format(time.RFC3339),
		}
		if e.TreatmentForm != nil {
			var form map[string]any
			if err := json.Unmarshal(e.TreatmentForm.FormData, &form); err == nil {
				ye.Form = form
			}
		}
		byUser[e.UserID] = append(byUser[e.UserID], ye)
	}

	for _, u := range data.Users {
		yamlData.Users = append(yamlData.Users, yamlUser{
			ID:        u.ID,
			Name:      u.Name,
			Phone:     u.Phone,
			CreatedAt: u.CreatedAt.Format(time.RFC3339),
			Entries:   byUser[u.ID],
		})
	}

	return yaml.Marshal(yamlData)
}

type yamlUser struct {
	ID        int64       `yaml:"id"`
	Name      string      `yaml:"name"`
	Phone     string      `yaml:"phone"`
	CreatedAt string      `yaml:"created_at"`
	Entries   []yamlEntry `yaml:"entries,omitempty"`
}

type yamlEntry struct {
	ID        int64          `yaml:"id"`
	BodyPart  string         `yaml:"body_part"`
	PainLevel int            `yaml:"pain_level"`
	Severity  string         `yaml:"severity"`
	CreatedAt string         `yaml:"created_at"`
	Form      map[string]any `yaml:"form,omitempty"`
}
