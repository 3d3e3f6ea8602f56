// ABOUTME: Tests for the demo data generator.
// ABOUTME: Checks determinism, value ranges, and idempotent user creation.
package seed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/painlog/internal/models"
	"github.com/harperreed/painlog/internal/storage"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Now = time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	return opts
}

func TestGenerate(t *testing.T) {
	opts := testOptions()
	entries := Generate(7, opts)
	require.Len(t, entries, 15)

	earliest := opts.Now.AddDate(0, 0, -opts.Days)
	for _, e := range entries {
		assert.Equal(t, int64(7), e.UserID)
		assert.True(t, models.IsValidBodyPart(string(e.BodyPart)))
		assert.GreaterOrEqual(t, e.PainLevel, 1)
		assert.LessOrEqual(t, e.PainLevel, 10)
		assert.True(t, e.CreatedAt.After(earliest) && !e.CreatedAt.After(opts.Now), e.CreatedAt)
		if q := e.Questionnaire(); e.TreatmentForm != nil {
			require.NotNil(t, q)
			assert.NotEmpty(t, q.Symptoms)
			assert.True(t, models.IsValidDuration(q.Duration))
		}
	}

	again := Generate(7, opts)
	for i := range entries {
		assert.Equal(t, entries[i].BodyPart, again[i].BodyPart, "same seed, same data")
		assert.Equal(t, entries[i].PainLevel, again[i].PainLevel)
	}
}

func TestGenerateFormRatioBounds(t *testing.T) {
	opts := testOptions()
	opts.FormRatio = 0
	for _, e := range Generate(1, opts) {
		assert.Nil(t, e.TreatmentForm)
	}

	opts.FormRatio = 1
	for _, e := range Generate(1, opts) {
		assert.NotNil(t, e.TreatmentForm)
	}
}

func TestRun(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "painlog.db"))
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	first, err := Run(ctx, db, testOptions())
	require.NoError(t, err)
	assert.True(t, first.UserCreated)
	assert.Equal(t, DemoPhone, first.User.Phone)
	assert.Equal(t, 15, first.Entries)

	second, err := Run(ctx, db, testOptions())
	require.NoError(t, err)
	assert.False(t, second.UserCreated)
	assert.Equal(t, first.User.ID, second.User.ID)

	entries, err := db.ListPainEntries(ctx, storage.EntryFilter{UserID: first.User.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 30)

	forms := 0
	for _, e := range entries {
		if e.TreatmentForm != nil {
			forms++
		}
	}
	assert.Equal(t, first.Forms+second.Forms, forms)
}
