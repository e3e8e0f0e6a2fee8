package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cultural-expo/internal/model"
	"github.com/sakif/cultural-expo/internal/repository"
)

func TestExportAll_Document(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustSave(t, s, record("2024-01-15", japan()))
	prefs := model.DefaultPreferences()
	prefs.Theme = "dark"
	require.True(t, s.SavePreferences(ctx, prefs))

	raw, ok := s.ExportAll(ctx)
	require.True(t, ok)

	var doc model.ExportDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "1.0", doc.Version)
	assert.False(t, doc.ExportDate.IsZero())
	assert.Len(t, doc.Experiences, 1)
	assert.Equal(t, 1, doc.Statistics.TotalExperiences)
	assert.Equal(t, "dark", doc.Preferences.Theme)
	assert.Contains(t, string(raw), "\n  \"version\"", "export is indented")
}

func TestExportAll_EmptyJournal(t *testing.T) {
	s, _ := newTestStore(t)

	raw, ok := s.ExportAll(context.Background())
	require.True(t, ok)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.JSONEq(t, `[]`, string(doc["experiences"]))
}

func TestImportAll_RoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustSave(t, s, record("2024-01-15", japan()))
	mustSave(t, s, record("2024-01-20", italy()))
	before := s.GetAll(ctx)

	raw, ok := s.ExportAll(ctx)
	require.True(t, ok)
	require.True(t, s.ImportAll(ctx, raw))

	if diff := cmp.Diff(before, s.GetAll(ctx)); diff != "" {
		t.Errorf("round trip changed the collection (-before +after):\n%s", diff)
	}
}

func TestImportAll_IntoAnotherJournal(t *testing.T) {
	src, _ := newTestStore(t)
	dst, _ := newTestStore(t)
	ctx := context.Background()

	mustSave(t, src, record("2024-01-15", japan()))
	prefs := model.DefaultPreferences()
	prefs.Language = "ja"
	require.True(t, src.SavePreferences(ctx, prefs))

	mustSave(t, dst, record("2020-05-05", italy()))

	raw, ok := src.ExportAll(ctx)
	require.True(t, ok)
	require.True(t, dst.ImportAll(ctx, raw))

	all := dst.GetAll(ctx)
	require.Len(t, all, 1, "import replaces, it does not merge")
	assert.Equal(t, "2024-01-15", all[0].Date)
	assert.Equal(t, "ja", dst.Preferences(ctx).Language)
}

func TestImportAll_Rejects(t *testing.T) {
	tests := map[string]string{
		"not json":              `{{{`,
		"missing experiences":   `{"version":"1.0","preferences":{}}`,
		"experiences is null":   `{"experiences":null}`,
		"experiences is object": `{"experiences":{"id":"a"}}`,
		"experiences is string": `{"experiences":"[]"}`,
		"bad record shape":      `{"experiences":[{"id":5}]}`,
		"duplicate ids":         `{"experiences":[{"id":"a","date":"2024-01-01"},{"id":"a","date":"2024-01-02"}]}`,
		"bad preferences":       `{"experiences":[],"preferences":"dark"}`,
		"top-level array":       `[]`,
	}

	for name, blob := range tests {
		t.Run(name, func(t *testing.T) {
			s, _ := newTestStore(t)
			ctx := context.Background()
			id := mustSave(t, s, record("2024-01-15", japan()))

			assert.False(t, s.ImportAll(ctx, []byte(blob)))

			all := s.GetAll(ctx)
			require.Len(t, all, 1, "existing data must be untouched")
			assert.Equal(t, id, all[0].ID)
		})
	}
}

func TestImportAll_StampsMissingFields(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	blob := `{"experiences":[{"date":"2024-03-03","country":{"id":"jp","name":"Japan"}}],"statistics":{"totalExperiences":99}}`
	require.True(t, s.ImportAll(ctx, []byte(blob)))

	all := s.GetAll(ctx)
	require.Len(t, all, 1)
	assert.NotEmpty(t, all[0].ID)
	assert.False(t, all[0].CreatedAt.IsZero())
	assert.Equal(t, all[0].CreatedAt, all[0].UpdatedAt)

	assert.Equal(t, 1, s.Statistics(ctx).TotalExperiences, "imported statistics are ignored")
	assert.Equal(t, model.DefaultPreferences(), s.Preferences(ctx), "absent preferences are left alone")
}

func TestImportAll_EmptyArrayClearsCollection(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	mustSave(t, s, record("2024-01-15", japan()))

	require.True(t, s.ImportAll(ctx, []byte(`{"experiences": [ ]}`)))
	assert.Empty(t, s.GetAll(ctx))
}

func TestImportAll_RollsBackWhenPreferencesFail(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()
	id := mustSave(t, s, record("2024-01-15", japan()))

	kv.setErr = errors.New("quota")
	kv.failSetKey = repository.KeyPreferences

	blob := `{"experiences":[{"id":"new","date":"2024-02-02"}],"preferences":{"theme":"dark"}}`
	assert.False(t, s.ImportAll(ctx, []byte(blob)))

	all := s.GetAll(ctx)
	require.Len(t, all, 1)
	assert.Equal(t, id, all[0].ID)
}

func TestImportAll_WriteFailure(t *testing.T) {
	s, kv := newTestStore(t)
	kv.setErr = errors.New("quota")

	assert.False(t, s.ImportAll(context.Background(), []byte(`{"experiences":[]}`)))
}

func TestImportAll_ReplacesAchievementLedger(t *testing.T) {
	dst, _ := newTestStore(t)
	src, _ := newTestStore(t)
	ctx := context.Background()

	mustSave(t, dst, record("2024-01-15", japan()))
	oldAt := achievement(t, dst.Statistics(ctx), "first-experience").EarnedAt
	require.NotNil(t, oldAt)

	later := time.Date(2029, 12, 31, 20, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return later }
	mustSave(t, src, record("2029-12-31", italy()))
	raw, ok := src.ExportAll(ctx)
	require.True(t, ok)

	require.True(t, dst.ImportAll(ctx, raw))

	got := achievement(t, dst.Statistics(ctx), "first-experience")
	require.NotNil(t, got.EarnedAt)
	assert.True(t, later.Equal(*got.EarnedAt), "earned at %v, want %v", got.EarnedAt, later)
	assert.False(t, oldAt.Equal(*got.EarnedAt))
}

func TestImportAll_RestoresEarnedDatesAfterClear(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	mustSave(t, s, record("2024-01-15", japan()))
	earnedAt := achievement(t, s.Statistics(ctx), "first-experience").EarnedAt
	require.NotNil(t, earnedAt)

	raw, ok := s.ExportAll(ctx)
	require.True(t, ok)
	s.ClearAll(ctx)
	require.True(t, s.ImportAll(ctx, raw))

	got := achievement(t, s.Statistics(ctx), "first-experience")
	require.NotNil(t, got.EarnedAt)
	assert.True(t, earnedAt.Equal(*got.EarnedAt), "earned at %v, want %v", got.EarnedAt, earnedAt)
}

func TestImportAll_LedgerOnlyKeepsEarnableAchievements(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	mustSave(t, s, record("2024-01-15", japan()))
	s.Statistics(ctx)

	blob := `{
		"experiences": [{"id":"a","date":"2025-05-05","country":{"id":"it","name":"Italy"}}],
		"statistics": {"achievements": [
			{"id":"first-experience","earned":true,"earnedAt":"2025-05-05T10:00:00Z"},
			{"id":"film-buff","earned":true,"earnedAt":"2025-05-05T10:00:00Z"},
			{"id":"globe-trotter","earned":false}
		]}
	}`
	require.True(t, s.ImportAll(ctx, []byte(blob)))

	raw, err := kv.Store.Get(ctx, repository.KeyAchievements)
	require.NoError(t, err)
	var ledger map[string]time.Time
	require.NoError(t, json.Unmarshal(raw, &ledger))
	assert.Equal(t, map[string]time.Time{
		"first-experience": time.Date(2025, 5, 5, 10, 0, 0, 0, time.UTC),
	}, ledger)
}

func TestImportAll_WithoutStatisticsDropsOldLedger(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	mustSave(t, s, record("2024-01-15", japan()))
	s.Statistics(ctx)

	require.True(t, s.ImportAll(ctx, []byte(`{"experiences":[{"id":"a","date":"2025-05-05"}]}`)))

	_, err := kv.Store.Get(ctx, repository.KeyAchievements)
	assert.Error(t, err, "ledger of the replaced journal must be gone")
}

func TestImportAll_RollbackRestoresLedger(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	mustSave(t, s, record("2024-01-15", japan()))
	s.Statistics(ctx)
	before, err := kv.Store.Get(ctx, repository.KeyAchievements)
	require.NoError(t, err)

	kv.setErr = errors.New("quota")
	kv.failSetKey = repository.KeyPreferences

	blob := `{
		"experiences": [{"id":"a","date":"2025-05-05"}],
		"statistics": {"achievements": [{"id":"first-experience","earned":true,"earnedAt":"2025-05-05T10:00:00Z"}]},
		"preferences": {"theme":"dark"}
	}`
	assert.False(t, s.ImportAll(ctx, []byte(blob)))

	after, err := kv.Store.Get(ctx, repository.KeyAchievements)
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}
