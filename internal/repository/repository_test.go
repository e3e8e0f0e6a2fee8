package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/cultural-expo/internal/apperror"
	"github.com/sakif/cultural-expo/internal/repository"
	"github.com/sakif/cultural-expo/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithQuota_RejectsOversizeValues(t *testing.T) {
	backend := memory.New()
	store := repository.WithQuota(backend, 8)
	ctx := context.Background()

	err := store.Set(ctx, repository.KeyExperiences, []byte("0123456789"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperror.ErrQuotaExceeded))

	// Nothing reached the backend.
	_, err = backend.Get(ctx, repository.KeyExperiences)
	assert.True(t, errors.Is(err, apperror.ErrNotFound))
}

func TestWithQuota_AllowsValuesAtTheLimit(t *testing.T) {
	store := repository.WithQuota(memory.New(), 8)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("01234567")))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "01234567", string(got))
}

func TestWithQuota_ZeroDisablesLimit(t *testing.T) {
	backend := memory.New()
	assert.Same(t, backend, repository.WithQuota(backend, 0))
}

func TestWithQuota_BudgetIsSharedAcrossKeys(t *testing.T) {
	store := repository.WithQuota(memory.New(), 10)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, repository.KeyExperiences, []byte("012345")))
	err := store.Set(ctx, repository.KeyPreferences, []byte("01234"))
	assert.True(t, errors.Is(err, apperror.ErrQuotaExceeded), "6 + 5 bytes exceed a 10 byte budget")

	require.NoError(t, store.Set(ctx, repository.KeyPreferences, []byte("0123")))
}

func TestWithQuota_OverwriteReplacesTheKeysShare(t *testing.T) {
	store := repository.WithQuota(memory.New(), 10)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, repository.KeyExperiences, []byte("01234567")))
	require.NoError(t, store.Set(ctx, repository.KeyExperiences, []byte("0123456789")))
}

func TestWithQuota_DeleteReleasesBudget(t *testing.T) {
	store := repository.WithQuota(memory.New(), 10)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, repository.KeyAchievements, []byte("01234567")))
	require.Error(t, store.Set(ctx, repository.KeyExperiences, []byte("0123")))

	require.NoError(t, store.Delete(ctx, repository.KeyAchievements))
	assert.NoError(t, store.Set(ctx, repository.KeyExperiences, []byte("0123")))
}

func TestWithQuota_CountsValuesAlreadyStored(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()
	require.NoError(t, backend.Set(ctx, repository.KeyExperiences, []byte("01234567")))

	store := repository.WithQuota(backend, 10)
	err := store.Set(ctx, repository.KeyPreferences, []byte("0123"))
	assert.True(t, errors.Is(err, apperror.ErrQuotaExceeded))
}
