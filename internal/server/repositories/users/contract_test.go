package users

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runRepositoryContract exercises behaviour every Repository backend shares.
func runRepositoryContract(t *testing.T, newRepo func(t *testing.T) Repository) {
	ctx := context.Background()

	t.Run("create and fetch", func(t *testing.T) {
		repo := newRepo(t)
		created, err := repo.Create(ctx, &models.User{UserName: "alice", PasswordHash: []byte("h")})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := repo.GetUserByLogin(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, []byte("h"), got.PasswordHash)
		assert.Empty(t, got.RefreshToken)
	})

	t.Run("duplicate username", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Create(ctx, &models.User{UserName: "alice", PasswordHash: []byte("h")})
		require.NoError(t, err)

		_, err = repo.Create(ctx, &models.User{UserName: "alice", PasswordHash: []byte("other")})
		assert.ErrorIs(t, err, common.ErrorAlreadyExists)

		got, err := repo.GetUserByLogin(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []byte("h"), got.PasswordHash)
	})

	t.Run("unknown user", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.GetUserByLogin(ctx, "ghost")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		assert.ErrorIs(t, repo.UpdateRefreshToken(ctx, "no-such-id", "r"), common.ErrorNotFound)

		ok, err := repo.SwapRefreshToken(ctx, "no-such-id", "a", "b")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("update and swap", func(t *testing.T) {
		repo := newRepo(t)
		u, err := repo.Create(ctx, &models.User{UserName: "bob", PasswordHash: []byte("h")})
		require.NoError(t, err)

		require.NoError(t, repo.UpdateRefreshToken(ctx, u.ID, "r1"))

		ok, err := repo.SwapRefreshToken(ctx, u.ID, "stale", "r2")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = repo.SwapRefreshToken(ctx, u.ID, "r1", "r2")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetUserByLogin(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, "r2", got.RefreshToken)

		require.NoError(t, repo.UpdateRefreshToken(ctx, u.ID, ""))
		ok, err = repo.SwapRefreshToken(ctx, u.ID, "", "r3")
		require.NoError(t, err)
		assert.False(t, ok, "an empty current token never matches")
	})

	t.Run("concurrent swap has one winner", func(t *testing.T) {
		repo := newRepo(t)
		u, err := repo.Create(ctx, &models.User{UserName: "carol", PasswordHash: []byte("h")})
		require.NoError(t, err)
		require.NoError(t, repo.UpdateRefreshToken(ctx, u.ID, "r1"))

		const n = 16
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, err := repo.SwapRefreshToken(ctx, u.ID, "r1", "next")
				assert.NoError(t, err)
				if ok {
					wins.Add(1)
				}
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}
