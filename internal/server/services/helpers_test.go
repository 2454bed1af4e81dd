package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"golang.org/x/crypto/bcrypt"
)

var errBoom = errors.New("boom")

func newSigner() *auth.Signer {
	return auth.NewSigner([]byte("access-secret"), []byte("refresh-secret"), time.Hour, 24*time.Hour)
}

func newMemoryService(t *testing.T) (*UserService, *repomanager.MemoryRepositoryManager) {
	t.Helper()
	m := repomanager.NewMemoryRepositoryManager()
	return newService(m), m
}

func newService(m repomanager.RepositoryManager) *UserService {
	return NewUserService(m, newSigner(), auth.BcryptHasher{Cost: bcrypt.MinCost}, logging.NewNop())
}

// fakeUsersRepo lets each test decide what a single call returns.
type fakeUsersRepo struct {
	createOut *models.User
	createErr error

	getOut *models.User
	getErr error

	updateErr error
	updated   []string

	swapOK  bool
	swapErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.createOut, nil
}

func (f *fakeUsersRepo) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeUsersRepo) UpdateRefreshToken(ctx context.Context, userID, token string) error {
	f.updated = append(f.updated, token)
	return f.updateErr
}

func (f *fakeUsersRepo) SwapRefreshToken(ctx context.Context, userID, current, next string) (bool, error) {
	return f.swapOK, f.swapErr
}

type fakeRepoManager struct {
	u     *fakeUsersRepo
	txErr error
}

func (m *fakeRepoManager) RunMigrations(context.Context) error { return nil }
func (m *fakeRepoManager) Users() users.Repository             { return m.u }
func (m *fakeRepoManager) Ping(context.Context) error          { return nil }
func (m *fakeRepoManager) Close() error                        { return nil }

func (m *fakeRepoManager) WithTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(ctx, m.u)
}
