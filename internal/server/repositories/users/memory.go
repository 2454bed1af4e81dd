package users

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
)

// MemoryRepository keeps users in process memory. Returned users are copies.
type MemoryRepository struct {
	mu     sync.RWMutex
	byName map[string]*models.User
	byID   map[string]*models.User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byName: make(map[string]*models.User),
		byID:   make(map[string]*models.User),
	}
}

func (r *MemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byName[user.UserName]; ok {
		return nil, fmt.Errorf("%w: %s", common.ErrorAlreadyExists, user.UserName)
	}

	stored := cloneUser(user)
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	stored.RefreshToken = ""

	r.byName[stored.UserName] = stored
	r.byID[stored.ID] = stored

	return cloneUser(stored), nil
}

func (r *MemoryRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byName[userName]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return cloneUser(u), nil
}

func (r *MemoryRepository) UpdateRefreshToken(ctx context.Context, userID string, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok {
		return common.ErrorNotFound
	}
	u.RefreshToken = token
	return nil
}

func (r *MemoryRepository) SwapRefreshToken(ctx context.Context, userID string, current string, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[userID]
	if !ok || current == "" || u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = next
	return true, nil
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &c
}
