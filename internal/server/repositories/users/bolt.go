package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"
)

var (
	usersBucket   = []byte("users")
	userIDsBucket = []byte("user_ids")
)

// BoltRepository stores users as JSON in a bbolt file, keyed by username,
// with a secondary id -> username index.
type BoltRepository struct {
	db *bolt.DB
}

// NewBoltRepository creates the buckets it needs if they are missing.
func NewBoltRepository(db *bolt.DB) (*BoltRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{usersBucket, userIDsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt init: %w", err)
	}
	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	stored := cloneUser(user)
	stored.ID = uuid.NewString()
	stored.CreatedAt = time.Now().UTC()
	stored.RefreshToken = ""

	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(usersBucket)
		if b.Get([]byte(stored.UserName)) != nil {
			return fmt.Errorf("%w: %s", common.ErrorAlreadyExists, stored.UserName)
		}
		if err := putUser(b, stored); err != nil {
			return err
		}
		return tx.Bucket(userIDsBucket).Put([]byte(stored.ID), []byte(stored.UserName))
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *BoltRepository) GetUserByLogin(ctx context.Context, userName string) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		user, err = getUser(tx.Bucket(usersBucket), userName)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *BoltRepository) UpdateRefreshToken(ctx context.Context, userID string, token string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b, user, err := userByID(tx, userID)
		if err != nil {
			return err
		}
		user.RefreshToken = token
		return putUser(b, user)
	})
}

// SwapRefreshToken runs inside one read-write transaction; bbolt allows a
// single writer at a time, which makes the compare and the set atomic.
func (r *BoltRepository) SwapRefreshToken(ctx context.Context, userID string, current string, next string) (bool, error) {
	swapped := false
	err := r.db.Update(func(tx *bolt.Tx) error {
		b, user, err := userByID(tx, userID)
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if current == "" || user.RefreshToken != current {
			return nil
		}
		user.RefreshToken = next
		if err := putUser(b, user); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return swapped, nil
}

func userByID(tx *bolt.Tx, userID string) (*bolt.Bucket, *models.User, error) {
	name := tx.Bucket(userIDsBucket).Get([]byte(userID))
	if name == nil {
		return nil, nil, common.ErrorNotFound
	}
	b := tx.Bucket(usersBucket)
	user, err := getUser(b, string(name))
	if err != nil {
		return nil, nil, err
	}
	return b, user, nil
}

func getUser(b *bolt.Bucket, userName string) (*models.User, error) {
	data := b.Get([]byte(userName))
	if data == nil {
		return nil, common.ErrorNotFound
	}
	user := &models.User{}
	if err := json.Unmarshal(data, user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return user, nil
}

func putUser(b *bolt.Bucket, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	return b.Put([]byte(user.UserName), data)
}
