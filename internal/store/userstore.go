package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/blunt-app/blunt/internal/model"
)

type userStore struct {
	kv *KV
}

func NewUserStore(kv *KV) *userStore {
	return &userStore{kv}
}

func (s *userStore) Create(ctx context.Context, user *model.User) error {
	err := mutate(ctx, s.kv, KeyUsers, func(users *map[model.UserID]model.User) error {
		if *users == nil {
			*users = map[model.UserID]model.User{}
		}
		for _, u := range *users {
			model.MigrateUser(&u)
			if strings.EqualFold(u.Email, user.Email) || (user.Username != "" && strings.EqualFold(u.Username, user.Username)) {
				return model.ErrorUserExists
			}
		}
		(*users)[user.ID] = *user
		return nil
	})
	if err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (s *userStore) Fetch(ctx context.Context, id model.UserID) (*model.User, error) {
	return s.find(ctx, func(u *model.User) bool { return u.ID == id })
}

func (s *userStore) FetchByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.find(ctx, func(u *model.User) bool { return strings.EqualFold(u.Email, email) })
}

func (s *userStore) FetchByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.find(ctx, func(u *model.User) bool { return strings.EqualFold(u.Username, username) })
}

func (s *userStore) find(ctx context.Context, match func(u *model.User) bool) (*model.User, error) {
	users, err := read[map[model.UserID]model.User](ctx, s.kv, KeyUsers)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	for _, u := range users {
		model.MigrateUser(&u)
		if match(&u) {
			return &u, nil
		}
	}
	return nil, model.ErrorUserNotFound
}

// Update applies fn to the stored user and writes the whole profile set back.
func (s *userStore) Update(ctx context.Context, id model.UserID, fn func(u *model.User) error) (*model.User, error) {
	var updated model.User
	err := mutate(ctx, s.kv, KeyUsers, func(users *map[model.UserID]model.User) error {
		u, ok := (*users)[id]
		if !ok {
			return model.ErrorUserNotFound
		}
		model.MigrateUser(&u)
		if err := fn(&u); err != nil {
			return err
		}
		for otherID, other := range *users {
			model.MigrateUser(&other)
			if otherID != id && u.Username != "" && strings.EqualFold(other.Username, u.Username) {
				return model.ErrorUserExists
			}
		}
		(*users)[id] = u
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
