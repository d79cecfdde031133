package user

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blunt-app/blunt/internal/model"
	"github.com/blunt-app/blunt/internal/store"
	"github.com/blunt-app/blunt/pkg/session"
)

var fixedNow = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) *service {
	kv, err := store.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	clock := func() time.Time { return fixedNow }

	return New(store.NewUserStore(kv), session.NewSigner("kid", privateKey, time.Hour, clock), clock)
}

func TestCreateUser(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	service := newService(t)

	createParams := &model.CreateUserParams{
		Name:     "Test User",
		Username: "TestUser",
		Email:    "testuser@testdomain.com",
		Password: "password",
		Country:  "ng",
	}

	var userID model.UserID

	t.Run("Sign up", func(t *testing.T) {
		s, err := service.SignUp(ctx, createParams)
		assert.Nil(err)
		if assert.NotNil(s) {
			userID = s.User.ID
			assert.NotEmpty(s.Token)
			assert.Equal("@testuser", s.User.Username)
			assert.Equal("NG", s.User.Country)
			assert.Empty(s.User.PasswordHash)
			assert.False(s.User.IsGuest)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		_, err := service.SignUp(ctx, createParams)
		assert.ErrorIs(err, model.ErrorUserExists)
	})

	t.Run("Login by email", func(t *testing.T) {
		s, err := service.Login(ctx, &model.LoginParams{Identifier: "testuser@testdomain.com", Password: "password"})
		assert.Nil(err)
		if assert.NotNil(s) {
			assert.Equal(userID, s.User.ID)
		}
	})

	t.Run("Login by username", func(t *testing.T) {
		for _, identifier := range []string{"testuser", "@TestUser"} {
			s, err := service.Login(ctx, &model.LoginParams{Identifier: identifier, Password: "password"})
			assert.Nil(err, identifier)
			if assert.NotNil(s) {
				assert.Equal(userID, s.User.ID)
			}
		}
	})

	t.Run("Bad password", func(t *testing.T) {
		_, err := service.Login(ctx, &model.LoginParams{Identifier: "testuser", Password: "nope"})
		assert.ErrorIs(err, model.ErrorInvalidUsernameOrPassword)
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := service.Login(ctx, &model.LoginParams{Identifier: "ghost@nowhere.com", Password: "password"})
		assert.ErrorIs(err, model.ErrorInvalidUsernameOrPassword)
	})

	t.Run("Authenticate", func(t *testing.T) {
		s, err := service.Login(ctx, &model.LoginParams{Identifier: "testuser", Password: "password"})
		require.NoError(t, err)

		user, err := service.Authenticate(ctx, s.Token)
		assert.Nil(err)
		if assert.NotNil(user) {
			assert.Equal(userID, user.ID)
		}

		_, err = service.Authenticate(ctx, "garbage")
		assert.ErrorIs(err, model.ErrorInvalidSession)
	})
}

func TestSignUpValidation(t *testing.T) {
	service := newService(t)
	tests := []struct {
		name   string
		params model.CreateUserParams
		field  string
	}{
		{"no name", model.CreateUserParams{Email: "a@b.c", Password: "x"}, "name"},
		{"no email", model.CreateUserParams{Name: "A", Password: "x"}, "email"},
		{"no password", model.CreateUserParams{Name: "A", Email: "a@b.c"}, "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.SignUp(context.Background(), &tt.params)
			var verr *model.ValidationError
			if assert.ErrorAs(t, err, &verr) {
				assert.Equal(t, tt.field, verr.Field)
			}
		})
	}
}

func TestUpdateProfile(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	service := newService(t)

	s, err := service.SignUp(ctx, &model.CreateUserParams{Name: "Ada", Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(model.DefaultUsername(s.User.ID, "Ada"), s.User.Username)

	viewer := model.ViewerFor(&s.User)

	t.Run("Guest", func(t *testing.T) {
		_, err := service.UpdateProfile(ctx, model.GuestViewer("127.0.0.1"), &model.ProfileUpdate{})
		assert.ErrorIs(err, model.ErrorGuestCannotUpdateProfile)
	})

	t.Run("Update", func(t *testing.T) {
		country := "gb"
		mobile := " +44 20 7946 0000 "
		u, err := service.UpdateProfile(ctx, viewer, &model.ProfileUpdate{Country: &country, Mobile: &mobile})
		assert.Nil(err)
		assert.Equal("GB", u.Country)
		assert.Equal("+44 20 7946 0000", u.Mobile)
		assert.Equal("Ada", u.Name)
	})

	t.Run("Empty name", func(t *testing.T) {
		empty := "  "
		_, err := service.UpdateProfile(ctx, viewer, &model.ProfileUpdate{Name: &empty})
		var verr *model.ValidationError
		assert.ErrorAs(err, &verr)
	})
}
