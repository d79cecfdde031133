package user

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/blunt-app/blunt/internal/model"
)

const bcryptCost = 10

type Store interface {
	Create(ctx context.Context, user *model.User) error
	Fetch(ctx context.Context, id model.UserID) (*model.User, error)
	FetchByEmail(ctx context.Context, email string) (*model.User, error)
	FetchByUsername(ctx context.Context, username string) (*model.User, error)
	Update(ctx context.Context, id model.UserID, fn func(u *model.User) error) (*model.User, error)
}

type TokenSigner interface {
	Issue(subject string) (string, time.Time, error)
	Verify(raw string) (string, error)
}

type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	User      model.User `json:"user"`
}

type service struct {
	store  Store
	signer TokenSigner
	clock  model.Clock
}

func New(store Store, signer TokenSigner, clock model.Clock) *service {
	return &service{store, signer, clock}
}

func (s *service) SignUp(ctx context.Context, params *model.CreateUserParams) (*Session, error) {
	name := strings.TrimSpace(params.Name)
	email := strings.TrimSpace(params.Email)
	username := normalizeUsername(params.Username)
	switch {
	case name == "" && username == "":
		return nil, &model.ValidationError{Field: "name", Message: "A name or username is required."}
	case email == "" || !strings.Contains(email, "@"):
		return nil, &model.ValidationError{Field: "email", Message: "A valid email is required."}
	case params.Password == "":
		return nil, &model.ValidationError{Field: "password", Message: "A password is required."}
	}
	if name == "" {
		name = strings.TrimPrefix(username, "@")
	}
	country := strings.ToUpper(strings.TrimSpace(params.Country))
	if country == "" {
		country = model.DefaultCountry
	}

	passwordBytes, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("generating encoded password: %w", err)
	}

	id := model.UserID(model.CreateID())
	if username == "" {
		username = model.DefaultUsername(id, name)
	}

	user := &model.User{
		ID:           id,
		Version:      model.UserVersion,
		CreatedAt:    model.Millis(s.clock()),
		Name:         name,
		Email:        email,
		Username:     username,
		Avatar:       model.AvatarURL(name, "0067F5"),
		Country:      country,
		PasswordHash: base64.StdEncoding.EncodeToString(passwordBytes),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

// Login accepts either an email or a username as identifier.
func (s *service) Login(ctx context.Context, params *model.LoginParams) (*Session, error) {
	identifier := strings.TrimSpace(params.Identifier)
	if identifier == "" || params.Password == "" {
		return nil, model.ErrorInvalidUsernameOrPassword
	}

	var user *model.User
	var err error
	if strings.Contains(identifier, "@") && !strings.HasPrefix(identifier, "@") {
		user, err = s.store.FetchByEmail(ctx, identifier)
	} else {
		user, err = s.store.FetchByUsername(ctx, normalizeUsername(identifier))
	}
	if err != nil {
		if errors.Is(err, model.ErrorUserNotFound) {
			return nil, model.ErrorInvalidUsernameOrPassword
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	hash, err := base64.StdEncoding.DecodeString(user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("decoding password hash: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(params.Password)); err != nil {
		return nil, model.ErrorInvalidUsernameOrPassword
	}

	return s.issue(user)
}

func (s *service) issue(user *model.User) (*Session, error) {
	token, expiresAt, err := s.signer.Issue(string(user.ID))
	if err != nil {
		return nil, fmt.Errorf("issuing session: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user.Profile()}, nil
}

// Authenticate resolves a session token to the user it was issued to.
func (s *service) Authenticate(ctx context.Context, token string) (*model.User, error) {
	subject, err := s.signer.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrorInvalidSession, err)
	}
	user, err := s.store.Fetch(ctx, model.UserID(subject))
	if err != nil {
		if errors.Is(err, model.ErrorUserNotFound) {
			return nil, model.ErrorInvalidSession
		}
		return nil, fmt.Errorf("fetching session user: %w", err)
	}
	return user, nil
}

func (s *service) Fetch(ctx context.Context, id model.UserID) (*model.User, error) {
	user, err := s.store.Fetch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return user, nil
}

func (s *service) UpdateProfile(ctx context.Context, viewer model.Viewer, update *model.ProfileUpdate) (*model.User, error) {
	if viewer.IsGuest {
		return nil, model.ErrorGuestCannotUpdateProfile
	}
	user, err := s.store.Update(ctx, viewer.ID, func(u *model.User) error {
		if update.Name != nil {
			name := strings.TrimSpace(*update.Name)
			if name == "" {
				return &model.ValidationError{Field: "name", Message: "Name cannot be empty."}
			}
			u.Name = name
		}
		if update.Username != nil {
			username := normalizeUsername(*update.Username)
			if username == "" {
				return &model.ValidationError{Field: "username", Message: "Username cannot be empty."}
			}
			u.Username = username
		}
		if update.Avatar != nil {
			u.Avatar = strings.TrimSpace(*update.Avatar)
		}
		if update.Country != nil {
			u.Country = strings.ToUpper(strings.TrimSpace(*update.Country))
		}
		if update.Gender != nil {
			u.Gender = *update.Gender
		}
		if update.Mobile != nil {
			u.Mobile = strings.TrimSpace(*update.Mobile)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return user, nil
}

func normalizeUsername(username string) string {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return ""
	}
	if !strings.HasPrefix(username, "@") {
		username = "@" + username
	}
	return username
}
