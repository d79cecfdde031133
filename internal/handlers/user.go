package handlers

import (
	"context"
	"crypto/ecdsa"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blunt-app/blunt/internal/model"
	"github.com/blunt-app/blunt/internal/service/user"
	"github.com/blunt-app/blunt/pkg/crypt"
)

type UserService interface {
	Authenticator
	SignUp(ctx context.Context, params *model.CreateUserParams) (*user.Session, error)
	Login(ctx context.Context, params *model.LoginParams) (*user.Session, error)
	UpdateProfile(ctx context.Context, viewer model.Viewer, update *model.ProfileUpdate) (*model.User, error)
}

type KeySource interface {
	KeyID() string
	PublicKey() *ecdsa.PublicKey
}

func SignUp(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.CreateUserParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		session, err := userService.SignUp(c.Request().Context(), params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, session)
	}
}

func Login(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.LoginParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		session, err := userService.Login(c.Request().Context(), params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, session)
	}
}

// Me returns the caller's profile, or the guest placeholder.
func Me() echo.HandlerFunc {
	return func(c echo.Context) error {
		viewer := viewerFrom(c)
		if viewer.User == nil {
			return c.JSON(http.StatusOK, model.User{ID: viewer.ID, Name: "Ghost", IsGuest: true})
		}
		return c.JSON(http.StatusOK, viewer.User.Profile())
	}
}

func UpdateProfile(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		update := &model.ProfileUpdate{}
		if err := c.Bind(update); err != nil {
			return err
		}
		updated, err := userService.UpdateProfile(c.Request().Context(), viewerFrom(c), update)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, updated.Profile())
	}
}

// SessionKey publishes the public half of the session signing key as a JWK.
func SessionKey(keys KeySource) echo.HandlerFunc {
	return func(c echo.Context) error {
		encoded, err := crypt.EncodePublicKey(keys.PublicKey(), keys.KeyID())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, map[string]string{"kid": keys.KeyID(), "key": encoded})
	}
}
