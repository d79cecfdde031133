package handlers

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/blunt-app/blunt/internal/model"
)

const viewerKey = "viewer"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Viewer resolves who is calling. A valid bearer token makes a registered
// viewer; anything else is a guest keyed by client address. A token that is
// present but invalid is rejected rather than silently downgraded.
func Viewer(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			viewer := model.GuestViewer(c.RealIP())

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if token, ok := strings.CutPrefix(header, "Bearer "); ok && strings.TrimSpace(token) != "" {
				user, err := auth.Authenticate(c.Request().Context(), strings.TrimSpace(token))
				if err != nil {
					return err
				}
				viewer = model.ViewerFor(user)
			}

			c.Set(viewerKey, viewer)
			return next(c)
		}
	}
}

func viewerFrom(c echo.Context) model.Viewer {
	if v, ok := c.Get(viewerKey).(model.Viewer); ok {
		return v
	}
	return model.GuestViewer(c.RealIP())
}
