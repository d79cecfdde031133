package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blunt-app/blunt/internal/authority"
	"github.com/blunt-app/blunt/internal/model"
	"github.com/blunt-app/blunt/internal/service/blunt"
)

type BluntService interface {
	Compose(ctx context.Context, viewer model.Viewer, params *blunt.ComposeParams) (*model.Blunt, error)
	View(ctx context.Context, viewer model.Viewer, id model.BluntID) (*blunt.View, error)
	Acknowledge(ctx context.Context, id model.BluntID) (*model.Blunt, error)
	Deny(ctx context.Context, id model.BluntID) (*model.Blunt, error)
	Reply(ctx context.Context, viewer model.Viewer, id model.BluntID, content string) (*model.Blunt, error)
	Feed(ctx context.Context) ([]blunt.View, error)
	Sent(ctx context.Context, viewer model.Viewer) ([]model.Blunt, error)
	Conversations(ctx context.Context, viewer model.Viewer) ([]blunt.Conversation, error)
	Thread(ctx context.Context, viewer model.Viewer, id model.BluntID) (*model.Blunt, error)
	Limit(ctx context.Context, viewer model.Viewer) (model.LimitStatus, error)
}

type Authorities interface {
	ForCountry(code string) []authority.Authority
}

type replyParams struct {
	Content string `json:"content"`
}

func bluntID(c echo.Context) model.BluntID {
	return model.BluntID(c.Param("id"))
}

func ComposeBlunt(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &blunt.ComposeParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		created, err := bluntService.Compose(c.Request().Context(), viewerFrom(c), params)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, created)
	}
}

func ViewBlunt(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		view, err := bluntService.View(c.Request().Context(), viewerFrom(c), bluntID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, view)
	}
}

func AcknowledgeBlunt(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		updated, err := bluntService.Acknowledge(c.Request().Context(), bluntID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, updated.Public())
	}
}

func DenyBlunt(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		updated, err := bluntService.Deny(c.Request().Context(), bluntID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, updated.Public())
	}
}

func ReplyToBlunt(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &replyParams{}
		if err := c.Bind(params); err != nil {
			return err
		}
		updated, err := bluntService.Reply(c.Request().Context(), viewerFrom(c), bluntID(c), params.Content)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusCreated, updated.Public())
	}
}

func Feed(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		feed, err := bluntService.Feed(c.Request().Context())
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, feed)
	}
}

func Dashboard(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		sent, err := bluntService.Sent(c.Request().Context(), viewerFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, sent)
	}
}

func Conversations(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		convos, err := bluntService.Conversations(c.Request().Context(), viewerFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, convos)
	}
}

func Thread(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		thread, err := bluntService.Thread(c.Request().Context(), viewerFrom(c), bluntID(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, thread)
	}
}

func Limits(bluntService BluntService) echo.HandlerFunc {
	return func(c echo.Context) error {
		status, err := bluntService.Limit(c.Request().Context(), viewerFrom(c))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, status)
	}
}

func ListAuthorities(authorities Authorities) echo.HandlerFunc {
	return func(c echo.Context) error {
		country := c.QueryParam("country")
		if country == "" {
			country = viewerFrom(c).Country
		}
		return c.JSON(http.StatusOK, authorities.ForCountry(country))
	}
}
