package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/blunt-app/blunt/internal/model"
)

type errorResponse struct {
	Error     string             `json:"error"`
	Field     string             `json:"field,omitempty"`
	RateLimit *model.LimitStatus `json:"rateLimit,omitempty"`
}

// ErrorHandler turns domain errors into the status codes and messages the
// client shows inline.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("request failed: %+v", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func classify(err error) (int, errorResponse) {
	var verr *model.ValidationError
	var merr *model.ModerationViolation
	var rerr *model.RateLimitError
	var herr *echo.HTTPError

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field}
	case errors.As(err, &merr):
		return http.StatusUnprocessableEntity, errorResponse{Error: merr.Reason}
	case errors.As(err, &rerr):
		return http.StatusTooManyRequests, errorResponse{Error: model.ErrorRateLimitExceeded.Error(), RateLimit: &rerr.Status}
	case errors.Is(err, model.ErrorBluntNotFound), errors.Is(err, model.ErrorUserNotFound):
		return http.StatusNotFound, errorResponse{Error: rootMessage(err)}
	case errors.Is(err, model.ErrorBluntLocked):
		return http.StatusLocked, errorResponse{Error: model.ErrorBluntLocked.Error()}
	case errors.Is(err, model.ErrorRepliesDisabled),
		errors.Is(err, model.ErrorReplyNotPermitted),
		errors.Is(err, model.ErrorGuestForbidden),
		errors.Is(err, model.ErrorGuestCannotUpdateProfile):
		return http.StatusForbidden, errorResponse{Error: rootMessage(err)}
	case errors.Is(err, model.ErrorInvalidUsernameOrPassword), errors.Is(err, model.ErrorInvalidSession):
		return http.StatusUnauthorized, errorResponse{Error: rootMessage(err)}
	case errors.Is(err, model.ErrorUserExists):
		return http.StatusConflict, errorResponse{Error: model.ErrorUserExists.Error()}
	case errors.Is(err, model.ErrorPersistenceFailed):
		return http.StatusInternalServerError, errorResponse{Error: model.ErrorPersistenceFailed.Error()}
	case errors.As(err, &herr):
		msg, ok := herr.Message.(string)
		if !ok {
			msg = http.StatusText(herr.Code)
		}
		return herr.Code, errorResponse{Error: msg}
	}
	return http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError)}
}

var userFacing = []error{
	model.ErrorBluntNotFound,
	model.ErrorUserNotFound,
	model.ErrorRepliesDisabled,
	model.ErrorReplyNotPermitted,
	model.ErrorGuestForbidden,
	model.ErrorGuestCannotUpdateProfile,
	model.ErrorInvalidUsernameOrPassword,
	model.ErrorInvalidSession,
}

// rootMessage drops the wrapping context so internals never reach the client.
func rootMessage(err error) string {
	for _, known := range userFacing {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
