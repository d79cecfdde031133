package model

import (
	"errors"
	"fmt"
)

var ErrorInvalidUsernameOrPassword = errors.New("invalid username or password")
var ErrorUserNotFound = errors.New("user not found")
var ErrorUserExists = errors.New("username or email already registered")
var ErrorGuestCannotUpdateProfile = errors.New("guests cannot update profile")
var ErrorGuestForbidden = errors.New("conversations are stored for registered users only")
var ErrorBluntNotFound = errors.New("this message has vanished")
var ErrorBluntLocked = errors.New("this message is time-locked")
var ErrorRepliesDisabled = errors.New("replies are disabled for this message")
var ErrorReplyNotPermitted = errors.New("sign up to reply")
var ErrorPersistenceFailed = errors.New("failed to save, please try again")
var ErrorRateLimitExceeded = errors.New("daily limit reached")
var ErrorInvalidSession = errors.New("invalid session")

const ModerationViolationReason = "Your message violates Blunt policy. It contains hate speech, violence, or sensitive private info. Rephrase."

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

type ModerationViolation struct {
	Reason string
}

func (e *ModerationViolation) Error() string {
	return e.Reason
}

type RateLimitError struct {
	Status LimitStatus
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s (%d of %d left)", ErrorRateLimitExceeded, e.Status.Remaining, e.Status.Max)
}

func (e *RateLimitError) Unwrap() error {
	return ErrorRateLimitExceeded
}
