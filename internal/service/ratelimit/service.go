package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/blunt-app/blunt/internal/model"
)

const (
	GuestDailyLimit = 1
	UserDailyLimit  = 10
	dateLayout      = "2006-01-02"
)

type UsageStore interface {
	Usage(ctx context.Context, userID model.UserID) (model.DailyUsage, bool, error)
	Increment(ctx context.Context, userID model.UserID, today string) (model.DailyUsage, error)
	Prune(ctx context.Context, today string) (int, error)
}

type Limits struct {
	Guest int
	User  int
}

type service struct {
	store    UsageStore
	limits   Limits
	clock    model.Clock
	location *time.Location
}

func New(store UsageStore, limits Limits, clock model.Clock, location *time.Location) *service {
	if limits.Guest <= 0 {
		limits.Guest = GuestDailyLimit
	}
	if limits.User <= 0 {
		limits.User = UserDailyLimit
	}
	if location == nil {
		location = time.UTC
	}
	return &service{store, limits, clock, location}
}

func (s *service) Today() string {
	return s.clock().In(s.location).Format(dateLayout)
}

func (s *service) max(isGuest bool) int {
	if isGuest {
		return s.limits.Guest
	}
	return s.limits.User
}

// CheckLimit reports how many sends userID has left today. An entry from any
// other day counts as no usage at all.
func (s *service) CheckLimit(ctx context.Context, userID model.UserID, isGuest bool) (model.LimitStatus, error) {
	max := s.max(isGuest)

	usage, ok, err := s.store.Usage(ctx, userID)
	if err != nil {
		return model.LimitStatus{}, fmt.Errorf("checking limit: %w", err)
	}
	if !ok || usage.Date != s.Today() {
		return model.LimitStatus{Allowed: true, Remaining: max, Max: max}, nil
	}

	remaining := max - usage.Count
	if remaining < 0 {
		remaining = 0
	}
	return model.LimitStatus{Allowed: remaining > 0, Remaining: remaining, Max: max}, nil
}

func (s *service) IncrementUsage(ctx context.Context, userID model.UserID) error {
	if _, err := s.store.Increment(ctx, userID, s.Today()); err != nil {
		return fmt.Errorf("incrementing usage: %w", err)
	}
	return nil
}

func (s *service) Prune(ctx context.Context) (int, error) {
	removed, err := s.store.Prune(ctx, s.Today())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Infof("pruned %d stale usage entries", removed)
	}
	return removed, nil
}
