package store

import (
	"context"
	"fmt"

	"github.com/blunt-app/blunt/internal/model"
)

type usageStore struct {
	kv *KV
}

func NewUsageStore(kv *KV) *usageStore {
	return &usageStore{kv}
}

func (s *usageStore) Usage(ctx context.Context, userID model.UserID) (model.DailyUsage, bool, error) {
	usage, err := read[map[model.UserID]model.DailyUsage](ctx, s.kv, KeyRateLimits)
	if err != nil {
		return model.DailyUsage{}, false, fmt.Errorf("loading usage: %w", err)
	}
	u, ok := usage[userID]
	return u, ok, nil
}

// Increment bumps today's count for userID, starting over at 1 when the
// stored entry belongs to another day.
func (s *usageStore) Increment(ctx context.Context, userID model.UserID, today string) (model.DailyUsage, error) {
	var updated model.DailyUsage
	err := mutate(ctx, s.kv, KeyRateLimits, func(usage *map[model.UserID]model.DailyUsage) error {
		if *usage == nil {
			*usage = map[model.UserID]model.DailyUsage{}
		}
		u, ok := (*usage)[userID]
		if !ok || u.Date != today {
			u = model.DailyUsage{Date: today}
		}
		u.Count++
		(*usage)[userID] = u
		updated = u
		return nil
	})
	if err != nil {
		return model.DailyUsage{}, fmt.Errorf("incrementing usage: %w", err)
	}
	return updated, nil
}

// Prune drops every entry not dated today and reports how many went.
func (s *usageStore) Prune(ctx context.Context, today string) (int, error) {
	removed := 0
	err := mutate(ctx, s.kv, KeyRateLimits, func(usage *map[model.UserID]model.DailyUsage) error {
		for id, u := range *usage {
			if u.Date != today {
				delete(*usage, id)
				removed++
			}
		}
		if removed == 0 {
			return errUnchanged
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("pruning usage: %w", err)
	}
	return removed, nil
}
