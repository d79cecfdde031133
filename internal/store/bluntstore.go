package store

import (
	"context"
	"fmt"
	"sort"

	"github.com/blunt-app/blunt/internal/model"
)

type bluntStore struct {
	kv    *KV
	clock model.Clock
}

func NewBluntStore(kv *KV, clock model.Clock) *bluntStore {
	return &bluntStore{kv, clock}
}

func (s *bluntStore) all(ctx context.Context) ([]model.Blunt, error) {
	blunts, err := read[[]model.Blunt](ctx, s.kv, KeyBlunts)
	if err != nil {
		return nil, fmt.Errorf("loading blunts: %w", err)
	}
	migrateAll(blunts)
	return blunts, nil
}

func (s *bluntStore) mutate(ctx context.Context, fn func(blunts *[]model.Blunt) error) error {
	return mutate(ctx, s.kv, KeyBlunts, func(blunts *[]model.Blunt) error {
		migrateAll(*blunts)
		return fn(blunts)
	})
}

func migrateAll(blunts []model.Blunt) {
	for i := range blunts {
		model.MigrateBlunt(&blunts[i])
	}
}

func indexOf(blunts []model.Blunt, id model.BluntID) int {
	for i := range blunts {
		if blunts[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *bluntStore) Save(ctx context.Context, blunt *model.Blunt) error {
	if blunt.Replies == nil {
		blunt.Replies = []model.Reply{}
	}
	blunt.Version = model.BluntVersion
	err := s.mutate(ctx, func(blunts *[]model.Blunt) error {
		if indexOf(*blunts, blunt.ID) >= 0 {
			return fmt.Errorf("duplicate blunt id %s", blunt.ID)
		}
		*blunts = append(*blunts, *blunt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("saving blunt: %w", err)
	}
	return nil
}

func (s *bluntStore) Get(ctx context.Context, id model.BluntID) (*model.Blunt, error) {
	blunts, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	i := indexOf(blunts, id)
	if i < 0 {
		return nil, model.ErrorBluntNotFound
	}
	return &blunts[i], nil
}

// Update replaces the stored record with the same id. Unknown ids are ignored.
func (s *bluntStore) Update(ctx context.Context, blunt *model.Blunt) error {
	err := s.mutate(ctx, func(blunts *[]model.Blunt) error {
		i := indexOf(*blunts, blunt.ID)
		if i < 0 {
			return errUnchanged
		}
		(*blunts)[i] = *blunt
		return nil
	})
	if err != nil {
		return fmt.Errorf("updating blunt: %w", err)
	}
	return nil
}

func (s *bluntStore) modify(ctx context.Context, id model.BluntID, fn func(b *model.Blunt)) (*model.Blunt, error) {
	var updated model.Blunt
	err := s.mutate(ctx, func(blunts *[]model.Blunt) error {
		i := indexOf(*blunts, id)
		if i < 0 {
			return model.ErrorBluntNotFound
		}
		fn(&(*blunts)[i])
		updated = (*blunts)[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *bluntStore) AddReply(ctx context.Context, id model.BluntID, content string) (*model.Blunt, error) {
	reply := model.Reply{
		ID:        model.CreateID(),
		Content:   content,
		CreatedAt: model.Millis(s.clock()),
	}
	return s.modify(ctx, id, func(b *model.Blunt) {
		b.Replies = append(b.Replies, reply)
	})
}

func (s *bluntStore) Acknowledge(ctx context.Context, id model.BluntID) (*model.Blunt, error) {
	return s.modify(ctx, id, func(b *model.Blunt) {
		b.Acknowledged = true
	})
}

func (s *bluntStore) Deny(ctx context.Context, id model.BluntID) (*model.Blunt, error) {
	return s.modify(ctx, id, func(b *model.Blunt) {
		b.Denied = true
	})
}

func (s *bluntStore) ListPublic(ctx context.Context) ([]model.Blunt, error) {
	return s.filter(ctx, func(b *model.Blunt) bool { return b.PostToFeed })
}

func (s *bluntStore) ListBySender(ctx context.Context, sender model.UserID) ([]model.Blunt, error) {
	return s.filter(ctx, func(b *model.Blunt) bool { return b.SenderID == sender })
}

// List returns every blunt, newest first.
func (s *bluntStore) List(ctx context.Context) ([]model.Blunt, error) {
	return s.filter(ctx, func(*model.Blunt) bool { return true })
}

func (s *bluntStore) filter(ctx context.Context, keep func(b *model.Blunt) bool) ([]model.Blunt, error) {
	blunts, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	out := []model.Blunt{}
	for i := range blunts {
		if keep(&blunts[i]) {
			out = append(out, blunts[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}
