package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blunt-app/blunt/internal/model"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func openKV(t *testing.T) *KV {
	kv, err := OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })
	return kv
}

func newBlunt(content string) *model.Blunt {
	return &model.Blunt{
		ID:              model.BluntID(model.CreateID()),
		Version:         model.BluntVersion,
		Content:         content,
		AllowReply:      true,
		CreatedAt:       model.Millis(fixedNow),
		ScheduledFor:    model.Millis(fixedNow),
		RecipientName:   "Sam",
		RecipientNumber: "+15550100",
		DeliveryMode:    model.DeliveryModeSMS,
	}
}

func TestBluntStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	blunts := NewBluntStore(openKV(t), fixedClock)

	saved := newBlunt("you never return my ladder")
	require.NoError(t, blunts.Save(ctx, saved))

	t.Run("Round trip", func(t *testing.T) {
		got, err := blunts.Get(ctx, saved.ID)
		assert.Nil(err)
		assert.Equal(saved, got)
		assert.NotNil(got.Replies)
		assert.Len(got.Replies, 0)
	})

	t.Run("Get unknown", func(t *testing.T) {
		_, err := blunts.Get(ctx, "nope")
		assert.ErrorIs(err, model.ErrorBluntNotFound)
	})

	t.Run("Duplicate id", func(t *testing.T) {
		dup := *saved
		assert.Error(blunts.Save(ctx, &dup))
	})

	t.Run("Add reply", func(t *testing.T) {
		updated, err := blunts.AddReply(ctx, saved.ID, "fine, I'll bring it back")
		assert.Nil(err)
		if assert.Len(updated.Replies, 1) {
			assert.Equal("fine, I'll bring it back", updated.Replies[0].Content)
			assert.Equal(model.Millis(fixedNow), updated.Replies[0].CreatedAt)
			assert.NotEmpty(updated.Replies[0].ID)
		}

		updated, err = blunts.AddReply(ctx, saved.ID, "tomorrow")
		assert.Nil(err)
		if assert.Len(updated.Replies, 2) {
			assert.Equal("tomorrow", updated.Replies[1].Content)
		}
	})

	t.Run("Add reply to unknown leaves store alone", func(t *testing.T) {
		before, err := blunts.List(ctx)
		require.NoError(t, err)

		_, err = blunts.AddReply(ctx, "missing", "hello?")
		assert.ErrorIs(err, model.ErrorBluntNotFound)

		after, err := blunts.List(ctx)
		require.NoError(t, err)
		assert.Equal(before, after)
	})

	t.Run("Acknowledge and deny are independent", func(t *testing.T) {
		b, err := blunts.Acknowledge(ctx, saved.ID)
		assert.Nil(err)
		assert.True(b.Acknowledged)
		assert.False(b.Denied)

		b, err = blunts.Deny(ctx, saved.ID)
		assert.Nil(err)
		assert.True(b.Acknowledged)
		assert.True(b.Denied)

		_, err = blunts.Deny(ctx, "missing")
		assert.ErrorIs(err, model.ErrorBluntNotFound)
	})

	t.Run("Update unknown is a no-op", func(t *testing.T) {
		ghost := newBlunt("ghost")
		assert.Nil(blunts.Update(ctx, ghost))
		_, err := blunts.Get(ctx, ghost.ID)
		assert.ErrorIs(err, model.ErrorBluntNotFound)
	})
}

func TestBluntStoreSaveStampsVersion(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	blunts := NewBluntStore(openKV(t), fixedClock)

	saved := newBlunt("the hedge is on my side")
	saved.Version = 0
	saved.DeliveryMode = ""
	require.NoError(t, blunts.Save(ctx, saved))

	got, err := blunts.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(saved, got)
	assert.Equal(model.BluntVersion, got.Version)
	assert.Empty(got.DeliveryMode)
}

func TestBluntStoreListings(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	blunts := NewBluntStore(openKV(t), fixedClock)

	older := newBlunt("older")
	older.PostToFeed = true
	older.SenderID = "u1"
	newer := newBlunt("newer")
	newer.CreatedAt += 1000
	newer.PostToFeed = true
	private := newBlunt("private")
	private.SenderID = "u1"
	for _, b := range []*model.Blunt{older, newer, private} {
		require.NoError(t, blunts.Save(ctx, b))
	}

	public, err := blunts.ListPublic(ctx)
	assert.Nil(err)
	if assert.Len(public, 2) {
		assert.Equal("newer", public[0].Content)
		assert.Equal("older", public[1].Content)
	}

	mine, err := blunts.ListBySender(ctx, "u1")
	assert.Nil(err)
	assert.Len(mine, 2)

	all, err := blunts.List(ctx)
	assert.Nil(err)
	assert.Len(all, 3)
}

func TestBluntStoreConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	blunts := NewBluntStore(openKV(t), fixedClock)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, blunts.Save(ctx, newBlunt("race")))
		}()
	}
	wg.Wait()

	all, err := blunts.List(ctx)
	assert.Nil(t, err)
	assert.Len(t, all, 20)
}

func TestBluntStoreMigratesOldRecords(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	kv := openKV(t)

	legacy := []map[string]interface{}{{
		"id":        "legacy",
		"content":   "from before replies existed",
		"createdAt": 1700000000000,
	}}
	require.NoError(t, kv.Store(ctx, KeyBlunts, legacy))

	got, err := NewBluntStore(kv, fixedClock).Get(ctx, "legacy")
	assert.Nil(err)
	assert.Equal(model.BluntVersion, got.Version)
	assert.Equal(int64(1700000000000), got.ScheduledFor)
	assert.Equal(model.DeliveryModeWhatsApp, got.DeliveryMode)
	assert.NotNil(got.Replies)
}

func TestUsageStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	usage := NewUsageStore(openKV(t))

	_, ok, err := usage.Usage(ctx, "u1")
	assert.Nil(err)
	assert.False(ok)

	u, err := usage.Increment(ctx, "u1", "2026-03-14")
	assert.Nil(err)
	assert.Equal(model.DailyUsage{Date: "2026-03-14", Count: 1}, u)

	u, err = usage.Increment(ctx, "u1", "2026-03-14")
	assert.Nil(err)
	assert.Equal(2, u.Count)

	u, err = usage.Increment(ctx, "u1", "2026-03-15")
	assert.Nil(err)
	assert.Equal(model.DailyUsage{Date: "2026-03-15", Count: 1}, u)

	_, err = usage.Increment(ctx, "u2", "2026-03-14")
	assert.Nil(err)

	removed, err := usage.Prune(ctx, "2026-03-15")
	assert.Nil(err)
	assert.Equal(1, removed)

	_, ok, err = usage.Usage(ctx, "u2")
	assert.Nil(err)
	assert.False(ok)

	got, ok, err := usage.Usage(ctx, "u1")
	assert.Nil(err)
	assert.True(ok)
	assert.Equal(1, got.Count)
}

func TestUserStore(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	users := NewUserStore(openKV(t))

	alice := &model.User{ID: "a1", Version: model.UserVersion, Name: "Alice", Email: "alice@example.com", Username: "@alice"}
	require.NoError(t, users.Create(ctx, alice))

	t.Run("Duplicate email", func(t *testing.T) {
		err := users.Create(ctx, &model.User{ID: "a2", Email: "ALICE@example.com"})
		assert.ErrorIs(err, model.ErrorUserExists)
	})

	t.Run("Lookups", func(t *testing.T) {
		u, err := users.FetchByUsername(ctx, "@Alice")
		assert.Nil(err)
		assert.Equal(alice.ID, u.ID)

		u, err = users.FetchByEmail(ctx, "alice@example.com")
		assert.Nil(err)
		assert.Equal(alice.ID, u.ID)

		_, err = users.Fetch(ctx, "nobody")
		assert.ErrorIs(err, model.ErrorUserNotFound)
	})

	t.Run("Update", func(t *testing.T) {
		u, err := users.Update(ctx, alice.ID, func(u *model.User) error {
			u.Country = "GB"
			return nil
		})
		assert.Nil(err)
		assert.Equal("GB", u.Country)

		_, err = users.Update(ctx, "nobody", func(*model.User) error { return nil })
		assert.ErrorIs(err, model.ErrorUserNotFound)
	})

	t.Run("Backfill on read", func(t *testing.T) {
		require.NoError(t, users.Create(ctx, &model.User{ID: "b1", Name: "Bob Stone", Email: "bob@example.com"}))
		u, err := users.Fetch(ctx, "b1")
		assert.Nil(err)
		assert.Equal(model.DefaultUsername("b1", "Bob Stone"), u.Username)
		assert.Contains(u.Avatar, "ui-avatars.com")
	})
}

func TestUserStoreLegacyUsernamesStayTaken(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	kv := openKV(t)
	users := NewUserStore(kv)

	legacy := map[string]interface{}{
		"legacy1": map[string]interface{}{"id": "legacy1", "name": "Ada Obi", "email": "ada@example.com"},
	}
	require.NoError(t, kv.Store(ctx, KeyUsers, legacy))
	derived := model.DefaultUsername("legacy1", "Ada Obi")

	t.Run("Sign up", func(t *testing.T) {
		err := users.Create(ctx, &model.User{ID: "n1", Email: "new@example.com", Username: derived})
		assert.ErrorIs(err, model.ErrorUserExists)
	})

	t.Run("Profile update", func(t *testing.T) {
		require.NoError(t, users.Create(ctx, &model.User{ID: "n2", Version: model.UserVersion, Email: "other@example.com", Username: "@other"}))
		_, err := users.Update(ctx, "n2", func(u *model.User) error {
			u.Username = derived
			return nil
		})
		assert.ErrorIs(err, model.ErrorUserExists)
	})

	t.Run("Login lookup", func(t *testing.T) {
		u, err := users.FetchByUsername(ctx, derived)
		assert.Nil(err)
		assert.Equal(model.UserID("legacy1"), u.ID)
	})
}

func TestSessionKey(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	kv := openKV(t)

	keyID, key, err := SessionKey(ctx, kv, "secret")
	assert.Nil(err)
	assert.NotEmpty(keyID)
	require.NotNil(t, key)

	t.Run("Reused", func(t *testing.T) {
		again, againKey, err := SessionKey(ctx, kv, "secret")
		assert.Nil(err)
		assert.Equal(keyID, again)
		assert.True(key.Equal(againKey))
	})

	t.Run("Wrong secret", func(t *testing.T) {
		_, _, err := SessionKey(ctx, kv, "other")
		assert.Error(err)
	})
}
