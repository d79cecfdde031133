package model

import (
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
)

func CreateID() string {
	uuid, _ := uuid.NewRandom()
	return base58.Encode(uuid[:])
}

// Millis converts t to the epoch millisecond timestamps used on every record.
func Millis(t time.Time) int64 {
	return t.UnixMilli()
}

// Clock is the source of "now" for anything that compares timestamps.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now()
}
