package store

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"github.com/blunt-app/blunt/internal/model"
	"github.com/blunt-app/blunt/pkg/crypt"
)

type sessionKey struct {
	KeyID      string `json:"kid"`
	PrivateKey string `json:"privateKey"`
}

// SessionKey returns the key that signs session tokens, creating and storing
// one sealed under secret on first use.
func SessionKey(ctx context.Context, kv *KV, secret string) (string, *ecdsa.PrivateKey, error) {
	var keyID string
	var privateKey *ecdsa.PrivateKey

	err := mutate(ctx, kv, KeySessionKey, func(stored *sessionKey) error {
		if stored.KeyID != "" {
			var err error
			privateKey, err = crypt.OpenPrivateKey(stored.PrivateKey, stored.KeyID, secret)
			if err != nil {
				return fmt.Errorf("opening session key: %w", err)
			}
			keyID = stored.KeyID
			return errUnchanged
		}

		var err error
		privateKey, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return fmt.Errorf("generating session key: %w", err)
		}
		keyID = model.CreateID()
		sealed, err := crypt.SealPrivateKey(privateKey, keyID, secret)
		if err != nil {
			return fmt.Errorf("sealing session key: %w", err)
		}
		*stored = sessionKey{KeyID: keyID, PrivateKey: sealed}
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	return keyID, privateKey, nil
}
