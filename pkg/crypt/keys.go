package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/rakutentech/jwk-go/jwk"
)

const AlgorithmES256 = "ES256"

var ErrorWrongSecret = errors.New("wrong secret for sealed key")

func sealingKey(keyID, secret string) []byte {
	shaHash := sha256.New()
	shaHash.Write(base58.Decode(keyID))
	shaHash.Write([]byte(secret))
	return shaHash.Sum(nil)
}

func toJWK(key interface{}, keyID string) ([]byte, error) {
	ks := jwk.NewSpec(key)
	rawJWK, err := ks.ToJWK()
	if err != nil {
		return nil, fmt.Errorf("creating JWK: %w", err)
	}

	rawJWK.Use = "sig"
	rawJWK.Alg = AlgorithmES256
	rawJWK.Kid = keyID

	keyData, err := rawJWK.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshalling JWK: %w", err)
	}
	return keyData, nil
}

// SealPrivateKey encodes privateKey as a JWK and encrypts it with AES-GCM
// under a key derived from keyID and secret. The result is "nonce.ciphertext",
// both base64.
func SealPrivateKey(privateKey *ecdsa.PrivateKey, keyID string, secret string) (string, error) {
	keyData, err := toJWK(privateKey, keyID)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(sealingKey(keyID, secret))
	if err != nil {
		return "", fmt.Errorf("creating AES cipher: %w", err)
	}

	nonce := make([]byte, 12)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("creating AES nonce: %w", err)
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("creating GCM cipher: %w", err)
	}

	ciphertext := aesgcm.Seal(nil, nonce, keyData, nil)
	sb := strings.Builder{}
	sb.WriteString(base64.StdEncoding.EncodeToString(nonce))
	sb.WriteRune('.')
	sb.WriteString(base64.StdEncoding.EncodeToString(ciphertext))

	return sb.String(), nil
}

func OpenPrivateKey(sealed string, keyID string, secret string) (*ecdsa.PrivateKey, error) {
	parts := strings.Split(sealed, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("invalid private key")
	}
	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decoding nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, fmt.Errorf("decoding ciphertext: %w", err)
	}

	block, err := aes.NewCipher(sealingKey(keyID, secret))
	if err != nil {
		return nil, fmt.Errorf("creating AES cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM cipher: %w", err)
	}

	keyData, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrorWrongSecret
	}

	keySpec, err := jwk.Parse(string(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	privateKey, ok := keySpec.Key.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", keySpec.Key)
	}
	return privateKey, nil
}

func EncodePublicKey(publicKey *ecdsa.PublicKey, keyID string) (string, error) {
	keyData, err := toJWK(publicKey, keyID)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(keyData), nil
}

func DecodePublicKey(publicKey string) (*ecdsa.PublicKey, error) {
	keyData, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return nil, fmt.Errorf("decoding public key: %w", err)
	}

	keySpec, err := jwk.Parse(string(keyData))
	if err != nil {
		return nil, fmt.Errorf("parsing public key: %w", err)
	}

	key, ok := keySpec.Key.(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected key type %T", keySpec.Key)
	}
	return key, nil
}
