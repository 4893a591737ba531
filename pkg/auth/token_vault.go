package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"time"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	vaultPrefix = "backend_token:"
	nonceSize   = 24
)

var (
	ErrTokenNotFound = errors.New("backend token not found")
	ErrTokenCorrupt  = errors.New("backend token could not be opened")
)

// RawStore is the byte store the vault writes sealed tokens into.
type RawStore interface {
	SetRaw(ctx context.Context, key string, value []byte, expiration time.Duration) error
	GetRaw(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// TokenVault keeps each customer's backend bearer token sealed at rest.
// The stored value is nonce || secretbox(token).
type TokenVault struct {
	store RawStore
	key   [32]byte
	ttl   time.Duration
	// notFound is the store's miss error, mapped to ErrTokenNotFound.
	notFound error
}

func NewTokenVault(store RawStore, secret string, ttl time.Duration, notFound error) *TokenVault {
	return &TokenVault{
		store:    store,
		key:      sha256.Sum256([]byte(secret)),
		ttl:      ttl,
		notFound: notFound,
	}
}

func (v *TokenVault) Put(ctx context.Context, userID, token string) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return err
	}
	sealed := secretbox.Seal(nonce[:], []byte(token), &nonce, &v.key)
	return v.store.SetRaw(ctx, vaultPrefix+userID, sealed, v.ttl)
}

func (v *TokenVault) Get(ctx context.Context, userID string) (string, error) {
	sealed, err := v.store.GetRaw(ctx, vaultPrefix+userID)
	if err != nil {
		if v.notFound != nil && errors.Is(err, v.notFound) {
			return "", ErrTokenNotFound
		}
		return "", err
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", ErrTokenCorrupt
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	opened, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &v.key)
	if !ok {
		return "", ErrTokenCorrupt
	}
	return string(opened), nil
}

func (v *TokenVault) Revoke(ctx context.Context, userID string) error {
	return v.store.Delete(ctx, vaultPrefix+userID)
}
