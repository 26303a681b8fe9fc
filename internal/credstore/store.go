package credstore

import (
	"context"
	"errors"
)

const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// Keys lists every key this package persists. Clear removes exactly these.
var Keys = []string{KeyAccessToken, KeyRefreshToken}

var ErrUnknownKey = errors.New("unknown credential key")

// Store is durable key/value persistence for session credentials.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

func checkKey(key string) error {
	for _, k := range Keys {
		if k == key {
			return nil
		}
	}
	return ErrUnknownKey
}
