package undo

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mingunkim123/ledger-agent/pkg/redis"
)

const keyPrefix = "undo:"

var (
	// ErrTokenExpired is returned when a token is unknown, already
	// consumed, or past its TTL. The three cases are indistinguishable
	// on purpose.
	ErrTokenExpired = errors.New("undo token expired")
)

// Store keeps single-use undo tokens in Redis. A token maps to the
// transaction it can revert and disappears either at TTL or on first
// consumption, whichever comes first.
type Store struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

func NewStore(r redis.RedisAdapter, ttl time.Duration) *Store {
	return &Store{
		redis: r,
		ttl:   ttl,
	}
}

// Issue mints a fresh token for transactionID.
func (s *Store) Issue(transactionID string) (string, time.Duration, error) {
	token := uuid.New().String()
	if err := s.redis.Set(keyPrefix+token, []byte(transactionID), s.ttl); err != nil {
		return "", 0, err
	}
	return token, s.ttl, nil
}

// Consume redeems a token and returns the transaction it points at.
// The read and the delete are one Redis command, so two concurrent
// consumers can never both succeed.
func (s *Store) Consume(token string) (string, error) {
	v, err := s.redis.GetDel(keyPrefix + token)
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return "", ErrTokenExpired
		}
		return "", err
	}
	return string(v), nil
}
