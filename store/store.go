package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Load when nothing has been persisted.
var ErrNotFound = errors.New("session record not found")

// ErrStoreUnavailable wraps backend failures.
var ErrStoreUnavailable = errors.New("session store unavailable")

// Record is the persisted part of an authenticated session.
type Record struct {
	UserID               string
	Email                string
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time
	SavedAt              time.Time
}

// Valid reports whether the record carries a usable token pair.
func (r *Record) Valid() bool {
	return r != nil && r.AccessToken != "" && r.RefreshToken != "" && !r.AccessTokenExpiresAt.IsZero()
}

// Store loads, saves and clears the single persisted session record.
type Store interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec *Record) error
	Clear(ctx context.Context) error
}

func cloneRecord(rec *Record) *Record {
	if rec == nil {
		return nil
	}
	out := *rec
	return &out
}
