package store

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord() *Record {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &Record{
		UserID:               "42",
		Email:                "alice@example.com",
		AccessToken:          "eyJhbGciOiJIUzI1NiJ9." + strings.Repeat("a", 600) + ".sig",
		RefreshToken:         "refresh-1",
		AccessTokenExpiresAt: now.Add(30 * time.Minute),
		SavedAt:              now,
	}
}

func newRedisStoreTest(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisStore(rdb, "", ttl), mr
}

func TestEncodeDecodePreservesRecord(t *testing.T) {
	rec := testRecord()

	data, err := Encode(rec)
	require.NoError(t, err)
	require.Equal(t, byte(recordFormatVersionCurrent), data[0])

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, rec.UserID, got.UserID)
	assert.Equal(t, rec.Email, got.Email)
	assert.Equal(t, rec.AccessToken, got.AccessToken)
	assert.Equal(t, rec.RefreshToken, got.RefreshToken)
	assert.True(t, rec.AccessTokenExpiresAt.Equal(got.AccessTokenExpiresAt))
	assert.True(t, rec.SavedAt.Equal(got.SavedAt))
}

func TestEncodeKeepsZeroTimes(t *testing.T) {
	data, err := Encode(&Record{UserID: "1"})
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.True(t, got.AccessTokenExpiresAt.IsZero())
	assert.True(t, got.SavedAt.IsZero())
	assert.False(t, got.Valid())
}

func TestDecodeRejectsUnsupportedSchemaVersion(t *testing.T) {
	_, err := Decode([]byte{99})
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	data, err := Encode(testRecord())
	require.NoError(t, err)

	for _, n := range []int{0, 1, 2, 10, len(data) - 1} {
		_, err := Decode(data[:n])
		assert.Error(t, err, "length %d", n)
	}

	_, err = Decode(append(data, 0))
	assert.Error(t, err)
}

func TestRecordValid(t *testing.T) {
	var nilRec *Record
	assert.False(t, nilRec.Valid())
	assert.True(t, testRecord().Valid())

	rec := testRecord()
	rec.RefreshToken = ""
	assert.False(t, rec.Valid())
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	rec := testRecord()
	require.NoError(t, s.Save(ctx, rec))
	rec.AccessToken = "mutated"

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", got.AccessToken, "store must hold its own copy")

	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, 0)

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	rec := testRecord()
	require.NoError(t, s.Save(ctx, rec))
	assert.True(t, mr.Exists(DefaultRedisKey))
	assert.Equal(t, time.Duration(0), mr.TTL(DefaultRedisKey))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.RefreshToken, got.RefreshToken)
	assert.True(t, rec.AccessTokenExpiresAt.Equal(got.AccessTokenExpiresAt))

	require.NoError(t, s.Clear(ctx))
	assert.False(t, mr.Exists(DefaultRedisKey))
	require.NoError(t, s.Clear(ctx), "clear must be idempotent")
}

func TestRedisStoreAppliesTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, time.Hour)

	require.NoError(t, s.Save(ctx, testRecord()))
	assert.Equal(t, time.Hour, mr.TTL(s.Key()))

	mr.FastForward(2 * time.Hour)
	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, 0)
	mr.Close()

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, s.Save(ctx, testRecord()), ErrStoreUnavailable)
	require.ErrorIs(t, s.Clear(ctx), ErrStoreUnavailable)
}

func TestRedisStoreCorruptBlob(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStoreTest(t, 0)
	require.NoError(t, mr.Set(s.Key(), "\x07garbage"))

	_, err := s.Load(ctx)
	require.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := NewFileStore(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	rec := testRecord()
	require.NoError(t, s.Save(ctx, rec))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.UserID, got.UserID)
	assert.Equal(t, rec.Email, got.Email)
	assert.True(t, rec.SavedAt.Equal(got.SavedAt))

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	_, err = s.Load(ctx)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := NewFileStore(path)
	require.NoError(t, err)
	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestNewFileStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewFileStore("")
	require.Error(t, err)
}
