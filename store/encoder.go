package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"
)

const (
	recordFormatVersionCurrent = 1
)

// ErrUnsupportedVersion is returned by Decode for unknown schema versions.
var ErrUnsupportedVersion = errors.New("unsupported record schema version")

// Encode serializes rec into the compact binary form used by [RedisStore].
//
// Layout: version byte, then UserID, Email, AccessToken and RefreshToken as
// uint16 length-prefixed strings, then AccessTokenExpiresAt and SavedAt as
// int64 Unix nanoseconds. A zero time encodes as 0.
func Encode(rec *Record) ([]byte, error) {
	if rec == nil {
		return nil, errors.New("nil record")
	}

	var buf bytes.Buffer
	buf.WriteByte(recordFormatVersionCurrent)

	for _, field := range []struct {
		name  string
		value string
	}{
		{"userID", rec.UserID},
		{"email", rec.Email},
		{"accessToken", rec.AccessToken},
		{"refreshToken", rec.RefreshToken},
	} {
		if err := writeString(&buf, field.name, field.value); err != nil {
			return nil, err
		}
	}

	if err := binary.Write(&buf, binary.BigEndian, unixNano(rec.AccessTokenExpiresAt)); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, unixNano(rec.SavedAt)); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses data produced by [Encode].
func Decode(data []byte) (*Record, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != recordFormatVersionCurrent {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, version)
	}

	rec := &Record{}
	for _, dst := range []*string{&rec.UserID, &rec.Email, &rec.AccessToken, &rec.RefreshToken} {
		s, err := readString(reader)
		if err != nil {
			return nil, err
		}
		*dst = s
	}

	var expiresAt, savedAt int64
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &savedAt); err != nil {
		return nil, err
	}
	rec.AccessTokenExpiresAt = fromUnixNano(expiresAt)
	rec.SavedAt = fromUnixNano(savedAt)

	if reader.Len() != 0 {
		return nil, errors.New("trailing bytes after record")
	}

	return rec, nil
}

func writeString(buf *bytes.Buffer, name, value string) error {
	if len(value) > math.MaxUint16 {
		return fmt.Errorf("%s too long", name)
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(value))); err != nil {
		return err
	}
	buf.WriteString(value)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var n uint16
	if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(reader, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
