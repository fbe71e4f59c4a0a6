package utils

import (
	"mime/multipart"
	"net/textproto"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func header(name, contentType string, size int64) *multipart.FileHeader {
	h := textproto.MIMEHeader{}
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &multipart.FileHeader{Filename: name, Header: h, Size: size}
}

func TestNewULIDFromTimestamp(t *testing.T) {
	now := time.Now()
	id, err := New().NewULIDFromTimestamp(now)
	require.NoError(t, err)

	parsed, err := ulid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(now), parsed.Time())
}

func TestValidateImageFile(t *testing.T) {
	u := NewWithMaxFileSize(100)

	assert.NoError(t, u.ValidateImageFile(header("xray.png", "image/png", 10)))
	assert.NoError(t, u.ValidateImageFile(header("xray.png", "", 10)))
	assert.ErrorIs(t, u.ValidateImageFile(nil), ErrNoFile)
	assert.ErrorIs(t, u.ValidateImageFile(header("big.png", "image/png", 101)), ErrFileTooLarge)
	assert.ErrorIs(t, u.ValidateImageFile(header("notes.txt", "text/plain", 10)), ErrNotAnImage)
}

func TestFingerprint(t *testing.T) {
	u := New()
	assert.Equal(t, u.Fingerprint([]byte("a")), u.Fingerprint([]byte("a")))
	assert.NotEqual(t, u.Fingerprint([]byte("a")), u.Fingerprint([]byte("b")))
	assert.Len(t, u.Fingerprint(nil), 64)
}
