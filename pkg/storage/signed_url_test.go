package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSignedURLSignerGenerateAndParse(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, expiresAt, err := signer.Generate("att-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	attachmentID, err := signer.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "att-1", attachmentID)
}

func TestSignedURLSignerRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("secret", time.Hour)
	token, _, err := signer.Generate("att-1")
	require.NoError(t, err)

	forged := strings.Replace(token, "att-1", "att-2", 1)
	_, err = signer.Parse(forged)
	require.Error(t, err)

	_, err = NewSignedURLSigner("other-secret", time.Hour).Parse(token)
	require.Error(t, err)
}

func TestSignedURLSignerExpired(t *testing.T) {
	signer := NewSignedURLSigner("secret", -time.Minute)
	token, _, err := signer.Generate("att-1")
	require.NoError(t, err)

	_, err = signer.Parse(token)
	require.Error(t, err)
}
