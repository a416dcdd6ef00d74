package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDownloadSignerSignAndVerify(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, expiresAt, err := signer.Sign("exp-1", "weekly/APU2F2409SE.csv")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.False(t, expiresAt.IsZero())

	exportID, path, parsedExpiry, err := signer.Verify(token, false)
	require.NoError(t, err)
	require.Equal(t, "exp-1", exportID)
	require.Equal(t, "weekly/APU2F2409SE.csv", path)
	require.WithinDuration(t, expiresAt, parsedExpiry, time.Second)
}

func TestDownloadSignerExpired(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Millisecond*10)
	token, _, err := signer.Sign("exp-1", "weekly/APU2F2409SE.csv")
	require.NoError(t, err)
	time.Sleep(time.Millisecond * 20)

	_, _, _, err = signer.Verify(token, false)
	require.Error(t, err)

	exportID, path, _, err := signer.Verify(token, true)
	require.NoError(t, err)
	require.Equal(t, "exp-1", exportID)
	require.Equal(t, "weekly/APU2F2409SE.csv", path)
}

func TestDownloadSignerRejectsTamperedToken(t *testing.T) {
	signer := NewDownloadSigner("secret", time.Hour)
	token, _, err := signer.Sign("exp-1", "weekly/APU2F2409SE.csv")
	require.NoError(t, err)

	_, _, _, err = signer.Verify(token+"x", false)
	require.Error(t, err)

	other := NewDownloadSigner("different", time.Hour)
	_, _, _, err = other.Verify(token, false)
	require.Error(t, err)
}
