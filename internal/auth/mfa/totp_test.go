package mfa

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestGenerateKeyAndVerify(t *testing.T) {
	current := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	helper := New(WithClock(func() time.Time { return current }))

	key, err := helper.GenerateKey("admin@example.com")
	require.NoError(t, err)
	require.Contains(t, key.String(), "Tradeacademy")

	code, err := totp.GenerateCode(key.Secret(), current)
	require.NoError(t, err)
	require.True(t, helper.Verify(key.Secret(), code))

	// One period of skew is tolerated, two are not.
	staleCode, err := totp.GenerateCode(key.Secret(), current.Add(-30*time.Second))
	require.NoError(t, err)
	require.True(t, helper.Verify(key.Secret(), staleCode))

	deadCode, err := totp.GenerateCode(key.Secret(), current.Add(-5*time.Minute))
	require.NoError(t, err)
	require.False(t, helper.Verify(key.Secret(), deadCode))

	require.False(t, helper.Verify(key.Secret(), ""))
	require.False(t, helper.Verify("", code))
}

func TestGenerateKeyRequiresAccount(t *testing.T) {
	helper := New()
	_, err := helper.GenerateKey("   ")
	require.Error(t, err)
}

func TestQRCodeProducesPNG(t *testing.T) {
	helper := New(WithIssuer("Example"), WithQRCodeSize(128))

	key, err := helper.GenerateKey("admin@example.com")
	require.NoError(t, err)

	data, err := helper.QRCode(key)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 128, img.Bounds().Dx())

	_, err = helper.QRCode(nil)
	require.Error(t, err)
}
