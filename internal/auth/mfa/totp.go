package mfa

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"github.com/skip2/go-qrcode"
)

const (
	defaultIssuer     = "Tradeacademy"
	defaultQRCodeSize = 256
)

// Option customises the TOTP helper.
type Option func(*TOTP)

// WithIssuer overrides the issuer string encoded in provisioning URIs.
func WithIssuer(issuer string) Option {
	return func(t *TOTP) {
		if strings.TrimSpace(issuer) != "" {
			t.issuer = issuer
		}
	}
}

// WithQRCodeSize controls the pixel size of generated QR codes.
func WithQRCodeSize(size int) Option {
	return func(t *TOTP) {
		if size > 0 {
			t.qrCodeSize = size
		}
	}
}

// WithClock injects a custom clock, primarily for testing.
func WithClock(clock func() time.Time) Option {
	return func(t *TOTP) {
		if clock != nil {
			t.now = clock
		}
	}
}

// TOTP wraps one-time-password enrolment and verification for admin accounts.
// The secret itself is persisted by the caller; this helper is stateless.
type TOTP struct {
	issuer     string
	qrCodeSize int
	now        func() time.Time
}

// New constructs a TOTP helper.
func New(opts ...Option) *TOTP {
	t := &TOTP{
		issuer:     defaultIssuer,
		qrCodeSize: defaultQRCodeSize,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GenerateKey provisions a new secret for the given account name.
func (t *TOTP) GenerateKey(accountName string) (*otp.Key, error) {
	accountName = strings.TrimSpace(accountName)
	if accountName == "" {
		return nil, errors.New("totp: account name is required")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      t.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return nil, fmt.Errorf("totp: generate key: %w", err)
	}
	return key, nil
}

// Verify checks a submitted code against the stored secret.
func (t *TOTP) Verify(secret, code string) bool {
	secret = strings.TrimSpace(secret)
	code = strings.TrimSpace(code)
	if secret == "" || code == "" {
		return false
	}

	ok, err := totp.ValidateCustom(code, secret, t.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && ok
}

// QRCode returns a PNG-encoded QR code for the provided key.
func (t *TOTP) QRCode(key *otp.Key) ([]byte, error) {
	if key == nil {
		return nil, errors.New("totp: key is required")
	}
	return qrcode.Encode(key.String(), qrcode.Medium, t.qrCodeSize)
}
