// Package push implements best-effort delivery of push notifications through
// the FCM HTTP v1 API, authenticating with a service-account JWT-bearer grant.
package push

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// tokenEndpoint is the OAuth endpoint that exchanges a signed
	// service-account assertion for a short-lived access token.
	tokenEndpoint = "https://oauth2.googleapis.com/token"

	// messagingScope is the OAuth scope required to call messages:send.
	messagingScope = "https://www.googleapis.com/auth/firebase.messaging"

	// assertionLifetime is the validity window claimed by the assertion.
	assertionLifetime = time.Hour
)

// Credentials identifies the Firebase service account used to authenticate
// against the push gateway. PrivateKey is PEM-encoded (PKCS#1 or PKCS#8).
type Credentials struct {
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// Complete reports whether all three fields are present. An incomplete set
// disables the push subsystem rather than producing a runtime failure.
func (c Credentials) Complete() bool {
	return c.ProjectID != "" && c.ClientEmail != "" && c.PrivateKey != ""
}

// assertionSigner produces compact RS256-signed service-account assertions.
// It is a pure function of (clientEmail, key, clock); the clock is injectable
// for tests.
type assertionSigner struct {
	clientEmail string
	audience    string
	key         *rsa.PrivateKey
	now         func() time.Time
}

func newAssertionSigner(clientEmail, privateKeyPEM, audience string, now func() time.Time) (*assertionSigner, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse service account private key: %w", err)
	}
	if now == nil {
		now = time.Now
	}
	return &assertionSigner{
		clientEmail: clientEmail,
		audience:    audience,
		key:         key,
		now:         now,
	}, nil
}

// Sign builds the JWT-bearer assertion: issuer and subject are the service
// account email, the audience is the token endpoint, and the claimed lifetime
// is one hour from now.
func (s *assertionSigner) Sign() (string, error) {
	issuedAt := s.now()
	claims := jwt.MapClaims{
		"iss":   s.clientEmail,
		"sub":   s.clientEmail,
		"aud":   s.audience,
		"scope": messagingScope,
		"iat":   issuedAt.Unix(),
		"exp":   issuedAt.Add(assertionLifetime).Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign assertion: %w", err)
	}
	return signed, nil
}
