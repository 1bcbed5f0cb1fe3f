package push

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// generateTestKey creates a throwaway RSA key pair and returns the private
// key PEM plus the public key for signature verification.
func generateTestKey(t *testing.T) (string, *rsa.PublicKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: der,
	})

	return string(pemBytes), &key.PublicKey
}

func TestAssertionSigner_Sign(t *testing.T) {
	privatePEM, publicKey := generateTestKey(t)

	issuedAt := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return issuedAt }

	signer, err := newAssertionSigner("svc@project.iam.gserviceaccount.com", privatePEM, tokenEndpoint, clock)
	if err != nil {
		t.Fatalf("newAssertionSigner: %v", err)
	}

	assertion, err := signer.Sign()
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// Compact JWS form: header.payload.signature
	if parts := strings.Split(assertion, "."); len(parts) != 3 {
		t.Fatalf("assertion has %d segments, want 3", len(parts))
	}

	// Verify the signature and inspect the claims
	parsed, err := jwt.Parse(assertion, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			t.Fatalf("unexpected signing method: %v", token.Method.Alg())
		}
		return publicKey, nil
	}, jwt.WithTimeFunc(clock))
	if err != nil {
		t.Fatalf("parse assertion: %v", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		t.Fatal("assertion did not validate")
	}

	if claims["iss"] != "svc@project.iam.gserviceaccount.com" {
		t.Errorf("iss = %v, want service account email", claims["iss"])
	}
	if claims["sub"] != claims["iss"] {
		t.Errorf("sub = %v, want same as iss", claims["sub"])
	}
	if claims["aud"] != tokenEndpoint {
		t.Errorf("aud = %v, want %q", claims["aud"], tokenEndpoint)
	}
	if claims["scope"] != messagingScope {
		t.Errorf("scope = %v, want %q", claims["scope"], messagingScope)
	}

	iat := int64(claims["iat"].(float64))
	exp := int64(claims["exp"].(float64))
	if iat != issuedAt.Unix() {
		t.Errorf("iat = %d, want %d", iat, issuedAt.Unix())
	}
	if exp-iat != 3600 {
		t.Errorf("exp-iat = %d, want 3600", exp-iat)
	}
}

func TestAssertionSigner_MalformedKey(t *testing.T) {
	_, err := newAssertionSigner("svc@project.iam.gserviceaccount.com", "not a pem key", tokenEndpoint, nil)
	if err == nil {
		t.Fatal("expected error for malformed private key")
	}
}

func TestCredentials_Complete(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"all set", Credentials{ProjectID: "p", ClientEmail: "e", PrivateKey: "k"}, true},
		{"missing project", Credentials{ClientEmail: "e", PrivateKey: "k"}, false},
		{"missing email", Credentials{ProjectID: "p", PrivateKey: "k"}, false},
		{"missing key", Credentials{ProjectID: "p", ClientEmail: "e"}, false},
		{"empty", Credentials{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.Complete(); got != tt.want {
				t.Errorf("Complete() = %v, want %v", got, tt.want)
			}
		})
	}
}
