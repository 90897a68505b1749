package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// SessionKeys is an ES256 key pair for tests that need real session tokens
type SessionKeys struct {
	t         *testing.T
	Private   *ecdsa.PrivateKey
	PublicPEM string
}

// NewSessionKeys generates a fresh P-256 key pair
func NewSessionKeys(t *testing.T) *SessionKeys {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err, "Failed to generate ECDSA private key")

	pubBytes, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err, "Failed to marshal ECDSA public key")
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	return &SessionKeys{t: t, Private: priv, PublicPEM: string(pubPEM)}
}

// Sign issues a session token for userID that expires after ttl
func (k *SessionKeys) Sign(userID uuid.UUID, username string, ttl time.Duration) string {
	k.t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"exp": time.Now().Add(ttl).Unix(),
		"claim": map[string]interface{}{
			"uid":      userID.String(),
			"username": username,
		},
	})
	signed, err := token.SignedString(k.Private)
	require.NoError(k.t, err, "Failed to sign session token")
	return signed
}
