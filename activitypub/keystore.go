package activitypub

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"errors"
	"fmt"
	"log"

	"github.com/deemkeen/markodon/db"
)

// ErrNotConfigured is returned when a signing operation is attempted
// before the local keypair has been generated.
var ErrNotConfigured = errors.New("actor keypair not configured")

const rsaKeyBits = 4096

// KeyStore owns the local actor's RSA keypair. The keypair is generated
// exactly once and never rotated; EnsureKeyPair must run at boot before
// the HTTP listener accepts traffic, since generation takes a while and
// signed requests need the key in place.
type KeyStore struct {
	database *db.DB
}

func NewKeyStore(database *db.DB) *KeyStore {
	return &KeyStore{database: database}
}

// EnsureKeyPair generates and persists a 4096-bit RSA keypair for the
// named actor if none exists yet. Idempotent: a second call leaves the
// persisted PEM bytes unchanged.
func (k *KeyStore) EnsureKeyPair(name string) error {
	err, exists := k.database.HasAccount()
	if err != nil {
		return fmt.Errorf("failed to check for existing keypair: %w", err)
	}
	if exists {
		return nil
	}

	log.Printf("KeyStore: Generating %d-bit RSA keypair for %s, this can take a moment...", rsaKeyBits, name)

	privateKey, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	privBytes, err := x509.MarshalPKCS8PrivateKey(privateKey)
	if err != nil {
		return fmt.Errorf("failed to marshal private key: %w", err)
	}
	privPem := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privBytes})

	pubBytes, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to marshal public key: %w", err)
	}
	pubPem := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})

	if err := k.database.CreateAccount(name, string(pubPem), string(privPem)); err != nil {
		return fmt.Errorf("failed to persist keypair: %w", err)
	}

	log.Printf("KeyStore: Keypair generated and persisted")
	return nil
}

// PublicKeyPem returns the persisted public key PEM.
func (k *KeyStore) PublicKeyPem() (string, error) {
	err, _, pubkey, _ := k.database.ReadAccount()
	if err == sql.ErrNoRows {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", err
	}
	return pubkey, nil
}

// PrivateKeyPem returns the persisted private key PEM.
func (k *KeyStore) PrivateKeyPem() (string, error) {
	err, _, _, privkey := k.database.ReadAccount()
	if err == sql.ErrNoRows {
		return "", ErrNotConfigured
	}
	if err != nil {
		return "", err
	}
	return privkey, nil
}

// SigningKey returns the parsed RSA private key ready for SignRequest.
func (k *KeyStore) SigningKey() (*rsa.PrivateKey, error) {
	pemString, err := k.PrivateKeyPem()
	if err != nil {
		return nil, err
	}
	return ParsePrivateKey(pemString)
}
