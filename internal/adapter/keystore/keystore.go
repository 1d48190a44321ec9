package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/hkdf"
)

const (
	refVersion = "v1"
	saltSize   = 16
	kdfInfo    = "campus-token-ledger/wallet-key"
)

// ErrMalformedRef is returned for key references that were not produced by Keystore.
var ErrMalformedRef = errors.New("malformed key reference")

// Keystore implements ports.KeyManager. Each private key is sealed with AES-256-GCM under a
// key derived from the master key and a per-wallet salt; the wallet address is bound as
// additional data so a ref cannot be swapped between wallets.
//
// Ref format: v1:<address>:<salt hex>:<nonce||ciphertext hex>
type Keystore struct {
	master []byte
}

// New creates a Keystore. masterKeyHex must be a 64-character hex string (32 bytes decoded).
func New(masterKeyHex string) (*Keystore, error) {
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil {
		return nil, fmt.Errorf("decoding master key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("master key must be 32 bytes, got %d", len(key))
	}
	return &Keystore{master: key}, nil
}

// NewKey generates a secp256k1 keypair and returns its checksummed address and sealed ref.
func (k *Keystore) NewKey() (string, string, error) {
	priv, err := crypto.GenerateKey()
	if err != nil {
		return "", "", fmt.Errorf("generating key: %w", err)
	}
	address := crypto.PubkeyToAddress(priv.PublicKey).Hex()

	ref, err := k.seal(address, crypto.FromECDSA(priv))
	if err != nil {
		return "", "", err
	}
	return address, ref, nil
}

// Open unseals a ref and checks that the key still matches its address.
func (k *Keystore) Open(keyRef string) (*ecdsa.PrivateKey, error) {
	parts := strings.Split(keyRef, ":")
	if len(parts) != 4 || parts[0] != refVersion || !common.IsHexAddress(parts[1]) {
		return nil, ErrMalformedRef
	}
	address := parts[1]

	salt, err := hex.DecodeString(parts[2])
	if err != nil || len(salt) != saltSize {
		return nil, ErrMalformedRef
	}
	sealed, err := hex.DecodeString(parts[3])
	if err != nil {
		return nil, ErrMalformedRef
	}

	aead, err := k.aead(salt)
	if err != nil {
		return nil, err
	}
	nonceSize := aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]

	raw, err := aead.Open(nil, nonce, ciphertext, []byte(address))
	if err != nil {
		return nil, fmt.Errorf("decrypting key: %w", err)
	}
	priv, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing key: %w", err)
	}
	if crypto.PubkeyToAddress(priv.PublicKey) != common.HexToAddress(address) {
		return nil, fmt.Errorf("key does not match address %s", address)
	}
	return priv, nil
}

func (k *Keystore) seal(address string, raw []byte) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	aead, err := k.aead(salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}
	sealed := aead.Seal(nonce, nonce, raw, []byte(address))

	return strings.Join([]string{refVersion, address, hex.EncodeToString(salt), hex.EncodeToString(sealed)}, ":"), nil
}

func (k *Keystore) aead(salt []byte) (cipher.AEAD, error) {
	kek := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, k.master, salt, []byte(kdfInfo)), kek); err != nil {
		return nil, fmt.Errorf("deriving key: %w", err)
	}
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return aead, nil
}

// ParseHexKey loads a process-wide signing key (treasury, relayer) from configuration.
func ParseHexKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("parsing private key: %w", err)
	}
	return key, nil
}
