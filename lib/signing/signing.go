// Package signing provides the signing capability consumed by the builder
// and the secp256k1 key codecs (hex, nsec, npub) around it.
package signing

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/HORNET-Storage/hornet-groups/lib/events"
)

var (
	// ErrSigningUnavailable means the signer could not be reached or has no
	// key loaded. Callers may try again later.
	ErrSigningUnavailable = errors.New("signing unavailable")
	// ErrSigningRejected means the signer refused this particular event.
	ErrSigningRejected = errors.New("signing rejected")
)

const (
	PrivateKeyPrefix = "nsec"
	PublicKeyPrefix  = "npub"
)

// Signer produces a BIP-340 signature over an event id. The event handed in
// already carries its id and the signer's public key.
type Signer interface {
	PublicKey(ctx context.Context) (string, error)
	SignEvent(ctx context.Context, ev *events.Event) (string, error)
}

func DecodeKey(serializedKey string) (string, []byte, error) {
	hrp, bytesToBits, err := bech32.Decode(serializedKey)
	if err != nil {
		return "", nil, err
	}

	keyBytes, err := bech32.ConvertBits(bytesToBits, 5, 8, false)
	if err != nil {
		return "", nil, err
	}

	return hrp, keyBytes, nil
}

func encodeKey(prefix string, keyBytes []byte) (string, error) {
	bytesToBits, err := bech32.ConvertBits(keyBytes, 8, 5, true)
	if err != nil {
		return "", err
	}

	return bech32.Encode(prefix, bytesToBits)
}

// ParsePrivateKey accepts either 64 hex characters or an nsec string.
func ParsePrivateKey(s string) (*secp256k1.PrivateKey, error) {
	var keyBytes []byte
	if strings.HasPrefix(s, PrivateKeyPrefix+"1") {
		hrp, b, err := DecodeKey(s)
		if err != nil {
			return nil, err
		}
		if hrp != PrivateKeyPrefix {
			return nil, fmt.Errorf("unexpected key prefix %q", hrp)
		}
		keyBytes = b
	} else {
		b, err := hex.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("private key is neither hex nor nsec: %w", err)
		}
		keyBytes = b
	}
	if len(keyBytes) != 32 {
		return nil, fmt.Errorf("private key must be 32 bytes, got %d", len(keyBytes))
	}

	privateKey, _ := btcec.PrivKeyFromBytes(keyBytes)

	return privateKey, nil
}

// ParsePublicKey accepts either 64 hex characters or an npub string and
// returns the x-only key in hex.
func ParsePublicKey(s string) (string, error) {
	var keyBytes []byte
	if strings.HasPrefix(s, PublicKeyPrefix+"1") {
		hrp, b, err := DecodeKey(s)
		if err != nil {
			return "", err
		}
		if hrp != PublicKeyPrefix {
			return "", fmt.Errorf("unexpected key prefix %q", hrp)
		}
		keyBytes = b
	} else {
		b, err := hex.DecodeString(s)
		if err != nil {
			return "", fmt.Errorf("public key is neither hex nor npub: %w", err)
		}
		keyBytes = b
	}

	if _, err := schnorr.ParsePubKey(keyBytes); err != nil {
		return "", err
	}

	return hex.EncodeToString(keyBytes), nil
}

func GeneratePrivateKey() (*secp256k1.PrivateKey, error) {
	privateKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}

	return privateKey, nil
}

// PublicKeyHex is the x-only public key in lowercase hex, the form events
// carry.
func PublicKeyHex(privateKey *secp256k1.PrivateKey) string {
	return hex.EncodeToString(schnorr.SerializePubKey(privateKey.PubKey()))
}

func SerializePrivateKey(privateKey *secp256k1.PrivateKey) (string, error) {
	return encodeKey(PrivateKeyPrefix, privateKey.Serialize())
}

// SerializePublicKey encodes a hex x-only public key as npub.
func SerializePublicKey(publicKey string) (string, error) {
	keyBytes, err := hex.DecodeString(publicKey)
	if err != nil {
		return "", err
	}
	if len(keyBytes) != 32 {
		return "", fmt.Errorf("public key must be 32 bytes, got %d", len(keyBytes))
	}

	return encodeKey(PublicKeyPrefix, keyBytes)
}

// KeySigner signs with an in-memory private key.
type KeySigner struct {
	privateKey *secp256k1.PrivateKey
	publicKey  string
}

func NewKeySigner(privateKey *secp256k1.PrivateKey) *KeySigner {
	return &KeySigner{privateKey: privateKey, publicKey: PublicKeyHex(privateKey)}
}

// GenerateKeySigner creates a signer around a fresh random key.
func GenerateKeySigner() (*KeySigner, error) {
	privateKey, err := GeneratePrivateKey()
	if err != nil {
		return nil, err
	}

	return NewKeySigner(privateKey), nil
}

func (s *KeySigner) PrivateKey() *secp256k1.PrivateKey { return s.privateKey }

func (s *KeySigner) PublicKey(ctx context.Context) (string, error) {
	if s == nil || s.privateKey == nil {
		return "", ErrSigningUnavailable
	}
	return s.publicKey, nil
}

// SignEvent refuses events claiming another author or whose id does not
// match their content; it never signs a hash it did not compute itself.
func (s *KeySigner) SignEvent(ctx context.Context, ev *events.Event) (string, error) {
	if s == nil || s.privateKey == nil {
		return "", ErrSigningUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningUnavailable, err)
	}
	if ev.PubKey != s.publicKey {
		return "", fmt.Errorf("%w: event author %s is not %s", ErrSigningRejected, ev.PubKey, s.publicKey)
	}
	if err := events.CheckID(ev); err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningRejected, err)
	}

	id, _ := hex.DecodeString(ev.ID)
	signature, err := schnorr.Sign(s.privateKey, id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningRejected, err)
	}

	return hex.EncodeToString(signature.Serialize()), nil
}

// Sign fills in the signature of ev, whose id must already be set.
func Sign(ctx context.Context, signer Signer, ev *events.Event) error {
	sig, err := signer.SignEvent(ctx, ev)
	if err != nil {
		return err
	}
	ev.Sig = sig
	return nil
}
