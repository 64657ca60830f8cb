package events

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/HORNET-Storage/hornet-groups/lib/tags"
)

var (
	ErrIDMismatch       = errors.New("event id does not match its content")
	ErrInvalidSignature = errors.New("invalid event signature")
)

// ComputeID hashes the canonical serialization of the signable fields.
func ComputeID(ev *Event) string {
	sum := sha256.Sum256(ev.Serialize())
	return hex.EncodeToString(sum[:])
}

// SetID fills in ev.ID from its content.
func (ev *Event) SetID() {
	ev.ID = ComputeID(ev)
}

// CheckID recomputes the id and compares it with the claimed one.
func CheckID(ev *Event) error {
	if !tags.IsID(ev.ID) {
		return fmt.Errorf("%w: malformed id %q", ErrIDMismatch, ev.ID)
	}
	if got := ComputeID(ev); got != ev.ID {
		return fmt.Errorf("%w: claimed %s, computed %s", ErrIDMismatch, ev.ID, got)
	}
	return nil
}

// VerifySignature checks a BIP-340 signature over the raw 32-byte id. It is
// a pure function of its three hex inputs.
func VerifySignature(id, pubkey, sig string) error {
	msg, err := hex.DecodeString(id)
	if err != nil || len(msg) != sha256.Size {
		return fmt.Errorf("%w: malformed id", ErrInvalidSignature)
	}
	pkBytes, err := hex.DecodeString(pubkey)
	if err != nil {
		return fmt.Errorf("%w: malformed pubkey", ErrInvalidSignature)
	}
	pk, err := schnorr.ParsePubKey(pkBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	sigBytes, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("%w: malformed signature", ErrInvalidSignature)
	}
	s, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if !s.Verify(msg, pk) {
		return ErrInvalidSignature
	}
	return nil
}

// Verify recomputes the id and then checks the signature against it.
func Verify(ev *Event) error {
	if err := CheckID(ev); err != nil {
		return err
	}
	return VerifySignature(ev.ID, ev.PubKey, ev.Sig)
}
