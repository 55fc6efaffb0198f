// Package identity defines the 32-byte account addresses the market engines
// authorize against, and the mapping from sender key strings to addresses.
//
// Key strings use the same encoding as the rest of the xdao tooling:
// "ed25519:" + base64(pubkey) or "dilithium3:" + base64(pubkey). An ed25519
// public key is itself the address; larger keys are reduced with sha3-256.
package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/sha3"
)

// Size is the exact byte length of a well-formed address.
const Size = 32

// Address is an account identifier.
//
// The zero address is never a valid account. Absence of a record is decided
// by store lookups, never by comparing an owner field against Zero.
type Address [Size]byte

var Zero Address

var (
	ErrBadLength = errors.New("identity: address must be exactly 32 bytes")
	ErrZero      = errors.New("identity: zero address is not a valid account")
)

// FromBytes converts raw bytes into an Address, enforcing the length rule.
func FromBytes(b []byte) (Address, error) {
	if len(b) != Size {
		return Zero, ErrBadLength
	}
	var a Address
	copy(a[:], b)
	return a, nil
}

// FromKeyString derives the address for a sender key string.
func FromKeyString(key string) (Address, error) {
	alg, enc, ok := strings.Cut(key, ":")
	if !ok {
		return Zero, fmt.Errorf("identity: invalid key string encoding")
	}
	pub, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		return Zero, fmt.Errorf("identity: invalid key base64: %w", err)
	}
	switch alg {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return Zero, fmt.Errorf("identity: invalid ed25519 public key length")
		}
		return FromBytes(pub)
	case "dilithium3":
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return Zero, fmt.Errorf("identity: invalid dilithium3 public key: %w", err)
		}
		sum := sha3.Sum256(pub)
		return FromBytes(sum[:])
	default:
		return Zero, fmt.Errorf("identity: unsupported key encoding %q", alg)
	}
}

// Decode parses the base58 display form produced by String.
func Decode(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("identity: invalid base58 address: %w", err)
	}
	return FromBytes(b)
}

// Custody returns the market's custodial account address, derived from a
// fixed domain tag so every deployment agrees on it without key material.
func Custody() Address {
	sum := sha3.Sum256([]byte("xdao-descimarket-custody-v1"))
	var a Address
	copy(a[:], sum[:])
	return a
}

func (a Address) IsZero() bool { return a == Zero }

func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])
	return b
}

// String returns the base58 display encoding.
func (a Address) String() string { return base58.Encode(a[:]) }
