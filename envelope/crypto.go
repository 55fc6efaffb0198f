package envelope

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// Signer produces envelope signatures. Sign receives the canonical signed
// bytes and returns a base64 signature over digestFor(HashAlg, signed).
type Signer interface {
	KeyString() string
	Alg() string
	HashAlg() string
	Sign(signed []byte) (string, error)
}

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case "sha256":
		s := sha256.Sum256(message)
		return s[:], nil
	case "sha512":
		s := sha512.Sum512(message)
		return s[:], nil
	case "sha3-256":
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("envelope: unsupported hash algorithm %q", hashAlg)
	}
}

// Ed25519Signer signs with an Ed25519 private key.
type Ed25519Signer struct {
	Private ed25519.PrivateKey

	// Hash selects the digest algorithm; "sha256" when empty.
	Hash string
}

func (s Ed25519Signer) KeyString() string {
	pub := s.Private.Public().(ed25519.PublicKey)
	return "ed25519:" + base64.StdEncoding.EncodeToString(pub)
}

func (s Ed25519Signer) Alg() string { return "ed25519" }

func (s Ed25519Signer) HashAlg() string {
	if s.Hash == "" {
		return "sha256"
	}
	return s.Hash
}

func (s Ed25519Signer) Sign(signed []byte) (string, error) {
	digest, err := digestFor(s.HashAlg(), signed)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ed25519.Sign(s.Private, digest)), nil
}

// Dilithium3Signer signs with a Dilithium mode3 private key (post-quantum).
type Dilithium3Signer struct {
	Public  *mode3.PublicKey
	Private *mode3.PrivateKey

	Hash string
}

func (s Dilithium3Signer) KeyString() string {
	b, err := s.Public.MarshalBinary()
	if err != nil {
		return ""
	}
	return "dilithium3:" + base64.StdEncoding.EncodeToString(b)
}

func (s Dilithium3Signer) Alg() string { return "dilithium3" }

func (s Dilithium3Signer) HashAlg() string {
	if s.Hash == "" {
		return "sha256"
	}
	return s.Hash
}

func (s Dilithium3Signer) Sign(signed []byte) (string, error) {
	if s.Private == nil {
		return "", errors.New("envelope: missing private key")
	}
	digest, err := digestFor(s.HashAlg(), signed)
	if err != nil {
		return "", err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.Private, digest, sig)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks the envelope signature against Sender-Key.
func (e *Envelope) Verify() error {
	if e == nil {
		return errors.New("envelope: nil envelope")
	}
	if e.SigAlg != keyAlg(e.SenderKey) {
		return errors.New("envelope: Signature-Alg does not match Sender-Key")
	}
	digest, err := digestFor(e.HashAlg, e.Signed)
	if err != nil {
		return err
	}
	sig, err := base64.StdEncoding.DecodeString(e.Signature)
	if err != nil {
		return fmt.Errorf("envelope: invalid signature base64: %w", err)
	}
	pub, err := senderPublicKeyBytes(e.SenderKey)
	if err != nil {
		return err
	}

	switch e.SigAlg {
	case "ed25519":
		if len(sig) != ed25519.SignatureSize {
			return errors.New("envelope: invalid ed25519 signature length")
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return errors.New("envelope: ed25519 signature verification failed")
		}
		return nil
	case "dilithium3":
		if len(sig) != mode3.SignatureSize {
			return errors.New("envelope: invalid dilithium3 signature length")
		}
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("envelope: invalid dilithium3 public key: %w", err)
		}
		if !mode3.Verify(&pk, digest, sig) {
			return errors.New("envelope: dilithium3 signature verification failed")
		}
		return nil
	default:
		return fmt.Errorf("envelope: unsupported Signature-Alg %q", e.SigAlg)
	}
}

func keyAlg(key string) string {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i]
		}
	}
	return ""
}

func senderPublicKeyBytes(key string) ([]byte, error) {
	alg := keyAlg(key)
	if alg == "" || len(key) <= len(alg)+1 {
		return nil, errors.New("envelope: invalid Sender-Key encoding")
	}
	pub, err := base64.StdEncoding.DecodeString(key[len(alg)+1:])
	if err != nil {
		return nil, fmt.Errorf("envelope: invalid Sender-Key base64: %w", err)
	}
	switch alg {
	case "ed25519":
		if len(pub) != ed25519.PublicKeySize {
			return nil, errors.New("envelope: invalid ed25519 public key length")
		}
	case "dilithium3":
		if len(pub) != mode3.PublicKeySize {
			return nil, errors.New("envelope: invalid dilithium3 public key length")
		}
	default:
		return nil, fmt.Errorf("envelope: unsupported Sender-Key encoding %q", alg)
	}
	return pub, nil
}
