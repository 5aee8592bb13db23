// Package crypto wraps secp256k1 ECDSA signing/verification and SHA-256
// hashing for device identities and signed wire payloads.
package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	btcecdsa "github.com/btcsuite/btcd/btcec/v2/ecdsa"
)

var (
	ErrInvalidPublicKey  = errors.New("crypto: invalid public key")
	ErrInvalidSignature  = errors.New("crypto: invalid signature")
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")
)

// S256 returns the secp256k1 curve used for every device identity.
func S256() elliptic.Curve {
	return btcec.S256()
}

// GenerateKey creates a new secp256k1 device keypair.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(S256(), rand.Reader)
}

// ToECDSA converts a raw 32-byte private scalar into an ECDSA private key.
func ToECDSA(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("%w: want 32 bytes, got %d", ErrInvalidPrivateKey, len(d))
	}
	priv, pub := btcec.PrivKeyFromBytes(d)
	return &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{
			Curve: S256(),
			X:     pub.X(),
			Y:     pub.Y(),
		},
		D: new(big.Int).SetBytes(priv.Serialize()),
	}, nil
}

// FromECDSA serializes a private key's scalar to 32 bytes, big-endian,
// left-padded with zeroes.
func FromECDSA(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	out := make([]byte, 32)
	d := priv.D.Bytes()
	copy(out[32-len(d):], d)
	return out
}

// UnmarshalPubkey parses a SEC1-encoded public key (compressed, 33 bytes,
// or uncompressed, 65 bytes).
func UnmarshalPubkey(pub []byte) (*ecdsa.PublicKey, error) {
	key, err := btcec.ParsePubKey(pub)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return key.ToECDSA(), nil
}

// FromECDSAPub serializes a public key to uncompressed SEC1 form (65 bytes,
// 0x04 prefix followed by X and Y).
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(S256(), pub.X, pub.Y)
}

// HexToPubkey decodes a hex-encoded SEC1 public key as used in
// Heartbeat.DevicePubkey / Transaction.SenderPubkey.
func HexToPubkey(hexStr string) (*ecdsa.PublicKey, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, fmt.Errorf("crypto: hex decode pubkey: %w", err)
	}
	return UnmarshalPubkey(raw)
}

// PubkeyToHex hex-encodes a public key in uncompressed SEC1 form.
func PubkeyToHex(pub *ecdsa.PublicKey) string {
	return hex.EncodeToString(FromECDSAPub(pub))
}

// HashSHA256 returns the raw SHA-256 digest of data.
func HashSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// HashSHA256Hex returns the hex-encoded SHA-256 digest of data.
func HashSHA256Hex(data []byte) string {
	sum := HashSHA256(data)
	return hex.EncodeToString(sum[:])
}

// compactSignatureLen is the wire size of a compact secp256k1 signature:
// a 32-byte r followed by a 32-byte s, no DER framing and no recovery id,
// matching what a device's own secp256k1 library (e.g. k256 on Rust, or
// the various mobile/web secp256k1 bindings) emits directly.
const compactSignatureLen = 64

// Sign produces a compact (r||s, 64-byte) ECDSA signature over the
// SHA-256 hash of message, hex-encoded for embedding in a signed payload.
func Sign(message []byte, priv *ecdsa.PrivateKey) (string, error) {
	if priv == nil {
		return "", ErrInvalidPrivateKey
	}
	d := FromECDSA(priv)
	btcecPriv, _ := btcec.PrivKeyFromBytes(d)
	hash := HashSHA256(message)
	// SignCompact returns a 65-byte [recovery_id || R || S] signature; the
	// recovery id only matters for pubkey recovery, which this wire
	// contract does not use, so it is dropped.
	sig := btcecdsa.SignCompact(btcecPriv, hash[:], false)
	return hex.EncodeToString(sig[1:]), nil
}

// VerifySignature checks a hex-encoded compact (r||s) signature over the
// SHA-256 hash of message against a hex-encoded SEC1 public key.
func VerifySignature(pubkeyHex string, message []byte, sigHex string) (bool, error) {
	pubBytes, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return false, fmt.Errorf("%w: hex decode pubkey: %v", ErrInvalidPublicKey, err)
	}
	pubkey, err := btcec.ParsePubKey(pubBytes)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	sigBytes, err := hex.DecodeString(sigHex)
	if err != nil {
		return false, fmt.Errorf("%w: hex decode signature: %v", ErrInvalidSignature, err)
	}
	if len(sigBytes) != compactSignatureLen {
		return false, fmt.Errorf("%w: want %d-byte compact signature, got %d", ErrInvalidSignature, compactSignatureLen, len(sigBytes))
	}
	var r, s btcec.ModNScalar
	if overflow := r.SetByteSlice(sigBytes[:32]); overflow {
		return false, fmt.Errorf("%w: signature r out of range", ErrInvalidSignature)
	}
	if overflow := s.SetByteSlice(sigBytes[32:]); overflow {
		return false, fmt.Errorf("%w: signature s out of range", ErrInvalidSignature)
	}
	sig := btcecdsa.NewSignature(&r, &s)
	hash := HashSHA256(message)
	return sig.Verify(hash[:], pubkey), nil
}
