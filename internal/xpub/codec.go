// Package xpub converts between the xpub and zpub encodings of a BIP32
// extended public key.
package xpub

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/rs/zerolog"
)

const (
	versionLen = 4

	// serializedKeyLen is version(4) | depth(1) | parent fingerprint(4) |
	// child number(4) | chain code(32) | public key(33).
	serializedKeyLen = 78
)

var (
	// XPubVersion is the mainnet legacy (BIP32) public version prefix.
	XPubVersion = chaincfg.MainNetParams.HDPublicKeyID

	// ZPubVersion is the mainnet native segwit (BIP84) public version prefix.
	ZPubVersion = [versionLen]byte{0x04, 0xb2, 0x47, 0x46}
)

var ErrInvalidLength = errors.New("invalid extended key length")

// ExtendedKey is a decoded extended public key payload without its checksum.
type ExtendedKey struct {
	payload []byte
}

// Decode base58check-decodes s into an ExtendedKey.
func Decode(s string) (ExtendedKey, error) {
	body, first, err := base58.CheckDecode(s)
	if err != nil {
		return ExtendedKey{}, fmt.Errorf("base58check: %w", err)
	}

	// CheckDecode splits off the first byte as a single-byte version.
	payload := make([]byte, 0, len(body)+1)
	payload = append(payload, first)
	payload = append(payload, body...)

	if len(payload) != serializedKeyLen {
		return ExtendedKey{}, fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(payload))
	}
	return ExtendedKey{payload: payload}, nil
}

func (k ExtendedKey) Version() [versionLen]byte {
	var v [versionLen]byte
	copy(v[:], k.payload[:versionLen])
	return v
}

// Body returns a copy of everything after the version prefix.
func (k ExtendedKey) Body() []byte {
	return bytes.Clone(k.payload[versionLen:])
}

func (k ExtendedKey) Depth() uint8 {
	return k.payload[4]
}

func (k ExtendedKey) ParentFingerprint() uint32 {
	return binary.BigEndian.Uint32(k.payload[5:9])
}

func (k ExtendedKey) ChildNumber() uint32 {
	return binary.BigEndian.Uint32(k.payload[9:13])
}

// Hardened reports whether the key was derived at a hardened index.
func (k ExtendedKey) Hardened() bool {
	return k.ChildNumber() >= hdkeychain.HardenedKeyStart
}

// Variant names the encoding family of the key's version prefix.
func (k ExtendedKey) Variant() string {
	switch k.Version() {
	case XPubVersion:
		return "xpub"
	case ZPubVersion:
		return "zpub"
	default:
		return "unknown"
	}
}

// WithVersion returns a copy of k carrying version v and the same body.
func (k ExtendedKey) WithVersion(v [versionLen]byte) ExtendedKey {
	payload := bytes.Clone(k.payload)
	copy(payload[:versionLen], v[:])
	return ExtendedKey{payload: payload}
}

func (k ExtendedKey) String() string {
	return base58.CheckEncode(k.payload[1:], k.payload[0])
}

// Codec rewrites zpub keys into their xpub form.
type Codec struct {
	log zerolog.Logger
}

func NewCodec(log zerolog.Logger) *Codec {
	return &Codec{log: log.With().Str("component", "xpub").Logger()}
}

// Normalize returns the xpub form of a zpub key. Any input that does not
// decode, or that carries a version other than zpub, is returned unchanged;
// callers always get a string back and must let the indexer judge it.
func (c *Codec) Normalize(input string) string {
	key, err := Decode(input)
	if err != nil {
		c.log.Debug().Err(err).Msg("pubkey did not decode, passing through")
		return input
	}
	if key.Version() != ZPubVersion {
		return input
	}
	return key.WithVersion(XPubVersion).String()
}

// Normalize is Codec.Normalize without diagnostics.
func Normalize(input string) string {
	return (&Codec{log: zerolog.Nop()}).Normalize(input)
}
