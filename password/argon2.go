// Package password hashes factor secrets with argon2id and serializes them
// in PHC string format, so stored hashes stay verifiable across parameter
// upgrades.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	minSecretBytes        = 10
	algorithmID           = "argon2id"
)

// Config holds the argon2id cost parameters.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultConfig is a moderate interactive-login parameter set.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher derives and verifies argon2id hashes with a fixed configuration.
type Hasher struct {
	config Config
}

// New validates cfg and returns a [Hasher].
func New(cfg Config) (*Hasher, error) {
	if cfg.Memory < minMemoryKB {
		return nil, errors.New("password memory must be >= 8192 KB")
	}
	if cfg.Time < minTimeCost {
		return nil, errors.New("password time must be >= 1")
	}
	if cfg.Parallelism < minParallelism {
		return nil, errors.New("password parallelism must be >= 1")
	}
	if cfg.SaltLength < minSaltLength {
		return nil, errors.New("password salt length must be >= 16")
	}
	if cfg.KeyLength < minKeyLength {
		return nil, errors.New("password key length must be >= 16")
	}
	return &Hasher{config: cfg}, nil
}

// Hash derives a PHC-formatted argon2id hash of secret with a fresh salt.
// Secret bytes are used exactly as provided (no Unicode normalization).
func (h *Hasher) Hash(secret string) (string, error) {
	if len(secret) < minSecretBytes {
		return "", errors.New("secret must be at least 10 bytes")
	}

	salt := make([]byte, h.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	derived := argon2.IDKey(
		[]byte(secret),
		salt,
		h.config.Time,
		h.config.Memory,
		h.config.Parallelism,
		h.config.KeyLength,
	)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		h.config.Memory,
		h.config.Time,
		h.config.Parallelism,
		base64.StdEncoding.EncodeToString(salt),
		base64.StdEncoding.EncodeToString(derived),
	), nil
}

// Verify reports whether secret matches the PHC-encoded hash, using the
// parameters the hash itself records.
func (h *Hasher) Verify(secret, encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey(
		[]byte(secret),
		parsed.salt,
		parsed.time,
		parsed.memory,
		parsed.parallelism,
		parsed.keyLength,
	)
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsRehash reports whether the stored hash was derived with weaker
// parameters than the current configuration.
func (h *Hasher) NeedsRehash(encoded string) (bool, error) {
	parsed, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	switch {
	case h.config.Memory > parsed.memory:
		return true, nil
	case h.config.Time > parsed.time:
		return true, nil
	case h.config.Parallelism > parsed.parallelism:
		return true, nil
	case h.config.KeyLength != parsed.keyLength:
		return true, nil
	}
	return false, nil
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
	keyLength   uint32
}

func parsePHC(encoded string) (*phc, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return nil, errors.New("invalid PHC format")
	}
	if parts[1] != algorithmID {
		return nil, errors.New("unsupported algorithm")
	}

	version, ok := strings.CutPrefix(parts[2], "v=")
	if !ok {
		return nil, errors.New("missing argon2 version")
	}
	if v, err := strconv.Atoi(version); err != nil || v != argon2.Version {
		return nil, errors.New("unsupported argon2 version")
	}

	var out phc
	var haveMemory, haveTime, haveParallelism bool
	for _, pair := range strings.Split(parts[3], ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, errors.New("invalid parameter entry")
		}
		switch key {
		case "m":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minMemoryKB) {
				return nil, errors.New("invalid memory parameter")
			}
			out.memory = uint32(v)
			haveMemory = true
		case "t":
			v, err := strconv.ParseUint(value, 10, 32)
			if err != nil || v < uint64(minTimeCost) {
				return nil, errors.New("invalid time parameter")
			}
			out.time = uint32(v)
			haveTime = true
		case "p":
			v, err := strconv.ParseUint(value, 10, 8)
			if err != nil || v < uint64(minParallelism) {
				return nil, errors.New("invalid parallelism parameter")
			}
			out.parallelism = uint8(v)
			haveParallelism = true
		default:
			return nil, errors.New("unsupported parameter")
		}
	}
	if !haveMemory || !haveTime || !haveParallelism {
		return nil, errors.New("missing parameters")
	}

	salt, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < int(minSaltLength) {
		return nil, errors.New("invalid salt")
	}
	hash, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil || len(hash) == 0 {
		return nil, errors.New("invalid hash")
	}

	out.salt = salt
	out.hash = hash
	out.keyLength = uint32(len(hash))
	return &out, nil
}
