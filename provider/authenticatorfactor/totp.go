package authenticatorfactor

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const secretBytes = 20

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func generateSecret() (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return secretEncoding.EncodeToString(raw), nil
}

func provisionURI(cfg Config, secret, account string) string {
	label := url.PathEscape(cfg.Issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", cfg.Issuer)
	v.Set("period", strconv.Itoa(cfg.Period))
	v.Set("digits", strconv.Itoa(cfg.Digits))
	v.Set("algorithm", strings.ToUpper(cfg.Algorithm))

	return "otpauth://totp/" + label + "?" + v.Encode()
}

// verifyCode checks the code against the secret within the configured skew
// window. The comparison is constant-time per candidate counter.
func verifyCode(cfg Config, secret, code string, now time.Time) (bool, error) {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != cfg.Digits || !isNumeric(trimmed) {
		return false, nil
	}

	raw, err := secretEncoding.DecodeString(secret)
	if err != nil || len(raw) == 0 {
		return false, errors.New("malformed totp secret")
	}

	baseCounter := now.Unix() / int64(cfg.Period)
	for step := -cfg.Skew; step <= cfg.Skew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		generated, err := hotpCode(raw, counter, cfg.Digits, cfg.Algorithm)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(generated), []byte(trimmed)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

func hotpCode(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < digits; i++ {
		mod *= 10
	}

	code := bin % mod
	return fmt.Sprintf("%0*d", digits, code), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, errors.New("unsupported totp algorithm")
	}
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
