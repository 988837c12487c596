package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/crypto/argon2"
)

type (
	Argon2idParams struct {
		Time    uint32
		Memory  uint32 // KiB
		Threads uint8
		SaltLen uint32
		KeyLen  uint32
	}

	Argon2id struct {
		params Argon2idParams
	}
)

var (
	errMalformedArgon2 = errors.New("password: malformed argon2id hash")
)

func DefaultArgon2idParams() Argon2idParams {
	threads := runtime.NumCPU() / 2
	if threads < 1 {
		threads = 1
	}
	if threads > 255 {
		threads = 255
	}
	// 7 passes over 10 MB are roughly as expensive as 1 pass over 64 MB
	return Argon2idParams{
		Time:    7,
		Memory:  10 * 1024,
		Threads: uint8(threads),
		SaltLen: 16,
		KeyLen:  32,
	}
}

func NewArgon2id(p Argon2idParams) *Argon2id {
	if p.Threads == 0 {
		p.Threads = 1
	}
	if p.Time == 0 {
		p.Time = 1
	}
	if p.SaltLen == 0 {
		p.SaltLen = 16
	}
	if p.KeyLen == 0 {
		p.KeyLen = 32
	}
	return &Argon2id{params: p}
}

// Hash returns a PHC formatted string:
// $argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<key>
func (a *Argon2id) Hash(plain string) (string, error) {
	salt := make([]byte, a.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: unable to generate salt, cause %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, a.params.Time, a.params.Memory, a.params.Threads, a.params.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, a.params.Memory, a.params.Time, a.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (a *Argon2id) Verify(plain, hash string) (bool, error) {
	parts := strings.Split(hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errMalformedArgon2
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return false, errMalformedArgon2
	}
	var p Argon2idParams
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return false, errMalformedArgon2
	}
	// argon2.IDKey panics when asked for zero passes
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return false, errMalformedArgon2
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, errMalformedArgon2
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 {
		return false, errMalformedArgon2
	}
	actual := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

var _ Hasher = (*Argon2id)(nil)
