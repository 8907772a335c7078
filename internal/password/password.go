package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Params control the argon2id cost. The defaults follow the RFC 9106
// second recommended option; the same hasher covers both account passwords
// and stored refresh-token digests.
type Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams is used by the package-level Hash helper.
var DefaultParams = Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 2,
	KeyLen:  32,
	SaltLen: 16,
}

var errInvalidHash = errors.New("invalid password hash")

// Hash derives an argon2id hash of the secret using DefaultParams and
// returns it in the standard encoded form including parameters and salt.
func Hash(secret string) (string, error) {
	return DefaultParams.Hash(secret)
}

// Hash derives an encoded argon2id hash using the receiver's cost parameters.
func (p Params) Hash(secret string) (string, error) {
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(secret), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Time,
		p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify reports whether the secret matches the encoded argon2id hash. The
// cost parameters are taken from the hash itself so older entries remain
// verifiable after DefaultParams changes.
func Verify(secret, encoded string) (bool, error) {
	params, salt, expected, err := decode(encoded)
	if err != nil {
		return false, err
	}
	actual := argon2.IDKey([]byte(secret), salt, params.Time, params.Memory, params.Threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(actual, expected) == 1, nil
}

func decode(encoded string) (Params, []byte, []byte, error) {
	var (
		params  Params
		version int
		saltB64 string
		hashB64 string
	)

	n, err := fmt.Sscanf(encoded, "$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		&version, &params.Memory, &params.Time, &params.Threads, &saltB64)
	if err != nil || n != 5 {
		return Params{}, nil, nil, errInvalidHash
	}
	if version != argon2.Version {
		return Params{}, nil, nil, errInvalidHash
	}

	// Sscanf's %s is greedy: saltB64 still carries the "$hash" tail.
	for i := range saltB64 {
		if saltB64[i] == '$' {
			hashB64 = saltB64[i+1:]
			saltB64 = saltB64[:i]
			break
		}
	}
	if hashB64 == "" {
		return Params{}, nil, nil, errInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(saltB64)
	if err != nil {
		return Params{}, nil, nil, errInvalidHash
	}
	sum, err := base64.RawStdEncoding.DecodeString(hashB64)
	if err != nil {
		return Params{}, nil, nil, errInvalidHash
	}
	return params, salt, sum, nil
}
