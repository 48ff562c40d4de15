package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultMaxPasswordBytes caps the input size when Config.MaxPasswordBytes is zero.
const DefaultMaxPasswordBytes = 1024

const phcPrefix = "$argon2id$"

// Lower bounds shared by NewArgon2 and the hash decoder.
var floor = cost{memory: 8 * 1024, time: 1, parallelism: 1}

const (
	minSaltLength = 16
	minKeyLength  = 16
)

var (
	// ErrPasswordTooShort is returned by Hash for inputs below MinPasswordBytes.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned for inputs above MaxPasswordBytes.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrInvalidHash is returned when a stored hash cannot be parsed.
	ErrInvalidHash = errors.New("invalid password hash")
)

// Config holds Argon2id cost parameters and input length bounds.
//
// MinPasswordBytes applies to Hash only; existing hashes always verify
// regardless of the current minimum.
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MinPasswordBytes int
	MaxPasswordBytes int
}

// DefaultConfig returns interactive-login parameters (64 MiB, t=3, p=2).
func DefaultConfig() Config {
	return Config{
		Memory:           64 * 1024,
		Time:             3,
		Parallelism:      2,
		SaltLength:       16,
		KeyLength:        32,
		MaxPasswordBytes: DefaultMaxPasswordBytes,
	}
}

// cost is the part of the parameters that is encoded into every hash.
type cost struct {
	memory      uint32
	time        uint32
	parallelism uint8
}

func (c cost) below(min cost) bool {
	return c.memory < min.memory || c.time < min.time || c.parallelism < min.parallelism
}

// Argon2 hashes and verifies passwords. It is safe for concurrent use.
type Argon2 struct {
	cost     cost
	saltLen  uint32
	keyLen   uint32
	minBytes int
	maxBytes int
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}

	a := &Argon2{
		cost:     cost{memory: cfg.Memory, time: cfg.Time, parallelism: cfg.Parallelism},
		saltLen:  cfg.SaltLength,
		keyLen:   cfg.KeyLength,
		minBytes: cfg.MinPasswordBytes,
		maxBytes: cfg.MaxPasswordBytes,
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Argon2) validate() error {
	switch {
	case a.cost.memory < floor.memory:
		return fmt.Errorf("password memory must be >= %d KB", floor.memory)
	case a.cost.time < floor.time:
		return errors.New("password time must be >= 1")
	case a.cost.parallelism < floor.parallelism:
		return errors.New("password parallelism must be >= 1")
	case a.saltLen < minSaltLength:
		return fmt.Errorf("password salt length must be >= %d", minSaltLength)
	case a.keyLen < minKeyLength:
		return fmt.Errorf("password key length must be >= %d", minKeyLength)
	case a.minBytes < 0:
		return errors.New("password min length must be >= 0")
	case a.maxBytes < a.minBytes:
		return errors.New("password max length must be >= min length")
	}
	return nil
}

// Hash returns a PHC-encoded Argon2id hash of password with a fresh salt.
// Length limits count raw bytes; no Unicode normalization is applied.
func (a *Argon2) Hash(password string) (string, error) {
	if password == "" || len(password) < a.minBytes {
		return "", ErrPasswordTooShort
	}
	if len(password) > a.maxBytes {
		return "", ErrPasswordTooLong
	}

	salt := make([]byte, a.saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.cost.time, a.cost.memory, a.cost.parallelism, a.keyLen)
	return encode(a.cost, salt, key), nil
}

// Verify reports whether password matches encodedHash. A malformed hash is
// an error wrapping [ErrInvalidHash]; a mismatch is (false, nil).
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.maxBytes {
		return false, ErrPasswordTooLong
	}

	c, salt, key, err := decode(encodedHash)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	computed := argon2.IDKey([]byte(password), salt, c.time, c.memory, c.parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1, nil
}

func encode(c cost, salt, key []byte) string {
	var b strings.Builder
	b.WriteString(phcPrefix)
	fmt.Fprintf(&b, "v=%d$m=%d,t=%d,p=%d$", argon2.Version, c.memory, c.time, c.parallelism)
	b.WriteString(base64.StdEncoding.EncodeToString(salt))
	b.WriteByte('$')
	b.WriteString(base64.StdEncoding.EncodeToString(key))
	return b.String()
}

// decode splits "$argon2id$v=19$m=..,t=..,p=..$salt$key".
func decode(s string) (c cost, salt, key []byte, err error) {
	rest, ok := strings.CutPrefix(s, phcPrefix)
	if !ok {
		return c, nil, nil, errors.New("not an argon2id PHC string")
	}

	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return c, nil, nil, errors.New("invalid PHC format")
	}
	version, params, saltB64, keyB64 := fields[0], fields[1], fields[2], fields[3]

	var v int
	if _, err := fmt.Sscanf(version, "v=%d", &v); err != nil {
		return c, nil, nil, errors.New("invalid argon2 version")
	}
	if v != argon2.Version {
		return c, nil, nil, fmt.Errorf("unsupported argon2 version %d", v)
	}

	if c, err = decodeCost(params); err != nil {
		return c, nil, nil, err
	}

	if salt, err = base64.StdEncoding.DecodeString(saltB64); err != nil {
		return c, nil, nil, errors.New("invalid salt encoding")
	}
	if len(salt) < minSaltLength {
		return c, nil, nil, errors.New("invalid salt length")
	}
	if key, err = base64.StdEncoding.DecodeString(keyB64); err != nil {
		return c, nil, nil, errors.New("invalid hash encoding")
	}
	if len(key) == 0 {
		return c, nil, nil, errors.New("invalid hash length")
	}
	return c, salt, key, nil
}

func decodeCost(s string) (cost, error) {
	var (
		c    cost
		seen = map[string]bool{}
	)
	for _, pair := range strings.Split(s, ",") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return c, errors.New("invalid parameter entry")
		}
		seen[name] = true

		var n uint64
		if _, err := fmt.Sscan(value, &n); err != nil {
			return c, fmt.Errorf("invalid %s parameter", name)
		}
		switch {
		case name == "m" && n <= 1<<32-1:
			c.memory = uint32(n)
		case name == "t" && n <= 1<<32-1:
			c.time = uint32(n)
		case name == "p" && n <= 1<<8-1:
			c.parallelism = uint8(n)
		case name == "m" || name == "t" || name == "p":
			return c, fmt.Errorf("invalid %s parameter", name)
		default:
			return c, errors.New("unsupported parameter")
		}
	}
	if len(seen) != 3 {
		return c, errors.New("missing parameters")
	}
	if c.below(floor) {
		return c, errors.New("parameters below minimum cost")
	}
	return c, nil
}
