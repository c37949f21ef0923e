package password

import (
	"errors"
	"strings"
	"testing"
)

func newLightHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(LightConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	h := newLightHasher(t)

	hash, err := h.Hash("P@ssw0rd-Ascii")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}

	ok, err := h.Verify("P@ssw0rd-Ascii", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatal("expected password verification to succeed")
	}

	ok, err = h.Verify("wrong-password", hash)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if ok {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestHashIsSalted(t *testing.T) {
	h := newLightHasher(t)

	a, _ := h.Hash("same-input")
	b, _ := h.Hash("same-input")
	if a == b {
		t.Fatal("expected distinct hashes for the same input")
	}
}

func TestNeedsRehash(t *testing.T) {
	light := newLightHasher(t)
	hash, err := light.Hash("test-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	strong, err := NewHasher(DefaultConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	needs, err := strong.NeedsRehash(hash)
	if err != nil {
		t.Fatalf("NeedsRehash error: %v", err)
	}
	if !needs {
		t.Fatal("expected weaker hash to need a rehash")
	}

	// Older parameters still verify.
	if ok, err := strong.Verify("test-password", hash); err != nil || !ok {
		t.Fatalf("expected verify under stored params: ok=%v err=%v", ok, err)
	}

	needs, err = light.NeedsRehash(hash)
	if err != nil || needs {
		t.Fatalf("expected no rehash under same params: needs=%v err=%v", needs, err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	h := newLightHasher(t)
	good, _ := h.Hash("version-test")

	cases := map[string]string{
		"not phc":       "not-a-phc-hash",
		"wrong algo":    strings.Replace(good, "argon2id", "argon2i", 1),
		"wrong version": strings.Replace(good, "$v=19$", "$v=18$", 1),
		"low memory":    strings.Replace(good, "m=8192", "m=16", 1),
		"extra param":   strings.Replace(good, "p=1", "p=1,x=2", 1),
	}
	for name, encoded := range cases {
		if _, err := h.Verify("version-test", encoded); !errors.Is(err, ErrMalformedHash) {
			t.Fatalf("%s: expected ErrMalformedHash, got %v", name, err)
		}
	}
}

func TestLengthBounds(t *testing.T) {
	cfg := LightConfig()
	cfg.MaxPasswordBytes = 64
	h, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	if _, err := h.Hash(""); !errors.Is(err, ErrEmptyPassword) {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
	if _, err := h.Hash(strings.Repeat("a", 65)); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := h.Hash(exact)
	if err != nil {
		t.Fatalf("expected exactly-max password to be accepted: %v", err)
	}
	if _, err := h.Verify(strings.Repeat("c", 65), hash); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected Verify to reject long input, got %v", err)
	}
}

func TestDefaultMaxPasswordBytesApplied(t *testing.T) {
	h := newLightHasher(t)

	if _, err := h.Hash(strings.Repeat("d", DefaultMaxPasswordBytes+1)); err == nil {
		t.Fatalf("expected password > %d bytes to be rejected", DefaultMaxPasswordBytes)
	}
	if _, err := h.Hash(strings.Repeat("e", DefaultMaxPasswordBytes)); err != nil {
		t.Fatalf("expected password of exactly %d bytes to be accepted: %v", DefaultMaxPasswordBytes, err)
	}
}

func TestConfigValidate(t *testing.T) {
	mutations := map[string]func(*Config){
		"memory":      func(c *Config) { c.Memory = 1024 },
		"time":        func(c *Config) { c.Time = 0 },
		"parallelism": func(c *Config) { c.Parallelism = 0 },
		"salt":        func(c *Config) { c.SaltLength = 8 },
		"key":         func(c *Config) { c.KeyLength = 8 },
		"max":         func(c *Config) { c.MaxPasswordBytes = -1 },
	}
	for name, mutate := range mutations {
		cfg := LightConfig()
		mutate(&cfg)
		if _, err := NewHasher(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}
