package token

import (
	"errors"
	"testing"
)

func TestNewDecodes(t *testing.T) {
	tok, id, hash, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	gotID, secret, err := Decode(tok)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if gotID != id || secret.Hash() != hash {
		t.Fatal("decoded token does not match issued parts")
	}
	parsed, err := ParseID(id.String())
	if err != nil || parsed != id {
		t.Fatalf("ParseID roundtrip failed: %v", err)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "abc", "!!!not-base64!!!", "dG9vLXNob3J0"} {
		if _, _, err := Decode(in); !errors.Is(err, ErrMalformed) {
			t.Fatalf("Decode(%q) err = %v, want ErrMalformed", in, err)
		}
	}
	if _, err := ParseID("AAAA"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("ParseID short err = %v", err)
	}
}

func FuzzDecode(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
	if tok, _, _, err := New(); err == nil {
		f.Add(tok)
	}
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	f.Fuzz(func(t *testing.T, input string) {
		id, secret, err := Decode(input)
		if err != nil {
			return
		}
		id2, secret2, err := Decode(Encode(id, secret))
		if err != nil {
			t.Fatalf("roundtrip decode failed: %v", err)
		}
		if id2 != id || secret2 != secret {
			t.Fatal("roundtrip mismatch")
		}
	})
}
