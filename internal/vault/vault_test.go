package vault

import (
	"errors"
	"testing"
)

func TestParseRef(t *testing.T) {
	path, key, err := ParseRef("vault:kv/storefront#db_password")
	if err != nil {
		t.Fatalf("ParseRef: %v", err)
	}
	if path != "kv/storefront" || key != "db_password" {
		t.Fatalf("got %q %q", path, key)
	}

	for _, bad := range []string{"kv/storefront#x", "vault:kv#x", "vault:kv/app", "vault:kv/app#", "vault:#k"} {
		if _, _, err := ParseRef(bad); !errors.Is(err, ErrBadRef) {
			t.Errorf("%q: expected ErrBadRef, got %v", bad, err)
		}
	}
}

func TestIsRef(t *testing.T) {
	if !IsRef("vault:kv/a#b") || IsRef("plain-secret") {
		t.Fatal("IsRef misclassified")
	}
}
