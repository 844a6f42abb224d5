package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryTokenRevoker(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	if err := revoker.Revoke("tok-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := revoker.IsRevoked("tok-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token to be revoked")
	}
	if revoked, _ := revoker.IsRevoked("tok-other"); revoked {
		t.Fatalf("unrelated token should not be revoked")
	}
}

func TestMemoryTokenRevokerIgnoresNonPositiveTTL(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	if err := revoker.Revoke("tok-1", 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := revoker.IsRevoked("tok-1"); revoked {
		t.Fatalf("zero TTL should be a no-op")
	}
}

func TestRedisTokenRevoker(t *testing.T) {
	srv := miniredis.RunT(t)
	revoker := NewRedisTokenRevoker(srv.Addr(), "")
	if err := revoker.Revoke("tok-1", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	revoked, err := revoker.IsRevoked("tok-1")
	if err != nil {
		t.Fatalf("is revoked: %v", err)
	}
	if !revoked {
		t.Fatalf("expected token to be revoked")
	}

	srv.FastForward(2 * time.Minute)
	revoked, err = revoker.IsRevoked("tok-1")
	if err != nil {
		t.Fatalf("is revoked after expiry: %v", err)
	}
	if revoked {
		t.Fatalf("expected revocation entry to expire")
	}
}
