package auth

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestAuth(now time.Time) *HMACAuth {
	h := NewHMACAuth(map[string]string{"user-1": "test-secret-123"}, 300*time.Second)
	h.now = func() time.Time { return now }
	return h
}

func TestHMACAuth(t *testing.T) {
	now := time.Unix(1700000000, 0)
	h := newTestAuth(now)

	method := "POST"
	path := "/api/v1/battles"
	body := []byte(`{"agent_id":"agent-1"}`)

	t.Run("CreateAndVerifySignature", func(t *testing.T) {
		header := h.CreateAuthHeader(method, path, "", body, "user-1", "nonce-1")
		if header == "" {
			t.Fatal("Failed to create auth header")
		}

		info, err := ParseAuthHeader(header)
		if err != nil {
			t.Fatalf("Failed to parse auth header: %v", err)
		}
		if info.KeyID != "user-1" {
			t.Errorf("Expected keyID user-1, got %s", info.KeyID)
		}
		if info.Timestamp != "1700000000" {
			t.Errorf("Expected timestamp 1700000000, got %s", info.Timestamp)
		}

		if err := h.VerifySignature(method, path, "", body, info); err != nil {
			t.Errorf("Signature verification failed: %v", err)
		}
	})

	t.Run("TamperedBody", func(t *testing.T) {
		info, _ := ParseAuthHeader(h.CreateAuthHeader(method, path, "", body, "user-1", "nonce-2"))

		err := h.VerifySignature(method, path, "", []byte(`{"agent_id":"agent-2"}`), info)
		if !errors.Is(err, ErrSignatureMismatch) {
			t.Errorf("Expected signature mismatch, got %v", err)
		}
	})

	t.Run("TamperedQuery", func(t *testing.T) {
		info, _ := ParseAuthHeader(h.CreateAuthHeader("GET", "/api/v1/feed", "page=1", nil, "user-1", "nonce-3"))

		err := h.VerifySignature("GET", "/api/v1/feed", "page=2", nil, info)
		if !errors.Is(err, ErrSignatureMismatch) {
			t.Errorf("Expected signature mismatch, got %v", err)
		}
	})

	t.Run("UnknownKeyID", func(t *testing.T) {
		if header := h.CreateAuthHeader(method, path, "", body, "unknown", "nonce-4"); header != "" {
			t.Error("Expected empty auth header for unknown keyID")
		}

		info := &AuthHeader{KeyID: "unknown", Timestamp: "1700000000", Nonce: "n", Signature: "s"}
		if err := h.VerifySignature(method, path, "", body, info); !errors.Is(err, ErrUnknownKey) {
			t.Errorf("Expected unknown key error, got %v", err)
		}
	})

	t.Run("ExpiredTimestamp", func(t *testing.T) {
		info, _ := ParseAuthHeader(h.CreateAuthHeader(method, path, "", body, "user-1", "nonce-5"))
		info.Timestamp = "1000000000"

		if err := h.VerifySignature(method, path, "", body, info); !errors.Is(err, ErrStaleTimestamp) {
			t.Errorf("Expected timestamp skew error, got %v", err)
		}
	})

	t.Run("SkewBoundary", func(t *testing.T) {
		signer := newTestAuth(now.Add(-300 * time.Second))
		info, _ := ParseAuthHeader(signer.CreateAuthHeader(method, path, "", body, "user-1", "nonce-6"))

		if err := h.VerifySignature(method, path, "", body, info); err != nil {
			t.Errorf("Expected timestamp at the skew limit to pass, got %v", err)
		}
	})
}

func TestSignRequest(t *testing.T) {
	now := time.Unix(1700000000, 0)
	h := newTestAuth(now)
	body := []byte(`{"value":1}`)

	req := httptest.NewRequest("POST", "/api/v1/posts/post-1/vote?x=1", nil)
	if err := h.SignRequest(req, body, "user-1", "nonce-1"); err != nil {
		t.Fatalf("Failed to sign request: %v", err)
	}

	info, err := ParseAuthHeader(req.Header.Get("Authorization"))
	if err != nil {
		t.Fatalf("Failed to parse signed header: %v", err)
	}
	if err := h.VerifySignature("POST", "/api/v1/posts/post-1/vote", "x=1", body, info); err != nil {
		t.Errorf("Expected signed request to verify, got %v", err)
	}

	if err := h.SignRequest(req, body, "missing", "nonce-2"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("Expected unknown key error, got %v", err)
	}
}

func TestCanonicalString(t *testing.T) {
	expected := "POST\n/api/v1/battles\npage=1\n1640995200\nuuid-nonce-123\nabcdef123456"
	actual := CanonicalString("post", "/api/v1/battles", "page=1", "1640995200", "uuid-nonce-123", "abcdef123456")

	if actual != expected {
		t.Errorf("Canonical string mismatch.\nExpected: %q\nActual: %q", expected, actual)
	}
}

func TestBodySHA256Hex(t *testing.T) {
	expected := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if actual := BodySHA256Hex(nil); actual != expected {
		t.Errorf("Body SHA256 mismatch.\nExpected: %s\nActual: %s", expected, actual)
	}
}

func TestParseAuthHeader(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{"ValidHeader", "ARENA-HMAC-SHA256 keyId=test-key,ts=1640995200,nonce=test-nonce,sig=abcd1234", false},
		{"SpacesAroundFields", "ARENA-HMAC-SHA256 keyId=test-key, ts=1640995200, nonce=test-nonce, sig=abcd1234", false},
		{"InvalidPrefix", "Bearer token123", true},
		{"PrefixWithoutSpace", "ARENA-HMAC-SHA256keyId=test-key,ts=1,nonce=n,sig=s", true},
		{"MissingFields", "ARENA-HMAC-SHA256 keyId=test-key,ts=1640995200", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := ParseAuthHeader(tt.header)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedHeader) {
					t.Errorf("Expected malformed header error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Failed to parse valid header: %v", err)
			}
			if info.KeyID != "test-key" || info.Timestamp != "1640995200" ||
				info.Nonce != "test-nonce" || info.Signature != "abcd1234" {
				t.Errorf("Unexpected fields %+v", info)
			}
		})
	}
}
