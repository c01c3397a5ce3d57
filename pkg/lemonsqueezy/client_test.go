package lemonsqueezy

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestActivateParsesBusinessFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/licenses/activate" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"activated":false,"error":"license_key not found","license_key":{"key":"abc","status":"inactive"}}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "123", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Activate(context.Background(), "abc", "device-1")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if result.Activated {
		t.Fatal("expected activated=false")
	}
	if result.Error != "license_key not found" {
		t.Fatalf("unexpected error field %q", result.Error)
	}
}

func TestActivateSuccessExtractsMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"activated":true,"license_key":{"key":"abc","status":"active"},"meta":{"store_id":123,"product_id":456}}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "123", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Activate(context.Background(), "abc", "device-1")
	if err != nil {
		t.Fatalf("activate: %v", err)
	}
	if !result.Activated {
		t.Fatal("expected activated=true")
	}
	if result.ProductID != "456" {
		t.Fatalf("unexpected product id %q", result.ProductID)
	}
	if !client.BelongsToStore(result) {
		t.Fatal("expected store match")
	}
}

func TestBelongsToStoreMismatch(t *testing.T) {
	client, err := NewClient("test-key", "999")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.BelongsToStore(&LicenseResult{StoreID: "123"}) {
		t.Fatal("expected store mismatch")
	}
}

func TestValidateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.Validate(context.Background(), "abc"); err == nil {
		t.Fatal("expected transport error for 500")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient("  ", "123"); err == nil {
		t.Fatal("expected missing api key error")
	}
}

func TestVerifySignature(t *testing.T) {
	secret := "whsec"
	body := []byte(`{"meta":{"event_name":"order_created"}}`)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	signature := hex.EncodeToString(mac.Sum(nil))

	if !VerifySignature(secret, body, signature) {
		t.Fatal("expected valid signature")
	}
	if VerifySignature(secret, body, signature[:10]) {
		t.Fatal("expected truncated signature to fail")
	}
	if VerifySignature(secret, []byte("tampered"), signature) {
		t.Fatal("expected tampered body to fail")
	}
	if VerifySignature("", body, signature) {
		t.Fatal("expected empty secret to fail")
	}
}
