package appsumo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetLicenseActive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-AppSumo-Licensing-Key"); got != "test-key" {
			t.Errorf("unexpected licensing key header %q", got)
		}
		_, _ = w.Write([]byte(`{"license_key":"sumo-1","license_status":"active","tier":3}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	license, err := client.GetLicense(context.Background(), "sumo-1")
	if err != nil {
		t.Fatalf("get license: %v", err)
	}
	if !license.IsActive() {
		t.Fatal("expected active license")
	}
	if license.Tier != 3 {
		t.Fatalf("unexpected tier %d", license.Tier)
	}
}

func TestGetLicenseNotFoundFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	license, err := client.GetLicense(context.Background(), "missing")
	if err != nil {
		t.Fatalf("expected nil error for 404, got %v", err)
	}
	if license != nil {
		t.Fatal("expected nil license for 404")
	}
	if license.IsActive() {
		t.Fatal("nil license must not be active")
	}
}

func TestGetLicenseServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient("test-key", WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.GetLicense(context.Background(), "sumo-1"); err == nil {
		t.Fatal("expected error for 502")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(""); err == nil {
		t.Fatal("expected missing api key error")
	}
}
