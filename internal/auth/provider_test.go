package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTokenServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Credentials) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, Credentials{
		ClientID:     "app-id",
		ClientSecret: "app-secret",
		Scope:        "https://graph.microsoft.com/.default",
		TokenURL:     server.URL + "/token",
	}
}

func TestAcquireSendsClientCredentialsGrant(t *testing.T) {
	server, creds := newTokenServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		want := map[string]string{
			"grant_type":    "client_credentials",
			"client_id":     "app-id",
			"client_secret": "app-secret",
			"scope":         "https://graph.microsoft.com/.default",
		}
		for key, value := range want {
			if got := r.PostForm.Get(key); got != value {
				t.Errorf("form %s = %q, want %q", key, got, value)
			}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-123",
			"token_type":   "Bearer",
			"expires_in":   3599,
		})
	})

	p := NewProvider(creds, server.Client())
	token, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if token != "token-123" {
		t.Errorf("Expected token 'token-123', got '%s'", token)
	}
}

func TestAcquireFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "non success status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"invalid_client"}`))
			},
		},
		{
			name: "missing access token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"token_type":"Bearer","expires_in":3599}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, creds := newTokenServer(t, tt.handler)
			p := NewProvider(creds, server.Client())

			_, err := p.Acquire(context.Background())
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, ErrAuth) {
				t.Errorf("Expected ErrAuth, got %v", err)
			}
			var authErr *AuthError
			if !errors.As(err, &authErr) || authErr.Op != "Acquire" {
				t.Errorf("Expected *AuthError with Op Acquire, got %#v", err)
			}
		})
	}
}

func TestAcquireNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p := NewProvider(Credentials{ClientID: "a", ClientSecret: "b", TokenURL: url + "/token"}, nil)
	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrAuth) {
		t.Errorf("Expected ErrAuth for unreachable endpoint, got %v", err)
	}
}
