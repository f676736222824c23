package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

// newFakeGitHub serves the token endpoint and the two API calls Exchange
// makes.
func newFakeGitHub(t *testing.T, emails string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_test", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_test" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id": 42, "login": "octo", "email": "public@example.com"}`))
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(emails))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestGitHubProvider(srv *httptest.Server) *GitHubProvider {
	p := NewGitHubProvider("client", "secret", "http://localhost/auth/github/callback")
	p.config.Endpoint = oauth2.Endpoint{
		AuthURL:  srv.URL + "/login/oauth/authorize",
		TokenURL: srv.URL + "/login/oauth/access_token",
	}
	p.baseURL = srv.URL
	return p
}

func TestGitHubExchange_UsesVerifiedPrimaryEmail(t *testing.T) {
	srv := newFakeGitHub(t, `[
		{"email":"old@example.com","primary":false,"verified":true},
		{"email":"octo@example.com","primary":true,"verified":true}
	]`)
	p := newTestGitHubProvider(srv)

	user, err := p.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, int64(42), user.ID)
	assert.Equal(t, "octo", user.Login)
	assert.Equal(t, "octo@example.com", user.Email)
}

func TestGitHubExchange_UnverifiedEmailIsDropped(t *testing.T) {
	srv := newFakeGitHub(t, `[{"email":"octo@example.com","primary":true,"verified":false}]`)
	p := newTestGitHubProvider(srv)

	user, err := p.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Empty(t, user.Email)
}

func TestGitHubAuthURL_CarriesState(t *testing.T) {
	p := NewGitHubProvider("client", "secret", "http://localhost/cb")
	assert.Contains(t, p.AuthURL("xyz"), "state=xyz")
	assert.Contains(t, p.AuthURL("xyz"), "client_id=client")
}
