package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenSource_Static(t *testing.T) {
	ts, identity, err := TokenSource(context.Background(), Options{StaticToken: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "static-token", identity)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
}

func TestTokenSource_MissingCredentials(t *testing.T) {
	_, _, err := TokenSource(context.Background(), Options{TenantID: "t"})
	assert.Error(t, err)
}

func TestTokenSource_ClientCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/tenant-1/oauth2/v2.0/token"), r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, DefaultScope, r.PostForm.Get("scope"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"from-idp","token_type":"Bearer","expires_in":3600}`))
	}))
	defer srv.Close()

	ts, identity, err := TokenSource(context.Background(), Options{
		AuthorityURL: srv.URL,
		TenantID:     "tenant-1",
		ClientID:     "client-1",
		ClientSecret: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, "app:client-1", identity)

	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "from-idp", tok.AccessToken)
}
