package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/harrisonrobin/qplan/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", TokenFile)
	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, saveToken(path, want))
	got, err := tokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.RefreshToken, got.RefreshToken)
	assert.True(t, want.Expiry.Equal(got.Expiry))
}

func TestLocalRedirect(t *testing.T) {
	log := zap.NewNop()
	assert.Equal(t, "http://localhost:6789/oauth2callback", localRedirect("urn:ietf:wg:oauth:2.0:oob", log))
	assert.Equal(t, "http://localhost:6789", localRedirect("http://localhost", log))
	assert.Equal(t, "http://127.0.0.1:6789/cb", localRedirect("http://127.0.0.1:8080/cb", log))
	assert.Equal(t, "https://example.com/cb", localRedirect("https://example.com/cb", log))
}

func TestClientOptionMissingServiceAccountFile(t *testing.T) {
	_, err := ClientOption(context.Background(), config.CredentialsConfig{
		ServiceAccount: filepath.Join(t.TempDir(), "missing.json"),
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service account key")
}

func TestClientOptionWithoutAnyCredentials(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", filepath.Join(t.TempDir(), "none.json"))

	_, err := ClientOption(context.Background(), config.CredentialsConfig{}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoCredentials))
}
