package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/harrisonrobin/qplan/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	// ClientSecretsFile is the installed-app OAuth client downloaded from the
	// Google Cloud console, looked up in the config directory by default.
	ClientSecretsFile = "credentials.json"

	// TokenFile holds the user's access and refresh token after the browser flow.
	TokenFile = "token.json"

	// LocalhostAuthPort is where the local callback server listens for the
	// OAuth redirect.
	LocalhostAuthPort = "6789"
)

// ErrNoCredentials is returned when neither a service account, application
// default credentials nor an OAuth client secrets file is available.
var ErrNoCredentials = errors.New("no Google credentials configured")

// Scopes are the API scopes the planner needs: read/write on spreadsheets and
// read-only metadata on Drive to find the spreadsheet by title.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveMetadataReadonlyScope,
}

// ClientOption resolves credentials in order: explicit service-account key,
// application default credentials, then the interactive OAuth token flow.
func ClientOption(ctx context.Context, creds config.CredentialsConfig, logger *zap.Logger) (option.ClientOption, error) {
	if creds.ServiceAccount != "" {
		b, err := os.ReadFile(creds.ServiceAccount)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key %s: %w", creds.ServiceAccount, err)
		}
		sa, err := google.CredentialsFromJSON(ctx, b, Scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		logger.Debug("using service account credentials", zap.String("path", creds.ServiceAccount))
		return option.WithCredentials(sa), nil
	}

	secretsPath, err := clientSecretsPath(creds)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(secretsPath); statErr != nil {
		if adc, err := google.FindDefaultCredentials(ctx, Scopes...); err == nil {
			logger.Debug("using application default credentials")
			return option.WithCredentials(adc), nil
		}
		return nil, fmt.Errorf("%w: set credentials.service_account or place %s in the config directory", ErrNoCredentials, ClientSecretsFile)
	}

	client, err := GetClient(ctx, creds, logger)
	if err != nil {
		return nil, err
	}
	return option.WithHTTPClient(client), nil
}

func clientSecretsPath(creds config.CredentialsConfig) (string, error) {
	if creds.ClientSecrets != "" {
		return creds.ClientSecrets, nil
	}
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ClientSecretsFile), nil
}

// GetConfig creates an oauth2.Config from the client secrets file.
func GetConfig(creds config.CredentialsConfig, logger *zap.Logger) (*oauth2.Config, error) {
	secretsPath, err := clientSecretsPath(creds)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(secretsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file %s: %w", secretsPath, err)
	}

	cfg, err := google.ConfigFromJSON(b, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	cfg.RedirectURL = localRedirect(cfg.RedirectURL, logger)
	return cfg, nil
}

// localRedirect forces the redirect URL onto the callback port we listen on.
func localRedirect(redirect string, logger *zap.Logger) string {
	if redirect == "urn:ietf:wg:oauth:2.0:oob" || redirect == "" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	u, err := url.Parse(redirect)
	if err != nil {
		logger.Warn("could not parse redirect URL, using it as is", zap.String("redirect", redirect), zap.Error(err))
		return redirect
	}
	if u.Hostname() != "localhost" && u.Hostname() != "127.0.0.1" {
		logger.Warn("redirect URL is not a localhost callback", zap.String("redirect", redirect))
		return redirect
	}
	if u.Port() != LocalhostAuthPort {
		if u.Port() != "" {
			logger.Warn("overriding redirect port", zap.String("configured", u.Port()), zap.String("expected", LocalhostAuthPort))
		}
		u.Host = net.JoinHostPort(u.Hostname(), LocalhostAuthPort)
	}
	return u.String()
}

// TokenPath is where the OAuth token is cached.
func TokenPath() (string, error) {
	dir, err := config.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, TokenFile), nil
}

// GetClient returns an authenticated *http.Client from the cached token,
// running the browser authorization flow if no token exists yet.
func GetClient(ctx context.Context, creds config.CredentialsConfig, logger *zap.Logger) (*http.Client, error) {
	cfg, err := GetConfig(creds, logger)
	if err != nil {
		return nil, err
	}

	tokenFile, err := TokenPath()
	if err != nil {
		return nil, err
	}
	tok, err := tokenFromFile(tokenFile)
	if err != nil {
		logger.Info("no cached token, starting web authorization flow", zap.String("token_file", tokenFile))
		tok, err = getTokenFromWeb(ctx, cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to get token from web: %w", err)
		}
		if err := saveToken(tokenFile, tok); err != nil {
			return nil, err
		}
	}

	src := cfg.TokenSource(ctx, tok)
	current, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("unable to refresh token: %w", err)
	}
	if current.AccessToken != tok.AccessToken || current.RefreshToken != tok.RefreshToken {
		logger.Debug("token refreshed, updating cache", zap.String("token_file", tokenFile))
		if err := saveToken(tokenFile, current); err != nil {
			logger.Warn("could not cache refreshed token", zap.Error(err))
		}
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(current, src)), nil
}

// Reauthorize drops the cached token and runs the browser flow again.
func Reauthorize(ctx context.Context, creds config.CredentialsConfig, logger *zap.Logger) (string, error) {
	tokenFile, err := TokenPath()
	if err != nil {
		return "", err
	}
	if err := os.Remove(tokenFile); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("could not delete token file %s, please delete it manually: %w", tokenFile, err)
	}
	if _, err := GetClient(ctx, creds, logger); err != nil {
		return "", err
	}
	return tokenFile, nil
}

// getTokenFromWeb runs the authorization code flow, capturing the redirect on
// a local HTTP server.
func getTokenFromWeb(ctx context.Context, cfg *oauth2.Config, logger *zap.Logger) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", LocalhostAuthPort))
	if err != nil {
		return nil, fmt.Errorf("failed to start listener on port %s: %w", LocalhostAuthPort, err)
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "Authorization code not found", http.StatusBadRequest)
				errCh <- errors.New("authorization code not found in redirect URL")
				return
			}
			fmt.Fprintf(w, "Authentication successful! You can close this window.")
			codeCh <- code
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	defer server.Shutdown(context.Background())

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// AccessTypeOffline makes Google return a refresh token.
	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Printf("Please open the following URL in your browser to authorize qplan:\n%s\n", authURL)
	logger.Info("waiting for authorization code", zap.String("redirect", cfg.RedirectURL))

	select {
	case code := <-codeCh:
		exchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exchCtx, code)
		if err != nil {
			return nil, fmt.Errorf("unable to retrieve token from Google: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, errors.New("authorization timed out. Please try again")
	}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("failed to decode token from file %s: %w", file, err)
	}
	return tok, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache OAuth token to %s: %w", path, err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}
