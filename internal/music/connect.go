package music

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Connector runs the music-provider OAuth connect flow: it hands the caller
// an authorization URL, serves the redirect callback on a local listener,
// and yields an authenticated client once the provider calls back.
type Connector struct {
	auth       *spotifyauth.Authenticator
	listenAddr string
	log        *slog.Logger

	state   string
	tokenCh chan *oauth2.Token
}

// NewConnector configures the connect flow. redirectURI must point at the
// /callback path of listenAddr and be registered with the provider.
func NewConnector(clientID, clientSecret, redirectURI, listenAddr string, log *slog.Logger) *Connector {
	return &Connector{
		auth: spotifyauth.New(
			spotifyauth.WithRedirectURL(redirectURI),
			spotifyauth.WithScopes(
				spotifyauth.ScopeUserReadPlaybackState,
				spotifyauth.ScopeUserModifyPlaybackState,
				spotifyauth.ScopeStreaming,
			),
			spotifyauth.WithClientID(clientID),
			spotifyauth.WithClientSecret(clientSecret),
		),
		listenAddr: listenAddr,
		log:        log,
		state:      generateState(),
		tokenCh:    make(chan *oauth2.Token, 1),
	}
}

func generateState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.URLEncoding.EncodeToString(b)
}

// AuthURL returns the provider URL the user opens to grant access.
func (c *Connector) AuthURL() string {
	return c.auth.AuthURL(c.state)
}

// handleCallback exchanges the redirect for a token. The state parameter is
// checked before any exchange so a forged callback costs nothing.
func (c *Connector) handleCallback(w http.ResponseWriter, r *http.Request) {
	if st := r.FormValue("state"); st != c.state {
		c.log.Warn("oauth state mismatch", "got", st)
		http.Error(w, "state mismatch", http.StatusForbidden)
		return
	}

	tok, err := c.auth.Token(r.Context(), c.state, r)
	if err != nil {
		c.log.Error("token exchange failed", "error", err)
		http.Error(w, "failed to get token", http.StatusForbidden)
		return
	}

	fmt.Fprintln(w, "Music account connected. You can close this tab.")
	select {
	case c.tokenCh <- tok:
	default:
	}
}

// Await serves the callback endpoint until the provider redirects back or
// ctx expires, then returns an authenticated client and the token (for the
// caller to persist).
func (c *Connector) Await(ctx context.Context) (*spotify.Client, *oauth2.Token, error) {
	router := chi.NewRouter()
	router.Get("/callback", c.handleCallback)

	srv := &http.Server{Addr: c.listenAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	select {
	case tok := <-c.tokenCh:
		c.log.Info("music provider authorized")
		return spotify.New(c.auth.Client(ctx, tok)), tok, nil
	case err := <-errCh:
		return nil, nil, fmt.Errorf("callback server: %w", err)
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
	}
}

// Restore builds an authenticated client from a previously persisted token.
func (c *Connector) Restore(ctx context.Context, tok *oauth2.Token) *spotify.Client {
	return spotify.New(c.auth.Client(ctx, tok))
}
