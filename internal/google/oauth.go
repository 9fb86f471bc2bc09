package google

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/gtool/internal/logging"
)

// ErrScopesChanged is returned when the stored token lacks a configured scope.
var ErrScopesChanged = errors.New("configured scopes changed since last login; run 'gtool auth login'")

// DefaultCallbackPorts are tried in order for the loopback redirect listener.
var DefaultCallbackPorts = []int{8400, 8401, 8402, 8403, 8404, 8405, 8406, 8407, 8408, 8409, 8410}

const loginTimeout = 5 * time.Minute

// Authenticator runs the installed-app OAuth flow and hands out authorized
// HTTP clients.
type Authenticator struct {
	config      *oauth2.Config
	store       *TokenStore
	logger      *slog.Logger
	host        string
	ports       []int
	openBrowser func(url string) error
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithAuthLogger sets the logger.
func WithAuthLogger(logger *slog.Logger) AuthOption {
	return func(a *Authenticator) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithCallbackPorts sets the loopback ports tried by Login. Port 0 picks any free port.
func WithCallbackPorts(ports []int) AuthOption {
	return func(a *Authenticator) {
		if len(ports) > 0 {
			a.ports = ports
		}
	}
}

// WithCallbackHost sets the host name used in the redirect URL.
func WithCallbackHost(host string) AuthOption {
	return func(a *Authenticator) {
		if host != "" {
			a.host = host
		}
	}
}

// WithBrowserOpener replaces the function that opens the consent page.
func WithBrowserOpener(open func(url string) error) AuthOption {
	return func(a *Authenticator) {
		a.openBrowser = open
	}
}

// NewAuthenticator reads the OAuth client from a Google credentials JSON file.
func NewAuthenticator(credentialsFile string, scopes []string, store *TokenStore, opts ...AuthOption) (*Authenticator, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file %s: %w", credentialsFile, err)
	}
	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return NewAuthenticatorFromConfig(cfg, store, opts...), nil
}

// NewAuthenticatorFromConfig creates an Authenticator for an existing OAuth config.
func NewAuthenticatorFromConfig(cfg *oauth2.Config, store *TokenStore, opts ...AuthOption) *Authenticator {
	a := &Authenticator{
		config:      cfg,
		store:       store,
		logger:      slog.Default(),
		host:        "localhost",
		ports:       DefaultCallbackPorts,
		openBrowser: openURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Store returns the token store.
func (a *Authenticator) Store() *TokenStore {
	return a.store
}

// Scopes returns the configured scopes.
func (a *Authenticator) Scopes() []string {
	return a.config.Scopes
}

// Login runs the consent flow and stores the resulting token. Instructions
// for the user are written to out.
func (a *Authenticator) Login(ctx context.Context, out io.Writer) (*oauth2.Token, error) {
	logger := logging.WithOperation(a.logger, "auth.login")

	listener, err := a.listen()
	if err != nil {
		return nil, err
	}
	port := listener.Addr().(*net.TCPAddr).Port

	cfg := *a.config
	cfg.RedirectURL = "http://" + net.JoinHostPort(a.host, strconv.Itoa(port)) + "/"

	state, err := randomState()
	if err != nil {
		listener.Close()
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()
	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))

	results := make(chan callbackResult, 1)
	srv := &http.Server{
		Handler:           callbackHandler(state, results),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			results <- callbackResult{err: err}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(out, "Open the following URL in your browser to authorize gtool:\n\n%s\n\n", authURL)
	if a.openBrowser != nil {
		if err := a.openBrowser(authURL); err != nil {
			logger.Debug("could not open browser", logging.Err(err))
		}
	}

	ctx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()

	var res callbackResult
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", ctx.Err())
	case res = <-results:
	}
	if res.err != nil {
		return nil, res.err
	}

	tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := a.store.Save(tok, a.config.Scopes); err != nil {
		return nil, err
	}

	logger.Info("stored OAuth token",
		slog.String("path", a.store.Path()),
		slog.String("access_token", logging.SanitizeToken(tok.AccessToken)))
	return tok, nil
}

// TokenSource returns a refreshing token source for the stored token.
// Refreshed tokens are written back to the store.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, granted, err := a.store.Load()
	if err != nil {
		return nil, err
	}
	if missing := MissingScopes(a.config.Scopes, granted); len(granted) > 0 && len(missing) > 0 {
		a.logger.Warn("stored token is missing scopes", slog.Int("missing", len(missing)))
		return nil, ErrScopesChanged
	}
	return &persistingTokenSource{
		base:    oauth2.ReuseTokenSource(tok, a.config.TokenSource(ctx, tok)),
		store:   a.store,
		scopes:  granted,
		current: tok.AccessToken,
		logger:  a.logger,
	}, nil
}

// HTTPClient returns an HTTP client authorized with the stored token.
func (a *Authenticator) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// Token returns a valid access token, refreshing it if needed.
func (a *Authenticator) Token(ctx context.Context) (*oauth2.Token, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return tok, nil
}

// HasToken reports whether a token is stored.
func (a *Authenticator) HasToken() bool {
	return a.store.Exists()
}

func (a *Authenticator) listen() (net.Listener, error) {
	var lastErr error
	for _, port := range a.ports {
		l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err == nil {
			return l, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no free callback port in %v: %w", a.ports, lastErr)
}

type callbackResult struct {
	code string
	err  error
}

func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("state") != state:
			res.err = errors.New("authorization state mismatch")
		case q.Get("code") == "":
			res.err = errors.New("authorization response is missing the code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			fmt.Fprintln(w, "Authorization complete. You can close this window and return to the terminal.")
		}

		select {
		case results <- res:
		default:
		}
	})
}

// persistingTokenSource saves every newly refreshed token.
type persistingTokenSource struct {
	mu      sync.Mutex
	base    oauth2.TokenSource
	store   *TokenStore
	scopes  []string
	current string
	logger  *slog.Logger
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.current {
		s.current = tok.AccessToken
		s.logger.Debug("refreshed OAuth token", slog.String("access_token", logging.SanitizeToken(tok.AccessToken)))
		if err := s.store.Save(tok, s.scopes); err != nil {
			s.logger.Warn("failed to persist refreshed token", logging.Err(err))
		}
	}
	return tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func openURL(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		if strings.TrimSpace(os.Getenv("DISPLAY")) == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
			return errors.New("no display available")
		}
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
