package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
)

// blueskyQueries are the search terms used per language.
var blueskyQueries = map[domain.Language]string{
	domain.LanguageFrench: "attaque OR explosion OR fusillade OR bombe OR émeute",
	domain.LanguageGerman: "Anschlag OR Explosion OR Schießerei OR Bombe OR Krawall",
}

var errMissingCredentials = errors.New("BLUESKY_USERNAME and BLUESKY_APP_PASSWORD are required")

// Bluesky searches recent posts through the AT Protocol XRPC API.
type Bluesky struct {
	baseURL     string
	identifier  string
	appPassword string
	httpClient  *http.Client
	logger      *slog.Logger

	mu  sync.Mutex
	jwt string
}

// NewBluesky creates a Bluesky collector authenticating with an app password.
func NewBluesky(identifier, appPassword string, timeout time.Duration, logger *slog.Logger) *Bluesky {
	return &Bluesky{
		baseURL:     "https://bsky.social",
		identifier:  identifier,
		appPassword: appPassword,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (b *Bluesky) Name() string { return "bluesky" }

// Collect searches for threat-related posts in lang.
func (b *Bluesky) Collect(ctx context.Context, lang domain.Language, limit int) ([]domain.Post, error) {
	query, ok := blueskyQueries[lang]
	if !ok {
		return nil, newError(b.Name(), ReasonUnavailable, fmt.Errorf("unsupported language %q", lang))
	}

	token, err := b.session(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{
		"q":    {query},
		"lang": {string(lang)},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(min(limit, 100)))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		b.baseURL+"/xrpc/app.bsky.feed.searchPosts?"+params.Encode(), nil)
	if err != nil {
		return nil, newError(b.Name(), ReasonTransport, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, newError(b.Name(), ReasonTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		b.resetSession()
		return nil, newError(b.Name(), ReasonAuth, errors.New("session expired"))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, newError(b.Name(), ReasonStatus, fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, newError(b.Name(), ReasonDecode, fmt.Errorf("decode search: %w", err))
	}

	posts := make([]domain.Post, 0, len(result.Posts))
	for _, p := range result.Posts {
		if !p.Record.hasLanguage(lang) {
			continue
		}
		text := strings.TrimSpace(p.Record.Text)
		if text == "" {
			continue
		}
		ts, _ := time.Parse(time.RFC3339, p.Record.CreatedAt)
		posts = append(posts, domain.Post{
			ID:        p.URI,
			Text:      text,
			Language:  lang,
			Platform:  b.Name(),
			Timestamp: ts.UTC(),
			User:      p.Author.Handle,
			URL:       postURL(p.Author.Handle, p.URI),
		})
	}
	return truncate(posts, limit), nil
}

// session returns the cached access JWT, creating a session when none exists.
func (b *Bluesky) session(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.jwt != "" {
		return b.jwt, nil
	}
	if b.identifier == "" || b.appPassword == "" {
		return "", newError(b.Name(), ReasonAuth, errMissingCredentials)
	}

	body, err := json.Marshal(map[string]string{
		"identifier": b.identifier,
		"password":   b.appPassword,
	})
	if err != nil {
		return "", newError(b.Name(), ReasonAuth, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		b.baseURL+"/xrpc/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return "", newError(b.Name(), ReasonTransport, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return "", newError(b.Name(), ReasonTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", newError(b.Name(), ReasonAuth, fmt.Errorf("create session: status %d", resp.StatusCode))
	}

	var s sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return "", newError(b.Name(), ReasonDecode, fmt.Errorf("decode session: %w", err))
	}
	if s.AccessJwt == "" {
		return "", newError(b.Name(), ReasonAuth, errors.New("create session: empty access token"))
	}

	b.logger.Info("bluesky session created", "handle", s.Handle)
	b.jwt = s.AccessJwt
	return b.jwt, nil
}

func (b *Bluesky) resetSession() {
	b.mu.Lock()
	b.jwt = ""
	b.mu.Unlock()
}

// postURL builds the public web link for an at:// post URI.
func postURL(handle, uri string) string {
	if handle == "" || uri == "" {
		return ""
	}
	rkey := uri[strings.LastIndex(uri, "/")+1:]
	return "https://bsky.app/profile/" + handle + "/post/" + rkey
}

// XRPC response types.

type sessionResponse struct {
	AccessJwt string `json:"accessJwt"`
	Handle    string `json:"handle"`
}

type searchResponse struct {
	Posts []postView `json:"posts"`
}

type postView struct {
	URI    string     `json:"uri"`
	Author authorView `json:"author"`
	Record postRecord `json:"record"`
}

type authorView struct {
	Handle string `json:"handle"`
}

type postRecord struct {
	Text      string   `json:"text"`
	CreatedAt string   `json:"createdAt"`
	Langs     []string `json:"langs"`
}

// hasLanguage reports whether the record is tagged lang. Untagged records pass,
// since the search already requested lang.
func (r postRecord) hasLanguage(lang domain.Language) bool {
	if len(r.Langs) == 0 {
		return true
	}
	for _, l := range r.Langs {
		if strings.HasPrefix(strings.ToLower(l), string(lang)) {
			return true
		}
	}
	return false
}
