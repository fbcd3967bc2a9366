package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
)

// DefaultMastodonInstances are the public French and German speaking instances polled
// when none are configured.
var DefaultMastodonInstances = []string{
	"https://mastodon.social",
	"https://mastodon.online",
	"https://mamot.fr",
	"https://piaille.fr",
	"https://mastodon.de",
	"https://chaos.social",
}

// Mastodon reads public timelines from a set of instances.
type Mastodon struct {
	instances  []string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewMastodon creates a Mastodon collector. An empty token performs anonymous reads.
func NewMastodon(instances []string, token string, timeout time.Duration, logger *slog.Logger) *Mastodon {
	if len(instances) == 0 {
		instances = DefaultMastodonInstances
	}
	return &Mastodon{
		instances:  instances,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (m *Mastodon) Name() string { return "mastodon" }

// Collect fetches each instance's public timeline and keeps statuses in lang.
// It fails only when every instance failed.
func (m *Mastodon) Collect(ctx context.Context, lang domain.Language, limit int) ([]domain.Post, error) {
	var (
		posts   []domain.Post
		seen    = make(map[string]bool)
		lastErr error
		failed  int
	)

	for _, instance := range m.instances {
		statuses, err := m.fetch(ctx, instance, limit)
		if err != nil {
			if ctx.Err() != nil {
				return nil, newError(m.Name(), ReasonTransport, ctx.Err())
			}
			m.logger.Warn("mastodon fetch failed", "instance", instance, "error", err)
			lastErr = err
			failed++
			continue
		}
		for _, s := range statuses {
			if domain.Language(strings.ToLower(s.Language)) != lang {
				continue
			}
			key := s.URI
			if key == "" {
				key = instance + "/" + s.ID
			}
			if seen[key] {
				continue
			}
			seen[key] = true

			p, ok := s.toPost(instance, lang)
			if !ok {
				continue
			}
			posts = append(posts, p)
		}
	}

	if failed > 0 && failed == len(m.instances) {
		return nil, lastErr
	}
	return truncate(posts, limit), nil
}

func (m *Mastodon) fetch(ctx context.Context, instance string, limit int) ([]status, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	u := strings.TrimRight(instance, "/") + "/api/v1/timelines/public"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, newError(m.Name(), ReasonTransport, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, newError(m.Name(), ReasonTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, newError(m.Name(), ReasonAuth, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, newError(m.Name(), ReasonStatus, fmt.Errorf("status %d: %s", resp.StatusCode, body))
	}

	var statuses []status
	if err := json.NewDecoder(resp.Body).Decode(&statuses); err != nil {
		return nil, newError(m.Name(), ReasonDecode, fmt.Errorf("decode timeline: %w", err))
	}
	return statuses, nil
}

// Mastodon API response types.

type status struct {
	ID        string  `json:"id"`
	URI       string  `json:"uri"`
	URL       string  `json:"url"`
	Content   string  `json:"content"`
	Language  string  `json:"language"`
	CreatedAt string  `json:"created_at"`
	Account   account `json:"account"`
}

type account struct {
	Acct string `json:"acct"`
}

func (s status) toPost(instance string, lang domain.Language) (domain.Post, bool) {
	text := stripHTML(s.Content)
	if text == "" {
		return domain.Post{}, false
	}
	// A zero timestamp falls back to the source timestamp when parsed.
	ts, _ := time.Parse(time.RFC3339, s.CreatedAt)
	host := instance
	if u, err := url.Parse(instance); err == nil && u.Host != "" {
		host = u.Host
	}
	return domain.Post{
		ID:        "mastodon-" + host + "-" + s.ID,
		Text:      text,
		Language:  lang,
		Platform:  "mastodon",
		Timestamp: ts.UTC(),
		User:      s.Account.Acct,
		URL:       s.URL,
	}, true
}
