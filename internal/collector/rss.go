package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/threat-signal-etl/internal/domain"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

// Feed is an RSS or Atom URL, optionally pinned to a language.
type Feed struct {
	Language domain.Language
	URL      string
}

// ParseFeeds parses a comma-separated list of "lang|url" or bare "url" entries.
func ParseFeeds(s string) ([]Feed, error) {
	var feeds []Feed
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var f Feed
		if lang, u, ok := strings.Cut(part, "|"); ok {
			f.Language = domain.Language(strings.ToLower(strings.TrimSpace(lang)))
			f.URL = strings.TrimSpace(u)
			if !f.Language.Valid() {
				return nil, fmt.Errorf("feed %q: unsupported language %q", f.URL, f.Language)
			}
		} else {
			f.URL = part
		}
		if !strings.HasPrefix(f.URL, "http://") && !strings.HasPrefix(f.URL, "https://") {
			return nil, fmt.Errorf("feed %q: must be an http(s) URL", f.URL)
		}
		feeds = append(feeds, f)
	}
	return feeds, nil
}

// RSS reads news and Mastodon tag feeds with gofeed.
type RSS struct {
	feeds  []Feed
	parser *gofeed.Parser
	logger *slog.Logger
}

// NewRSS creates an RSS collector over feeds.
func NewRSS(feeds []Feed, timeout time.Duration, logger *slog.Logger) *RSS {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = "threat-signal-etl/1.0"
	return &RSS{feeds: feeds, parser: parser, logger: logger}
}

func (r *RSS) Name() string { return "rss" }

// Collect reads every feed in lang. A feed without a configured language is
// matched on the language it declares; feeds declaring none are skipped.
func (r *RSS) Collect(ctx context.Context, lang domain.Language, limit int) ([]domain.Post, error) {
	if len(r.feeds) == 0 {
		return nil, newError(r.Name(), ReasonUnavailable, errors.New("no feeds configured"))
	}

	var (
		posts   []domain.Post
		lastErr error
		failed  int
	)
	for _, f := range r.feeds {
		if f.Language != "" && f.Language != lang {
			continue
		}
		feed, err := r.parser.ParseURLWithContext(f.URL, ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, newError(r.Name(), ReasonTransport, ctx.Err())
			}
			err = classifyFeedError(r.Name(), err)
			r.logger.Warn("rss fetch failed", "feed", f.URL, "error", err)
			lastErr = err
			failed++
			continue
		}
		if f.Language == "" && !feedLanguageIs(feed.Language, lang) {
			continue
		}
		for _, item := range feed.Items {
			if p, ok := itemToPost(item, lang); ok {
				posts = append(posts, p)
			}
		}
	}

	if failed > 0 && len(posts) == 0 {
		return nil, lastErr
	}
	return truncate(posts, limit), nil
}

func classifyFeedError(platform string, err error) *Error {
	var httpErr gofeed.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == http.StatusUnauthorized || httpErr.StatusCode == http.StatusForbidden {
			return newError(platform, ReasonAuth, err)
		}
		return newError(platform, ReasonStatus, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return newError(platform, ReasonTransport, err)
	}
	return newError(platform, ReasonDecode, err)
}

// feedLanguageIs matches declared tags such as "fr-FR" or "de".
func feedLanguageIs(declared string, lang domain.Language) bool {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "" {
		return false
	}
	base, _, _ := strings.Cut(declared, "-")
	return domain.Language(base) == lang
}

func itemToPost(item *gofeed.Item, lang domain.Language) (domain.Post, bool) {
	title := strings.TrimSpace(stripHTML(item.Title))
	desc := strings.TrimSpace(stripHTML(item.Description))
	text := title
	switch {
	case text == "":
		text = desc
	case desc != "" && desc != title:
		text = title + ". " + desc
	}
	if text == "" {
		return domain.Post{}, false
	}

	id := item.GUID
	if id == "" {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte(item.Link+"|"+text)).String()
	}

	var ts time.Time
	switch {
	case item.PublishedParsed != nil:
		ts = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		ts = item.UpdatedParsed.UTC()
	}

	var user string
	if item.Author != nil {
		user = item.Author.Name
	}

	return domain.Post{
		ID:        "rss-" + id,
		Text:      text,
		Language:  lang,
		Platform:  "rss",
		Timestamp: ts,
		User:      user,
		URL:       item.Link,
	}, true
}
