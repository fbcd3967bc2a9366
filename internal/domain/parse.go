package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ParsePost deserializes a RawEvent's value into a Post.
// Missing IDs and timestamps are filled in; unsupported languages are rejected.
func ParsePost(raw RawEvent) (Post, error) {
	var post Post
	if err := json.Unmarshal(raw.Value, &post); err != nil {
		return Post{}, fmt.Errorf("parse post: %w", err)
	}

	post.Language = Language(strings.ToLower(strings.TrimSpace(string(post.Language))))
	if !post.Language.Valid() {
		return Post{}, fmt.Errorf("parse post: unsupported language %q", post.Language)
	}

	if post.Platform == "" {
		post.Platform = "unknown"
	}
	if post.Timestamp.IsZero() {
		post.Timestamp = raw.Timestamp
	}
	if post.Timestamp.IsZero() {
		post.Timestamp = clock.Now().UTC()
	}
	if post.ID == "" {
		post.ID = generateID(post.Platform, post.Language, post.Timestamp, post.Text)
	}
	return post, nil
}

// generateID hashes the identifying fields of a post into a stable short ID,
// e.g. "mastodon-3f9a0c...".
func generateID(platform string, lang Language, ts time.Time, text string) string {
	input := fmt.Sprintf("%s|%s|%s|%s", platform, lang, ts.UTC().Format(time.RFC3339), text)
	hash := sha256.Sum256([]byte(input))
	return platform + "-" + hex.EncodeToString(hash[:8])
}

// SerializeRankedThreat marshals a ranked threat into the sink representation.
func SerializeRankedThreat(t RankedThreat) (OutputEvent, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize ranked threat: %w", err)
	}
	return OutputEvent{
		Key:   []byte(t.Post.ID),
		Value: data,
		Headers: map[string]string{
			"primary_threat": t.Classification.PrimaryThreat,
			"risk_level":     string(t.Classification.RiskLevel),
			"language":       string(t.Post.Language),
			"burst":          fmt.Sprintf("%t", t.Burst),
			"processed_at":   t.ObservedAt.Format(time.RFC3339),
		},
	}, nil
}
