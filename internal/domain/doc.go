// Package domain models short social posts and the threat signals derived from them.
//
// # Data Source
//
// Posts arrive either from the Kafka source topic (flat JSON published by an
// upstream collector) or from the in-process collectors in package collector
// (Mastodon, Bluesky, RSS, mock and simulation generators). Either way each
// post is a [Post] with a language code, platform name and timestamp.
//
// # Conventions
//
// Languages:
//
//	Only "fr" and "de" are supported. [ParsePost] rejects anything else so
//	the engine never sees an unsupported language.
//
// Risk levels:
//
//	low < medium < high < critical. Classifier weights are 1..4; priority
//	weights are 100..400 (see [RiskLevel.Weight], [RiskLevel.PriorityWeight]).
//
// Timestamps:
//
//	RFC 3339 in the JSON payload. A post without a timestamp takes the Kafka
//	message timestamp, or the current clock time when that is also unset.
//
// # ID Generation
//
// Posts without an ID get a deterministic SHA-256 hash of
// platform|language|timestamp|text. Replays of the same payload therefore map
// to the same ID downstream. See [generateID].
package domain
