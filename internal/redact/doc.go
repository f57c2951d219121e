// Package redact removes secrets from diff content before it is sent to a
// completion service, and scrubs the configured credential from anything
// the tool writes.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, connection strings, and provider-specific tokens (Anthropic,
// OpenAI, GitHub, Slack).
//
// Path-based redaction is also supported: files whose paths match
// configured glob patterns have their whole diff replaced with
// [REDACTED] rather than being scanned line by line.
package redact
