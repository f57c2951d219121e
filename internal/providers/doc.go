// Package providers implements the Completer interface for each supported
// completion service.
//
// Supported providers: Azure OpenAI, OpenAI, GitHub Models, Ollama / LM
// Studio for local models, and Anthropic. The first four share one
// OpenAI-compatible chat client.
//
// A Complete call makes a single attempt. Failures are classified as
// authentication, rate-limit, server or malformed-response errors so the
// caller can decide how to retry.
//
// Use [New] to obtain a Completer from [Settings].
package providers
