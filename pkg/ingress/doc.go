// Package ingress consumes the real-time alert feed and turns each
// message into tracker calls: a brand-new event gets its follow-up
// schedule registered, a revision of one already seen gets its stored
// metadata refreshed. The feed reader itself — the websocket client that
// talks to the alert provider — is a named interface only (AlertSource);
// this package supplies a file-replay implementation for --test runs and
// leaves the live listener to be wired in by a deployment that has one.
package ingress
