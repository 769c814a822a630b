// Package session implements the server-side session layer: opaque
// cryptographically random tokens mapped to user ids in Redis, and the
// cookie-based codec that establishes, reconstitutes and destroys the
// authenticated principal for a request.
//
// Expiry is fixed, not sliding: the TTL is set once at creation and reads
// never extend it. Expired sessions are indistinguishable from absent ones.
//
// Destroying a session concurrently with another request that already read
// the same token is best effort: the in-flight request may still complete
// with the principal it reconstituted moments earlier.
package session
