// Package middleware provides the request gates: the authentication gate,
// which reconstitutes the session principal or rejects with 401, and the role
// authorization gate, which checks the principal's role and rejects with 403.
// The gates are ordered and short-circuiting: a request never reaches the
// role gate without passing the authentication gate first, so "not
// authenticated" and "wrong role" stay distinguishable in server logs even
// though responses stay generic.
package middleware
