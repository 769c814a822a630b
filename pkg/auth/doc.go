// Package auth implements the authentication core: user identity, bcrypt
// password hashing, credential verification and the registration workflow.
//
// # Overview
//
// Credentials live in a PostgreSQL-backed store reached through the
// CredentialStore and RegistrationStore interfaces (implemented by pkg/users).
// The Verifier resolves email+password pairs to a User, the Registrar runs the
// signup workflow, and the PasswordHasher wraps bcrypt with a tunable cost.
//
// Verification failures are deliberately generic: an unknown email and a wrong
// password produce the identical ErrInvalidCredentials so responses cannot be
// used to enumerate accounts. Infrastructure errors stay distinct and are
// wrapped, never folded into a verification failure.
package auth
