// Package users is the credential store adapter: a parameterized query
// interface over the PostgreSQL users table. Every query is parameterized;
// the table's unique constraints are the final authority on email and
// username uniqueness.
package users
