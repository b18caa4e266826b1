// Package auth generates and validates the API keys used as the sole
// authentication credential. Keys are random, URL-safe tokens carried in
// the Api-Key request header; there are no passwords, sessions or
// expiring tokens.
package auth
