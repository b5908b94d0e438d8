// Package auth issues and validates the HMAC-signed JWT access tokens that
// protect the HTTP API.
package auth
