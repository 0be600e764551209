// Package jwt issues and verifies HS256 tokens with two lifetime classes
// (short and remember-me) and classifies verification failures as malformed,
// signature-invalid or expired.
package jwt
