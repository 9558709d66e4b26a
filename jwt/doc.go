// Package jwt inspects admin access tokens to derive the operator identity shown by the
// session manager.
//
// An [Inspector] either reads claims without checking the signature (the server remains
// the authority on token validity) or, when configured with a key, verifies HS256 or
// Ed25519 signatures along with issuer, audience, and expiry.
package jwt
