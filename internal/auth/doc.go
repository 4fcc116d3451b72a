// Package auth verifies bearer credentials issued by the identity provider
// and answers role questions about the verified identity.
//
// Credentials are RS256 JWTs. The signing key is resolved by the token's
// kid header against the provider's published JWKS document. Verification
// checks the signature, the expiry (which must be present) and the
// issuer. An optional audience check is applied when configured.
package auth
