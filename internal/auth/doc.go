// Package auth provides optional bearer-token authentication for the
// status gateway.
//
// When auth.jwt_secret is set, every /api/* route and the /ws and
// /api/stream push endpoints require an HS256 JWT issued by
// "status-gateway" for the "status-dashboard" audience, with an expiry and
// a "sub" claim naming the caller. The token is read from the Authorization header:
//
//	Authorization: Bearer <token>
//
// or, for browser WebSocket clients that cannot set headers, from the
// token query parameter. The subject is attached to the request context:
//
//	sub := auth.SubjectFromContext(r.Context())
//
// Tokens are minted with JWTVerifier.Generate, which the
// "status-gateway token" command wraps. Secrets shorter than
// MinSecretLength bytes are rejected.
package auth
