// Package devidentity is an in-memory identity service for development and
// tests. It serves the same HTTP API the gateway client speaks.
//
// HTTP API
//
//	POST  /v1/accounts/bootstrap             {activationCode} -> {sessionToken, refreshToken, userId}
//	GET   /v1/usernames/{username}/availability -> {available}
//	POST  /v1/emails/availability            {email} -> 200 | 409
//	PATCH /v1/accounts/me                    {field: value, ...} -> 204
//	POST  /v1/emails/verification            {email} -> 202 | 429
//	POST  /v1/emails/verification/confirm    {email, code} -> {email}
//	GET   /v1/cities                         -> [{id, name}]
//
// Behaviour
//
//   - All state is held in memory and lost on process exit.
//   - Activation codes are single use.
//   - Session tokens are HS256 JWTs whose subject is the user id.
//   - Verification codes are not mailed; they are written to the log and
//     available through Server.LastCode.
//   - Code dispatch is rate limited per address and answers 429 with
//     "too many attempts".
//   - Error bodies are {"code": "...", "error": "..."}.
package devidentity
