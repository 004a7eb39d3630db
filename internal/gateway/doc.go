// Package gateway provides an HTTP implementation of the
// domain.IdentityGateway interface used by enclave.
//
// The identity service owns accounts, username and email uniqueness, email
// verification codes and the city directory. This package offers a concrete
// JSON-over-HTTP client for it.
//
// Supported operations include:
//   - Bootstrapping an account from an activation code.
//   - Checking username and email availability.
//   - Updating fields of the authenticated account.
//   - Sending and confirming email verification codes.
//   - Listing cities.
//
// Every request carries an X-Request-ID and, once tokens are held, a bearer
// session token. Non-2xx responses are returned as *domain.ServiceError with
// the kind derived from the status code and the error body's code.
package gateway
