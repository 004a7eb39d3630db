// Package session reports on and ends the locally held account session.
//
// Status combines the saved account profile with the session token held in
// the token store. The token is never shown; a short fingerprint stands in
// for it, and its expiry is read from the JWT claims without verifying the
// signature (the client does not hold the signing key). Logout removes the
// tokens and the profile.
package session
