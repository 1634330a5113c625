// Package auth is the identity and access-control core of the membership
// platform. It hashes and verifies passwords, issues and decodes bearer and
// password reset credentials, resolves credentials into a Principal and
// evaluates the role policy for viewing and changing roles.
//
// Configuration:
//   - Config is built once with NewConfig and passed to every constructor.
//     It carries the signing secret, clock, credential lifetimes, issuer and
//     bcrypt cost. Nothing in the package reads global state.
//
// Credentials:
//   - TokenService issues HS256 bearer credentials with sub, role, iat and
//     exp claims. ResetTokenService issues reset credentials tagged with
//     type=password_reset, so neither decodes the other's tokens. Decoding
//     never applies leeway and every failure is ErrInvalidCredential.
//
// Authorization:
//   - Decide is a pure function over the role policy table. Authorize wraps a
//     deny into a permission error and RoleService calls it at the start of
//     ViewRole and UpdateRole.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by Service and
//     RoleService for registration, login, password recovery and role
//     changes. Sinks run best-effort (errors are logged) so you can forward to
//     a database or queue without blocking authentication.
//
// Revocation:
//   - Bearer credentials cannot be revoked before they expire. Reset
//     credentials are replayable until expiry unless Service is given a
//     ResetLedger (see package ledger).
package auth
