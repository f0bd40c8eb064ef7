// Package password hashes and verifies user credentials and reset tokens.
//
// Passwords are salted with a per-user random salt concatenated before the
// bcrypt hash. Records missing either the hash or the salt are treated by
// the engine as "password login unsupported"; no comparison is attempted.
package password
