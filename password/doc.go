// Package password implements password hashing and verification with Argon2id.
//
// # Output format
//
// Hashes are encoded in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Verification recomputes the key with the parameters stored in the hash and
// compares in constant time, so hashes produced under older parameters keep
// verifying after the configuration changes.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords; callers supply plaintext and receive hashes.
//   - Import any other tokenAuth package.
//   - Log plaintext passwords.
package password
