// Package auth provides passphrase hashing for Webstone Core.
//
// Two kinds of secret are protected with it: the optional global passphrase
// a connection must present before it is authenticated, and the optional
// per-registry passphrase a session must present to subscribe.
//
// Hashes are bcrypt with a fixed cost of 12. Plaintext is never stored or
// logged; only the hash is persisted in the configuration or the snapshot.
package auth
