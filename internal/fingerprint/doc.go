// Package fingerprint derives the passphrase that sealstore feeds into key
// derivation.
//
// The passphrase is built from ambient host signals (user agent, locale,
// terminal geometry, timezone, hostname, CPU count) and folded through
// several rounds of murmur3 so the raw signals never appear in it. Nothing
// is persisted: the passphrase is recomputed from the environment on every
// cryptographic operation.
//
// Known limitation: when any signal changes between a write and a read
// (a resized terminal, a renamed host, a new locale) previously encrypted
// entries can no longer be decrypted. They read as misses.
package fingerprint
