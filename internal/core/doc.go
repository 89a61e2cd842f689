// Package core is the sealstore engine: a key-value façade over a session
// and a persistent backend.
//
// Every value is wrapped in an envelope carrying its write time and an
// optional TTL, then stored in one of three formats:
//   - v2: AES-256-GCM under a PBKDF2 key derived from the host fingerprint
//   - legacy: XOR obfuscation with the fingerprint, for runtimes without
//     a working cipher and for the synchronous API
//   - plain: the envelope as JSON
//
// Reads detect the format, enforce the TTL and remove expired entries.
// Failures never surface as errors; they are logged and reported as a
// miss or a false result.
package core
