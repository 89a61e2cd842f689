// Package storage provides the key/value substrates sealstore writes to.
//
// Backends store opaque byte values under
// string keys and know nothing about prefixes, envelopes or encryption.
// A backend may be shared with other consumers; the store above it only
// ever touches keys under its own prefix.
//
// Implementations:
//   - Memory: process-lifetime map, used as the session store
//   - Bolt: BBolt file, the default persistent store (ACID, file locking)
//   - Badger: Badger v3 directory, an alternative persistent store
package storage
