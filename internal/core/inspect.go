package core

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/illarion/sealstore/internal/envelope"
	"github.com/illarion/sealstore/internal/storage"
)

// EntryInfo describes one stored entry as found on disk or in memory.
type EntryInfo struct {
	Key       string
	Store     string
	Format    envelope.Format
	Size      int
	Encrypted bool
	ExpiresAt time.Time // zero when the entry has no TTL
	Expired   bool
	Readable  bool
}

// Inspect lists every prefixed entry of both stores without removing
// anything. Entries that fail to decode are reported with Readable false.
func (s *Store) Inspect(ctx context.Context) []EntryInfo {
	now := s.now()
	var entries []EntryInfo

	for _, b := range []struct {
		name    string
		backend storage.Backend
	}{
		{"session", s.session},
		{"persistent", s.persistent},
	} {
		keys, err := b.backend.Keys(ctx)
		if err != nil {
			s.logger.Error("failed to list keys", "store", b.name, "error", err)
			continue
		}

		for _, k := range keys {
			logical, ok := strings.CutPrefix(k, s.prefix)
			if !ok || logical == "" || logical == availabilityKey {
				continue
			}
			raw, err := b.backend.Get(ctx, k)
			if err != nil {
				continue
			}

			info := EntryInfo{
				Key:    logical,
				Store:  b.name,
				Format: envelope.Detect(raw),
				Size:   len(raw),
			}
			if env, _, err := s.codec.Open(raw); err == nil {
				info.Readable = true
				info.Encrypted = env.Encrypted
				info.ExpiresAt = env.ExpiresAt()
				info.Expired = env.Expired(now)
			}
			entries = append(entries, info)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Key != entries[j].Key {
			return entries[i].Key < entries[j].Key
		}
		return entries[i].Store < entries[j].Store
	})
	return entries
}
