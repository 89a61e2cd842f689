package core

import "context"

// CleanupReport summarizes one sweep.
type CleanupReport struct {
	Visited    int
	Expired    int
	Unreadable int
}

// Cleanup reads every key once, which removes the expired ones. Entries
// that cannot be decoded are counted but kept, since a later fingerprint
// may still open them.
func (s *Store) Cleanup(ctx context.Context) CleanupReport {
	var report CleanupReport
	for _, key := range s.Keys(ctx) {
		if ctx.Err() != nil {
			break
		}
		report.Visited++
		switch _, status := s.lookup(ctx, key, false); status {
		case statusExpired:
			report.Expired++
		case statusUnreadable:
			report.Unreadable++
		}
	}

	s.logger.Debug("cleanup finished",
		"visited", report.Visited,
		"expired", report.Expired,
		"unreadable", report.Unreadable)
	return report
}
