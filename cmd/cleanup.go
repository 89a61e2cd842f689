package cmd

import (
	"context"
	"fmt"
)

// Cleanup removes expired entries
func Cleanup(ctx context.Context, configFile string) {
	s := OpenOrExit(configFile)
	defer s.Close()

	report := s.Store.Cleanup(ctx)
	fmt.Printf("Checked %d keys, removed %d expired\n", report.Visited, report.Expired)
	if report.Unreadable > 0 {
		fmt.Printf("%d keys could not be read and were kept\n", report.Unreadable)
	}
}
