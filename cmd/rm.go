package cmd

import (
	"context"
	"fmt"
	"os"
)

// Remove deletes keys from both stores
func Remove(ctx context.Context, configFile string, keys []string) {
	if len(keys) == 0 {
		fmt.Fprintf(os.Stderr, "Error: rm requires at least one key argument\n")
		fmt.Fprintf(os.Stderr, "Usage: sealstore rm <key> [key...]\n")
		os.Exit(1)
	}

	s := OpenOrExit(configFile)
	defer s.Close()

	failed := false
	for _, key := range keys {
		if !s.Store.Remove(ctx, key) {
			fmt.Fprintf(os.Stderr, "Error: failed to remove %s\n", key)
			failed = true
			continue
		}
		fmt.Printf("Removed %s\n", key)
	}

	if failed {
		s.Close()
		os.Exit(1)
	}
}
