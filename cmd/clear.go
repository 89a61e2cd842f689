package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Clear removes every key under the configured prefix
func Clear(ctx context.Context, configFile string, force bool) {
	s := OpenOrExit(configFile)
	defer s.Close()

	keys := s.Store.Keys(ctx)
	if len(keys) == 0 {
		fmt.Println("Nothing to clear")
		return
	}

	if !force {
		fmt.Printf("Remove %d keys under prefix %q? [y/N]: ", len(keys), s.Config.Prefix)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted")
			return
		}
	}

	if !s.Store.Clear(ctx) {
		s.Close()
		HandleError(fmt.Errorf("clear incomplete: %w", ErrUnavailable))
	}
	fmt.Printf("Removed %d keys\n", len(keys))
}
