package cmd

import (
	"context"
	"fmt"
)

// List prints the stored keys, one per line
func List(ctx context.Context, configFile string) {
	s := OpenOrExit(configFile)
	defer s.Close()

	for _, key := range s.Store.Keys(ctx) {
		fmt.Println(key)
	}
}
