package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/illarion/sealstore/internal/core"
)

// SetArgs holds the options of the set command.
type SetArgs struct {
	Key   string
	Value *string // nil reads the value from stdin
	JSON  bool    // parse the value as JSON instead of storing a string
	Plain bool    // store without encryption
	TTL   time.Duration
	Sync  bool // write through the legacy-only path
}

// Set stores a value in the persistent store
func Set(ctx context.Context, configFile string, args SetArgs) {
	var raw string
	if args.Value != nil {
		raw = *args.Value
	} else {
		v, err := ReadValue(fmt.Sprintf("Value for %s: ", args.Key))
		if err != nil {
			HandleError(err)
		}
		raw = v
	}

	var value any = raw
	if args.JSON {
		if !json.Valid([]byte(raw)) {
			fmt.Fprintf(os.Stderr, "Error: value is not valid JSON\n")
			os.Exit(1)
		}
		value = json.RawMessage(raw)
	}

	s := OpenOrExit(configFile)
	defer s.Close()

	opts := core.SetOptions{
		Encrypt:    !args.Plain,
		TTL:        args.TTL,
		Persistent: true,
	}

	var ok bool
	if args.Sync {
		ok = s.Store.SetSync(ctx, args.Key, value, opts)
	} else {
		ok = s.Store.Set(ctx, args.Key, value, opts)
	}
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: failed to store %s\n", args.Key)
		fmt.Fprintf(os.Stderr, "Run with SEALSTORE_LOG_LEVEL=debug for details\n")
		s.Close()
		os.Exit(1)
	}

	switch {
	case args.TTL > 0:
		fmt.Printf("Stored %s (expires in %s)\n", args.Key, args.TTL)
	default:
		fmt.Printf("Stored %s\n", args.Key)
	}
}
