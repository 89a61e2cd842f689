package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Get prints the value stored under key. Strings are printed as is,
// anything else as JSON. A miss prints def when it is set and exits 1
// otherwise.
func Get(ctx context.Context, configFile, key string, def *string, sync bool) {
	s := OpenOrExit(configFile)
	defer s.Close()

	var (
		data json.RawMessage
		ok   bool
	)
	if sync {
		data, ok = s.Store.GetSync(ctx, key)
	} else {
		data, ok = s.Store.Get(ctx, key)
	}

	if !ok {
		if def != nil {
			fmt.Println(*def)
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %s not found\n", key)
		s.Close()
		os.Exit(1)
	}

	fmt.Println(render(data))
}

func render(data json.RawMessage) string {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		return str
	}
	return string(data)
}
