package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"

	"github.com/illarion/sealstore/internal/config"
	"github.com/illarion/sealstore/internal/envelope"
)

// Status shows storage and encryption state and every stored entry
func Status(ctx context.Context, configFile string) {
	s := OpenOrExit(configFile)
	defer s.Close()

	cfg := s.Config

	location := "in memory"
	switch cfg.Engine {
	case config.EngineBolt:
		location = filepath.Join(cfg.Dir, BoltFile)
	case config.EngineBadger:
		location = filepath.Join(cfg.Dir, BadgerDir)
	}

	fmt.Printf("Storage:    %s (%s) ", cfg.Engine, location)
	if s.Store.IsAvailable(ctx) {
		fmt.Println(color.GreenString("available"))
	} else {
		fmt.Println(color.RedString("unavailable"))
	}
	if modified, ok := lastWrite(s.Persistent); ok {
		fmt.Printf("Last write: %s\n", modified.Local().Format(time.RFC3339))
	}

	fmt.Print("Encryption: ")
	if s.Store.CipherAvailable() {
		fmt.Printf("AES-256-GCM, PBKDF2-SHA256 %d iterations\n", cfg.Encryption.Iterations)
	} else {
		fmt.Println(color.YellowString("legacy obfuscation only") + " (provider unavailable)")
	}
	fmt.Printf("Fallback:   %s\n", cfg.Encryption.Fallback)
	fmt.Printf("Prefix:     %q\n", cfg.Prefix)

	entries := s.Store.Inspect(ctx)
	fmt.Printf("\nEntries (%d):\n", len(entries))
	if len(entries) == 0 {
		fmt.Println("  (none)")
		return
	}

	now := time.Now()
	var total int64
	for _, e := range entries {
		total += int64(e.Size)

		var mark, state string
		switch {
		case !e.Readable:
			mark, state = color.RedString("✗"), color.RedString("unreadable")
		case e.Expired:
			mark, state = color.YellowString("⚠"), color.YellowString("expired")
		case e.ExpiresAt.IsZero():
			mark, state = color.GreenString("✓"), "no expiry"
		default:
			mark, state = color.GreenString("✓"), "expires in "+e.ExpiresAt.Sub(now).Round(time.Second).String()
		}

		fmt.Printf("  %s %-24s %-7s %-10s %s\n", mark, e.Key, formatName(e.Format), formatSize(int64(e.Size)), state)
	}
	fmt.Printf("\nTotal: %s\n", formatSize(total))
}

func formatName(f envelope.Format) string {
	if f == envelope.FormatPlain {
		return color.CyanString(f.String())
	}
	return f.String()
}
