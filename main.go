package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/illarion/sealstore/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "set":
		runSet(ctx, os.Args[2:])
	case "get":
		runGet(ctx, os.Args[2:])
	case "rm":
		runRm(ctx, os.Args[2:])
	case "ls":
		runLs(ctx, os.Args[2:])
	case "clear":
		runClear(ctx, os.Args[2:])
	case "cleanup":
		runCleanup(ctx, os.Args[2:])
	case "status":
		runStatus(ctx, os.Args[2:])
	case "compact":
		runCompact(ctx, os.Args[2:])
	case "completion":
		runCompletion(ctx, os.Args[2:])
	case "help", "-h", "--help":
		if len(os.Args) <= 2 {
			printUsage()
			return
		}
		printCommandHelp(os.Args[2])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// newFlagSet creates a flag set carrying the --config flag shared by every
// command that opens the store.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	configFile := fs.String("config", os.Getenv("SEALSTORE_CONFIG"), "Path to a YAML configuration file")
	return fs, configFile
}

func parse(fs *flag.FlagSet, args []string) {
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func runSet(ctx context.Context, args []string) {
	fs, configFile := newFlagSet("set")
	asJSON := fs.Bool("json", false, "Parse the value as JSON")
	plain := fs.Bool("plain", false, "Store without encryption")
	ttl := fs.Duration("ttl", 0, "Expire the value after this duration")
	sync := fs.Bool("sync", false, "Write through the legacy-only path")
	parse(fs, args)

	if fs.NArg() < 1 || fs.NArg() > 2 {
		fmt.Fprintln(os.Stderr, "Usage: sealstore set [flags] <key> [value]")
		os.Exit(1)
	}

	setArgs := cmd.SetArgs{
		Key:   fs.Arg(0),
		JSON:  *asJSON,
		Plain: *plain,
		TTL:   *ttl,
		Sync:  *sync,
	}
	if fs.NArg() == 2 {
		value := fs.Arg(1)
		setArgs.Value = &value
	}

	cmd.Set(ctx, *configFile, setArgs)
}

func runGet(ctx context.Context, args []string) {
	fs, configFile := newFlagSet("get")
	def := fs.String("default", "", "Print this instead of failing when the key is missing")
	sync := fs.Bool("sync", false, "Read through the legacy-only path")
	parse(fs, args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: sealstore get [flags] <key>")
		os.Exit(1)
	}

	var fallback *string
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "default" {
			fallback = def
		}
	})

	cmd.Get(ctx, *configFile, fs.Arg(0), fallback, *sync)
}

func runRm(ctx context.Context, args []string) {
	fs, configFile := newFlagSet("rm")
	parse(fs, args)

	cmd.Remove(ctx, *configFile, fs.Args())
}

func runLs(ctx context.Context, args []string) {
	fs, configFile := newFlagSet("ls")
	parse(fs, args)

	cmd.List(ctx, *configFile)
}

func runClear(ctx context.Context, args []string) {
	fs, configFile := newFlagSet("clear")
	force := fs.Bool("force", false, "Do not ask for confirmation")
	parse(fs, args)

	cmd.Clear(ctx, *configFile, *force)
}

func runCleanup(ctx context.Context, args []string) {
	fs, configFile := newFlagSet("cleanup")
	parse(fs, args)

	cmd.Cleanup(ctx, *configFile)
}

func runStatus(ctx context.Context, args []string) {
	fs, configFile := newFlagSet("status")
	parse(fs, args)

	cmd.Status(ctx, *configFile)
}

func runCompact(ctx context.Context, args []string) {
	fs, configFile := newFlagSet("compact")
	parse(fs, args)

	cmd.Compact(ctx, *configFile)
}

func runCompletion(_ context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: sealstore completion <bash|zsh|fish>")
		os.Exit(1)
	}
	cmd.Completion(args[0])
}

func printUsage() {
	fmt.Println("sealstore - Encrypted key-value storage bound to this machine")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  sealstore <command> [flags] [arguments]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  set         Store a value")
	fmt.Println("  get         Print a stored value")
	fmt.Println("  rm          Remove keys")
	fmt.Println("  ls          List stored keys")
	fmt.Println("  clear       Remove every key under the configured prefix")
	fmt.Println("  cleanup     Remove expired entries")
	fmt.Println("  status      Show storage, encryption and entry state")
	fmt.Println("  compact     Reclaim disk space")
	fmt.Println("  completion  Generate shell completions")
	fmt.Println("  help        Show help for a command")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  sealstore set token              # Prompt for a value and store it encrypted")
	fmt.Println("  sealstore set --ttl 24h token x  # Store a value that expires in a day")
	fmt.Println("  sealstore get token              # Print it")
	fmt.Println("  sealstore status                 # Inspect what is stored")
	fmt.Println()
	fmt.Println("Every command accepts --config <file>; SEALSTORE_* variables override it.")
	fmt.Println("Use 'sealstore help <command>' for more information about a command.")
}

func printCommandHelp(command string) {
	switch command {
	case "set":
		fmt.Println("sealstore set [--json] [--plain] [--ttl <duration>] [--sync] <key> [value]")
		fmt.Println()
		fmt.Println("Stores a value in the persistent store, encrypted by default.")
		fmt.Println("When no value is given it is read from stdin, without echo on a terminal.")
		fmt.Println("The key is derived from this machine; values cannot be read elsewhere.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --json          Parse the value as JSON instead of storing a string")
		fmt.Println("  --plain         Store without encryption")
		fmt.Println("  --ttl <d>       Expire after a Go duration such as 90s, 1h or 24h")
		fmt.Println("  --sync          Use legacy obfuscation instead of AES-GCM")
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  sealstore set api-key                    # Prompt for the value")
		fmt.Println("  echo -n secret | sealstore set api-key   # Read it from a pipe")
		fmt.Println("  sealstore set --json --plain prefs '{\"dark\":true}'")
	case "get":
		fmt.Println("sealstore get [--default <value>] [--sync] <key>")
		fmt.Println()
		fmt.Println("Prints a stored value. Strings are printed as is, other values as JSON.")
		fmt.Println("Expired values are removed and reported as missing.")
		fmt.Println()
		fmt.Println("Flags:")
		fmt.Println("  --default <v>   Print this instead of failing when the key is missing")
		fmt.Println("  --sync          Read legacy and plain values only")
	case "rm":
		fmt.Println("sealstore rm <key> [key...]")
		fmt.Println()
		fmt.Println("Removes keys. Removing a key that does not exist is not an error.")
	case "ls":
		fmt.Println("sealstore ls")
		fmt.Println()
		fmt.Println("Lists stored keys in sorted order, one per line.")
	case "clear":
		fmt.Println("sealstore clear [--force]")
		fmt.Println()
		fmt.Println("Removes every key under the configured prefix.")
		fmt.Println("Keys written by other applications are left alone.")
	case "cleanup":
		fmt.Println("sealstore cleanup")
		fmt.Println()
		fmt.Println("Reads every key once and removes the expired ones.")
		fmt.Println("Values that cannot be decrypted are kept.")
	case "status":
		fmt.Println("sealstore status")
		fmt.Println()
		fmt.Println("Shows storage and encryption state and, for every entry,")
		fmt.Println("its format (v2, legacy or plain), size and expiry.")
		fmt.Println("Nothing is removed.")
	case "compact":
		fmt.Println("sealstore compact")
		fmt.Println()
		fmt.Println("Reclaims disk space left by removed and expired entries.")
		fmt.Println("Copies the bolt database, or runs value log GC for badger.")
	case "completion":
		fmt.Println("sealstore completion <bash|zsh|fish>")
		fmt.Println()
		fmt.Println("Outputs shell completion script for the specified shell.")
		fmt.Println()
		fmt.Println("Setup:")
		fmt.Println("  # Bash - add to ~/.bashrc")
		fmt.Println("  eval \"$(sealstore completion bash)\"")
		fmt.Println()
		fmt.Println("  # Zsh - add to ~/.zshrc")
		fmt.Println("  eval \"$(sealstore completion zsh)\"")
		fmt.Println()
		fmt.Println("  # Fish - add to ~/.config/fish/config.fish")
		fmt.Println("  sealstore completion fish | source")
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
	}
}
