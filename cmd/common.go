package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/illarion/sealstore/internal/config"
	"github.com/illarion/sealstore/internal/core"
	"github.com/illarion/sealstore/internal/crypto"
	"github.com/illarion/sealstore/internal/fingerprint"
	"github.com/illarion/sealstore/internal/logging"
	"github.com/illarion/sealstore/internal/storage"
)

// BoltFile is the database file name used by the bolt engine.
const BoltFile = "sealstore.db"

// BadgerDir is the directory name used by the badger engine.
const BadgerDir = "badger"

var ErrUnavailable = errors.New("storage unavailable")

// Session is an open store together with the persistent backend it writes to.
// The session backend is in-memory, so it lasts for a single invocation.
type Session struct {
	Store      *core.Store
	Persistent storage.Backend
	Config     *config.Config
	Logger     *slog.Logger
	Metrics    *core.Metrics

	registry *prometheus.Registry
}

// Open loads configuration and opens the configured store.
func Open(configFile string) (*Session, error) {
	var opts []config.Option
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		return nil, err
	}

	logger := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	persistent, err := openBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	policy, err := core.ParsePolicy(cfg.Encryption.Fallback)
	if err != nil {
		persistent.Close()
		return nil, err
	}

	deriver := fingerprint.NewDeriver(fingerprint.ProbeOptions{Geometry: cfg.Fingerprint.Geometry})
	cipher := crypto.NewCipher(deriver.Passphrase, crypto.WithIterations(cfg.Encryption.Iterations))

	registry := prometheus.NewRegistry()
	metrics := core.NewMetrics(registry)

	store := core.New(storage.NewMemory(), persistent,
		core.WithPrefix(cfg.Prefix),
		core.WithLogger(logger),
		core.WithPassphrase(deriver.Passphrase),
		core.WithCipher(cipher),
		core.WithEncryptFailurePolicy(policy),
		core.WithMetrics(metrics),
	)

	return &Session{
		Store:      store,
		Persistent: persistent,
		Config:     cfg,
		Logger:     logger,
		Metrics:    metrics,
		registry:   registry,
	}, nil
}

// Close closes the store and both of its backends, then writes the
// counters to the configured metrics textfile.
func (s *Session) Close() error {
	err := s.Store.Close()
	if path := s.Config.Metrics.Textfile; path != "" {
		if werr := prometheus.WriteToTextfile(path, s.registry); werr != nil {
			s.Logger.Warn("failed to write metrics", "path", path, "error", werr)
			err = errors.Join(err, fmt.Errorf("write metrics: %w", werr))
		}
	}
	return err
}

// lastWrite reports when the persistent backend was last written, for
// engines that track it.
func lastWrite(b storage.Backend) (time.Time, bool) {
	m, ok := b.(interface{ Modified() (time.Time, error) })
	if !ok {
		return time.Time{}, false
	}
	modified, err := m.Modified()
	if err != nil {
		return time.Time{}, false
	}
	return modified, true
}

func openBackend(cfg *config.Config, logger *slog.Logger) (storage.Backend, error) {
	if cfg.Engine == config.EngineMemory {
		return storage.NewMemory(), nil
	}

	if err := os.MkdirAll(cfg.Dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	switch cfg.Engine {
	case config.EngineBadger:
		return storage.OpenBadger(filepath.Join(cfg.Dir, BadgerDir), logger)
	default:
		return storage.OpenBolt(filepath.Join(cfg.Dir, BoltFile))
	}
}

// OpenOrExit is like Open but exits on error
func OpenOrExit(configFile string) *Session {
	s, err := Open(configFile)
	if err != nil {
		HandleError(err)
	}
	return s
}

// HandleError handles common errors consistently
func HandleError(err error) {
	switch {
	case errors.Is(err, storage.ErrClosed), errors.Is(err, ErrUnavailable):
		fmt.Fprintf(os.Stderr, "Error: storage unavailable\n")
		fmt.Fprintf(os.Stderr, "Check that no other sealstore process holds the database\n")
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		fmt.Fprintf(os.Stderr, "Check the --config path\n")
	default:
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
	os.Exit(1)
}

// formatSize formats a size in human-readable form
func formatSize(size int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case size >= GB:
		return fmt.Sprintf("%.1f GB", float64(size)/GB)
	case size >= MB:
		return fmt.Sprintf("%.1f MB", float64(size)/MB)
	case size >= KB:
		return fmt.Sprintf("%.1f KB", float64(size)/KB)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}
