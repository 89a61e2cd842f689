package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/illarion/sealstore/internal/config"
	"github.com/illarion/sealstore/internal/storage"
)

// Compact reclaims space left behind by removed and expired entries
func Compact(ctx context.Context, configFile string) {
	s := OpenOrExit(configFile)
	defer s.Close()

	compactor, ok := s.Persistent.(storage.Compactor)
	if !ok || s.Config.Engine == config.EngineMemory {
		fmt.Println("Nothing to compact for the memory engine")
		return
	}

	path := filepath.Join(s.Config.Dir, BoltFile)
	if s.Config.Engine == config.EngineBadger {
		path = filepath.Join(s.Config.Dir, BadgerDir)
	}

	sizeBefore, err := diskUsage(path)
	if err != nil {
		HandleError(err)
	}

	if err := compactor.Compact(); err != nil {
		HandleError(err)
	}

	sizeAfter, err := diskUsage(path)
	if err != nil {
		HandleError(err)
	}

	fmt.Printf("Compacted: %s -> %s\n", formatSize(sizeBefore), formatSize(sizeAfter))
}

// diskUsage returns the size of a file, or the total size of a directory.
func diskUsage(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}

	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}
