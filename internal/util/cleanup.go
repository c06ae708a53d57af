package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempSuffix marks per-chapter working folders.
const TempSuffix = "_tmp"

// CleanupUnfinishedTempFolders removes *_tmp folders directly below root and
// one level further down (root/<comic>/<chapter>_tmp).
func CleanupUnfinishedTempFolders(root string) []string {
	var removed []string

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}

		full := filepath.Join(root, e.Name())
		if strings.HasSuffix(e.Name(), TempSuffix) {
			if err := os.RemoveAll(full); err != nil {
				fmt.Printf("Error cleaning up %s: %v\n", full, err)
				continue
			}
			removed = append(removed, full)
			continue
		}

		sub, err := os.ReadDir(full)
		if err != nil {
			continue
		}
		for _, s := range sub {
			if s.IsDir() && strings.HasSuffix(s.Name(), TempSuffix) {
				path := filepath.Join(full, s.Name())
				if err := os.RemoveAll(path); err == nil {
					removed = append(removed, path)
				}
			}
		}
	}

	return removed
}

func RemoveIfEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return false
	}

	return os.Remove(dir) == nil
}
