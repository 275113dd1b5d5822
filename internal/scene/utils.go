package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// GenerateCompositionPath creates a timestamped composition filename inside dir
func GenerateCompositionPath(dir string) string {
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join(dir, fmt.Sprintf("composition_%s.json", timestamp))
}

// FindLatestComposition finds the most recent composition file in dir
func FindLatestComposition(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read compositions directory: %w", err)
	}

	var found []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
			found = append(found, filepath.Join(dir, entry.Name()))
		}
	}

	if len(found) == 0 {
		return "", fmt.Errorf("no composition files found in %s", dir)
	}

	// Newest first
	sort.Slice(found, func(i, j int) bool {
		infoI, _ := os.Stat(found[i])
		infoJ, _ := os.Stat(found[j])
		if infoI == nil || infoJ == nil {
			return infoI != nil
		}
		return infoI.ModTime().After(infoJ.ModTime())
	})

	return found[0], nil
}
