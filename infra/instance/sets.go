package instance

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Set names a group of benchmark instances.
type Set string

const (
	// SetSmall holds the instances with 5, 10 or 15 clients.
	SetSmall Set = "small"
	// SetLarge holds the 100-client instances.
	SetLarge Set = "large"
	// SetAll is small followed by large.
	SetAll Set = "all"
)

var (
	smallSuffixes = []string{"C5.txt", "C10.txt", "C15.txt"}
	largeSuffixes = []string{"_21.txt"}
)

// ParseSet validates a set name.
func ParseSet(s string) (Set, error) {
	switch Set(s) {
	case SetSmall, SetLarge, SetAll:
		return Set(s), nil
	case "":
		return SetAll, nil
	}
	return "", fmt.Errorf("unknown instance set %q (want small, large or all)", s)
}

// Select lists the instance files of set in dir, sorted by name within
// each group.
func Select(dir string, set Set) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var small, large []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case hasAnySuffix(name, smallSuffixes):
			small = append(small, filepath.Join(dir, name))
		case hasAnySuffix(name, largeSuffixes):
			large = append(large, filepath.Join(dir, name))
		}
	}
	sort.Strings(small)
	sort.Strings(large)
	switch set {
	case SetSmall:
		return small, nil
	case SetLarge:
		return large, nil
	default:
		return append(small, large...), nil
	}
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _, suf := range suffixes {
		if strings.HasSuffix(s, suf) {
			return true
		}
	}
	return false
}
