package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// segmentName returns the file name for a segment. The first segment is
// the bare base name; rotated segments carry a "-<n>" suffix with n
// starting at 0 on the first rotation.
func segmentName(base string, index int) string {
	if index == 0 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, index-1)
}

// localSegment is one on-disk segment file found during enumeration.
type localSegment struct {
	path  string
	index int
}

// listSegments enumerates segment files under dir matching the sink's
// naming pattern, sorted by ascending sequence index (base file first).
// Files that merely share the base name as a prefix but do not carry a
// numeric suffix are ignored.
func listSegments(dir, base string) ([]localSegment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("sink: listing segments in %s: %w", dir, err)
	}

	var segs []localSegment
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if name == base {
			segs = append(segs, localSegment{path: filepath.Join(dir, name), index: 0})
			continue
		}
		suffix, ok := strings.CutPrefix(name, base+"-")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(suffix)
		if err != nil || n < 0 {
			continue
		}
		segs = append(segs, localSegment{path: filepath.Join(dir, name), index: n + 1})
	}

	sort.Slice(segs, func(i, j int) bool { return segs[i].index < segs[j].index })
	return segs, nil
}

// objectKey derives the deterministic remote object name for the file at
// position uploadIndex in the sorted segment list. The host identifier
// appears twice, matching the established layout of the diagnostics
// container; the prefix is omitted when not configured.
func objectKey(prefix, host string, uploadIndex int) string {
	key := fmt.Sprintf("%s-%s-%d.out", host, host, uploadIndex)
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
