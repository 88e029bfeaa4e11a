package changecache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"sync"
)

// Decision is the outcome of a ShouldRun check.
type Decision int

const (
	// Changed means the input differs from the last committed run and
	// the dependent action should proceed.
	Changed Decision = iota

	// Unchanged means the input is byte-identical to the last committed
	// run and the dependent action can be skipped.
	Unchanged

	// Missing means the input file could not be read. The dependent
	// action should be skipped; a missing dependency is not an error.
	Missing
)

// String returns a log-friendly name for the decision.
func (d Decision) String() string {
	switch d {
	case Changed:
		return "changed"
	case Unchanged:
		return "unchanged"
	case Missing:
		return "missing"
	default:
		return "unknown"
	}
}

// Cache is a content-hash memo keyed by input path.
// It is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	hashes map[string]string
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{hashes: make(map[string]string)}
}

// ShouldRun reads inputPath, hashes its content, and compares it to the
// hash stored by the last Commit for that path. Read failures are soft:
// they yield Missing rather than an error.
//
// On Changed, the returned hash must be passed to Commit once — and only
// once — the dependent action has succeeded.
func (c *Cache) ShouldRun(inputPath string) (Decision, string) {
	hash, err := hashFile(inputPath)
	if err != nil {
		return Missing, ""
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if stored, ok := c.hashes[inputPath]; ok && stored == hash {
		return Unchanged, hash
	}
	return Changed, hash
}

// Commit records the hash for inputPath. Callers must only commit after
// the dependent action completed successfully.
func (c *Cache) Commit(inputPath, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hashes[inputPath] = hash
}

// Len returns the number of committed entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.hashes)
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
