package logs

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Known dev process names, in display order.
var Processes = []string{"frontend", "backend", "openapi"}

// Entry is one parsed log line.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"msg"`

	// Process is the source process, taken from the file name rather
	// than the payload so plain-text lines still get attributed.
	Process string `json:"-"`

	// Raw is the original line, kept for plain-text passthrough.
	Raw string `json:"-"`
}

// Filter restricts which entries Read returns.
type Filter struct {
	// Processes limits entries to these sources. Empty means all.
	Processes []string

	// Since drops entries older than this instant. Zero means no bound.
	Since time.Time

	// Limit keeps only the most recent N entries after merging.
	// Zero means unlimited.
	Limit int
}

func (f Filter) wantsProcess(name string) bool {
	if len(f.Processes) == 0 {
		return true
	}
	for _, p := range f.Processes {
		if p == name {
			return true
		}
	}
	return false
}

// Read merges the log files of every selected process under logDir into
// a single time-ordered slice. A missing log file means the process has
// not run yet and is skipped silently; unparseable lines are kept as
// plain-text entries so nothing a process printed is lost.
func Read(logDir string, f Filter) ([]Entry, error) {
	var merged []Entry

	for _, name := range Processes {
		if !f.wantsProcess(name) {
			continue
		}
		entries, err := readFile(filepath.Join(logDir, name+".log"), name)
		if err != nil {
			return nil, err
		}
		merged = append(merged, entries...)
	}

	if !f.Since.IsZero() {
		kept := merged[:0]
		for _, e := range merged {
			if e.Time.IsZero() || !e.Time.Before(f.Since) {
				kept = append(kept, e)
			}
		}
		merged = kept
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Time.Before(merged[j].Time) })

	if f.Limit > 0 && len(merged) > f.Limit {
		merged = merged[len(merged)-f.Limit:]
	}
	return merged, nil
}

func readFile(path, process string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, ParseLine(line, process))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return entries, nil
}

// ParseLine decodes one log line. Non-JSON lines come back as plain
// entries with only Raw and Process set.
func ParseLine(line, process string) Entry {
	var e Entry
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return Entry{Message: line, Process: process, Raw: line}
	}
	e.Process = process
	e.Raw = line
	return e
}
