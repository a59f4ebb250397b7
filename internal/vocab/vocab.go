// Package vocab provides the vocabulary a learning session starts from.
package vocab

import (
	"bufio"
	"embed"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lazypower/lexloop/internal/priority"
)

//go:embed lists/*.txt
var lists embed.FS

// Builtin lists shipped with the binary.
var Builtin = []string{"a2", "b1"}

// Parse reads one item per line. Blank lines and lines starting with '#'
// are skipped, surrounding whitespace is trimmed and duplicates are dropped.
// Input must be UTF-8; a line in any other encoding is an error.
func Parse(r io.Reader) ([]priority.Item, error) {
	seen := make(map[priority.Item]bool)
	var items []priority.Item

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if !utf8.Valid(scanner.Bytes()) {
			return nil, fmt.Errorf("vocabulary line %d: %w (save the file as UTF-8)", lineNo, priority.ErrInvalidItem)
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		it := priority.Item(line)
		if seen[it] {
			continue
		}
		seen[it] = true
		items = append(items, it)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read vocabulary: %w", err)
	}
	return items, nil
}

// LoadFile reads a vocabulary file.
func LoadFile(path string) ([]priority.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open vocabulary: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// LoadBuiltin returns the union of the named built-in lists, sorted.
func LoadBuiltin(names ...string) ([]priority.Item, error) {
	if len(names) == 0 {
		names = Builtin
	}
	seen := make(map[priority.Item]bool)
	var items []priority.Item
	for _, name := range names {
		f, err := lists.Open("lists/" + name + ".txt")
		if err != nil {
			return nil, fmt.Errorf("unknown vocabulary list %q", name)
		}
		parsed, err := Parse(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", name, err)
		}
		for _, it := range parsed {
			if !seen[it] {
				seen[it] = true
				items = append(items, it)
			}
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i] < items[j] })
	return items, nil
}

// Load reads path when set, otherwise the built-in lists.
func Load(path string) ([]priority.Item, error) {
	if path == "" {
		return LoadBuiltin()
	}
	return LoadFile(path)
}
