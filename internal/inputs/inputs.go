// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package inputs reads the venue and keyword lists that drive a crawl.
// List files hold one entry per line; blank lines and lines starting with
// '#' are ignored.
package inputs

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Venues merges the entries of path (if set) with inline, trimmed and in
// order, dropping repeats. Venue names keep their case: the API matches
// them exactly.
func Venues(path string, inline []string) ([]string, error) {
	return load(path, inline, strings.TrimSpace)
}

// Keywords merges the entries of path (if set) with inline, lower-cased and
// in order, dropping repeats.
func Keywords(path string, inline []string) ([]string, error) {
	return load(path, inline, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func load(path string, inline []string, norm func(string) string) ([]string, error) {
	var raw []string
	if path != "" {
		lines, err := ReadList(path)
		if err != nil {
			return nil, err
		}
		raw = append(raw, lines...)
	}
	raw = append(raw, inline...)

	seen := make(map[string]bool, len(raw))
	var out []string
	for _, v := range raw {
		v = norm(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// ReadList returns the non-blank, non-comment lines of path, trimmed.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening list file: %w", err)
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading list file %s: %w", path, err)
	}
	return out, nil
}
