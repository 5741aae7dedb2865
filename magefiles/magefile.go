// Package main contains Mage build targets for venue-harvest developer tooling.
package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "venue-harvest"
	cmdPkg  = "./cmd/venue-harvest"
)

// sampleFiles are written by Init when missing.
var sampleFiles = map[string]string{
	"venues.txt": `# One venue per line, spelled as Semantic Scholar indexes it.
ACL
EMNLP
NAACL
`,
	"keywords.txt": `# One keyword per line; matched case-insensitively.
parsing
machine translation
`,
	"venue-harvest.yaml": `year_from: 2015
fetch:
  endpoint: search
  batch_size: 100
  request_interval: 1s
output:
  csv_path: out/harvest.csv
  no_abstract_copy: true
  manifest_path: out/manifest.yaml
`,
}

// Init writes sample venue, keyword and config files and creates the
// .secrets and out directories.
func Init() error {
	for _, dir := range []string{".secrets", "out"} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	for name, body := range sampleFiles {
		if _, err := os.Stat(name); err == nil {
			fmt.Println("   exists:", name)
			continue
		}
		if err := os.WriteFile(name, []byte(body), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		fmt.Println("  ", name)
	}
	fmt.Println("Put a Semantic Scholar API key in .secrets/semantic-scholar-api-key for higher rate limits.")
	return nil
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	version, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || version == "" {
		version = "dev"
	}
	if err := sh.RunV("go", "build", "-ldflags", "-X main.version="+version, "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s (%s)\n", out, version)
	return nil
}

// Test runs the unit tests with the race detector.
func Test() error {
	return sh.RunV("go", "test", "-race", "./...")
}

// Crawl builds the binary and runs a crawl over venues.txt and keywords.txt.
func Crawl() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "crawl",
		"--venues-file", "venues.txt",
		"--keywords-file", "keywords.txt")
}

// Clean removes build output.
func Clean() error {
	return sh.Rm(binDir)
}

// Stats prints project metrics: Go production/test LOC and documentation word count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	docWords, err := countDocWords(".")
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Words (documentation):           %d\n", docWords)
	return nil
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if skipDir(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") {
			return nil
		}
		isTest := strings.HasSuffix(path, "_test.go")
		if isTest != testOnly {
			return nil
		}
		n, err := countNonBlank(path)
		if err != nil {
			return err
		}
		total += n
		return nil
	})
	return total, err
}

// countDocWords counts whitespace-separated words in top-level Markdown files.
func countDocWords(root string) (int, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.md"))
	if err != nil {
		return 0, err
	}
	total := 0
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("reading %s: %w", path, err)
		}
		total += len(strings.Fields(string(data)))
	}
	return total, nil
}

func countNonBlank(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	n := 0
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) != "" {
			n++
		}
	}
	return n, sc.Err()
}

func skipDir(path string) bool {
	base := filepath.Base(path)
	return path != "." && (strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") || base == binDir)
}
