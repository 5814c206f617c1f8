package session

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"

	"github.com/scenepack/scenepack/internal/report"
)

const ignoreFileName = ".bamignore"

// defaultIgnorePattern is written by WriteDefaultIgnore, matching
// bam_config.write_bamignore's default (skip .blend1, .blend2, ... backups).
const defaultIgnorePattern = `.*\.blend\d+$`

// IgnoreFilter matches a project-relative path against a list of
// regular expressions, one per line of .bamignore (§4.6 "Ignore
// patterns are a list of regular expressions evaluated against relative
// paths").
type IgnoreFilter struct {
	patterns []*regexp.Regexp
}

// Ignored reports whether rel (a slash-separated, project-relative
// path) matches any pattern.
func (f *IgnoreFilter) Ignored(rel string) bool {
	if f == nil {
		return false
	}
	for _, p := range f.patterns {
		if p.MatchString(rel) {
			return true
		}
	}
	return false
}

// LoadIgnoreFilter reads rootDir/.bamignore, compiling one regexp per
// non-empty line. A missing file yields an empty, always-false filter,
// matching create_bamignore_filter's "no .bamignore -> no filtering"
// behavior.
func LoadIgnoreFilter(rootDir string) (*IgnoreFilter, error) {
	path := filepath.Join(rootDir, ignoreFileName)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &IgnoreFilter{}, nil
		}
		return nil, report.New(report.IO, path, err)
	}
	defer f.Close()

	var patterns []*regexp.Regexp
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if text == "" {
			continue
		}
		p, err := regexp.Compile(text)
		if err != nil {
			return nil, report.New(report.FormatInvalid, path, err)
		}
		patterns = append(patterns, p)
	}
	if err := sc.Err(); err != nil {
		return nil, report.New(report.IO, path, err)
	}
	return &IgnoreFilter{patterns: patterns}, nil
}

// WriteDefaultIgnore writes the default .bamignore pattern into rootDir,
// mirroring bam_config.write_bamignore.
func WriteDefaultIgnore(rootDir string) error {
	path := filepath.Join(rootDir, ignoreFileName)
	if err := os.WriteFile(path, []byte(defaultIgnorePattern), 0o644); err != nil {
		return report.New(report.IO, path, err)
	}
	return nil
}
