// Package normalize rewrites a raw schema dump into a line-stable form that
// diffs cleanly with ordinary text tools: comments are dropped, key names and
// AUTO_INCREMENT counters are masked, and runs of key lines are sorted.
package normalize

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
	"unicode"
)

type replacement struct {
	pattern *regexp.Regexp
	repl    string
}

var (
	ignore = []*regexp.Regexp{
		regexp.MustCompile(`^--( |$)`),
	}

	clean = []replacement{
		{regexp.MustCompile("^(\\s*((UNIQUE\\s+)?KEY|CONSTRAINT))\\s+`.*?`\\s"), "${1} ... "},
		{regexp.MustCompile(`^(\).*\sENGINE=.*)\sAUTO_INCREMENT=\d+\s`), "${1} "},
	}

	// Lines matching a group pattern are collected and emitted sorted
	group = []replacement{
		{regexp.MustCompile(`^\s*(((PRIMARY|UNIQUE) )?KEY|CONSTRAINT)\s`), ""},
	}

	trailingComma = regexp.MustCompile(`,\s*$`)
)

type run struct {
	rule  int
	lines []string
}

// Normalize copies r to w line by line, applying the normalization rules
func Normalize(r io.Reader, w io.Writer) error {
	bw := bufio.NewWriter(w)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var current *run
	flush := func() error {
		if current == nil {
			return nil
		}
		sort.Strings(current.lines)
		for _, line := range current.lines {
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return err
			}
		}
		current = nil
		return nil
	}

	for scanner.Scan() {
		line := strings.TrimRightFunc(scanner.Text(), unicode.IsSpace)
		if ignored(line) {
			continue
		}
		for _, c := range clean {
			line = c.pattern.ReplaceAllString(line, c.repl)
		}

		rule := groupRule(line)
		if rule < 0 {
			if err := flush(); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(bw, line); err != nil {
				return err
			}
			continue
		}

		line = trailingComma.ReplaceAllString(line, group[rule].repl)
		if current != nil && current.rule != rule {
			if err := flush(); err != nil {
				return err
			}
		}
		if current == nil {
			current = &run{rule: rule}
		}
		current.lines = append(current.lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read dump: %w", err)
	}

	if err := flush(); err != nil {
		return err
	}
	return bw.Flush()
}

func ignored(line string) bool {
	for _, pattern := range ignore {
		if pattern.MatchString(line) {
			return true
		}
	}
	return false
}

func groupRule(line string) int {
	for i, g := range group {
		if g.pattern.MatchString(line) {
			return i
		}
	}
	return -1
}
