package ninja

import (
	"strings"
	"unicode"
)

const (
	indentWidth = 4
	lineWidth   = 80
)

var indentString = strings.Repeat(" ", indentWidth)

// A writer produces the statements of a ninja file.
// It writes to memory; the result is written to disk in one go so unchanged files can be left alone.
type writer struct {
	sb strings.Builder

	justDidBlankLine bool // true if the last operation was a BlankLine
}

// Comment writes a comment, wrapping it at word boundaries if it's too long.
func (w *writer) Comment(comment string) {
	w.justDidBlankLine = false
	const maxLineLen = lineWidth - len("# ")

	for _, line := range strings.Split(comment, "\n") {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		for len(line) > maxLineLen {
			split := strings.LastIndexFunc(line[:maxLineLen], unicode.IsSpace)
			if split <= 0 {
				break
			}
			w.writeLine("# " + line[:split])
			line = strings.TrimLeftFunc(line[split:], unicode.IsSpace)
		}
		w.writeLine(strings.TrimSpace("# " + line))
	}
}

// Rule writes a rule definition with its variables, which are written in the order given.
func (w *writer) Rule(name string, vars ...[2]string) {
	w.justDidBlankLine = false
	w.writeLine("rule " + name)
	for _, v := range vars {
		w.ScopedAssign(v[0], v[1])
	}
}

// Assign writes a top-level variable.
func (w *writer) Assign(name, value string) {
	w.justDidBlankLine = false
	w.writeLine(name + " = " + value)
}

// ScopedAssign writes a variable indented under the preceding rule or build statement.
func (w *writer) ScopedAssign(name, value string) {
	w.justDidBlankLine = false
	w.writeLine(indentString + name + " = " + value)
}

// Subninja includes another ninja file in a new scope.
func (w *writer) Subninja(file string) {
	w.justDidBlankLine = false
	w.writeLine("subninja " + file)
}

// Default writes the default targets, wrapping the line if needed.
func (w *writer) Default(targets ...string) {
	if len(targets) == 0 {
		return
	}
	w.justDidBlankLine = false
	w.wrapped("default", targets)
}

// Lines writes lines that were generated elsewhere verbatim, eg. a target's build statements.
func (w *writer) Lines(lines []string) {
	for _, line := range lines {
		if line == "" {
			w.BlankLine()
		} else {
			w.justDidBlankLine = false
			w.writeLine(line)
		}
	}
}

// BlankLine writes an empty line. We don't output multiple blank lines in a row.
func (w *writer) BlankLine() {
	if !w.justDidBlankLine {
		w.justDidBlankLine = true
		w.sb.WriteString("\n")
	}
}

// String returns everything written so far.
func (w *writer) String() string {
	return w.sb.String()
}

func (w *writer) writeLine(line string) {
	w.sb.WriteString(line)
	w.sb.WriteString("\n")
}

// wrapped writes a directive followed by a list of words, breaking the line with " $" where it gets too long.
func (w *writer) wrapped(directive string, words []string) {
	const maxLineLen = lineWidth - len(" $")
	w.sb.WriteString(directive)
	written := len(directive)
	for _, word := range words {
		if written+len(word)+1 > maxLineLen {
			w.sb.WriteString(" $\n")
			w.sb.WriteString(indentString)
			w.sb.WriteString(indentString)
			written = 2 * indentWidth
		} else {
			w.sb.WriteString(" ")
			written++
		}
		w.sb.WriteString(word)
		written += len(word)
	}
	w.sb.WriteString("\n")
}
