package ninja

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

var long = strings.Repeat("x", 30)

var writerTestCases = []struct {
	input  func(w *writer)
	output string
}{
	{
		input:  func(w *writer) { w.Comment("foo") },
		output: "# foo\n",
	},
	{
		input:  func(w *writer) { w.Comment("foo\n  bar") },
		output: "# foo\n#   bar\n",
	},
	{
		input: func(w *writer) { w.Comment(strings.Repeat("aaaa ", 20)) },
		output: "# " + strings.Repeat("aaaa ", 14) + "aaaa\n" +
			"# " + strings.Repeat("aaaa ", 4) + "aaaa\n",
	},
	{
		input:  func(w *writer) { w.Rule("foo", [2]string{"command", "bar $in"}, [2]string{"description", "FOO"}) },
		output: "rule foo\n    command = bar $in\n    description = FOO\n",
	},
	{
		input:  func(w *writer) { w.Assign("foo", "bar") },
		output: "foo = bar\n",
	},
	{
		input:  func(w *writer) { w.ScopedAssign("foo", "bar") },
		output: "    foo = bar\n",
	},
	{
		input:  func(w *writer) { w.Subninja("build.ninja") },
		output: "subninja build.ninja\n",
	},
	{
		input:  func(w *writer) { w.Default("foo", "bar") },
		output: "default foo bar\n",
	},
	{
		input:  func(w *writer) { w.Default() },
		output: "",
	},
	{
		input:  func(w *writer) { w.Default(long, long, long) },
		output: "default " + long + " " + long + " $\n        " + long + "\n",
	},
	{
		input: func(w *writer) {
			w.BlankLine()
			w.BlankLine()
		},
		output: "\n",
	},
	{
		input:  func(w *writer) { w.Lines([]string{"build a: phony", "", "", "build b: phony", "  x = y", ""}) },
		output: "build a: phony\n\nbuild b: phony\n  x = y\n\n",
	},
	{
		input: func(w *writer) {
			w.Assign("builddir", "out")
			w.BlankLine()
			w.Rule("stamp", [2]string{"command", "touch $out"})
			w.BlankLine()
			w.Subninja("out/a.ninja")
		},
		output: "builddir = out\n\nrule stamp\n    command = touch $out\n\nsubninja out/a.ninja\n",
	},
}

func TestWriter(t *testing.T) {
	for i, tc := range writerTestCases {
		w := &writer{}
		tc.input(w)
		assert.Equal(t, tc.output, w.String(), "test case %d", i)
	}
}
