package targets

import (
	"path"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/plzbuild/blade/src/core"
)

// GenRuleType is the type of gen_rule targets.
const GenRuleType = "gen_rule"

// GenRuleOutputs are the files built by a gen_rule.
type GenRuleOutputs struct {
	Outs []string
}

// A GenRule generates files by running a shell command.
//
// The command can refer to other targets' outputs with $(location ...) and to its own files with
// $SRCS, $OUTS, $FIRST_SRC, $FIRST_OUT, $SRC_DIR, $OUT_DIR and $BUILD_DIR.
type GenRule struct {
	Outs    []string
	Cmd     string
	Outputs GenRuleOutputs
}

func newGenRule(state *core.BuildState, args core.TargetArgs) (*core.Target, error) {
	rule := &GenRule{}
	var err error
	if rule.Outs, err = popStrings(&args, "outs"); err != nil {
		return nil, err
	} else if rule.Cmd, err = popString(&args, "cmd", ""); err != nil {
		return nil, err
	} else if len(rule.Outs) == 0 {
		return nil, argError(&args, "outs must not be empty")
	} else if strings.TrimSpace(rule.Cmd) == "" {
		return nil, argError(&args, "cmd must not be empty")
	}
	for _, out := range rule.Outs {
		if out == "" || path.IsAbs(out) || path.Clean(out) != out || strings.HasPrefix(out, "../") {
			return nil, argError(&args, "Invalid output %q, must be a relative path below the target's directory", out)
		}
	}
	target, err := core.NewTarget(state, args, rule)
	if err != nil {
		return nil, err
	}
	return target, target.ResolveLocations(rule.Cmd)
}

// AllowDuplicateSources implements core.Kind.
func (rule *GenRule) AllowDuplicateSources() bool {
	return true
}

// DumpFields implements core.Dumper.
func (rule *GenRule) DumpFields() map[string]interface{} {
	return map[string]interface{}{
		"outs": rule.Outs,
		"cmd":  rule.Cmd,
	}
}

// GenerateRules implements core.Kind.
func (rule *GenRule) GenerateRules(target *core.Target, w *core.RuleWriter) error {
	deps, err := depOutputs(target)
	if err != nil {
		return err
	}
	cmd, err := target.ExpandLocations(rule.Cmd)
	if err != nil {
		return err
	}
	srcs := make([]string, len(target.Srcs))
	for i, src := range target.Srcs {
		srcs[i] = target.SourceFilePath(src)
	}
	outs := make([]string, len(rule.Outs))
	for i, out := range rule.Outs {
		outs[i] = target.TargetFilePath(out)
	}
	firstSrc := ""
	if len(srcs) > 0 {
		firstSrc = srcs[0]
	}
	cmd = strings.NewReplacer(
		"$SRCS", shellescape.QuoteCommand(srcs),
		"$OUTS", shellescape.QuoteCommand(outs),
		"$FIRST_SRC", shellescape.Quote(firstSrc),
		"$FIRST_OUT", shellescape.Quote(outs[0]),
		"$SRC_DIR", shellescape.Quote(target.Dir()),
		"$OUT_DIR", shellescape.Quote(target.TargetFilePath("")),
		"$BUILD_DIR", shellescape.Quote(target.State().BuildDir()),
	).Replace(cmd)

	w.Build("gen", escapePaths(outs), escapePaths(srcs), &core.BuildOptions{
		ImplicitDeps: escapePaths(deps),
		Variables: map[string]string{
			"cmd":         escapeNinja(cmd),
			"description": "COMMAND " + target.String(),
		},
	})
	for i, out := range rule.Outs {
		target.AddTargetFile(out, outs[i])
	}
	rule.Outputs.Outs = outs
	return nil
}
