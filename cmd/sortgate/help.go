package main

import (
	"bytes"
	"fmt"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/sortgate/internal/ui"
)

// helpRule styles one submatch of every line pattern in Cobra's help text.
type helpRule struct {
	re     *regexp.Regexp
	group  int
	render func(string) string
}

var helpRules = []helpRule{
	// Section headers such as "Data Commands:" and "Flags:".
	{regexp.MustCompile(`(?m)^([A-Z][^\n]*:)[ \t]*$`), 1, ui.RenderAccent},
	// Command names in the command lists.
	{regexp.MustCompile(`(?m)^  ([a-z][\w-]*)  `), 1, ui.RenderCommand},
	// Flag value types: "--http-url string", "--interval duration".
	{regexp.MustCompile(`--?[\w-]+ (string|int|int64|duration)\b`), 1, ui.RenderMuted},
	// Defaults: (default "http://localhost:8080"), (default 5s).
	{regexp.MustCompile(`(\(default [^)]*\))`), 1, ui.RenderMuted},
}

// colorizedHelpFunc renders Cobra's usage text, styled when the output
// supports color.
func colorizedHelpFunc() func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		if !ui.ColorEnabled(out) {
			_ = cmd.Usage()
			return
		}
		var buf bytes.Buffer
		cmd.SetOut(&buf)
		_ = cmd.Usage()
		cmd.SetOut(out)
		fmt.Fprint(out, colorizeHelp(buf.String()))
	}
}

func colorizeHelp(s string) string {
	for _, rule := range helpRules {
		s = rule.apply(s)
	}
	return s
}

// apply replaces the rule's group inside every match, leaving the rest of
// the match untouched.
func (r helpRule) apply(s string) string {
	var b bytes.Buffer
	last := 0
	for _, m := range r.re.FindAllStringSubmatchIndex(s, -1) {
		start, end := m[2*r.group], m[2*r.group+1]
		if start < 0 {
			continue
		}
		b.WriteString(s[last:start])
		b.WriteString(r.render(s[start:end]))
		last = end
	}
	b.WriteString(s[last:])
	return b.String()
}
