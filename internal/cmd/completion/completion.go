// Package completion provides dynamic shell completion for provider and
// model arguments.
package completion

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentstation/modelpick/internal/appcontext"
)

// CompleteFunc is the signature cobra expects for ValidArgsFunction.
type CompleteFunc func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective)

// Providers completes provider ids. When multi is false only the first
// argument is completed.
func Providers(app appcontext.Interface, multi bool) CompleteFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if !multi && len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		engine, err := app.Engine(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		var out []string
		for _, p := range engine.Catalog().Providers() {
			if strings.HasPrefix(string(p.ID), toComplete) {
				out = append(out, string(p.ID)+"\t"+p.DisplayName())
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// ModelRefs completes "provider/model" references. Before a slash is typed
// only providers are offered, each with a trailing slash.
func ModelRefs(app appcontext.Interface) CompleteFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		engine, err := app.Engine(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		providerPart, modelPart, hasSlash := strings.Cut(toComplete, "/")
		var out []string
		for _, p := range engine.Catalog().Providers() {
			id := string(p.ID)
			if !hasSlash {
				if strings.HasPrefix(id, providerPart) {
					out = append(out, id+"/")
				}
				continue
			}
			if id != providerPart {
				continue
			}
			for _, m := range p.ModelList() {
				if strings.HasPrefix(m.ID, modelPart) {
					out = append(out, id+"/"+m.ID+"\t"+m.Name)
				}
			}
		}
		if !hasSlash {
			return out, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}
