// Package cli implements the CLI command factory: one cobra subcommand
// group per entity, one subcommand per CLI-exposed method, argument
// mapping from the method's parameter descriptors, and table/key-value
// rendering of results.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/endpoint"
	"github.com/genrocorp/genroproxy/internal/registry"
	"github.com/spf13/cobra"
)

// ContextResolver resolves the active (instance, tenant) pair and the
// caller's token/admin state for a CLI invocation.
type ContextResolver interface {
	ResolveInstance(explicit string) (string, error)
	ResolveTenant(explicit string) (string, error)
	CallerToken() (token string, isAdmin bool)
}

// OnInvoked, if set, runs after every method call a built CLI command
// dispatches, used by the composition layer to append a command-log
// entry on the same terms as the HTTP surface's httpapi.Server.OnInvoked.
type OnInvoked func(entityName, methodName string, params map[string]interface{}, result interface{}, err error)

// Build attaches one command group per registry entity to root, dispatching
// every CLI-exposed method through ep.Invoke. onInvoked may be nil.
func Build(root *cobra.Command, reg *registry.Registry, endpoints map[string]*endpoint.Base, resolver ContextResolver, onInvoked OnInvoked) {
	for _, e := range reg.Entities() {
		ep, ok := endpoints[e.Name]
		if !ok {
			continue
		}
		root.AddCommand(entityGroup(e.Name, ep, resolver, onInvoked))
	}
}

func entityGroup(name string, ep *endpoint.Base, resolver ContextResolver, onInvoked OnInvoked) *cobra.Command {
	group := &cobra.Command{
		Use:   name,
		Short: fmt.Sprintf("Manage %s", name),
	}
	for _, m := range ep.Methods() {
		if !ep.IsAvailable(m.Name, endpoint.ChannelCLI) {
			continue
		}
		group.AddCommand(methodCommand(name, ep, m, resolver, onInvoked))
	}
	return group
}

func dashName(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '_' {
			out = append(out, '-')
		} else {
			out = append(out, name[i])
		}
	}
	return string(out)
}

// boolToggle is the --flag/--no-flag pair registered for one boolean
// parameter, since cobra has no built-in negated-flag convention.
type boolToggle struct {
	set   *bool
	unset *bool
}

func addBoolToggle(cmd *cobra.Command, p endpoint.Param) *boolToggle {
	def, _ := p.Default.(bool)
	return &boolToggle{
		set:   cmd.Flags().Bool(p.Name, def, ""),
		unset: cmd.Flags().Bool("no-"+p.Name, false, fmt.Sprintf("unset --%s", p.Name)),
	}
}

// choiceValue is a pflag.Value restricting a string flag to p.Choices,
// so an invalid value is rejected at flag-parse time rather than at
// invoke time.
type choiceValue struct {
	value   string
	choices []string
}

func (c *choiceValue) String() string { return c.value }

func (c *choiceValue) Set(s string) error {
	if !contains(c.choices, s) {
		return fmt.Errorf("must be one of %v", c.choices)
	}
	c.value = s
	return nil
}

func (c *choiceValue) Type() string { return "string" }

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func methodCommand(entityName string, ep *endpoint.Base, m endpoint.Method, resolver ContextResolver, onInvoked OnInvoked) *cobra.Command {
	cmd := &cobra.Command{
		Use: dashName(m.Name),
	}

	strFlags := map[string]*string{}
	boolFlags := map[string]*boolToggle{}
	var positionalTenant *string

	for _, p := range m.Params {
		if p.Name == "tenant_id" && p.Required {
			v := ""
			positionalTenant = &v
			continue
		}
		if p.Required {
			continue // positionals below, assigned via cmd.Args in RunE
		}
		if p.Type == endpoint.ParamBool {
			boolFlags[p.Name] = addBoolToggle(cmd, p)
			continue
		}
		def := ""
		if p.Default != nil {
			def = fmt.Sprintf("%v", p.Default)
		}
		if len(p.Choices) > 0 {
			cv := &choiceValue{value: def, choices: p.Choices}
			cmd.Flags().Var(cv, p.Name, fmt.Sprintf("one of %v", p.Choices))
			strFlags[p.Name] = &cv.value
			continue
		}
		strFlags[p.Name] = cmd.Flags().String(p.Name, def, "")
	}

	requiredPositionals := make([]endpoint.Param, 0)
	for _, p := range m.Params {
		if p.Required && p.Name != "tenant_id" {
			requiredPositionals = append(requiredPositionals, p)
		}
	}

	cmd.Args = cobra.MaximumNArgs(len(requiredPositionals))
	cmd.RunE = func(c *cobra.Command, args []string) error {
		params := map[string]interface{}{}

		for i, p := range requiredPositionals {
			if i < len(args) {
				params[p.Name] = args[i]
			}
		}
		for name, val := range strFlags {
			if c.Flags().Changed(name) {
				params[name] = *val
			}
		}
		for name, t := range boolFlags {
			switch {
			case c.Flags().Changed("no-" + name):
				params[name] = false
			case c.Flags().Changed(name):
				params[name] = *t.set
			}
		}

		if positionalTenant != nil {
			tid, err := resolver.ResolveTenant(*positionalTenant)
			if err != nil {
				return err
			}
			params["tenant_id"] = tid
		}

		token, isAdmin := resolver.CallerToken()
		result, err := ep.Invoke(context.Background(), m.Name, params, token, isAdmin)
		if onInvoked != nil {
			onInvoked(entityName, m.Name, params, result, err)
		}
		if err != nil {
			c.SilenceUsage = true
			return err
		}
		render(result)
		return nil
	}
	return cmd
}

func render(result interface{}) {
	switch v := result.(type) {
	case []map[string]interface{}:
		renderTable(v)
	case map[string]interface{}:
		renderKV(v)
	default:
		b, _ := json.MarshalIndent(v, "", "  ")
		fmt.Println(string(b))
	}
}

func renderTable(rows []map[string]interface{}) {
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return
	}
	cols := make([]string, 0, len(rows[0]))
	for c := range rows[0] {
		cols = append(cols, c)
	}
	for _, c := range cols {
		fmt.Printf("%s\t", c)
	}
	fmt.Println()
	for _, row := range rows {
		for _, c := range cols {
			fmt.Printf("%v\t", row[c])
		}
		fmt.Println()
	}
}

func renderKV(rec map[string]interface{}) {
	for k, v := range rec {
		fmt.Printf("%s: %v\n", k, v)
	}
}

// ExitCode maps an invocation error to the CLI process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return apperr.ExitCode(apperr.KindOf(err))
}
