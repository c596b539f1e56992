// Command genroproxyctl is the operator CLI: one command group per
// registered entity, plus serve/list/stop/restart/version over the
// instance directory tree.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/genrocorp/genroproxy/internal/cli"
	"github.com/genrocorp/genroproxy/internal/config"
	"github.com/genrocorp/genroproxy/internal/docgen"
	"github.com/genrocorp/genroproxy/internal/instanceconfig"
	"github.com/genrocorp/genroproxy/internal/proxy"
	"github.com/genrocorp/genroproxy/internal/supervisor"
	"github.com/spf13/cobra"
)

const appVersion = "0.1.0"

func main() {
	root := &cobra.Command{
		Use:           "genroproxyctl",
		Short:         "Operate genroproxy instances",
		SilenceErrors: true,
	}

	baseDir := root.PersistentFlags().String("base-dir", defaultBaseDir(), "directory holding named instance subdirectories")
	instanceFlag := root.PersistentFlags().String("instance", "", "instance name, overriding GPROXY_INSTANCE/.current")
	tenantFlag := root.PersistentFlags().String("tenant", "", "tenant id, overriding GPROXY_TENANT")

	root.AddCommand(versionCommand())
	root.AddCommand(serveCommand(baseDir))
	root.AddCommand(listCommand(baseDir))
	root.AddCommand(stopCommand(baseDir))
	root.AddCommand(restartCommand(baseDir))

	p := attachEntityGroups(root, baseDir, instanceFlag, tenantFlag)
	root.AddCommand(docsCommand(p))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(root, err))
	}
}

func exitCodeFor(root *cobra.Command, err error) int {
	if _, ok := err.(*resolutionError); ok {
		return 1
	}
	return cli.ExitCode(err)
}

func defaultBaseDir() string {
	if v := os.Getenv("GENRO_PROXY_BASE_DIR"); v != "" {
		return v
	}
	return "./instances"
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use: "version",
		RunE: func(c *cobra.Command, args []string) error {
			fmt.Printf("genroproxyctl %s\n", appVersion)
			return nil
		},
	}
}

func serveCommand(baseDir *string) *cobra.Command {
	var host string
	var port int
	var foreground bool

	cmd := &cobra.Command{
		Use:  "serve <name>",
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			sup := supervisor.New(*baseDir, serverBinaryPath())
			st, err := sup.Serve(args[0], host, port, !foreground)
			if err != nil {
				return err
			}
			if foreground && !st.Running {
				srv := exec.Command(serverBinaryPath(), "serve", args[0],
					"--host", st.Host,
					"--port", fmt.Sprintf("%d", st.Port),
					"--base-dir", *baseDir,
					"--foreground")
				srv.Stdin, srv.Stdout, srv.Stderr = os.Stdin, os.Stdout, os.Stderr
				return srv.Run()
			}
			fmt.Printf("instance %q running at %s (pid %d)\n", st.Name, st.URL, st.PID)
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host")
	cmd.Flags().IntVar(&port, "port", 0, "listen port")
	cmd.Flags().BoolVar(&foreground, "foreground", false, "run the server binary in the foreground instead of spawning it detached")
	return cmd
}

func listCommand(baseDir *string) *cobra.Command {
	return &cobra.Command{
		Use: "list",
		RunE: func(c *cobra.Command, args []string) error {
			sup := supervisor.New(*baseDir, "")
			all, err := sup.ListAll()
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Println("(no instances)")
				return nil
			}
			for _, st := range all {
				status := "stopped"
				if st.Running {
					status = fmt.Sprintf("running (pid %d, %s)", st.PID, st.URL)
				}
				fmt.Printf("%s\t%s\n", st.Name, status)
			}
			return nil
		},
	}
}

func stopCommand(baseDir *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:  "stop <name|*>",
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			sup := supervisor.New(*baseDir, "")
			return sup.Stop(args[0], force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send SIGKILL immediately instead of SIGTERM")
	return cmd
}

func restartCommand(baseDir *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:  "restart <name|*>",
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			sup := supervisor.New(*baseDir, "")
			if err := sup.Restart(args[0], force); err != nil {
				return err
			}
			fmt.Println("stopped; respawn with `serve` to bring it back up")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "send SIGKILL immediately instead of SIGTERM")
	return cmd
}

// attachEntityGroups resolves the active instance once at startup, before
// cobra parses flags. When no instance resolves it registers no entity
// groups and returns nil, so "serve", "list" and "version" still work with
// no instance configured at all.
func attachEntityGroups(root *cobra.Command, baseDir, instanceFlag, tenantFlag *string) *proxy.Proxy {
	var cached *proxy.Proxy
	load := func() (*proxy.Proxy, error) {
		if cached != nil {
			return cached, nil
		}
		explicit := *instanceFlag
		if explicit == "" {
			// The first load runs before cobra parses flags, so --instance
			// is also read from the raw command line.
			for i, a := range os.Args[1:] {
				if a == "--instance" && i+2 < len(os.Args) {
					explicit = os.Args[i+2]
				} else if strings.HasPrefix(a, "--instance=") {
					explicit = strings.TrimPrefix(a, "--instance=")
				}
			}
		}
		name, err := resolveInstance(*baseDir, explicit)
		if err != nil {
			return nil, err
		}
		cfgPath := filepath.Join(*baseDir, name, "config.ini")
		icfg, err := instanceconfig.Load(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("load instance %q config: %w", name, err)
		}
		cfg := config.Config{
			DatabaseURL: icfg.DBPath,
			Instance:    icfg.ServerName,
			Host:        icfg.Host,
			Port:        icfg.Port,
			AdminToken:  icfg.AdminToken,
		}
		p, err := proxy.New(cfg)
		if err != nil {
			return nil, err
		}
		cached = p
		return p, nil
	}

	resolver := &cliResolver{baseDir: baseDir, instanceFlag: instanceFlag, tenantFlag: tenantFlag, load: load}

	// Entity groups need the registry/endpoints ahead of Execute, but
	// those only exist once an instance is resolved. Build a proxy for
	// whichever instance GPROXY_INSTANCE/--instance/.current/auto-select
	// finds at startup and register its groups. If none is resolvable
	// yet, genroproxyctl still runs (e.g. `serve`, `list`); entity groups
	// are simply absent until an instance exists.
	p, err := load()
	if err != nil {
		return nil
	}
	cli.Build(root, p.Registry, p.Endpoints, resolver, func(entityName, methodName string, params map[string]interface{}, result interface{}, invokeErr error) {
		p.AuditCLI(entityName, methodName, params, result, invokeErr)
	})
	return p
}

// docsCommand exposes a machine-readable description of every registered
// entity's exposed methods. p is nil when no instance could be resolved at
// startup; the command then reports that rather than panicking.
func docsCommand(p *proxy.Proxy) *cobra.Command {
	var metaPath string
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Print an OpenAPI-shaped description of the active instance's entities",
		RunE: func(c *cobra.Command, args []string) error {
			if p == nil {
				return fmt.Errorf("no instance resolved: pass --instance, set GPROXY_INSTANCE, or write <base-dir>/.current")
			}
			info, err := docgen.LoadInfo(metaPath)
			if err != nil {
				return err
			}
			doc := docgen.Generate(p.Registry, p.Endpoints, info, proxy.AdminOnly)
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(doc)
		},
	}
	cmd.Flags().StringVar(&metaPath, "meta", "", "path to a TOML file with title/version/description overrides")
	return cmd
}

type cliResolver struct {
	baseDir, instanceFlag, tenantFlag *string
	load                              func() (*proxy.Proxy, error)
}

func (r *cliResolver) ResolveInstance(explicit string) (string, error) {
	return resolveInstance(*r.baseDir, explicit)
}

func (r *cliResolver) ResolveTenant(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if *r.tenantFlag != "" {
		return *r.tenantFlag, nil
	}
	if v := os.Getenv("GPROXY_TENANT"); v != "" {
		return v, nil
	}
	return "", &resolutionError{"no tenant resolved: pass --tenant or set GPROXY_TENANT"}
}

func (r *cliResolver) CallerToken() (string, bool) {
	p, err := r.load()
	if err != nil {
		return "", false
	}
	return p.Config.AdminToken, p.Config.AdminToken != ""
}

// resolveInstance implements the (instance) half of the context
// resolution priority order: explicit flag → GPROXY_INSTANCE →
// <base-dir>/.current → auto-select if exactly one instance exists.
func resolveInstance(baseDir, explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	if v := os.Getenv("GPROXY_INSTANCE"); v != "" {
		return v, nil
	}
	if data, err := os.ReadFile(filepath.Join(baseDir, ".current")); err == nil {
		if name := strings.TrimSpace(string(data)); name != "" {
			return name, nil
		}
	}

	sup := supervisor.New(baseDir, "")
	all, err := sup.ListAll()
	if err != nil {
		return "", err
	}
	if len(all) == 1 {
		return all[0].Name, nil
	}

	names := make([]string, len(all))
	for i, st := range all {
		names[i] = st.Name
	}
	return "", &resolutionError{fmt.Sprintf("no instance resolved: pass --instance, set GPROXY_INSTANCE, or write %s/.current (candidates: %s)", baseDir, strings.Join(names, ", "))}
}

type resolutionError struct{ msg string }

func (e *resolutionError) Error() string { return e.msg }

// serverBinaryPath resolves the genroproxyd binary path: a sibling of
// this executable in the same directory, falling back to a bare name
// resolved via $PATH.
func serverBinaryPath() string {
	exe, err := os.Executable()
	if err != nil {
		return "genroproxyd"
	}
	return filepath.Join(filepath.Dir(exe), "genroproxyd")
}
