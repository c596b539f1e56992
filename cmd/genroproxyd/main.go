// Command genroproxyd is the server binary: it loads configuration, wires
// a Proxy, syncs the schema, and serves the HTTP surface until a
// termination signal arrives.
//
// Invoked two ways: bare (reads GENRO_PROXY_* env vars directly, for ad
// hoc/direct runs) or as "genroproxyd serve <name> --host h --port p
// --base-dir d --foreground" (the form internal/supervisor.Serve spawns, reading the
// named instance's config.ini instead of the environment).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/genrocorp/genroproxy/internal/config"
	"github.com/genrocorp/genroproxy/internal/instanceconfig"
	"github.com/genrocorp/genroproxy/internal/proxy"
	"github.com/genrocorp/genroproxy/internal/supervisor"
)

const appVersion = "0.1.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "serve" {
		runServeSubcommand(os.Args[2:])
		return
	}

	uiDir := flag.String("ui-dir", "", "optional static UI bundle directory mounted at /ui")
	versionFlg := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlg {
		fmt.Printf("genroproxyd %s\n", appVersion)
		return
	}

	cfg, err := config.FromEnv(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "genroproxyd: load config:", err)
		os.Exit(1)
	}
	run(cfg, "", "", *uiDir)
}

// runServeSubcommand handles the named-instance invocation form: it loads
// <base-dir>/<name>/config.ini (written by internal/supervisor.Serve
// before spawning this process) rather than the environment.
func runServeSubcommand(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	host := fs.String("host", "", "listen host override")
	port := fs.Int("port", 0, "listen port override")
	baseDir := fs.String("base-dir", ".", "base directory holding the named instance subdirectory")
	uiDir := fs.String("ui-dir", "", "optional static UI bundle directory mounted at /ui")
	_ = fs.Bool("foreground", true, "accepted for symmetry with the spawn invocation; this process always runs in the foreground")

	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "genroproxyd serve: missing instance name")
		os.Exit(1)
	}
	name := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		os.Exit(1)
	}

	cfgPath := filepath.Join(*baseDir, name, "config.ini")
	icfg, err := instanceconfig.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "genroproxyd: load instance config:", err)
		os.Exit(1)
	}

	cfg := config.Config{
		DatabaseURL: icfg.DBPath,
		Instance:    icfg.ServerName,
		Host:        icfg.Host,
		Port:        icfg.Port,
		AdminToken:  icfg.AdminToken,
	}
	if *host != "" {
		cfg.Host = *host
	}
	if *port != 0 {
		cfg.Port = *port
	}

	run(cfg, name, *baseDir, *uiDir)
}

func run(cfg config.Config, pidName, pidBaseDir, uiDir string) {
	p, err := proxy.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "genroproxyd: build proxy:", err)
		os.Exit(1)
	}
	if uiDir != "" {
		p.HTTP.MountUI(uiDir)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := p.CheckStructure(ctx); err != nil {
		cancel()
		p.Log.Error("schema sync failed", "err", err)
		os.Exit(1)
	}
	cancel()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{Addr: addr, Handler: p.HTTP.Handler()}

	if pidName != "" {
		sup := supervisor.New(pidBaseDir, "")
		_ = sup.WritePID(pidName, supervisor.PIDFile{
			PID:       os.Getpid(),
			Port:      cfg.Port,
			Host:      cfg.Host,
			StartedAt: time.Now().UTC().Format(time.RFC3339),
		})
		defer sup.RemovePID(pidName)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		p.Log.Info("shutdown signal received")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	p.Log.Info("listening", "addr", addr, "instance", cfg.Instance)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		p.Log.Error("server error", "err", err)
		os.Exit(1)
	}
}
