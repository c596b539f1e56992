// Package supervisor implements per-instance process lifecycle: serve,
// list-all, stop, restart over a directory tree of named instances, each
// holding a config.ini, an embedded database file, and a PID file.
package supervisor

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/genrocorp/genroproxy/internal/apperr"
	"github.com/genrocorp/genroproxy/internal/crypto"
	"github.com/genrocorp/genroproxy/internal/instanceconfig"
)

// PIDFile is the JSON shape written to <instance>/server.pid.
type PIDFile struct {
	PID       int    `json:"pid"`
	Port      int    `json:"port"`
	Host      string `json:"host"`
	StartedAt string `json:"started_at"`
}

// Supervisor manages instance directories under BaseDir.
type Supervisor struct {
	BaseDir    string
	BinaryPath string // executable spawned in background mode
}

func New(baseDir, binaryPath string) *Supervisor {
	return &Supervisor{BaseDir: baseDir, BinaryPath: binaryPath}
}

func (s *Supervisor) instanceDir(name string) string { return filepath.Join(s.BaseDir, name) }
func (s *Supervisor) configPath(name string) string  { return filepath.Join(s.instanceDir(name), "config.ini") }
func (s *Supervisor) dbPath(name string) string      { return filepath.Join(s.instanceDir(name), "data.db") }
func (s *Supervisor) pidPath(name string) string     { return filepath.Join(s.instanceDir(name), "server.pid") }

// Status reports what is known about one instance.
type Status struct {
	Name    string
	Host    string
	Port    int
	Running bool
	PID     int
	URL     string
}

// Serve ensures the instance directory and config exist, and in
// background mode spawns the server process detached, waiting up to two
// seconds for the PID file to appear. In foreground mode it returns
// immediately after ensuring config; the caller (the server binary itself)
// is expected to be the process running in the foreground.
func (s *Supervisor) Serve(name, host string, port int, background bool) (Status, error) {
	if st, err := s.statusOf(name); err == nil && st.Running {
		return st, nil
	}

	dir := s.instanceDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Status{}, apperr.Unhandled("failed to create instance directory").WithCause(err)
	}

	cfgPath := s.configPath(name)
	if !instanceconfig.Exists(cfgPath) {
		cfg := instanceconfig.Config{
			ServerName: name,
			Host:       orDefault(host, "0.0.0.0"),
			Port:       orDefaultInt(port, 8080),
			DBPath:     s.dbPath(name),
		}
		token, err := crypto.GenerateAdminToken()
		if err != nil {
			return Status{}, apperr.Unhandled("failed to generate admin token").WithCause(err)
		}
		cfg.AdminToken = token
		if err := instanceconfig.Save(cfgPath, cfg); err != nil {
			return Status{}, apperr.Unhandled("failed to write config.ini").WithCause(err)
		}
		fmt.Printf("generated admin token for instance %q: %s\n", name, cfg.AdminToken)
	}

	cfg, err := instanceconfig.Load(cfgPath)
	if err != nil {
		return Status{}, apperr.Configuration("invalid instance config").WithCause(err)
	}
	if host != "" {
		cfg.Host = host
	}
	if port != 0 {
		cfg.Port = port
	}

	if !background {
		return Status{Name: name, Host: cfg.Host, Port: cfg.Port}, nil
	}

	cmd := exec.Command(s.BinaryPath, "serve", name,
		"--host", cfg.Host,
		"--port", fmt.Sprintf("%d", cfg.Port),
		"--base-dir", s.BaseDir,
		"--foreground")
	if err := cmd.Start(); err != nil {
		return Status{}, apperr.Unhandled("failed to spawn instance process").WithCause(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if pf, err := s.readPID(name); err == nil {
			return Status{Name: name, Host: pf.Host, Port: pf.Port, Running: true, PID: pf.PID, URL: instanceURL(pf.Host, pf.Port)}, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return Status{}, apperr.BackendUnavailable("instance did not report a PID file within two seconds")
}

// WritePID writes the server.pid file; called by the server binary itself
// once it has bound its listener.
func (s *Supervisor) WritePID(name string, pf PIDFile) error {
	b, err := json.Marshal(pf)
	if err != nil {
		return err
	}
	return os.WriteFile(s.pidPath(name), b, 0o644)
}

// RemovePID deletes the PID file; called on normal shutdown and after a
// confirmed stop.
func (s *Supervisor) RemovePID(name string) error {
	err := os.Remove(s.pidPath(name))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *Supervisor) readPID(name string) (PIDFile, error) {
	data, err := os.ReadFile(s.pidPath(name))
	if err != nil {
		return PIDFile{}, err
	}
	var pf PIDFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return PIDFile{}, err
	}
	return pf, nil
}

func (s *Supervisor) statusOf(name string) (Status, error) {
	pf, err := s.readPID(name)
	if err != nil {
		return Status{Name: name}, err
	}
	if !processAlive(pf.PID) {
		return Status{Name: name}, fmt.Errorf("stale pid file")
	}
	return Status{Name: name, Host: pf.Host, Port: pf.Port, Running: true, PID: pf.PID, URL: instanceURL(pf.Host, pf.Port)}, nil
}

// ListAll scans BaseDir for instance subdirectories (anything with a
// config.ini or data.db) and reports their status.
func (s *Supervisor) ListAll() ([]Status, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.Unhandled("failed to list instances").WithCause(err)
	}

	var out []Status
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !instanceconfig.Exists(s.configPath(name)) {
			if _, err := os.Stat(s.dbPath(name)); err != nil {
				continue
			}
		}
		st, err := s.statusOf(name)
		if err != nil {
			cfg, _ := instanceconfig.Load(s.configPath(name))
			st = Status{Name: name, Host: cfg.Host, Port: cfg.Port}
		}
		out = append(out, st)
	}
	return out, nil
}

// Stop sends SIGTERM (or SIGKILL when force), polls liveness at 100ms for
// up to five seconds, escalates to SIGKILL and polls once more, and always
// removes the PID file on confirmed death. name == "*" stops every
// currently running instance.
func (s *Supervisor) Stop(name string, force bool) error {
	if name == "*" {
		all, err := s.ListAll()
		if err != nil {
			return err
		}
		for _, st := range all {
			if st.Running {
				if err := s.stopOne(st.Name, force); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return s.stopOne(name, force)
}

func (s *Supervisor) stopOne(name string, force bool) error {
	pf, err := s.readPID(name)
	if err != nil {
		return nil // nothing running
	}

	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	_ = syscall.Kill(pf.PID, sig)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !processAlive(pf.PID) {
			return s.RemovePID(name)
		}
		time.Sleep(100 * time.Millisecond)
	}

	_ = syscall.Kill(pf.PID, syscall.SIGKILL)
	time.Sleep(100 * time.Millisecond)
	if processAlive(pf.PID) {
		return apperr.Unhandled(fmt.Sprintf("instance %q did not exit after SIGKILL", name))
	}
	return s.RemovePID(name)
}

// Restart stops the instance (or every instance for "*"). Respawning it
// needs a fresh process, so that remains the caller's responsibility.
func (s *Supervisor) Restart(name string, force bool) error {
	return s.Stop(name, force)
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}

func instanceURL(host string, port int) string {
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", host, port)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
