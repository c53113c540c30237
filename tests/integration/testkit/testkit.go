package testkit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/sha1n/cms-indexer/internal/app"
	"github.com/sha1n/cms-indexer/internal/source"
	"github.com/sha1n/cms-indexer/internal/source/sqlite"
	"github.com/spf13/pflag"
)

// Property names published by the services of this package
const (
	PropSourcePath = "source.path"
	PropBaseDir    = "index.base_dir"
	PropServerURL  = "server.url"
)

// Service is a test dependency that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	Name() string
}

// Env starts services in order and stops them in reverse order.
// Properties published by earlier services are visible to later ones.
type Env struct {
	services   []Service
	properties map[string]any
}

// NewEnv creates a test environment with the given services
func NewEnv(services ...Service) *Env {
	return &Env{services: services, properties: make(map[string]any)}
}

// Start starts every service and collects their properties
func (e *Env) Start() (map[string]any, error) {
	for _, s := range e.services {
		props, err := s.Start()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name(), err)
		}
		for k, v := range props {
			e.properties[k] = v
		}
	}
	return e.properties, nil
}

// Stop stops every service in reverse order and joins their errors
func (e *Env) Stop() error {
	var errs []error
	for i := len(e.services) - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.services[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Property returns a published property
func (e *Env) Property(name string) (any, bool) {
	val, ok := e.properties[name]
	return val, ok
}

// MustStart starts the environment and stops it when the test ends
func (e *Env) MustStart(t testing.TB) map[string]any {
	t.Helper()
	t.Cleanup(func() {
		if err := e.Stop(); err != nil {
			t.Errorf("Failed to stop test env: %v", err)
		}
	})
	props, err := e.Start()
	if err != nil {
		t.Fatalf("Failed to start test env: %v", err)
	}
	return props
}

// SeededSource is a sqlite source of record seeded from YAML fixtures
type SeededSource struct {
	Dir      string
	Fixtures string
}

// Name implements Service
func (s *SeededSource) Name() string { return "sqlite-source" }

// Start creates the database and imports the fixtures
func (s *SeededSource) Start() (map[string]any, error) {
	fixtures, err := source.ParseFixtures([]byte(s.Fixtures))
	if err != nil {
		return nil, err
	}

	path := filepath.Join(s.Dir, "source.db")
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	if err := store.Import(context.Background(), fixtures); err != nil {
		return nil, err
	}
	return map[string]any{PropSourcePath: path, PropBaseDir: s.Dir}, nil
}

// Stop implements Service; the database lives in a test temp dir
func (s *SeededSource) Stop() error { return nil }

// IndexerServer runs the indexer over SSE until stopped
type IndexerServer struct {
	Flags *pflag.FlagSet

	cancel context.CancelFunc
	done   chan error
}

// Name implements Service
func (s *IndexerServer) Name() string { return "indexer-server" }

// Start runs the server and waits for its health endpoint
func (s *IndexerServer) Start() (map[string]any, error) {
	host, _ := s.Flags.GetString("host")
	port, _ := s.Flags.GetInt("port")
	url := fmt.Sprintf("http://%s:%d", host, port)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan error, 1)
	go func() {
		s.done <- app.RunWithDeps(ctx, app.DefaultRunParams(), s.Flags, "test")
	}()

	if err := WaitForHealth(url+"/health", 10*time.Second, s.done); err != nil {
		cancel()
		return nil, err
	}
	return map[string]any{PropServerURL: url}, nil
}

// Stop cancels the server and waits for it to exit
func (s *IndexerServer) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case err := <-s.done:
		return err
	case <-time.After(10 * time.Second):
		return errors.New("server did not stop")
	}
}

// WaitForHealth polls url until it answers 200, the timeout expires or
// exited reports that the server gave up.
func WaitForHealth(url string, timeout time.Duration, exited <-chan error) error {
	deadline := time.Now().Add(timeout)
	for {
		resp, err := http.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case err := <-exited:
			return fmt.Errorf("server exited before becoming healthy: %w", err)
		default:
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s", url)
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// GetFreePort returns a free port from the kernel
func GetFreePort() (int, error) {
	return getFreePortWithAddr("localhost:0")
}

// MustGetFreePort returns a free port or fails the test
func MustGetFreePort(t testing.TB) int {
	t.Helper()
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	return port
}

func getFreePortWithAddr(addrStr string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", addrStr)
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	Port       int    // Uses free port if 0
	Transport  string // Defaults to "sse"
	AuthType   string // Defaults to "none"
	Host       string // Defaults to "localhost"
	BaseDir    string // Defaults to a test temp dir
	SourcePath string // Defaults to source.db under BaseDir
}

// NewTestFlags creates a configured pflag.FlagSet for testing
func NewTestFlags(t testing.TB, opts *FlagOptions) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterFlags(flags)

	o := FlagOptions{Transport: "sse", AuthType: "none", Host: "localhost"}
	if opts != nil {
		if opts.Port != 0 {
			o.Port = opts.Port
		}
		if opts.Transport != "" {
			o.Transport = opts.Transport
		}
		if opts.AuthType != "" {
			o.AuthType = opts.AuthType
		}
		if opts.Host != "" {
			o.Host = opts.Host
		}
		o.BaseDir = opts.BaseDir
		o.SourcePath = opts.SourcePath
	}

	if o.Port == 0 {
		o.Port = MustGetFreePort(t)
	}
	if o.BaseDir == "" {
		o.BaseDir = t.TempDir()
	}
	if o.SourcePath == "" {
		o.SourcePath = filepath.Join(o.BaseDir, "source.db")
	}

	_ = flags.Set("port", fmt.Sprintf("%d", o.Port))
	_ = flags.Set("transport", o.Transport)
	_ = flags.Set("auth-type", o.AuthType)
	_ = flags.Set("host", o.Host)
	_ = flags.Set("index-base-dir", o.BaseDir)
	_ = flags.Set("source-driver", "sqlite")
	_ = flags.Set("source-path", o.SourcePath)
	_ = flags.Set("log-level", "error")

	return flags
}
