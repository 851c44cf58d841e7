// Copyright © 2024 The ELPS authors

package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "elpsclosure"

// Result is the outcome of probing one library.  Name is empty when the
// library loaded but declares no name.  Err is set when it failed to load.
type Result struct {
	Path string `json:"path"`
	Name string `json:"name,omitempty"`
	Err  string `json:"error,omitempty"`
}

// Prober opens libraries and reports their declared names.  Probe returns one
// result per path, in order.  An error means no library could be probed.
type Prober interface {
	Probe(ctx context.Context, paths []string) ([]Result, error)
}

// LoadBased identifies libraries by the name they declare when loaded.
// Libraries that fail to load are dropped.  A library without a declared
// name is identified by its file name.
type LoadBased struct {
	Prober Prober
	Logger *log.Logger
	Tracer trace.Tracer
}

var _ Strategy = (*LoadBased)(nil)

func (s *LoadBased) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}

func (s *LoadBased) tracer() trace.Tracer {
	if s.Tracer != nil {
		return s.Tracer
	}
	return otel.GetTracerProvider().Tracer(tracerName)
}

// Dedupe implements Strategy.  When the prober fails entirely every path is
// dropped and the failure is logged.
func (s *LoadBased) Dedupe(ctx context.Context, paths []string) []string {
	ctx, span := s.tracer().Start(ctx, "identity.LoadBased.Dedupe",
		trace.WithAttributes(attribute.Int("elpsclosure.candidates", len(paths))))
	defer span.End()
	if len(paths) == 0 {
		return nil
	}
	results, err := s.Prober.Probe(ctx, paths)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger().Error("unable to probe libraries", "err", err)
		return nil
	}
	var out []string
	seen := make(map[string]bool, len(results))
	for _, res := range results {
		if res.Err != "" {
			s.logger().Debug("library failed to load", "path", res.Path, "err", res.Err)
			continue
		}
		key := NormalizeName(res.Name)
		if key == "" {
			key = NormalizeName(filepath.Base(res.Path))
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, res.Path)
	}
	span.SetAttributes(attribute.Int("elpsclosure.libraries", len(out)))
	return out
}

// WorkerCommand is the hidden CLI command serving ProcessProber requests.
const WorkerCommand = "identify"

// DefaultWaitDelay bounds how long a worker may linger after its context
// ends or its output is closed.
const DefaultWaitDelay = 5 * time.Second

// ProcessProber probes libraries in a child process so that loading a
// library never affects the calling process.  The child runs ServeWorker.
type ProcessProber struct {
	// Path is the worker executable.  When empty the running executable is
	// used with the arguments {WorkerCommand}.
	Path string
	Args []string
	// Env is the worker environment.  Nil inherits the current environment.
	Env       []string
	WaitDelay time.Duration
	// Stderr receives the worker's diagnostics.  Nil discards them.
	Stderr io.Writer
}

var _ Prober = (*ProcessProber)(nil)

type workerRequest struct {
	Paths []string `json:"paths"`
}

type workerResponse struct {
	Results []Result `json:"results"`
}

// Probe implements Prober.  The worker is started for this call only and is
// killed when ctx ends.
func (p *ProcessProber) Probe(ctx context.Context, paths []string) ([]Result, error) {
	exe, args := p.Path, p.Args
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("locate identify worker: %w", err)
		}
		args = []string{WorkerCommand}
	}
	req, err := json.Marshal(workerRequest{Paths: paths})
	if err != nil {
		return nil, err
	}
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, exe, args...) //nolint:gosec // worker is this executable
	cmd.Stdin = bytes.NewReader(req)
	cmd.Stdout = &stdout
	cmd.Stderr = p.Stderr
	cmd.Env = p.Env
	cmd.WaitDelay = p.WaitDelay
	if cmd.WaitDelay == 0 {
		cmd.WaitDelay = DefaultWaitDelay
	}
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("identify worker: %w", err)
	}
	var resp workerResponse
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("identify worker response: %w", err)
	}
	if len(resp.Results) != len(paths) {
		return nil, fmt.Errorf("identify worker returned %d results for %d libraries", len(resp.Results), len(paths))
	}
	for i := range resp.Results {
		if resp.Results[i].Path != paths[i] {
			return nil, fmt.Errorf("identify worker result %d is for %q, not %q", i, resp.Results[i].Path, paths[i])
		}
	}
	return resp.Results, nil
}

// ServeWorker answers one probe request read from r, writing the response to
// w.  Every library is inspected independently; a library that cannot be
// read yields a result carrying the error.
func ServeWorker(r io.Reader, w io.Writer) error {
	var req workerRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return fmt.Errorf("identify request: %w", err)
	}
	resp := workerResponse{Results: make([]Result, len(req.Paths))}
	for i, path := range req.Paths {
		resp.Results[i].Path = path
		name, err := ReadName(path)
		switch {
		case errors.Is(err, ErrNoName):
		case err != nil:
			resp.Results[i].Err = err.Error()
		default:
			resp.Results[i].Name = name
		}
	}
	return json.NewEncoder(w).Encode(resp)
}
