package repl

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
)

// driver reads one JSON request per line, executes it against a shared
// globals dict with stdout captured, and answers with one JSON line.
const driver = `import sys, json, io, contextlib
g = {"__name__": "__main__"}
out = sys.stdout
while True:
    line = sys.stdin.readline()
    if not line:
        break
    req = json.loads(line)
    buf = io.StringIO()
    err = None
    try:
        with contextlib.redirect_stdout(buf):
            exec(req["code"], g)
    except BaseException as e:
        err = repr(e)
    out.write(json.dumps({"output": buf.getvalue(), "error": err}) + "\n")
    out.flush()
`

// PythonOptions configures a Python session.
type PythonOptions struct {
	// Command is the interpreter (default "python3").
	Command string
	// Dir is the working directory of the interpreter.
	Dir string
	// Env replaces the environment when non-nil.
	Env []string
	// Timeout bounds a single execution (default 60s). The interpreter is
	// restarted after a timeout.
	Timeout time.Duration
	Logger  *slog.Logger
}

type request struct {
	Code string `json:"code"`
}

type response struct {
	Output string  `json:"output"`
	Error  *string `json:"error"`
}

// Python is a Session backed by a long-lived python3 subprocess. The process
// starts on first use and calls are serialized.
type Python struct {
	opts PythonOptions

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	id     string
	closed bool
}

// NewPython creates a Python session. No process is started until the first
// Execute.
func NewPython(opts PythonOptions) *Python {
	if opts.Command == "" {
		opts.Command = "python3"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Python{opts: opts}
}

func (p *Python) start() error {
	cmd := exec.Command(p.opts.Command, "-u", "-c", driver) //nolint:gosec // interpreter is configured, not user input
	cmd.Dir = p.opts.Dir
	if p.opts.Env != nil {
		cmd.Env = p.opts.Env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("repl: stdin: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("repl: stdout: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("repl: start %s: %w", p.opts.Command, err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stdout = bufio.NewReader(stdout)
	p.id = uuid.NewString()

	p.opts.Logger.Debug("repl: started", "session", p.id, "pid", cmd.Process.Pid)

	return nil
}

// stop kills the process. It is a no-op when nothing runs.
func (p *Python) stop() {
	if p.cmd == nil {
		return
	}

	_ = p.stdin.Close()
	_ = p.cmd.Process.Kill()
	_ = p.cmd.Wait()

	p.opts.Logger.Debug("repl: stopped", "session", p.id)

	p.cmd, p.stdin, p.stdout, p.id = nil, nil, nil, ""
}

// Execute implements Session.
func (p *Python) Execute(ctx context.Context, code string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return "", ErrClosed
	}

	if p.cmd == nil {
		if err := p.start(); err != nil {
			return "", err
		}
	}

	line, err := json.Marshal(request{Code: code})
	if err != nil {
		return "", fmt.Errorf("repl: encode: %w", err)
	}

	if _, err := p.stdin.Write(append(line, '\n')); err != nil {
		p.stop()
		return "", fmt.Errorf("repl: write: %w", err)
	}

	type result struct {
		line []byte
		err  error
	}

	done := make(chan result, 1)
	reader := p.stdout

	go func() {
		b, err := reader.ReadBytes('\n')
		done <- result{b, err}
	}()

	timer := time.NewTimer(p.opts.Timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		p.stop()
		return "", ctx.Err()
	case <-timer.C:
		p.stop()
		return "", fmt.Errorf("repl: execution timed out after %s", p.opts.Timeout)
	case r := <-done:
		if r.err != nil {
			p.stop()
			return "", fmt.Errorf("repl: interpreter exited: %w", r.err)
		}

		var resp response
		if err := json.Unmarshal(r.line, &resp); err != nil {
			p.stop()
			return "", fmt.Errorf("repl: decode: %w", err)
		}

		if resp.Error != nil {
			return resp.Output, &ExecError{Message: *resp.Error}
		}

		return resp.Output, nil
	}
}

// Reset implements Session. The next Execute starts a fresh interpreter.
func (p *Python) Reset(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	p.stop()

	return nil
}

// Close implements Session.
func (p *Python) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stop()
	p.closed = true

	return nil
}
