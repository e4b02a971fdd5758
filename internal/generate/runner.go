package generate

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Runner runs the dataset generator: <Command> <Args...> --config <path>.
type Runner struct {
	Command string
	Args    []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env is appended to the process environment.
	Env []string
}

// NewRunner creates a Runner. An empty command selects "yourbench run".
func NewRunner(command string, args []string) *Runner {
	if command == "" {
		command = "yourbench"
		if len(args) == 0 {
			args = []string{"run"}
		}
	}
	return &Runner{Command: command, Args: args}
}

// Generate runs the generator against configPath and streams its output to
// the logger. A non-zero exit is returned as an error carrying the tail of
// stderr.
func (r *Runner) Generate(ctx context.Context, configPath string) error {
	args := append(append([]string{}, r.Args...), "--config", configPath)
	log := zap.L().With(zap.String("command", r.Command), zap.String("config", configPath))

	cmd := exec.CommandContext(ctx, r.Command, args...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	stdout := newLineLogger(log, "stdout", 0)
	stderr := newLineLogger(log, "stderr", stderrTail)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	log.Info("generate: starting", zap.Strings("args", args))
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()
	if err != nil {
		if tail := stderr.Tail(); tail != "" {
			return eris.Wrapf(err, "generate: %s failed: %s", r.Command, tail)
		}
		return eris.Wrapf(err, "generate: %s failed", r.Command)
	}
	log.Info("generate: completed")
	return nil
}

const stderrTail = 20

// lineLogger is an io.Writer that logs each complete line and remembers the
// last few.
type lineLogger struct {
	mu     sync.Mutex
	log    *zap.Logger
	stream string
	buf    bytes.Buffer
	keep   int
	tail   []string
}

func newLineLogger(log *zap.Logger, stream string, keep int) *lineLogger {
	return &lineLogger{log: log, stream: stream, keep: keep}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		i := bytes.IndexByte(l.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := string(l.buf.Next(i + 1))
		l.emit(strings.TrimRight(line, "\r\n"))
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len() > 0 {
		l.emit(strings.TrimRight(l.buf.String(), "\r\n"))
		l.buf.Reset()
	}
}

// Tail returns the remembered lines joined by newlines.
func (l *lineLogger) Tail() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.tail, "\n")
}

func (l *lineLogger) emit(line string) {
	if line == "" {
		return
	}
	l.log.Info("generate: output", zap.String("stream", l.stream), zap.String("line", line))
	if l.keep > 0 {
		l.tail = append(l.tail, line)
		if len(l.tail) > l.keep {
			l.tail = l.tail[len(l.tail)-l.keep:]
		}
	}
}
