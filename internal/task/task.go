package task

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/anmitsu/go-shlex"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Runnable is an external unit of work that either completes or fails.
type Runnable interface {
	Name() string
	Execute(ctx context.Context) error
}

// Func adapts a plain function to Runnable.
type Func struct {
	TaskName string
	Fn       func(ctx context.Context) error
}

func (f Func) Name() string { return f.TaskName }

func (f Func) Execute(ctx context.Context) error { return f.Fn(ctx) }

// CommandTask runs an external command line as a child process.
type CommandTask struct {
	name string
	args []string
	dir  string
	log  zerolog.Logger
}

// NewCommandTask splits commandLine using POSIX shell quoting rules.
func NewCommandTask(name, commandLine, dir string, log zerolog.Logger) (*CommandTask, error) {
	args, err := shlex.Split(commandLine, true)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s command", name)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("%s command is empty", name)
	}

	return &CommandTask{
		name: name,
		args: args,
		dir:  dir,
		log:  log.With().Str("task", name).Logger(),
	}, nil
}

func (t *CommandTask) Name() string { return t.name }

// Args returns the parsed argv.
func (t *CommandTask) Args() []string { return append([]string(nil), t.args...) }

// Execute runs the command to completion. Output is forwarded line by line to
// the logger; a non-zero exit is an error. Cancelling ctx kills the process.
func (t *CommandTask) Execute(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, t.args[0], t.args[1:]...)
	cmd.Dir = t.dir

	stdout := newLineWriter(t.log, zerolog.InfoLevel, "stdout")
	stderr := newLineWriter(t.log, zerolog.WarnLevel, "stderr")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	t.log.Info().Strs("args", t.args).Str("dir", t.dir).Msg("Starting task")
	start := time.Now()
	err := cmd.Run()
	stdout.Flush()
	stderr.Flush()

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return errors.Wrapf(err, "%s exited with code %d", t.name, exitErr.ExitCode())
		}
		return errors.Wrapf(err, "run %s", t.name)
	}

	t.log.Info().Dur("duration", time.Since(start)).Msg("Task completed")
	return nil
}

// lineWriter logs each complete line written to it.
type lineWriter struct {
	mu     sync.Mutex
	log    zerolog.Logger
	level  zerolog.Level
	stream string
	buf    bytes.Buffer
}

func newLineWriter(log zerolog.Logger, level zerolog.Level, stream string) *lineWriter {
	return &lineWriter{log: log, level: level, stream: stream}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// incomplete line, keep it for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

// Flush logs any trailing partial line.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line string) {
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return
	}
	w.log.WithLevel(w.level).Str("stream", w.stream).Msg(line)
}
