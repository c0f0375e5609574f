package procstream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Maximum number of diagnostic lines logged per read while the process is
// still running. Once the process has finished all pending lines are logged.
const maxPendingLines = 256

// Longest diagnostic line kept; longer lines are cut and marked.
const maxLineLength = 1024 * 1024

// Appended to a diagnostic line that was cut.
const truncatedSuffix = " [truncated]"

// Lifecycle state of a [Stream].
type State int

const (
	Running  State = iota // Primary channel still open.
	Draining              // Primary channel exhausted, waiting for the exit status.
	Finished              // Exit status known.
)

// Returns the name of the state.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Reports the exit status of a process once its output has been consumed.
type WaitFunc func() (int, error)

// Output of one external command, consumed as an [io.Reader].
//
// Reads return bytes from the command's primary channel. Lines arriving on
// the diagnostic channel are logged at debug level as reads progress. When the
// primary channel is exhausted the stream waits for the command to exit; from
// then on reads return [io.EOF] if it exited with zero, or a
// [*CommandFailedError] otherwise.
//
// A Stream is owned by a single reader and is not safe for concurrent reads.
type Stream struct {
	argv    []string
	name    string
	primary io.Reader
	wait    WaitFunc
	log     *slog.Logger

	mu       sync.Mutex
	pending  []string
	diagDone chan struct{}

	state State
	code  int
	err   error
}

// Spawns a command and returns a stream over its standard output.
//
// Standard error is treated as the diagnostic channel.
func Start(ctx context.Context, log *slog.Logger, argv ...string) (*Stream, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrStart)
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStart, err)
	}

	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	log.Debug("spawning command", "argv", argv)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrStart, argv[0], err)
	}

	return New(argv, stdout, stderr, func() (int, error) {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		if err != nil {
			return -1, err
		}
		return 0, nil
	}, log), nil
}

// Wraps an already running process.
//
// The diagnostic reader may be nil. The wait function is called exactly once,
// after the primary reader has returned [io.EOF] and the diagnostic reader
// has been fully consumed.
func New(argv []string, primary, diagnostic io.Reader, wait WaitFunc, log *slog.Logger) *Stream {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	s := &Stream{
		argv:    argv,
		primary: primary,
		wait:    wait,
		log:     log,
		state:   Running,
	}
	if len(argv) > 0 {
		s.name = filepath.Base(argv[0])
	}

	if diagnostic != nil {
		s.diagDone = make(chan struct{})
		go s.pump(diagnostic)
	}

	return s
}

// Collects diagnostic lines until the channel is closed.
//
// Lines are queued without bound so that a chatty diagnostic channel cannot
// block the process while the owner is reading the primary channel. Lines
// longer than maxLineLength are cut and marked; the rest of such a line is
// still read and discarded so the channel never stalls.
func (s *Stream) pump(r io.Reader) {
	defer close(s.diagDone)

	br := bufio.NewReaderSize(r, 64*1024)
	var line []byte
	truncated := false

	for {
		frag, more, err := br.ReadLine()
		if err != nil {
			if len(line) > 0 {
				s.queue(line, truncated)
			}
			return
		}

		if room := maxLineLength - len(line); len(frag) > room {
			frag = frag[:room]
			truncated = true
		}
		line = append(line, frag...)
		if more {
			continue
		}

		s.queue(line, truncated)
		line, truncated = line[:0], false
	}
}

// Appends a diagnostic line to the pending queue.
func (s *Stream) queue(line []byte, truncated bool) {
	text := string(line)
	if truncated {
		text += truncatedSuffix
	}
	s.mu.Lock()
	s.pending = append(s.pending, text)
	s.mu.Unlock()
}

// Implements [io.Reader].
func (s *Stream) Read(p []byte) (int, error) {
	if s.state == Finished {
		s.flush(-1)
		return 0, s.err
	}

	s.flush(maxPendingLines)

	n, err := s.primary.Read(p)
	if errors.Is(err, io.EOF) {
		s.finish()
		if n > 0 {
			return n, nil
		}
		return 0, s.err
	}
	return n, err
}

// Consumes any remaining output and waits for the process to exit.
//
// Returns nil if the process exited with zero, the failure otherwise.
func (s *Stream) Close() error {
	if s.state != Finished {
		io.Copy(io.Discard, s.primary)
		s.finish()
	}
	if errors.Is(s.err, io.EOF) {
		return nil
	}
	return s.err
}

// Returns the current lifecycle state.
func (s *Stream) State() State {
	return s.state
}

// Returns the exit code. Only meaningful once the stream is [Finished].
func (s *Stream) ExitCode() int {
	return s.code
}

// Returns the command line the stream was created for.
func (s *Stream) Argv() []string {
	return s.argv
}

// Transitions Running → Draining → Finished, recording the terminal error
// that subsequent reads return.
func (s *Stream) finish() {
	if s.state == Finished {
		return
	}
	s.state = Draining

	if s.diagDone != nil {
		<-s.diagDone
	}

	code, err := s.wait()
	s.state = Finished
	s.code = code
	s.flush(-1)

	switch {
	case err != nil:
		s.err = fmt.Errorf("%w: %s: %w", ErrWait, strings.Join(s.argv, " "), err)
	case code != 0:
		s.err = &CommandFailedError{Argv: s.argv, ExitCode: code}
	default:
		s.err = io.EOF
	}
}

// Logs up to limit pending diagnostic lines. A negative limit logs all.
func (s *Stream) flush(limit int) {
	s.mu.Lock()
	n := len(s.pending)
	if limit >= 0 && n > limit {
		n = limit
	}
	lines := s.pending[:n]
	s.pending = s.pending[n:]
	s.mu.Unlock()

	for _, line := range lines {
		s.log.Debug(s.name+"! "+line, "command", s.name)
	}
}
