package process

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"sync"
	"syscall"

	"github.com/creack/pty"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// PTYManager runs a command in a pseudo-terminal and relays the user's
// terminal to it.
type PTYManager struct {
	cmd         *exec.Cmd
	pty         *os.File
	mu          sync.Mutex
	stopChan    chan struct{}
	wg          sync.WaitGroup
	restoreFunc func()
	onResize    func()
	logger      *slog.Logger
}

// Ensure PTYManager implements PTY
var _ PTY = (*PTYManager)(nil)

// NewPTYManager creates a new PTY manager. onResize, if set, is called
// after every SIGWINCH has been propagated to the child.
func NewPTYManager(onResize func(), logger *slog.Logger) *PTYManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &PTYManager{
		stopChan: make(chan struct{}),
		onResize: onResize,
		logger:   logger,
	}
}

// Start starts a process with PTY
func (p *PTYManager) Start(command string, args []string, env []string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("process already started")
	}

	p.cmd = exec.Command(command, args...)
	p.cmd.Env = env

	var err error
	p.pty, err = pty.Start(p.cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	// Some environments don't have a terminal to copy from.
	if err := p.copyTerminalSize(); err != nil {
		p.logger.Debug("failed to copy terminal size", "error", err)
	}

	p.wg.Add(1)
	go p.monitorTerminalSize()

	return nil
}

// GetPTY returns the PTY file descriptor
func (p *PTYManager) GetPTY() *os.File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pty
}

// Wait waits for the process to complete
func (p *PTYManager) Wait() error {
	if p.cmd == nil {
		return fmt.Errorf("process not started")
	}

	err := p.cmd.Wait()

	close(p.stopChan)
	p.wg.Wait()

	p.mu.Lock()
	if p.pty != nil {
		_ = p.pty.Close()
	}
	p.mu.Unlock()

	return err
}

// ProcessState returns the process state
func (p *PTYManager) ProcessState() *os.ProcessState {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.ProcessState
}

// Process returns the underlying process
func (p *PTYManager) Process() *os.Process {
	if p.cmd == nil {
		return nil
	}
	return p.cmd.Process
}

// Stop restores the terminal state if CopyIO put it in raw mode.
func (p *PTYManager) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.restoreFunc != nil {
		p.restoreFunc()
		p.restoreFunc = nil
	}

	return nil
}

func (p *PTYManager) copyTerminalSize() error {
	size, err := pty.GetsizeFull(os.Stdin)
	if err != nil {
		return err
	}
	return pty.Setsize(p.pty, size)
}

func (p *PTYManager) monitorTerminalSize() {
	defer p.wg.Done()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGWINCH)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			p.mu.Lock()
			if p.pty != nil {
				if err := p.copyTerminalSize(); err != nil {
					p.logger.Debug("failed to resize PTY", "error", err)
				}
			}
			p.mu.Unlock()

			if p.onResize != nil {
				p.onResize()
			}
		case <-p.stopChan:
			return
		}
	}
}

// CopyIO copies stdin to the PTY and the PTY to stdout until the child
// closes its side. Every chunk read from stdin is passed to inputHandler
// before it is forwarded. If stdin is a terminal it is put in raw mode for
// the duration of the copy.
func (p *PTYManager) CopyIO(stdin io.Reader, stdout io.Writer, inputHandler func([]byte)) error {
	p.mu.Lock()
	if p.pty == nil {
		p.mu.Unlock()
		return fmt.Errorf("PTY not initialized")
	}
	ptyFile := p.pty
	p.mu.Unlock()

	if file, ok := stdin.(*os.File); ok && isatty.IsTerminal(file.Fd()) {
		fd := int(file.Fd())
		if state, err := term.MakeRaw(fd); err == nil {
			p.mu.Lock()
			p.restoreFunc = func() { _ = term.Restore(fd, state) }
			p.mu.Unlock()
			defer func() { _ = p.Stop() }()
		} else {
			p.logger.Debug("failed to set raw mode", "error", err)
		}
	}

	in := stdin
	if inputHandler != nil {
		in = &inputReader{reader: stdin, handler: inputHandler}
	}

	// stdin is not waited for: a read on a terminal blocks until the next
	// keystroke, long after the child has exited.
	go func() {
		if _, err := io.Copy(ptyFile, in); err != nil {
			p.logger.Debug("stdin copy ended", "error", err)
		}
	}()

	if _, err := io.Copy(stdout, ptyFile); err != nil && !isPTYClosed(err) {
		return fmt.Errorf("stdout copy error: %w", err)
	}
	return nil
}

// isPTYClosed reports whether err is the EIO Linux returns when reading a
// PTY whose child has exited.
func isPTYClosed(err error) bool {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return errors.Is(pathErr.Err, syscall.EIO)
	}
	return false
}

// inputReader passes every chunk it reads to handler.
type inputReader struct {
	reader  io.Reader
	handler func([]byte)
}

func (r *inputReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.handler(p[:n])
	}
	return n, err
}
