package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Veraticus/useridle/pkg/interfaces"
)

// WrappedEnv is set in the child's environment to detect nested wrapping.
const WrappedEnv = "USERIDLE_WRAPPED"

// Manager runs the wrapped command and reports the user's input to an
// InputHandler.
type Manager struct {
	ptyManager   PTY
	inputHandler interfaces.InputHandler
	logger       *slog.Logger
	exitCode     int
	mu           sync.Mutex
	sigChan      chan os.Signal
	done         chan struct{}
}

// NewManager creates a process manager. onResize is called whenever the
// user's terminal is resized.
func NewManager(inputHandler interfaces.InputHandler, onResize func(), logger *slog.Logger) *Manager {
	return newManager(NewPTYManager(onResize, logger), inputHandler, logger)
}

func newManager(ptyManager PTY, inputHandler interfaces.InputHandler, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ptyManager:   ptyManager,
		inputHandler: inputHandler,
		logger:       logger,
		done:         make(chan struct{}),
	}
}

// Start starts the command and begins relaying I/O.
func (m *Manager) Start(command string, args []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if os.Getenv(WrappedEnv) == "1" {
		return fmt.Errorf("already wrapped by useridle")
	}

	env := append(os.Environ(), WrappedEnv+"=1")

	if err := m.ptyManager.Start(command, args, env); err != nil {
		return fmt.Errorf("failed to start process: %w", err)
	}

	go func() {
		var handler func([]byte)
		if m.inputHandler != nil {
			handler = m.inputHandler.HandleInput
		}
		if err := m.ptyManager.CopyIO(os.Stdin, os.Stdout, handler); err != nil {
			m.logger.Warn("I/O error", "error", err)
		}
	}()

	m.setupSignalForwarding()

	return nil
}

// Wait waits for the process to exit
func (m *Manager) Wait() error {
	err := m.ptyManager.Wait()

	m.mu.Lock()
	if state := m.ptyManager.ProcessState(); state != nil {
		m.exitCode = state.ExitCode()
	}
	m.mu.Unlock()

	_ = m.ptyManager.Stop()

	close(m.done)
	m.cleanupSignals()

	return err
}

// ExitCode returns the exit code of the process
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exitCode
}

func (m *Manager) setupSignalForwarding() {
	m.sigChan = make(chan os.Signal, 1)
	signal.Notify(m.sigChan,
		syscall.SIGTERM,
		syscall.SIGHUP,
		syscall.SIGQUIT,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
	)

	go m.forwardSignals(m.sigChan)
}

func (m *Manager) forwardSignals(sigChan <-chan os.Signal) {
	for {
		select {
		case sig := <-sigChan:
			if proc := m.ptyManager.Process(); proc != nil {
				if err := proc.Signal(sig); err != nil && !errors.Is(err, os.ErrProcessDone) {
					m.logger.Debug("signal forward error", "signal", sig, "error", err)
				}
			}
		case <-m.done:
			return
		}
	}
}

func (m *Manager) cleanupSignals() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sigChan != nil {
		signal.Stop(m.sigChan)
		m.sigChan = nil
	}
}

// Stop restores the terminal and asks the child to terminate.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_ = m.ptyManager.Stop()

	if proc := m.ptyManager.Process(); proc != nil {
		if err := proc.Signal(syscall.SIGTERM); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return proc.Kill()
		}
	}

	return nil
}
