package agent

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"
)

// Wrapper manages the gemini CLI subprocess behind the backend. It
// prefers ACP mode, a persistent JSON-RPC conversation over the child's
// stdio, and falls back to one-shot non-interactive invocations when ACP
// cannot be established.
type Wrapper struct {
	mu        sync.Mutex
	bin       string
	logger    *zap.Logger
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    io.ReadCloser
	reader    *bufio.Reader
	model     string
	reqID     int
	sessionID string
	useACP    bool
}

// NewWrapper builds an agent wrapper around the named gemini binary.
func NewWrapper(bin string, logger *zap.Logger) *Wrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Wrapper{bin: bin, logger: logger, useACP: true}
}

// Start (re)launches the agent for the given model, killing any previous
// subprocess. A failed ACP launch is not fatal: the wrapper degrades to
// one-shot mode.
func (w *Wrapper) Start(model string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.killLocked()

	w.model = model
	w.reqID = 0
	w.sessionID = ""

	if !w.useACP {
		return nil
	}
	return w.startACPLocked(model)
}

func (w *Wrapper) startACPLocked(model string) error {
	w.cmd = exec.Command(w.bin, "--experimental-acp", "--model", model)
	w.cmd.Stderr = os.Stderr

	var err error
	if w.stdin, err = w.cmd.StdinPipe(); err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if w.stdout, err = w.cmd.StdoutPipe(); err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	w.reader = bufio.NewReader(w.stdout)

	if err := w.cmd.Start(); err != nil {
		w.useACP = false
		w.cmd = nil
		w.logger.Warn("acp launch failed, degrading to one-shot mode", zap.Error(err))
		return nil
	}

	w.logger.Info("started gemini agent in acp mode",
		zap.String("model", model),
		zap.Int("pid", w.cmd.Process.Pid))

	if err := w.initializeLocked(); err != nil {
		w.logger.Warn("acp initialize failed, degrading to one-shot mode", zap.Error(err))
		w.killLocked()
		w.useACP = false
		return nil
	}
	return nil
}

// Chat sends prompt through whichever mode is live and returns the reply.
func (w *Wrapper) Chat(prompt string) (string, error) {
	if w.RunningACP() {
		return w.chatACP(prompt)
	}
	return w.chatSimple(prompt)
}

// Stop kills the subprocess if one is running.
func (w *Wrapper) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.killLocked()
}

func (w *Wrapper) killLocked() {
	if w.cmd != nil && w.cmd.Process != nil {
		_ = w.cmd.Process.Kill()
		_ = w.cmd.Wait()
		w.logger.Info("stopped gemini agent")
	}
	w.cmd = nil
}

// RunningACP reports whether a live ACP subprocess is attached.
func (w *Wrapper) RunningACP() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.useACP && w.cmd != nil && w.cmd.Process != nil
}

// Model returns the model the agent was last started with.
func (w *Wrapper) Model() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.model
}

// Mode reports "acp" or "simple" for status displays.
func (w *Wrapper) Mode() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.useACP && w.cmd != nil {
		return "acp"
	}
	return "simple"
}

// BuildPrompt folds a context bundle into the user message the way the
// extension always has.
func BuildPrompt(message, contextBundle string) string {
	if contextBundle == "" {
		return message
	}
	return fmt.Sprintf("Page content:\n\n%s\n\n---\n\nUser question: %s", contextBundle, message)
}
