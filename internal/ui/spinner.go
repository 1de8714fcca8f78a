package ui

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// Spinner draws a single-line progress indicator while the CLI blocks on
// device capture or the network. It is used before the room view starts.
type Spinner struct {
	out      io.Writer
	spinner  spinner.Spinner
	interval time.Duration
	done     chan struct{}
	stopOnce sync.Once
	finished chan struct{}

	mu      sync.Mutex
	message string
	started bool
}

// NewSpinner creates a spinner for local work such as opening devices.
func NewSpinner(message string) *Spinner {
	return newSpinner(os.Stdout, message, spinner.Dot, 80*time.Millisecond)
}

// NewConnectionSpinner creates a spinner for network waits.
func NewConnectionSpinner(message string) *Spinner {
	return newSpinner(os.Stdout, message, spinner.Globe, 180*time.Millisecond)
}

func newSpinner(out io.Writer, message string, s spinner.Spinner, interval time.Duration) *Spinner {
	return &Spinner{
		out:      out,
		spinner:  s,
		interval: interval,
		message:  message,
		done:     make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (s *Spinner) Start() {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	go func() {
		defer close(s.finished)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		frames := s.spinner.Frames
		for i := 0; ; i++ {
			frame := SpinnerStyle.Render(frames[i%len(frames)])
			fmt.Fprintf(s.out, "\r%s %s", frame, s.Message())

			select {
			case <-s.done:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears the line. It is safe to call more
// than once.
func (s *Spinner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		started := s.started
		s.mu.Unlock()
		if started {
			<-s.finished
		}
		fmt.Fprint(s.out, "\r\033[K")
	})
}

func (s *Spinner) Success(message string) {
	s.Stop()
	fmt.Fprintf(s.out, "%s %s\n", SuccessStyle.Render(IconSuccess), message)
}

func (s *Spinner) Error(message string) {
	s.Stop()
	fmt.Fprintf(s.out, "%s %s\n", ErrorStyle.Render(IconError), message)
}

func (s *Spinner) Message() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.message
}

func (s *Spinner) UpdateMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// RunSpinner starts a spinner and returns it; Stop, Success or Error end it.
func RunSpinner(message string) *Spinner {
	sp := NewSpinner(message)
	sp.Start()
	return sp
}

// RunConnectionSpinner starts a connection spinner and returns it.
func RunConnectionSpinner(message string) *Spinner {
	sp := NewConnectionSpinner(message)
	sp.Start()
	return sp
}
