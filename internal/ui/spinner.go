package ui

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Spinner animates a loading indicator on stderr while a blocking step
// (a wallet prompt, a receipt wait) runs.
type Spinner struct {
	out    io.Writer
	frames []string
	msg    chan string
	stop   chan struct{}
	done   chan struct{}
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(msg string) *Spinner {
	return NewSpinnerTo(os.Stderr, msg)
}

// NewSpinnerTo creates a spinner writing to out.
func NewSpinnerTo(out io.Writer, msg string) *Spinner {
	s := &Spinner{
		out:    out,
		frames: spinnerFrames,
		msg:    make(chan string, 1),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.msg <- msg
	return s
}

// Start begins the animation in a goroutine.
func (s *Spinner) Start() {
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		msg := ""
		for i := 0; ; i++ {
			select {
			case m := <-s.msg:
				msg = m
			default:
			}
			fmt.Fprintf(s.out, "\r%s  %-60s", StyleChain.Render(s.frames[i%len(s.frames)]), msg)

			select {
			case <-s.stop:
				fmt.Fprintf(s.out, "\r%-66s\r", "")
				return
			case <-ticker.C:
			}
		}
	}()
}

// Update replaces the message shown next to the spinner.
func (s *Spinner) Update(msg string) {
	select {
	case <-s.msg:
	default:
	}
	s.msg <- msg
}

// Stop halts the spinner and waits for the line to clear.
func (s *Spinner) Stop() {
	close(s.stop)
	<-s.done
}

// StopWithMsg halts the spinner and prints a final line.
func (s *Spinner) StopWithMsg(msg string) {
	s.Stop()
	fmt.Fprintln(s.out, msg)
}
