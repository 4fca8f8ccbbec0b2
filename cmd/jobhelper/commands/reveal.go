package commands

import (
	"io"
	"sync"

	"github.com/fatih/color"

	"jobhelper/internal/session"
)

// revealPrinter streams reveal steps, coloring the Qn:/An: labels.
type revealPrinter struct {
	mu        sync.Mutex
	out       io.Writer
	lineStart bool
	label     *color.Color
	question  *color.Color
	answer    *color.Color
}

func newRevealPrinter(out io.Writer) *revealPrinter {
	return &revealPrinter{
		out:       out,
		lineStart: true,
		question:  color.New(color.FgCyan, color.Bold),
		answer:    color.New(color.FgGreen, color.Bold),
	}
}

// Print writes one step.
func (p *revealPrinter) Print(step session.Step) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.write(step.Chunk)
}

// PrintAll writes a fully revealed text.
func (p *revealPrinter) PrintAll(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range text {
		p.write(string(r))
	}
}

func (p *revealPrinter) write(chunk string) {
	switch {
	case chunk == "\n":
		p.label = nil
		p.lineStart = true
		io.WriteString(p.out, chunk)
		return
	case p.lineStart && chunk == "Q":
		p.label = p.question
	case p.lineStart && chunk == "A":
		p.label = p.answer
	}
	p.lineStart = false

	if p.label == nil {
		io.WriteString(p.out, chunk)
		return
	}
	p.label.Fprint(p.out, chunk)
	if chunk == ":" {
		p.label = nil
	}
}
