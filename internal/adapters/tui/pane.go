package tui

import (
	"bytes"
	"sync"

	"github.com/vito/midterm"
)

// Pane holds the output of one task in a virtual terminal and tracks the
// visible window over it. Escape sequences from esbuild and sass are
// interpreted rather than printed.
type Pane struct {
	mu     sync.Mutex
	term   *midterm.Terminal
	buf    bytes.Buffer
	offset int
	height int
	width  int
}

// NewPane creates an empty pane.
func NewPane() *Pane {
	return &Pane{term: midterm.NewAutoResizingTerminal()}
}

// Write implements io.Writer. A pane scrolled to the bottom stays there.
func (p *Pane) Write(data []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	atBottom := p.offset >= p.maxOffset()
	n, err := p.term.Write(data)
	if atBottom {
		p.offset = p.maxOffset()
	}
	return n, err
}

// Resize sets the visible size of the pane.
func (p *Pane) Resize(width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.width = max(width, 1)
	p.term.ResizeX(p.width)

	atBottom := p.offset >= p.maxOffset()
	p.height = max(height, 1)
	if atBottom {
		p.offset = p.maxOffset()
	}
	p.clamp()
}

// Scroll moves the visible window for a navigation key and reports whether
// the key was handled.
func (p *Pane) Scroll(key string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch key {
	case "pgup":
		p.offset -= p.height
	case "pgdown":
		p.offset += p.height
	case "home", "g":
		p.offset = 0
	case "end", "G":
		p.offset = p.maxOffset()
	default:
		return false
	}
	p.clamp()
	return true
}

// Lines returns the number of lines written so far.
func (p *Pane) Lines() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.term.UsedHeight()
}

// View renders the visible window.
func (p *Pane) View() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clamp()
	p.buf.Reset()
	for i := range p.height {
		row := p.offset + i
		if row >= p.term.UsedHeight() {
			break
		}
		if i > 0 {
			_ = p.buf.WriteByte('\n')
		}
		_ = p.term.RenderLine(&p.buf, row)
	}
	return p.buf.String()
}

func (p *Pane) clamp() {
	p.offset = min(max(p.offset, 0), p.maxOffset())
}

func (p *Pane) maxOffset() int {
	return max(p.term.UsedHeight()-p.height, 0)
}
