package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/export"
)

// progressPrinter shows export progress. On a terminal it rewrites a single
// status line; elsewhere it prints one line per update.
type progressPrinter struct {
	w     io.Writer
	tty   bool
	width int
	last  int
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	p := &progressPrinter{w: w}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.tty = true
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			p.width = width
		}
	}
	return p
}

func (p *progressPrinter) update(pr export.Progress) {
	line := fmt.Sprintf("%-10s %s", pr.Stage, pr.Detail)
	if !p.tty {
		fmt.Fprintln(p.w, line)
		return
	}
	if p.width > 1 && len(line) >= p.width {
		line = line[:p.width-1]
	}
	fmt.Fprintf(p.w, "\r%-*s", p.last, line)
	p.last = len(line)
}

// done ends the status line.
func (p *progressPrinter) done() {
	if p.tty && p.last > 0 {
		fmt.Fprintln(p.w)
		p.last = 0
	}
}
