package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const toggleWarning = `
WARNING: This will disconnect and reconnect your DoubleZero tunnel
   to measure latencies in both states.
   This may interrupt validator or RPC traffic temporarily.
`

// prompt asks on the terminal before the tunnel is toggled.
type prompt struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompt(in io.Reader, out io.Writer) *prompt {
	return &prompt{in: bufio.NewReader(in), out: out}
}

func (p *prompt) Confirm(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprint(p.out, toggleWarning)
	fmt.Fprint(p.out, "Proceed? [y/N]: ")
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		fmt.Fprintln(p.out, "Not toggling; measuring the current state only.")
		return false
	}
}
