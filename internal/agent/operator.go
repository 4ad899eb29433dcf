package agent

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
)

// Operator is the human at the terminal.
type Operator interface {
	// Prompt shows msg and waits for one line of input.
	Prompt(ctx context.Context, msg string) (string, error)
}

// ConsoleOperator reads answers line by line from an input stream. A single
// reader goroutine pumps lines so a prompt can be abandoned on cancellation.
type ConsoleOperator struct {
	in  io.Reader
	out io.Writer

	once  sync.Once
	lines chan string
}

func NewConsoleOperator(in io.Reader, out io.Writer) *ConsoleOperator {
	return &ConsoleOperator{in: in, out: out}
}

func (o *ConsoleOperator) start() {
	o.lines = make(chan string)
	go func() {
		defer close(o.lines)
		scanner := bufio.NewScanner(o.in)
		for scanner.Scan() {
			o.lines <- scanner.Text()
		}
	}()
}

// Prompt returns io.EOF once the input is exhausted.
func (o *ConsoleOperator) Prompt(ctx context.Context, msg string) (string, error) {
	o.once.Do(o.start)
	fmt.Fprint(o.out, msg)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-o.lines:
		if !ok {
			return "", io.EOF
		}
		return line, nil
	}
}
