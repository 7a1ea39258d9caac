package linesource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/klipprompt/internal/logging"
)

// DefaultDevice is the pseudo-terminal Klipper creates for host software
const DefaultDevice = "/tmp/printer"

// maxLineLength bounds a single firmware line
const maxLineLength = 64 * 1024

// ErrReadOnly is logged when a script is sent to a port without a writer
var ErrReadOnly = errors.New("line source is read-only")

// Port reads firmware output line by line and writes G-code back. Each
// command is acknowledged when the firmware answers with "ok", in order.
type Port struct {
	r      io.Reader
	w      io.Writer
	closer io.Closer

	writeMu sync.Mutex

	mu   sync.Mutex
	acks []*pendingAck
}

// pendingAck is one script awaiting its "ok"
type pendingAck struct {
	fn func()
}

// New creates a port over r and w. w may be nil for a read-only source
// such as a recorded console log.
func New(r io.Reader, w io.Writer) *Port {
	p := &Port{r: r, w: w}
	if c, ok := r.(io.Closer); ok {
		p.closer = c
	}
	return p
}

// Open opens a serial device or Klipper's pseudo-terminal for reading and writing.
func Open(path string) (*Port, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return New(f, f), nil
}

// Run delivers each line to handler until EOF, a read error, or ctx is
// cancelled. EOF returns nil.
func (p *Port) Run(ctx context.Context, handler func(line string)) error {
	done := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(p.r)
		scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
		for scanner.Scan() {
			line := scanner.Text()
			if isAck(line) {
				p.ack()
			}
			if handler != nil {
				handler(line)
			}
		}
		done <- scanner.Err()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		_ = p.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
			logging.Warn("Line source reader did not stop after close")
		}
		return ctx.Err()
	}
}

// Send writes script followed by a newline. onAck runs when the matching
// "ok" arrives.
func (p *Port) Send(script string, onAck func()) {
	if p.w == nil {
		logging.Warn("Dropping script", zap.String("script", script), zap.Error(ErrReadOnly))
		return
	}

	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	// Queue the ack before writing so a fast "ok" cannot overtake it
	entry := &pendingAck{fn: onAck}
	p.mu.Lock()
	p.acks = append(p.acks, entry)
	p.mu.Unlock()

	if _, err := io.WriteString(p.w, script+"\n"); err != nil {
		p.forget(entry)
		logging.Error("Failed to write script", zap.String("script", script), zap.Error(err))
		return
	}
	logging.Debug("Script written", zap.String("script", script))
}

func (p *Port) ack() {
	p.mu.Lock()
	if len(p.acks) == 0 {
		p.mu.Unlock()
		return
	}
	entry := p.acks[0]
	p.acks = p.acks[1:]
	p.mu.Unlock()

	if entry.fn != nil {
		entry.fn()
	}
}

// forget drops entry from the queue. The reader may already have consumed
// it with an "ok" that raced the failed write.
func (p *Port) forget(entry *pendingAck) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, e := range p.acks {
		if e == entry {
			p.acks = append(p.acks[:i], p.acks[i+1:]...)
			return
		}
	}
}

// Pending returns the number of scripts awaiting acknowledgement
func (p *Port) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.acks)
}

// Close closes the underlying device
func (p *Port) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer.Close()
}

func isAck(line string) bool {
	line = strings.TrimSpace(line)
	return line == "ok" || strings.HasPrefix(line, "ok ")
}
