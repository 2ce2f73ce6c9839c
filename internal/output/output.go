// Package output forwards reassembled sensor records to their consumer.
package output

import (
	"bytes"
	"context"
	"fmt"

	"firestige.xyz/hbtap/internal/config"
	"firestige.xyz/hbtap/internal/log"
	"firestige.xyz/hbtap/internal/metrics"
)

// Writer receives one complete record line at a time, without its line
// terminator.
type Writer interface {
	Name() string
	Write(ctx context.Context, line []byte) error
	Close() error
}

// Source yields ordered stream chunks. sniffer.Sniffer satisfies it.
type Source interface {
	ReadLine(ctx context.Context) ([]byte, bool)
}

// New builds the writer selected in cfg.
func New(cfg config.OutputConfig, logger log.Logger) (Writer, error) {
	switch cfg.Type {
	case config.OutputConsole, "":
		return NewConsole(nil), nil
	case config.OutputKafka:
		return NewKafka(cfg.Kafka, logger)
	default:
		return nil, fmt.Errorf("unknown output type %q", cfg.Type)
	}
}

// Pumper splits ordered chunks into records and forwards them to a Writer.
// A trailing partial line is carried across Pump calls and released only
// by Flush, so a record cut by a source switch stays whole.
type Pumper struct {
	w     Writer
	log   log.Logger
	split LineSplitter
}

// NewPumper returns a Pumper writing to w.
func NewPumper(w Writer, logger log.Logger) *Pumper {
	if logger == nil {
		logger = log.Discard()
	}
	return &Pumper{w: w, log: logger}
}

// Pump moves records from src until src is stopped or ctx ends.
func (p *Pumper) Pump(ctx context.Context, src Source) {
	for {
		chunk, ok := src.ReadLine(ctx)
		if !ok {
			return
		}
		p.Feed(ctx, chunk)
	}
}

// Feed writes every record completed by chunk. Write failures are counted
// and logged, not fatal.
func (p *Pumper) Feed(ctx context.Context, chunk []byte) {
	for _, line := range p.split.Feed(chunk) {
		p.emit(ctx, line)
	}
}

// Flush writes the buffered partial line, if any.
func (p *Pumper) Flush(ctx context.Context) {
	if rest := p.split.Flush(); len(rest) > 0 {
		p.emit(ctx, rest)
	}
}

func (p *Pumper) emit(ctx context.Context, line []byte) {
	if err := p.w.Write(ctx, line); err != nil {
		metrics.OutputErrorsTotal.WithLabelValues(p.w.Name()).Inc()
		p.log.WithError(err).Warn("record write failed")
		return
	}
	metrics.OutputRecordsTotal.WithLabelValues(p.w.Name()).Inc()
}

// LineSplitter reassembles text lines across chunk boundaries. The zero
// value is ready to use.
type LineSplitter struct {
	partial []byte
}

// Feed returns every line completed by chunk, with "\r\n" or "\n" removed.
// Empty lines are dropped.
func (s *LineSplitter) Feed(chunk []byte) [][]byte {
	var lines [][]byte
	data := chunk
	if len(s.partial) > 0 {
		data = append(s.partial, chunk...)
		s.partial = nil
	}
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			break
		}
		if line := bytes.TrimRight(data[:i], "\r"); len(line) > 0 {
			lines = append(lines, bytes.Clone(line))
		}
		data = data[i+1:]
	}
	if len(data) > 0 {
		s.partial = bytes.Clone(data)
	}
	return lines
}

// Flush returns the buffered partial line, if any.
func (s *LineSplitter) Flush() []byte {
	rest := bytes.TrimRight(s.partial, "\r")
	s.partial = nil
	return rest
}
