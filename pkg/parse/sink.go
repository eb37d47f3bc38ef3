package parse

import (
	"io"

	"gopkg.in/yaml.v3"
)

// Sink consumes builders produced by a Parser. Push is called once per
// discovered entry; an error aborts the parse.
//
// Implementations decide the per-record failure policy. The sinks in this
// package finalize the builder and fail on the first validation error.
type Sink interface {
	Push(b *Builder) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(b *Builder) error

// Push calls f(b).
func (f SinkFunc) Push(b *Builder) error { return f(b) }

// Accumulator collects finalized records in push order.
type Accumulator struct {
	Records []Record
}

// Push finalizes b and appends the record. On validation failure nothing is
// appended and the error is returned.
func (a *Accumulator) Push(b *Builder) error {
	rec, err := b.Finalize()
	if err != nil {
		return err
	}
	a.Records = append(a.Records, rec)
	return nil
}

// NullSink finalizes and discards records, for validate-only runs.
type NullSink struct{}

// Push finalizes b and drops the result.
func (NullSink) Push(b *Builder) error {
	_, err := b.Finalize()
	return err
}

// Counter counts push attempts, successful or not, and forwards each
// builder to Next.
type Counter struct {
	Count int
	Next  Sink
}

// NewCounter returns a Counter wrapping next. A nil next counts into a
// [NullSink].
func NewCounter(next Sink) *Counter {
	if next == nil {
		next = NullSink{}
	}
	return &Counter{Next: next}
}

// Push increments Count and delegates to Next.
func (c *Counter) Push(b *Builder) error {
	c.Count++
	return c.Next.Push(b)
}

// Dumper writes each finalized record as a YAML document. It is meant for
// diagnostics, not for machine consumption.
type Dumper struct {
	enc *yaml.Encoder
}

// NewDumper returns a Dumper writing to w. Call Close to flush.
func NewDumper(w io.Writer) *Dumper {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return &Dumper{enc: enc}
}

// Push finalizes b and writes the record.
func (d *Dumper) Push(b *Builder) error {
	rec, err := b.Finalize()
	if err != nil {
		return err
	}
	return d.enc.Encode(rec)
}

// Close flushes buffered output.
func (d *Dumper) Close() error { return d.enc.Close() }
