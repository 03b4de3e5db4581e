// Package sse reads and writes text/event-stream frames.
package sse

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Event is one dispatched server-sent event.
type Event struct {
	ID    string
	Name  string
	Data  []byte
	Retry int // milliseconds, 0 when absent
}

// Type returns the event name, defaulting to "message".
func (e Event) Type() string {
	if e.Name == "" {
		return "message"
	}
	return e.Name
}

// Decoder splits a stream into events following the WHATWG framing rules:
// fields accumulate until a blank line, multiple data lines join with "\n",
// comment lines start with ':'.
type Decoder struct {
	r      *bufio.Reader
	lastID string
}

// DefaultMaxLine bounds a single line so a broken upstream cannot grow memory unbounded.
const DefaultMaxLine = 1 << 20

// NewDecoder wraps r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReaderSize(r, 64*1024)}
}

// Next blocks until a complete event is available. Events with no data
// lines are skipped, as browsers do.
func (d *Decoder) Next() (Event, error) {
	var (
		ev      Event
		data    bytes.Buffer
		hasData bool
	)
	for {
		line, err := d.readLine()
		if err != nil {
			return Event{}, err
		}
		if len(line) == 0 {
			if !hasData {
				ev = Event{}
				continue
			}
			ev.Data = bytes.TrimSuffix(data.Bytes(), []byte("\n"))
			if ev.ID == "" {
				ev.ID = d.lastID
			}
			return ev, nil
		}
		if line[0] == ':' {
			continue
		}
		field, value := splitField(line)
		switch field {
		case "event":
			ev.Name = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			hasData = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				ev.ID = value
				d.lastID = value
			}
		case "retry":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 {
				ev.Retry = n
			}
		}
	}
}

// LastEventID returns the most recent id field seen.
func (d *Decoder) LastEventID() string { return d.lastID }

func (d *Decoder) readLine() (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := d.r.ReadLine()
		if err != nil {
			return "", err
		}
		buf = append(buf, chunk...)
		if len(buf) > DefaultMaxLine {
			return "", fmt.Errorf("sse: line exceeds %d bytes", DefaultMaxLine)
		}
		if !isPrefix {
			return strings.TrimSuffix(string(buf), "\r"), nil
		}
	}
}

func splitField(line string) (string, string) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return line, ""
	}
	value := line[i+1:]
	value = strings.TrimPrefix(value, " ")
	return line[:i], value
}

// Encoder writes events to w, flushing after each one when w supports it.
type Encoder struct {
	w io.Writer
}

type flusher interface{ Flush() }

// NewEncoder wraps w.
func NewEncoder(w io.Writer) *Encoder { return &Encoder{w: w} }

// Encode writes a single event.
func (e *Encoder) Encode(ev Event) error {
	var b bytes.Buffer
	if ev.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", ev.ID)
	}
	if ev.Name != "" {
		fmt.Fprintf(&b, "event: %s\n", ev.Name)
	}
	if ev.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", ev.Retry)
	}
	for _, line := range bytes.Split(ev.Data, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	if _, err := e.w.Write(b.Bytes()); err != nil {
		return err
	}
	e.flush()
	return nil
}

// Comment writes a comment line, used as a keep-alive.
func (e *Encoder) Comment(text string) error {
	if _, err := fmt.Fprintf(e.w, ": %s\n\n", text); err != nil {
		return err
	}
	e.flush()
	return nil
}

func (e *Encoder) flush() {
	if f, ok := e.w.(flusher); ok {
		f.Flush()
	}
}
