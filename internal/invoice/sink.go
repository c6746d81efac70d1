package invoice

import "io"

// Sink is an output destination that remembers whether any bytes reached it.
// Once started, a sink cannot be rolled back and callers must treat a later
// error as a truncated document.
type Sink struct {
	w       io.Writer
	onStart func()
	started bool
	written int64
}

// NewSink wraps w. onStart, when set, runs once right before the first byte is written.
func NewSink(w io.Writer, onStart func()) *Sink {
	return &Sink{w: w, onStart: onStart}
}

func (s *Sink) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if !s.started {
		s.started = true
		if s.onStart != nil {
			s.onStart()
		}
	}
	n, err := s.w.Write(p)
	s.written += int64(n)
	return n, err
}

// Started reports whether output has begun.
func (s *Sink) Started() bool { return s.started }

// Written returns the number of bytes delivered to the underlying writer.
func (s *Sink) Written() int64 { return s.written }
