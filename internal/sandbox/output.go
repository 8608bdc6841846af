package sandbox

import "strings"

// outputSink collects everything a snippet writes, up to limit bytes, and
// forwards each accepted chunk to onChunk.
type outputSink struct {
	buf       strings.Builder
	limit     int
	truncated bool
	onChunk   func(string)
}

func (w *outputSink) WriteString(s string) (int, error) {
	n := len(s)
	if w.limit > 0 {
		remaining := w.limit - w.buf.Len()
		if remaining <= 0 {
			w.truncated = true
			return n, nil
		}
		if len(s) > remaining {
			// Report all bytes as consumed to avoid short write errors.
			s = s[:remaining]
			w.truncated = true
		}
	}
	w.buf.WriteString(s)
	if w.onChunk != nil && s != "" {
		w.onChunk(s)
	}
	return n, nil
}

func (w *outputSink) Write(p []byte) (int, error) {
	return w.WriteString(string(p))
}

func (w *outputSink) String() string {
	return w.buf.String()
}
