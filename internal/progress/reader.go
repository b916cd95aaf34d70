package progress

import "io"

// CountingReader reports the cumulative number of bytes read from the
// wrapped reader. The part executors wrap request bodies with it so bytes
// are counted as they leave for the destination.
type CountingReader struct {
	r      io.Reader
	sent   int64
	report func(sent int64)
}

// NewCountingReader wraps r; report is invoked with the running total after
// every non-empty read.
func NewCountingReader(r io.Reader, report func(sent int64)) *CountingReader {
	return &CountingReader{r: r, report: report}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.sent += int64(n)
		if c.report != nil {
			c.report(c.sent)
		}
	}
	return n, err
}
