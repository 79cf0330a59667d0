package fastimport

import (
	"bufio"
	"io"
)

// byteReader is the buffered, line-and-length-aware reader described in
// spec.md §4.1. It never decodes characters; the unit is always the
// byte. A single line of lookahead ("current line") is cached by the
// parser, not here — this type only ever reads forward.
type byteReader struct {
	r *bufio.Reader
}

func newByteReader(r io.Reader) *byteReader {
	return &byteReader{r: bufio.NewReaderSize(r, 64*1024)}
}

// readLine returns the next newline-terminated chunk, terminator
// included. At EOF with no more data it returns an empty slice and
// io.EOF. A final line lacking a trailing newline is returned as-is
// with a nil error (bufio.Reader.ReadBytes reports io.EOF alongside
// it; this method drops that error).
func (b *byteReader) readLine() ([]byte, error) {
	line, err := b.r.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return nil, err
	}
	if err != nil && err != io.EOF {
		return nil, err
	}
	return line, nil
}

// readExact reads exactly n bytes, or returns io.ReadFull's error
// (io.EOF or io.ErrUnexpectedEOF) if the input ends first.
func (b *byteReader) readExact(n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
