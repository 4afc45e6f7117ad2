package dvf

import (
	"bufio"
	"io"
	"strings"
)

const peekWindow = 64 * 1024

// peekReader lets the loader inspect the header line for delimiter
// sniffing without consuming it from the stream.
type peekReader struct {
	*bufio.Reader
}

func newPeekReader(r io.Reader) *peekReader {
	return &peekReader{bufio.NewReaderSize(r, peekWindow)}
}

// PeekLine returns the first line of the stream (without consuming it),
// or whatever fits in the buffer when the line is longer.
func (p *peekReader) PeekLine() (string, error) {
	buf, err := p.Peek(peekWindow)
	if len(buf) == 0 {
		if err == nil || err == io.EOF {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}
	line := string(buf)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return line, nil
}
