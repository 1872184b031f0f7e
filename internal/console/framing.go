package console

import (
	"bufio"
	"io"
)

// frameScanner extracts whole JSON objects from a byte stream by
// counting balanced braces starting from the first '{' seen, treating
// braces inside quoted strings as ordinary characters.
type frameScanner struct {
	r *bufio.Reader
}

func newFrameScanner(r io.Reader) *frameScanner {
	return &frameScanner{r: bufio.NewReader(r)}
}

// next blocks until one complete '{'...'}' object has been read,
// discarding any bytes before the opening brace.
func (s *frameScanner) next() ([]byte, error) {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b != '{' {
			continue
		}

		buf := []byte{b}
		depth := 1
		inString := false
		escaped := false
		for depth > 0 {
			c, err := s.r.ReadByte()
			if err != nil {
				return nil, err
			}
			buf = append(buf, c)

			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}

			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
			}
		}
		return buf, nil
	}
}
