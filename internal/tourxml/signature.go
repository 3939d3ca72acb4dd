package tourxml

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// DefaultSignatureWindow is how many leading bytes Sniff inspects by default.
const DefaultSignatureWindow = 512

var rootOpen = []byte("<mt")

// HasSignature reports whether head contains the opening of the export root
// element, "<mt" followed by whitespace, '>' or '/'.
func HasSignature(head []byte) bool {
	for i := 0; ; {
		j := bytes.Index(head[i:], rootOpen)
		if j < 0 {
			return false
		}
		end := i + j + len(rootOpen)
		if end >= len(head) {
			return false
		}
		switch head[end] {
		case ' ', '\t', '\r', '\n', '>', '/':
			return true
		}
		i = end
	}
}

// Sniff peeks at up to window bytes of r and checks them with HasSignature. The
// returned reader replays the peeked bytes, so callers keep reading from it.
func Sniff(r io.Reader, window int) (io.Reader, bool, error) {
	if window <= 0 {
		window = DefaultSignatureWindow
	}
	br := bufio.NewReaderSize(r, window)
	head, err := br.Peek(window)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return br, false, err
	}
	return br, HasSignature(head), nil
}
