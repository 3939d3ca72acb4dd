// Package tourxml turns a tour export document into a flat stream of scope events.
package tourxml

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"

	"github.com/muktihari/xmltokenizer"
)

// Kind tags an Event.
type Kind int

const (
	EnterScope Kind = iota + 1
	LeafText
	ExitScope
)

func (k Kind) String() string {
	switch k {
	case EnterScope:
		return "enter"
	case LeafText:
		return "text"
	case ExitScope:
		return "exit"
	}
	return "unknown"
}

// Event is one step of the scope stream. Attrs is only set on EnterScope, Text only
// on LeafText. Names are local names with any namespace prefix removed.
type Event struct {
	Kind  Kind
	Name  string
	Attrs map[string]string
	Text  string
}

var (
	// ErrUnbalanced reports an end tag that does not close the innermost open scope.
	ErrUnbalanced = errors.New("unbalanced scope")
	// ErrTruncated reports a stream that ended while scopes were still open.
	ErrTruncated = errors.New("stream ended inside an open scope")
)

// Reader yields Events from an XML document. It is not safe for concurrent use.
type Reader struct {
	tok     *xmltokenizer.Tokenizer
	stack   []string
	pending []Event
}

func NewReader(r io.Reader) *Reader {
	return &Reader{tok: xmltokenizer.New(r)}
}

// Depth is the number of currently open scopes.
func (r *Reader) Depth() int { return len(r.stack) }

// Next returns the next event. It returns io.EOF once the document is complete and
// every scope has been closed.
func (r *Reader) Next() (Event, error) {
	for len(r.pending) == 0 {
		if err := r.fill(); err != nil {
			return Event{}, err
		}
	}
	ev := r.pending[0]
	r.pending = r.pending[1:]
	return ev, nil
}

func (r *Reader) fill() error {
	token, err := r.tok.Token()
	if err == io.EOF {
		if len(r.stack) > 0 {
			return fmt.Errorf("%w: %q still open", ErrTruncated, r.stack[len(r.stack)-1])
		}
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("read token: %w", err)
	}
	if len(token.Name.Full) == 0 {
		return nil
	}
	switch token.Name.Full[0] {
	case '?', '!':
		return nil
	}

	name := localName(token.Name.Local, token.Name.Full)
	if token.IsEndElement {
		return r.close(name)
	}

	attrs := make(map[string]string, len(token.Attrs))
	for i := range token.Attrs {
		a := &token.Attrs[i]
		attrs[localName(a.Name.Local, a.Name.Full)] = decode(a.Value)
	}
	r.pending = append(r.pending, Event{Kind: EnterScope, Name: name, Attrs: attrs})
	r.stack = append(r.stack, name)

	if token.SelfClosing {
		return r.close(name)
	}
	if len(bytes.TrimSpace(token.Data)) > 0 {
		r.pending = append(r.pending, Event{Kind: LeafText, Name: name, Text: decode(token.Data)})
	}
	return nil
}

func (r *Reader) close(name string) error {
	if len(r.stack) == 0 {
		return fmt.Errorf("%w: </%s> without open scope", ErrUnbalanced, name)
	}
	top := r.stack[len(r.stack)-1]
	if top != name {
		return fmt.Errorf("%w: </%s> closes <%s>", ErrUnbalanced, name, top)
	}
	r.stack = r.stack[:len(r.stack)-1]
	r.pending = append(r.pending, Event{Kind: ExitScope, Name: name})
	return nil
}

// localName copies the tokenizer's reused buffers and strips the end marker and
// any namespace prefix.
func localName(local, full []byte) string {
	b := local
	if len(b) == 0 {
		b = full
	}
	b = bytes.TrimPrefix(b, []byte("/"))
	if i := bytes.LastIndexByte(b, ':'); i >= 0 {
		b = b[i+1:]
	}
	return string(b)
}

var (
	cdataOpen  = []byte("<![CDATA[")
	cdataClose = []byte("]]>")
)

func decode(b []byte) string {
	trimmed := bytes.TrimSpace(b)
	if bytes.HasPrefix(trimmed, cdataOpen) && bytes.HasSuffix(trimmed, cdataClose) {
		return string(trimmed[len(cdataOpen) : len(trimmed)-len(cdataClose)])
	}
	if bytes.IndexByte(b, '&') < 0 {
		return string(b)
	}
	return html.UnescapeString(string(b))
}
