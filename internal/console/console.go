// Package console implements the firmware debug console sink.
//
// The console is a legacy serial/VGA text device: it expects CRLF line
// endings and the IBM Code Page 437 character set. NewWriter adapts UTF-8
// log text to that form; runes with no CP437 encoding are replaced by the
// code page's substitute byte instead of failing the write.
package console

import (
	"io"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// NewWriter returns a writer that converts "\n" to "\r\n" and encodes text to
// Code Page 437 before passing it to w. Close flushes any buffered partial
// rune; it does not close w.
func NewWriter(w io.Writer) io.WriteCloser {
	enc := encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder())
	return transform.NewWriter(w, transform.Chain(&crlf{}, enc))
}

// Encode converts s to console bytes in one shot.
func Encode(s string) ([]byte, error) {
	enc := encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder())
	out, _, err := transform.Bytes(transform.Chain(&crlf{}, enc), []byte(s))
	return out, err
}

// crlf expands bare line feeds into carriage return + line feed. prevCR
// remembers a carriage return that ended the previous source chunk, so a
// CRLF split across writes is passed through unchanged.
type crlf struct {
	prevCR bool
}

func (t *crlf) Reset() { t.prevCR = false }

func (t *crlf) Transform(dst, src []byte, _ bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c == '\n' && !t.prevCR {
			if nDst+2 > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = '\r'
			dst[nDst+1] = '\n'
			nDst += 2
		} else {
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
		}
		t.prevCR = c == '\r'
		nSrc++
	}
	return nDst, nSrc, nil
}
