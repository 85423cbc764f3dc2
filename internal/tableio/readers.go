package tableio

// readers.go wraps upload streams so decoding never sees a BOM, invalid
// UTF-8 or more bytes than the configured limit.
//
//   - bomReader: drops a leading UTF-8 BOM (0xEF 0xBB 0xBF)
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?'
//   - countingReader: counts bytes and fails past a limit

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader skips the UTF-8 byte order mark that Excel and other Windows
// programs prepend to CSV exports.
type bomReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: bufio.NewReader(r)}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		if head, err := b.r.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

const sanitizeChunk = 32 * 1024

// utf8Sanitizer replaces each invalid UTF-8 byte with '?'. The replacement
// is one byte so output never grows, and a multi-byte sequence split across
// reads is held back until the rest arrives.
type utf8Sanitizer struct {
	r       io.Reader
	buf     []byte
	pending []byte
	out     []byte
	err     error
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{
		r:       r,
		buf:     make([]byte, sanitizeChunk+utf8.UTFMax),
		pending: make([]byte, 0, utf8.UTFMax),
	}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for len(s.out) == 0 {
		if s.err != nil {
			return 0, s.err
		}
		s.fill()
	}
	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

func (s *utf8Sanitizer) fill() {
	offset := copy(s.buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(s.buf[offset : offset+sanitizeChunk])
	data := s.buf[:offset+n]
	s.err = err

	keep := 0
	if err == nil {
		keep = incompleteTrailingBytes(data)
	}
	s.pending = append(s.pending, data[len(data)-keep:]...)
	data = data[:len(data)-keep]

	if isAllASCII(data) || utf8.Valid(data) {
		s.out = data
		return
	}
	s.out = data[:sanitizeUTF8(data)]
}

// isAllASCII is the fast path; most CSV data is plain ASCII.
func isAllASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// sanitizeUTF8 rewrites data in place and returns the new length.
func sanitizeUTF8(data []byte) int {
	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// incompleteTrailingBytes returns how many bytes at the end of data start a
// multi-byte sequence that is not yet complete.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= 3 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < runeLen(b) {
				return i
			}
			return 0
		}
		// Anything but a continuation byte ends the search.
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

// runeLen returns the sequence length announced by a leading byte.
func runeLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	}
	return 4
}

// countingReader tracks bytes read and fails with ErrFileTooLarge once more
// than limit bytes have been read. A limit <= 0 disables the check.
type countingReader struct {
	r     io.Reader
	n     int64
	limit int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	if c.limit > 0 && c.n > c.limit {
		return n, ErrFileTooLarge
	}
	return n, err
}
