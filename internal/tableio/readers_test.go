package tableio

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"testing/iotest"
)

func TestBOMReader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"file with BOM", append([]byte{0xEF, 0xBB, 0xBF}, "hello,world"...), "hello,world"},
		{"file without BOM", []byte("hello,world"), "hello,world"},
		{"empty file", []byte{}, ""},
		{"only BOM", []byte{0xEF, 0xBB, 0xBF}, ""},
		{"partial BOM at start", []byte{0xEF, 0xBB, 'a'}, string([]byte{0xEF, 0xBB, 'a'})},
		{"short file", []byte("a"), "a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(newBOMReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"valid ASCII", []byte("hello,world"), "hello,world"},
		{"valid multibyte", []byte("café,naïve"), "café,naïve"},
		{"invalid byte replaced", []byte{'h', 'e', 0x80, 'l', 'o'}, "he?lo"},
		{"truncated sequence at EOF", []byte{'a', 0xC3}, "a?"},
		{"empty input", []byte{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := io.ReadAll(newUTF8Sanitizer(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("got %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestUTF8Sanitizer_SplitAcrossReads(t *testing.T) {
	input := []byte("é€𝄞 ok")
	result, err := io.ReadAll(newUTF8Sanitizer(iotest.OneByteReader(bytes.NewReader(input))))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result) != string(input) {
		t.Errorf("got %q, want %q", result, input)
	}
}

func TestCountingReader(t *testing.T) {
	cr := &countingReader{r: bytes.NewReader([]byte("12345")), limit: 10}
	if _, err := io.ReadAll(cr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cr.n != 5 {
		t.Errorf("n = %d, want 5", cr.n)
	}

	cr = &countingReader{r: bytes.NewReader([]byte("12345")), limit: 3}
	if _, err := io.ReadAll(cr); !errors.Is(err, ErrFileTooLarge) {
		t.Errorf("err = %v, want ErrFileTooLarge", err)
	}
}

func TestIncompleteTrailingBytes(t *testing.T) {
	tests := []struct {
		data []byte
		want int
	}{
		{[]byte("abc"), 0},
		{[]byte{'a', 0xC3}, 1},
		{[]byte{'a', 0xE2, 0x82}, 2},
		{[]byte{'a', 0xE2, 0x82, 0xAC}, 0},
		{[]byte{0xF0, 0x9D, 0x84}, 3},
	}
	for _, tt := range tests {
		if got := incompleteTrailingBytes(tt.data); got != tt.want {
			t.Errorf("incompleteTrailingBytes(% x) = %d, want %d", tt.data, got, tt.want)
		}
	}
}
