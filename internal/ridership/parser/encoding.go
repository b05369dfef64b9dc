package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Encoding is one candidate text encoding tried by the resolver.
type Encoding struct {
	Name   string
	decode func(raw []byte) ([]byte, error)
}

var (
	// UTF8 accepts valid UTF-8 without a byte order mark.
	UTF8 = Encoding{Name: "utf-8", decode: decodeUTF8}
	// UTF8Sig accepts valid UTF-8 with an optional byte order mark, which is stripped.
	UTF8Sig = Encoding{Name: "utf-8-sig", decode: decodeUTF8Sig}
	Big5    = Encoding{Name: "big5", decode: decodeWith(traditionalchinese.Big5)}
	// CP950 is a fallback label only. It shares the Big5 decoder, whose index
	// already covers the CP950 double-byte range, so after Big5 in the default
	// order it never succeeds. It still reports "cp950" when listed on its own.
	CP950 = Encoding{Name: "cp950", decode: decodeWith(traditionalchinese.Big5)}
)

// DefaultEncodings is the resolver's priority order.
var DefaultEncodings = []Encoding{UTF8, UTF8Sig, Big5, CP950}

// Attempt records why one candidate encoding was rejected.
type Attempt struct {
	Encoding string
	Err      error
}

// DecodeError is returned when every candidate encoding failed.
type DecodeError struct {
	Attempts []Attempt
}

func (e *DecodeError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s: %v", a.Encoding, a.Err)
	}
	return "could not decode CSV with any candidate encoding (" + strings.Join(parts, "; ") + ")"
}

// Encodings lists the names that were tried, in order.
func (e *DecodeError) Encodings() []string {
	names := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		names[i] = a.Encoding
	}
	return names
}

func decodeUTF8(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, utf8BOM) {
		return nil, errors.New("input starts with a byte order mark")
	}
	if err := validUTF8(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func decodeUTF8Sig(raw []byte) ([]byte, error) {
	if err := validUTF8(raw); err != nil {
		return nil, err
	}
	out, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), raw)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func validUTF8(raw []byte) error {
	if utf8.Valid(raw) {
		return nil
	}
	for i := 0; i < len(raw); {
		r, size := utf8.DecodeRune(raw[i:])
		if r == utf8.RuneError && size <= 1 {
			return fmt.Errorf("invalid utf-8 byte 0x%02x at offset %d", raw[i], i)
		}
		i += size
	}
	return errors.New("invalid utf-8")
}

// decodeWith rejects inputs the decoder could only map to U+FFFD, so a
// legacy decoder never reports success on bytes it did not understand.
func decodeWith(enc encoding.Encoding) func([]byte) ([]byte, error) {
	return func(raw []byte) ([]byte, error) {
		out, _, err := transform.Bytes(enc.NewDecoder(), raw)
		if err != nil {
			return nil, err
		}
		if i := bytes.IndexRune(out, utf8.RuneError); i >= 0 {
			return nil, fmt.Errorf("undecodable byte sequence near output offset %d", i)
		}
		return out, nil
	}
}
