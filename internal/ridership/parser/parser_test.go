package parser

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"unicode/utf8"

	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/ridership3d/internal/common/logger"
)

const multiCSV = "系統,線名,車站,緯度,經度,日平均,年總量\n" +
	"台北捷運,台北紅線,台北車站,25.0478,121.5170,100000,36500000\n" +
	"台北捷運,台北綠線,西門,25.0421,121.5081,50000,18250000\n"

func newParser() *Parser {
	return New(logger.Nop())
}

func big5Bytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := traditionalchinese.Big5.NewEncoder().Bytes([]byte(s))
	if err != nil {
		t.Fatalf("encoding fixture as big5: %v", err)
	}
	if utf8.Valid(b) {
		t.Fatal("big5 fixture unexpectedly valid utf-8")
	}
	return b
}

func TestDecodeUTF8(t *testing.T) {
	table, enc, err := newParser().Decode(context.Background(), bytes.NewReader([]byte(multiCSV)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if enc != "utf-8" {
		t.Errorf("Expected utf-8, got %s", enc)
	}
	if len(table.Headers) != 7 || table.Headers[0] != "系統" {
		t.Errorf("Unexpected headers %v", table.Headers)
	}
	if len(table.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[1][2] != "西門" {
		t.Errorf("Expected 西門, got %s", table.Rows[1][2])
	}
}

func TestDecodeUTF8WithBOM(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte(multiCSV)...)

	table, enc, err := newParser().Decode(context.Background(), bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if enc != "utf-8-sig" {
		t.Errorf("Expected utf-8-sig, got %s", enc)
	}
	if table.Headers[0] != "系統" {
		t.Errorf("Expected BOM stripped from first header, got %q", table.Headers[0])
	}
}

func TestDecodeFallsBackToBig5(t *testing.T) {
	input := big5Bytes(t, multiCSV)

	table, enc, err := newParser().Decode(context.Background(), bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if enc != "big5" {
		t.Errorf("Expected big5 (third candidate), got %s", enc)
	}
	if table.Headers[1] != "線名" || table.Rows[0][1] != "台北紅線" {
		t.Errorf("Big5 content corrupted: headers=%v row=%v", table.Headers, table.Rows[0])
	}
}

func TestDecodeAllCandidatesFail(t *testing.T) {
	// 0x80 is neither valid utf-8 nor a valid big5 lead byte.
	input := []byte{'a', ',', 'b', '\n', 0x80, 0x80, '\n'}

	_, _, err := newParser().Decode(context.Background(), bytes.NewReader(input))

	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Expected DecodeError, got %v", err)
	}
	want := []string{"utf-8", "utf-8-sig", "big5", "cp950"}
	got := decErr.Encodings()
	if len(got) != len(want) {
		t.Fatalf("Expected attempts %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Attempt %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestDecodeEmptyInput(t *testing.T) {
	_, _, err := newParser().Decode(context.Background(), bytes.NewReader(nil))
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("Expected DecodeError for empty input, got %v", err)
	}
}

func TestDecodeRewindsBeforeEachAttempt(t *testing.T) {
	input := big5Bytes(t, multiCSV)
	r := bytes.NewReader(input)
	// Leave the cursor mid-stream, as a previous consumer might.
	if _, err := r.Seek(10, io.SeekStart); err != nil {
		t.Fatal(err)
	}

	table, enc, err := newParser().Decode(context.Background(), r)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if enc != "big5" || table.Headers[0] != "系統" {
		t.Errorf("Expected full big5 decode, got %s %v", enc, table.Headers)
	}
}

func TestDecodeRaggedRows(t *testing.T) {
	short := "a,b,c\n1,2\n"
	table, _, err := newParser().Decode(context.Background(), bytes.NewReader([]byte(short)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(table.Rows[0]) != 3 || table.Rows[0][2] != "" {
		t.Errorf("Expected short row padded to 3 cells, got %q", table.Rows[0])
	}

	long := "a,b\n1,2,3\n"
	if _, _, err := newParser().Decode(context.Background(), bytes.NewReader([]byte(long))); err == nil {
		t.Error("Expected error for row wider than header")
	}
}

func TestDecodeKeepsCellsVerbatim(t *testing.T) {
	input := "線名,車站\n台北紅線 , 台北車站\n"
	table, _, err := newParser().Decode(context.Background(), bytes.NewReader([]byte(input)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if table.Rows[0][0] != "台北紅線 " {
		t.Errorf("Expected trailing space preserved, got %q", table.Rows[0][0])
	}
}

func TestDecodeBareQuoteInField(t *testing.T) {
	input := "車站,緯度,經度,日平均,年總量\n台北101\"站\",25.03,121.56,100,36500\n"

	table, enc, err := newParser().Decode(context.Background(), bytes.NewReader([]byte(input)))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if enc != "utf-8" {
		t.Errorf("Expected utf-8, got %s", enc)
	}
	if len(table.Rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(table.Rows))
	}
	if table.Rows[0][0] != `台北101"站"` {
		t.Errorf("Expected quote kept in station name, got %q", table.Rows[0][0])
	}
	if table.Rows[0][4] != "36500" {
		t.Errorf("Expected 36500, got %q", table.Rows[0][4])
	}
}

func TestDecodeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := newParser().Decode(ctx, bytes.NewReader([]byte(multiCSV)))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDecodeWithCustomCandidates(t *testing.T) {
	input := big5Bytes(t, multiCSV)
	p := New(logger.Nop(), UTF8)

	_, _, err := p.Decode(context.Background(), bytes.NewReader(input))
	var decErr *DecodeError
	if !errors.As(err, &decErr) || len(decErr.Attempts) != 1 {
		t.Fatalf("Expected a single failed attempt, got %v", err)
	}
}

func TestCP950SharesBig5Decoder(t *testing.T) {
	input := big5Bytes(t, multiCSV)

	table, enc, err := New(logger.Nop(), CP950).Decode(context.Background(), bytes.NewReader(input))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if enc != "cp950" {
		t.Errorf("Expected cp950, got %s", enc)
	}
	if table.Rows[1][2] != "西門" {
		t.Errorf("Expected 西門, got %s", table.Rows[1][2])
	}
}
