// Package parser turns raw CSV bytes into a RawTable, resolving the text
// encoding from a fixed candidate list.
package parser

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/ridership3d/internal/common/logger"
	"github.com/ridership3d/pkg/ridership/models"
)

type Parser struct {
	logger    logger.Logger
	encodings []Encoding
}

// New returns a parser trying encodings in order, or DefaultEncodings when none are given.
func New(logger logger.Logger, encodings ...Encoding) *Parser {
	if len(encodings) == 0 {
		encodings = DefaultEncodings
	}
	return &Parser{logger: logger, encodings: encodings}
}

// Decode tries each candidate encoding against r, rewinding before every
// attempt, and returns the first table that decodes and the encoding used.
func (p *Parser) Decode(ctx context.Context, r io.ReadSeeker) (*models.RawTable, string, error) {
	var attempts []Attempt

	for _, enc := range p.encodings {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if _, err := r.Seek(0, io.SeekStart); err != nil {
			return nil, "", fmt.Errorf("rewinding input: %w", err)
		}

		table, err := decodeAs(r, enc)
		if err != nil {
			p.logger.Debug("Encoding rejected", "encoding", enc.Name, "error", err)
			attempts = append(attempts, Attempt{Encoding: enc.Name, Err: err})
			continue
		}

		p.logger.Info("CSV decoded",
			"encoding", enc.Name,
			"columns", len(table.Headers),
			"rows", len(table.Rows))
		return table, enc.Name, nil
	}

	return nil, "", &DecodeError{Attempts: attempts}
}

func decodeAs(r io.Reader, enc Encoding) (*models.RawTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	text, err := enc.decode(raw)
	if err != nil {
		return nil, err
	}
	return readCSV(text)
}

// readCSV keeps cells verbatim; trimming is left to the normalizer so that
// line names stay byte-exact for color lookup.
func readCSV(text []byte) (*models.RawTable, error) {
	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	table := &models.RawTable{Headers: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		if len(record) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d has %d fields, header has %d", line, len(record), len(header))
		}
		for len(record) < len(header) {
			record = append(record, "")
		}
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}
