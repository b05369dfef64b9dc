// Package pipeline runs a data source through decoding, cleaning, coloring
// and view resolution, producing a render-ready deck.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/bluele/gcache"
	"github.com/google/uuid"

	"github.com/ridership3d/internal/common/logger"
	"github.com/ridership3d/internal/render"
	"github.com/ridership3d/internal/ridership/cleaner"
	"github.com/ridership3d/internal/ridership/palette"
	"github.com/ridership3d/internal/ridership/parser"
	"github.com/ridership3d/internal/ridership/source"
	"github.com/ridership3d/internal/ridership/view"
	"github.com/ridership3d/pkg/ridership/models"
)

// HistoryRecorder stores one entry per load.
type HistoryRecorder interface {
	RecordLoad(ctx context.Context, run models.LoadRun) error
}

// Options configures a Pipeline.
type Options struct {
	Schema       models.SchemaKind
	UploadPolicy models.NullPolicy
	FixedPolicy  models.NullPolicy
	PreviewRows  int
	CacheSize    int
	CacheTTL     time.Duration
	View         view.Settings
	Builder      *render.Builder
	History      HistoryRecorder
}

type Pipeline struct {
	opts    Options
	parser  *parser.Parser
	cache   gcache.Cache
	history HistoryRecorder
	logger  logger.Logger
}

// New builds a pipeline. A zero CacheSize disables the table cache and a
// nil History disables load recording.
func New(opts Options, logger logger.Logger) *Pipeline {
	p := &Pipeline{
		opts:    opts,
		parser:  parser.New(logger),
		history: opts.History,
		logger:  logger,
	}
	if opts.CacheSize > 0 {
		b := gcache.New(opts.CacheSize).LRU()
		if opts.CacheTTL > 0 {
			b = b.Expiration(opts.CacheTTL)
		}
		p.cache = b.Build()
	}
	return p
}

// Variant returns the parameterization used for sources of kind.
func (p *Pipeline) Variant(kind models.SourceKind) models.Variant {
	policy := p.opts.FixedPolicy
	if kind == models.SourceUpload {
		policy = p.opts.UploadPolicy
	}
	return models.Variant{Source: kind, Schema: p.opts.Schema, Policy: policy}
}

// Settings exposes the view defaults.
func (p *Pipeline) Settings() view.Settings {
	return p.opts.View
}

// Loaded is a cleaned table with the id of the load that produced it.
type Loaded struct {
	RunID  string
	Table  *models.StationTable
	Cached bool
}

// Load reads src and returns its cleaned, colored table. The stream is
// closed before Load returns.
func (p *Pipeline) Load(ctx context.Context, src source.Source) (*Loaded, error) {
	start := time.Now()
	variant := p.Variant(src.Kind())
	run := models.LoadRun{
		ID:         uuid.NewString(),
		Source:     variant.Source,
		SourceName: src.Name(),
		Schema:     variant.Schema,
		Policy:     variant.Policy,
		CreatedAt:  start.UTC(),
	}

	table, cached, err := p.load(ctx, src, variant, &run)
	run.DurationMS = time.Since(start).Milliseconds()
	run.Cached = cached
	if err != nil {
		run.ErrorKind = ErrorKind(err)
		run.ErrorMessage = err.Error()
		p.logger.Warn("Load failed",
			"run_id", run.ID,
			"source", run.SourceName,
			"kind", run.ErrorKind,
			"error", err)
	} else {
		report := table.Report
		run.Encoding = report.Encoding
		run.InputRows = report.InputRows
		run.RetainedRows = report.RetainedRows
		run.DroppedRows = report.DroppedRows
		run.ZeroFilled = report.ZeroFilled
		run.DistinctLines = report.DistinctLines
	}
	p.record(ctx, run)

	if err != nil {
		return nil, err
	}
	return &Loaded{RunID: run.ID, Table: table, Cached: cached}, nil
}

func (p *Pipeline) load(ctx context.Context, src source.Source, variant models.Variant, run *models.LoadRun) (*models.StationTable, bool, error) {
	stream, err := src.Open(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("opening source: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			p.logger.Warn("Failed to close source", "source", src.Name(), "error", err)
		}
	}()

	digest, err := digestOf(stream)
	if err != nil {
		return nil, false, fmt.Errorf("reading source: %w", err)
	}
	run.Digest = digest

	key := cacheKey(digest, variant)
	if p.cache != nil {
		if v, err := p.cache.Get(key); err == nil {
			p.logger.Debug("Table cache hit", "digest", digest)
			return v.(*models.StationTable), true, nil
		}
	}

	raw, encoding, err := p.parser.Decode(ctx, stream)
	if err != nil {
		return nil, false, err
	}

	result, err := cleaner.Clean(raw, variant)
	if err != nil {
		return nil, false, err
	}
	palette.Paint(result.Records)

	lines := distinctLines(result.Records)
	table := &models.StationTable{
		Variant: variant,
		Records: result.Records,
		Lines:   lines,
		Preview: raw.Preview(p.opts.PreviewRows),
		Report: models.LoadReport{
			Encoding:         encoding,
			InputRows:        len(raw.Rows),
			CoercionFailures: result.CoercionFailures,
			DroppedRows:      result.Filter.Dropped,
			ZeroFilled:       result.Filter.ZeroFilled,
			RetainedRows:     result.Filter.Retained,
			DistinctLines:    len(lines),
		},
	}

	p.logger.Info("Table loaded",
		"source", src.Name(),
		"encoding", encoding,
		"input_rows", table.Report.InputRows,
		"dropped", table.Report.DroppedRows,
		"zero_filled", table.Report.ZeroFilled,
		"retained", table.Report.RetainedRows,
		"lines", len(lines))

	if p.cache != nil {
		if err := p.cache.Set(key, table); err != nil {
			p.logger.Warn("Failed to cache table", "error", err)
		}
	}
	return table, false, nil
}

func (p *Pipeline) record(ctx context.Context, run models.LoadRun) {
	if p.history == nil {
		return
	}
	// A canceled request still gets its history entry.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.history.RecordLoad(ctx, run); err != nil {
		p.logger.Error("Failed to record load", "run_id", run.ID, "error", err)
	}
}

// Output is the result of one full run.
type Output struct {
	RunID string
	Table *models.StationTable
	View  *view.View
	Deck  *render.Deck
}

// Run loads src and resolves sel against the variant's camera.
func (p *Pipeline) Run(ctx context.Context, src source.Source, sel view.Selection) (*Output, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	loaded, err := p.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	v, err := view.Resolve(loaded.Table, sel, p.opts.View.Camera(src.Kind()))
	if err != nil {
		return nil, err
	}

	out := &Output{RunID: loaded.RunID, Table: loaded.Table, View: v}
	if p.opts.Builder != nil {
		out.Deck = p.opts.Builder.Build(v)
	}
	return out, nil
}

// ErrorKind classifies err for load history.
func ErrorKind(err error) string {
	var (
		decodeErr *parser.DecodeError
		schemaErr *cleaner.SchemaError
		emptyErr  *cleaner.EmptyResultError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &decodeErr):
		return "decode"
	case errors.As(err, &schemaErr):
		return "schema"
	case errors.As(err, &emptyErr):
		return "empty_result"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "source"
	}
}

func digestOf(r io.ReadSeeker) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func cacheKey(digest string, v models.Variant) string {
	return fmt.Sprintf("%s|%s|%s|%s", digest, v.Source, v.Schema, v.Policy)
}

func distinctLines(records []models.StationRecord) []string {
	seen := make(map[string]bool)
	lines := []string{}
	for _, r := range records {
		if r.Line == nil || seen[*r.Line] {
			continue
		}
		seen[*r.Line] = true
		lines = append(lines, *r.Line)
	}
	sort.Strings(lines)
	return lines
}
