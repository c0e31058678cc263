// Package pipeline streams spectra from a library reader through noise
// filtering and fragment envelope matching and hands the results to a writer
// in input order.
package pipeline

import (
	"context"
	"fmt"

	"github.com/mdobak/go-xerrors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/isoscan/pkg/core"
	"github.com/ChrisMcGann/isoscan/pkg/filter"
	"github.com/ChrisMcGann/isoscan/pkg/fragment"
	"github.com/ChrisMcGann/isoscan/pkg/reader"
)

// Writer receives processed spectra. Calls are made from a single goroutine.
type Writer interface {
	WriteSpectrum(spec *core.Spectrum) (int64, error)
	WriteMatches(spectrumID int64, matches []fragment.Match) error
}

// Options configures a pipeline run.
type Options struct {
	Filter       filter.Config
	Fragment     fragment.Options
	Threads      int
	ChunkSize    int
	Annotations  *reader.Annotations
	SkipMatching bool
}

// Stats summarises a run.
type Stats struct {
	Processed int // spectra read
	Written   int
	Skipped   int // rejected by filtering, validation or matching
	Matched   int // fragment envelopes found
}

// Pipeline processes spectral libraries chunk by chunk.
type Pipeline struct {
	opts   Options
	logger *zap.Logger
}

// New returns a pipeline. Threads and ChunkSize below 1 are raised to 1.
func New(opts Options, logger *zap.Logger) *Pipeline {
	if opts.Threads < 1 {
		opts.Threads = 1
	}
	if opts.ChunkSize < 1 {
		opts.ChunkSize = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{opts: opts, logger: logger}
}

type result struct {
	spec    *core.Spectrum
	matches []fragment.Match
	err     error
}

// Run reads every spectrum from r, processes each chunk on the worker pool
// and writes the results to w in input order.
func (p *Pipeline) Run(ctx context.Context, r reader.SpectrumReader, w Writer) (Stats, error) {
	var stats Stats
	chunk := make([]*core.Spectrum, 0, p.opts.ChunkSize)

	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		results, err := p.processChunk(ctx, chunk)
		if err != nil {
			return err
		}
		if err := p.write(results, w, &stats); err != nil {
			return err
		}
		chunk = chunk[:0]
		p.logger.Info("chunk complete",
			zap.Int("processed", stats.Processed),
			zap.Int("written", stats.Written),
			zap.Int("skipped", stats.Skipped),
		)
		return nil
	}

	for r.Next() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		spec := r.Spectrum()
		p.opts.Annotations.Apply(spec)
		chunk = append(chunk, spec)
		stats.Processed++

		if len(chunk) == p.opts.ChunkSize {
			if err := flush(); err != nil {
				return stats, err
			}
		}
	}
	if err := r.Err(); err != nil {
		return stats, xerrors.New(fmt.Errorf("error reading input: %w", err))
	}
	if err := flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (p *Pipeline) processChunk(ctx context.Context, chunk []*core.Spectrum) ([]result, error) {
	results := make([]result, len(chunk))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Threads)
	for i, spec := range chunk {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.process(spec)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// process filters and scores one spectrum. It only reads spec.
func (p *Pipeline) process(spec *core.Spectrum) result {
	// filters assume finite, sorted input
	if err := spec.Validate(); err != nil {
		return result{spec: spec, err: err}
	}

	filtered, err := p.opts.Filter.Apply(spec)
	if err != nil {
		return result{spec: spec, err: fmt.Errorf("failed to filter: %w", err)}
	}
	if err := filtered.Validate(); err != nil {
		return result{spec: spec, err: err}
	}

	res := result{spec: filtered}
	if p.opts.SkipMatching || !filtered.IsProduct() || filtered.Product.Precursor.Sequence == "" {
		return res
	}

	res.matches, err = fragment.Ladder(filtered, p.opts.Fragment)
	if err != nil {
		return result{spec: spec, err: fmt.Errorf("failed to match fragments: %w", err)}
	}
	return res
}

func (p *Pipeline) write(results []result, w Writer, stats *Stats) error {
	for _, res := range results {
		if res.err != nil {
			p.logger.Warn("skipping spectrum",
				zap.String("spectrum", res.spec.Name()),
				zap.Error(res.err),
			)
			stats.Skipped++
			continue
		}

		id, err := w.WriteSpectrum(res.spec)
		if err != nil {
			return xerrors.New(fmt.Errorf("failed to write spectrum %s: %w", res.spec.Name(), err))
		}
		if len(res.matches) > 0 {
			if err := w.WriteMatches(id, res.matches); err != nil {
				return xerrors.New(fmt.Errorf("failed to write matches for %s: %w", res.spec.Name(), err))
			}
		}

		found := fragment.Count(res.matches)
		stats.Written++
		stats.Matched += found
		p.logger.Debug("spectrum written",
			zap.String("spectrum", res.spec.Name()),
			zap.Int64("id", id),
			zap.Int("peaks", len(res.spec.Peaks)),
			zap.Int("envelopes_found", found),
		)
	}
	return nil
}
