package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/matzehuels/repotrack/pkg/errors"
	"github.com/matzehuels/repotrack/pkg/fetch"
	"github.com/matzehuels/repotrack/pkg/observability"
	"github.com/matzehuels/repotrack/pkg/parse"
	"github.com/matzehuels/repotrack/pkg/transact"
)

// ErrNoGeneration is returned when a source has nothing committed to parse.
var ErrNoGeneration = errors.New("no committed generation")

// Runner executes ingestion cycles.
//
// The Runner holds no per-source state. Multiple goroutines can use the
// same Runner for different sources; running the same source concurrently
// is not supported.
type Runner struct {
	Client *http.Client
	Logger *log.Logger
	Policy Policy
}

// NewRunner creates a runner with the CommitImmediately policy.
// If client is nil, http.DefaultClient is used.
// If logger is nil, log.Default() is used.
func NewRunner(client *http.Client, logger *log.Logger) *Runner {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Client: client, Logger: logger}
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

// Run performs one fetch-commit-parse cycle for src, pushing records to
// sink. The committed payload is parsed even when the upstream is
// unchanged.
//
// Records pushed before a parse error stay in sink; the caller decides
// whether to keep them.
func (r *Runner) Run(ctx context.Context, src Source, sink parse.Sink) (Result, error) {
	res := Result{Source: src.Name}
	logger := r.logger().With("source", src.Name)

	out, err := r.Fetch(ctx, src, &res)
	if err != nil {
		return res, err
	}

	if out.Updated() && r.Policy == CommitAfterParse {
		if err := r.parse(ctx, src, fetch.StatePath(out.Staging.Path()), sink, &res); err != nil {
			discardErr := out.Staging.Discard()
			observability.Pipeline().OnCommit(ctx, src.Name, err)
			logger.Warn("discarded staged generation", "error", err)
			return res, errors.Join(err, discardErr)
		}
		if err := r.Commit(ctx, src, out.Staging); err != nil {
			return res, err
		}
		res.Updated = true
		return res, nil
	}

	if out.Updated() {
		if err := r.Commit(ctx, src, out.Staging); err != nil {
			return res, err
		}
		res.Updated = true
	}

	current, ok := transact.New(src.Dir).Current()
	if !ok {
		return res, apperrors.Wrap(apperrors.ErrCodeNotFound, ErrNoGeneration, "source %s", src.Name)
	}
	if err := r.parse(ctx, src, fetch.StatePath(current), sink, &res); err != nil {
		return res, err
	}
	return res, nil
}

// Fetch runs the source's fetcher without committing. res, when non-nil,
// receives the fetch duration.
func (r *Runner) Fetch(ctx context.Context, src Source, res *Result) (fetch.Outcome, error) {
	hooks := observability.Pipeline()
	hooks.OnFetchStart(ctx, src.Name)

	start := time.Now()
	out, err := src.Fetcher.Fetch(ctx, src.Dir, r.Client)
	elapsed := time.Since(start)
	if res != nil {
		res.FetchTime = elapsed
	}
	hooks.OnFetchComplete(ctx, src.Name, out.Updated(), elapsed, err)
	if err != nil {
		return fetch.Outcome{}, err
	}

	r.logger().Info("fetched", "source", src.Name, "updated", out.Updated(), "duration", elapsed)
	return out, nil
}

// Commit promotes a staging area returned by Fetch to src's committed path.
func (r *Runner) Commit(ctx context.Context, src Source, s *transact.Staging) error {
	err := s.Commit()
	observability.Pipeline().OnCommit(ctx, src.Name, err)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeStorage, err, "commit %s", src.Name)
	}
	r.logger().Debug("committed generation", "source", src.Name, "path", s.Path())
	return nil
}

// parse counts every builder pushed, successful or not.
func (r *Runner) parse(ctx context.Context, src Source, path string, sink parse.Sink, res *Result) error {
	hooks := observability.Pipeline()
	name := fmt.Sprintf("%T", src.Parser)
	hooks.OnParseStart(ctx, src.Name, name)

	counter := parse.NewCounter(sink)
	start := time.Now()
	err := src.Parser.Parse(path, counter)
	res.ParseTime = time.Since(start)
	res.Records = counter.Count

	hooks.OnParseComplete(ctx, src.Name, name, counter.Count, res.ParseTime, err)
	if err != nil {
		return err
	}
	r.logger().Info("parsed", "source", src.Name, "records", counter.Count, "duration", res.ParseTime)
	return nil
}

// RunAll runs every source concurrently, at most jobs at a time (no limit
// when jobs <= 0). newSink supplies each source's sink and is called from
// the source's goroutine.
//
// A failing source does not cancel the others: its error is reported in
// its Result. Results are returned in the order of sources. Cancelling
// ctx stops sources that have not started yet.
func (r *Runner) RunAll(ctx context.Context, sources []Source, jobs int, newSink func(Source) parse.Sink) []Result {
	results := make([]Result, len(sources))

	var g errgroup.Group
	if jobs > 0 {
		g.SetLimit(jobs)
	}
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result{Source: src.Name, Err: err}
				return nil
			}
			res, err := r.Run(ctx, src, newSink(src))
			if err != nil {
				r.logger().Error("source failed", "source", src.Name, "error", err)
			}
			res.Err = err
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}
