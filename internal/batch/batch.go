// Package batch fans a fetch out over many items in fixed-size waves. Waves
// run one after another; the items of a wave run concurrently. A failing item
// never aborts the run: it is logged and contributes an empty result.
package batch

import (
	"context"

	"gitlab-pulse/internal/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Sizes used by call sites: heavy or multi-resource fetches use Small,
// single-resource fetches use Large.
const (
	Small = 5
	Large = 10
)

// Result is the outcome for one item.
type Result[T, R any] struct {
	Item  T
	Value R
	Err   error
}

// Waves returns how many sequential waves n items need at the given size.
func Waves(n, size int) int {
	if n <= 0 {
		return 0
	}
	if size <= 0 {
		size = 1
	}
	return (n + size - 1) / size
}

// Run calls fetch for every item, size items at a time, and returns one
// Result per item in input order. Wave i+1 starts only after every fetch of
// wave i has returned. If ctx is done before a wave starts, Run stops issuing
// waves and returns the results gathered so far together with ctx.Err().
func Run[T, R any](ctx context.Context, items []T, size int, fetch func(context.Context, T) (R, error)) ([]Result[T, R], error) {
	if size <= 0 {
		size = 1
	}
	results := make([]Result[T, R], 0, len(items))

	for start := 0; start < len(items); start += size {
		if err := ctx.Err(); err != nil {
			log.Debug().Int("done", start).Int("total", len(items)).Msg("Batch run cancelled")
			return results, err
		}

		end := min(start+size, len(items))
		wave := make([]Result[T, R], end-start)

		var g errgroup.Group
		for i, item := range items[start:end] {
			g.Go(func() error {
				v, err := fetch(ctx, item)
				wave[i] = Result[T, R]{Item: item, Value: v, Err: err}
				return nil
			})
		}
		_ = g.Wait()
		metrics.BatchWaves.Inc()

		for i := range wave {
			if wave[i].Err != nil {
				metrics.BatchItemFailures.Inc()
				log.Warn().Err(wave[i].Err).Int("index", start+i).Msg("Batch item failed, using empty result")
				var zero R
				wave[i].Value = zero
			}
		}
		results = append(results, wave...)
	}
	return results, nil
}

// Map is Run without the error details: failed items yield the zero value.
func Map[T, R any](ctx context.Context, items []T, size int, fetch func(context.Context, T) (R, error)) ([]R, error) {
	results, err := Run(ctx, items, size, fetch)
	out := make([]R, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out, err
}

// Flatten concatenates per-item slices in item order.
func Flatten[T, E any](ctx context.Context, items []T, size int, fetch func(context.Context, T) ([]E, error)) ([]E, error) {
	results, err := Run(ctx, items, size, fetch)
	n := 0
	for _, r := range results {
		n += len(r.Value)
	}
	out := make([]E, 0, n)
	for _, r := range results {
		out = append(out, r.Value...)
	}
	return out, err
}

// Collect keeps per-item attribution. Items that produced nothing, including
// failed ones, are left out of the map.
func Collect[T any, K comparable, E any](ctx context.Context, items []T, size int, key func(T) K, fetch func(context.Context, T) ([]E, error)) (map[K][]E, error) {
	results, err := Run(ctx, items, size, fetch)
	out := make(map[K][]E, len(results))
	for _, r := range results {
		if len(r.Value) > 0 {
			out[key(r.Item)] = r.Value
		}
	}
	return out, err
}
