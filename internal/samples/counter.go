// Package samples tallies labelled training samples stored as sharded JSON.
//
// Each shard holds a JSON array of base-status records. Every record carries
// a "data" array; the corpus size is the sum of those array lengths.
package samples

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/hailam/xqnnue/internal/discovery"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultExtension is the shard file suffix used by the data generator.
const DefaultExtension = ".json"

// ShardCount is the tally of one shard. Skipped counts records without a
// data array that were let through in skip mode.
type ShardCount struct {
	Samples int64 `json:"samples"`
	Skipped int64 `json:"skipped"`
}

// Cache remembers per-shard counts keyed by path, size and modification time.
type Cache interface {
	Lookup(path string, size int64, modTime time.Time) (count ShardCount, ok bool, err error)
	Store(path string, size int64, modTime time.Time, count ShardCount) error
}

// Options controls a count run.
type Options struct {
	// Extension selects shard files by name suffix. Empty means DefaultExtension.
	Extension string

	// Exclude lists doublestar patterns relative to the root to skip.
	Exclude []string

	// Workers is the number of shards parsed concurrently. Values below 2
	// parse one shard at a time.
	Workers int

	// SkipMalformed counts records without a data array as zero and logs a
	// warning instead of failing the run.
	SkipMalformed bool

	// Cache, when set, short-circuits shards whose size and mtime are unchanged.
	Cache Cache

	Logger *zap.Logger
}

// Result is the outcome of a count run.
type Result struct {
	Files   int   `json:"files"`
	Samples int64 `json:"samples"`
	Skipped int64 `json:"skipped_records"`
	Cached  int   `json:"cached_files"`
}

// Count discovers every shard under root and sums the lengths of all record
// data arrays. The corpus is only read.
func Count(ctx context.Context, root string, opts Options) (Result, error) {
	ext := opts.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	files, err := discovery.Find(discovery.Options{Root: root, Extension: ext, Exclude: opts.Exclude})
	if err != nil {
		if errors.Is(err, discovery.ErrInvalidPattern) {
			return Result{}, err
		}
		return Result{}, &IOError{Path: root, Err: err}
	}
	logger.Debug("shards discovered", zap.String("root", root), zap.Int("files", len(files)))

	c := &counter{opts: opts, logger: logger}
	if opts.Workers < 2 {
		for _, path := range files {
			if err := c.countFile(ctx, path); err != nil {
				return Result{}, err
			}
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		for _, path := range files {
			g.Go(func() error { return c.countFile(gctx, path) })
		}
		if err := g.Wait(); err != nil {
			return Result{}, err
		}
	}

	res := Result{
		Files:   len(files),
		Samples: c.samples.Load(),
		Skipped: c.skipped.Load(),
		Cached:  int(c.cached.Load()),
	}
	logger.Info("samples counted",
		zap.String("root", root),
		zap.Int("files", res.Files),
		zap.Int64("samples", res.Samples),
		zap.Int("cached", res.Cached))
	return res, nil
}

// counter accumulates totals across shards; safe for concurrent use.
type counter struct {
	opts    Options
	logger  *zap.Logger
	samples atomic.Int64
	skipped atomic.Int64
	cached  atomic.Int64
}

func (c *counter) countFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return &IOError{Path: path, Err: err}
	}

	if c.opts.Cache != nil {
		sc, ok, err := c.opts.Cache.Lookup(path, info.Size(), info.ModTime())
		if err != nil {
			return fmt.Errorf("cache lookup %s: %w", path, err)
		}
		// A shard counted in skip mode still has malformed records; a strict
		// run must parse it again to report them.
		if ok && (sc.Skipped == 0 || c.opts.SkipMalformed) {
			c.samples.Add(sc.Samples)
			c.skipped.Add(sc.Skipped)
			c.cached.Add(1)
			return nil
		}
	}

	n, skipped, err := c.parseFile(path)
	if err != nil {
		return err
	}
	c.samples.Add(n)
	c.skipped.Add(skipped)

	if c.opts.Cache != nil {
		sc := ShardCount{Samples: n, Skipped: skipped}
		if err := c.opts.Cache.Store(path, info.Size(), info.ModTime(), sc); err != nil {
			return fmt.Errorf("cache store %s: %w", path, err)
		}
	}
	return nil
}

func (c *counter) parseFile(path string) (n, skipped int64, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, &IOError{Path: path, Err: err}
	}
	defer f.Close()

	n, skipped, err = CountShard(bufio.NewReader(f), path, c.opts.SkipMalformed)
	if err != nil {
		return 0, 0, err
	}
	if skipped > 0 {
		c.logger.Warn("malformed records skipped",
			zap.String("path", path),
			zap.Int64("records", skipped))
	}
	return n, skipped, nil
}

// record is one base-status entry; only the data key matters here.
type record map[string]json.RawMessage

// CountShard sums the data array lengths of one shard read from r.
// path is used for error messages only. With skipMalformed, records lacking
// a data array contribute zero and are reported in skipped.
func CountShard(r io.Reader, path string, skipMalformed bool) (n, skipped int64, err error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return 0, 0, parseErr(path, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, 0, &ParseError{Path: path, Err: fmt.Errorf("expected array of records, got %v", tok)}
	}

	for i := 0; dec.More(); i++ {
		var rec record
		if err := dec.Decode(&rec); err != nil {
			return 0, 0, parseErr(path, err)
		}
		if rec == nil {
			return 0, 0, &ParseError{Path: path, Err: fmt.Errorf("record %d is null", i)}
		}

		count, reason := dataLength(rec)
		if reason != "" {
			if !skipMalformed {
				return 0, 0, &SchemaError{Path: path, Record: i, Reason: reason}
			}
			skipped++
			continue
		}
		n += count
	}

	if _, err := dec.Token(); err != nil {
		return 0, 0, parseErr(path, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return 0, 0, &ParseError{Path: path, Err: errors.New("trailing data after records")}
	}
	return n, skipped, nil
}

// dataLength returns the length of rec's data array, or a reason it has none.
func dataLength(rec record) (int64, string) {
	raw, ok := rec["data"]
	if !ok {
		return 0, `missing "data" key`
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return 0, `"data" is not an array`
	}
	return int64(len(items)), ""
}

func parseErr(path string, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return &ParseError{Path: path, Err: err}
}
