// Package catalog builds the material catalog from a manifest of source files.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/matmap/internal/logger"
	"github.com/ppiankov/matmap/internal/model"
	"github.com/ppiankov/matmap/internal/normalize"
	"github.com/ppiankov/matmap/internal/pipeline"
	"github.com/ppiankov/matmap/internal/worker"
)

const defaultWorkers = 8

// recordNamespace seeds the name-based record IDs
var recordNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/ppiankov/matmap/record"))

// Fetcher reads a source document
type Fetcher interface {
	Fetch(ctx context.Context, location string) (*pipeline.FetchResult, error)
}

// Dictionaries resolves titles once Ready is closed
type Dictionaries interface {
	normalize.Resolver
	Ready() <-chan struct{}
}

// Options tune a Loader
type Options struct {
	Workers     int
	FileTimeout time.Duration // Per source file; 0 = none
}

// FileFailure records a source file that contributed nothing
type FileFailure struct {
	File string `json:"file" yaml:"file"`
	Err  string `json:"error" yaml:"error"`
}

// LoadStats summarises one load
type LoadStats struct {
	Files          int           `json:"files" yaml:"files"`
	FilesFailed    int           `json:"files_failed" yaml:"files_failed"`
	Entries        int           `json:"entries" yaml:"entries"`
	EntriesSkipped int           `json:"entries_skipped" yaml:"entries_skipped"`
	Records        int           `json:"records" yaml:"records"`
	Failures       []FileFailure `json:"failures,omitempty" yaml:"failures,omitempty"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
}

// Loader fetches, decodes and normalizes every file a manifest lists
type Loader struct {
	fetcher Fetcher
	dict    Dictionaries
	opts    Options
	log     *logger.Logger
}

// NewLoader creates a Loader
func NewLoader(fetcher Fetcher, dict Dictionaries, opts Options, log *logger.Logger) *Loader {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{fetcher: fetcher, dict: dict, opts: opts, log: log}
}

// fileJob fetches and decodes one source file
type fileJob struct {
	loader   *Loader
	entry    model.ManifestEntry
	location string
}

type fileResult struct {
	entries []SourceEntry
	err     error
}

func (r *fileResult) GetError() error { return r.err }

func (j *fileJob) Execute(ctx context.Context) worker.Result {
	if j.loader.opts.FileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.loader.opts.FileTimeout)
		defer cancel()
	}

	result, err := j.loader.fetcher.Fetch(ctx, j.location)
	if err != nil {
		return &fileResult{err: fmt.Errorf("fetch: %w", err)}
	}

	format := DetectFormat(j.entry.Filename, result.Meta.ContentType)
	entries, err := DecodeSource(format, result.Body)
	if err != nil {
		return &fileResult{err: err}
	}
	return &fileResult{entries: entries}
}

// Load builds a fresh catalog. Files are fetched concurrently; records come
// back in manifest order, then file order. A file that cannot be fetched or
// decoded is logged and skipped. Load fails only when the manifest is
// unusable, the dictionaries never become ready, or no record results.
func (l *Loader) Load(ctx context.Context, manifestURL, dataBase string) ([]*model.NormalizedRecord, LoadStats, error) {
	start := time.Now()
	var stats LoadStats

	manifest, err := l.fetchManifest(ctx, manifestURL)
	if err != nil {
		return nil, stats, err
	}
	stats.Files = len(manifest)

	results := l.fetchFiles(ctx, manifest, dataBase)
	if err := ctx.Err(); err != nil {
		return nil, stats, fmt.Errorf("load catalog: %w", err)
	}

	select {
	case <-l.dict.Ready():
	case <-ctx.Done():
		return nil, stats, loadError(KindDependencyNotReady, ctx.Err())
	}

	normalizer := normalize.New(l.dict)
	var records []*model.NormalizedRecord

	for i, res := range results {
		file := manifest[i].Filename
		if res.err != nil {
			stats.FilesFailed++
			stats.Failures = append(stats.Failures, FileFailure{File: file, Err: res.err.Error()})
			l.log.Warn("source file skipped", "file", file, "index", i, "err", res.err)
			continue
		}

		for _, se := range res.entries {
			stats.Entries++
			rec := normalizer.Normalize(se.Entry)
			if rec == nil {
				stats.EntriesSkipped++
				l.log.Warn("material entry skipped", "file", file, "position", se.Position, "err", se.Err)
				continue
			}
			rec.ID = recordID(file, se.Position)
			rec.Origin = model.Origin{File: file, Position: se.Position, Modified: manifest[i].Modified}
			records = append(records, rec)
		}
	}

	stats.Records = len(records)
	stats.Duration = time.Since(start)

	if len(records) == 0 {
		if stats.FilesFailed == stats.Files {
			return nil, stats, loadError(KindAllFilesFailed, errors.New(stats.Failures[0].File+": "+stats.Failures[0].Err))
		}
		return nil, stats, loadError(KindNoMaterials, nil)
	}

	l.log.Info("catalog loaded",
		"files", stats.Files,
		"files_failed", stats.FilesFailed,
		"records", stats.Records,
		"skipped", stats.EntriesSkipped,
		"duration", stats.Duration)

	return records, stats, nil
}

func (l *Loader) fetchManifest(ctx context.Context, manifestURL string) ([]model.ManifestEntry, error) {
	result, err := l.fetcher.Fetch(ctx, manifestURL)
	if err != nil {
		return nil, loadError(KindManifestUnavailable, err)
	}

	manifest, err := ParseManifest(result.Body)
	if err != nil {
		return nil, loadError(KindManifestInvalid, err)
	}
	if len(manifest) == 0 {
		return nil, loadError(KindManifestEmpty, nil)
	}
	return manifest, nil
}

// fetchFiles returns one result per manifest entry, in manifest order
func (l *Loader) fetchFiles(ctx context.Context, manifest []model.ManifestEntry, dataBase string) []*fileResult {
	results := make([]*fileResult, len(manifest))

	pool := worker.NewPool(ctx, l.opts.Workers)
	pool.Start()

	// Pool slots follow submission order; jobs maps them back to manifest indexes
	var jobs []int
	for i, entry := range manifest {
		location, err := pipeline.JoinLocation(dataBase, entry.Filename)
		if err != nil {
			results[i] = &fileResult{err: fmt.Errorf("resolve location: %w", err)}
			continue
		}
		if !pool.Submit(&fileJob{loader: l, entry: entry, location: location}) {
			break
		}
		jobs = append(jobs, i)
	}

	for slot, res := range pool.Wait() {
		if r, ok := res.(*fileResult); ok {
			results[jobs[slot]] = r
		}
	}

	for i, r := range results {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("not processed")
			}
			results[i] = &fileResult{err: err}
		}
	}
	return results
}

// recordID is stable for a given file and position across loads
func recordID(file string, position int) string {
	return uuid.NewSHA1(recordNamespace, []byte(file+"#"+strconv.Itoa(position))).String()
}
