package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/matmap/internal/catalog"
	"github.com/ppiankov/matmap/internal/pipeline"
	"github.com/ppiankov/matmap/internal/worker"
)

var validateTimeout time.Duration

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <file|dir|url>...",
	Short: "Check source files for required material fields",
	Long: `Validate parses source files in parallel and checks every material entry:
- 'app' must be a non-empty list
- at least one of 'ref' or 'url' must be set
- at least one of 'mat_data' or 'eos_data' must be set

Directories are expanded to the source files they contain. The command
exits non-zero when any issue is found.

Example:
  matmap validate data/
  matmap validate data/steel.toml data/aluminium.yaml --workers 4`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().DurationVar(&validateTimeout, "timeout", 2*time.Minute, "total timeout for validation")
}

// validateJob fetches and validates one source
type validateJob struct {
	fetcher  *pipeline.Fetcher
	location string
}

type validateResult struct {
	location string
	entries  int
	issues   []catalog.Issue
	err      error
}

func (r *validateResult) GetError() error { return r.err }

func (j *validateJob) Execute(ctx context.Context) worker.Result {
	res := &validateResult{location: j.location}

	fetched, err := j.fetcher.Fetch(ctx, j.location)
	if err != nil {
		res.err = err
		return res
	}

	name := filepath.Base(pipeline.LocalPath(j.location))
	format := catalog.DetectFormat(name, fetched.Meta.ContentType)
	res.issues, res.entries = catalog.ValidateFile(name, format, fetched.Body)
	return res
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), validateTimeout)
	defer cancel()

	locations, err := expandSources(args)
	if err != nil {
		return err
	}
	if len(locations) == 0 {
		fmt.Fprintf(os.Stderr, "No source files found.\n")
		return nil
	}

	fmt.Fprintf(os.Stderr, "🔍 Validating %d source files with %d workers...\n\n", len(locations), a.cfg.Concurrency.Workers)

	pool := worker.NewPool(ctx, a.cfg.Concurrency.Workers)
	pool.Start()
	for _, loc := range locations {
		if !pool.Submit(&validateJob{fetcher: a.fetcher, location: loc}) {
			break
		}
	}
	results := pool.Wait()

	validCount, invalidCount, totalEntries := 0, 0, 0
	for i, loc := range locations {
		var res *validateResult
		if i < len(results) {
			res, _ = results[i].(*validateResult)
		}
		if res == nil {
			invalidCount++
			fmt.Fprintf(os.Stderr, "✗ %s: not processed\n", loc)
			continue
		}
		if res.err != nil {
			invalidCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", res.location, res.err)
			continue
		}

		totalEntries += res.entries
		if len(res.issues) == 0 {
			validCount++
			if verbose {
				fmt.Fprintf(os.Stderr, "✓ %s (%d materials)\n", res.location, res.entries)
			}
			continue
		}

		invalidCount++
		fmt.Fprintf(os.Stderr, "✗ %s:\n", res.location)
		for _, issue := range res.issues {
			fmt.Fprintf(os.Stderr, "    %s\n", issue)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Files:      %d valid, %d invalid (%d total)\n", validCount, invalidCount, len(locations))
	fmt.Fprintf(os.Stderr, "  Materials:  %d\n", totalEntries)
	fmt.Fprintf(os.Stderr, "\n")

	if invalidCount > 0 {
		return fmt.Errorf("%d of %d source files have issues", invalidCount, len(locations))
	}
	return nil
}

// expandSources replaces local directories with the source files they hold
func expandSources(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if pipeline.IsRemote(arg) {
			out = append(out, arg)
			continue
		}

		path := pipeline.LocalPath(arg)
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", arg, err)
		}
		if !info.IsDir() {
			out = append(out, path)
			continue
		}

		entries, err := catalog.BuildManifest(path, nil)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			out = append(out, filepath.Join(path, e.Filename))
		}
	}
	return out, nil
}
