package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/matmap/internal/export"
	"github.com/ppiankov/matmap/internal/storage"
)

var (
	exportPath  string
	dbPath      string
	loadTimeout time.Duration
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load the catalog and print a summary",
	Long: `Load fetches the manifest, every listed source file and the three
dictionaries, then normalizes each material record:
- Source files are fetched concurrently; results keep manifest order
- A file that cannot be fetched or parsed is skipped with a warning
- The load fails only when the manifest is unusable or no record results

Example:
  matmap load --manifest dist/file-list.json --data-base data
  matmap load --manifest https://example.com/dist/file-list.json --data-base https://example.com/data
  matmap load --export catalog.xlsx --db matmap.db`,
	Args: cobra.NoArgs,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)

	// Output flags
	loadCmd.Flags().StringVar(&exportPath, "export", "", "export the catalog (.json, .yaml or .xlsx)")
	loadCmd.Flags().StringVar(&dbPath, "db", "", "save the catalog to a SQLite database")
	loadCmd.Flags().DurationVar(&loadTimeout, "timeout", 2*time.Minute, "overall load timeout")
}

func runLoad(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()

	snap, err := a.load(ctx)
	if err != nil {
		return err
	}

	stats := snap.Stats
	fmt.Fprintf(os.Stderr, "✓ Loaded %d records from %d files", stats.Records, stats.Files-stats.FilesFailed)
	if stats.FilesFailed > 0 {
		fmt.Fprintf(os.Stderr, " (%d files skipped)", stats.FilesFailed)
	}
	fmt.Fprintf(os.Stderr, " in %v\n", stats.Duration.Round(time.Millisecond))
	if stats.EntriesSkipped > 0 {
		fmt.Fprintf(os.Stderr, "  %d malformed entries skipped\n", stats.EntriesSkipped)
	}
	for _, f := range stats.Failures {
		fmt.Fprintf(os.Stderr, "  ✗ %s: %s\n", f.File, f.Err)
	}

	fmt.Printf("Records:          %d\n", len(snap.Records))
	fmt.Printf("Material filters: %d\n", len(snap.Index.MaterialTokens))
	fmt.Printf("EOS filters:      %d\n", len(snap.Index.EOSTitles))

	if exportPath != "" {
		if err := export.WriteFile(exportPath, snap); err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Exported catalog to %s\n", exportPath)
	}

	if dbPath != "" {
		db, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		if err := db.SaveSnapshot(ctx, snap); err != nil {
			return fmt.Errorf("save failed: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Saved catalog to %s\n", dbPath)
	}

	return nil
}
