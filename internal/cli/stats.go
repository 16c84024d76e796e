package cli

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/matmap/internal/storage"
)

var statsDB string

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a catalog saved with 'matmap load --db'",
	Long: `Stats reads a saved catalog and prints when it was loaded, the load
counters and the number of records per material title.

Example:
  matmap load --db matmap.db
  matmap stats --db matmap.db`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsDB, "db", "matmap.db", "SQLite database written by 'matmap load --db'")
}

type titleCount struct {
	title string
	count int
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if _, err := os.Stat(statsDB); err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	db, err := storage.Open(statsDB)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	snap, err := db.LoadSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", statsDB, err)
	}
	counts, err := db.CountByMaterialTitle(ctx)
	if err != nil {
		return err
	}

	return writeStats(os.Stdout, snap.LoadedAt, len(snap.Records), snap.Stats.Files, snap.Stats.FilesFailed, counts)
}

func writeStats(w io.Writer, loadedAt time.Time, records, files, filesFailed int, counts map[string]int) error {
	byTitle := make([]titleCount, 0, len(counts))
	for title, n := range counts {
		byTitle = append(byTitle, titleCount{title, n})
	}
	// Most common first; ties by title
	slices.SortFunc(byTitle, func(a, b titleCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.title, b.title)
	})

	fmt.Fprintf(w, "Loaded at:  %s\n", loadedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Records:    %d\n", records)
	fmt.Fprintf(w, "Files:      %d (%d skipped)\n", files, filesFailed)
	fmt.Fprintf(w, "\nMaterial titles (%d):\n", len(byTitle))
	for _, tc := range byTitle {
		fmt.Fprintf(w, "  %5d  %s\n", tc.count, tc.title)
	}
	return nil
}
