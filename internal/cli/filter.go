package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/matmap/internal/catalog"
	"github.com/ppiankov/matmap/internal/model"
	"github.com/ppiankov/matmap/internal/search"
	"github.com/ppiankov/matmap/internal/storage"
)

var (
	selectMaterials []string
	selectEOS       []string
	outputFormat    string
	snapshotDB      string
)

// filterCmd represents the filter command
var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Print the records matching a material/EOS selection",
	Long: `Filter loads the catalog and prints the records that pass the selection.

Values within one dimension are alternatives; a record must pass both
dimensions. A dimension with no values selects everything. With --db the
catalog saved by 'matmap load --db' is read instead of the sources.

Example:
  matmap filter --material "*MAT_JOHNSON_COOK" --material "*MAT_PLASTIC_KINEMATIC"
  matmap filter --eos "*EOS_GRUNEISEN" --output json
  matmap filter --db matmap.db --material "*MAT_ELASTIC"`,
	Args: cobra.NoArgs,
	RunE: runFilter,
}

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Print the filter dimensions of the catalog",
	Long: `Index loads the catalog and prints the distinct material tokens and EOS titles, sorted.

With --db the catalog saved by 'matmap load --db' is read instead of the sources.`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(indexCmd)

	filterCmd.Flags().StringArrayVar(&selectMaterials, "material", nil, "material token to select (repeatable)")
	filterCmd.Flags().StringArrayVar(&selectEOS, "eos", nil, "EOS title to select (repeatable)")
	filterCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	indexCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
	filterCmd.Flags().DurationVar(&loadTimeout, "timeout", 2*time.Minute, "overall load timeout")
	indexCmd.Flags().DurationVar(&loadTimeout, "timeout", 2*time.Minute, "overall load timeout")
	filterCmd.Flags().StringVar(&snapshotDB, "db", "", "read the catalog saved in a SQLite database instead of loading sources")
	indexCmd.Flags().StringVar(&snapshotDB, "db", "", "read the catalog saved in a SQLite database instead of loading sources")
}

// catalogSnapshot returns the catalog saved in --db, or loads it from the
// configured sources
func catalogSnapshot(ctx context.Context) (*catalog.Snapshot, func(), error) {
	if snapshotDB != "" {
		snap, err := readSnapshot(ctx, snapshotDB)
		return snap, func() {}, err
	}

	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}
	snap, err := a.load(ctx)
	if err != nil {
		a.close()
		return nil, nil, err
	}
	return snap, a.close, nil
}

func readSnapshot(ctx context.Context, path string) (*catalog.Snapshot, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db, err := storage.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	snap, err := db.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return snap, nil
}

func runFilter(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()

	snap, done, err := catalogSnapshot(ctx)
	if err != nil {
		return err
	}
	defer done()

	records := snap.Filter(selectMaterials, selectEOS)
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d of %d records match\n", len(records), len(snap.Records))
	}

	switch outputFormat {
	case "json":
		return writeJSON(os.Stdout, records)
	case "yaml":
		return writeYAML(os.Stdout, records)
	case "table":
		return writeRecordTable(os.Stdout, records)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), loadTimeout)
	defer cancel()

	snap, done, err := catalogSnapshot(ctx)
	if err != nil {
		return err
	}
	defer done()

	switch outputFormat {
	case "json":
		return writeJSON(os.Stdout, snap.Index)
	case "yaml":
		return writeYAML(os.Stdout, snap.Index)
	case "table":
		return writeIndex(os.Stdout, snap.Index)
	default:
		return fmt.Errorf("unknown output format %q", outputFormat)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func writeRecordTable(w io.Writer, records []*model.NormalizedRecord) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MATERIAL\tCODE\tHEADING\tEOS\tEOS CODE\tAPPLICATIONS\tSOURCE")
	for _, rec := range records {
		heading := rec.MaterialHeading
		if heading == "" {
			heading = model.Unresolved
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s:%d\n",
			rec.MaterialTitle, rec.MaterialCode, heading,
			rec.EOSTitle, rec.EOSCode,
			strings.Join(rec.Applications, ","),
			rec.Origin.File, rec.Origin.Position+1)
	}
	return tw.Flush()
}

func writeIndex(w io.Writer, idx search.FilterIndex) error {
	fmt.Fprintf(w, "Material tokens (%d):\n", len(idx.MaterialTokens))
	for _, tok := range idx.MaterialTokens {
		fmt.Fprintf(w, "  %s\n", tok)
	}
	fmt.Fprintf(w, "\nEOS titles (%d):\n", len(idx.EOSTitles))
	for _, title := range idx.EOSTitles {
		fmt.Fprintf(w, "  %s\n", title)
	}
	return nil
}
