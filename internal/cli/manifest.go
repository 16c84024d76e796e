package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/matmap/internal/catalog"
)

var (
	manifestOut  string
	manifestExts []string
)

// manifestCmd represents the manifest command
var manifestCmd = &cobra.Command{
	Use:   "manifest <dir>",
	Short: "Generate a manifest of the source files in a directory",
	Long: `Manifest lists the TOML/YAML/JSON source files of a directory, sorted by
name, with their modification time, and writes the file list consumed by
'matmap load'.

Example:
  matmap manifest data/ -o dist/file-list.json
  matmap manifest data/ --ext .toml`,
	Args: cobra.ExactArgs(1),
	RunE: runManifest,
}

func init() {
	rootCmd.AddCommand(manifestCmd)

	manifestCmd.Flags().StringVarP(&manifestOut, "output", "o", "-", "manifest path (- for stdout)")
	manifestCmd.Flags().StringSliceVar(&manifestExts, "ext", nil, "source file extensions to include (default: .toml,.yaml,.yml,.json)")
}

func runManifest(cmd *cobra.Command, args []string) (err error) {
	exts := make([]string, 0, len(manifestExts))
	for _, ext := range manifestExts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}

	entries, err := catalog.BuildManifest(args[0], exts)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if manifestOut != "-" {
		if err := os.MkdirAll(filepath.Dir(manifestOut), 0755); err != nil {
			return fmt.Errorf("create manifest directory: %w", err)
		}
		f, createErr := os.Create(manifestOut)
		if createErr != nil {
			return fmt.Errorf("create manifest: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close manifest: %w", closeErr)
			}
		}()
		w = f
	}

	if err := catalog.WriteManifest(w, entries); err != nil {
		return err
	}
	if manifestOut != "-" {
		fmt.Fprintf(os.Stderr, "✓ Wrote %d files to %s\n", len(entries), manifestOut)
	}
	return nil
}
