package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.3.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "matmap",
	Short: "Matmap - material card catalog loader and index",
	Long: `Matmap builds a searchable catalog of LS-DYNA material and EOS cards.

It reads a manifest of TOML/YAML/JSON source files, extracts the keyword
title of every card, resolves titles to short codes through the material,
EOS and thermal dictionaries, and derives the filter dimensions used to
select records.

Sources may be local paths, file:// URLs or http(s) URLs.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of matmap.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("matmap v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.matmap/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Source and fetch flags shared by every command that loads the catalog
	flags.String("manifest", "", "manifest location (path or URL)")
	flags.String("data-base", "", "base location joined with each manifest filename")
	flags.String("material-dict", "", "material dictionary location")
	flags.String("eos-dict", "", "EOS dictionary location")
	flags.String("thermal-dict", "", "thermal dictionary location")
	flags.Duration("file-timeout", 0, "timeout per source file")
	flags.Int("workers", 0, "concurrent source file fetches")
	flags.Bool("no-cache", false, "disable cache (force fresh fetch)")
	flags.Bool("insecure", false, "skip TLS certificate verification (use for self-signed certs)")
	flags.String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	flags.String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	flags.Bool("respect-robots", false, "honour robots.txt for remote sources")
	flags.String("log-level", "", "log level (debug, info, warn, error)")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("sources.manifest", flags.Lookup("manifest"))
	_ = viper.BindPFlag("sources.data_base", flags.Lookup("data-base"))
	_ = viper.BindPFlag("sources.material_dictionary", flags.Lookup("material-dict"))
	_ = viper.BindPFlag("sources.eos_dictionary", flags.Lookup("eos-dict"))
	_ = viper.BindPFlag("sources.thermal_dictionary", flags.Lookup("thermal-dict"))
	_ = viper.BindPFlag("sources.file_timeout", flags.Lookup("file-timeout"))
	_ = viper.BindPFlag("concurrency.workers", flags.Lookup("workers"))
	_ = viper.BindPFlag("http.insecure_tls", flags.Lookup("insecure"))
	_ = viper.BindPFlag("http.http_proxy", flags.Lookup("http-proxy"))
	_ = viper.BindPFlag("http.https_proxy", flags.Lookup("https-proxy"))
	_ = viper.BindPFlag("http.respect_robots", flags.Lookup("respect-robots"))
	_ = viper.BindPFlag("logging.level", flags.Lookup("log-level"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	setDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(filepath.Join(home, ".matmap"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match MATMAP_*, e.g.
	// MATMAP_SOURCES_MANIFEST for sources.manifest
	viper.SetEnvPrefix("MATMAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}
