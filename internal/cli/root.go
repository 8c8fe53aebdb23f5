package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mfadeev/grantmatch/internal/model"
)

var (
	cfgFile  string
	verbose  bool
	jsonLogs bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "grantmatch",
	Short: "GrantMatch - researcher-to-funding-opportunity matching",
	Long: `GrantMatch matches researcher profiles against funding opportunities
from NSF, DOE, Grants.gov and other sources.

It normalizes raw agency records, scores topical fit with embeddings,
optionally refines the strongest candidates with a budgeted LLM fit
judge, ranks deterministically, and drafts five-section proposal
outlines for the best matches.

Matching runs fully offline by default; the fit judge and draft
generation talk to a text-generation service and are explicit opt-ins.`,
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
	Long:  `Display the version number for GrantMatch.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("grantmatch v0.1.0")
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.grantmatch.yaml or ./grantmatch.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit structured logs as JSON")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("json_logs", rootCmd.PersistentFlags().Lookup("json-logs"))

	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".grantmatch")
		viper.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
	}

	// Read in environment variables that match GRANTMATCH_*
	viper.SetEnvPrefix("GRANTMATCH")
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil && cfgFile == "" {
		// Accept ./grantmatch.yaml without the leading dot too.
		viper.SetConfigName("grantmatch")
		err = viper.ReadInConfig()
	}
	if err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig builds the engine configuration: defaults, then the config file
// viper located, then GRANTMATCH_* environment overrides. API keys and flag
// overrides are applied by the individual commands.
func loadConfig() (model.Config, error) {
	cfg := model.DefaultConfig()

	if file := viper.ConfigFileUsed(); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", file, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", file, err)
		}
	}

	// Environment overrides (GRANTMATCH_WORKERS, GRANTMATCH_LLM_PROVIDER, ...)
	if v := viper.GetInt("workers"); v > 0 {
		cfg.Concurrency.Workers = v
	}
	if v := viper.GetString("llm_provider"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := viper.GetString("llm_model"); v != "" {
		cfg.LLM.Model = v
	}
	if v := viper.GetString("embedding_provider"); v != "" {
		cfg.Embedding.Provider = v
	}

	return cfg, nil
}
