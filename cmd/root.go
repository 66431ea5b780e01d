package cmd

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.3.0"

var (
	cfgFile    string
	repoRoot   string
	projectKey string
	language   string
	dbPath     string
	verbose    bool

	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "hf-translation-hub",
	Short: "AI-assisted documentation translation for Hugging Face projects",
	Long: `hf-translation-hub drives the full documentation translation workflow:
discover untranslated files, build protected prompts, translate through an
LLM backend, validate the output, save it into the docs tree, and open a
draft pull request upstream.

Use "hf-translation-hub translate --help" for the main pipeline options.`,
	Version: version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./hf-translation-hub.yaml)")
	rootCmd.PersistentFlags().StringVar(&repoRoot, "root", ".", "documentation repository checkout")
	rootCmd.PersistentFlags().StringVarP(&projectKey, "project", "p", "transformers", "documentation project")
	rootCmd.PersistentFlags().StringVarP(&language, "language", "l", "ko", "target language code")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "translation-hub.db", "run history database path (empty to disable)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("project", rootCmd.PersistentFlags().Lookup("project"))
	viper.BindPFlag("language", rootCmd.PersistentFlags().Lookup("language"))
	viper.BindPFlag("db", rootCmd.PersistentFlags().Lookup("db"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("hf-translation-hub")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/hf-translation-hub")
	}

	viper.SetEnvPrefix("HTH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		// Logged later once the logger exists; keep the path around.
		viper.Set("config_file_used", viper.ConfigFileUsed())
	}
}

func initLogging() {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if used := viper.GetString("config_file_used"); used != "" {
		log.Debug().Str("config", used).Msg("loaded configuration")
	}
}
