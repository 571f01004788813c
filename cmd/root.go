package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vendeza/Glavred/internal/analyzer"
	"github.com/vendeza/Glavred/internal/exchangelog"
	"github.com/vendeza/Glavred/internal/models"
	"github.com/vendeza/Glavred/internal/output"
	"github.com/vendeza/Glavred/internal/workspace"
)

// Package-level shared dependencies, initialized in cobra.OnInitialize.
var (
	ui *output.UI

	verbose bool

	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootCmd = &cobra.Command{
	Use:   "glavred",
	Short: "Glavred - compose, score, and improve social media posts",
	Long: `glavred is an editor's desk for short-form posts.
It scores a draft against eleven virality and quality metrics, lists
the issues holding it back, and rewrites the post to fix the ones you
pick. Scoring and rewriting run against a remote evaluator.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	DisableAutoGenTag: true,
}

// Execute is the main entry point called from main.go.
func Execute(version, commit, date string) {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig, initDeps)

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.config/glavred/config.yaml)")
}

func initConfig() {
	// If --config is explicitly set, use that file
	if cfgFile, _ := rootCmd.PersistentFlags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot find home directory: %v\n", err)
			os.Exit(1)
		}

		configDir := filepath.Join(home, ".config", "glavred")
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("GLAVRED")
	viper.AutomaticEnv()

	// Defaults via viper.SetDefault()
	home, _ := os.UserHomeDir()
	defaultConfigDir := filepath.Join(home, ".config", "glavred")

	viper.SetDefault("evaluator.provider", "callable")
	viper.SetDefault("evaluator.base_url", "")
	viper.SetDefault("evaluator.analyze_function", analyzer.DefaultAnalyzeFunction)
	viper.SetDefault("evaluator.apply_function", analyzer.DefaultApplyFunction)
	viper.SetDefault("evaluator.timeout_seconds", 60)
	viper.SetDefault("anthropic.api_key", "")
	viper.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	viper.SetDefault("draft.platform", "")
	viper.SetDefault("draft.goal", "")
	viper.SetDefault("draft.target_audience", "")
	viper.SetDefault("draft.tone", "")
	viper.SetDefault("draft.language", "")
	viper.SetDefault("draft.max_length", 0)
	viper.SetDefault("draft.post_type", "")
	viper.SetDefault("draft.brand_persona", "")
	viper.SetDefault("exchange_log.enabled", false)
	viper.SetDefault("exchange_log.path", filepath.Join(defaultConfigDir, "exchanges.db"))

	// Read config file if it exists (optional)
	_ = viper.ReadInConfig()
}

func initDeps() {
	ui = output.New()
	ui.Verbose = verbose
}

// newClient builds the evaluator client from config: the callable HTTP
// transport by default, or the direct Anthropic provider. When the exchange
// log is enabled, the client is wrapped to record every call.
func newClient() (analyzer.Client, error) {
	var client analyzer.Client

	switch provider := viper.GetString("evaluator.provider"); provider {
	case "callable":
		baseURL := viper.GetString("evaluator.base_url")
		if baseURL == "" {
			return nil, fmt.Errorf("evaluator.base_url is not set (run 'glavred config init' and edit the config)")
		}
		client = analyzer.NewCallableClient(baseURL,
			analyzer.WithTimeout(time.Duration(viper.GetInt("evaluator.timeout_seconds"))*time.Second),
			analyzer.WithFunctionNames(
				viper.GetString("evaluator.analyze_function"),
				viper.GetString("evaluator.apply_function"),
			),
		)
	case "anthropic":
		apiKey := viper.GetString("anthropic.api_key")
		if apiKey == "" {
			apiKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic.api_key is not set (config or ANTHROPIC_API_KEY)")
		}
		client = analyzer.NewAnthropicClient(apiKey, viper.GetString("anthropic.model"))
	default:
		return nil, fmt.Errorf("unknown evaluator.provider: %q (must be callable or anthropic)", provider)
	}

	if viper.GetBool("exchange_log.enabled") {
		logPath := viper.GetString("exchange_log.path")
		xlog, err := exchangelog.Open(logPath)
		if err != nil {
			return nil, fmt.Errorf("open exchange log: %w", err)
		}
		ui.VerboseLog("Recording evaluator exchanges to %s", logPath)
		client = exchangelog.Wrap(client, xlog)
	}

	return client, nil
}

// newWorkspace builds a workspace seeded with the draft defaults from config.
func newWorkspace() (*workspace.Workspace, error) {
	client, err := newClient()
	if err != nil {
		return nil, err
	}
	ws := workspace.New(client)
	ws.UpdateDraft(configDraftDefaults())
	return ws, nil
}

// configDraftDefaults maps the draft.* config keys onto a patch. Unset keys
// stay nil so they do not overwrite anything.
func configDraftDefaults() *models.DraftPatch {
	patch := &models.DraftPatch{}
	setStr := func(dst **string, key string) {
		if v := viper.GetString(key); v != "" {
			*dst = &v
		}
	}
	setStr(&patch.Platform, "draft.platform")
	setStr(&patch.Goal, "draft.goal")
	setStr(&patch.TargetAudience, "draft.target_audience")
	setStr(&patch.Tone, "draft.tone")
	setStr(&patch.Language, "draft.language")
	setStr(&patch.PostType, "draft.post_type")
	setStr(&patch.BrandPersona, "draft.brand_persona")
	if v := viper.GetInt("draft.max_length"); v != 0 {
		patch.MaxLength = &v
	}
	return patch
}
