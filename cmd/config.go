package cmd

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"text/template"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var configForce bool

// configDirFunc returns the config directory path, replaceable in tests.
var configDirFunc = defaultConfigDir

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "glavred"), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Show or manage glavred configuration.

Running bare 'glavred config' is the same as 'glavred config show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with commented defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configInitRun()
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration with sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configShowRun()
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open config file in $EDITOR",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configEditRun()
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	rootCmd.AddCommand(configCmd)
}

// configTemplate is the template for generating config.yaml with comments.
const configTemplate = `# glavred configuration
# See: glavred config show (for effective values and sources)

# Evaluator backend
evaluator:
  # Provider: "callable" (remote HTTP functions) or "anthropic" (direct API)
  provider: "{{ .Provider }}"

  # Base URL of the callable functions host (required for the callable provider)
  base_url: "{{ .BaseURL }}"

  # Request timeout in seconds (default: 60)
  timeout_seconds: {{ .TimeoutSeconds }}

# Anthropic settings (used when provider is "anthropic")
anthropic:
  # API key (or set ANTHROPIC_API_KEY)
  api_key: "{{ .AnthropicAPIKey }}"

  # Model to use
  model: "{{ .AnthropicModel }}"

# Draft defaults applied to every session (see: glavred draft)
draft:
  tone: "{{ .DraftTone }}"
  platform: "{{ .DraftPlatform }}"
  language: "{{ .DraftLanguage }}"

# Diagnostic log of raw evaluator exchanges (off by default)
exchange_log:
  enabled: {{ .ExchangeLogEnabled }}
  # path: {{ .ExchangeLogPath }}
`

type configTemplateData struct {
	Provider           string
	BaseURL            string
	TimeoutSeconds     int
	AnthropicAPIKey    string
	AnthropicModel     string
	DraftTone          string
	DraftPlatform      string
	DraftLanguage      string
	ExchangeLogEnabled bool
	ExchangeLogPath    string
}

func configFilePath() (string, error) {
	dir, err := configDirFunc()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func configInitRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if file already exists
	if _, err := os.Stat(cfgPath); err == nil {
		if !configForce {
			return fmt.Errorf("config file already exists: %s (use --force to overwrite)", cfgPath)
		}
		ui.Warning("Overwriting existing config file")
	}

	// Build template data from current viper values
	data := configTemplateData{
		Provider:           viper.GetString("evaluator.provider"),
		BaseURL:            viper.GetString("evaluator.base_url"),
		TimeoutSeconds:     viper.GetInt("evaluator.timeout_seconds"),
		AnthropicAPIKey:    viper.GetString("anthropic.api_key"),
		AnthropicModel:     viper.GetString("anthropic.model"),
		DraftTone:          viper.GetString("draft.tone"),
		DraftPlatform:      viper.GetString("draft.platform"),
		DraftLanguage:      viper.GetString("draft.language"),
		ExchangeLogEnabled: viper.GetBool("exchange_log.enabled"),
		ExchangeLogPath:    viper.GetString("exchange_log.path"),
	}

	tmpl, err := template.New("config").Parse(configTemplate)
	if err != nil {
		return fmt.Errorf("template parse error: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("template execute error: %w", err)
	}

	// Create config directory
	dir := filepath.Dir(cfgPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(cfgPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Config file created: %s", cfgPath)
	fmt.Fprintln(ui.Out)
	fmt.Fprint(ui.Out, buf.String())
	return nil
}

// configKeyInfo describes a config key for display purposes.
type configKeyInfo struct {
	Key    string
	EnvVar string
}

var configKeys = []configKeyInfo{
	{Key: "evaluator.provider", EnvVar: "GLAVRED_EVALUATOR_PROVIDER"},
	{Key: "evaluator.base_url", EnvVar: "GLAVRED_EVALUATOR_BASE_URL"},
	{Key: "evaluator.timeout_seconds", EnvVar: "GLAVRED_EVALUATOR_TIMEOUT_SECONDS"},
	{Key: "anthropic.api_key", EnvVar: "GLAVRED_ANTHROPIC_API_KEY"},
	{Key: "anthropic.model", EnvVar: "GLAVRED_ANTHROPIC_MODEL"},
	{Key: "draft.tone", EnvVar: "GLAVRED_DRAFT_TONE"},
	{Key: "draft.platform", EnvVar: "GLAVRED_DRAFT_PLATFORM"},
	{Key: "draft.language", EnvVar: "GLAVRED_DRAFT_LANGUAGE"},
	{Key: "exchange_log.enabled", EnvVar: "GLAVRED_EXCHANGE_LOG_ENABLED"},
	{Key: "exchange_log.path", EnvVar: "GLAVRED_EXCHANGE_LOG_PATH"},
}

func configShowRun() error {
	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Check if config file exists
	if _, err := os.Stat(cfgPath); err == nil {
		ui.Info("Config file: %s", cfgPath)
	} else {
		ui.Info("Config file: (none)")
	}
	fmt.Fprintln(ui.Out)

	// Read config file values to determine file source
	fileValues := readConfigFileValues(cfgPath)

	for _, k := range configKeys {
		val := viper.Get(k.Key)
		if k.Key == "anthropic.api_key" && val != "" {
			val = "(set)"
		}
		source := detectSource(k.Key, k.EnvVar, fileValues)
		fmt.Fprintf(ui.Out, "  %-28s %v  %s\n", k.Key, val, source)
	}

	return nil
}

// readConfigFileValues reads the raw YAML file and returns a flat map of keys present in it.
func readConfigFileValues(path string) map[string]bool {
	result := make(map[string]bool)

	data, err := os.ReadFile(path)
	if err != nil {
		return result
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return result
	}

	// Flatten nested keys with dot notation
	flattenKeys("", parsed, result)
	return result
}

// flattenKeys recursively flattens a nested map to dot-notation keys.
func flattenKeys(prefix string, m map[string]any, result map[string]bool) {
	for key, val := range m {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := val.(map[string]any); ok {
			flattenKeys(fullKey, nested, result)
		} else {
			result[fullKey] = true
		}
	}
}

// detectSource determines where a config value is coming from.
func detectSource(key, envVar string, fileValues map[string]bool) string {
	if _, ok := os.LookupEnv(envVar); ok {
		return fmt.Sprintf("(env: %s)", envVar)
	}
	if fileValues[key] {
		return "(file)"
	}
	return "(default)"
}

func configEditRun() error {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = os.Getenv("VISUAL")
	}
	if editor == "" {
		return fmt.Errorf("$EDITOR is not set — set it to your preferred editor (e.g. export EDITOR=vim)")
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s (run 'glavred config init' first)", cfgPath)
	}

	editCmd := exec.Command(editor, cfgPath)
	editCmd.Stdin = os.Stdin
	editCmd.Stdout = os.Stdout
	editCmd.Stderr = os.Stderr
	return editCmd.Run()
}
