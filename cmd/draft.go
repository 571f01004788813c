package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vendeza/Glavred/internal/models"
)

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Show or set the draft tuning defaults",
	Long: `Show or set the default tuning parameters applied to every session.

Running bare 'glavred draft' is the same as 'glavred draft show'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftShowRun()
	},
}

var draftShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective draft defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftShowRun()
	},
}

var draftSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a draft default in the config file",
	Long: `Set a draft default in the config file.

Keys: platform, goal, target_audience, tone, language, max_length,
post_type, brand_persona.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return draftSetRun(args[0], args[1])
	},
}

func init() {
	draftCmd.AddCommand(draftShowCmd)
	draftCmd.AddCommand(draftSetCmd)
	rootCmd.AddCommand(draftCmd)
}

func draftShowRun() error {
	var draft models.PostDraft
	configDraftDefaults().Apply(&draft)
	ui.RenderDraftSummary(draft)
	return nil
}

var draftKeys = map[string]bool{
	"platform":        true,
	"goal":            true,
	"target_audience": true,
	"tone":            true,
	"language":        true,
	"max_length":      true,
	"post_type":       true,
	"brand_persona":   true,
}

func draftSetRun(key, value string) error {
	if !draftKeys[key] {
		return fmt.Errorf("unknown draft key: %s", key)
	}

	cfgPath, err := configFilePath()
	if err != nil {
		return err
	}

	// Load whatever is in the config file already; a missing file is fine.
	cfg := map[string]any{}
	if data, err := os.ReadFile(cfgPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("parse config file: %w", err)
		}
	}

	section, _ := cfg["draft"].(map[string]any)
	if section == nil {
		section = map[string]any{}
	}
	if key == "max_length" {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("max_length must be a number: %q", value)
		}
		section[key] = n
	} else {
		section[key] = value
	}
	cfg["draft"] = section

	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(cfgPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(cfgPath, out, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	ui.Success("Set draft.%s = %s", key, value)
	return nil
}
