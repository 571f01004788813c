package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vendeza/Glavred/internal/models"
)

var (
	analyzeFile string
	analyzeJSON bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [post]",
	Short: "Score a post draft and list its issues",
	Long: `Score a post against eleven virality and quality metrics.

The post comes from the argument, --file, or stdin, in that order.
Tuning flags override the draft defaults from config for this run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return analyzeRun(cmd, args)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Read the post from a file")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Print the evaluation as JSON")
	addTuningFlags(analyzeCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// addTuningFlags registers the evaluator tuning flags shared by analyze and fix.
func addTuningFlags(cmd *cobra.Command) {
	cmd.Flags().String("platform", "", "Target platform (twitter, linkedin, threads, ...)")
	cmd.Flags().String("goal", "", "What the post should achieve (replies, likes, reach, ...)")
	cmd.Flags().String("audience", "", "Target audience")
	cmd.Flags().String("tone", "", "Desired tone (casual, authoritative, playful, ...)")
	cmd.Flags().String("language", "", "Post language")
	cmd.Flags().Int("max-length", 0, "Maximum post length in characters")
	cmd.Flags().String("type", "", "Post type (thread_opener, hot_take, story, ...)")
	cmd.Flags().String("persona", "", "Persona handle to write as (e.g. @naval)")
	cmd.Flags().StringSlice("ref-handle", nil, "Reference Twitter handle to imitate (repeatable)")
	cmd.Flags().StringSlice("ref-text", nil, "Reference post text to imitate (repeatable)")
}

// tuningPatch builds a draft patch from the tuning flags the user actually set.
func tuningPatch(cmd *cobra.Command) *models.DraftPatch {
	patch := &models.DraftPatch{}
	flags := cmd.Flags()

	setStr := func(dst **string, name string) {
		if flags.Changed(name) {
			v, _ := flags.GetString(name)
			*dst = &v
		}
	}
	setStr(&patch.Platform, "platform")
	setStr(&patch.Goal, "goal")
	setStr(&patch.TargetAudience, "audience")
	setStr(&patch.Tone, "tone")
	setStr(&patch.Language, "language")
	setStr(&patch.PostType, "type")
	setStr(&patch.BrandPersona, "persona")
	if flags.Changed("max-length") {
		v, _ := flags.GetInt("max-length")
		patch.MaxLength = &v
	}
	if flags.Changed("ref-handle") {
		v, _ := flags.GetStringSlice("ref-handle")
		patch.ReferenceTwitterHandles = &v
	}
	if flags.Changed("ref-text") {
		v, _ := flags.GetStringSlice("ref-text")
		patch.ReferenceTexts = &v
	}
	return patch
}

// readPost resolves the post text: positional argument, --file, or stdin.
func readPost(args []string, file string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return strings.TrimSpace(args[0]), nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read post file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read post from stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	post, err := readPost(args, analyzeFile)
	if err != nil {
		return err
	}

	ws, err := newWorkspace()
	if err != nil {
		return err
	}
	ws.SetPost(post)
	ws.UpdateDraft(tuningPatch(cmd))

	ui.VerboseLog("Analyzing %d characters", len(post))
	resp, err := ws.Analyze(cmd.Context(), nil)
	if err != nil {
		return err
	}
	evaluation := resp.Evaluation

	if analyzeJSON {
		data, err := json.MarshalIndent(evaluation, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, string(data))
		return nil
	}

	if evaluation.Summary != "" {
		ui.Info("%s", evaluation.Summary)
		fmt.Fprintln(ui.Out)
	}
	ui.RenderScores(evaluation.Scores)
	fmt.Fprintln(ui.Out)
	ui.RenderIssues(evaluation.Issues)
	return nil
}
