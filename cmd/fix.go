package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vendeza/Glavred/internal/workspace"
)

var (
	fixFile      string
	fixIssues    string
	fixMinImpact float64
	fixOut       string
	fixJSON      bool
)

var fixCmd = &cobra.Command{
	Use:   "fix [post]",
	Short: "Analyze a post and rewrite it to fix its issues",
	Long: `Analyze a post, then rewrite it to fix reported issues in one run.

By default every reported issue is fixed. Use --issues to pick specific
issue IDs, or --min-impact to fix only issues above a score impact
threshold. The rewritten post is printed, and --out writes it to a file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return fixRun(cmd, args)
	},
}

func init() {
	fixCmd.Flags().StringVarP(&fixFile, "file", "f", "", "Read the post from a file")
	fixCmd.Flags().StringVar(&fixIssues, "issues", "", "Comma-separated issue IDs to fix (default: all)")
	fixCmd.Flags().Float64Var(&fixMinImpact, "min-impact", 0, "Fix only issues with at least this score impact")
	fixCmd.Flags().StringVarP(&fixOut, "out", "o", "", "Write the rewritten post to a file")
	fixCmd.Flags().BoolVar(&fixJSON, "json", false, "Print the result as JSON")
	addTuningFlags(fixCmd)
	rootCmd.AddCommand(fixCmd)
}

func fixRun(cmd *cobra.Command, args []string) error {
	post, err := readPost(args, fixFile)
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

	if len(evaluation.Issues) == 0 {
		ui.Success("No issues reported (score %.0f). Nothing to fix.", evaluation.Scores.Total)
		return nil
	}

	// Select the issues to fix.
	switch {
	case fixIssues != "":
		for _, id := range strings.Split(fixIssues, ",") {
			if id = strings.TrimSpace(id); id != "" {
				ws.SelectIssue(id)
			}
		}
	case fixMinImpact > 0:
		for _, issue := range evaluation.Issues {
			if issue.ScoreImpact >= fixMinImpact {
				ws.SelectIssue(issue.ID)
			}
		}
	default:
		ws.SelectAllIssues()
	}

	selected := ws.SelectedIssueIDs()
	if len(selected) == 0 {
		return fmt.Errorf("no issues matched the selection (%d reported)", len(evaluation.Issues))
	}
	changes := ws.ChangesForSelection()

	ui.VerboseLog("Rewriting to fix %d of %d issues", len(selected), len(evaluation.Issues))
	applyResp, err := ws.ApplyChanges(cmd.Context(), &workspace.ApplyOverrides{Changes: changes})
	if err != nil {
		return err
	}
	ws.RemoveIssues(selected)

	if fixOut != "" {
		if err := os.WriteFile(fixOut, []byte(applyResp.UpdatedPost+"\n"), 0644); err != nil {
			return fmt.Errorf("write rewritten post: %w", err)
		}
	}

	if fixJSON {
		result := map[string]any{
			"updated_post": applyResp.UpdatedPost,
			"change_log":   applyResp.ChangeLog,
			"warnings":     applyResp.Warnings,
			"evaluation":   ws.Evaluation(),
			"versions":     ws.Versions(),
		}
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(ui.Out, string(data))
		return nil
	}

	ui.RenderChangeLog(applyResp.ChangeLog, applyResp.Warnings)
	fmt.Fprintln(ui.Out)
	ui.Success("Rewritten post:")
	fmt.Fprintln(ui.Out, applyResp.UpdatedPost)
	if fixOut != "" {
		ui.Info("Saved to %s", fixOut)
	}
	fmt.Fprintln(ui.Out)
	ui.RenderVersions(ws.Versions())
	return nil
}
