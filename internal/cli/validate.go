package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HayatoBr/YTStudioAI/internal/config"
	"github.com/HayatoBr/YTStudioAI/internal/script"
	"github.com/HayatoBr/YTStudioAI/internal/subtitle"
)

// ValidateCmd creates the validate command.
// The env parameter provides injectable dependencies for testing.
func ValidateCmd(env *Env) *cobra.Command {
	var (
		strict bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "validate <script.json>",
		Short: "Validate subtitle chunks in a script file",
		Long: `Validate the subtitle chunks of a generated script.

Every chunk is normalized and checked against the content rules
(word count, length, uppercase, no emojis). Validation is corrective:
offending chunks are fixed or replaced, never rejected, and each
adjustment is reported.

With --strict, duplicate and generic filler chunks are also replaced.
With --output, the sanitized script is written out as JSON.`,
		Example: `  ytstudio validate script.json
  ytstudio validate script.json --strict
  ytstudio validate script.json -o script.fixed.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(env, args[0], strict, output)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Apply strict content rules (duplicates, generic fillers)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the sanitized script to this path")

	return cmd
}

// runValidate executes the validation pass and prints the report.
func runValidate(env *Env, inputPath string, strict bool, output string) error {
	raw, err := os.ReadFile(inputPath) // #nosec G304 -- user-specified input file
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, inputPath)
		}
		return fmt.Errorf("cannot read script: %w", err)
	}

	var s script.Script
	if err := json.Unmarshal(raw, &s); err != nil {
		return fmt.Errorf("cannot parse script: %w", err)
	}
	if len(s.Scenes) == 0 {
		return fmt.Errorf("%w: script has no scenes", ErrEmptyInput)
	}

	settings := config.LoadSettings(env.Getenv)
	strict = strict || settings.Strict

	// A script without chunk material gets them split from the narration
	// first, so the validator always has something to work on.
	if !hasChunks(s) {
		s.AssignChunks(settings.SubMaxChars)
	}

	validated, report := subtitle.ValidateScenes(
		s.SubtitleScenes(), subtitle.DefaultRules(), strictRules(strict))
	s.ApplyScenes(validated)

	fmt.Fprintln(env.Stdout, report.Summary())
	for _, issue := range report.Issues {
		if issue.Fixed != "" {
			fmt.Fprintf(env.Stdout, "  scene %d chunk %d [%s]: %q -> %q\n",
				issue.SceneID, issue.ChunkIndex, issue.Code, issue.Original, issue.Fixed)
		} else {
			fmt.Fprintf(env.Stdout, "  scene %d chunk %d [%s]: %s\n",
				issue.SceneID, issue.ChunkIndex, issue.Code, issue.Message)
		}
	}

	if output != "" {
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("encode script: %w", err)
		}
		if err := writeFileAtomic(output, append(data, '\n')); err != nil {
			return err
		}
		fmt.Fprintf(env.Stderr, "Wrote: %s\n", output)
	}

	return nil
}

// hasChunks reports whether any scene carries subtitle chunks.
func hasChunks(s script.Script) bool {
	for _, sc := range s.Scenes {
		if len(sc.SubtitleChunks) > 0 {
			return true
		}
	}
	return false
}

// strictRules returns the strict rule set, zeroed when strict mode is off.
func strictRules(strict bool) subtitle.StrictRules {
	if !strict {
		return subtitle.StrictRules{}
	}
	return subtitle.DefaultStrictRules()
}
