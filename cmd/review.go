package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/scorer"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	PromptOtherRole = "Other role..."
	PromptSkip      = "Skip"
	PromptQuit      = "Quit"
)

var errExit = errors.New("exit requested")

var reviewCmd = &cobra.Command{
	Use:   "review <file>...",
	Short: "Classify resumes and record reviewer corrections",
	Args:  cobra.MinimumNArgs(1),
	PreRun: func(cmd *cobra.Command, _ []string) {
		viper.BindPFlag("model.path", cmd.Flags().Lookup("model"))
	},
	Run: func(_ *cobra.Command, args []string) {
		review(args)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringP("model", "m", "", "model artifact to use instead of model.path")
}

func review(files []string) {
	ctx := context.Background()

	a := bootstrap(ctx)
	defer a.Close()
	a.loadModel(ctx)

	for _, file := range files {
		err := reviewFile(ctx, a, file)
		if errors.Is(err, errExit) {
			return
		}
		if err != nil {
			a.logger.Error("reviewing resume", zap.String("file", file), zap.Error(err))
		}
	}
}

func reviewFile(ctx context.Context, a *application, path string) error {
	res, err := classifyFile(ctx, a, path, 0)
	if err != nil {
		return err
	}

	// Retraining reads the document back from the archive.
	if !extract.Supported(path) || !a.config.Archive.SaveUploads {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading resume: %w", err)
		}
		if _, err := a.archive.Save(filepath.Base(path), data); err != nil {
			return fmt.Errorf("archiving resume: %w", err)
		}
	}

	fmt.Printf("\n%s\n", filepath.Base(path))
	printResult(os.Stdout, res)

	corrected, err := chooseRole(a, res)
	if err != nil {
		return err
	}
	if corrected == "" {
		a.logger.Info("resume skipped", zap.String("file", path))
		return nil
	}

	_, err = a.service.SubmitFeedback(ctx, feedback.Record{
		Filename:       filepath.Base(path),
		PredictedLabel: res.Label,
		CorrectedLabel: corrected,
		Confidence:     res.Confidence,
	})
	if err != nil {
		return fmt.Errorf("saving feedback: %w", err)
	}
	fmt.Printf("Feedback saved: %s -> %s\n", res.Label, corrected)
	return nil
}

// chooseRole asks the reviewer for the correct role. An empty role means the
// resume was skipped.
func chooseRole(a *application, res *scorer.Result) (string, error) {
	items := reviewChoices(res)
	items = append(items, PromptOtherRole, PromptSkip, PromptQuit)

	prompt := promptui.Select{
		Label: "Correct role?",
		Items: items,
		Size:  len(items),
	}
	_, choice, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", errExit
		}
		return "", err
	}

	switch choice {
	case PromptSkip:
		return "", nil
	case PromptQuit:
		return "", errExit
	case PromptOtherRole:
		return chooseCatalogRole(a.catalog.IDs())
	}
	return choice, nil
}

func chooseCatalogRole(roles []string) (string, error) {
	prompt := promptui.Select{
		Label: "Role",
		Items: roles,
		Size:  10,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(roles[index]), strings.ToLower(strings.TrimSpace(input)))
		},
		StartInSearchMode: true,
	}
	_, choice, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return "", errExit
		}
		return "", err
	}
	return choice, nil
}

// reviewChoices lists the predicted label first, then the remaining top matches.
func reviewChoices(res *scorer.Result) []string {
	choices := []string{res.Label}
	for _, role := range res.TopMatches.Roles() {
		if role != res.Label {
			choices = append(choices, role)
		}
	}
	return choices
}
