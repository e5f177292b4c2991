package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/scorer"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Classify a resume file and print the predicted role",
	Args:  cobra.ExactArgs(1),
	PreRun: func(cmd *cobra.Command, _ []string) {
		viper.BindPFlag("model.path", cmd.Flags().Lookup("model"))
	},
	Run: func(cmd *cobra.Command, args []string) {
		classify(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().IntP("top-n", "n", 0, "number of top matches to print (default scorer.top-n)")
	classifyCmd.Flags().StringP("model", "m", "", "model artifact to use instead of model.path")
	classifyCmd.Flags().BoolP("output-json", "o", false, "print the full result as JSON")
}

func classify(cmd *cobra.Command, path string) {
	ctx := context.Background()

	a := bootstrap(ctx)
	defer a.Close()
	a.loadModel(ctx)

	topN, _ := cmd.Flags().GetInt("top-n")
	res, err := classifyFile(ctx, a, path, topN)
	if err != nil {
		a.logger.Fatal("classifying resume", zap.String("file", path), zap.Error(err))
	}

	if asJSON, _ := cmd.Flags().GetBool("output-json"); asJSON {
		out, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			a.logger.Fatal("encoding result", zap.Error(err))
		}
		fmt.Println(string(out))
		return
	}
	printResult(os.Stdout, res)
}

// classifyFile reads a resume from disk. Documents go through extraction and
// the service records them in the history log; any other file is treated as
// already extracted text.
func classifyFile(ctx context.Context, a *application, path string, topN int) (*scorer.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resume: %w", err)
	}

	if extract.Supported(path) {
		return a.service.ClassifyDocument(ctx, filepath.Base(path), data, topN)
	}

	res, err := a.service.ClassifyText(ctx, string(data), topN)
	if err != nil {
		return nil, err
	}
	if err := a.history.Append(ctx, path, res); err != nil {
		a.logger.Warn("appending classification history", zap.Error(err))
	}
	return res, nil
}

func printResult(w io.Writer, res *scorer.Result) {
	fmt.Fprintf(w, "Predicted Role: %s (confidence %.4f, %s mode)\n", res.Label, res.Confidence, res.Mode)

	fmt.Fprintln(w, "Top Matches:")
	for _, m := range res.TopMatches {
		fmt.Fprintf(w, "  %s: %.4f\n", m.Role, m.Score)
	}

	fmt.Fprintln(w, "\nMatched Keywords:")
	roles := make([]string, 0, len(res.MatchedKeywords))
	for role, keywords := range res.MatchedKeywords {
		if len(keywords) > 0 {
			roles = append(roles, role)
		}
	}
	sort.Strings(roles)
	for _, role := range roles {
		fmt.Fprintf(w, "  %s: %s\n", role, strings.Join(res.MatchedKeywords[role], ", "))
	}
}
