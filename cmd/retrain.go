package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/retrain"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var retrainCmd = &cobra.Command{
	Use:   "retrain",
	Short: "Train a supervised model from the collected feedback and publish it",
	Run: func(cmd *cobra.Command, _ []string) {
		runRetrain(cmd)
	},
}

func init() {
	rootCmd.AddCommand(retrainCmd)

	retrainCmd.Flags().Bool("dry-run", false, "train and print the report without publishing the model")
}

func runRetrain(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := getConfig()
	if err != nil {
		log.Fatalf("getting a config: %s", err)
	}
	logger := newLogger(config)
	defer logger.Sync()

	ledger, err := newLedger(ctx, config.Feedback, logger)
	if err != nil {
		logger.Fatal("opening feedback ledger", zap.Error(err))
	}
	defer ledger.Close()

	read, err := ledger.ReadAll(ctx)
	if err != nil {
		logger.Fatal("reading feedback", zap.Error(err))
	}
	if read.Skipped > 0 {
		logger.Warn("malformed feedback rows skipped", zap.Int("skipped", read.Skipped))
	}
	logger.Info("feedback loaded", zap.Int("records", len(read.Records)))

	archive := &extract.Archive{
		Dir:       config.Archive.Dir,
		Extractor: extract.New(config.Extract.MinLength, config.Extract.Timeout),
	}
	trainer := retrain.New(retrain.Config{
		MaxFeatures: config.Retrain.MaxFeatures,
		MaxIter:     config.Retrain.MaxIter,
		TestRatio:   config.Retrain.TestRatio,
		Seed:        config.Retrain.Seed,
		MinMacroF1:  config.Retrain.MinMacroF1,
	}, archive, logger)

	out, err := trainer.Train(ctx, read.Records)
	if out != nil {
		printOutcome(out)
	}

	var gateErr *retrain.QualityGateError
	var dataErr *retrain.InsufficientDataError
	switch {
	case errors.As(err, &gateErr):
		logger.Fatal("model rejected by quality gate, nothing published", zap.Error(err))
	case errors.As(err, &dataErr):
		logger.Fatal("not enough feedback to retrain",
			zap.Int("samples", dataErr.Samples),
			zap.Int("classes", dataErr.Classes),
			zap.Error(err),
		)
	case err != nil:
		logger.Fatal("retraining failed", zap.Error(err))
	}

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		logger.Info("dry run, model not published")
		return
	}

	if err := retrain.Publish(config.Model.Path, out.Pipeline); err != nil {
		logger.Fatal("publishing model", zap.Error(err))
	}
	logger.Info("model published", zap.String("path", config.Model.Path))

	if url := config.Retrain.ReloadURL; url != "" {
		client := &http.Client{Timeout: 30 * time.Second}
		if err := retrain.NotifyReload(ctx, client, url); err != nil {
			logger.Error("notifying server about the new model", zap.String("url", url), zap.Error(err))
			return
		}
		logger.Info("server reloaded the model", zap.String("url", url))
	}
}

func printOutcome(out *retrain.Outcome) {
	for _, step := range out.Steps {
		fmt.Printf("%-16s %d -> %d (dropped %d)\n", step.Name, step.Initial, step.Left, step.Dropped)
	}
	for _, u := range out.Unresolved {
		fmt.Printf("unresolved: %s\n", u.Error())
	}
	fmt.Printf("train samples: %d, test samples: %d\n", out.TrainSize, out.TestSize)

	if out.Report != nil {
		fmt.Println("\nClassification Report:")
		fmt.Println(out.Report.String())
	}
}
