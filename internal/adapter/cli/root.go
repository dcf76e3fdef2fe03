package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bkyoung/review-quorum/internal/usecase/review"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// FileReviewer defines the dependency required to run the file command.
type FileReviewer interface {
	ReviewFile(ctx context.Context, req review.FileRequest) (review.FileReport, error)
}

// RunSummary is one persisted review run as shown by `rq runs`.
type RunSummary struct {
	RunID          string
	CreatedAt      time.Time
	Path           string
	TotalFindings  int
	AgreementScore float64
	TotalCost      float64
}

// RunLister lists persisted review runs, most recent first.
type RunLister interface {
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	FileReviewer  FileReviewer
	RunLister     RunLister // Optional: nil hides the runs command
	Args          Arguments
	DefaultOutput string
	DefaultFormat string
	Version       string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0"
	}

	root := &cobra.Command{
		Use:   "rq",
		Short: "Multi-provider consensus code review CLI",
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Run a code review",
	}
	reviewCmd.AddCommand(fileCommand(deps.FileReviewer, deps.DefaultOutput, deps.DefaultFormat))
	root.AddCommand(reviewCmd)

	if deps.RunLister != nil {
		root.AddCommand(runsCommand(deps.RunLister))
	}

	var showVersion bool
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")
	versionHandler := func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		return nil
	}
	root.PersistentPreRunE = versionHandler
	root.PreRunE = versionHandler
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if err := versionHandler(cmd, args); err != nil {
			return err
		}
		return cmd.Help()
	}

	return root
}

func fileCommand(fileReviewer FileReviewer, defaultOutput, defaultFormat string) *cobra.Command {
	var ref string
	var outputDir string
	var format string
	var providers []string

	cmd := &cobra.Command{
		Use:   "file <path>",
		Short: "Review a single file with every enabled provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := fileReviewer.ReviewFile(cmd.Context(), review.FileRequest{
				Path:      args[0],
				Ref:       ref,
				OutputDir: outputDir,
				Format:    format,
				Providers: providers,
			})
			if err != nil {
				return err
			}

			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}

	cmd.Flags().StringVar(&ref, "ref", "", "Review the file as committed at this git reference instead of the working tree")
	if defaultOutput == "" {
		defaultOutput = "out"
	}
	cmd.Flags().StringVar(&outputDir, "output", defaultOutput, "Directory to write review artifacts")
	if defaultFormat == "" {
		defaultFormat = "markdown"
	}
	cmd.Flags().StringVar(&format, "format", defaultFormat, "Artifact format: markdown, json, or all")
	cmd.Flags().StringSliceVar(&providers, "provider", nil, "Restrict the review to these providers (can be repeated)")

	return cmd
}

func printReport(out io.Writer, report review.FileReport) {
	agg := report.Result.Aggregation
	meta := report.Result.Meta

	_, _ = fmt.Fprintf(out, "Reviewed %s with %d provider(s)\n",
		report.Result.CodeContext.Path, len(report.Result.Results))
	_, _ = fmt.Fprintf(out, "Findings: %d total, %d consensus group(s), agreement %.2f\n",
		agg.TotalFindings, len(agg.ConsensusFindings), agg.AgreementScore)
	_, _ = fmt.Fprintf(out, "Cost: $%.4f, wall-clock %s\n",
		meta.TotalEstimatedCost, meta.TotalDuration)

	for provider, msg := range meta.ErrorsByProvider {
		_, _ = fmt.Fprintf(out, "Provider %s failed: %s\n", provider, msg)
	}

	for _, path := range report.OutputPaths {
		_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
	}
}

func runsCommand(lister RunLister) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List persisted review runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runs, err := lister.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			if len(runs) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}

			for _, run := range runs {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  findings=%d agreement=%.2f cost=$%.4f\n",
					run.RunID,
					run.CreatedAt.Format(time.RFC3339),
					run.Path,
					run.TotalFindings,
					run.AgreementScore,
					run.TotalCost)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of runs to show")

	return cmd
}
