package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/itsarapong/satang/internal/cli"
	"github.com/itsarapong/satang/internal/engine"
	"github.com/itsarapong/satang/internal/model"
)

func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch <file>",
		Short: "Parse a file of spending messages",
		Long: `Parse a file of newline-delimited spending messages concurrently.

Blank lines and lines starting with # are skipped. Results keep the
input order.

Examples:
  satang batch expenses.txt
  satang batch expenses.txt --workers 8 --json
  satang batch expenses.txt --output parsed.jsonl`,
		Args: cobra.ExactArgs(1),
		RunE: runBatch,
	}

	cmd.Flags().IntP("workers", "w", 0, "concurrent workers (default from config)")
	cmd.Flags().String("lang", "auto", "input language (en, th, auto)")
	cmd.Flags().Bool("json", false, "print results as JSON lines")
	cmd.Flags().StringP("output", "o", "", "write results as JSON lines to a file")
	cmd.Flags().Bool("no-cache", false, "bypass the similarity cache")
	cmd.Flags().Bool("no-ai", false, "disable the AI fallback")

	return cmd
}

// batchLine is one JSONL record of a batch run.
type batchLine struct {
	Result *cli.ResultView `json:"result,omitempty"`
	Input  string          `json:"input"`
	Error  string          `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	workers, _ := cmd.Flags().GetInt("workers")
	language, _ := cmd.Flags().GetString("lang")
	asJSON, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	noAI, _ := cmd.Flags().GetBool("no-ai")

	inputs, err := readInputs(args[0], model.Language(language))
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		fmt.Println(cli.FormatInfo("Nothing to parse."))
		return nil
	}

	note := "Results completed so far are still written."
	handler := cli.NewInterruptHandler(os.Stderr, note)
	ctx := handler.HandleInterrupts(cmd.Context())

	pipeline, cleanup := buildPipeline(ctx, pipelineOptions{noCache: noCache, noAI: noAI, workers: workers})
	defer cleanup()

	bar := newBatchProgressBar(len(inputs))
	started := time.Now()

	items, batchErr := pipeline.ProcessBatch(ctx, inputs, func(int) {
		_ = bar.Add(1)
	})
	if batchErr != nil && !handler.WasInterrupted() {
		return batchErr
	}

	if err := writeBatchOutput(items, asJSON, outputPath); err != nil {
		return err
	}

	fmt.Fprintln(os.Stderr, cli.RenderBatchSummary(summarize(items, time.Since(started))))
	return nil
}

// readInputs loads the batch file, skipping blanks and # comments.
func readInputs(path string, language model.Language) ([]model.TextInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var inputs []model.TextInput
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		inputs = append(inputs, model.TextInput{Text: line, Language: language})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read batch file: %w", err)
	}

	return inputs, nil
}

func newBatchProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Parsing spending messages...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(os.Stderr)
		}),
	)
}

// writeBatchOutput renders items to stdout, or as JSON lines when asJSON
// is set or an output file is given. Items canceled mid-run are skipped.
func writeBatchOutput(items []engine.BatchItem, asJSON bool, outputPath string) error {
	var w io.Writer = os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
		asJSON = true
	}

	if asJSON {
		enc := json.NewEncoder(w)
		for _, item := range items {
			if errors.Is(item.Err, context.Canceled) {
				continue
			}
			line := batchLine{Input: item.Input.Text}
			if item.Err != nil {
				line.Error = item.Err.Error()
			} else {
				view := cli.NewResultView(item.Result)
				line.Result = &view
			}
			if err := enc.Encode(line); err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
		}
		return nil
	}

	for _, item := range items {
		if errors.Is(item.Err, context.Canceled) {
			continue
		}
		if item.Err != nil {
			fmt.Fprintln(w, cli.FormatError(fmt.Sprintf("%s · %v", item.Input.Text, item.Err)))
			continue
		}
		r := item.Result
		fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%.2f %s · %s · %s",
			r.Amount.Value, r.Currency.Value, r.Category.Value, item.Input.Text)))
	}
	return nil
}

func summarize(items []engine.BatchItem, elapsed time.Duration) cli.BatchSummary {
	s := cli.BatchSummary{
		Methods: make(map[model.ProcessingMethod]int),
		Elapsed: elapsed,
		Total:   len(items),
	}
	for _, item := range items {
		switch {
		case errors.Is(item.Err, context.Canceled):
			s.Total--
		case item.Err != nil:
			s.Failed++
		default:
			s.Methods[item.Result.Method]++
		}
	}
	return s
}
