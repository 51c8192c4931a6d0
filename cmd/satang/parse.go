package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/itsarapong/satang/internal/cli"
	"github.com/itsarapong/satang/internal/model"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <text>",
		Short: "Parse one spending message",
		Long: `Parse a natural-language spending message into a structured record.

The text is parsed locally first; only low-confidence readings are sent
to the configured AI provider.

Examples:
  satang parse "coffee 100 baht card"
  satang parse "ซื้อกาแฟ 150 บาท"
  satang parse "lunch 250" --json`,
		Args: cobra.ExactArgs(1),
		RunE: runParse,
	}

	cmd.Flags().String("lang", "auto", "input language (en, th, auto)")
	cmd.Flags().Bool("json", false, "print the result as JSON")
	cmd.Flags().Bool("no-cache", false, "bypass the similarity cache")
	cmd.Flags().Bool("no-ai", false, "disable the AI fallback")

	return cmd
}

func runParse(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	language, _ := cmd.Flags().GetString("lang")
	asJSON, _ := cmd.Flags().GetBool("json")
	noCache, _ := cmd.Flags().GetBool("no-cache")
	noAI, _ := cmd.Flags().GetBool("no-ai")

	pipeline, cleanup := buildPipeline(ctx, pipelineOptions{noCache: noCache, noAI: noAI})
	defer cleanup()

	in := model.TextInput{
		Text:     args[0],
		Language: model.Language(language),
	}

	result, err := pipeline.Process(ctx, in)
	if err != nil {
		return fmt.Errorf("failed to parse input: %w", err)
	}

	if asJSON {
		out, jsonErr := cli.ResultJSON(result)
		if jsonErr != nil {
			return fmt.Errorf("failed to encode result: %w", jsonErr)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Println(cli.RenderResult(result))
	return nil
}
