package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/itsarapong/satang/internal/cli"
	"github.com/itsarapong/satang/internal/lang"
	"github.com/itsarapong/satang/internal/model"
	"github.com/itsarapong/satang/internal/service"
)

func mappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mappings",
		Short: "Manage the category and merchant vocabulary",
		Long:  `List, add, deprecate, and seed the mappings used to resolve categories and merchants.`,
	}

	cmd.AddCommand(listMappingsCmd())
	cmd.AddCommand(addMappingCmd())
	cmd.AddCommand(deprecateMappingCmd())
	cmd.AddCommand(seedMappingsCmd())

	return cmd
}

func listMappingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List mappings",
		Long:  `Display mappings, most used first.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			language, _ := cmd.Flags().GetString("lang")
			kind, _ := cmd.Flags().GetString("kind")
			status, _ := cmd.Flags().GetString("status")
			limit, _ := cmd.Flags().GetInt("limit")

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			mappings, err := store.ListMappings(ctx, service.MappingFilter{
				Language: model.Language(language),
				Kind:     model.MappingKind(kind),
				Status:   model.MappingStatus(status),
				Limit:    limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list mappings: %w", err)
			}

			fmt.Println(cli.RenderMappings(mappings))
			return nil
		},
	}

	cmd.Flags().String("lang", "", "filter by language (en, th)")
	cmd.Flags().String("kind", "", "filter by kind (keyword, merchant)")
	cmd.Flags().String("status", string(model.MappingActive), "filter by status (active, deprecated)")
	cmd.Flags().Int("limit", 100, "maximum rows to show")

	return cmd
}

func addMappingCmd() *cobra.Command {
	var (
		language   string
		kind       string
		merchant   string
		aliases    []string
		confidence float64
	)

	cmd := &cobra.Command{
		Use:   "add <key> <category>",
		Short: "Add a mapping",
		Long: `Create a mapping from a keyword or merchant token to a category.
The key is normalized the same way the resolver normalizes input text.

Examples:
  satang mappings add "boba" "Food & Dining" --alias "bubble tea"
  satang mappings add "after you" "Food & Dining" --kind merchant --merchant "After You"
  satang mappings add "ชาไข่มุก" "Food & Dining" --lang th`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			key := lang.Normalize(args[0])
			if kind == string(model.KindMerchant) && merchant == "" {
				merchant = args[0]
			}
			for i, alias := range aliases {
				aliases[i] = lang.Normalize(alias)
			}

			mapping := &model.CategoryMapping{
				Kind:           model.MappingKind(kind),
				Key:            key,
				Language:       model.Language(language),
				TargetCategory: args[1],
				TargetMerchant: merchant,
				Aliases:        aliases,
				Confidence:     confidence,
			}

			if err := store.SaveMapping(ctx, mapping); err != nil {
				return fmt.Errorf("failed to save mapping: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Mapped %q → %s", key, args[1])))
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "lang", string(model.LanguageEnglish), "mapping language (en, th)")
	cmd.Flags().StringVar(&kind, "kind", string(model.KindKeyword), "mapping kind (keyword, merchant)")
	cmd.Flags().StringVar(&merchant, "merchant", "", "canonical merchant name (merchant kind)")
	cmd.Flags().StringArrayVar(&aliases, "alias", nil, "alias for the key (repeatable)")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.9, "mapping confidence in (0,1]")

	return cmd
}

func deprecateMappingCmd() *cobra.Command {
	var (
		language string
		kind     string
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "deprecate <key>",
		Short: "Deprecate a mapping",
		Long:  `Retire the active mapping for a key. Deprecated mappings are kept for history but no longer used.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key := lang.Normalize(args[0])

			if !force {
				reader := cli.NewLineReader(os.Stdin)
				ok, err := reader.Confirm(ctx, os.Stdout, fmt.Sprintf("Deprecate mapping %q (%s, %s)?", key, kind, language))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.DeprecateMapping(ctx, model.MappingKind(kind), key, model.Language(language)); err != nil {
				return fmt.Errorf("failed to deprecate mapping: %w", err)
			}

			fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deprecated %q", key)))
			return nil
		},
	}

	cmd.Flags().StringVar(&language, "lang", string(model.LanguageEnglish), "mapping language (en, th)")
	cmd.Flags().StringVar(&kind, "kind", string(model.KindKeyword), "mapping kind (keyword, merchant)")
	cmd.Flags().BoolVar(&force, "force", false, "skip confirmation prompt")

	return cmd
}

func seedMappingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Re-apply the built-in vocabulary",
		Long:  `Insert the default categories and mappings again. Existing entries are never overwritten.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := openStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.SeedDefaults(ctx); err != nil {
				return fmt.Errorf("failed to seed defaults: %w", err)
			}

			fmt.Println(cli.FormatSuccess("Default vocabulary seeded."))
			return nil
		},
	}
}
