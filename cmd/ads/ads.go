// Package ads recommends and writes ad copy from the command line.
package ads

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/common"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// Command returns the ads command.
func Command(opts *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ads",
		Short: "Recommend ad formats and generate copy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "analyze <product-id>",
		Short: "Recommend the best ad format for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("product id", args[0])
			if err != nil {
				return err
			}

			app, err := opts.App()
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			product, err := app.Product(cmd.Context(), id)
			if err != nil {
				return err
			}
			result, err := app.Ads.Analyze(cmd.Context(), product)
			if err != nil {
				return err
			}
			return common.PrintJSON(cmd.OutOrStdout(), result)
		},
	})

	cmd.AddCommand(generateCommand(opts))

	cmd.AddCommand(&cobra.Command{
		Use:   "history <product-id>",
		Short: "List generated copy for a product, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("product id", args[0])
			if err != nil {
				return err
			}

			app, err := opts.App()
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			copies, err := app.Ads.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			common.RenderAdCopies(cmd.OutOrStdout(), copies)
			return nil
		},
	})

	return cmd
}

func generateCommand(opts *common.Options) *cobra.Command {
	var typeFlag, instructions string
	cmd := &cobra.Command{
		Use:   "generate <product-id>",
		Short: "Generate and store ad copy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("product id", args[0])
			if err != nil {
				return err
			}

			var adType *domain.AdType
			if typeFlag != "" {
				at, parseErr := domain.ParseAdType(typeFlag)
				if parseErr != nil {
					return fmt.Errorf("%w (valid: %v)", parseErr, domain.AllAdTypes)
				}
				adType = &at
			}

			app, err := opts.App()
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			product, err := app.Product(cmd.Context(), id)
			if err != nil {
				return err
			}
			saved, err := app.Ads.Generate(cmd.Context(), product, adType, instructions)
			if err != nil {
				return err
			}
			return common.PrintJSON(cmd.OutOrStdout(), saved)
		},
	}
	cmd.Flags().StringVar(&typeFlag, "type", "", "ad type (default: recommended)")
	cmd.Flags().StringVar(&instructions, "instructions", "", "extra instructions for the copywriter")
	return cmd
}
