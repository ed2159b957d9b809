// Package programs discovers affiliate programs from the command line.
package programs

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/common"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// Command returns the programs command.
func Command(opts *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "programs",
		Short: "Inspect affiliate programs",
	}

	var platformFlag string
	var asJSON bool
	discover := &cobra.Command{
		Use:   "discover <product-id>",
		Short: "Rank affiliate programs for a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("product id", args[0])
			if err != nil {
				return err
			}

			var platform *domain.Platform
			if platformFlag != "" {
				p, parseErr := domain.ParsePlatform(platformFlag)
				if parseErr != nil {
					return parseErr
				}
				platform = &p
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
			result, err := app.Discovery.Discover(cmd.Context(), product, platform)
			if err != nil {
				return err
			}

			if asJSON {
				return common.PrintJSON(cmd.OutOrStdout(), result)
			}
			common.RenderPrograms(cmd.OutOrStdout(), result.Candidates, result.UsedFallback())
			return nil
		},
	}
	discover.Flags().StringVar(&platformFlag, "platform", "", "limit discovery to one platform")
	discover.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.AddCommand(discover)

	return cmd
}
