// Package links manages affiliate links from the command line.
package links

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/affiliate-engine/cmd/common"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

// Command returns the links command.
func Command(opts *common.Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "links",
		Short: "Generate, refresh and inspect affiliate links",
	}

	cmd.AddCommand(generateCommand(opts))
	cmd.AddCommand(generateAllCommand(opts))
	cmd.AddCommand(refreshCommand(opts))
	cmd.AddCommand(deleteCommand(opts))
	cmd.AddCommand(listCommand(opts))

	return cmd
}

func generateCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <product-id> <platform>",
		Short: "Generate the active link for a product on a platform",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("product id", args[0])
			if err != nil {
				return err
			}
			platform, err := domain.ParsePlatform(args[1])
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
			link, err := app.Links.GenerateLink(cmd.Context(), product, platform)
			if err != nil {
				if domain.IsRetryable(err) {
					return fmt.Errorf("%w (retry shortly)", err)
				}
				return err
			}
			common.RenderLinks(cmd.OutOrStdout(), []domain.AffiliateLink{*link})
			return nil
		},
	}
}

func generateAllCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "generate-all",
		Short: "Generate links for every product and platform that lacks one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.App()
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			products, err := app.Products.ListProducts(cmd.Context())
			if err != nil {
				return err
			}
			result, err := app.Links.GenerateAllLinks(cmd.Context(), products)
			if err != nil {
				return err
			}
			common.RenderBatch(cmd.OutOrStdout(), result)
			return nil
		},
	}
}

func refreshCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <link-id>",
		Short: "Re-validate a link against current program data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("link id", args[0])
			if err != nil {
				return err
			}

			app, err := opts.App()
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			result, err := app.Links.RefreshLink(cmd.Context(), id)
			if err != nil {
				return err
			}
			common.RenderLinks(cmd.OutOrStdout(), []domain.AffiliateLink{*result.Link})
			for _, w := range result.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
			}
			return nil
		},
	}
}

func deleteCommand(opts *common.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <link-id>",
		Short: "Delete a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := common.ParseID("link id", args[0])
			if err != nil {
				return err
			}

			app, err := opts.App()
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			if err = app.Links.DeleteLink(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted link %d\n", id)
			return nil
		},
	}
}

func listCommand(opts *common.Options) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list <product-id>",
		Short: "List a product's links, newest first",
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

			out, err := app.Links.ListLinks(cmd.Context(), id)
			if err != nil {
				return err
			}
			if asJSON {
				return common.PrintJSON(cmd.OutOrStdout(), out)
			}
			common.RenderLinks(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
