package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newMarketCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Browse the student marketplace",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list [query...]",
			Short: "List items, filtered by title or description",
			RunE: func(cmd *cobra.Command, args []string) error {
				items := rt.app.Market.ListItems(strings.Join(args, " "))
				if rt.jsonOutput {
					return rt.out.JSON(items)
				}
				if len(items) == 0 {
					rt.out.Muted("No items found")
					return nil
				}
				for _, item := range items {
					rt.out.MarketItem(item, rt.app.Market.IsSaved(item.ID))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show <id>",
			Short: "Show one item",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				item, err := rt.app.Market.GetItem(args[0])
				if err != nil {
					return err
				}
				if rt.jsonOutput {
					return rt.out.JSON(item)
				}
				rt.out.MarketItem(*item, rt.app.Market.IsSaved(item.ID))
				rt.out.Muted("%s", item.Img)
				return nil
			},
		},
		&cobra.Command{
			Use:   "save <id>",
			Short: "Save an item, or unsave it if already saved",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				saved, err := rt.app.Market.ToggleSaved(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if rt.jsonOutput {
					return rt.out.JSON(map[string]bool{"saved": saved})
				}
				if saved {
					rt.out.Success("Saved %s", args[0])
				} else {
					rt.out.Success("Removed %s from saved", args[0])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "saved",
			Short: "List saved items, most recent first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				items := rt.app.Market.ListSaved()
				if rt.jsonOutput {
					return rt.out.JSON(items)
				}
				if len(items) == 0 {
					rt.out.Muted("No saved items")
					return nil
				}
				for _, item := range items {
					rt.out.MarketItem(item, true)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "buy <id>",
			Short: "Pretend to buy an item",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				msg, err := rt.app.Market.FakeBuy(args[0])
				if err != nil {
					return err
				}
				if rt.jsonOutput {
					return rt.out.JSON(map[string]string{"message": msg})
				}
				rt.out.Info("%s", msg)
				return nil
			},
		},
	)
	return cmd
}
