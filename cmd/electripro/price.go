package main

import (
	"fmt"
	"os"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/electripro/electripro/internal/store"
	"github.com/electripro/electripro/internal/ui"
	"github.com/spf13/cobra"
)

var priceCmd = &cobra.Command{
	Use:     "price",
	GroupID: "records",
	Short:   "Manage the price catalog",
	Long: `Manage the price catalog used to price budget lines.

An empty catalog is seeded with the default items on first use. Codes are
the primary key and follow the PREFIX-NNN pattern of their category.`,
}

var priceListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog items",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		category, _ := cmd.Flags().GetString("category")
		items := a.stores.Prices.All()
		if category != "" {
			items = a.stores.Prices.ByCategory(model.Category(category))
		}

		if jsonOutput {
			printJSON(items)
			return
		}

		rows := make([][]string, 0, len(items))
		for _, p := range items {
			rows = append(rows, []string{
				p.Code,
				model.CategoryName(p.Category),
				p.Name,
				string(p.Unit),
				ui.Money(p.Cost),
				ui.Money(p.Price),
				ui.Percent(calc.Margin(p.Cost, p.Price)),
			})
		}
		fmt.Print(ui.Table([]string{"Code", "Category", "Name", "Unit", "Cost", "Price", "Margin"}, rows))
		fmt.Printf("\n%d items\n", len(items))
	},
}

var priceAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a catalog item",
	Long: `Add a catalog item. Without --code the next free code of the
category's prefix is used, e.g. BL-005.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		code, _ := cmd.Flags().GetString("code")
		category, _ := cmd.Flags().GetString("category")
		name, _ := cmd.Flags().GetString("name")
		unit, _ := cmd.Flags().GetString("unit")
		costStr, _ := cmd.Flags().GetString("cost")
		priceStr, _ := cmd.Flags().GetString("price")

		cost, err := parseAmount(costStr)
		if err != nil {
			a.fail("--cost: %v", err)
		}
		price, err := parseAmount(priceStr)
		if err != nil {
			a.fail("--price: %v", err)
		}

		cat := model.Category(category)
		if code == "" {
			prefix := a.stores.Prices.CodePrefix(cat)
			if prefix == "" {
				a.fail("--code is required for an empty category")
			}
			code = a.stores.Prices.NextCode(prefix)
		}

		item, err := a.stores.Prices.Add(model.PriceItem{
			Code:     code,
			Category: cat,
			Name:     name,
			Unit:     model.Unit(unit),
			Cost:     cost,
			Price:    price,
		})
		if err != nil {
			a.fail("%v", err)
		}

		if jsonOutput {
			printJSON(item)
			return
		}
		fmt.Printf("%s Added %s %s at %s\n", ui.RenderPass("✓"), item.Code, item.Name, ui.Money(item.Price))
	},
}

var priceUpdateCmd = &cobra.Command{
	Use:   "update <code>",
	Short: "Change a catalog item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		cost, err := changedAmount(cmd, "cost")
		if err != nil {
			a.fail("%v", err)
		}
		price, err := changedAmount(cmd, "price")
		if err != nil {
			a.fail("%v", err)
		}
		u := store.PriceUpdate{Name: changedString(cmd, "name"), Cost: cost, Price: price}
		if c := changedString(cmd, "category"); c != nil {
			cat := model.Category(*c)
			u.Category = &cat
		}
		if s := changedString(cmd, "unit"); s != nil {
			unit := model.Unit(*s)
			u.Unit = &unit
		}

		item, err := a.stores.Prices.Update(args[0], u)
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(item)
			return
		}
		fmt.Printf("%s Updated %s: cost %s, price %s\n", ui.RenderPass("✓"), item.Code, ui.Money(item.Cost), ui.Money(item.Price))
	},
}

var priceDeleteCmd = &cobra.Command{
	Use:   "delete <code>",
	Short: "Remove a catalog item",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		if err := a.stores.Prices.Delete(args[0]); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

var priceResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the catalog with the default items",
	Run: func(cmd *cobra.Command, args []string) {
		yes, _ := cmd.Flags().GetBool("yes")
		if !yes {
			fmt.Fprintf(os.Stderr, "This replaces every catalog item. Re-run with --yes to confirm.\n")
			os.Exit(1)
		}

		a := openApp(cmd.Context())
		defer a.Close()

		if err := a.stores.Prices.ResetToDefaults(cmd.Context()); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Catalog reset to %d default items\n", ui.RenderPass("✓"), a.stores.Prices.Len())
	},
}

func init() {
	priceListCmd.Flags().String("category", "", "Only items of this category")

	priceAddCmd.Flags().String("code", "", "Item code (default: next free code of the category)")
	priceAddCmd.Flags().String("category", "", "Category: bocas, tomas, caneria, cajas, tableros, cableado, artefactos, mano_obra")
	priceAddCmd.Flags().String("name", "", "Item name")
	priceAddCmd.Flags().String("unit", string(model.UnitPiece), "Unit: u, ml, día, hr")
	priceAddCmd.Flags().String("cost", "0", "Unit cost")
	priceAddCmd.Flags().String("price", "0", "Unit price")
	_ = priceAddCmd.MarkFlagRequired("category")
	_ = priceAddCmd.MarkFlagRequired("name")

	priceUpdateCmd.Flags().String("category", "", "New category")
	priceUpdateCmd.Flags().String("name", "", "New name")
	priceUpdateCmd.Flags().String("unit", "", "New unit")
	priceUpdateCmd.Flags().String("cost", "", "New unit cost")
	priceUpdateCmd.Flags().String("price", "", "New unit price")

	priceResetCmd.Flags().Bool("yes", false, "Confirm the reset")

	priceCmd.AddCommand(priceListCmd, priceAddCmd, priceUpdateCmd, priceDeleteCmd, priceResetCmd)
	rootCmd.AddCommand(priceCmd)
}
