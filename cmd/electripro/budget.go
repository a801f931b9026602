package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/electripro/electripro/internal/store"
	"github.com/electripro/electripro/internal/ui"
	"github.com/spf13/cobra"
)

var budgetCmd = &cobra.Command{
	Use:     "budget",
	Aliases: []string{"presupuesto"},
	GroupID: "records",
	Short:   "Manage budgets (quotes)",
}

var budgetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List budgets",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		status, _ := cmd.Flags().GetString("status")
		budgets := a.stores.Budgets.All()
		if status != "" {
			budgets = a.stores.Budgets.ByStatus(model.BudgetStatus(status))
		}

		if jsonOutput {
			printJSON(budgets)
			return
		}

		rows := make([][]string, 0, len(budgets))
		for _, b := range budgets {
			t := calc.BudgetTotalsOf(b)
			rows = append(rows, []string{
				fmt.Sprintf("#%d", b.Number),
				b.ID,
				b.Date,
				b.Client.Name,
				string(b.Status),
				ui.Money(t.Total),
			})
		}
		fmt.Print(ui.Table([]string{"No.", "ID", "Date", "Client", "Status", "Total"}, rows))
	},
}

var budgetShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a budget with its lines and totals",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		b, ok := a.stores.Budgets.ByID(args[0])
		if !ok {
			a.fail("budget %q not found", args[0])
		}
		t := calc.BudgetTotalsOf(b)

		if jsonOutput {
			printJSON(struct {
				model.Budget
				Totals calc.Totals `json:"totals"`
			}{b, t})
			return
		}
		printBudget(b, t)
	},
}

func printBudget(b model.Budget, t calc.Totals) {
	fmt.Printf("\n%s Presupuesto #%d  %s\n\n", ui.RenderAccent("📄"), b.Number, ui.RenderMuted(b.ID))
	fmt.Printf("Client: %s\n", b.Client.Name)
	if b.Client.Address != "" {
		fmt.Printf("Address: %s\n", b.Client.Address)
	}
	fmt.Printf("Date: %s (valid %s)\n", b.Date, b.Validity)
	fmt.Printf("Status: %s\n\n", b.Status)

	rows := make([][]string, 0, len(b.Items))
	for i, it := range b.Items {
		rows = append(rows, []string{
			strconv.Itoa(i),
			it.Code,
			it.Name,
			it.Qty.String() + " " + string(it.Unit),
			ui.Money(it.UnitPrice),
			ui.Money(calc.ItemSubtotal(it.Qty, it.UnitPrice)),
		})
	}
	fmt.Print(ui.Table([]string{"#", "Code", "Item", "Qty", "Unit price", "Subtotal"}, rows))

	fmt.Printf("\nSubtotal: %s\n", ui.Money(t.Subtotal))
	fmt.Printf("IVA %s%%: %s\n", b.IVA.String(), ui.Money(t.IVA))
	fmt.Printf("%s %s\n", ui.RenderBold("Total:"), ui.RenderBold(ui.Money(t.Total)))
	fmt.Printf("Cost: %s  Margin: %s\n\n", ui.Money(t.CostTotal), ui.Percent(t.MarginBruto))
}

func clientFromFlags(cmd *cobra.Command) model.Client {
	name, _ := cmd.Flags().GetString("client")
	address, _ := cmd.Flags().GetString("address")
	phone, _ := cmd.Flags().GetString("phone")
	email, _ := cmd.Flags().GetString("email")
	return model.Client{Name: name, Address: address, Phone: phone, Email: email}
}

func addClientFlags(cmd *cobra.Command) {
	cmd.Flags().String("client", "", "Client name")
	cmd.Flags().String("address", "", "Client address")
	cmd.Flags().String("phone", "", "Client phone")
	cmd.Flags().String("email", "", "Client email")
}

var budgetCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a draft budget",
	Long: `Create a draft budget. The date defaults to today and accepts
natural language ("tomorrow"); IVA defaults to the configured rate.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		date, err := changedDate(cmd, "date", time.Now())
		if err != nil {
			a.fail("%v", err)
		}
		iva, err := changedAmount(cmd, "iva")
		if err != nil {
			a.fail("%v", err)
		}
		in := store.BudgetInput{Client: clientFromFlags(cmd), IVA: iva}
		if date != nil {
			in.Date = *date
		}
		in.Validity, _ = cmd.Flags().GetString("validity")
		in.Notes, _ = cmd.Flags().GetString("notes")
		in.ObraID, _ = cmd.Flags().GetString("obra")

		b, err := a.stores.Budgets.Create(in)
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(b)
			return
		}
		fmt.Printf("%s Created presupuesto #%d (%s)\n", ui.RenderPass("✓"), b.Number, b.ID)
	},
}

var budgetAddLineCmd = &cobra.Command{
	Use:   "add-line <id> <code> <qty>",
	Short: "Add a line priced from the catalog",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		qty, err := parseAmount(args[2])
		if err != nil {
			a.fail("%v", err)
		}
		b, err := a.stores.Budgets.AddLine(args[0], args[1], qty)
		if err != nil {
			a.fail("%v", err)
		}
		t := calc.BudgetTotalsOf(b)
		fmt.Printf("%s Added %s × %s, total now %s\n", ui.RenderPass("✓"), qty, args[1], ui.Money(t.Total))
	},
}

var budgetRemoveLineCmd = &cobra.Command{
	Use:   "remove-line <id> <index>",
	Short: "Remove the line at index",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		index, err := strconv.Atoi(args[1])
		if err != nil {
			a.fail("invalid index %q", args[1])
		}
		b, err := a.stores.Budgets.RemoveLine(args[0], index)
		if err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Removed line %d, %d left\n", ui.RenderPass("✓"), index, len(b.Items))
	},
}

var budgetStatusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Set the status: borrador, enviado, aceptado or rechazado",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		b, err := a.stores.Budgets.SetStatus(args[0], model.BudgetStatus(args[1]))
		if err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Presupuesto #%d is now %s\n", ui.RenderPass("✓"), b.Number, b.Status)
	},
}

var budgetUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change budget fields",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		date, err := changedDate(cmd, "date", time.Now())
		if err != nil {
			a.fail("%v", err)
		}
		iva, err := changedAmount(cmd, "iva")
		if err != nil {
			a.fail("%v", err)
		}
		u := store.BudgetUpdate{
			Date:     date,
			IVA:      iva,
			Validity: changedString(cmd, "validity"),
			Notes:    changedString(cmd, "notes"),
			ObraID:   changedString(cmd, "obra"),
		}
		if cmd.Flags().Changed("client") || cmd.Flags().Changed("address") ||
			cmd.Flags().Changed("phone") || cmd.Flags().Changed("email") {
			current, ok := a.stores.Budgets.ByID(args[0])
			if !ok {
				a.fail("budget %q not found", args[0])
			}
			client := current.Client
			mergeClient(&client, cmd)
			u.Client = &client
		}

		b, err := a.stores.Budgets.Update(args[0], u)
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(b)
			return
		}
		fmt.Printf("%s Updated presupuesto #%d\n", ui.RenderPass("✓"), b.Number)
	},
}

func mergeClient(c *model.Client, cmd *cobra.Command) {
	for name, dst := range map[string]*string{
		"client":  &c.Name,
		"address": &c.Address,
		"phone":   &c.Phone,
		"email":   &c.Email,
	} {
		if v := changedString(cmd, name); v != nil {
			*dst = *v
		}
	}
}

var budgetDuplicateCmd = &cobra.Command{
	Use:   "duplicate <id>",
	Short: "Copy a budget as a new draft",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		b, err := a.stores.Budgets.Duplicate(args[0])
		if err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Created presupuesto #%d (%s)\n", ui.RenderPass("✓"), b.Number, b.ID)
	},
}

var budgetFromConteoCmd = &cobra.Command{
	Use:   "from-conteo <conteo-id>",
	Short: "Create a draft budget from a conteo's fixture counts",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		b, err := a.stores.Budgets.FromConteo(args[0], clientFromFlags(cmd))
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(b)
			return
		}
		printBudget(b, calc.BudgetTotalsOf(b))
	},
}

var budgetDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a budget",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		if err := a.stores.Budgets.Delete(args[0]); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	budgetListCmd.Flags().String("status", "", "Only budgets in this status")

	for _, c := range []*cobra.Command{budgetCreateCmd, budgetUpdateCmd} {
		addClientFlags(c)
		c.Flags().String("date", "", "Budget date (YYYY-MM-DD or e.g. \"tomorrow\")")
		c.Flags().String("validity", "", "Validity, e.g. \"30 días\"")
		c.Flags().String("iva", "", "IVA percent")
		c.Flags().String("notes", "", "Notes")
		c.Flags().String("obra", "", "Linked obra id")
	}
	addClientFlags(budgetFromConteoCmd)

	budgetCmd.AddCommand(
		budgetListCmd,
		budgetShowCmd,
		budgetCreateCmd,
		budgetUpdateCmd,
		budgetAddLineCmd,
		budgetRemoveLineCmd,
		budgetStatusCmd,
		budgetDuplicateCmd,
		budgetFromConteoCmd,
		budgetDeleteCmd,
	)
	rootCmd.AddCommand(budgetCmd)
}
