package main

import (
	"fmt"
	"time"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/electripro/electripro/internal/store"
	"github.com/electripro/electripro/internal/ui"
	"github.com/spf13/cobra"
)

var obraCmd = &cobra.Command{
	Use:     "obra",
	GroupID: "records",
	Short:   "Manage obras (job sites)",
}

var obraListCmd = &cobra.Command{
	Use:   "list",
	Short: "List obras, optionally filtered",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		query, _ := cmd.Flags().GetString("search")
		status, _ := cmd.Flags().GetString("status")
		obras := a.stores.Obras.Search(query, model.ObraStatus(status))

		if jsonOutput {
			printJSON(obras)
			return
		}

		rows := make([][]string, 0, len(obras))
		for _, o := range obras {
			rows = append(rows, []string{
				fmt.Sprintf("#%d", o.Number),
				o.ID,
				o.Client,
				o.Address,
				string(o.Status),
				ui.Money(o.BudgetAmount),
				ui.Money(o.CollectedAmount),
			})
		}
		fmt.Print(ui.Table([]string{"No.", "ID", "Client", "Address", "Status", "Budget", "Collected"}, rows))
	},
}

var obraCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an obra",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		u, err := obraUpdateFromFlags(cmd)
		if err != nil {
			a.fail("%v", err)
		}
		in := store.ObraInput{}
		applyObraInput(&in, u)

		o, err := a.stores.Obras.Create(in)
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(o)
			return
		}
		fmt.Printf("%s Created obra #%d for %s (%s)\n", ui.RenderPass("✓"), o.Number, o.Client, o.ID)
	},
}

var obraUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change obra fields, links or status",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		u, err := obraUpdateFromFlags(cmd)
		if err != nil {
			a.fail("%v", err)
		}
		o, err := a.stores.Obras.Update(args[0], u)
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(o)
			return
		}
		fmt.Printf("%s Updated obra #%d (%s)\n", ui.RenderPass("✓"), o.Number, o.Status)
	},
}

// obraUpdateFromFlags reads every obra flag that was set.
func obraUpdateFromFlags(cmd *cobra.Command) (store.ObraUpdate, error) {
	now := time.Now()
	start, err := changedDate(cmd, "start", now)
	if err != nil {
		return store.ObraUpdate{}, err
	}
	end, err := changedDate(cmd, "end", now)
	if err != nil {
		return store.ObraUpdate{}, err
	}
	budget, err := changedAmount(cmd, "budget")
	if err != nil {
		return store.ObraUpdate{}, err
	}
	collected, err := changedAmount(cmd, "collected")
	if err != nil {
		return store.ObraUpdate{}, err
	}
	u := store.ObraUpdate{
		Client:          changedString(cmd, "client"),
		Address:         changedString(cmd, "address"),
		StartDate:       start,
		EndDate:         end,
		BudgetAmount:    budget,
		CollectedAmount: collected,
		TotalPoints:     changedInt(cmd, "points"),
		PresupuestoID:   changedString(cmd, "presupuesto"),
		ConteoID:        changedString(cmd, "conteo"),
		PlanID:          changedString(cmd, "plan"),
		Notes:           changedString(cmd, "notes"),
	}
	if s := changedString(cmd, "status"); s != nil {
		status := model.ObraStatus(*s)
		u.Status = &status
	}
	return u, nil
}

func applyObraInput(in *store.ObraInput, u store.ObraUpdate) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&in.Client, u.Client)
	set(&in.Address, u.Address)
	set(&in.StartDate, u.StartDate)
	set(&in.EndDate, u.EndDate)
	set(&in.PresupuestoID, u.PresupuestoID)
	set(&in.ConteoID, u.ConteoID)
	set(&in.PlanID, u.PlanID)
	set(&in.Notes, u.Notes)
	if u.BudgetAmount != nil {
		in.BudgetAmount = *u.BudgetAmount
	}
	if u.CollectedAmount != nil {
		in.CollectedAmount = *u.CollectedAmount
	}
	if u.Status != nil {
		in.Status = *u.Status
	}
	if u.TotalPoints != nil {
		in.TotalPoints = *u.TotalPoints
	}
}

var obraProfitCmd = &cobra.Command{
	Use:   "profit <id>",
	Short: "Show the profitability of an obra",
	Long: `Show the profitability of an obra. Labor cost comes from the linked
plan and material cost from the linked budget; revenue is the collected
amount when positive, else the budgeted amount.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		p, err := a.stores.ObraProfitability(args[0])
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(p)
			return
		}
		fmt.Printf("Revenue: %s\n", ui.Money(p.Revenue))
		fmt.Printf("Profit: %s\n", ui.Money(p.Profit))
		fmt.Printf("Margin: %s\n", renderLevel(p.Level, ui.Percent(p.Percent)))
	},
}

func renderLevel(level calc.Level, s string) string {
	switch level {
	case calc.LevelGreen:
		return ui.RenderPass(s)
	case calc.LevelYellow:
		return ui.RenderWarn(s)
	default:
		return ui.RenderFail(s)
	}
}

var obraDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an obra",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		if err := a.stores.Obras.Delete(args[0]); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	obraListCmd.Flags().String("search", "", "Match client, address or number")
	obraListCmd.Flags().String("status", "", "Only obras in this status")

	for _, c := range []*cobra.Command{obraCreateCmd, obraUpdateCmd} {
		c.Flags().String("client", "", "Client name")
		c.Flags().String("address", "", "Site address")
		c.Flags().String("start", "", "Start date (YYYY-MM-DD or e.g. \"next monday\")")
		c.Flags().String("end", "", "End date")
		c.Flags().String("budget", "", "Budgeted amount")
		c.Flags().String("collected", "", "Collected amount")
		c.Flags().String("status", "", "Status: presupuestada, en_curso, terminada, cobrada, cancelada")
		c.Flags().Int("points", 0, "Total points")
		c.Flags().String("presupuesto", "", "Linked budget id")
		c.Flags().String("conteo", "", "Linked conteo id")
		c.Flags().String("plan", "", "Linked plan id")
		c.Flags().String("notes", "", "Notes")
	}
	_ = obraCreateCmd.MarkFlagRequired("client")

	obraCmd.AddCommand(obraListCmd, obraCreateCmd, obraUpdateCmd, obraProfitCmd, obraDeleteCmd)
	rootCmd.AddCommand(obraCmd)
}
