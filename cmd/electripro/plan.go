package main

import (
	"fmt"
	"strconv"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/electripro/electripro/internal/store"
	"github.com/electripro/electripro/internal/ui"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:     "plan",
	GroupID: "records",
	Short:   "Manage labor plans",
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		plans := a.stores.Plans.All()
		if jsonOutput {
			printJSON(plans)
			return
		}

		rows := make([][]string, 0, len(plans))
		for _, p := range plans {
			e := p.Employees
			rows = append(rows, []string{
				p.ID,
				p.ObraID,
				fmt.Sprintf("%d/%d/%d/%d", e.Caneria, e.Amurado, e.Cableado, e.Artefactos),
				strconv.Itoa(p.ArtefactosCount),
				ui.Money(p.Params.CostoOficial),
			})
		}
		fmt.Print(ui.Table([]string{"ID", "Obra", "Crew", "Artefactos", "Daily wage"}, rows))
	},
}

var planCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a plan with the configured rates",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		obraID, _ := cmd.Flags().GetString("obra")
		p, err := a.stores.Plans.Create(obraID)
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(p)
			return
		}
		fmt.Printf("%s Created plan %s\n", ui.RenderPass("✓"), p.ID)
	},
}

var planShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Compute the labor plan: days and cost per stage",
	Long: `Compute the labor plan of a plan. Work amounts come from the conteo
of the plan's obra, or from the latest conteo when the plan has no obra.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		res, err := a.stores.PlanningFor(args[0])
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(res)
			return
		}
		printPlanning(res)
	},
}

func printPlanning(res calc.PlanningResult) {
	rows := make([][]string, 0, len(res.Stages))
	for _, st := range res.Stages {
		rows = append(rows, []string{
			st.Name,
			strconv.Itoa(st.Work),
			st.Rate.String(),
			strconv.Itoa(st.Employees),
			strconv.FormatInt(st.DaysOnePerson, 10),
			strconv.FormatInt(st.DaysReal, 10),
			ui.Money(st.CostMO),
		})
	}
	fmt.Printf("\n%s Planificación\n\n", ui.RenderAccent("🗓"))
	fmt.Print(ui.Table([]string{"Stage", "Work", "Rate/day", "Crew", "Days (1p)", "Days", "Labor"}, rows))
	fmt.Printf("\nTotal: %d days (%d weeks), labor %s\n\n", res.TotalDays, res.TotalWeeks, ui.RenderBold(ui.Money(res.TotalCostMO)))
}

var planUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change the crew, rates or fixture count of a plan",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		p, ok := a.stores.Plans.ByID(args[0])
		if !ok {
			a.fail("plan %q not found", args[0])
		}

		u := store.PlanUpdate{
			ObraID:          changedString(cmd, "obra"),
			ArtefactosCount: changedInt(cmd, "artefactos-count"),
		}

		emp := p.Employees
		empChanged := false
		for name, dst := range map[string]*int{
			"caneria":    &emp.Caneria,
			"amurado":    &emp.Amurado,
			"cableado":   &emp.Cableado,
			"artefactos": &emp.Artefactos,
		} {
			if v := changedInt(cmd, name); v != nil {
				*dst = *v
				empChanged = true
			}
		}
		if empChanged {
			u.Employees = &emp
		}

		params, paramsChanged, err := planParamsFromFlags(cmd, p.Params)
		if err != nil {
			a.fail("%v", err)
		}
		if paramsChanged {
			u.Params = &params
		}

		if _, err := a.stores.Plans.Update(args[0], u); err != nil {
			a.fail("%v", err)
		}
		res, err := a.stores.PlanningFor(args[0])
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(res)
			return
		}
		printPlanning(res)
	},
}

// planParamsFromFlags overlays the rate flags that were set onto params.
func planParamsFromFlags(cmd *cobra.Command, params model.PlanParams) (model.PlanParams, bool, error) {
	changed := false
	for name, dst := range map[string]*decimal.Decimal{
		"rend-amurado":    &params.RendAmurado,
		"rend-cano":       &params.RendCano,
		"rend-cableado":   &params.RendCableado,
		"rend-artefactos": &params.RendArtefactos,
		"costo-oficial":   &params.CostoOficial,
		"costo-ayudante":  &params.CostoAyudante,
	} {
		v, err := changedAmount(cmd, name)
		if err != nil {
			return params, false, err
		}
		if v != nil {
			*dst = *v
			changed = true
		}
	}
	return params, changed, nil
}

var planDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a plan",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		if err := a.stores.Plans.Delete(args[0]); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func addRateFlags(cmd *cobra.Command) {
	cmd.Flags().String("rend-amurado", "", "Boxes set per person-day")
	cmd.Flags().String("rend-cano", "", "Meters of conduit per person-day")
	cmd.Flags().String("rend-cableado", "", "Points wired per person-day")
	cmd.Flags().String("rend-artefactos", "", "Fixtures installed per person-day")
	cmd.Flags().String("costo-oficial", "", "Daily wage of an electrician")
	cmd.Flags().String("costo-ayudante", "", "Daily wage of a helper")
}

func init() {
	planCreateCmd.Flags().String("obra", "", "Linked obra id")

	planUpdateCmd.Flags().String("obra", "", "Linked obra id")
	planUpdateCmd.Flags().Int("caneria", 0, "Crew for conduit")
	planUpdateCmd.Flags().Int("amurado", 0, "Crew for boxes")
	planUpdateCmd.Flags().Int("cableado", 0, "Crew for wiring")
	planUpdateCmd.Flags().Int("artefactos", 0, "Crew for fixtures")
	planUpdateCmd.Flags().Int("artefactos-count", 0, "Fixtures to install")
	addRateFlags(planUpdateCmd)

	planCmd.AddCommand(planListCmd, planCreateCmd, planShowCmd, planUpdateCmd, planDeleteCmd)
	rootCmd.AddCommand(planCmd)
}
