package main

import (
	"fmt"

	"github.com/electripro/electripro/internal/model"
	"github.com/electripro/electripro/internal/ui"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:     "stats",
	GroupID: "reports",
	Short:   "Show dashboard figures",
	Long: `Show the dashboard figures: active obras, pending budgets, this
month's billing, the average margin of accepted budgets, six months of
billing, billing per category and the newest obras.`,
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		d := a.stores.Dashboard()
		if jsonOutput {
			printJSON(d)
			return
		}

		s := d.Stats
		fmt.Printf("\n%s Dashboard\n\n", ui.RenderAccent("📊"))
		fmt.Printf("Obras en curso: %d\n", s.ObrasActivas)
		fmt.Printf("Presupuestos pendientes: %d\n", s.PresupPendientes)
		fmt.Printf("Facturación del mes: %s\n", ui.RenderBold(ui.Money(s.FacturacionMes)))
		fmt.Printf("Margen promedio: %s\n\n", ui.Percent(s.AvgMargin))

		billing := make([][]string, 0, len(d.Billing))
		for _, m := range d.Billing {
			billing = append(billing, []string{fmt.Sprintf("%d-%02d", m.Year, m.Month), ui.Money(m.Total)})
		}
		fmt.Print(ui.Table([]string{"Month", "Billed"}, billing))

		if len(d.Distribution) > 0 {
			fmt.Println()
			dist := make([][]string, 0, len(d.Distribution))
			for _, c := range d.Distribution {
				dist = append(dist, []string{c.Name, ui.Money(c.Total)})
			}
			fmt.Print(ui.Table([]string{"Category", "Billed"}, dist))
		}

		if len(d.RecentObras) > 0 {
			fmt.Println()
			recent := make([][]string, 0, len(d.RecentObras))
			for _, o := range d.RecentObras {
				recent = append(recent, []string{fmt.Sprintf("#%d", o.Number), o.Client, obraStatusLabel(o.Status)})
			}
			fmt.Print(ui.Table([]string{"Obra", "Client", "Status"}, recent))
		}
		fmt.Println()
	},
}

func obraStatusLabel(s model.ObraStatus) string {
	switch s {
	case model.ObraActive:
		return ui.RenderAccent(string(s))
	case model.ObraCollected, model.ObraFinished:
		return ui.RenderPass(string(s))
	case model.ObraCancelled:
		return ui.RenderMuted(string(s))
	default:
		return string(s)
	}
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
