package main

import (
	"fmt"
	"strconv"

	"github.com/electripro/electripro/internal/calc"
	"github.com/electripro/electripro/internal/model"
	"github.com/electripro/electripro/internal/store"
	"github.com/electripro/electripro/internal/ui"
	"github.com/spf13/cobra"
)

var conteoCmd = &cobra.Command{
	Use:     "conteo",
	GroupID: "records",
	Short:   "Manage conteos (fixture counts per room)",
}

var conteoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List conteos",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		conteos := a.stores.Conteos.All()
		if jsonOutput {
			printJSON(conteos)
			return
		}

		rows := make([][]string, 0, len(conteos))
		for _, c := range conteos {
			t := calc.SumRooms(c.Rooms)
			rows = append(rows, []string{
				c.ID,
				c.ObraID,
				strconv.Itoa(len(c.Rooms)),
				strconv.Itoa(t.Bocas),
				strconv.Itoa(t.TotalTomas),
				strconv.Itoa(t.TotalPuntos),
			})
		}
		fmt.Print(ui.Table([]string{"ID", "Obra", "Rooms", "Bocas", "Tomas", "Puntos"}, rows))
	},
}

var conteoShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conteo room by room with its totals",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		c, ok := a.stores.Conteos.ByID(args[0])
		if !ok {
			a.fail("conteo %q not found", args[0])
		}
		t := calc.SumRooms(c.Rooms)
		if jsonOutput {
			printJSON(struct {
				model.Conteo
				Totals calc.ConteoTotals `json:"totals"`
			}{c, t})
			return
		}
		printConteo(c, t)
	},
}

func printConteo(c model.Conteo, t calc.ConteoTotals) {
	itoa := strconv.Itoa
	rows := make([][]string, 0, len(c.Rooms)+1)
	for i, r := range c.Rooms {
		rows = append(rows, []string{
			itoa(i), r.Name, itoa(r.Bocas), itoa(r.TomasSimp), itoa(r.TomasDob),
			itoa(r.Tomas20), itoa(r.CajasPaso), itoa(r.Cano34), itoa(r.Cano1), r.Obs,
		})
	}
	rows = append(rows, []string{
		"", ui.RenderBold("Total"), itoa(t.Bocas), itoa(t.TomasSimp), itoa(t.TomasDob),
		itoa(t.Tomas20), itoa(t.CajasPaso), itoa(t.Cano34), itoa(t.Cano1), "",
	})

	fmt.Printf("\n%s Conteo %s\n\n", ui.RenderAccent("📐"), c.ID)
	fmt.Print(ui.Table([]string{"#", "Room", "Bocas", "T.simp", "T.dob", "T.20A", "Cajas", "Caño ¾", "Caño 1", "Obs"}, rows))
	fmt.Printf("\nTomas: %d  Caño: %d  Puntos: %d\n\n", t.TotalTomas, t.TotalCano, t.TotalPuntos)
}

var conteoCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a conteo with the default rooms",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		obraID, _ := cmd.Flags().GetString("obra")
		c, err := a.stores.Conteos.Create(obraID)
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(c)
			return
		}
		fmt.Printf("%s Created conteo %s with %d rooms\n", ui.RenderPass("✓"), c.ID, len(c.Rooms))
	},
}

var conteoSetCmd = &cobra.Command{
	Use:   "set <id> <room-index>",
	Short: "Set the counts of one room",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		index, err := strconv.Atoi(args[1])
		if err != nil {
			a.fail("invalid room index %q", args[1])
		}
		u := store.RoomUpdate{
			Name:      changedString(cmd, "name"),
			Bocas:     changedInt(cmd, "bocas"),
			TomasSimp: changedInt(cmd, "tomas-simp"),
			TomasDob:  changedInt(cmd, "tomas-dob"),
			Tomas20:   changedInt(cmd, "tomas-20"),
			CajasPaso: changedInt(cmd, "cajas-paso"),
			Cano34:    changedInt(cmd, "cano-34"),
			Cano1:     changedInt(cmd, "cano-1"),
			Obs:       changedString(cmd, "obs"),
		}
		c, err := a.stores.Conteos.UpdateRoom(args[0], index, u)
		if err != nil {
			a.fail("%v", err)
		}
		r := c.Rooms[index]
		fmt.Printf("%s %s: %d bocas, %d tomas simples, %d dobles\n", ui.RenderPass("✓"), r.Name, r.Bocas, r.TomasSimp, r.TomasDob)
	},
}

var conteoAddRoomCmd = &cobra.Command{
	Use:   "add-room <id> <name>",
	Short: "Append an empty room",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		c, err := a.stores.Conteos.AddRoom(args[0], args[1])
		if err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Added room %d: %s\n", ui.RenderPass("✓"), len(c.Rooms)-1, c.Rooms[len(c.Rooms)-1].Name)
	},
}

var conteoRemoveRoomCmd = &cobra.Command{
	Use:   "remove-room <id> <room-index>",
	Short: "Remove a room",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		index, err := strconv.Atoi(args[1])
		if err != nil {
			a.fail("invalid room index %q", args[1])
		}
		c, err := a.stores.Conteos.RemoveRoom(args[0], index)
		if err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Removed room %d, %d left\n", ui.RenderPass("✓"), index, len(c.Rooms))
	},
}

var conteoDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conteo",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		if err := a.stores.Conteos.Delete(args[0]); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderPass("✓"), args[0])
	},
}

func init() {
	conteoCreateCmd.Flags().String("obra", "", "Linked obra id")

	conteoSetCmd.Flags().String("name", "", "Room name")
	conteoSetCmd.Flags().Int("bocas", 0, "Light points")
	conteoSetCmd.Flags().Int("tomas-simp", 0, "Single outlets")
	conteoSetCmd.Flags().Int("tomas-dob", 0, "Double outlets")
	conteoSetCmd.Flags().Int("tomas-20", 0, "20A outlets")
	conteoSetCmd.Flags().Int("cajas-paso", 0, "Junction boxes")
	conteoSetCmd.Flags().Int("cano-34", 0, "Meters of ¾\" conduit")
	conteoSetCmd.Flags().Int("cano-1", 0, "Meters of 1\" conduit")
	conteoSetCmd.Flags().String("obs", "", "Observations")

	conteoCmd.AddCommand(
		conteoListCmd,
		conteoShowCmd,
		conteoCreateCmd,
		conteoSetCmd,
		conteoAddRoomCmd,
		conteoRemoveRoomCmd,
		conteoDeleteCmd,
	)
	rootCmd.AddCommand(conteoCmd)
}
