package main

import (
	"fmt"
	"os"

	"github.com/electripro/electripro/internal/store"
	"github.com/electripro/electripro/internal/ui"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:     "config",
	GroupID: "records",
	Short:   "Show or change company settings",
	Long: `Show or change the company settings: name, CUIT, contact details,
default IVA, currency and the default productivity rates of new plans.

Runtime settings (cache path, remote store, logging) live in
electripro.yaml instead.`,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show company settings",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		cfg := a.stores.Config.Get()
		if jsonOutput {
			printJSON(cfg)
			return
		}

		r := cfg.Rendimientos
		fmt.Printf("\n%s %s\n\n", ui.RenderAccent("🏢"), ui.RenderBold(cfg.CompanyName))
		fmt.Printf("CUIT: %s\n", cfg.CUIT)
		fmt.Printf("Address: %s\n", cfg.Address)
		fmt.Printf("Phone: %s\n", cfg.Phone)
		fmt.Printf("Email: %s\n", cfg.Email)
		fmt.Printf("Logo: %v\n", cfg.Logo != nil)
		fmt.Printf("IVA: %s%%\n", cfg.IVADefault.String())
		fmt.Printf("Currency: %s\n", cfg.Currency)
		fmt.Printf("\nRates per day: amurado %s, caño %s, cableado %s, artefactos %s\n",
			r.RendAmurado, r.RendCano, r.RendCableado, r.RendArtefactos)
		fmt.Printf("Wages: oficial %s, ayudante %s\n\n", ui.Money(r.CostoOficial), ui.Money(r.CostoAyudante))
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change company settings",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		iva, err := changedAmount(cmd, "iva")
		if err != nil {
			a.fail("%v", err)
		}
		u := store.ConfigUpdate{
			CompanyName: changedString(cmd, "company"),
			CUIT:        changedString(cmd, "cuit"),
			Address:     changedString(cmd, "address"),
			Phone:       changedString(cmd, "phone"),
			Email:       changedString(cmd, "email"),
			Currency:    changedString(cmd, "currency"),
			IVADefault:  iva,
		}
		if path := changedString(cmd, "logo"); path != nil {
			logo := ""
			if *path != "" {
				data, err := os.ReadFile(*path)
				if err != nil {
					a.fail("reading logo: %v", err)
				}
				logo = dataURL(data)
			}
			u.Logo = &logo
		}
		rates, changed, err := planParamsFromFlags(cmd, a.stores.Config.Get().Rendimientos)
		if err != nil {
			a.fail("%v", err)
		}
		if changed {
			u.Rendimientos = &rates
		}

		cfg, err := a.stores.Config.Update(u)
		if err != nil {
			a.fail("%v", err)
		}
		if jsonOutput {
			printJSON(cfg)
			return
		}
		fmt.Printf("%s Settings saved for %s\n", ui.RenderPass("✓"), cfg.CompanyName)
	},
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the default company settings",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp(cmd.Context())
		defer a.Close()

		if _, err := a.stores.Config.Reset(); err != nil {
			a.fail("%v", err)
		}
		fmt.Printf("%s Settings reset to defaults\n", ui.RenderPass("✓"))
	},
}

func init() {
	settingsSetCmd.Flags().String("company", "", "Company name")
	settingsSetCmd.Flags().String("cuit", "", "CUIT")
	settingsSetCmd.Flags().String("address", "", "Address")
	settingsSetCmd.Flags().String("phone", "", "Phone")
	settingsSetCmd.Flags().String("email", "", "Email")
	settingsSetCmd.Flags().String("currency", "", "Currency code")
	settingsSetCmd.Flags().String("iva", "", "Default IVA percent")
	settingsSetCmd.Flags().String("logo", "", "Logo image file (empty clears it)")
	addRateFlags(settingsSetCmd)

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd, settingsResetCmd)
	rootCmd.AddCommand(settingsCmd)
}
