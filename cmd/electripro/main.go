// Command electripro manages the price catalog, budgets, job sites, fixture
// counts and labor plans of an electrical contractor, offline first.
package main

import (
	"os"

	_ "github.com/joho/godotenv/autoload"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
