package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// Local development convenience; missing .env is fine.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "scout",
		Short: "Evidence-grounded creator qualification pipeline",
	}
	root.AddCommand(qualifyCMD(), scoreCMD(), serveCMD())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
