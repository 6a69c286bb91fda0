package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	// .env is a convenience for local runs; absence is not an error.
	_ = godotenv.Load()

	var root = &cobra.Command{Use: "daybrief"}

	root.AddCommand(runCMD(), scheduleCMD())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
