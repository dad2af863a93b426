package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "invest-advisor",
	Short: "A CLI for managing the Golang Invest Advisor services",
	Long:  `Golang Invest Advisor scores risk, detects market signals and produces ranked, research-backed recommendations.`,
}

func main() {

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Whoops. There was an error while executing your CLI '%s'", err)
		os.Exit(1)
	}
}
