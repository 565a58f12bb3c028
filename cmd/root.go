/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"strings"

	"guardian/pkg/assistant"
	"guardian/pkg/config"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Simhastha Guardian pilgrim assistant",
	Long: `Simhastha Guardian answers pilgrim questions about timings, routes,
health facilities, crowds, food, parking and donations in English or Hindi,
and serves the mock event dashboard for organisers.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// loadRulebook returns the rulebook named by the config, or the embedded one.
func loadRulebook(cfg *config.Config) (*assistant.Rulebook, error) {
	path := strings.TrimSpace(cfg.Assistant.RulesFile)
	if path == "" {
		return assistant.Default(), nil
	}

	rulebook, err := assistant.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load rules file: %w", err)
	}

	return rulebook, nil
}
