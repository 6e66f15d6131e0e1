package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"deploytracker/internal/config"
	"deploytracker/internal/repository"
	"deploytracker/internal/services"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Show the deployments every new session starts with",
	Long:  "Load the configured seed (built-in rows or seed.path) and print it with its chart, without starting a server.",
	Run:   runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	tracker := services.NewTracker(repository.NewSeedLoader(cfg.Seed.Path), nil, nil)
	if err := tracker.Initialize(cmd.Context()); err != nil {
		log.Fatalf("Failed to load seed: %v", err)
	}

	snap := tracker.Snapshot()
	printDeployments(os.Stdout, snap.Deployments)
	os.Stdout.WriteString("\n")
	printChart(os.Stdout, snap.Chart)
}
