// Package main provides the entry point for the PromptLab CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/Life-Hackers-inc/Raycast-PromptLab/cmd/promptlab/commands"
)

func main() {
	// Pick up API keys and overrides from a local .env, if present.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
