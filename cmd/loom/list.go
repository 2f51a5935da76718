package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomery/loom/internal/pipelines"
)

// listCmd prints the bundled pipelines
func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List bundled pipelines",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Bundled pipelines:")
			fmt.Println()
			for _, e := range pipelines.Catalog() {
				fmt.Printf("  %-12s %s\n", e.Name, e.Description)
				for _, stage := range e.Build().Stages() {
					deps := ""
					if len(stage.DependsOn) > 0 {
						deps = fmt.Sprintf(" (after %v)", stage.DependsOn)
					}
					fmt.Printf("      - %s%s\n", stage.Name, deps)
				}
				fmt.Println()
			}
		},
	}
}
