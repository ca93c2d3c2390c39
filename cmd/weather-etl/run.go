package main

import "github.com/spf13/cobra"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the one-shot pipeline and exit (default command)",
	RunE:  runPipelineCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addPipelineFlags(runCmd)
}
