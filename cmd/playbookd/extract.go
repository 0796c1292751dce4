package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"playbookd/internal/artifact"
	"playbookd/internal/extract"
	"playbookd/internal/model"
)

func newExtractCmd() *cobra.Command {
	var outDir string
	var backupDir string

	cmd := &cobra.Command{
		Use:   "extract <transcript>",
		Short: "Recover stage payloads from a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := extract.ParseTranscript(args[0])
			if res.Recovered() < 3 && backupDir != "" {
				res.Fill(extract.FromBackups(backupDir))
			}

			fmt.Printf("tasks found: %d\n", res.TasksFound)
			fmt.Printf("recovered:   %d of %d\n", res.Recovered(), len(model.Kinds))
			fmt.Printf("success:     %v\n", res.Success)
			for _, line := range res.Log {
				fmt.Println("  " + line)
			}

			if outDir == "" {
				return nil
			}
			for _, kind := range model.Kinds {
				data := res.Payload(kind)
				if data == nil {
					continue
				}
				if err := artifact.Write(outDir, model.ArtifactFile(kind), data); err != nil {
					return fmt.Errorf("write %s: %w", kind, err)
				}
				fmt.Printf("wrote %s\n", model.ArtifactFile(kind))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "", "directory to write recovered artifacts into")
	cmd.Flags().StringVar(&backupDir, "backups", "", "backup directory used when the transcript recovers too little")
	return cmd
}
