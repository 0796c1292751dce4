package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"playbookd/internal/artifact"
	"playbookd/internal/model"
	"playbookd/internal/validate"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <artifact-dir>",
		Short: "Structurally validate and score a session's artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			dir := args[0]

			res := validate.All(dir)
			fmt.Println(validate.Summary(res))

			read := func(kind string) model.Payload {
				data, _ := artifact.Read(dir, model.ArtifactFile(kind))
				return data
			}
			quality := validate.ScoreDataset(
				read(model.KindScenario), read(model.KindProblems),
				read(model.KindCorrections), read(model.KindImplementation))

			fmt.Printf("quality score:     %.1f\n", quality.QualityScore)
			fmt.Printf("data completeness: %.1f%%\n", quality.Completeness)
			fmt.Printf("complete:          %v\n", quality.IsComplete)
			for _, issue := range quality.Issues {
				fmt.Println("  issue: " + issue)
			}

			if !res.AllValid {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}
