package main

import (
	"context"
	"fmt"

	"github.com/horizonml/horizon/pkg/schema"
	"github.com/spf13/cobra"
)

func getJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs <project-id>",
		Short: "List a project's training and scoring runs",
		Long: `List the jobs of a project in run order.

Each training or scoring run leaves a job record with a monotonic run
sequence and a final status of completed or failed. Failed jobs carry
the failure reason.`,
		Args: cobra.ExactArgs(1),
		RunE: runJobs,
	}
}

func runJobs(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	jobs, err := reg.ListJobs(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Println("No jobs yet.")
		return nil
	}
	for _, j := range jobs {
		line := fmt.Sprintf("#%-4d %-8s %-10s %s",
			j.RunSeq, j.Kind, j.Status, j.CreatedAt.Format("2006-01-02 15:04:05"))
		if j.Status == schema.JobFailed && j.Error != "" {
			line += "  " + j.Error
		}
		fmt.Println(line)
	}
	return nil
}
