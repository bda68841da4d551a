package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	projectDescription string
	forceDelete        bool
)

func getProjectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
		Long: `Manage Horizon projects.

A project owns datasets, feature stores, models and predictions.
Deleting a project removes all of them, including the backing tables.`,
	}

	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE:  runProjectCreate,
	}
	create.Flags().StringVar(&projectDescription, "description", "",
		"short description of the project")

	list := &cobra.Command{
		Use:   "list",
		Short: "List all projects",
		Args:  cobra.NoArgs,
		RunE:  runProjectList,
	}

	del := &cobra.Command{
		Use:   "delete <project-id>",
		Short: "Delete a project and everything it owns",
		Long: `Delete a project.

This removes all metadata (datasets, feature stores, models,
predictions, jobs) and drops every backing table the project created.
A backing table that cannot be dropped is logged and skipped; the
metadata is removed either way.`,
		Args: cobra.ExactArgs(1),
		RunE: runProjectDelete,
	}
	del.Flags().BoolVar(&forceDelete, "force", false,
		"delete without confirmation (destructive)")

	cmd.AddCommand(create, list, del)
	return cmd
}

func runProjectCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	p, err := reg.CreateProject(ctx, args[0], projectDescription)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	fmt.Printf("\n✓ Project created\n  id:   %s\n  name: %s\n", p.ID, p.Name)
	return nil
}

func runProjectList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	projects, err := reg.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet.")
		return nil
	}
	for _, p := range projects {
		fmt.Printf("%s  %s  %s\n",
			p.ID, p.CreatedAt.Format("2006-01-02"), p.Name)
	}
	return nil
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	projectID := args[0]

	op, reg, err := connectRegistry(ctx)
	if err != nil {
		return err
	}
	defer op.Close()

	p, err := reg.GetProject(ctx, projectID)
	if err != nil {
		return err
	}

	if !forceDelete {
		fmt.Printf("\n⚠️  Warning: this deletes project %q and ALL of its\n", p.Name)
		fmt.Println("datasets, feature stores, models, predictions and backing tables.")
		fmt.Print("\nDo you want to continue? (yes/no): ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read user input: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "yes" && response != "y" {
			fmt.Println("Aborted. No changes made.")
			return nil
		}
	}

	if err := reg.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	fmt.Printf("✓ Project %s deleted\n", projectID)
	return nil
}
