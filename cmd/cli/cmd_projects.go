package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"storyboard/internal/domain/services"

	"github.com/spf13/cobra"
)

var (
	projectDescription string
	projectImageSize   string
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project", "p"},
	Short:   "List and create projects",
	RunE:    runProjectsList,
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active projects, most recently updated first",
	RunE:  runProjectsList,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <title>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		req := &services.CreateProjectRequest{Title: args[0]}
		if projectDescription != "" {
			req.Description = &projectDescription
		}
		if projectImageSize != "" {
			req.ImageSize = &projectImageSize
		}

		project, err := client.CreateProject(ctx, req)
		if err != nil {
			return err
		}
		success("Created project %s (%s)", project.Title, project.ID)
		return nil
	},
}

func init() {
	projectsCreateCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description")
	projectsCreateCmd.Flags().StringVar(&projectImageSize, "image-size", "", "Image size for generated frames, e.g. 1328*1328")

	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd)
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	projects, err := client.ListProjects(ctx)
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet. Create one with 'storyboard projects create <title>'.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tIMAGE SIZE\tUPDATED")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Title, p.ImageSize, p.UpdatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
