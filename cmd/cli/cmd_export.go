package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"storyboard/internal/client/scenestore"

	"github.com/spf13/cobra"
)

var exportDir string

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Download the project as an XLSX storyboard",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, store *scenestore.Store, args []string) error {
		state := store.State()
		if len(state.Scenes) == 0 {
			return fmt.Errorf("project %s has no scenes to export", state.Project.Title)
		}

		export, err := client.Export(ctx, exportRequest(state.Project, state.Scenes))
		if err != nil {
			return err
		}

		path := filepath.Join(exportDir, filepath.Base(export.Filename))
		if err := os.WriteFile(path, export.Data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		success("Wrote %s (%d bytes)", path, len(export.Data))
		if export.ArchiveURL != "" {
			fmt.Printf("%sArchived copy: %s%s\n", colorBlue, export.ArchiveURL, colorReset)
		}
		return nil
	}),
}

func init() {
	exportCmd.Flags().StringVarP(&exportDir, "output-dir", "o", ".", "Directory to write the workbook to")
}
