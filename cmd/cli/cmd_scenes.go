package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"storyboard/internal/client/scenestore"

	"github.com/spf13/cobra"
)

var sceneContent string

var scenesCmd = &cobra.Command{
	Use:     "scenes",
	Aliases: []string{"scene", "s"},
	Short:   "Edit the scenes of a project",
	Long: `Edit the scenes of a project.

Scenes are addressed by id or by their 1-based position in the list.`,
}

var scenesListCmd = &cobra.Command{
	Use:   "list <project-id>",
	Short: "List scenes in display order",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, store *scenestore.Store, args []string) error {
		printScenes(store.State())
		return nil
	}),
}

var scenesAddCmd = &cobra.Command{
	Use:   "add <project-id>",
	Short: "Append a scene after the last one",
	Args:  cobra.ExactArgs(1),
	RunE: withStore(func(ctx context.Context, store *scenestore.Store, args []string) error {
		scene, err := store.AddScene(ctx)
		if err != nil {
			return err
		}
		if sceneContent != "" {
			if err := store.UpdateField(scene.ID, scenestore.FieldContent, sceneContent); err != nil {
				return err
			}
			if err := store.PersistScene(ctx, scene.ID, scenestore.FieldContent); err != nil {
				return err
			}
		}
		success("Added scene %s at position %d", scene.ID, len(store.State().Scenes))
		return nil
	}),
}

var scenesSetCmd = &cobra.Command{
	Use:   "set <project-id> <scene> field=value...",
	Short: "Update scene fields",
	Long: `Update scene fields and save them.

Fields: content, shot_number, shot_type, frame, duration_seconds, notes,
ai_notes, image_url. An empty value clears the field.`,
	Example: `  storyboard scenes set $PROJECT 2 shot_type=Close-up duration_seconds=3`,
	Args:    cobra.MinimumNArgs(3),
	RunE: withStore(func(ctx context.Context, store *scenestore.Store, args []string) error {
		id, err := resolveScene(store.State(), args[1])
		if err != nil {
			return err
		}

		assignments, err := parseAssignments(args[2:])
		if err != nil {
			return err
		}
		fields := make([]scenestore.Field, 0, len(assignments))
		for _, a := range assignments {
			if err := store.UpdateField(id, a.field, a.value); err != nil {
				return err
			}
			fields = append(fields, a.field)
		}

		if err := store.PersistScene(ctx, id, fields...); err != nil {
			return err
		}
		success("Saved %d field(s) on scene %s", len(fields), id)
		return nil
	}),
}

var scenesRemoveCmd = &cobra.Command{
	Use:     "rm <project-id> <scene>",
	Aliases: []string{"remove", "delete"},
	Short:   "Delete a scene",
	Args:    cobra.ExactArgs(2),
	RunE: withStore(func(ctx context.Context, store *scenestore.Store, args []string) error {
		id, err := resolveScene(store.State(), args[1])
		if err != nil {
			return err
		}
		if err := store.RemoveScene(ctx, id); err != nil {
			return err
		}
		success("Deleted scene %s", id)
		return nil
	}),
}

var scenesMoveCmd = &cobra.Command{
	Use:       "move <project-id> <scene> up|down",
	Short:     "Swap a scene with its neighbour",
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{"up", "down"},
	RunE: withStore(func(ctx context.Context, store *scenestore.Store, args []string) error {
		id, err := resolveScene(store.State(), args[1])
		if err != nil {
			return err
		}
		switch args[2] {
		case "up":
			err = store.MoveUp(ctx, id)
		case "down":
			err = store.MoveDown(ctx, id)
		default:
			return fmt.Errorf("direction must be up or down, got %q", args[2])
		}
		if err != nil {
			return err
		}
		printScenes(store.State())
		return nil
	}),
}

var scenesReorderCmd = &cobra.Command{
	Use:   "reorder <project-id> <scene>...",
	Short: "Put scenes in the given order; unlisted scenes follow",
	Args:  cobra.MinimumNArgs(2),
	RunE: withStore(func(ctx context.Context, store *scenestore.Store, args []string) error {
		state := store.State()
		ids := make([]string, 0, len(args)-1)
		for _, ref := range args[1:] {
			id, err := resolveScene(state, ref)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		if err := store.Reorder(ctx, ids); err != nil {
			return err
		}
		printScenes(store.State())
		return nil
	}),
}

func init() {
	scenesAddCmd.Flags().StringVarP(&sceneContent, "content", "c", "", "Scene description")

	scenesCmd.AddCommand(scenesListCmd, scenesAddCmd, scenesSetCmd, scenesRemoveCmd, scenesMoveCmd, scenesReorderCmd)
}

// withStore opens a scene store on args[0] for the duration of the command
func withStore(fn func(ctx context.Context, store *scenestore.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		store := scenestore.New(client, scenestore.WithLogger(logger))
		defer store.Close()

		if err := store.Open(ctx, args[0]); err != nil {
			return err
		}
		return fn(ctx, store, args)
	}
}

type assignment struct {
	field scenestore.Field
	value interface{}
}

// parseAssignments turns field=value arguments into typed store values
func parseAssignments(args []string) ([]assignment, error) {
	out := make([]assignment, 0, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected field=value, got %q", arg)
		}
		field := scenestore.Field(strings.TrimSpace(name))

		var value interface{}
		switch {
		case raw == "":
			value = nil
		case field == scenestore.FieldDurationSeconds:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("duration_seconds must be a whole number, got %q", raw)
			}
			value = n
		default:
			value = raw
		}
		out = append(out, assignment{field: field, value: value})
	}
	return out, nil
}

// resolveScene accepts a scene id or a 1-based position
func resolveScene(state scenestore.State, ref string) (string, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(state.Scenes) {
			return "", fmt.Errorf("position %d out of range (1-%d)", n, len(state.Scenes))
		}
		return state.Scenes[n-1].ID, nil
	}
	for _, sc := range state.Scenes {
		if sc.ID == ref {
			return ref, nil
		}
	}
	return "", fmt.Errorf("%w: %s", scenestore.ErrSceneNotFound, ref)
}
