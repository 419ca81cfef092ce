package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"storyboard/internal/client/scenestore"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
)

const previewLength = 60

func printScenes(state scenestore.State) {
	writeScenes(os.Stdout, state)
}

func writeScenes(w io.Writer, state scenestore.State) {
	if state.Project != nil {
		fmt.Fprintf(w, "%s%s%s (%d scenes)\n", colorCyan, state.Project.Title, colorReset, len(state.Scenes))
	}
	if len(state.Scenes) == 0 {
		fmt.Fprintln(w, "No scenes yet.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSHOT\tTYPE\tDURATION\tIMAGE\tCONTENT\tID")
	for i, sc := range state.Scenes {
		image := "-"
		if sc.HasImage() {
			image = "yes"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			i+1,
			deref(sc.ShotNumber),
			deref(sc.ShotType),
			duration(sc.DurationSeconds),
			image,
			preview(sc.Content, previewLength),
			sc.ID,
		)
	}
	_ = tw.Flush()
}

// exportRequest builds an export body from the scenes in display order
func exportRequest(project *models.Project, scenes []models.Scene) *services.ExportRequest {
	req := &services.ExportRequest{
		Project: &services.ExportProject{Title: project.Title},
		Scenes:  make([]services.ExportScene, 0, len(scenes)),
	}
	for _, sc := range scenes {
		content := sc.Content
		es := services.ExportScene{
			ShotNumber: sc.ShotNumber,
			ShotType:   sc.ShotType,
			Frame:      sc.Frame,
			Content:    &content,
			Notes:      sc.Notes,
			ImageURL:   sc.ImageURL,
		}
		if sc.DurationSeconds != nil {
			es.DurationSeconds = *sc.DurationSeconds
		}
		req.Scenes = append(req.Scenes, es)
	}
	return req
}

func deref(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func duration(n *int) string {
	if n == nil {
		return "-"
	}
	return strconv.Itoa(*n) + "s"
}

// preview flattens whitespace and cuts s to at most n runes
func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "-"
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
