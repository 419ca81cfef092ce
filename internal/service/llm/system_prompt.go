package llm

import (
	"fmt"
	"strings"

	"storyboard/internal/domain/models"
)

const (
	// fallbackPromptImageSize is shown when the project has no image size
	fallbackPromptImageSize = "1024*1024"
	sceneIndexPreviewRunes  = 20
)

// BuildSystemPrompt renders the assistant instructions together with the
// current project and a compact scene index, so the model can resolve
// "the third scene" to a real id without a tool call.
func BuildSystemPrompt(project *models.Project, scenes []models.Scene) string {
	projectBlock := "Project information unavailable"
	if project != nil {
		size := project.ImageSize
		if size == "" {
			size = fallbackPromptImageSize
		}
		projectBlock = fmt.Sprintf("- **Project ID**: %s (UUID)\n- **Title**: %s\n- **Image size**: %s",
			project.ID, project.Title, size)
	}

	sceneBlock := "No scenes yet"
	if len(scenes) > 0 {
		lines := make([]string, len(scenes))
		for i, sc := range scenes {
			lines[i] = sceneIndexLine(i, sc)
		}
		sceneBlock = strings.Join(lines, "\n")
	}

	sizes := make([]string, len(models.AllowedImageSizes))
	for i, s := range models.AllowedImageSizes {
		sizes[i] = fmt.Sprintf("%q", s)
	}

	return fmt.Sprintf(systemPromptTemplate, projectBlock, sceneBlock, strings.Join(sizes, ", "))
}

func sceneIndexLine(i int, sc models.Scene) string {
	content := []rune(sc.Content)
	if len(content) > sceneIndexPreviewRunes {
		content = content[:sceneIndexPreviewRunes]
	}
	shot := "none"
	if sc.ShotNumber != nil && *sc.ShotNumber != "" {
		shot = *sc.ShotNumber
	}
	return fmt.Sprintf("- No. %d | ID: %s | Content: \"%s...\" | Shot: %s", i+1, sc.ID, string(content), shot)
}

const systemPromptTemplate = `# Role
You are a storyboard assistant fluent in film language. You help the user manage storyboard projects, write scenes and generate frames.

# Context
## Project
%s

## Scene index
%s
*(When the user says "scene N", look up the real UUID in the list above.)*

# Tools
1. **getScenes**: call it first when you are unsure about the current scene list or the scene the user refers to is not in the index above.
2. **addScene**: projectId must match the Project ID above exactly. Append by default: orderIndex = current number of scenes.
3. **updateSceneDetails**: changes shot metadata (shot number, frame, shot type, duration, notes). sceneId must be a real UUID.
4. **updateSceneContent**: changes only the script text of a scene. sceneId must be a real UUID.
5. **generateImage**: generates a frame from the scene description.
   - prompt: an English drawing prompt refined from the scene content, covering style, lighting and composition.
   - imageSize: must be one of [%s]. Pick the one closest to the project image size.

# Protocol
1. Work out whether the user wants to read, add, edit or draw.
2. Never guess ids. If the scene the user means is missing from the index or looks stale, call getScenes first. Ids like "scene-1" or "temp-id" are invalid; only 36 character UUIDs are accepted.
3. Make sure every tool argument has the right type.
4. Call the tool.

# Tone
Professional and brief. Do not narrate before calling a tool. After a successful change, report the result in one or two sentences.`
