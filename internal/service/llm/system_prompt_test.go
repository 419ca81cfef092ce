package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"storyboard/internal/domain/models"
)

func TestBuildSystemPrompt(t *testing.T) {
	shot := "3A"
	project := &models.Project{ID: testProject, Title: "Night Market"}
	scenes := []models.Scene{
		{ID: "s-1", Content: "一个很长很长的场景描述，超过了二十个字符的限制，需要被截断"},
		{ID: "s-2", Content: "Short", ShotNumber: &shot},
	}

	prompt := BuildSystemPrompt(project, scenes)

	assert.Contains(t, prompt, "- **Project ID**: "+testProject+" (UUID)")
	assert.Contains(t, prompt, "- **Title**: Night Market")
	assert.Contains(t, prompt, "- **Image size**: 1024*1024", "fallback when the project has no size")

	first := `- No. 1 | ID: s-1 | Content: "` + string([]rune(scenes[0].Content)[:20]) + `..." | Shot: none`
	assert.Contains(t, prompt, first)
	assert.Contains(t, prompt, `- No. 2 | ID: s-2 | Content: "Short..." | Shot: 3A`)

	for _, size := range models.AllowedImageSizes {
		assert.Contains(t, prompt, `"`+size+`"`)
	}
}

func TestBuildSystemPrompt_Empty(t *testing.T) {
	prompt := BuildSystemPrompt(nil, nil)
	assert.Contains(t, prompt, "Project information unavailable")
	assert.Contains(t, prompt, "No scenes yet")
	assert.False(t, strings.Contains(prompt, "%!"), "template verbs all filled")

	project := &models.Project{ID: testProject, Title: "T", ImageSize: "720*1280"}
	assert.Contains(t, BuildSystemPrompt(project, nil), "- **Image size**: 720*1280")
}
