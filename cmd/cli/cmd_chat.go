package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"storyboard/internal/client/scenestore"
	"storyboard/internal/domain/services"

	"github.com/spf13/cobra"
)

var (
	chatModel   string
	chatMessage string
)

var chatCmd = &cobra.Command{
	Use:   "chat <project-id>",
	Short: "Talk to the storyboard assistant",
	Long: `Talk to the storyboard assistant about a project.

The assistant can read, add and edit scenes and generate images. The scene
list is refreshed after every answer. Type /scenes to print it, /exit to quit.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := scenestore.New(client, scenestore.WithLogger(logger))
		defer store.Close()

		ctx, cancel := commandContext(cmd)
		err := store.Open(ctx, args[0])
		cancel()
		if err != nil {
			return err
		}

		session := &chatSession{projectID: args[0], store: store}

		if chatMessage != "" {
			return session.send(cmd.Context(), chatMessage)
		}
		return session.repl(cmd.Context())
	},
}

func init() {
	chatCmd.Flags().StringVar(&chatModel, "model", "", "Model id (default: server default)")
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send one message and exit")
}

type chatSession struct {
	projectID string
	store     *scenestore.Store
	history   []services.ChatMessage
}

func (s *chatSession) repl(ctx context.Context) error {
	state := s.store.State()
	fmt.Printf("\n%sChatting about %q. /scenes lists scenes, /exit quits.%s\n", colorCyan, state.Project.Title, colorReset)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Printf("\n%syou>%s ", colorBlue, colorReset)
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/exit", "/quit":
			fmt.Printf("%s✓ Goodbye!%s\n", colorGreen, colorReset)
			return nil
		case "/scenes":
			printScenes(s.store.State())
			continue
		}

		if err := s.send(ctx, line); err != nil {
			fmt.Printf("%s❌ %v%s\n", colorRed, err, colorReset)
		}
	}
}

// send streams one turn, then refreshes the scene list if a tool changed it
func (s *chatSession) send(ctx context.Context, text string) error {
	s.history = append(s.history, services.ChatMessage{Role: "user", Content: text})

	turnCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reply strings.Builder
	changed := false
	fmt.Printf("%sassistant>%s ", colorGreen, colorReset)

	err := client.Chat(turnCtx, &services.ChatRequest{
		ProjectID: s.projectID,
		Messages:  s.history,
		Model:     chatModel,
	}, func(ev services.ChatEvent) error {
		switch ev.Type {
		case services.ChatEventTextDelta:
			reply.WriteString(ev.Delta)
			fmt.Print(ev.Delta)
		case services.ChatEventToolCall:
			fmt.Printf("\n%s  → %s %s%s\n", colorYellow, ev.ToolName, compactJSON(ev.Input), colorReset)
			if ev.ToolName == "generateImage" {
				if id := sceneIDFromInput(ev.Input); id != "" {
					_ = s.store.SetGeneratingImage(id)
				}
			}
		case services.ChatEventToolResult:
			fmt.Printf("%s  ← %s%s\n", colorYellow, preview(compactJSON(ev.Output), 120), colorReset)
			if ev.ToolName != "getScenes" {
				changed = true
			}
		case services.ChatEventError:
			fmt.Printf("\n%s❌ %s%s\n", colorRed, ev.Error, colorReset)
		case services.ChatEventFinish:
			logger.Debug("turn finished", "reason", ev.Reason)
		}
		return nil
	})
	fmt.Println()
	_ = s.store.SetGeneratingImage("")

	if reply.Len() > 0 {
		s.history = append(s.history, services.ChatMessage{Role: "assistant", Content: reply.String()})
	}
	if err != nil {
		return err
	}

	if changed {
		if err := s.store.Refresh(ctx); err != nil {
			return fmt.Errorf("refresh scenes: %w", err)
		}
		printScenes(s.store.State())
	}
	return nil
}

func sceneIDFromInput(input interface{}) string {
	m, ok := input.(map[string]interface{})
	if !ok {
		return ""
	}
	id, _ := m["sceneId"].(string)
	return id
}

func compactJSON(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
