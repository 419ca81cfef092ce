package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"storyboard/internal/client/api"
	"storyboard/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorBlue   = "\033[34m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

var (
	serverURL string
	tokenFlag string
	verbose   bool
	timeout   time.Duration

	logger *slog.Logger
	client *api.Client
)

var rootCmd = &cobra.Command{
	Use:   "storyboard",
	Short: "Command line client for the storyboard API",
	Long: `Manage storyboard projects and scenes from the terminal.

Log in once with 'storyboard login'; the session token is saved to
~/.storyboard/token and reused by later commands.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var syncLogs func()
		logger, syncLogs = config.NewLogger(verbose, nil)
		cobra.OnFinalize(syncLogs)

		client = api.NewClient(serverURL)
		token := tokenFlag
		if token == "" {
			token = loadToken()
		}
		client.SetToken(token)
		return nil
	},
}

func init() {
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("STORYBOARD_SERVER", "http://localhost:8080"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", os.Getenv("STORYBOARD_TOKEN"), "Session token (default: saved login)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Request timeout")

	rootCmd.AddCommand(signupCmd, loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(scenesCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if api.IsUnauthorized(err) {
			fmt.Fprintf(os.Stderr, "%sNot logged in. Run 'storyboard login' first.%s\n", colorYellow, colorReset)
		}
		os.Exit(1)
	}
}

// commandContext bounds a single command by --timeout
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func tokenPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".storyboard", "token"), nil
}

func loadToken() string {
	path, err := tokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func saveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	return os.WriteFile(path, []byte(token+"\n"), 0o600)
}

func removeToken() error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func success(format string, args ...interface{}) {
	fmt.Printf("%s✓ %s%s\n", colorGreen, fmt.Sprintf(format, args...), colorReset)
}
