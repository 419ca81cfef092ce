package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"storyboard/internal/client/api"
	"storyboard/internal/domain/services"

	"github.com/spf13/cobra"
)

var (
	authEmail    string
	authPassword string
	authName     string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and log in",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		email, password := credentials()
		session, err := client.Signup(ctx, &services.SignupRequest{
			Email:           email,
			Password:        password,
			ConfirmPassword: password,
			Name:            authName,
		})
		if err != nil {
			return fmt.Errorf("signup failed: %w", err)
		}
		return storeSession(session)
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and save the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		email, password := credentials()
		session, err := client.Login(ctx, email, password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		return storeSession(session)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := removeToken(); err != nil {
			return err
		}
		success("Logged out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		user, err := client.Me(ctx)
		if err != nil {
			return err
		}
		name := ""
		if user.Name != nil {
			name = " (" + *user.Name + ")"
		}
		fmt.Printf("%s%s\n", user.Email, name)
		return nil
	},
}

func init() {
	for _, cmd := range []*cobra.Command{signupCmd, loginCmd} {
		cmd.Flags().StringVarP(&authEmail, "email", "e", "", "Account email (prompted when empty)")
		cmd.Flags().StringVarP(&authPassword, "password", "p", "", "Account password (prompted when empty)")
	}
	signupCmd.Flags().StringVar(&authName, "name", "", "Display name")
}

// credentials falls back to stdin prompts for missing flags
func credentials() (string, string) {
	scanner := bufio.NewScanner(os.Stdin)
	email, password := authEmail, authPassword
	if email == "" {
		fmt.Print("Email: ")
		if scanner.Scan() {
			email = strings.TrimSpace(scanner.Text())
		}
	}
	if password == "" {
		fmt.Print("Password: ")
		if scanner.Scan() {
			password = scanner.Text()
		}
	}
	return email, password
}

func storeSession(session *api.Session) error {
	if err := saveToken(session.Token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	email := ""
	if session.User != nil {
		email = session.User.Email
	}
	logger.Debug("session stored", "expires_at", session.ExpiresAt)
	success("Logged in as %s (session valid until %s)", email, session.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}
