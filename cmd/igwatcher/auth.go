package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igwatcher/pkg/auth"
)

// authCmd represents the auth command.
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the Instagram session",
	Long: `Manage the stored Instagram session used for fetching profiles
behind the login wall.

The session is stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (IGWATCHER_SESSION_ID and IGWATCHER_CSRF_TOKEN)

Never share your session values or config files!`,
}

// authLoginCmd represents the auth login command.
var authLoginCmd = &cobra.Command{
	Use:   "login [label]",
	Short: "Store an Instagram session securely",
	Long: `Store an Instagram session in the system keychain or encrypted file.

You will be prompted for:
  - Session ID (from the sessionid cookie)
  - CSRF Token (from the csrftoken cookie)
  - User Agent (optional, press Enter for default)

To get these values:
1. Log into Instagram in your browser
2. Open Developer Tools (F12)
3. Go to Application/Storage > Cookies
4. Find and copy the sessionid and csrftoken values`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthLogin,
}

// authLogoutCmd represents the auth logout command.
var authLogoutCmd = &cobra.Command{
	Use:   "logout [label]",
	Short: "Remove a stored session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runAuthLogout,
}

// authStatusCmd represents the auth status command.
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show stored sessions with masked values",
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authLoginCmd)
	authCmd.AddCommand(authLogoutCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	label := auth.DefaultLabel
	if len(args) > 0 {
		label = strings.TrimSpace(args[0])
	}

	sessionID, err := promptSecret("Session ID: ")
	if err != nil {
		return err
	}
	csrfToken, err := promptSecret("CSRF Token: ")
	if err != nil {
		return err
	}
	userAgent, err := promptLine("User Agent (optional): ")
	if err != nil {
		return err
	}

	session := &auth.Session{
		Label:     label,
		SessionID: sessionID,
		CSRFToken: csrfToken,
		UserAgent: userAgent,
	}

	if err := manager.Store(session); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	fmt.Printf("Session %q stored.\n", label)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	label := auth.DefaultLabel
	if len(args) > 0 {
		label = strings.TrimSpace(args[0])
	}

	if err := manager.Delete(label); err != nil {
		return err
	}

	fmt.Printf("Session %q removed.\n", label)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize session manager: %w", err)
	}

	sessions, err := manager.List()
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions stored.")
		return nil
	}

	for _, session := range sessions {
		sanitized := auth.SanitizeSession(session)
		fmt.Printf("%-12s session_id=%s csrf_token=%s modified=%s\n",
			sanitized.Label,
			sanitized.SessionID,
			sanitized.CSRFToken,
			sanitized.LastModified.Format("2006-01-02 15:04"),
		)
	}
	return nil
}

// promptSecret reads a value without echoing it to the terminal.
func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	value, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(string(value)), nil
}

// promptLine reads a plain line from stdin.
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", nil
	}
	return strings.TrimSpace(line), nil
}
