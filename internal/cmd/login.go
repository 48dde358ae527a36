package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hireloop/portal-auth/client"
	"github.com/hireloop/portal-auth/integration"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in against a running portal and print where the portal would route you",
	Long: `Log in with email and password, store the session locally and print
the destination the portal picks for the account role. client_admin
accounts are sent to the integration setup until greenhouse is connected.

The password is read from --password or, when omitted, from stdin.`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the stored session and remove it",
	RunE:  runLogout,
}

var (
	loginEmail    string
	loginPassword string
	loginURL      string
	loginSession  string
)

func init() {
	for _, c := range []*cobra.Command{loginCmd, logoutCmd} {
		c.Flags().StringVar(&loginURL, "url", "", "Portal base URL (overrides PORTAL_URL)")
		c.Flags().StringVar(&loginSession, "session", "", "Session file (default ~/.portal-auth/session.json)")
	}
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "Account password")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
}

// terminal prints notices and navigation to the command output
type terminal struct {
	out io.Writer
}

func (t terminal) Success(message string) { fmt.Fprintln(t.out, message) }
func (t terminal) Error(message string)   { fmt.Fprintln(t.out, "error:", message) }
func (t terminal) Navigate(route string)  { fmt.Fprintln(t.out, "→", route) }

// clientSettings resolves the portal URL and session file from flags,
// then PORTAL_URL and PORTAL_SESSION_PATH.
func clientSettings() (string, string) {
	base := loginURL
	if base == "" {
		base = os.Getenv("PORTAL_URL")
	}
	if base == "" {
		base = "http://localhost:5000"
	}

	path := loginSession
	if path == "" {
		path = os.Getenv("PORTAL_SESSION_PATH")
	}
	if path == "" {
		path = client.DefaultSessionPath()
	}
	return base, path
}

func runLogin(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	base, path := clientSettings()

	password := loginPassword
	if password == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && err != io.EOF {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}

	out := terminal{out: cmd.OutOrStdout()}
	api := client.NewAPI(base, &http.Client{})
	gate := integration.NewClient(base)
	session := client.NewSessionContext(client.NewFileStorage(path))

	orchestrator := client.NewOrchestrator(api, session, gate, out, out)
	defer orchestrator.Close()

	pending, err := orchestrator.Submit(ctx, loginEmail, password)
	if err != nil {
		return fmt.Errorf("%s", client.UserMessage(err))
	}

	select {
	case <-pending.Done():
	case <-ctx.Done():
		pending.Cancel()
		<-pending.Done()
	}

	result := pending.Result()
	if result.Err != nil {
		return result.Err
	}
	if !result.Navigated {
		return fmt.Errorf("%s", orchestrator.Message())
	}
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	base, path := clientSettings()

	session := client.NewSessionContext(client.NewFileStorage(path))
	token := session.Token()
	if token == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "no stored session")
		return nil
	}

	if err := client.NewAPI(base, nil).Logout(ctx, token); err != nil {
		return err
	}
	if err := session.Teardown(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}
