package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/almostacms/almostacms/internal/auth"
	"github.com/almostacms/almostacms/internal/github"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/ui/styles"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to GitHub with the device flow",
	Long: `Request a device code from GitHub, print the verification link and wait
for approval. The token is stored in github.token_file (mode 0600) and used
when the github-persistence flag is on.

Requires github.client_id.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.GitHub.ClientID == "" {
			return errors.New("github.client_id is not set")
		}
		cleanup, err := initLogging("almostacms-login")
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		tok, err := auth.NewDeviceFlow(cfg.GitHub.ClientID, auth.DeviceOptions{}).
			Login(ctx, func(p auth.Prompt) { writePrompt(out, p) })
		if err != nil {
			return err
		}
		tok.Login = lookupLogin(ctx, tok)

		store := auth.NewStore(cfg.TokenFile())
		if err := store.Save(tok); err != nil {
			return err
		}
		who := tok.Login
		if who == "" {
			who = "GitHub"
		}
		fmt.Fprintf(out, "%s signed in as %s (token saved to %s)\n",
			styles.SuccessStyle.Render("✓"), who, store.Path())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored GitHub token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store := auth.NewStore(cfg.TokenFile())
		if err := store.Delete(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "signed out")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd, logoutCmd)
}

func writePrompt(w io.Writer, p auth.Prompt) {
	fmt.Fprintf(w, "Open %s and enter the code %s\n",
		styles.TitleStyle.Render(p.VerificationURI), styles.CategoryStyle.Render(p.UserCode))
	if !p.Expiry.IsZero() {
		fmt.Fprintln(w, styles.MutedStyle.Render(
			fmt.Sprintf("The code expires in %s.", time.Until(p.Expiry).Round(time.Minute))))
	}
}

// lookupLogin asks GitHub who owns tok. Failure only costs the display name.
func lookupLogin(ctx context.Context, tok auth.StoredToken) string {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client := github.NewClient(oauth2.StaticTokenSource(tok.OAuth2()), github.Options{APIURL: cfg.GitHub.APIURL})
	user, err := client.AuthenticatedUser(ctx)
	if err != nil {
		log.Warn(log.CatAuth, "could not look up GitHub login", "error", err)
		return ""
	}
	return user.Login
}
