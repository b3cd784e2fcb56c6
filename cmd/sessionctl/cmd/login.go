package cmd

import (
	"fmt"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newLoginCmd(opts *options) *cobra.Command {
	var (
		email  string
		code   string
		backup bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Signs in with email and password. When the account has two-factor
authentication enabled, the command asks for a TOTP code, or a backup code
when --backup is set.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			w := cmd.ErrOrStderr()

			s, done, err := opts.open()
			if err != nil {
				return err
			}
			defer done()

			if email == "" {
				if email, err = opts.promptLine(w, "Email"); err != nil {
					return err
				}
			}
			password, err := opts.promptSecret(w, "Password", cmd.InOrStdin())
			if err != nil {
				return err
			}

			res, err := s.SignInWithCredentials(ctx, email, password)
			if err != nil {
				return describe(err)
			}

			if res.RequiresSecondFactor {
				pterm.Info.Println("Two-factor authentication required")
				if code == "" {
					label := "Verification code"
					if backup {
						label = "Backup code"
					}
					if code, err = opts.promptSecret(w, label, cmd.InOrStdin()); err != nil {
						return err
					}
				}
				if err := s.VerifySecondFactor(ctx, res.UserID, code, backup); err != nil {
					return describe(err)
				}
			}

			p := s.Principal()
			if p == nil {
				return goSession.ErrSessionNotReady
			}
			pterm.Success.Printfln("Logged in as %s (%s)", displayName(p), p.Email)
			if codes := p.RoleCodes(); len(codes) > 0 {
				pterm.Info.Printfln("Roles: %s", strings.Join(codes, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&code, "code", "", "Second factor code")
	cmd.Flags().BoolVar(&backup, "backup", false, "Treat the second factor code as a backup code")
	return cmd
}

func displayName(p *goSession.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("user %s", p.ID)
}
