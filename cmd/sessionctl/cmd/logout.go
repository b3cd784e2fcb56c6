package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newLogoutCmd(opts *options) *cobra.Command {
	var redirect string

	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := opts.open()
			if err != nil {
				return err
			}
			defer done()

			target := s.SignOut(cmd.Context(), redirect)
			pterm.Success.Println("Logged out")
			if cmd.Flags().Changed("redirect") {
				pterm.Info.Printfln("Redirect: %s", target)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&redirect, "redirect", "", "Post sign-out redirect to sanitize and print")
	return cmd
}
