package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTokenCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Print a valid access token, refreshing it if needed",
		Example: `  curl -H "Authorization: Bearer $(sessionctl token)" https://api.example.com/tickets`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := opts.restore(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			token, err := s.AccessToken(cmd.Context())
			if err != nil {
				return describe(err)
			}
			_, err = fmt.Fprintln(out(cmd), token)
			return err
		},
	}
}
