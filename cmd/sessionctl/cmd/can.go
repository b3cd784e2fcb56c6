package cmd

import (
	"errors"
	"fmt"
	"strings"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/rolegate"
	"github.com/spf13/cobra"
)

// errDenied makes the process exit non-zero without a usage dump.
var errDenied = errors.New("denied")

func newCanCmd(opts *options) *cobra.Command {
	var (
		all        bool
		permission bool
	)

	cmd := &cobra.Command{
		Use:   "can ROLE...",
		Short: "Check whether the current login holds roles",
		Long: `Checks the role gate of the current login. By default any one of the
roles is enough; --all requires every role. With --permission the arguments
are permission codes instead of roles.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, done, err := opts.restore(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			ok, err := s.Authorize(cmd.Context(), func(s *goSession.Session) bool {
				switch {
				case permission:
					for _, p := range args {
						if !s.HasPermission(p) {
							return false
						}
					}
					return true
				case all:
					return s.HasRoles(rolegate.All, args...)
				default:
					return s.HasRoles(rolegate.Any, args...)
				}
			})
			if err != nil {
				return describe(err)
			}

			verdict := "no"
			if ok {
				verdict = "yes"
			}
			fmt.Fprintf(out(cmd), "%s: %s\n", strings.Join(args, ", "), verdict)
			if !ok {
				return errDenied
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Require every role")
	cmd.Flags().BoolVar(&permission, "permission", false, "Check permission codes instead of roles")
	return cmd
}
