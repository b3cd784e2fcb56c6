package cmd

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newStatusCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Display the current login and roles",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, done, err := opts.restore(cmd.Context())
			if err != nil {
				return err
			}
			defer done()

			st := s.State()
			p := st.Principal
			if p == nil {
				pterm.Warning.Printfln("Session is %s", st.Kind)
				return nil
			}

			pterm.DefaultSection.Println("Session")
			pterm.Info.Printfln("State: %s", st.Kind)
			pterm.Info.Printfln("User: %s (%s), id %s", displayName(p), p.Email, p.ID)
			pterm.Info.Printfln("Admin: %t, super admin: %t", s.IsAdmin(), s.IsSuperAdmin())

			pterm.DefaultSection.Println("Roles")
			data := pterm.TableData{{"ROLE", "PERMISSIONS"}}
			for _, r := range p.Roles {
				data = append(data, []string{r.Code, strings.Join(r.Permissions, ", ")})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(out(cmd)).Render()
		},
	}
}
