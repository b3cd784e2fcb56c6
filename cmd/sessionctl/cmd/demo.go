package cmd

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/MrEthical07/goSession/authtest"
	"github.com/MrEthical07/goSession/store"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var demoSecret = []byte("sessionctl-demo-secret")

func newDemoCmd(opts *options) *cobra.Command {
	var audit bool

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the full session lifecycle against an in-process backend",
		Long: `Starts a fake auth backend, signs in a two-factor account, checks roles,
calls a protected endpoint through the session HTTP client and signs out.
Nothing is written to disk.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := authtest.NewServer()
			if err != nil {
				return err
			}
			defer a.Close()
			a.AddUser(authtest.User{
				ID:         "1",
				Email:      "demo@example.com",
				Password:   "demo",
				Name:       "Demo Admin",
				TOTPSecret: demoSecret,
				Roles: []authtest.Role{
					{ID: "1", Name: "Administrator", Code: "admin", Permissions: []string{"users.manage"}},
					{ID: "2", Name: "agent", Permissions: []string{"tickets.read"}},
				},
			})

			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			b := goSession.New().
				WithBaseURL(a.URL()).
				WithHTTPClient(a.Client()).
				WithStore(store.NewMemoryStore()).
				WithLogger(newLogger(level))
			if audit {
				b.WithAuditSink(goSession.NewJSONWriterSink(cmd.ErrOrStderr()))
			}
			s, err := b.Build()
			if err != nil {
				return err
			}
			defer s.Close()

			unsubscribe := s.Subscribe(func(st goSession.State) {
				pterm.Debug.Printfln("state -> %s", st.Kind)
			})
			defer unsubscribe()

			pterm.DefaultSection.Println("Sign in")
			res, err := s.SignInWithCredentials(ctx, "demo@example.com", "demo")
			if err != nil {
				return describe(err)
			}
			if res.RequiresSecondFactor {
				pterm.Info.Printfln("Second factor required for user %s", res.UserID)
				code := authtest.TOTPCode(demoSecret, time.Now())
				if err := s.VerifySecondFactor(ctx, res.UserID, code, false); err != nil {
					return describe(err)
				}
			}
			p := s.Principal()
			pterm.Success.Printfln("Authenticated as %s with roles %s", displayName(p), strings.Join(p.RoleCodes(), ", "))

			pterm.DefaultSection.Println("Role gate")
			for _, check := range []struct {
				label string
				ok    bool
			}{
				{"any of admin, auditor", s.HasAnyRole("admin", "auditor")},
				{"all of admin, auditor", s.HasAllRoles("admin", "auditor")},
				{"permission tickets.read", s.HasPermission("tickets.read")},
				{"admin", s.IsAdmin()},
				{"super admin", s.IsSuperAdmin()},
			} {
				pterm.Info.Printfln("%-24s %t", check.label, check.ok)
			}

			pterm.DefaultSection.Println("Authorized request")
			resp, err := s.HTTPClient(ctx).Get(a.URL() + "/auth/me")
			if err != nil {
				return err
			}
			resp.Body.Close()
			pterm.Info.Printfln("GET /auth/me -> %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))

			if err := s.RefreshPrincipal(ctx); err != nil {
				return describe(err)
			}
			pterm.Info.Printfln("Backend calls: login=%d verify=%d me=%d roles=%d",
				a.Calls(authtest.EndpointLogin), a.Calls(authtest.EndpointVerify),
				a.Calls(authtest.EndpointMe), a.Calls(authtest.EndpointRoles))

			pterm.DefaultSection.Println("Sign out")
			target := s.SignOut(ctx, "")
			pterm.Success.Printfln("Signed out, redirect to %s", target)
			fmt.Fprintf(out(cmd), "final state: %s\n", s.State().Kind)
			return nil
		},
	}

	cmd.Flags().BoolVar(&audit, "audit", false, "Write audit events as JSON lines to stderr")
	return cmd
}
