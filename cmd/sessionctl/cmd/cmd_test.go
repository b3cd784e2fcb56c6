package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goSession/authtest"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var totpSecret = []byte("12345678901234567890")

func TestMain(m *testing.M) {
	pterm.DisableOutput()
	os.Exit(m.Run())
}

type cli struct {
	t           *testing.T
	authority   *authtest.Authority
	configPath  string
	sessionFile string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	a := authtest.New(t)
	a.AddUser(authtest.User{
		ID:       "7",
		Email:    "a@x.com",
		Password: "correct",
		Name:     "Alice Agent",
		Roles: []authtest.Role{
			{ID: "1", Name: "agent", Permissions: []string{"tickets.read"}},
		},
	})
	a.AddUser(authtest.User{
		ID:         "42",
		Email:      "b@x.com",
		Password:   "correct",
		TOTPSecret: totpSecret,
		Roles:      []authtest.Role{{ID: "2", Name: "Administrator", Code: "admin"}},
	})

	dir := t.TempDir()
	configPath := filepath.Join(dir, "sessionctl.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("base_url: "+a.URL()+"\ntimeout: 5s\n"), 0o600))

	return &cli{
		t:           t,
		authority:   a,
		configPath:  configPath,
		sessionFile: filepath.Join(dir, "session.json"),
	}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()

	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append(args, "--config", c.configPath, "--session-file", c.sessionFile))
	err := root.ExecuteContext(c.t.Context())
	return stdout.String(), err
}

func TestLoginTokenLogout(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("a@x.com\ncorrect\n", "login")
	require.NoError(t, err)
	assert.FileExists(t, c.sessionFile)

	token, err := c.run("", "token")
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(token), "."), 3)

	got, err := c.run("", "can", "agent", "admin")
	require.NoError(t, err)
	assert.Equal(t, "agent, admin: yes\n", got)

	got, err = c.run("", "can", "--all", "agent", "admin")
	assert.ErrorIs(t, err, errDenied)
	assert.Equal(t, "agent, admin: no\n", got)

	_, err = c.run("", "can", "--permission", "tickets.read")
	assert.NoError(t, err)

	_, err = c.run("", "status")
	require.NoError(t, err)

	_, err = c.run("", "logout")
	require.NoError(t, err)
	assert.NoFileExists(t, c.sessionFile)

	_, err = c.run("", "token")
	assert.EqualError(t, err, "not logged in")
}

func TestLoginWithSecondFactor(t *testing.T) {
	c := newCLI(t)
	code := authtest.TOTPCode(totpSecret, time.Now())

	_, err := c.run("correct\n"+code+"\n", "login", "--email", "b@x.com")
	require.NoError(t, err)

	got, err := c.run("", "can", "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin: yes\n", got)
	assert.Equal(t, 1, c.authority.Calls(authtest.EndpointVerify))
}

func TestLoginWithBackupCodeFlag(t *testing.T) {
	c := newCLI(t)
	c.authority.AddUser(authtest.User{
		ID:          "43",
		Email:       "c@x.com",
		Password:    "correct",
		TOTPSecret:  totpSecret,
		BackupCodes: []string{"ABCD-1234"},
	})

	_, err := c.run("correct\n", "login", "--email", "c@x.com", "--backup", "--code", " ABCD-1234 ")
	require.NoError(t, err)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("a@x.com\nwrong\n", "login")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect email or password")
	assert.NoFileExists(t, c.sessionFile)
}

func TestStatusClearsRejectedSession(t *testing.T) {
	c := newCLI(t)

	_, err := c.run("a@x.com\ncorrect\n", "login")
	require.NoError(t, err)

	c.authority.Fail(authtest.EndpointMe, 401)

	_, err = c.run("", "status")
	require.Error(t, err)
	assert.NoFileExists(t, c.sessionFile)
}

func TestDemo(t *testing.T) {
	root := NewRootCmd()
	var stdout bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"demo"})

	require.NoError(t, root.ExecuteContext(t.Context()))
	assert.Equal(t, "final state: Unauthenticated\n", stdout.String())
}
