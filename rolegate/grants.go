package rolegate

import (
	_ "embed"
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var grantModel string

// grants answers permission queries for one role snapshot. Policies are
// loaded once when the snapshot is built and only read afterwards.
type grants struct {
	enforcer *casbin.SyncedEnforcer
	subjects []string
}

// roleSubject is the casbin subject for an assignment. Assignments without
// a code still carry their permissions under a positional subject.
func roleSubject(i int, code string) string {
	if code == "" {
		return fmt.Sprintf("role#%d", i)
	}
	return "role:" + code
}

func newGrants(assignments []Assignment) (*grants, error) {
	m, err := model.NewModelFromString(grantModel)
	if err != nil {
		return nil, fmt.Errorf("parse grant model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create grant enforcer: %w", err)
	}

	g := &grants{enforcer: enforcer}
	held := make(map[string]bool)
	seen := make(map[[2]string]bool)
	var rules [][]string
	for i, a := range assignments {
		sub := roleSubject(i, a.Code)
		for _, p := range a.Permissions {
			if p == "" || seen[[2]string{sub, p}] {
				continue
			}
			seen[[2]string{sub, p}] = true
			rules = append(rules, []string{sub, p})
			if !held[sub] {
				held[sub] = true
				g.subjects = append(g.subjects, sub)
			}
		}
	}
	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return nil, fmt.Errorf("load grants: %w", err)
		}
	}
	return g, nil
}

// allows reports whether any held role is granted act. Enforcement errors
// deny.
func (g *grants) allows(act string) bool {
	for _, sub := range g.subjects {
		ok, err := g.enforcer.Enforce(sub, act)
		if err != nil {
			return false
		}
		if ok {
			return true
		}
	}
	return false
}
