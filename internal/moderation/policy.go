package moderation

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mediate-project/mediate/internal/models"
	"github.com/mediate-project/mediate/internal/schema"
)

//go:embed policies.yaml
var defaultPolicyFile []byte

// Policy says which operations on an entity type are reviewed and which
// privilege bypasses review.
type Policy struct {
	Type   models.EntityType         `yaml:"type"`
	Gated  []models.ModerationAction `yaml:"gated"`
	Exempt models.Privilege          `yaml:"exempt"`
}

// Gates reports whether action is reviewed for actors below the exempt privilege.
func (p *Policy) Gates(action models.ModerationAction) bool {
	for _, a := range p.Gated {
		if a == action {
			return true
		}
	}

	return false
}

type policyFile struct {
	Policies []Policy `yaml:"policies"`
}

// Policies maps entity types to their moderation policy. Types without a
// policy are not moderated.
type Policies struct {
	byType map[models.EntityType]*Policy
}

// LoadPolicies parses a YAML policy document and checks it against reg.
func LoadPolicies(data []byte, reg *schema.Registry) (*Policies, error) {
	var f policyFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing moderation policies: %w", err)
	}

	out := &Policies{byType: make(map[models.EntityType]*Policy, len(f.Policies))}
	for i := range f.Policies {
		p := f.Policies[i]

		if _, err := reg.Lookup(p.Type); err != nil {
			return nil, fmt.Errorf("moderation policy %d: %w", i, err)
		}

		if _, dup := out.byType[p.Type]; dup {
			return nil, fmt.Errorf("moderation policy %d: duplicate policy for %q", i, p.Type)
		}

		if !p.Exempt.Valid() {
			return nil, fmt.Errorf("moderation policy for %q: unknown exempt privilege %q", p.Type, p.Exempt)
		}

		for _, a := range p.Gated {
			if !a.Valid() {
				return nil, fmt.Errorf("moderation policy for %q: unknown operation %q", p.Type, a)
			}
		}

		out.byType[p.Type] = &p
	}

	return out, nil
}

// LoadPolicyFile reads policies from path.
func LoadPolicyFile(path string, reg *schema.Registry) (*Policies, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration.
	if err != nil {
		return nil, fmt.Errorf("reading moderation policies: %w", err)
	}

	return LoadPolicies(data, reg)
}

// DefaultPolicies returns the built-in policies: every type and operation is
// reviewed, superusers are exempt.
func DefaultPolicies(reg *schema.Registry) (*Policies, error) {
	return LoadPolicies(defaultPolicyFile, reg)
}

// Lookup returns the policy for t.
func (p *Policies) Lookup(t models.EntityType) (*Policy, bool) {
	pol, ok := p.byType[t]
	return pol, ok
}

// Requires reports whether action on t by actor must go through review.
func (p *Policies) Requires(t models.EntityType, action models.ModerationAction, actor models.Actor) bool {
	pol, ok := p.byType[t]
	if !ok || !pol.Gates(action) {
		return false
	}

	return !actor.Privilege.AtLeast(pol.Exempt)
}
