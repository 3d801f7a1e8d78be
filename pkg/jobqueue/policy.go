package jobqueue

import (
	"errors"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/jobqueue/pkg/backoff"
)

// PolicyOverride adjusts a registered policy from an operator file. Zero
// fields keep the registered value.
type PolicyOverride struct {
	Priority      *Priority      `yaml:"priority"`
	Weight        *int           `yaml:"weight"`
	Delay         *time.Duration `yaml:"delay"`
	LeaseDuration time.Duration  `yaml:"lease_duration"`
	MaxAttempts   *int           `yaml:"max_attempts"`
	Backoff       *BackoffSpec   `yaml:"backoff"`
}

// BackoffSpec describes a backoff strategy in a policy file.
type BackoffSpec struct {
	Kind    string          `yaml:"kind"` // constant, linear, exponential, steps
	Initial time.Duration   `yaml:"initial"`
	Max     time.Duration   `yaml:"max"`
	Steps   []time.Duration `yaml:"steps"`
}

// Strategy builds the backoff strategy described by the spec.
func (b BackoffSpec) Strategy() (backoff.Strategy, error) {
	switch b.Kind {
	case "constant":
		if b.Initial <= 0 {
			return nil, fmt.Errorf("%w: constant backoff needs initial > 0", ErrInvalidPolicy)
		}
		return backoff.NewConstant(b.Initial), nil
	case "linear":
		if b.Initial <= 0 {
			return nil, fmt.Errorf("%w: linear backoff needs initial > 0", ErrInvalidPolicy)
		}
		return backoff.NewLinear(b.Initial, b.Max), nil
	case "exponential", "":
		if b.Initial <= 0 {
			return nil, fmt.Errorf("%w: exponential backoff needs initial > 0", ErrInvalidPolicy)
		}
		return backoff.NewExponential(b.Initial, b.Max), nil
	case "steps":
		if len(b.Steps) == 0 {
			return nil, fmt.Errorf("%w: steps backoff needs at least one step", ErrInvalidPolicy)
		}
		return backoff.NewSteps(b.Steps...), nil
	}
	return nil, fmt.Errorf("%w: unknown backoff kind %q", ErrInvalidPolicy, b.Kind)
}

// policyFile is the YAML document layout:
//
//	work_types:
//	  imip_invitation:
//	    priority: high
//	    lease_duration: 2m
//	    max_attempts: 8
//	    backoff: {kind: exponential, initial: 30s, max: 1h}
type policyFile struct {
	WorkTypes map[WorkType]PolicyOverride `yaml:"work_types"`
}

// LoadPolicies parses a YAML policy file.
func LoadPolicies(r io.Reader) (map[WorkType]PolicyOverride, error) {
	var f policyFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return map[WorkType]PolicyOverride{}, nil
		}
		return nil, errors.Join(ErrInvalidPolicy, err)
	}
	if f.WorkTypes == nil {
		f.WorkTypes = map[WorkType]PolicyOverride{}
	}
	return f.WorkTypes, nil
}

// ApplyPolicies merges overrides into registered definitions. Overrides for
// unknown work types are rejected so typos do not go unnoticed.
func (r *Registry) ApplyPolicies(overrides map[WorkType]PolicyOverride) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	updated := make(map[WorkType]Definition, len(overrides))
	for wt, o := range overrides {
		def, ok := r.defs[wt]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownWorkType, wt)
		}

		p := def.Policy
		if o.Priority != nil {
			if !o.Priority.Valid() {
				return fmt.Errorf("%w: %s: %w", ErrInvalidPolicy, wt, ErrInvalidPriority)
			}
			p.Priority = *o.Priority
		}
		if o.Weight != nil {
			p.Weight = *o.Weight
		}
		if o.Delay != nil {
			p.Delay = *o.Delay
		}
		if o.LeaseDuration > 0 {
			p.LeaseDuration = o.LeaseDuration
		}
		if o.MaxAttempts != nil {
			p.MaxAttempts = *o.MaxAttempts
		}
		if o.Backoff != nil {
			s, err := o.Backoff.Strategy()
			if err != nil {
				return fmt.Errorf("%s: %w", wt, err)
			}
			p.Backoff = s
		}

		def.Policy = p.withDefaults()
		updated[wt] = def
	}

	for wt, def := range updated {
		r.defs[wt] = def
	}
	return nil
}
