// Auditrail - Audit Event Logging and Risk Assessment
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/auditrail

package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/auditrail/internal/audit"
	"github.com/tomtom215/auditrail/internal/logging"
	"github.com/tomtom215/auditrail/internal/metrics"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// ErrNoAdapter is returned by Reload when the enforcer runs on the embedded
// policy.
var ErrNoAdapter = errors.New("no policy adapter configured; using embedded policy")

// Config configures the enforcer.
type Config struct {
	// ModelPath overrides the embedded model when the file exists.
	ModelPath string

	// PolicyPath overrides the embedded policy when the file exists.
	PolicyPath string

	// CacheTTL is how long decisions are cached. Zero disables caching.
	CacheTTL time.Duration

	// CacheSize bounds the number of cached decisions.
	CacheSize int
}

// DefaultConfig returns the embedded model and policy with a one minute
// decision cache.
func DefaultConfig() Config {
	return Config{
		CacheTTL:  time.Minute,
		CacheSize: 1024,
	}
}

// Enforcer answers audit authorization questions from a Casbin policy. It
// implements audit.Authorizer and is safe for concurrent use.
type Enforcer struct {
	config   Config
	enforcer *casbin.SyncedEnforcer
	cache    *decisionCache
	usesFile bool
}

var _ audit.Authorizer = (*Enforcer)(nil)

// NewEnforcer loads the model and policy and returns a ready enforcer.
func NewEnforcer(cfg Config) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg.ModelPath != "" && fileExists(cfg.ModelPath) {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	usesFile := cfg.PolicyPath != "" && fileExists(cfg.PolicyPath)
	if usesFile {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{
		config:   cfg,
		enforcer: enforcer,
		usesFile: usesFile,
	}
	if cfg.CacheTTL > 0 {
		e.cache = newDecisionCache(cfg.CacheTTL, cfg.CacheSize)
	}

	logging.Info().
		Bool("policy_file", usesFile).
		Dur("cache_ttl", cfg.CacheTTL).
		Msg("Authorization enforcer ready")
	return e, nil
}

// loadEmbeddedPolicy adds the p and g lines of a CSV policy.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	var rules, groupings [][]string
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch {
		case parts[0] == "p" && len(parts) == 4:
			rules = append(rules, parts[1:])
		case parts[0] == "g" && len(parts) == 3:
			groupings = append(groupings, parts[1:])
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}

	if len(rules) > 0 {
		if _, err := enforcer.AddPolicies(rules); err != nil {
			return fmt.Errorf("failed to add policies: %w", err)
		}
	}
	if len(groupings) > 0 {
		if _, err := enforcer.AddGroupingPolicies(groupings); err != nil {
			return fmt.Errorf("failed to add grouping policies: %w", err)
		}
	}
	return nil
}

// Enforce implements audit.Authorizer. The subject is the caller's role.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(subject, object, action); ok {
			metrics.AuthzCacheHits.Inc()
			metrics.RecordAuthzDecision(object, allowed, nil)
			return allowed, nil
		}
	}

	allowed, err := e.enforcer.Enforce(subject, object, action)
	metrics.RecordAuthzDecision(object, allowed, err)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	if e.cache != nil {
		e.cache.set(subject, object, action, allowed)
	}
	if !allowed {
		logging.Debug().
			Str("subject", subject).
			Str("object", object).
			Str("action", action).
			Msg("Authorization denied")
	}
	return allowed, nil
}

// AddRoleForUser places a subject under a role, for deployments that
// authorize by identity as well as by role.
func (e *Enforcer) AddRoleForUser(user, role string) (bool, error) {
	added, err := e.enforcer.AddGroupingPolicy(user, role)
	if err != nil {
		return false, fmt.Errorf("failed to add role: %w", err)
	}
	e.invalidate()
	return added, nil
}

// AddPolicy adds a permission rule.
func (e *Enforcer) AddPolicy(subject, object, action string) (bool, error) {
	added, err := e.enforcer.AddPolicy(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("failed to add policy: %w", err)
	}
	e.invalidate()
	return added, nil
}

// RemovePolicy removes a permission rule.
func (e *Enforcer) RemovePolicy(subject, object, action string) (bool, error) {
	removed, err := e.enforcer.RemovePolicy(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("failed to remove policy: %w", err)
	}
	e.invalidate()
	return removed, nil
}

// Reload rereads the policy file.
func (e *Enforcer) Reload() error {
	if !e.usesFile {
		return ErrNoAdapter
	}
	if err := e.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to reload policy: %w", err)
	}
	e.invalidate()
	return nil
}

// Permission is one policy rule.
type Permission struct {
	Subject string `json:"subject"`
	Object  string `json:"object"`
	Action  string `json:"action"`
}

// Permissions returns every rule sorted by subject, object then action.
func (e *Enforcer) Permissions() []Permission {
	//nolint:errcheck // GetPolicy only fails on a nil model, which NewEnforcer rules out
	rules, _ := e.enforcer.GetPolicy()

	perms := make([]Permission, 0, len(rules))
	for _, rule := range rules {
		if len(rule) < 3 {
			continue
		}
		perms = append(perms, Permission{Subject: rule[0], Object: rule[1], Action: rule[2]})
	}
	sort.Slice(perms, func(i, j int) bool {
		a, b := perms[i], perms[j]
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		if a.Object != b.Object {
			return a.Object < b.Object
		}
		return a.Action < b.Action
	})
	return perms
}

func (e *Enforcer) invalidate() {
	if e.cache != nil {
		e.cache.clear()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
