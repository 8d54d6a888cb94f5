package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/muurk/rtinspect/internal/realtime"
)

// CurrentVersion is the registry file format version.
const CurrentVersion = 1

// Registry represents the entire user configuration file.
// It stores per-project connection defaults and application preferences.
type Registry struct {
	Version     int                 `yaml:"version"`
	Projects    map[string]*Project `yaml:"projects,omitempty"` // Keyed by project ref
	Preferences *Preferences        `yaml:"preferences,omitempty"`
}

// Project holds connection defaults for one project.
// API keys and user JWTs are NEVER stored here.
type Project struct {
	Nickname       string    `yaml:"nickname,omitempty"`        // User-friendly name
	ProjectURL     string    `yaml:"project_url,omitempty"`     // Base URL of the realtime endpoint (local stacks)
	KeysFile       string    `yaml:"keys_file,omitempty"`       // YAML credentials file used instead of the API
	Channel        string    `yaml:"channel,omitempty"`         // Default channel name
	Schema         string    `yaml:"schema,omitempty"`          // Default schema for change subscriptions
	Table          string    `yaml:"table,omitempty"`           // Default table for change subscriptions
	Filter         string    `yaml:"filter,omitempty"`          // Default row filter
	LastCredential string    `yaml:"last_credential,omitempty"` // Label of the last selected credential
	LastUsed       time.Time `yaml:"last_used,omitempty"`
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	DefaultProject  string `yaml:"default_project,omitempty"` // Project used when --project is not given
	APIURL          string `yaml:"api_url,omitempty"`         // Platform API base URL
	PollInterval    int    `yaml:"poll_interval"`             // Credential refresh interval in seconds
	DiscoverTimeout int    `yaml:"discover_timeout"`          // mDNS discovery timeout in seconds
}

func defaultPreferences() *Preferences {
	return &Preferences{
		PollInterval:    30,
		DiscoverTimeout: 5,
	}
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     CurrentVersion,
		Projects:    make(map[string]*Project),
		Preferences: defaultPreferences(),
	}
}

// GetProject retrieves project defaults by ref.
// Returns nil if the project doesn't exist in the registry.
func (r *Registry) GetProject(ref string) *Project {
	return r.Projects[ref]
}

// EnsureProject ensures a project entry exists and returns it.
func (r *Registry) EnsureProject(ref string) *Project {
	if r.Projects == nil {
		r.Projects = make(map[string]*Project)
	}

	if project, exists := r.Projects[ref]; exists {
		return project
	}

	project := &Project{}
	r.Projects[ref] = project
	return project
}

// TouchProject records that ref was just used.
func (r *Registry) TouchProject(ref string) {
	r.EnsureProject(ref).LastUsed = time.Now()
}

// ProjectRefs returns the known project refs, most recently used first.
func (r *Registry) ProjectRefs() []string {
	refs := make([]string, 0, len(r.Projects))
	for ref := range r.Projects {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		a, b := r.Projects[refs[i]], r.Projects[refs[j]]
		if !a.LastUsed.Equal(b.LastUsed) {
			return a.LastUsed.After(b.LastUsed)
		}
		return refs[i] < refs[j]
	})
	return refs
}

// ConnectionConfig returns the connection defaults for ref. Unknown projects
// get realtime.NewConfig defaults.
func (r *Registry) ConnectionConfig(ref string) realtime.Config {
	cfg := realtime.NewConfig(ref)

	project := r.GetProject(ref)
	if project == nil {
		return cfg
	}

	if project.Channel != "" {
		cfg.Channel = project.Channel
	}
	if project.Schema != "" {
		cfg.Schema = project.Schema
	}
	if project.Table != "" {
		cfg.Table = project.Table
	}
	if project.Filter != "" {
		cfg.Filter = project.Filter
		cfg.EnableDBChanges = true
	}
	return cfg
}

// RememberConnection stores the non-secret parts of cfg as defaults for its
// project. Token and Bearer are never stored.
func (r *Registry) RememberConnection(cfg realtime.Config, credentialLabel string) {
	project := r.EnsureProject(cfg.ProjectRef)
	project.Channel = cfg.Channel
	project.Schema = cfg.Schema
	project.Table = cfg.Table
	project.Filter = cfg.Filter
	if credentialLabel != "" {
		project.LastCredential = credentialLabel
	}
	project.LastUsed = time.Now()
}

// ProjectKeys lists the keys accepted by Project.Set.
var ProjectKeys = []string{"nickname", "project_url", "keys_file", "channel", "schema", "table", "filter"}

// Set updates one project field by its YAML key.
func (p *Project) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "nickname":
		p.Nickname = value
	case "project_url":
		p.ProjectURL = value
	case "keys_file":
		p.KeysFile = value
	case "channel":
		p.Channel = value
	case "schema":
		p.Schema = value
	case "table":
		p.Table = value
	case "filter":
		p.Filter = value
	default:
		return fmt.Errorf("unknown project setting %q (valid: %s)", key, strings.Join(ProjectKeys, ", "))
	}
	return nil
}

// PreferenceKeys lists the keys accepted by Preferences.Set.
var PreferenceKeys = []string{"default_project", "api_url", "poll_interval", "discover_timeout"}

// Set updates one preference by its YAML key.
func (p *Preferences) Set(key, value string) error {
	switch strings.ToLower(key) {
	case "default_project":
		p.DefaultProject = value
	case "api_url":
		p.APIURL = value
	case "poll_interval", "discover_timeout":
		seconds, err := strconv.Atoi(value)
		if err != nil || seconds <= 0 {
			return fmt.Errorf("%s must be a positive number of seconds, got %q", key, value)
		}
		if strings.ToLower(key) == "poll_interval" {
			p.PollInterval = seconds
		} else {
			p.DiscoverTimeout = seconds
		}
	default:
		return fmt.Errorf("unknown preference %q (valid: %s)", key, strings.Join(PreferenceKeys, ", "))
	}
	return nil
}

// PollIntervalDuration returns the credential refresh interval.
func (p *Preferences) PollIntervalDuration() time.Duration {
	if p == nil || p.PollInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.PollInterval) * time.Second
}

// DiscoverTimeoutDuration returns the mDNS discovery timeout.
func (p *Preferences) DiscoverTimeoutDuration() time.Duration {
	if p == nil || p.DiscoverTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.DiscoverTimeout) * time.Second
}
