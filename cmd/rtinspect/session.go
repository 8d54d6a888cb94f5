package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/muurk/rtinspect/internal/config"
	"github.com/muurk/rtinspect/internal/discovery"
	"github.com/muurk/rtinspect/internal/logging"
	"github.com/muurk/rtinspect/internal/realtime"
	"github.com/muurk/rtinspect/internal/settings"
	"github.com/muurk/rtinspect/internal/urls"
)

// accessTokenEnvVar holds the personal access token for the settings API
const accessTokenEnvVar = "RTINSPECT_ACCESS_TOKEN"

// Global flags
var (
	projectRef   string
	projectURL   string
	apiURL       string
	keysFile     string
	configPath   string
	discoverName string
	logLevel     string
	logFile      string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&projectRef, "project", "", "Project ref (defaults to the configured default project)")
	flags.StringVar(&projectURL, "project-url", "", "Project base URL (defaults to https://<ref>.supabase.co)")
	flags.StringVar(&apiURL, "api-url", "", "Platform API URL used to fetch API keys")
	flags.StringVar(&keysFile, "keys-file", "", "YAML file with API keys (for local stacks)")
	flags.StringVar(&configPath, "config", "", "Path to the config file")
	flags.StringVar(&discoverName, "discover", "", "Find the realtime endpoint with this mDNS instance name")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); logging is off by default")
	flags.StringVar(&logFile, "log-file", "", "Write logs to this file instead of stderr")
}

// session is the resolved project, registry and key source for a command.
type session struct {
	registry     *config.Registry
	registryPath string

	ref        string
	projectURL string

	provider   *settings.Provider
	fileSource *settings.FileSource
	hasSource  bool
}

// loadSession resolves flags against the registry. Flags win over registry
// values; the registry wins over built-in defaults.
func loadSession(ctx context.Context) (*session, error) {
	registry, path, err := loadRegistry()
	if err != nil {
		return nil, err
	}

	s := &session{
		registry:     registry,
		registryPath: path,
		ref:          projectRef,
	}
	if s.ref == "" {
		s.ref = registry.Preferences.DefaultProject
	}

	project := registry.GetProject(s.ref)

	s.projectURL = projectURL
	if s.projectURL == "" && project != nil {
		s.projectURL = project.ProjectURL
	}
	if s.projectURL == "" && discoverName != "" {
		endpoint, err := discoverEndpoint(ctx, registry, discoverName)
		if err != nil {
			return nil, err
		}
		s.projectURL = endpoint.ProjectURL()
		if s.ref == "" {
			s.ref = endpoint.ProjectRef()
		}
	}
	if s.projectURL == "" && s.ref != "" {
		s.projectURL = urls.ProjectURL(s.ref)
	}

	keys := keysFile
	if keys == "" && project != nil {
		keys = project.KeysFile
	}

	switch {
	case keys != "":
		s.fileSource = settings.NewFileSource(keys)
		s.provider = settings.NewProvider(s.fileSource)
		s.hasSource = true
	case os.Getenv(accessTokenEnvVar) != "" && s.ref != "":
		client := settings.NewClient(s.apiURL(), os.Getenv(accessTokenEnvVar), s.ref)
		s.provider = settings.NewProvider(client)
		s.hasSource = true
	default:
		s.provider = settings.NewProvider(nil)
	}

	logging.Debug("Session resolved",
		zap.String("project", s.ref),
		zap.String("project_url", s.projectURL),
		zap.Bool("key_source", s.hasSource),
	)
	return s, nil
}

func loadRegistry() (*config.Registry, string, error) {
	if configPath != "" {
		registry, err := config.LoadFile(configPath)
		if err != nil {
			return nil, "", err
		}
		return registry, configPath, nil
	}

	path, err := config.GetConfigPath()
	if err != nil {
		return nil, "", err
	}
	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, "", err
	}
	return registry, path, nil
}

func discoverEndpoint(ctx context.Context, registry *config.Registry, name string) (*discovery.Endpoint, error) {
	scanner := discovery.NewScanner()
	scanner.Timeout = registry.Preferences.DiscoverTimeoutDuration()

	endpoint, err := scanner.WaitForEndpoint(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to discover %q: %w", name, err)
	}
	return endpoint, nil
}

func (s *session) apiURL() string {
	if apiURL != "" {
		return apiURL
	}
	if s.registry.Preferences.APIURL != "" {
		return s.registry.Preferences.APIURL
	}
	return urls.DefaultAPIURL
}

// connectionConfig returns the starting Config for the project.
func (s *session) connectionConfig() realtime.Config {
	return s.registry.ConnectionConfig(s.ref)
}

func (s *session) requireSource() error {
	if !s.hasSource {
		return fmt.Errorf("no API key source: use --keys-file, or set %s together with --project", accessTokenEnvVar)
	}
	return nil
}

// followCredentials keeps the provider current until ctx is done: keys files
// are watched, the settings API is polled.
func (s *session) followCredentials(ctx context.Context) {
	if !s.hasSource {
		return
	}

	if s.fileSource != nil {
		if err := s.provider.Refresh(ctx); err != nil {
			logging.Warn("Initial keys file load failed", zap.Error(err))
		}
		go func() {
			if err := s.fileSource.Watch(ctx, s.provider); err != nil {
				logging.Warn("Keys file watch stopped", zap.Error(err))
			}
		}()
		return
	}

	go s.provider.Poll(ctx, s.registry.Preferences.PollIntervalDuration())
}

// troubleshooting returns hint lines for err.
func troubleshooting(err error) []string {
	if hint := settings.GetTroubleshootingHint(err); hint != "" {
		return []string{hint}
	}
	return nil
}
