package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/muurk/rtinspect/internal/config"
	"github.com/muurk/rtinspect/internal/discovery"
	"github.com/muurk/rtinspect/internal/inspector"
	"github.com/muurk/rtinspect/internal/logging"
	"github.com/muurk/rtinspect/internal/protocol"
	"github.com/muurk/rtinspect/internal/realtime"
	"github.com/muurk/rtinspect/internal/settings"
	"github.com/muurk/rtinspect/internal/tui"
	"github.com/muurk/rtinspect/internal/ui"
	"github.com/muurk/rtinspect/internal/urls"
)

// bearerEnvVar supplies the user JWT for listen without putting it in argv
const bearerEnvVar = "RTINSPECT_BEARER"

// Command flags
var (
	listenChannel string
	listenKey     string
	listenBearer  string
	listenJSON    bool
	listenSet     []string
	revealKeys    bool
	scanTimeout   int
)

func init() {
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(configCmd)
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runInspector(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := loadSession(ctx)
	if err != nil {
		return err
	}
	if s.projectURL == "" {
		return fmt.Errorf("no project: use --project, --project-url or --discover")
	}

	store := realtime.NewStore(s.connectionConfig())
	s.followCredentials(ctx)

	return tui.Run(ctx, tui.Options{
		Store:        store,
		Provider:     s.provider,
		ProjectURL:   s.projectURL,
		Registry:     s.registry,
		RegistryPath: s.registryPath,
	})
}

// listenCmd runs a headless test connection
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Join a channel and print its messages",
	Long: `Join a realtime channel and print every message until interrupted.

The connection uses the API key named by --key (anon by default). With a
user JWT (--bearer or RTINSPECT_BEARER) the channel is joined as that user,
which exercises the project's channel authorization policies.

--set field=value overrides one connection field (token, bearer,
channel, schema, table or filter) after the other flags are applied. It may be repeated.`,
	Example: `  # Listen on the default channel with the anon key
  rtinspect listen --project abcdefghijklmnop

  # Join as a user
  RTINSPECT_BEARER=eyJhbGciOi... rtinspect listen --channel room-1

  # Connect with an explicit key instead of a label
  rtinspect listen --set token=eyJhbGciOi... --set channel=room-1

  # Machine-readable output
  rtinspect listen --json`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenChannel, "channel", "", "Channel name (defaults to the project setting)")
	listenCmd.Flags().StringVar(&listenKey, "key", settings.AnonLabel, "Label of the API key to connect with")
	listenCmd.Flags().StringVar(&listenBearer, "bearer", "", "User JWT to impersonate (or set "+bearerEnvVar+")")
	listenCmd.Flags().BoolVar(&listenJSON, "json", false, "Print raw JSON messages")
	listenCmd.Flags().StringArrayVar(&listenSet, "set", nil, "Override a connection field as field=value (repeatable)")
}

// applyOverrides applies field=value pairs to cfg in order.
func applyOverrides(cfg realtime.Config, overrides []string) (realtime.Config, error) {
	for _, o := range overrides {
		name, value, ok := strings.Cut(o, "=")
		if !ok {
			return cfg, fmt.Errorf("invalid --set %q: expected field=value", o)
		}
		field, err := realtime.ParseField(name)
		if err != nil {
			return cfg, fmt.Errorf("invalid --set %q: %w", o, err)
		}
		cfg = cfg.With(field, value)
	}
	return cfg, nil
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := loadSession(ctx)
	if err != nil {
		return err
	}
	if err := s.requireSource(); err != nil {
		return err
	}
	if s.projectURL == "" {
		return fmt.Errorf("no project: use --project, --project-url or --discover")
	}

	printer := ui.NewPrinter(os.Stdout)

	if err := s.provider.Refresh(ctx); err != nil {
		printer.PrintError("Failed to fetch API keys", err, troubleshooting(err))
		return err
	}

	cred, ok := settings.FindByLabel(s.provider.Credentials(), listenKey)
	if !ok {
		return fmt.Errorf("no API key labelled %q (available: %s)",
			listenKey, strings.Join(settings.Labels(s.provider.Credentials()), ", "))
	}

	cfg := s.connectionConfig()
	if listenChannel != "" {
		cfg.Channel = listenChannel
	}
	cfg.Token = cred.Value

	bearer := listenBearer
	if bearer == "" {
		bearer = os.Getenv(bearerEnvVar)
	}
	cfg.Bearer = bearer

	cfg, err = applyOverrides(cfg, listenSet)
	if err != nil {
		return err
	}

	if !listenJSON {
		userJWT := "not set"
		if cfg.Impersonating() {
			userJWT = logging.Mask(cfg.Bearer)
		}
		printer.PrintHeader("Listening", "rtinspect listen", map[string]string{
			"Channel":  cfg.Topic(),
			"Endpoint": s.projectURL,
			"API key":  cred.Label + " (" + logging.Mask(cred.Value) + ")",
			"User JWT": userJWT,
		})
	}

	client := inspector.NewClient(s.projectURL)
	out := make(chan *protocol.Message, 64)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Run(gctx, cfg, out)
	})
	g.Go(func() error {
		for msg := range out {
			if err := printMessage(msg); err != nil {
				return err
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		printer.PrintError("Connection failed", err, []string{
			"Check that the project URL is reachable",
			"Channel authorization is described at " + urls.RealtimeAuthorization,
		})
		return err
	}
	return nil
}

func printMessage(msg *protocol.Message) error {
	if listenJSON {
		data, err := msg.Encode()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	line := fmt.Sprintf("%s  %-14s %s", time.Now().Format("15:04:05"), msg.Event, msg.Topic)
	if status := msg.Status(); status != "" {
		line += "  " + status
	}
	fmt.Printf("%s  %s\n", line, string(msg.Payload))
	return nil
}

// keysCmd lists the project's API keys
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the project's API keys",
	Long: `Fetch and list the project's API keys.

Values are masked unless --reveal is given and confirmed.`,
	Example: `  # List keys (masked)
  rtinspect keys --project abcdefghijklmnop

  # Show full values
  rtinspect keys --reveal`,
	RunE: runKeys,
}

func init() {
	keysCmd.Flags().BoolVar(&revealKeys, "reveal", false, "Show full key values (asks for confirmation)")
}

func runKeys(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	s, err := loadSession(ctx)
	if err != nil {
		return err
	}
	if err := s.requireSource(); err != nil {
		return err
	}

	printer := ui.NewPrinter(os.Stdout)

	if err := s.provider.Refresh(ctx); err != nil {
		printer.PrintError("Failed to fetch API keys", err, troubleshooting(err))
		return err
	}
	creds := s.provider.Credentials()

	reveal := false
	if revealKeys {
		reveal = printer.Confirm(os.Stdin, "Reveal API keys", []string{
			"Full key values will be printed to this terminal",
			"The service_role key bypasses row level security",
		}, "reveal")
	}

	details := make(map[string]string, len(creds))
	for _, c := range creds {
		if reveal {
			details[c.Label] = c.Value
		} else {
			details[c.Label] = logging.Mask(c.Value)
		}
	}

	printer.PrintSuccess(fmt.Sprintf("%d API key(s)", len(creds)), details)
	if len(creds) > 0 {
		fmt.Println("See " + urls.APIKeys + " for what each key can access")
	}
	return nil
}

// scanCmd discovers local realtime endpoints
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for realtime endpoints on the local network",
	Long: `Scan for realtime endpoints using mDNS/DNS-SD discovery.

Local stacks that advertise _realtime._tcp are listed with their address and
metadata. Use --discover <instance> to connect to one of them.`,
	Example: `  # Scan with the configured timeout
  rtinspect scan

  # Longer scan
  rtinspect scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 0, "Scan timeout in seconds (defaults to the discover_timeout preference)")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	registry, _, err := loadRegistry()
	if err != nil {
		return err
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = registry.Preferences.DiscoverTimeoutDuration()
	if scanTimeout > 0 {
		scanner.Timeout = time.Duration(scanTimeout) * time.Second
	}

	fmt.Printf("Scanning for realtime endpoints (timeout: %s)...\n\n", scanner.Timeout)

	endpoints, err := scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(endpoints) == 0 {
		fmt.Println("No endpoints found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the local stack is running")
		fmt.Println("  - Check that multicast traffic is allowed on this network")
		fmt.Println("  - Try increasing --timeout")
		fmt.Println("  - Use --project-url to connect without discovery")
		return nil
	}

	fmt.Printf("Found %d endpoint(s):\n\n", len(endpoints))

	for i, endpoint := range endpoints {
		fmt.Printf("%d. %s\n", i+1, endpoint.Instance)
		fmt.Printf("   URL:     %s\n", endpoint.ProjectURL())
		if ref := endpoint.ProjectRef(); ref != "" {
			fmt.Printf("   Project: %s\n", ref)
		}
		if len(endpoint.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", endpoint.Metadata)
		}
		fmt.Println()
	}

	fmt.Println("Use 'rtinspect --discover <instance>' to inspect an endpoint")

	return nil
}

// paramsCmd documents the connection parameters
var paramsCmd = &cobra.Command{
	Use:   "params",
	Short: "Describe the connection parameters",
	Run: func(cmd *cobra.Command, args []string) {
		ui.NewPrinter(os.Stdout).PrintParams(ui.ConfigParams())
	},
}

// configCmd groups the config subcommands
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change saved settings",
	Long: `Show or change the settings saved in the config file.

API keys and user JWTs are never saved.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, path, err := loadRegistry()
		if err != nil {
			return err
		}

		data, err := yaml.Marshal(registry)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}

		fmt.Printf("# %s\n", path)
		fmt.Print(string(data))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a saved setting",
	Long: fmt.Sprintf(`Change a saved setting.

Project settings (%s) apply to --project or the default project.
Preferences: %s.`, strings.Join(config.ProjectKeys, ", "), strings.Join(config.PreferenceKeys, ", ")),
	Example: `  rtinspect config set default_project abcdefghijklmnop
  rtinspect config set channel room-1 --project abcdefghijklmnop`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]

	registry, path, err := loadRegistry()
	if err != nil {
		return err
	}

	if isProjectKey(key) {
		ref := projectRef
		if ref == "" {
			ref = registry.Preferences.DefaultProject
		}
		if ref == "" {
			return fmt.Errorf("%s is a project setting: use --project", key)
		}
		if err := registry.EnsureProject(ref).Set(key, value); err != nil {
			return err
		}
	} else if err := registry.Preferences.Set(key, value); err != nil {
		return err
	}

	if err := registry.SaveTo(path); err != nil {
		return err
	}

	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

func isProjectKey(key string) bool {
	return slices.Contains(config.ProjectKeys, strings.ToLower(key))
}
