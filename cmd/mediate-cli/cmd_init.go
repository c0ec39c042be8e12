package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mediate-project/mediate/client"
)

// profilesFile is the top-level config file structure.
type profilesFile struct {
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

// initOptions carries what init needs. Prompting happens when neither URL
// nor APIKey was passed as a flag.
type initOptions struct {
	URL     string
	APIKey  string
	Profile string
	In      io.Reader
	Out     io.Writer
}

func (o initOptions) interactive() bool {
	return o.URL == "" && o.APIKey == ""
}

func newInitCmd() *cobra.Command {
	opts := initOptions{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Set up MEDIATE CLI configuration",
		Long:  "Create or update a profile in ~/.mediate/config.yaml after checking the key against the server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.In, opts.Out = cmd.InOrStdin(), cmd.OutOrStdout()
			return runInit(opts)
		},
	}

	cmd.Flags().StringVar(&opts.URL, "url", "", "Server URL (skips prompts)")
	cmd.Flags().StringVar(&opts.APIKey, "api-key", "", "API key (skips prompts)")
	cmd.Flags().StringVar(&opts.Profile, "profile", "default", "Profile name to write and activate")
	return cmd
}

func runInit(opts initOptions) error {
	interactive := opts.interactive()
	out := opts.Out

	if interactive {
		fmt.Fprint(out, "\n  MEDIATE Setup\n  ─────────────\n\n")

		in := bufio.NewReader(opts.In)
		opts.URL = prompt(in, out, fmt.Sprintf("Server URL [%s]", defaultURL))
		opts.APIKey = prompt(in, out, "API Key")
	}

	if opts.URL == "" {
		opts.URL = defaultURL
	}
	if opts.APIKey == "" {
		return errors.New("API key is required")
	}

	if interactive {
		fmt.Fprint(out, "\n  Testing connection... ")
	}

	conn, err := testConnection(opts.URL, opts.APIKey)
	if err != nil {
		if interactive {
			fmt.Fprintln(out, "✗")
		}
		return fmt.Errorf("connection failed: %w", err)
	}

	if interactive {
		fmt.Fprintf(out, "✓ Connected (v%s, %d pending)\n", conn.version, conn.pending)
	}

	cfgPath, err := writeConfig(opts.URL, opts.APIKey, opts.Profile)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	if !interactive {
		fmt.Fprintf(out, "Config saved to %s\n", cfgPath)
		return nil
	}

	fmt.Fprintf(out, "\n  ✓ Config saved to %s\n\n", cfgPath)
	fmt.Fprintln(out, "  Next steps:")
	fmt.Fprintln(out, "    mediate-cli moderation list --format table   # Pending changes")
	fmt.Fprintln(out, "    mediate-cli moderation stats                 # Queue counts")
	fmt.Fprintln(out, "    mediate-cli --help                           # See all commands")
	fmt.Fprintln(out)

	return nil
}

// prompt reads one trimmed line. Read errors yield an empty answer.
func prompt(in *bufio.Reader, out io.Writer, label string) string {
	fmt.Fprintf(out, "  %s: ", label)
	line, _ := in.ReadString('\n') //nolint:errcheck // EOF means no answer
	return strings.TrimSpace(line)
}

type connInfo struct {
	version string
	pending int
}

// testConnection checks the server is up and that apiKey is accepted. Health
// is unauthenticated, so the key is proven by reading queue stats.
func testConnection(url, apiKey string) (connInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c := client.New(url, client.WithAPIKey(apiKey))

	health, err := c.Health(ctx)
	if err != nil {
		return connInfo{}, err
	}

	stats, err := c.Moderation.Stats(ctx)
	if err != nil {
		return connInfo{}, fmt.Errorf("checking API key: %w", err)
	}

	info := connInfo{version: health.Version, pending: stats.ByState[client.StatePending]}
	if info.version == "" {
		info.version = "unknown"
	}
	return info, nil
}

// writeConfig stores the profile, keeping any other profiles in the file.
func writeConfig(url, apiKey, profile string) (string, error) {
	cfgPath, err := configPath()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(cfgPath), 0o700); err != nil {
		return "", err
	}

	var cfg profilesFile
	if data, err := os.ReadFile(cfgPath); err == nil {
		_ = yaml.Unmarshal(data, &cfg) //nolint:errcheck // an unreadable file is replaced.
	}
	if cfg.Profiles == nil {
		cfg.Profiles = map[string]configProfile{}
	}
	if profile == "" {
		profile = "default"
	}
	cfg.Profiles[profile] = configProfile{URL: url, APIKey: apiKey}
	cfg.ActiveProfile = profile

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(cfgPath, data, 0o600); err != nil {
		return "", err
	}

	return cfgPath, nil
}
