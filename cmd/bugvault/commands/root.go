package commands

import (
	"bugvault/lib/configutil"
	"bugvault/lib/gitlab"
	"bugvault/lib/osutil"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bugvault",
	Short: "bugvault archives a bugzilla corpus locally and converts it for import elsewhere.",
}

// Config is the shared config.json5 schema. Scrape settings sit at the top
// level, the import mapping under "transform".
type Config struct {
	BaseUrl   string `json:"base_url"`
	Product   string `json:"product"`
	Component string `json:"component"`
	// "firefox", "chromium" or "chrome"
	Browser string `json:"browser"`
	// optional explicit browser profile directory
	Profile string `json:"profile"`
	Archive string `json:"archive"`
	// for instances sitting behind a cloudflare challenge
	CloudflareBypass bool `json:"cloudflare_bypass"`

	Transform gitlab.Config `json:"transform"`
}

func mustConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		osutil.Fatal("failed to read config.json5", err)
	}
	if cfg.Archive == "" {
		cfg.Archive = "archive"
	}
	return cfg
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
