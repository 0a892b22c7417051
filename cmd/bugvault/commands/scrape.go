package commands

import (
	"bugvault/lib/archive"
	"bugvault/lib/cookies"
	"bugvault/lib/osutil"
	"bugvault/lib/restyutil"
	"bugvault/lib/scrapers/bugzilla"
	"bugvault/lib/telemetry"
	"log/slog"
	"net/url"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/cobra"
)

var scrapeVerbose *bool

func init() {
	scrapeVerbose = scrapeCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging and http transcript capture.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Archives the configured bugzilla product, resuming any prior run.",
	Run: func(cmd *cobra.Command, args []string) {
		if *scrapeVerbose {
			telemetry.InitSlog(true)
			bugzilla.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/bugzilla"))
		}

		cfg := mustConfig()
		ctx := cmd.Context()

		baseUrl, err := url.Parse(cfg.BaseUrl)
		if err != nil {
			osutil.Fatal("invalid base_url", err)
		}

		arc, err := archive.Open(cfg.Archive)
		if err != nil {
			osutil.Fatal("failed to open archive", err)
		}

		source, err := cookies.FromName(cfg.Browser, cfg.Profile)
		if err != nil {
			osutil.Fatal("failed to resolve cookie source", err)
		}
		creds, err := source.Cookies(ctx, baseUrl.Hostname())
		if err != nil {
			slog.Error(
				"could not read session cookies; log in to the bugzilla instance in that browser first",
				"browser", source.Name(),
				"host", baseUrl.Hostname(),
				"err", err,
			)
			os.Exit(1)
		}

		client, err := bugzilla.NewClient(bugzilla.ClientOptions{
			BaseUrl:          cfg.BaseUrl,
			Cookies:          creds,
			CloudflareBypass: cfg.CloudflareBypass,
		})
		if err != nil {
			osutil.Fatal("failed to initialize bugzilla client", err)
		}
		if err := client.VerifySession(ctx); err != nil {
			osutil.Fatal("session check failed", err)
		}

		pw := progress.NewWriter()
		pw.SetOutputWriter(os.Stderr)
		pw.SetUpdateFrequency(time.Millisecond * 250)
		go pw.Render()
		defer pw.Stop()

		t1 := time.Now()
		err = bugzilla.Scrape(ctx, arc, client, bugzilla.Scope{
			Product:   cfg.Product,
			Component: cfg.Component,
		}, pw)
		if err != nil {
			osutil.Fatal("scrape failed, re-run to resume from the last committed file", err)
		}
		slog.Info("scrape time", "seconds", time.Since(t1).Seconds())
	},
}
