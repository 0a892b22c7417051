package main

import (
	"bugvault/cmd/bugvault/commands"
	"bugvault/lib/osutil"
	"bugvault/lib/telemetry"
	"context"
	"errors"
	"log/slog"
	"os"
)

func main() {
	telemetry.InitSlog(false)
	ctx := osutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "bugvault")
	if err == nil {
		defer tel.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	} else if !errors.Is(err, os.ErrNotExist) {
		slog.Warn("telemetry setup failed", "err", err)
	}

	commands.ExecuteContext(ctx)
}
