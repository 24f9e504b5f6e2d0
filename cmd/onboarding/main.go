// Command onboarding is a terminal front end for the onboarding flow.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rockethooks/onboarding/cli"
	"github.com/rockethooks/onboarding/shutdown"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := shutdown.New(nil).Notify(context.Background())

	err := newRootCommand(cli.NewTerminal()).ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
