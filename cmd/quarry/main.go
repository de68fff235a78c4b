package main

import (
	"context"
	"fmt"
	"os"

	"github.com/quarrylabs/quarry/internal/cli"
)

// version is populated at build time via -ldflags.
var version = "dev"

func main() {
	root := cli.NewRootCmd(version)
	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
