package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"github.com/yiblet/ammo/internal/cli"
)

func main() {
	var args cli.Args
	parser := arg.MustParse(&args)

	// No subcommand opens the picker
	if !args.HasCommand() {
		args.UI = &cli.UICmd{}
	}

	cliHandler, err := cli.NewWithArgs(&args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := cliHandler.Execute(context.Background(), &args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		if err := args.Validate(); err != nil {
			fmt.Fprintln(os.Stderr)
			parser.WriteUsage(os.Stderr)
		}
		os.Exit(1)
	}
}
