package cmd

import (
	"context"
	"fmt"
	"strings"
)

const usage = `chatai-router exposes OpenAI and Anthropic chat models behind one unified API.

Usage:
  chatai-router <command> [flags]

Commands:
  serve    Start the HTTP server
  models   List configured models with pricing and capabilities

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "models":
		return listModels(args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
