package cmd

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"chatai-router/internal/config"
	"chatai-router/internal/models"
	providerfactory "chatai-router/internal/provider/factory"
)

const modelsUsage = `Usage:
  chatai-router models [--config <path>]

Flags:
  --config string   Path to YAML configuration file (defaults are used when omitted)`

func listModels(args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, modelsUsage)
	}

	var cfgPath string
	fs.StringVar(&cfgPath, "config", "", "path to configuration file")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return fmt.Errorf("parse models flags: %w", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	return writeModelTable(os.Stdout, providerfactory.Describe(cfg))
}

func writeModelTable(w io.Writer, infos []models.ModelInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tINPUT/1K\tOUTPUT/1K\tSTREAMING\tVISION")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.5f\t%.5f\t%t\t%t\n",
			info.ID,
			info.Name,
			info.Provider,
			info.Pricing.Input,
			info.Pricing.Output,
			info.Capabilities.Streaming,
			info.Capabilities.Vision,
		)
	}
	return tw.Flush()
}
