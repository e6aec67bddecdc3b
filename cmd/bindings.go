package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/km-arc/go-bootstrap/app"
)

func newBindingsCmd(o *rootOptions) *cobra.Command {
	var outputJSON bool

	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "Bootstrap the container and list its registered keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := bootstrapContainer(cmd.Context(), cmd, o)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close(context.Background()) }()

			bindings := app.Bindings(c)
			if outputJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(bindings)
			}
			renderBindingsTable(cmd.OutOrStdout(), bindings)
			return nil
		},
	}
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	return cmd
}

// renderBindingsTable displays bindings in a formatted table
func renderBindingsTable(w io.Writer, bindings []app.Binding) {
	if len(bindings) == 0 {
		color.New(color.FgYellow).Fprintln(w, "No bindings registered")
		return
	}

	headerColor.Fprintln(w, "BINDINGS")
	headerColor.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%-56s %-12s %s\n", "Key", "Lifetime", "Resolved")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, b := range bindings {
		fmt.Fprintf(w, "%-56s %-12s %s\n", b.Key, b.Lifetime, formatBool(b.Resolved))
	}
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatBool(b bool) string {
	if b {
		return color.New(color.FgGreen).Sprint("yes")
	}
	return color.New(color.FgYellow).Sprint("no")
}
