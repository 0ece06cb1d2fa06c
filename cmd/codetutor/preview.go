// cmd/codetutor/preview.go
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func previewCmd() *cobra.Command {
	var widthFlag int

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Render a generated tutorial page in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			width := widthFlag
			if width <= 0 {
				width = 100
				if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
					width = w
				}
			}

			r, err := glamour.NewTermRenderer(
				glamour.WithAutoStyle(),
				glamour.WithWordWrap(width),
			)
			if err != nil {
				return fmt.Errorf("creating glamour renderer: %w", err)
			}

			out, err := r.Render(string(data))
			if err != nil {
				return fmt.Errorf("rendering markdown: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().IntVar(&widthFlag, "width", 0, "word wrap width (default: terminal width)")
	return cmd
}
