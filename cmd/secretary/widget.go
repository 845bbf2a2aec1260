package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aitarf0921/AI-Secretary/pkg/widget"
)

func newWidgetCmd() *cobra.Command {
	var (
		publicURL   string
		endpoint    string
		placeholder string
		site        string
		attrs       widget.Attrs
	)

	cmd := &cobra.Command{
		Use:   "widget",
		Short: "Embed helpers",
	}

	snippetCmd := &cobra.Command{
		Use:   "snippet",
		Short: "Print the embed snippet for a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			if publicURL == "" {
				return fmt.Errorf("--public-url is required")
			}
			cfg := widget.PublicConfig(publicURL, endpoint, placeholder, site)
			attrs.Widget, attrs.Endpoint, attrs.Placeholder, attrs.Site = cfg.Widget, cfg.Endpoint, cfg.Placeholder, cfg.Site
			snippet, err := widget.Snippet(widget.Normalize(attrs))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), snippet)
			return nil
		},
	}

	snippetCmd.Flags().StringVar(&publicURL, "public-url", "", "public base URL of the server")
	snippetCmd.Flags().StringVar(&endpoint, "endpoint", "", "query endpoint (defaults to <public-url>/query)")
	snippetCmd.Flags().StringVar(&placeholder, "placeholder", "", "input placeholder text")
	snippetCmd.Flags().StringVar(&site, "site", "", "site identifier")
	snippetCmd.Flags().StringVar(&attrs.Position, "position", "", "bottom-right, bottom-left, top-right or top-left")
	snippetCmd.Flags().StringVar(&attrs.Accent, "accent", "", "accent color")
	snippetCmd.Flags().StringVar(&attrs.Width, "width", "", "panel width in pixels")
	snippetCmd.Flags().StringVar(&attrs.Height, "height", "", "panel height in pixels")
	snippetCmd.Flags().StringVar(&attrs.Z, "z", "", "z-index of the launcher")
	cmd.AddCommand(snippetCmd)
	return cmd
}
