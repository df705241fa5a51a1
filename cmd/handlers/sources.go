package handlers

import (
	"fmt"

	"github.com/spf13/cobra"

	"gridbrief/internal/core"
)

// NewSourcesCmd creates the source management command group.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage ingestion sources",
	}
	cmd.AddCommand(newSourcesAddCmd())
	cmd.AddCommand(newSourcesListCmd())
	cmd.AddCommand(newSourcesEnableCmd(true))
	cmd.AddCommand(newSourcesEnableCmd(false))
	return cmd
}

func newSourcesAddCmd() *cobra.Command {
	var (
		kind     string
		disabled bool
	)
	cmd := &cobra.Command{
		Use:   "add <name> <locator>",
		Short: "Register a source (locator is a feed URL, or a scraper key for web_scraper)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := core.SourceKind(kind)
			if !k.Valid() {
				return fmt.Errorf("invalid kind %q: must be %s, %s or %s",
					kind, core.SourceRSS, core.SourceScraper, core.SourcePaywalled)
			}

			ctx := cmd.Context()
			st, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			src, err := st.CreateSource(ctx, core.Source{
				Name:    args[0],
				Kind:    k,
				Locator: args[1],
				Enabled: !disabled,
			})
			if err != nil {
				return err
			}
			cmd.Printf("source %d %q registered (%s)\n", src.ID, src.Name, src.Kind)
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(core.SourceRSS), "source kind: rss, web_scraper or paywalled")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "register the source disabled")
	return cmd
}

func newSourcesListCmd() *cobra.Command {
	var enabledOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered sources",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			sources, err := st.ListSources(ctx, enabledOnly)
			if err != nil {
				return err
			}
			for _, src := range sources {
				state := "enabled"
				if !src.Enabled {
					state = "disabled"
				}
				cmd.Printf("%4d  %-12s %-8s %-30s %s\n", src.ID, src.Kind, state, src.Name, src.Locator)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&enabledOnly, "enabled", false, "only show enabled sources")
	return cmd
}

func newSourcesEnableCmd(enable bool) *cobra.Command {
	verb, short := "enable", "Enable a source"
	if !enable {
		verb, short = "disable", "Disable a source"
	}
	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, _, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.SetSourceEnabled(ctx, args[0], enable); err != nil {
				return err
			}
			cmd.Printf("source %q %sd\n", args[0], verb)
			return nil
		},
	}
}
