package main

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AtharvRG/Zenith-AI/internal/command"
	"github.com/AtharvRG/Zenith-AI/internal/config"
	"github.com/AtharvRG/Zenith-AI/internal/message"
	"github.com/AtharvRG/Zenith-AI/internal/registry"
)

// app carries state shared by every subcommand.
type app struct {
	configFile string
	cfg        *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "zenith",
		Short: "Local backend for the Zenith desktop assistant",
		Long: `zenith runs the HTTP backend the Zenith desktop frontend talks to.

Commands such as "note: ...", "open <app>", "open youtube cats" or
"search golang generics" are executed locally; anything else is streamed
from the configured conversation backend (Gemini, OpenAI or Anthropic).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" || (cmd.Parent() != nil && cmd.Parent().Name() == "config") {
				return nil
			}
			cfg, err := config.Load(a.configFile)
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			config.SetupLogging(cfg.Logging)
			a.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(a.cfg)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "path to config file (e.g. configs/zenith.yaml)")

	rootCmd.AddCommand(
		a.serveCmd(),
		a.classifyCmd(),
		a.appsCmd(),
		a.sitesCmd(),
		a.historyCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return rootCmd
}

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the assistant backend (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(a.cfg)
		},
	}
}

func (a *app) classifyCmd() *cobra.Command {
	var run bool
	cmd := &cobra.Command{
		Use:   "classify <query...>",
		Short: "Show how a query would be handled",
		Long: `Classify a query against the saved registries and print the resulting
command. Nothing is executed unless --run is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(a.cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			query := strings.TrimSpace(strings.Join(args, " "))
			out := cmd.OutOrStdout()
			if !run {
				c, err := eng.dispatcher.Classify(query)
				if err != nil {
					fmt.Fprintf(out, "%s %s\n", errStyle.Render("invalid:"), err)
					return nil
				}
				fmt.Fprintf(out, "%s %s\n", keyStyle.Render(string(c.Kind())), command.Describe(c))
				return nil
			}

			c, outcome, forward := eng.dispatcher.Handle(cmd.Context(), query)
			if forward {
				fmt.Fprintf(out, "%s %s\n", keyStyle.Render(string(c.Kind())), "would be sent to the conversation backend")
				return nil
			}
			printOutcome(out, outcome)
			return nil
		},
	}
	cmd.Flags().BoolVar(&run, "run", false, "execute the command")
	return cmd
}

func printOutcome(w io.Writer, o message.Outcome) {
	switch o.Kind {
	case message.Handled:
		fmt.Fprintf(w, "%s %s\n", okStyle.Render(o.Label), o.Message)
	case message.NeedsInput:
		fmt.Fprintf(w, "%s %s\n", warnStyle.Render(message.StatusAppNotFound), o.Summary())
	default:
		fmt.Fprintf(w, "%s %s\n", errStyle.Render(fmt.Sprintf("error %d", o.Status)), o.Reason)
	}
}

func (a *app) appsCmd() *cobra.Command {
	appsCmd := &cobra.Command{
		Use:   "apps",
		Short: "Manage learned application paths",
	}

	appsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List learned applications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := openEngine(a.cfg)
			if err != nil {
				return err
			}
			defer eng.Close()
			printEntries(cmd.OutOrStdout(), eng.apps)
			return nil
		},
	})

	appsCmd.AddCommand(&cobra.Command{
		Use:   "teach <name> <path>",
		Short: "Save the executable path for an application",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine(a.cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			out := eng.dispatcher.Teach(cmd.Context(), args[0], args[1])
			printOutcome(cmd.OutOrStdout(), out)
			if out.Kind == message.Failed {
				return fmt.Errorf("teach failed: %s", out.Reason)
			}
			return nil
		},
	})

	return appsCmd
}

func (a *app) sitesCmd() *cobra.Command {
	sitesCmd := &cobra.Command{
		Use:   "sites",
		Short: "Inspect known websites and searchable sites",
	}
	sitesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List known websites",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := openEngine(a.cfg)
			if err != nil {
				return err
			}
			defer eng.Close()
			printEntries(cmd.OutOrStdout(), eng.websites)
			return nil
		},
	})
	sitesCmd.AddCommand(&cobra.Command{
		Use:   "search",
		Short: "List sites usable as \"search <site> for ...\"",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, s := range command.Sites {
				fmt.Fprintf(out, "%s  %s\n", keyStyle.Render(fmt.Sprintf("%-14s", s.Key)), s.Template)
			}
			return nil
		},
	})
	return sitesCmd
}

func printEntries(w io.Writer, s *registry.Store) {
	entries := s.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("no %s saved (%s)", s.Name(), s.Path())))
		return
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d %s in %s", len(entries), s.Name(), s.Path())))
	for _, k := range slices.Sorted(maps.Keys(entries)) {
		fmt.Fprintf(w, "%s  %s\n", keyStyle.Render(k), entries[k])
	}
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently dispatched commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !a.cfg.Data.History {
				return fmt.Errorf("command history is disabled (data.history)")
			}
			eng, err := openEngine(a.cfg)
			if err != nil {
				return err
			}
			defer eng.Close()

			entries, err := eng.history.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, dimStyle.Render("no commands recorded yet"))
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s  %-16s %s\n",
					dimStyle.Render(e.Timestamp.Local().Format("2006-01-02 15:04:05")),
					statusStyle(e.Status).Render(fmt.Sprintf("%-13s", e.Status)),
					e.Kind, e.Query)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "zenith.yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", okStyle.Render("wrote"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	configCmd.AddCommand(initCmd)
	return configCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "zenith %s\n", version)
		},
	}
}
