package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"library-tracker/app"
	"library-tracker/config"
	"library-tracker/library"
)

// rootOptions are the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	driver     string
	dbPath     string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Track a small library's books, members, loans and fines",
		Long: `library keeps the catalog, the members and the loans of a small library.

Run without a subcommand for the interactive menu.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				in := cmd.InOrStdin()
				return newMenu(in, cmd.OutOrStdout(), a.Library, isTerminal(in)).Run(cmd.Context())
			})
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.driver, "driver", "", "storage driver: memory, sqlite or bolt")
	cmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "path to the database file")

	cmd.AddCommand(newStatsCmd(opts), newSearchCmd(opts), newMemberCmd(opts))
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print library statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				stats := a.Library.GetLibraryStats()
				if asYAML {
					enc := yaml.NewEncoder(cmd.OutOrStdout())
					defer enc.Close()
					return enc.Encode(stats)
				}
				printStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print statistics as YAML")
	return cmd
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search [query]",
		Short: "Search books by title or author",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(a *app.App) error {
				query := strings.Join(args, " ")
				printBooks(cmd.OutOrStdout(), query, a.Library.SearchBooks(query))
				return nil
			})
		},
	}
}

func newMemberCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Manage member accounts",
	}
	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <member-id>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.withApp(cmd.Context(), func(a *app.App) error {
					res := a.Library.SetMemberActive(cmd.Context(), args[0], active)
					if !res.OK() {
						return res.Err()
					}
					fmt.Fprintln(cmd.OutOrStdout(), res.Message)
					return nil
				})
			},
		}
	}
	cmd.AddCommand(
		setActive("activate", "Allow a suspended member to borrow again", true),
		setActive("deactivate", "Suspend a member; suspended members cannot borrow", false),
	)
	return cmd
}

// withApp loads the configuration, applies flag overrides and runs fn with
// an open App.
func (o *rootOptions) withApp(ctx context.Context, fn func(*app.App) error) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Override(o.driver, o.dbPath); err != nil {
		return err
	}
	a, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printStats(w io.Writer, s library.Stats) {
	fmt.Fprintln(w, "Library Statistics")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "%-28s %d\n", "Total members:", s.TotalMembers)
	fmt.Fprintf(w, "%-28s %d\n", "Active members:", s.ActiveMembers)
	fmt.Fprintf(w, "%-28s %d\n", "Unique titles:", s.UniqueTitles)
	fmt.Fprintf(w, "%-28s %d\n", "Total books in inventory:", s.TotalCopies)
	fmt.Fprintf(w, "%-28s %d\n", "Borrowed books:", s.BorrowedCopies)
	fmt.Fprintf(w, "%-28s %d\n", "Available books:", s.AvailableCopies)
	fmt.Fprintf(w, "%-28s %d\n", "Overdue loans:", s.OverdueLoans)
	fmt.Fprintf(w, "%-28s %s\n", "Outstanding fines:", s.OutstandingFines)
}

func printBooks(w io.Writer, query string, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintf(w, "No books found matching '%s'.\n", query)
		return
	}
	fmt.Fprintf(w, "Found %d book(s) matching '%s':\n", len(books), query)
	fmt.Fprintf(w, "%-13s %-30s %-22s %-6s %s\n", "ISBN", "Title", "Author", "Year", "Available")
	fmt.Fprintln(w, strings.Repeat("-", 85))
	for _, b := range books {
		fmt.Fprintln(w, library.FormatBook(b))
	}
}
