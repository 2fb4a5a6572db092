package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/marksync/internal/app"
	"github.com/MrSnakeDoc/marksync/internal/config"
	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
	"github.com/MrSnakeDoc/marksync/internal/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "marksync",
		Short:         "Bookmarks kept in sync across every process of a profile",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newListCmd(),
		newAddCmd(),
		newImportCmd(),
		newVersionCmd(),
	)
	return root
}

// withApp loads the environment configuration, connects and runs fn.
// SIGINT/SIGTERM cancel the context passed to fn.
func withApp(fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer func() { _ = loggerClient.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, loggerClient)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local API and keep the collection in sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newLoginCmd() *cobra.Command {
	var userID, name string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token for this profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				identity, err := a.Login(ctx, userID, name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", identity.Label, identity.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name (defaults to the user id)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session of this profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				if err := a.Logout(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			})
		},
	}
}

func newListCmd() *cobra.Command {
	var search, category, sortKey string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bookmarks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				rows, err := a.List(ctx, search, category, domain.ParseSortKey(sortKey))
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(cmd.OutOrStdout(), rows)
				}
				return printTable(cmd.OutOrStdout(), rows)
			})
		},
	}

	cmd.Flags().StringVarP(&search, "q", "q", "", "search title and url")
	cmd.Flags().StringVarP(&category, "category", "c", domain.CategoryAll, "category filter")
	cmd.Flags().StringVarP(&sortKey, "sort", "s", string(domain.SortByDate), "date | title | favorites")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newAddCmd() *cobra.Command {
	var title, category string

	cmd := &cobra.Command{
		Use:   "add URL",
		Short: "Add a bookmark",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				created, err := a.Add(ctx, args[0], title, category)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "added %s [%s] %s\n", created.ID, created.Category, created.URL)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "title (defaults to the url)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category (defaults to general)")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a Homepage bookmarks.yaml",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app.App) error {
				res, err := a.Import(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d, %d already bookmarked, %d invalid\n",
					res.Created, res.Duplicates, res.Invalid)
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func printJSON(w io.Writer, rows []*domain.Bookmark) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func printTable(w io.Writer, rows []*domain.Bookmark) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFAV\tCATEGORY\tTITLE\tURL")
	for _, b := range rows {
		fav := ""
		if b.IsFavorite {
			fav = "★"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.ID, fav, b.Category, b.Title, b.URL)
	}
	return tw.Flush()
}
