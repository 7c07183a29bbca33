// Package admin implements kanbanctl, the operator CLI: schema migrations
// and account maintenance against the server's store.
package admin

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/dominikcirko/kanban-app/internal/dbx"
	"github.com/dominikcirko/kanban-app/internal/logging"
	"github.com/dominikcirko/kanban-app/internal/server/config"
	"github.com/dominikcirko/kanban-app/internal/server/repositories/repomanager"
	"github.com/dominikcirko/kanban-app/internal/server/services"
	"github.com/spf13/cobra"
)

// Store is an open backend for the commands to work on.
type Store struct {
	Manager repomanager.RepositoryManager
	DB      dbx.DBTX
	Close   func() error
}

// StoreOpener connects to the store behind dsn.
type StoreOpener func(ctx context.Context, dsn string) (*Store, error)

// OpenPostgres is the StoreOpener used outside tests.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	db, err := repomanager.Open(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	return &Store{
		Manager: repomanager.NewPostgresRepositoryManager(db),
		DB:      db,
		Close:   db.Close,
	}, nil
}

var errNoDSN = errors.New("no database DSN: pass --dsn or set KANBAN_DATABASE_DSN")

type options struct {
	dsn           string
	passwordStdin bool
	open          StoreOpener
	logger        logging.Logger
}

// NewRootCommand builds the kanbanctl command tree.
func NewRootCommand(open StoreOpener, logger logging.Logger) *cobra.Command {
	opts := &options{open: open, logger: logger}

	root := &cobra.Command{
		Use:           "kanbanctl",
		Short:         "Administer a kanban server's database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", "", "PostgreSQL DSN (overrides KANBAN_DATABASE_DSN)")

	root.AddCommand(
		newMigrateCommand(opts),
		newUserCommand(opts),
		newVersionCommand(),
	)
	return root
}

// withStore resolves the DSN the same way the server does and opens it.
func (o *options) withStore(ctx context.Context, fn func(*Store) error) error {
	dsn := o.dsn
	if dsn == "" {
		cfg, err := config.LoadConfig(nil)
		if err != nil {
			return err
		}
		dsn = cfg.DatabaseDSN
	}
	if dsn == "" {
		return errNoDSN
	}

	st, err := o.open(ctx, dsn)
	if err != nil {
		return err
	}
	defer func() {
		if st.Close != nil {
			_ = st.Close()
		}
	}()
	return fn(st)
}

func newMigrateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(st *Store) error {
				if err := st.Manager.RunMigrations(cmd.Context()); err != nil {
					return fmt.Errorf("migrations error: %w", err)
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return err
			})
		},
	}
}

func newUserCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	add := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := opts.password(cmd)
			if err != nil {
				return err
			}
			return opts.withStore(cmd.Context(), func(st *Store) error {
				us := services.NewUserService(st.DB, st.Manager, nil, opts.logger)
				u, err := us.Register(cmd.Context(), args[0], password)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", u.UserName, u.ID)
				return err
			})
		},
	}
	add.Flags().BoolVar(&opts.passwordStdin, "password-stdin", false, "Read the password from stdin")

	del := &cobra.Command{
		Use:   "delete <username>",
		Short: "Remove an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withStore(cmd.Context(), func(st *Store) error {
				us := services.NewUserService(st.DB, st.Manager, nil, opts.logger)
				if err := us.Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted user %s\n", args[0])
				return err
			})
		},
	}

	cmd.AddCommand(add, del)
	return cmd
}

func (o *options) password(cmd *cobra.Command) (string, error) {
	if o.passwordStdin || !stdinIsTerminal() {
		return readLine(cmd.InOrStdin())
	}
	return promptPassword(cmd.ErrOrStderr())
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the kanbanctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			version := "(devel)"
			module := "kanbanctl"
			if bi, ok := debug.ReadBuildInfo(); ok {
				module = bi.Main.Path
				if bi.Main.Version != "" {
					version = bi.Main.Version
				}
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", module, version)
			return err
		},
	}
}
