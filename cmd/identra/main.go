// Command identra administers an identity backend: schema migration,
// instance bootstrap, and projection maintenance.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/identra/identra/pkg/command"
	"github.com/identra/identra/pkg/crypto"
	"github.com/identra/identra/pkg/eventstore"
	"github.com/identra/identra/pkg/eventstore/sqlite"
	"github.com/identra/identra/pkg/projection"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("IDENTRA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	root := &cobra.Command{
		Use:           "identra",
		Short:         "Event-sourced identity backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db", "identra.db", "path to the sqlite database")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("db", root.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag("log-level", root.PersistentFlags().Lookup("log-level"))

	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		var level slog.Level
		if err := level.UnmarshalText([]byte(v.GetString("log-level"))); err != nil {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	}

	root.AddCommand(newMigrateCmd(v))
	root.AddCommand(newSetupCmd(v))
	root.AddCommand(newProjectionCmd(v))
	return root
}

func openStore(v *viper.Viper) (*sqlite.Store, error) {
	return sqlite.New(sqlite.WithDSN("file:" + v.GetString("db")))
}

func newMigrateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sqlite.New(
				sqlite.WithDSN("file:"+v.GetString("db")),
				sqlite.WithoutAutoMigrate())
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(); err != nil {
				return err
			}
			slog.Info("migrations applied", "db", v.GetString("db"))
			return nil
		},
	}
}

func newSetupCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Bootstrap a new instance with a default org and admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(v)
			if err != nil {
				return err
			}
			defer store.Close()

			opts := []command.Option{}
			if keeperURL := v.GetString("keeper-url"); keeperURL != "" {
				encrypter, err := crypto.NewEncrypter(cmd.Context(), keeperURL)
				if err != nil {
					return err
				}
				defer encrypter.Close()
				opts = append(opts, command.WithEncrypter(encrypter))
			}
			commands := command.NewCommands(eventstore.New(store), opts...)

			result, err := commands.SetupInstance(cmd.Context(), &command.SetupRequest{
				InstanceName:   v.GetString("instance-name"),
				OrgName:        v.GetString("org-name"),
				AdminUsername:  v.GetString("admin-username"),
				AdminFirstName: v.GetString("admin-first-name"),
				AdminLastName:  v.GetString("admin-last-name"),
				AdminEmail:     v.GetString("admin-email"),
				AdminPassword:  v.GetString("admin-password"),
			})
			if err != nil {
				return err
			}

			fmt.Printf("instance id: %s\norg id:      %s\nadmin id:    %s\n",
				result.InstanceID, result.OrgID, result.AdminUserID)
			return nil
		},
	}

	cmd.Flags().String("instance-name", "", "name of the new instance")
	cmd.Flags().String("org-name", "", "name of the default org")
	cmd.Flags().String("admin-username", "", "username of the admin user")
	cmd.Flags().String("admin-first-name", "", "first name of the admin user")
	cmd.Flags().String("admin-last-name", "", "last name of the admin user")
	cmd.Flags().String("admin-email", "", "email of the admin user")
	cmd.Flags().String("admin-password", "", "password of the admin user")
	cmd.Flags().String("keeper-url", "", "secret keeper URL for TOTP seed encryption")
	_ = v.BindPFlags(cmd.Flags())
	return cmd
}

func newProjectionCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "projection",
		Short: "Inspect and maintain projections",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List registered projections",
			RunE: func(cmd *cobra.Command, args []string) error {
				manager, cleanup, err := newManager(cmd.Context(), v)
				if err != nil {
					return err
				}
				defer cleanup()
				for _, name := range manager.Names() {
					fmt.Println(name)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "trigger [name]",
			Short: "Run one synchronous catch-up (all projections without a name)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				manager, cleanup, err := newManager(cmd.Context(), v)
				if err != nil {
					return err
				}
				defer cleanup()
				name := ""
				if len(args) == 1 {
					name = args[0]
				}
				return manager.Trigger(cmd.Context(), name)
			},
		},
		&cobra.Command{
			Use:   "rebuild <name>",
			Short: "Reset one projection and replay it from the log",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				manager, cleanup, err := newManager(cmd.Context(), v)
				if err != nil {
					return err
				}
				defer cleanup()
				return manager.Rebuild(cmd.Context(), args[0])
			},
		},
	)
	return cmd
}

// newManager wires every known projection over the configured store. The
// cleanup func closes the store.
func newManager(ctx context.Context, v *viper.Viper) (*projection.Manager, func(), error) {
	store, err := openStore(v)
	if err != nil {
		return nil, nil, err
	}

	manager := projection.NewManager(eventstore.New(store), store.DB())
	manager.Register(projection.NewOrgProjection())
	manager.Register(projection.NewUserProjection())
	manager.Register(projection.NewProjectProjection())
	manager.Register(projection.NewAuthRequestProjection())
	manager.Register(projection.NewSessionProjection())

	// Trigger and Rebuild assume initialized tables; Manager.Start would
	// also launch background loops the CLI does not want.
	if err := manager.Init(ctx, ""); err != nil {
		store.Close()
		return nil, nil, err
	}
	return manager, func() { store.Close() }, nil
}
