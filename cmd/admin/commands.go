package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app carries the lazily opened database shared by every subcommand.
type app struct {
	connect func() (*gorm.DB, error)
	db      *gorm.DB
	admins  *service.AdminService
}

func newRootCmd(connect func() (*gorm.DB, error)) *cobra.Command {
	a := &app{connect: connect}

	root := &cobra.Command{
		Use:           "admin",
		Short:         "Inkwell admin CLI - manage operator accounts and the schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || a.db != nil {
				return nil
			}
			db, err := a.connect()
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			a.db = db
			a.admins = service.NewAdminService(repository.NewUserRepository(db))
			return nil
		},
	}

	root.AddCommand(
		a.roleCmd("promote", "Grant the admin role to the account registered under <email>", models.RoleAdmin),
		a.roleCmd("demote", "Revoke the admin role from the account registered under <email>", models.RoleUser),
		a.listCmd(),
		a.createCmd(),
		a.migrateCmd(),
	)
	return root
}

func (a *app) roleCmd(name, short, role string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <email>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.admins.SetRole(cmdContext(cmd), args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (ID: %d) is now %s\n", user.Email, user.ID, user.Role)
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			admins, err := a.admins.ListAdmins(cmdContext(cmd))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(admins) == 0 {
				fmt.Fprintln(out, "No admins found")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tNAME\tACTIVE")
			for _, u := range admins {
				fmt.Fprintf(w, "%d\t%s\t%s %s\t%t\n", u.ID, u.Email, u.FirstName, u.LastName, u.IsActive)
			}
			return w.Flush()
		},
	}
}

func (a *app) createCmd() *cobra.Command {
	var in service.CreateAdminInput
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, err := a.admins.CreateAdmin(cmdContext(cmd), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created admin %s (ID: %d)\n", user.Email, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address of the new admin")
	cmd.Flags().StringVar(&in.Password, "password", "", "Initial password")
	cmd.Flags().StringVar(&in.FirstName, "first", "", "First name")
	cmd.Flags().StringVar(&in.LastName, "last", "", "Last name")
	for _, f := range []string{"email", "password", "first", "last"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := database.Migrate(a.db.WithContext(cmdContext(cmd))); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration completed")
			return nil
		},
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
