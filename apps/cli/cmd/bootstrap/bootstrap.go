package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	platformlogging "github.com/optoplus-health/optoplus/platform/go/logging"
	"github.com/optoplus-health/optoplus/platform/go/persistence"
)

// Notes/constraints:
// - Bootstrap is idempotent: the master database, both registry tables and
//   the seed admin survive re-runs unchanged.
// - Clinic databases are never touched here; use `optoplus clinic create`.

// Command groups bootstrap helpers (master registry init, admin seed).
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Bootstrap platform resources (master registry, first admin)",
		Long:  "Bootstrap platform resources: create the master registry database, its tables, and the initial platform admin.",
	}

	cmd.AddCommand(masterCommand())
	return cmd
}

func masterCommand() *cobra.Command {
	var (
		server        serverFlags
		adminUsername string
		adminEmail    string
		adminPassword string
		adminFirst    string
		adminLast     string
	)

	c := &cobra.Command{
		Use:   "master",
		Short: "Create the master registry database and seed the first admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			logger, err := platformlogging.NewLogger(platformlogging.Config{Component: "cli-bootstrap"})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			registry, err := persistence.NewPoolRegistry(server.config(), logger, nil)
			if err != nil {
				return fmt.Errorf("init pool registry: %w", err)
			}
			defer registry.Close()

			masterStore := persistence.NewMasterStore(registry, logger)
			if err := masterStore.EnsureDatabase(ctx); err != nil {
				return fmt.Errorf("ensure master registry: %w", err)
			}

			adminStore, err := persistence.NewAdminStore(registry)
			if err != nil {
				return fmt.Errorf("init admin store: %w", err)
			}

			admin, created, err := ensureAdmin(ctx, adminStore, adminSeed{
				Username:  adminUsername,
				Email:     adminEmail,
				Password:  adminPassword,
				FirstName: adminFirst,
				LastName:  adminLast,
			})
			if err != nil {
				return err
			}

			logger.Info("master registry ready",
				zap.String("admin_username", admin.Username),
				zap.Bool("admin_created", created),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "Bootstrap complete. Admin: %s (id=%d, created=%t)\n", admin.Username, admin.ID, created)
			return nil
		},
	}

	server.register(c)
	c.Flags().StringVar(&adminUsername, "admin-username", "", "Username for the seed platform admin")
	c.Flags().StringVar(&adminEmail, "admin-email", "", "Email for the seed platform admin")
	c.Flags().StringVar(&adminPassword, "admin-password", "", "Password for the seed platform admin")
	c.Flags().StringVar(&adminFirst, "admin-first-name", "", "First name of the seed platform admin")
	c.Flags().StringVar(&adminLast, "admin-last-name", "", "Last name of the seed platform admin")

	_ = c.MarkFlagRequired("admin-username")
	_ = c.MarkFlagRequired("admin-email")
	_ = c.MarkFlagRequired("admin-password")

	return c
}

type adminSeed struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// ensureAdmin performs a check-or-create for the seed admin. An existing
// admin with the same username is reused untouched, password included.
func ensureAdmin(ctx context.Context, store *persistence.AdminStore, seed adminSeed) (persistence.AdminRecord, bool, error) {
	seed.Username = strings.TrimSpace(seed.Username)
	seed.Email = strings.TrimSpace(seed.Email)
	if seed.Username == "" || seed.Email == "" || seed.Password == "" {
		return persistence.AdminRecord{}, false, fmt.Errorf("admin username, email and password are required")
	}

	existing, err := store.FindByUsername(ctx, seed.Username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, persistence.ErrAdminNotFound) {
		return persistence.AdminRecord{}, false, fmt.Errorf("lookup admin: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return persistence.AdminRecord{}, false, fmt.Errorf("hash admin password: %w", err)
	}

	rec := persistence.AdminRecord{
		Username:     seed.Username,
		Email:        seed.Email,
		PasswordHash: string(hash),
		FirstName:    seed.FirstName,
		LastName:     seed.LastName,
		IsActive:     true,
	}
	id, err := store.Insert(ctx, rec)
	if err != nil {
		return persistence.AdminRecord{}, false, fmt.Errorf("create admin: %w", err)
	}
	rec.ID = id
	return rec, true, nil
}

// serverFlags carries the shared database server connection flags.
type serverFlags struct {
	host     string
	port     int
	user     string
	password string
	masterDB string
	adminDB  string
}

func (f *serverFlags) register(c *cobra.Command) {
	c.Flags().StringVar(&f.host, "db-host", "localhost", "Database server host")
	c.Flags().IntVar(&f.port, "db-port", 5432, "Database server port")
	c.Flags().StringVar(&f.user, "db-user", "", "Database server user")
	c.Flags().StringVar(&f.password, "db-password", "", "Database server password")
	c.Flags().StringVar(&f.masterDB, "master-db", "optometry_master", "Master registry database name")
	c.Flags().StringVar(&f.adminDB, "admin-db", "postgres", "Maintenance database used for CREATE DATABASE")

	_ = c.MarkFlagRequired("db-user")
	_ = c.MarkFlagRequired("db-password")
}

func (f *serverFlags) config() persistence.ServerConfig {
	return persistence.ServerConfig{
		Host:     f.host,
		Port:     f.port,
		User:     f.user,
		Password: f.password,
		MasterDB: f.masterDB,
		AdminDB:  f.adminDB,
	}
}
