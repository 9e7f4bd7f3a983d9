package clinic

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	clinicsprov "github.com/optoplus-health/optoplus/domains/clinics/be/provisioning"
	clinicsrepo "github.com/optoplus-health/optoplus/domains/clinics/be/repo"
	clinicsservice "github.com/optoplus-health/optoplus/domains/clinics/be/service"
	platformlogging "github.com/optoplus-health/optoplus/platform/go/logging"
	"github.com/optoplus-health/optoplus/platform/go/persistence"
)

// Command groups clinic registry helpers.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clinic",
		Short: "Clinic utilities (create/list)",
	}

	cmd.AddCommand(createCommand())
	cmd.AddCommand(listCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var (
		server      serverFlags
		name        string
		englishName string
		address     string
		phone       string
		managerName string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Provision a clinic (database, schema, registry entry)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, registry, err := buildService(server)
			if err != nil {
				return err
			}
			defer registry.Close()

			clinic, err := svc.Provision(ctx, clinicsservice.CreateInput{
				Name:        name,
				EnglishName: englishName,
				Address:     strPtrOrNil(address),
				Phone:       strPtrOrNil(phone),
				ManagerName: strPtrOrNil(managerName),
			})
			if err != nil {
				var provErr *clinicsservice.ProvisionError
				if errors.As(err, &provErr) {
					return fmt.Errorf("provisioning failed at step %q (database %q): %w",
						provErr.Step, provErr.DBName, provErr.Err)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Clinic provisioned: %s (id=%d, database=%s)\n",
				clinic.Name, clinic.ID, clinic.DBName)
			return nil
		},
	}

	server.register(c)
	c.Flags().StringVar(&name, "name", "", "Clinic display name")
	c.Flags().StringVar(&englishName, "english-name", "", "Optional database key seed (ASCII)")
	c.Flags().StringVar(&address, "address", "", "Clinic address")
	c.Flags().StringVar(&phone, "phone", "", "Clinic phone number")
	c.Flags().StringVar(&managerName, "manager-name", "", "Clinic manager name")

	_ = c.MarkFlagRequired("name")

	return c
}

func listCommand() *cobra.Command {
	var (
		server          serverFlags
		includeInactive bool
	)

	c := &cobra.Command{
		Use:   "list",
		Short: "List registered clinics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			svc, registry, err := buildService(server)
			if err != nil {
				return err
			}
			defer registry.Close()

			var active *bool
			if !includeInactive {
				t := true
				active = &t
			}

			clinics, err := svc.List(ctx, active)
			if err != nil {
				return fmt.Errorf("list clinics: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tDATABASE\tACTIVE\tCREATED")
			for _, cl := range clinics {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n",
					cl.ID, cl.Name, cl.DBName, cl.Active, cl.CreatedAt.Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}

	server.register(c)
	c.Flags().BoolVar(&includeInactive, "all", false, "Include deactivated clinics")

	return c
}

func buildService(server serverFlags) (*clinicsservice.Service, *persistence.PoolRegistry, error) {
	logger, err := platformlogging.NewLogger(platformlogging.Config{Component: "cli-clinic"})
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}

	registry, err := persistence.NewPoolRegistry(server.config(), logger, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("init pool registry: %w", err)
	}

	clinicStore, err := persistence.NewClinicStore(registry)
	if err != nil {
		registry.Close()
		return nil, nil, fmt.Errorf("init clinic store: %w", err)
	}

	repo := clinicsrepo.NewPostgresRepository(clinicStore)
	prov := clinicsprov.NewDBProvisioner(registry)
	return clinicsservice.New(repo, prov), registry, nil
}

func strPtrOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
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
