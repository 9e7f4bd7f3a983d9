package provisioning

import (
	"context"
	"sync"

	sqlassets "github.com/optoplus-health/optoplus/database"
	"github.com/optoplus-health/optoplus/platform/go/persistence"
)

// DBProvisioner creates per-clinic databases and applies the clinic schema
// script through the shared pool registry.
type DBProvisioner struct {
	registry *persistence.PoolRegistry

	scriptOnce sync.Once
	script     string
}

// NewDBProvisioner wires the provisioner to the pool registry.
func NewDBProvisioner(registry *persistence.PoolRegistry) *DBProvisioner {
	if registry == nil {
		panic("db provisioner requires pool registry")
	}
	return &DBProvisioner{registry: registry}
}

// CreateDatabase creates the physical clinic database; idempotent per key.
func (p *DBProvisioner) CreateDatabase(ctx context.Context, key string) error {
	return p.registry.CreateDatabase(ctx, key)
}

// ApplySchema applies the clinic schema script to the clinic's database.
// The script is loaded once and reused for every subsequent provision call.
func (p *DBProvisioner) ApplySchema(ctx context.Context, key string) error {
	p.scriptOnce.Do(func() {
		p.script = sqlassets.ClinicSchemaSQL
	})
	return p.registry.ApplyClinicSchema(ctx, key, p.script)
}
