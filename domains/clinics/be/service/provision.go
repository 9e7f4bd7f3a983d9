package service

import "fmt"

// ProvisionStep identifies one stage of the provisioning saga.
type ProvisionStep string

const (
	StepDeriveKey      ProvisionStep = "derive-key"
	StepUniqueness     ProvisionStep = "uniqueness-check"
	StepCreateDatabase ProvisionStep = "create-database"
	StepApplySchema    ProvisionStep = "apply-schema"
	StepRegistryInsert ProvisionStep = "registry-insert"
)

// ProvisionError reports which saga step failed so callers can decide
// whether to retry or clean up manually. There is no rollback of earlier
// steps; the sequence never had atomicity and pretending otherwise would
// only hide the cleanup burden.
type ProvisionError struct {
	Step   ProvisionStep
	DBName string
	Err    error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provision clinic %q: step %s: %v", e.DBName, e.Step, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
