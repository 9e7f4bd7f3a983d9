package sqlassets

import _ "embed"

//go:embed schema/master/clinics.sql
var ClinicsSQL string

//go:embed schema/master/admin_users.sql
var AdminUsersSQL string

//go:embed schema/clinic/clinic_schema.sql
var ClinicSchemaSQL string
