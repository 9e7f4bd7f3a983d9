package root

import (
	"github.com/optoplus-health/optoplus/apps/cli/cmd/bootstrap"
	"github.com/optoplus-health/optoplus/apps/cli/cmd/clinic"
	"github.com/optoplus-health/optoplus/apps/cli/cmd/token"
)

func init() {
	Root().AddCommand(bootstrap.Command())
	Root().AddCommand(clinic.Command())
	Root().AddCommand(token.Command())
}
