package token

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	platformauth "github.com/optoplus-health/optoplus/platform/go/auth"
)

// Command mints a signed session token for local development and smoke
// tests. Production tokens come from the login endpoint, not this tool.
func Command() *cobra.Command {
	var (
		secret    string
		ttl       time.Duration
		userID    int64
		username  string
		role      string
		clinicKey string
	)

	c := &cobra.Command{
		Use:   "token",
		Short: "Mint a development session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			signer, err := platformauth.NewSigner(secret, ttl)
			if err != nil {
				return fmt.Errorf("init signer: %w", err)
			}

			signed, err := signer.Sign(platformauth.UserCredentials{
				UserID:    userID,
				Username:  username,
				Role:      role,
				ClinicKey: clinicKey,
			})
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}

	c.Flags().StringVar(&secret, "secret", "", "JWT signing secret (must match the API server)")
	c.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	c.Flags().Int64Var(&userID, "user-id", 1, "Subject user id")
	c.Flags().StringVar(&username, "username", "dev", "Username claim")
	c.Flags().StringVar(&role, "role", platformauth.RoleAdmin, "Role claim (ADMIN, MANAGER, OPTOMETRIST, SELLER)")
	c.Flags().StringVar(&clinicKey, "clinic-key", "", "Clinic database key claim (empty for platform admins)")

	_ = c.MarkFlagRequired("secret")

	return c
}
