package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opencurrents/currents-cli/internal/api"
	"github.com/opencurrents/currents-cli/internal/session"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Fetch the current profile from the server",
	RunE:  runWhoami,
}

func runWhoami(cmd *cobra.Command, args []string) error {
	mgr, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	if mgr.Restore(context.Background()) != session.Authenticated {
		return fmt.Errorf("not logged in")
	}

	user, err := mgr.ReloadProfile(context.Background())
	if err != nil {
		if api.IsKind(err, api.KindTokenExpired) {
			return fmt.Errorf("session expired; run 'currents refresh' or log in again")
		}
		return err
	}

	fmt.Printf("%s <%s>\n", user.Username, user.Email)
	if user.Bio != "" {
		fmt.Printf("Bio: %s\n", user.Bio)
	}
	if len(user.Roles) > 0 {
		fmt.Printf("Roles: %s\n", strings.Join(user.Roles, ", "))
	}
	return nil
}
