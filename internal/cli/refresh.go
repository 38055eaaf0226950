package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencurrents/currents-cli/internal/session"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force an access token refresh",
	RunE:  runRefresh,
}

func runRefresh(cmd *cobra.Command, args []string) error {
	mgr, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	if mgr.Restore(context.Background()) != session.Authenticated {
		return fmt.Errorf("not logged in")
	}

	if !mgr.RefreshAccessToken(context.Background()) {
		return fmt.Errorf("refresh failed; you may need to log in again")
	}

	fmt.Println("Access token refreshed.")
	return nil
}
