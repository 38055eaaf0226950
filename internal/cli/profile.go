package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opencurrents/currents-cli/internal/model"
	"github.com/opencurrents/currents-cli/internal/session"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Update the locally mirrored profile",
	Long: `Update profile fields in the local session mirror. The change is a
local merge only; persist the edit server-side through the web client or API
first.`,
	RunE: runProfile,
}

func init() {
	profileCmd.Flags().String("bio", "", "New bio")
	profileCmd.Flags().String("avatar-url", "", "New avatar URL")
	profileCmd.Flags().String("username", "", "New username")
}

func runProfile(cmd *cobra.Command, args []string) error {
	mgr, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	if mgr.Restore(context.Background()) != session.Authenticated {
		return fmt.Errorf("not logged in")
	}

	var patch model.UserPatch
	changed := false
	if cmd.Flags().Changed("bio") {
		v, _ := cmd.Flags().GetString("bio")
		patch.Bio = &v
		changed = true
	}
	if cmd.Flags().Changed("avatar-url") {
		v, _ := cmd.Flags().GetString("avatar-url")
		patch.AvatarURL = &v
		changed = true
	}
	if cmd.Flags().Changed("username") {
		v, _ := cmd.Flags().GetString("username")
		patch.Username = &v
		changed = true
	}

	if !changed {
		return fmt.Errorf("nothing to update; pass --bio, --avatar-url, or --username")
	}

	user, err := mgr.UpdateProfile(patch)
	if err != nil {
		return err
	}

	fmt.Printf("Profile updated for %s\n", user.Username)
	return nil
}
