package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/opencurrents/currents-cli/internal/session"
	"github.com/opencurrents/currents-cli/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session state",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().Bool("watch", false, "Watch session state live")
}

func runStatus(cmd *cobra.Command, args []string) error {
	mgr, cleanup, err := openSession()
	if err != nil {
		return err
	}
	defer cleanup()

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		p := tea.NewProgram(tui.NewModel(mgr), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("failed to run status view: %w", err)
		}
		return nil
	}

	state := mgr.Restore(context.Background())
	mgr.WaitPassportSync()

	switch state {
	case session.Authenticated:
		user := mgr.User()
		fmt.Printf("Logged in as %s <%s>\n", user.Username, user.Email)
		if user.Bio != "" {
			fmt.Printf("Bio: %s\n", user.Bio)
		}
		if len(user.Roles) > 0 {
			fmt.Printf("Roles: %s\n", strings.Join(user.Roles, ", "))
		}
		if len(user.Groups) > 0 {
			fmt.Printf("Memberships (%d):\n", len(user.Groups))
			for _, g := range user.Groups {
				fmt.Printf("  %s (%s)\n", g.TimelineID, g.Role)
			}
		}
		if user.IsRestricted {
			fmt.Println("Account is restricted.")
		}
		access, refresh := mgr.TokenExpiries()
		if !access.IsZero() {
			fmt.Printf("Access token valid until %s\n", access.Local().Format("2006-01-02 15:04"))
		}
		if !refresh.IsZero() {
			fmt.Printf("Refresh token valid until %s\n", refresh.Local().Format("2006-01-02 15:04"))
		}
	default:
		fmt.Println("Not logged in. Run 'currents login' to sign in.")
	}
	return nil
}
