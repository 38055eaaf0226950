package tui

import (
	"fmt"
	"strings"

	"github.com/opencurrents/currents-cli/internal/session"
)

// View renders the session status
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Currents Session"))
	b.WriteString("\n\n")

	state := m.mgr.State()

	if m.mgr.Loading() {
		b.WriteString(fmt.Sprintf("%s Restoring session...\n", m.spinner.View()))
		b.WriteString("\n" + HelpStyle.Render("q quit"))
		return b.String()
	}

	switch state {
	case session.Authenticated, session.RefreshingToken:
		user := m.mgr.User()
		if user == nil {
			break
		}
		b.WriteString(StateOKStyle.Render("● authenticated"))
		if state == session.RefreshingToken || m.refreshing {
			b.WriteString("  " + StatePendingStyle.Render(m.spinner.View()+" refreshing token"))
		}
		b.WriteString("\n\n")

		b.WriteString(LabelStyle.Render("User:  ") + fmt.Sprintf("%s <%s>\n", user.Username, user.Email))
		if user.Bio != "" {
			b.WriteString(LabelStyle.Render("Bio:   ") + user.Bio + "\n")
		}
		if len(user.Roles) > 0 {
			b.WriteString(LabelStyle.Render("Roles: ") + strings.Join(user.Roles, ", ") + "\n")
		}
		if len(user.Groups) > 0 {
			b.WriteString(LabelStyle.Render("Groups:") + "\n")
			for _, g := range user.Groups {
				b.WriteString(fmt.Sprintf("  %s %s\n", g.TimelineID, MutedStyle.Render("("+g.Role+")")))
			}
		}
		if user.IsRestricted {
			b.WriteString(StateErrorStyle.Render("Account restricted") + "\n")
		}
		if !m.lastRefresh.IsZero() {
			b.WriteString(MutedStyle.Render(fmt.Sprintf("Last manual refresh: %s\n", m.lastRefresh.Format("15:04:05"))))
		}

	default:
		b.WriteString(StateErrorStyle.Render("○ anonymous") + "\n\n")
		b.WriteString("Not logged in. Run 'currents login' to sign in.\n")
	}

	b.WriteString("\n" + HelpStyle.Render("r refresh • q quit"))
	return b.String()
}
