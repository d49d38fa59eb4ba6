package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	sessionTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFD700"))
	sessionMetaStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A9A9A9"))
	currentMarkStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF87"))
)

// shortID abbreviates an id for display; ids are not guaranteed to be
// UUID length.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored chat sessions",
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		sessions := app.Store.Sessions()
		if len(sessions) == 0 {
			fmt.Println("no sessions yet")
			return
		}

		currentID := app.Store.CurrentSessionID()
		for _, sess := range sessions {
			title := sess.Title
			if title == "" {
				title = shortID(sess.ID)
			}

			mark := "  "
			if sess.ID == currentID {
				mark = currentMarkStyle.Render("* ")
			}

			fmt.Printf("%s%s %s\n",
				mark,
				sessionTitleStyle.Render(title),
				sessionMetaStyle.Render(fmt.Sprintf("(%s, %d messages, last used %s)",
					sess.Model, sess.Count(), sess.LastAccessedAt.Format("2006-01-02 15:04"))),
			)
		}
	},
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}
