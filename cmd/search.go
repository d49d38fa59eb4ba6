package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search message history by meaning",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		if app.Index == nil {
			fmt.Fprintln(os.Stderr, "Error: search is disabled or unavailable")
			os.Exit(1)
		}

		query := strings.Join(args, " ")
		results, err := app.Index.Query(cmd.Context(), query, searchLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if len(results) == 0 {
			fmt.Println("no matches")
			return
		}

		for _, r := range results {
			snippet := r.Content
			if len(snippet) > 120 {
				snippet = snippet[:120] + "…"
			}
			fmt.Printf("%s [%s] %s\n",
				sessionMetaStyle.Render(shortID(r.SessionID)),
				r.Role,
				snippet,
			)
		}
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "maximum results")
	rootCmd.AddCommand(searchCmd)
}
