package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rtzll/tldl/internal"
)

// historyCmd lists previously processed recordings
var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List recently processed recordings",
	Example: `  # Last 20 jobs
  tldl history

  # Last 5 jobs as JSON
  tldl history -n 5 --json

  # Sources and artifact paths of one job
  tldl history 3f2c9a0e7b1d4c6e8a5f0b2d4e6c8a1f`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := internal.NewApp(config)
		if err != nil {
			return err
		}
		defer app.Close()

		asJSON, _ := cmd.Flags().GetBool("json")

		if len(args) == 1 {
			job, err := app.Job(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(job, true)
			}
			printJob(job)
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		jobs, err := app.Jobs(cmd.Context(), limit)
		if err != nil {
			return err
		}

		if asJSON {
			return printJSON(jobs, true)
		}

		if len(jobs) == 0 {
			fmt.Println("No recordings processed yet")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tKIND\tWHEN\tTITLE")
		for _, job := range jobs {
			title := job.Title
			if title == "" {
				title = job.Source
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", job.ID, job.Kind, job.CreatedAt.Format("2006-01-02 15:04"), title)
		}
		return w.Flush()
	},
}

func printJob(job *internal.Job) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", job.ID)
	fmt.Fprintf(w, "Kind:\t%s\n", job.Kind)
	if job.Title != "" {
		fmt.Fprintf(w, "Title:\t%s\n", job.Title)
	}
	fmt.Fprintf(w, "Source:\t%s\n", job.Source)
	fmt.Fprintf(w, "Processed:\t%s\n", job.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Audio:\t%s\n", job.AudioPath)
	fmt.Fprintf(w, "Transcript:\t%s\n", job.TranscriptPath)
	fmt.Fprintf(w, "Summary:\t%s\n", job.SummaryPath)
	fmt.Fprintf(w, "Bullets:\t%s\n", job.BulletsPath)
	w.Flush()
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of jobs to show")
	historyCmd.Flags().Bool("json", false, "Print jobs as JSON")
	rootCmd.AddCommand(historyCmd)
}
