package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sarchlab/vmsim/datarecording"
	"github.com/sarchlab/vmsim/mem/vm/pagefault"
)

var reportCmd = &cobra.Command{
	Use:   "report [recording.sqlite3]",
	Short: "Summarize the page faults of a recording made with run --record.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pid, _ := cmd.Flags().GetInt("pid")

		if _, err := os.Stat(args[0]); err != nil {
			fatalf("Error: %v", err)
		}

		reader := datarecording.NewReader(args[0])
		defer reader.Close()

		rows, err := pagefault.ReadFaults(context.Background(), reader, pid)
		if err != nil {
			fatalf("Error reading faults: %v", err)
		}

		printReport(os.Stdout, summarizeFaults(rows))
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.Flags().Int("pid", -1, "Only report this process")
}

type faultSummary struct {
	PID        int
	Faults     int
	Evictions  int
	WriteBacks int
	Failures   int
	LastError  string
}

func summarizeFaults(rows []pagefault.FaultRow) []faultSummary {
	byPID := map[int]*faultSummary{}

	for _, row := range rows {
		s, found := byPID[row.PID]
		if !found {
			s = &faultSummary{PID: row.PID}
			byPID[row.PID] = s
		}

		s.Faults++

		if row.Evicted {
			s.Evictions++
		}

		if row.WroteBack {
			s.WriteBacks++
		}

		if row.Error != "" {
			s.Failures++
			s.LastError = row.Error
		}
	}

	summaries := make([]faultSummary, 0, len(byPID))
	for _, s := range byPID {
		summaries = append(summaries, *s)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].PID < summaries[j].PID
	})

	return summaries
}

func printReport(w io.Writer, summaries []faultSummary) {
	fmt.Fprintln(w, "PID  FAULTS  EVICTIONS  WRITE-BACKS  FAILED")

	for _, s := range summaries {
		fmt.Fprintf(w, "%-4d %6d  %9d  %11d  %6d\n",
			s.PID, s.Faults, s.Evictions, s.WriteBacks, s.Failures)

		if s.LastError != "" {
			fmt.Fprintf(w, "     %s\n", s.LastError)
		}
	}
}
