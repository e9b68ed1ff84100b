package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"
)

// Output formats accepted by Write.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Write renders r in the given format.
func Write(w io.Writer, r *Report, format string) error {
	switch format {
	case FormatTable, "":
		return writeTable(w, r)
	case FormatCSV:
		return writeCSV(w, r)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	return fmt.Errorf("unknown output format %q", format)
}

func writeTable(w io.Writer, r *Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if title := Title(r.Criteria); title != "" {
		fmt.Fprintf(tw, "# %s\n", title)
	}
	fmt.Fprintln(tw, "exit time\tduration (h)\trate (µWh/s)\trate (W)")
	for _, p := range r.Points {
		fmt.Fprintf(tw, "%s\t%.2f\t%.3f\t%.3f\n",
			p.Time.Local().Format(time.DateTime), p.Duration.Hours(), p.DischargeRate, Watts(p.DischargeRate))
	}
	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "mean discharge rate (W):\t%.2f\n", Watts(r.Summary.MeanRate))
	if r.Summary.EstimatedLife > 0 {
		fmt.Fprintf(tw, "est. duration (days):\t%.1f\n", r.Summary.EstimatedLife.Hours()/24)
	}
	fmt.Fprintf(tw, "total time (h):\t%.1f\n", r.Summary.TotalSlept.Hours())
	fmt.Fprintf(tw, "total sessions:\t%d\n", r.Summary.Sessions)
	return tw.Flush()
}

func writeCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "duration_seconds", "discharge_rate", "watts"}); err != nil {
		return err
	}
	for _, p := range r.Points {
		row := []string{
			p.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Duration.Seconds(), 'f', 0, 64),
			strconv.FormatFloat(p.DischargeRate, 'g', -1, 64),
			strconv.FormatFloat(Watts(p.DischargeRate), 'f', 4, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
