package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"onfleet-workers-go/internal/domain"
)

func stateName(s domain.WorkerState) string {
	switch s {
	case domain.StateOffDuty:
		return "off-duty"
	case domain.StateIdle:
		return "idle"
	case domain.StateActive:
		return "active"
	}
	return fmt.Sprint(int(s))
}

func (g *globals) printWorkers(list []domain.Worker) error {
	if g.outputJSON {
		if list == nil {
			list = []domain.Worker{}
		}
		return g.printJSON(list)
	}
	w := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPHONE\tSTATE\tTASKS\tTEAMS")
	for i := range list {
		wk := &list[i]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			wk.ID, wk.Name, wk.Phone, stateName(wk.State()), len(wk.Tasks), strings.Join(wk.Teams, ","))
	}
	return w.Flush()
}

func (g *globals) printWorker(wk *domain.Worker) error {
	if g.outputJSON {
		return g.printJSON(wk)
	}
	w := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%s\n", wk.ID)
	fmt.Fprintf(w, "Name:\t%s\n", wk.Name)
	fmt.Fprintf(w, "Phone:\t%s\n", wk.Phone)
	fmt.Fprintf(w, "State:\t%s\n", stateName(wk.State()))
	fmt.Fprintf(w, "Account:\t%s\n", wk.AccountStatus)
	fmt.Fprintf(w, "Teams:\t%s\n", strings.Join(wk.Teams, ","))
	fmt.Fprintf(w, "Tasks:\t%s\n", strings.Join(wk.Tasks, ","))
	fmt.Fprintf(w, "Capacity:\t%g\n", wk.Capacity)
	if wk.Vehicle != nil {
		fmt.Fprintf(w, "Vehicle:\t%s\n", wk.Vehicle.Type)
	}
	if wk.Location != nil {
		fmt.Fprintf(w, "Location:\t%g,%g\n", wk.Location.Longitude, wk.Location.Latitude)
	}
	return w.Flush()
}

func (g *globals) printSchedule(entries []domain.WorkerSchedule) error {
	if g.outputJSON {
		if entries == nil {
			entries = []domain.WorkerSchedule{}
		}
		return g.printJSON(entries)
	}
	w := tabwriter.NewWriter(g.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTIMEZONE\tSHIFTS")
	for _, e := range entries {
		shifts := make([]string, 0, len(e.Shifts))
		for _, s := range e.Shifts {
			start, end := s.Bounds()
			shifts = append(shifts, start.UTC().Format(time.RFC3339)+"/"+end.UTC().Format(time.RFC3339))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.Date, e.Timezone, strings.Join(shifts, " "))
	}
	return w.Flush()
}
