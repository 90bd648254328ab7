package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"onfleet-workers-go/internal/domain"
	"onfleet-workers-go/internal/metadata"
)

type vehicleFlags struct {
	typ, color, description, plate string
}

func (v *vehicleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&v.typ, "vehicle", "", "Vehicle type: BICYCLE, CAR, MOTORCYCLE or TRUCK")
	cmd.Flags().StringVar(&v.color, "vehicle-color", "", "Vehicle color")
	cmd.Flags().StringVar(&v.description, "vehicle-description", "", "Vehicle description")
	cmd.Flags().StringVar(&v.plate, "vehicle-plate", "", "Vehicle license plate")
}

func (v *vehicleFlags) build() *domain.Vehicle {
	if v.typ == "" {
		return nil
	}
	return &domain.Vehicle{
		Type:         domain.VehicleType(v.typ),
		Color:        v.color,
		Description:  v.description,
		LicensePlate: v.plate,
	}
}

func newCreateCmd(g *globals) *cobra.Command {
	var (
		req      domain.CreateWorker
		teams    []string
		capacity float64
		vehicle  vehicleFlags
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Teams = domain.TeamIDs(teams...)
			req.Vehicle = vehicle.build()
			if cmd.Flags().Changed("capacity") {
				req.Capacity = &capacity
			}
			w, err := g.api.Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			return g.printWorker(w)
		},
	}
	cmd.Flags().StringVar(&req.Name, "name", "", "Worker name")
	cmd.Flags().StringVar(&req.Phone, "phone", "", "Phone number in E.164 format")
	cmd.Flags().StringVar(&req.DisplayName, "display-name", "", "Name shown to recipients")
	cmd.Flags().StringSliceVar(&teams, "team", nil, "Team id (repeatable)")
	cmd.Flags().Float64Var(&capacity, "capacity", 0, "Vehicle capacity")
	vehicle.register(cmd)
	return cmd
}

type queryFlags struct {
	filter, phones, teams []string
	states                []int
}

func (q *queryFlags) register(cmd *cobra.Command, selectors bool) {
	cmd.Flags().StringSliceVar(&q.filter, "filter", nil, "Fields to return")
	if !selectors {
		return
	}
	cmd.Flags().StringSliceVar(&q.phones, "phone", nil, "Only workers with these phones")
	cmd.Flags().StringSliceVar(&q.teams, "team", nil, "Only workers in these teams")
	cmd.Flags().IntSliceVar(&q.states, "state", nil, "Only workers in these states (0 off-duty, 1 idle, 2 active)")
}

func (q *queryFlags) build() *domain.WorkerQuery {
	if len(q.filter)+len(q.phones)+len(q.teams)+len(q.states) == 0 {
		return nil
	}
	out := &domain.WorkerQuery{Filter: q.filter, Phones: q.phones, Teams: q.teams}
	for _, s := range q.states {
		out.States = append(out.States, domain.WorkerState(s))
	}
	return out
}

func newGetCmd(g *globals) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.api.Get(cmd.Context(), args[0], q.build())
			if err != nil {
				return err
			}
			return g.printWorker(w)
		},
	}
	q.register(cmd, false)
	return cmd
}

func newListCmd(g *globals) *cobra.Command {
	var q queryFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := g.api.List(cmd.Context(), q.build())
			if err != nil {
				return err
			}
			return g.printWorkers(list)
		},
	}
	q.register(cmd, true)
	return cmd
}

func newNearCmd(g *globals) *cobra.Command {
	var (
		q      domain.LocationQuery
		radius float64
	)
	cmd := &cobra.Command{
		Use:   "near",
		Short: "List workers around a point",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("radius") {
				q.Radius = &radius
			}
			list, err := g.api.GetByLocation(cmd.Context(), q)
			if err != nil {
				return err
			}
			return g.printWorkers(list)
		},
	}
	cmd.Flags().Float64Var(&q.Longitude, "lng", 0, "Longitude")
	cmd.Flags().Float64Var(&q.Latitude, "lat", 0, "Latitude")
	cmd.Flags().Float64Var(&radius, "radius", domain.DefaultRadius, "Radius in metres")
	_ = cmd.MarkFlagRequired("lng")
	_ = cmd.MarkFlagRequired("lat")
	return cmd
}

func newUpdateCmd(g *globals) *cobra.Command {
	var (
		name, displayName, meta string
		capacity                float64
		teams                   []string
		vehicle                 vehicleFlags
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a worker; only the given flags are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var u domain.PartialWorkerUpdate
			f := cmd.Flags()
			if f.Changed("name") {
				u.Name = &name
			}
			if f.Changed("display-name") {
				u.DisplayName = &displayName
			}
			if f.Changed("capacity") {
				u.Capacity = &capacity
			}
			if f.Changed("team") {
				u.Teams = domain.TeamIDs(teams...)
			}
			u.Vehicle = vehicle.build()
			if f.Changed("metadata") {
				var entries []metadata.Entry
				if err := json.Unmarshal([]byte(meta), &entries); err != nil {
					return fmt.Errorf("--metadata: %w", err)
				}
				u.Metadata = &entries
			}
			w, err := g.api.Update(cmd.Context(), args[0], u)
			if err != nil {
				return err
			}
			return g.printWorker(w)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Worker name")
	cmd.Flags().StringVar(&displayName, "display-name", "", "Name shown to recipients")
	cmd.Flags().Float64Var(&capacity, "capacity", 0, "Vehicle capacity")
	cmd.Flags().StringSliceVar(&teams, "team", nil, "Replace teams (repeatable)")
	cmd.Flags().StringVar(&meta, "metadata", "", "Replace metadata with this JSON array")
	vehicle.register(cmd)
	return cmd
}

func newDeleteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a worker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := g.api.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(g.out, "Worker %s deleted\n", args[0])
			return nil
		},
	}
}

func newScheduleCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Read or replace a worker schedule",
	}

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show the schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := g.api.GetSchedule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return g.printSchedule(entries)
		},
	}

	var (
		s          domain.WorkerSchedule
		start, end string
	)
	set := &cobra.Command{
		Use:   "set <id>",
		Short: "Replace the schedule with one shift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse(time.RFC3339, start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to, err := time.Parse(time.RFC3339, end)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			s.Shifts = []domain.Shift{domain.NewShift(from, to)}
			entries, err := g.api.SetSchedule(cmd.Context(), args[0], s)
			if err != nil {
				return err
			}
			return g.printSchedule(entries)
		},
	}
	set.Flags().StringVar(&s.Date, "date", "", "Day in YYYY-MM-DD")
	set.Flags().StringVar(&s.Timezone, "timezone", "UTC", "IANA timezone")
	set.Flags().StringVar(&start, "start", "", "Shift start, RFC 3339")
	set.Flags().StringVar(&end, "end", "", "Shift end, RFC 3339")
	for _, name := range []string{"date", "start", "end"} {
		_ = set.MarkFlagRequired(name)
	}

	cmd.AddCommand(get, set)
	return cmd
}

func newInsertTasksCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "insert-tasks <worker-id> <task-id>...",
		Short: "Append tasks to a worker's queue",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := g.api.InsertTask(cmd.Context(), args[0], args[1:])
			if err != nil {
				return err
			}
			return g.printWorker(w)
		},
	}
}

func newMatchMetadataCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "match-metadata <json-array>",
		Short:   "List workers whose metadata matches every given entry",
		Example: `  workersctl match-metadata '[{"name":"shift","type":"string","value":"night"}]'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f metadata.Filter
			if err := json.Unmarshal([]byte(args[0]), &f); err != nil {
				return fmt.Errorf("metadata filter: %w", err)
			}
			list, err := g.api.MatchMetadata(cmd.Context(), f)
			if err != nil {
				return err
			}
			return g.printWorkers(list)
		},
	}
}
