package domain

import "onfleet-workers-go/internal/metadata"

// Worker is a courier tracked by the logistics platform.
type Worker struct {
	ID               string           `json:"id"`
	TimeCreated      int64            `json:"timeCreated"`
	TimeLastModified int64            `json:"timeLastModified"`
	Organization     string           `json:"organization"`
	Name             string           `json:"name"`
	DisplayName      string           `json:"displayName"`
	Phone            string           `json:"phone"`
	ActiveTask       *string          `json:"activeTask"`
	Tasks            []string         `json:"tasks"`
	OnDuty           bool             `json:"onDuty"`
	TimeLastSeen     int64            `json:"timeLastSeen"`
	Capacity         float64          `json:"capacity"`
	UserData         UserData         `json:"userData"`
	AccountStatus    AccountStatus    `json:"accountStatus"`
	Metadata         []metadata.Entry `json:"metadata"`
	ImageURL         *string          `json:"imageUrl"`
	Teams            []string         `json:"teams"`
	DelayTime        *float64         `json:"delayTime"`
	Location         *Location        `json:"location"`
	Vehicle          *Vehicle         `json:"vehicle"`
}

// UserData is the device telemetry reported by the worker app.
type UserData struct {
	AppVersion        string  `json:"appVersion"`
	BatteryLevel      float64 `json:"batteryLevel"`
	DeviceDescription string  `json:"deviceDescription"`
	Platform          string  `json:"platform"`
}

// Vehicle describes how a worker travels.
type Vehicle struct {
	Type         VehicleType `json:"type" validate:"required,vehicletype"`
	Color        string      `json:"color,omitempty"`
	Description  string      `json:"description,omitempty"`
	LicensePlate string      `json:"licensePlate,omitempty"`
}

// State derives the duty state of the worker.
func (w *Worker) State() WorkerState {
	switch {
	case !w.OnDuty:
		return StateOffDuty
	case w.ActiveTask == nil:
		return StateIdle
	default:
		return StateActive
	}
}

// OnFoot reports whether the worker has no vehicle.
func (w *Worker) OnFoot() bool {
	return w.Vehicle == nil
}

// HasTeam reports whether the worker belongs to team.
func (w *Worker) HasTeam(team string) bool {
	for _, t := range w.Teams {
		if t == team {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the worker.
func (w *Worker) Clone() *Worker {
	if w == nil {
		return nil
	}
	cp := *w
	cp.Tasks = cloneStrings(w.Tasks)
	cp.Teams = cloneStrings(w.Teams)
	cp.Metadata = metadata.Clone(w.Metadata)
	if w.ActiveTask != nil {
		v := *w.ActiveTask
		cp.ActiveTask = &v
	}
	if w.ImageURL != nil {
		v := *w.ImageURL
		cp.ImageURL = &v
	}
	if w.DelayTime != nil {
		v := *w.DelayTime
		cp.DelayTime = &v
	}
	if w.Location != nil {
		v := *w.Location
		cp.Location = &v
	}
	if w.Vehicle != nil {
		v := *w.Vehicle
		cp.Vehicle = &v
	}
	return &cp
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	return append(make([]string, 0, len(src)), src...)
}
