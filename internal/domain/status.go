package domain

import "regexp"

type (
	// VehicleType represents the transport category of a worker's vehicle.
	VehicleType string
	// AccountStatus represents the state of a worker's platform account.
	AccountStatus string
	// WorkerState is the derived duty state used by list filters.
	WorkerState int
)

// List of possible vehicle types. A worker without a vehicle is on foot.
const (
	VehicleBicycle    VehicleType = "BICYCLE"
	VehicleCar        VehicleType = "CAR"
	VehicleMotorcycle VehicleType = "MOTORCYCLE"
	VehicleTruck      VehicleType = "TRUCK"
)

// List of account statuses assigned by the platform.
const (
	AccountInvited  AccountStatus = "INVITED"
	AccountAccepted AccountStatus = "ACCEPTED"
)

// List of worker states: off-duty, idle (on duty, no active task) and
// active (on duty with an active task).
const (
	StateOffDuty WorkerState = 0
	StateIdle    WorkerState = 1
	StateActive  WorkerState = 2
)

var allowedVehicleTypes = [...]VehicleType{
	VehicleBicycle, VehicleCar, VehicleMotorcycle, VehicleTruck,
}

// Valid checks if the VehicleType is valid
func (t VehicleType) Valid() bool {
	for _, v := range allowedVehicleTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Valid checks if the WorkerState is valid
func (s WorkerState) Valid() bool {
	return s >= StateOffDuty && s <= StateActive
}

// rePhone is a regex to validate E.164 phone numbers
var rePhone = regexp.MustCompile(`^\+[1-9][0-9]{6,14}$`)

// ValidatePhone validates the phone number format
func ValidatePhone(s string) bool {
	return rePhone.MatchString(s)
}
