package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"onfleet-workers-go/internal/apperr"
	"onfleet-workers-go/internal/metadata"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return ValidatePhone(fl.Field().String())
	})
	_ = v.RegisterValidation("vehicletype", func(fl validator.FieldLevel) bool {
		return VehicleType(fl.Field().String()).Valid()
	})
	return v
}

// ValidateStruct runs tag validation and reports violations as apperr.Invalid.
func ValidateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", apperr.Invalid, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", apperr.Invalid, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must contain at least %s item(s)", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "phone":
		return fmt.Sprintf("%s must be an E.164 phone number", field)
	case "vehicletype":
		return fmt.Sprintf("%s must be one of BICYCLE, CAR, MOTORCYCLE, TRUCK", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ValidateCreate validates a worker creation request.
func ValidateCreate(c *CreateWorker) error {
	if c == nil {
		return apperr.Invalid
	}
	if err := ValidateStruct(c); err != nil {
		return err
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", apperr.Invalid)
	}
	return nil
}

// ValidateUpdate validates a partial worker update.
func ValidateUpdate(u *PartialWorkerUpdate) error {
	if u == nil || u.Empty() {
		return fmt.Errorf("%w: update has no fields", apperr.Invalid)
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return fmt.Errorf("%w: name must not be blank", apperr.Invalid)
	}
	if u.Capacity != nil && *u.Capacity < 0 {
		return fmt.Errorf("%w: capacity must not be negative", apperr.Invalid)
	}
	if u.Teams != nil {
		if len(u.Teams) == 0 {
			return fmt.Errorf("%w: teams must not be empty", apperr.Invalid)
		}
		for _, t := range u.Teams {
			if strings.TrimSpace(t) == "" {
				return fmt.Errorf("%w: team id must not be blank", apperr.Invalid)
			}
		}
	}
	if u.Vehicle != nil {
		if err := ValidateStruct(u.Vehicle); err != nil {
			return err
		}
	}
	if u.Metadata != nil {
		if err := metadata.ValidateAll(*u.Metadata); err != nil {
			return err
		}
	}
	return nil
}

// ValidateTaskIDs checks a list of task ids to insert.
func ValidateTaskIDs(tasks []string) error {
	if len(tasks) == 0 {
		return fmt.Errorf("%w: tasks must not be empty", apperr.Invalid)
	}
	for _, t := range tasks {
		if strings.TrimSpace(t) == "" {
			return fmt.Errorf("%w: task id must not be blank", apperr.Invalid)
		}
	}
	return nil
}

// ValidateID checks a resource id.
func ValidateID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: id is required", apperr.Invalid)
	}
	return nil
}
