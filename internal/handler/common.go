package handler // handler defines http handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/service"
)

const (
	// requestTimeout bounds the store work done for a single request.
	requestTimeout = 5 * time.Second
	// notifyTimeout bounds a change notification.
	notifyTimeout = 2 * time.Second
)

// validate checks request bodies.  The "class" tag accepts only the
// configured class labels.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("class", func(fl validator.FieldLevel) bool {
		return model.IsValidClass(fl.Field().String())
	})
	return v
}

// ChangeNotifier is called after a write that alters the seating chart.
type ChangeNotifier func(ctx context.Context)

// notify runs n on a context detached from ctx's cancellation, so a write
// that used up the request deadline still gets its notification.
func (n ChangeNotifier) notify(ctx context.Context) {
	if n == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	n(ctx)
}

// bindBody decodes the JSON body into dst and runs the struct validator.
// On failure the 400 response has already been written and ok is false.
func bindBody(c echo.Context, dst any) (ok bool, err error) {
	if err := c.Bind(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if err := validate.Struct(dst); err != nil {
		return false, c.JSON(http.StatusBadRequest, echo.Map{
			"error":   "validation",
			"message": fieldMessage(err),
		})
	}
	return true, nil
}

// fieldMessage turns validator errors into "child_name is required" style
// text.
func fieldMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := jsonName(fe.Field())
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "class":
			parts = append(parts, field+" is not a known class")
		default:
			parts = append(parts, field+" is invalid")
		}
	}
	return strings.Join(parts, "; ")
}

// jsonName converts a Go field name like ChildName to child_name.
func jsonName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// writeError maps a service error to its HTTP status.  The body carries a
// stable machine code and a message safe to show to parents.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrDuplicateRegistration),
		errors.Is(err, service.ErrCapacityExhausted),
		errors.Is(err, service.ErrSeatOccupied):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{"error": service.Reason(err), "message": service.Message(err)})
}

// ticketResp is the printable ticket returned to parents and admins.
type ticketResp struct {
	RegistrationID string     `json:"registration_id"`
	ParentName     string     `json:"parent_name,omitempty"`
	ChildName      string     `json:"child_name"`
	ChildClass     string     `json:"child_class"`
	Seats          []string   `json:"seats"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

func labels(seats []model.Seat) []string {
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		out = append(out, s.Label())
	}
	return out
}

func ticketFrom(t service.Ticket) ticketResp {
	created := t.Registration.CreatedAt
	return ticketResp{
		RegistrationID: t.Registration.ID,
		ParentName:     t.Registration.ParentName,
		ChildName:      t.Registration.ChildName,
		ChildClass:     t.Registration.ChildClass,
		Seats:          labels(t.Seats),
		CreatedAt:      &created,
	}
}

func allocationFrom(r service.AllocationResult) ticketResp {
	return ticketResp{
		RegistrationID: r.RegistrationID,
		ChildName:      r.ChildName,
		ChildClass:     r.ChildClass,
		Seats:          r.Labels(),
	}
}
