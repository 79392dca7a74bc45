package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/service"
)

// SelfServiceParentName is recorded for sign ups made through the public
// form, which does not ask for a guardian name.
const SelfServiceParentName = "-"

// PublicHandler serves the parent-facing endpoints.  None of them require
// authentication.
type PublicHandler struct {
	Svc      *service.Service
	MinRow   string         // front-most row a public sign up may receive
	OnChange ChangeNotifier // called after a successful registration
}

// NewPublicHandler constructs a PublicHandler.  svc must be non-nil.
func NewPublicHandler(svc *service.Service, minRow string, onChange ChangeNotifier) *PublicHandler {
	if svc == nil {
		panic("nil service passed to NewPublicHandler")
	}
	return &PublicHandler{Svc: svc, MinRow: minRow, OnChange: onChange}
}

type registerReq struct {
	ChildName  string `json:"child_name" validate:"required"`
	ChildClass string `json:"child_class" validate:"required,class"`
}

// Register handles POST /v1/registrations.  It signs a child up and
// returns the ticket with the two allocated seats.
func (h *PublicHandler) Register(c echo.Context) error {
	var req registerReq
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.Allocate(ctx, service.AllocateRequest{
		ChildName:  req.ChildName,
		ChildClass: req.ChildClass,
		ParentName: SelfServiceParentName,
		MinRow:     h.MinRow,
	})
	if err != nil {
		return writeError(c, err)
	}
	h.OnChange.notify(ctx)
	return c.JSON(http.StatusCreated, allocationFrom(res))
}

// TicketByID handles GET /v1/tickets/:id.
func (h *PublicHandler) TicketByID(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	t, err := h.Svc.LookupByID(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ticketFrom(t))
}

// SearchTicket handles GET /v1/tickets?name=&class=.  The name may be any
// part of the child's name; the class must match exactly.
func (h *PublicHandler) SearchTicket(c echo.Context) error {
	name := strings.TrimSpace(c.QueryParam("name"))
	class := c.QueryParam("class")
	if name == "" || class == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "name and class are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	t, err := h.Svc.LookupByName(ctx, name, class)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, ticketFrom(t))
}

// Classes handles GET /v1/classes.
func (h *PublicHandler) Classes(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"classes": model.ClassLabels})
}

// Seats handles GET /v1/seats.  Occupancy is shown but not who holds a seat.
func (h *PublicHandler) Seats(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	chart, err := h.Svc.PublicChart(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": chart})
}
