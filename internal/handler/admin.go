package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/school-event-seating/internal/service"
	"github.com/iliyamo/school-event-seating/internal/utils"
)

// adminSubject is the subject of every admin token; there is a single
// shared admin PIN rather than individual accounts.
const adminSubject = "admin"

// AdminHandler bundles dependencies for the administrator endpoints.  All
// routes except Login sit behind AdminAuth and RequireRole(ADMIN).
type AdminHandler struct {
	Svc       *service.Service
	PINHash   string         // bcrypt hash of the admin PIN
	JWTSecret string         // secret used to sign admin tokens
	TokenTTL  time.Duration  // admin token lifetime
	OnChange  ChangeNotifier // called after writes that alter the chart
	Now       func() time.Time
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc *service.Service, pinHash, jwtSecret string, ttl time.Duration, onChange ChangeNotifier) *AdminHandler {
	if svc == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{
		Svc:       svc,
		PINHash:   pinHash,
		JWTSecret: jwtSecret,
		TokenTTL:  ttl,
		OnChange:  onChange,
		Now:       time.Now,
	}
}

// ----- DTOs -----

type loginReq struct {
	PIN string `json:"pin" validate:"required"`
}

type manualReq struct {
	ChildName  string `json:"child_name" validate:"required"`
	ChildClass string `json:"child_class" validate:"required,class"`
}

type updateReq struct {
	ChildName  string  `json:"child_name" validate:"required"`
	ChildClass string  `json:"child_class" validate:"required,class"`
	ParentName *string `json:"parent_name"`
}

// Login: verify the admin PIN and return a signed token.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if ok, err := bindBody(c, &req); !ok {
		return err
	}
	if !utils.VerifyPIN(h.PINHash, strings.TrimSpace(req.PIN)) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid pin"})
	}
	tok, err := utils.NewAdminToken(h.JWTSecret, adminSubject, h.TokenTTL, h.Now())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, tok)
}

// Chart handles GET /v1/admin/seats.  Unlike the public chart it names the
// child holding each seat.
func (h *AdminHandler) Chart(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	chart, err := h.Svc.Chart(ctx)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"seats": chart})
}

// ToggleBlock handles POST /v1/admin/seats/:id/toggle-block.
func (h *AdminHandler) ToggleBlock(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	seat, err := h.Svc.ToggleBlock(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	h.OnChange.notify(ctx)
	return c.JSON(http.StatusOK, seat)
}

// Participants handles GET /v1/admin/registrations?q=.
func (h *AdminHandler) Participants(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Svc.Participants(ctx, c.QueryParam("q"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// Add handles POST /v1/admin/registrations.  Manual entries may take any
// free seat, front rows included.
func (h *AdminHandler) Add(c echo.Context) error {
	var req manualReq
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	res, err := h.Svc.AddManual(ctx, req.ChildName, req.ChildClass)
	if err != nil {
		return writeError(c, err)
	}
	h.OnChange.notify(ctx)
	resp := allocationFrom(res)
	resp.ParentName = service.ManualParentName
	return c.JSON(http.StatusCreated, resp)
}

// Update handles PUT /v1/admin/registrations/:id.  Seats are kept.
func (h *AdminHandler) Update(c echo.Context) error {
	var req updateReq
	if ok, err := bindBody(c, &req); !ok {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	reg, err := h.Svc.UpdateRegistration(ctx, c.Param("id"), service.UpdateRequest{
		ChildName:  req.ChildName,
		ChildClass: req.ChildClass,
		ParentName: req.ParentName,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, reg)
}

// Delete handles DELETE /v1/admin/registrations/:id.  The registration's
// seats are released in the same transaction.
func (h *AdminHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	if err := h.Svc.RemoveRegistration(ctx, c.Param("id")); err != nil {
		return writeError(c, err)
	}
	h.OnChange.notify(ctx)
	return c.NoContent(http.StatusNoContent)
}
