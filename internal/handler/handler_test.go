package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/repository"
	"github.com/iliyamo/school-event-seating/internal/service"
	"github.com/iliyamo/school-event-seating/internal/utils"
)

const (
	testSecret = "handler-secret"
	testPIN    = "2468"
)

func chartSeats(rows string, perRow uint32) []model.Seat {
	var out []model.Seat
	for _, r := range rows {
		for n := uint32(1); n <= perRow; n++ {
			row := string(r)
			out = append(out, model.Seat{ID: row + strconv.FormatUint(uint64(n), 10), RowName: row, SeatNumber: n})
		}
	}
	return out
}

type HandlerSuite struct {
	suite.Suite
	e       *echo.Echo
	store   *repository.InMemoryStore
	changes int
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.store = repository.NewInMemoryStore()
	s.store.AddSeats(chartSeats("ADE", 2)...)
	s.changes = 0

	svc := service.New(s.store, service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	hash, err := utils.HashPIN(testPIN, bcrypt.MinCost)
	s.Require().NoError(err)
	notify := ChangeNotifier(func(context.Context) { s.changes++ })

	pub := NewPublicHandler(svc, "D", notify)
	adm := NewAdminHandler(svc, hash, testSecret, time.Hour, notify)

	e := echo.New()
	e.POST("/v1/registrations", pub.Register)
	e.GET("/v1/tickets", pub.SearchTicket)
	e.GET("/v1/tickets/:id", pub.TicketByID)
	e.GET("/v1/classes", pub.Classes)
	e.GET("/v1/seats", pub.Seats)
	e.POST("/v1/admin/login", adm.Login)
	e.GET("/v1/admin/seats", adm.Chart)
	e.POST("/v1/admin/seats/:id/toggle-block", adm.ToggleBlock)
	e.GET("/v1/admin/registrations", adm.Participants)
	e.POST("/v1/admin/registrations", adm.Add)
	e.PUT("/v1/admin/registrations/:id", adm.Update)
	e.DELETE("/v1/admin/registrations/:id", adm.Delete)
	s.e = e
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) decode(rec *httptest.ResponseRecorder, dst any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), dst), rec.Body.String())
}

func (s *HandlerSuite) register(name, class string) ticketResp {
	rec := s.do(http.MethodPost, "/v1/registrations",
		`{"child_name":"`+name+`","child_class":"`+class+`"}`)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var t ticketResp
	s.decode(rec, &t)
	return t
}

func (s *HandlerSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body map[string]string
	s.decode(rec, &body)
	return body["error"]
}

func (s *HandlerSuite) TestRegisterSkipsFrontRows() {
	t := s.register("Budi", "TK A1")
	s.NotEmpty(t.RegistrationID)
	s.Equal([]string{"D1", "D2"}, t.Seats)
	s.Equal(1, s.changes)
}

func (s *HandlerSuite) TestRegisterErrors() {
	s.register("Budi", "TK A1")

	rec := s.do(http.MethodPost, "/v1/registrations", `{"child_name":" budi ","child_class":"TK A1"}`)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("duplicate", s.errorCode(rec))

	rec = s.do(http.MethodPost, "/v1/registrations", `{"child_name":"Sari","child_class":"TK Z9"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("validation", s.errorCode(rec))

	rec = s.do(http.MethodPost, "/v1/registrations", `{"child_class":"TK A1"}`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "child_name is required")

	rec = s.do(http.MethodPost, "/v1/registrations", `{"child_name":`)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("invalid body", s.errorCode(rec))

	s.Equal(1, s.changes)
}

func (s *HandlerSuite) TestRegisterCapacity() {
	s.register("Ani", "TK A1")
	s.register("Banu", "TK A2")

	rec := s.do(http.MethodPost, "/v1/registrations", `{"child_name":"Citra","child_class":"TK A3"}`)
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("capacity", s.errorCode(rec))
}

func (s *HandlerSuite) TestTicketLookups() {
	t := s.register("Dewi Lestari", "TK B2")

	rec := s.do(http.MethodGet, "/v1/tickets/"+t.RegistrationID, "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var got ticketResp
	s.decode(rec, &got)
	s.Equal("Dewi Lestari", got.ChildName)
	s.Equal(SelfServiceParentName, got.ParentName)
	s.Equal([]string{"D1", "D2"}, got.Seats)
	s.NotNil(got.CreatedAt)

	rec = s.do(http.MethodGet, "/v1/tickets?name=LESTARI&class=TK+B2", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.decode(rec, &got)
	s.Equal(t.RegistrationID, got.RegistrationID)

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/v1/tickets?name=lestari&class=TK+B1", "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/v1/tickets/nope", "").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/v1/tickets?name=dewi", "").Code)
}

func (s *HandlerSuite) TestClasses() {
	rec := s.do(http.MethodGet, "/v1/classes", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var body struct {
		Classes []string `json:"classes"`
	}
	s.decode(rec, &body)
	s.Equal(model.ClassLabels, body.Classes)
}

func (s *HandlerSuite) TestPublicChartHidesHolders() {
	s.register("Eka", "KB B1")

	rec := s.do(http.MethodGet, "/v1/seats", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var body struct {
		Seats []struct {
			ID         string  `json:"id"`
			IsOccupied bool    `json:"is_occupied"`
			AssignedTo *string `json:"assigned_to"`
			Holder     any     `json:"holder"`
		} `json:"seats"`
	}
	s.decode(rec, &body)
	s.Len(body.Seats, 6)
	for _, seat := range body.Seats {
		s.Nil(seat.AssignedTo, seat.ID)
		s.Nil(seat.Holder, seat.ID)
	}
	s.True(body.Seats[2].IsOccupied)
	s.Equal("D1", body.Seats[2].ID)
}

func (s *HandlerSuite) TestAdminLogin() {
	rec := s.do(http.MethodPost, "/v1/admin/login", `{"pin":"`+testPIN+`"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	var tok utils.AdminToken
	s.decode(rec, &tok)
	claims, err := utils.ParseAdminToken(testSecret, tok.Token)
	s.Require().NoError(err)
	s.Equal(utils.RoleAdmin, claims.Role)

	s.Equal(http.StatusUnauthorized, s.do(http.MethodPost, "/v1/admin/login", `{"pin":"0000"}`).Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/v1/admin/login", `{}`).Code)
}

func (s *HandlerSuite) TestToggleBlock() {
	rec := s.do(http.MethodPost, "/v1/admin/seats/A1/toggle-block", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var seat model.Seat
	s.decode(rec, &seat)
	s.True(seat.IsBlocked)
	s.Equal(1, s.changes)

	s.Equal(http.StatusNotFound, s.do(http.MethodPost, "/v1/admin/seats/Z9/toggle-block", "").Code)

	s.register("Fajar", "TK A4")
	rec = s.do(http.MethodPost, "/v1/admin/seats/D1/toggle-block", "")
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("seat_occupied", s.errorCode(rec))
}

func (s *HandlerSuite) TestManualAddUsesFrontRows() {
	rec := s.do(http.MethodPost, "/v1/admin/registrations", `{"child_name":"Gita","child_class":"TK B3"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var t ticketResp
	s.decode(rec, &t)
	s.Equal([]string{"A1", "A2"}, t.Seats)
	s.Equal(service.ManualParentName, t.ParentName)

	rec = s.do(http.MethodGet, "/v1/admin/seats", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), `"child_name":"Gita"`)
}

func (s *HandlerSuite) TestUpdateAndDelete() {
	t := s.register("Hana", "TK A1")
	other := s.register("Indra", "TK A1")

	rec := s.do(http.MethodPut, "/v1/admin/registrations/"+t.RegistrationID,
		`{"child_name":"Hana Putri","child_class":"TK A2","parent_name":"Ibu Rina"}`)
	s.Require().Equal(http.StatusOK, rec.Code)
	var reg model.Registration
	s.decode(rec, &reg)
	s.Equal("Hana Putri", reg.ChildName)
	s.Equal("Ibu Rina", reg.ParentName)

	rec = s.do(http.MethodPut, "/v1/admin/registrations/"+other.RegistrationID,
		`{"child_name":"hana putri","child_class":"TK A2"}`)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodDelete, "/v1/admin/registrations/"+t.RegistrationID, "")
	s.Equal(http.StatusNoContent, rec.Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/v1/tickets/"+t.RegistrationID, "").Code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/v1/admin/registrations/"+t.RegistrationID, "").Code)

	// the freed seats go to the next sign up
	again := s.register("Joko", "TK A3")
	s.Equal([]string{"D1", "D2"}, again.Seats)
}

func (s *HandlerSuite) TestParticipants() {
	s.register("Kiki", "TK A1")
	s.register("Lala", "TK B1")

	rec := s.do(http.MethodGet, "/v1/admin/registrations?q=tk+b", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var list service.ParticipantList
	s.decode(rec, &list)
	s.Equal(2, list.Total)
	s.Equal(4, list.OccupiedSeats)
	s.Require().Len(list.Participants, 1)
	s.Equal("Lala", list.Participants[0].ChildName)
	s.Equal([]string{"E1", "E2"}, list.Participants[0].Seats)
}

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	e := echo.New()
	for _, tc := range []struct {
		name string
		db   Pinger
		code int
	}{
		{"no database", nil, http.StatusOK},
		{"database up", pinger{}, http.StatusOK},
		{"database down", pinger{err: errors.New("refused")}, http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/healthz", nil), rec)
			if err := Health(tc.db)(c); err != nil {
				t.Fatal(err)
			}
			if rec.Code != tc.code {
				t.Fatalf("status = %d, want %d", rec.Code, tc.code)
			}
		})
	}
}

func TestJSONName(t *testing.T) {
	for in, want := range map[string]string{"ChildName": "child_name", "ParentName": "parent_name", "pin": "pin"} {
		if got := jsonName(in); got != want {
			t.Errorf("jsonName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteErrorStatus(t *testing.T) {
	e := echo.New()
	for _, tc := range []struct {
		err  error
		code int
	}{
		{service.ErrValidation, http.StatusBadRequest},
		{service.ErrDuplicateRegistration, http.StatusConflict},
		{service.ErrCapacityExhausted, http.StatusConflict},
		{service.ErrSeatOccupied, http.StatusConflict},
		{service.ErrNotFound, http.StatusNotFound},
		{service.ErrPersistence, http.StatusInternalServerError},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
	} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		if err := writeError(c, tc.err); err != nil {
			t.Fatal(err)
		}
		if rec.Code != tc.code {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.code)
		}
	}
}

func TestNotifyOutlivesRequestDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()

	var (
		called bool
		live   error
		bound  bool
	)
	ChangeNotifier(func(nctx context.Context) {
		called = true
		live = nctx.Err()
		_, bound = nctx.Deadline()
	}).notify(ctx)

	if !called {
		t.Fatal("notifier not called")
	}
	if live != nil {
		t.Errorf("notifier got a finished context: %v", live)
	}
	if !bound {
		t.Error("notifier context has no deadline")
	}

	var nilNotifier ChangeNotifier
	nilNotifier.notify(ctx)
}
