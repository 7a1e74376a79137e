package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"bungalow-backend/config"
	"bungalow-backend/controllers"
	"bungalow-backend/middleware"
	"bungalow-backend/models"
	"bungalow-backend/routes"
	"bungalow-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testServer struct {
	router   http.Handler
	db       *gorm.DB
	sessions *middleware.SessionManager
	room     models.Room
	admin    string
	customer string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	rooms := services.NewRoomService(db)
	rates := services.NewSeasonalRateService(db, services.RateLargestDiscount)
	reservations := services.NewReservationService(db, rooms)
	reservations.Now = func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	availability := services.NewAvailabilityService(reservations, rooms, nil, 366)
	admins := services.NewAdminService(db)
	sessions := middleware.NewSessionManager("router-test", time.Hour)

	room, err := rooms.Create(services.RoomInput{Name: "Ocean View", Price: 10000, Capacity: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := admins.Create("Desk", "desk@bungalow.local", "s3cret", ""); err != nil {
		t.Fatal(err)
	}

	adminToken, _, _ := sessions.Issue(middleware.Session{UserID: 1, Email: "desk@bungalow.local", Role: middleware.RoleAdmin})
	customerToken, _, _ := sessions.Issue(middleware.Session{UserID: 42, Email: "guest@example.com", Role: middleware.RoleCustomer})

	router := routes.SetupRouter(routes.Handlers{
		Auth:         controllers.NewAuthController(admins, sessions),
		Reservations: controllers.NewReservationController(reservations),
		Calendar:     controllers.NewCalendarController(availability),
		Rooms:        controllers.NewRoomController(rooms, rates),
		Rates:        controllers.NewSeasonalRateController(rates),
	}, sessions, routes.Options{})

	return &testServer{
		router:   router,
		db:       db,
		sessions: sessions,
		room:     *room,
		admin:    adminToken,
		customer: customerToken,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	decode(t, w, &body)
	return body.Error.Code
}

func (s *testServer) book(t *testing.T, token, email, in, out string) map[string]interface{} {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/customers/reservations", token, map[string]interface{}{
		"bungalowName":  "ocean view",
		"checkInDate":   in,
		"checkOutDate":  out,
		"customerEmail": email,
		"customerName":  "Guest",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", w.Code, w.Body.String())
	}
	var r map[string]interface{}
	decode(t, w, &r)
	return r
}

func TestCustomerCreateAndList(t *testing.T) {
	s := newTestServer(t)

	r := s.book(t, s.customer, "guest@example.com", "2024-07-01", "2024-07-04")
	if r["status"] != "PENDING" || r["paymentStatus"] != "PENDING" {
		t.Errorf("new reservation = %v", r)
	}
	if r["checkInDate"] != "2024-07-01" || r["bungalowId"] != float64(s.room.ID) {
		t.Errorf("dates or bungalow = %v", r)
	}
	if r["customerId"] != float64(42) {
		t.Errorf("customerId = %v, want session user 42", r["customerId"])
	}

	w := s.do(t, http.MethodGet, "/api/customers/reservations?filter=upcoming", s.customer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var list []map[string]interface{}
	decode(t, w, &list)
	if len(list) != 1 {
		t.Errorf("upcoming = %d, want 1", len(list))
	}
}

func TestCustomerCreateRejects(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		token string
		body  map[string]interface{}
		want  int
		code  string
	}{
		{
			name:  "noSession",
			token: "",
			body:  map[string]interface{}{},
			want:  http.StatusUnauthorized,
			code:  "error.unauthorized",
		},
		{
			name:  "badDate",
			token: s.customer,
			body:  map[string]interface{}{"bungalowName": "Ocean View", "checkInDate": "01/07/2024", "checkOutDate": "2024-07-04", "customerEmail": "guest@example.com"},
			want:  http.StatusBadRequest,
			code:  "error.invalidPayload",
		},
		{
			name:  "otherCustomer",
			token: s.customer,
			body:  map[string]interface{}{"bungalowName": "Ocean View", "checkInDate": "2024-07-01", "checkOutDate": "2024-07-04", "customerEmail": "other@example.com"},
			want:  http.StatusForbidden,
			code:  "error.forbidden",
		},
		{
			name:  "reversedDates",
			token: s.customer,
			body:  map[string]interface{}{"bungalowName": "Ocean View", "checkInDate": "2024-07-04", "checkOutDate": "2024-07-01", "customerEmail": "guest@example.com"},
			want:  http.StatusBadRequest,
			code:  "error.validation",
		},
		{
			name:  "unknownBungalow",
			token: s.customer,
			body:  map[string]interface{}{"bungalowName": "Treehouse", "checkInDate": "2024-07-01", "checkOutDate": "2024-07-04", "customerEmail": "guest@example.com"},
			want:  http.StatusBadRequest,
			code:  "error.validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/customers/reservations", tt.token, tt.body)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (body %s)", w.Code, tt.want, w.Body.String())
			}
			if got := errorCode(t, w); got != tt.code {
				t.Errorf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestAdminTransitionsWithVersion(t *testing.T) {
	s := newTestServer(t)
	r := s.book(t, s.customer, "guest@example.com", "2024-07-01", "2024-07-04")
	id := int(r["id"].(float64))
	base := "/api/admin/reservations/" + itoa(id)

	w := s.do(t, http.MethodGet, base, s.admin, nil)
	if w.Code != http.StatusOK || w.Header().Get("ETag") != `"1"` {
		t.Fatalf("get status = %d etag = %q", w.Code, w.Header().Get("ETag"))
	}

	if w := s.do(t, http.MethodPut, base+"/approve", s.customer, nil); w.Code != http.StatusForbidden {
		t.Errorf("customer approve status = %d, want 403", w.Code)
	}

	w = s.do(t, http.MethodPut, base+"/approve", s.admin, nil, "If-Match", `"1"`)
	if w.Code != http.StatusOK {
		t.Fatalf("approve status = %d body %s", w.Code, w.Body.String())
	}
	if w.Header().Get("ETag") != `"2"` {
		t.Errorf("approve etag = %q, want \"2\"", w.Header().Get("ETag"))
	}

	w = s.do(t, http.MethodPut, base+"/mark-paid", s.admin, nil, "If-Match", `"1"`)
	if w.Code != http.StatusConflict || errorCode(t, w) != "error.conflict" {
		t.Errorf("stale mark-paid = %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPut, base+"/approve", s.admin, nil)
	if w.Code != http.StatusConflict || errorCode(t, w) != "error.invalidTransition" {
		t.Errorf("second approve = %d %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodPut, base+"/mark-paid", s.admin, nil, "If-Match", `W/"2"`)
	if w.Code != http.StatusOK {
		t.Fatalf("mark-paid status = %d body %s", w.Code, w.Body.String())
	}
	var paid map[string]interface{}
	decode(t, w, &paid)
	if paid["paymentStatus"] != "PAID" || paid["status"] != "CONFIRMED" {
		t.Errorf("after mark-paid = %v", paid)
	}

	w = s.do(t, http.MethodGet, base+"/events", s.admin, nil)
	var events []map[string]interface{}
	decode(t, w, &events)
	if len(events) != 3 {
		t.Errorf("events = %d, want create+approve+mark-paid", len(events))
	}

	if w := s.do(t, http.MethodPut, "/api/admin/reservations/999/cancel", s.admin, nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown id status = %d, want 404", w.Code)
	}
	if w := s.do(t, http.MethodPut, "/api/admin/reservations/abc/cancel", s.admin, nil); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestAdminApproveDoubleBooking(t *testing.T) {
	s := newTestServer(t)
	first := s.book(t, s.customer, "guest@example.com", "2024-07-01", "2024-07-04")
	second := s.book(t, s.admin, "other@example.com", "2024-07-03", "2024-07-05")

	if w := s.do(t, http.MethodPut, "/api/admin/reservations/"+itoa(int(first["id"].(float64)))+"/approve", s.admin, nil); w.Code != http.StatusOK {
		t.Fatalf("approve first = %d", w.Code)
	}
	w := s.do(t, http.MethodPut, "/api/admin/reservations/"+itoa(int(second["id"].(float64)))+"/approve", s.admin, nil)
	if w.Code != http.StatusConflict || errorCode(t, w) != "error.doubleBooking" {
		t.Errorf("overlapping approve = %d %s", w.Code, w.Body.String())
	}
}

func TestAdminListPaging(t *testing.T) {
	s := newTestServer(t)
	for _, in := range []string{"2024-07-01", "2024-07-10", "2024-07-20"} {
		s.book(t, s.admin, "guest@example.com", in, "2024-07-25")
	}

	w := s.do(t, http.MethodGet, "/api/admin/reservations?page=2&per_page=2", s.admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get("X-Total-Count") != "3" || w.Header().Get("X-Page") != "2" {
		t.Errorf("paging headers = %v", w.Header())
	}
	var list []map[string]interface{}
	decode(t, w, &list)
	if len(list) != 1 {
		t.Errorf("page 2 = %d items, want 1", len(list))
	}
}

func TestCalendarEndpoints(t *testing.T) {
	s := newTestServer(t)
	s.book(t, s.customer, "guest@example.com", "2024-07-01", "2024-07-03")

	w := s.do(t, http.MethodGet, "/api/admin/calendar?start=2024-06-30&end=2024-07-04", s.admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("range status = %d body %s", w.Code, w.Body.String())
	}
	var rng struct {
		Days []services.DayOccupancy `json:"days"`
	}
	decode(t, w, &rng)
	counts := []int{0, 1, 1, 1, 0}
	if len(rng.Days) != len(counts) {
		t.Fatalf("days = %d, want %d", len(rng.Days), len(counts))
	}
	for i, d := range rng.Days {
		if d.Count != counts[i] {
			t.Errorf("%s count = %d, want %d", d.Date, d.Count, counts[i])
		}
	}

	w = s.do(t, http.MethodGet, "/api/admin/calendar?month=2024-07", s.admin, nil)
	decode(t, w, &rng)
	if len(rng.Days) != 31 {
		t.Errorf("month days = %d, want 31", len(rng.Days))
	}

	if w := s.do(t, http.MethodGet, "/api/admin/calendar", s.admin, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing range status = %d, want 400", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/admin/calendar?start=2024-07-04&end=2024-07-01", s.admin, nil); w.Code != http.StatusBadRequest {
		t.Errorf("reversed range status = %d, want 400", w.Code)
	}

	w = s.do(t, http.MethodGet, "/api/admin/calendar/export?start=2024-07-01&end=2024-07-03", s.admin, nil)
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("export status = %d len = %d", w.Code, w.Body.Len())
	}
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="calendar_2024-07-01_to_2024-07-03.xlsx"` {
		t.Errorf("Content-Disposition = %q", got)
	}
}

func TestSeasonalRatesAndPricing(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/admin/seasonal_rates", s.admin, map[string]interface{}{
		"roomId":             s.room.ID,
		"startDate":          "2024-07-01",
		"endDate":            "2024-07-31",
		"discountPercentage": 20,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create rate status = %d body %s", w.Code, w.Body.String())
	}

	w = s.do(t, http.MethodGet, "/api/rooms/"+itoa(int(s.room.ID))+"/price?date=2024-07-10", "", nil)
	var quote services.PriceQuote
	decode(t, w, &quote)
	if quote.EffectivePrice != 8000 || quote.DiscountPercentage != 20 {
		t.Errorf("price = %+v, want 8000 at 20%%", quote)
	}

	w = s.do(t, http.MethodGet, "/api/rooms/"+itoa(int(s.room.ID))+"/price?date=2024-08-01", "", nil)
	decode(t, w, &quote)
	if quote.EffectivePrice != 10000 {
		t.Errorf("price outside rate = %v, want 10000", quote.EffectivePrice)
	}

	w = s.do(t, http.MethodGet, "/api/seasonal_rates/rooms/"+itoa(int(s.room.ID)), "", nil)
	var rates []map[string]interface{}
	decode(t, w, &rates)
	if len(rates) != 1 || rates[0]["startDate"] != "2024-07-01" {
		t.Errorf("rates = %v", rates)
	}

	w = s.do(t, http.MethodPost, "/api/admin/seasonal_rates", s.admin, map[string]interface{}{
		"roomId":             s.room.ID,
		"startDate":          "2024-07-01",
		"endDate":            "2024-07-31",
		"discountPercentage": 120,
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("out of range discount status = %d, want 400", w.Code)
	}

	if w := s.do(t, http.MethodPost, "/api/seasonal_rates", s.customer, map[string]interface{}{}); w.Code != http.StatusForbidden {
		t.Errorf("customer rate create status = %d, want 403", w.Code)
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "desk@bungalow.local", "password": "s3cret"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body %s", w.Code, w.Body.String())
	}
	var body struct {
		Token string `json:"token"`
	}
	decode(t, w, &body)

	w = s.do(t, http.MethodGet, "/api/auth/me", body.Token, nil)
	var me middleware.Session
	decode(t, w, &me)
	if me.Role != middleware.RoleAdmin || me.Email != "desk@bungalow.local" {
		t.Errorf("me = %+v", me)
	}

	w = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "desk@bungalow.local", "password": "wrong"})
	if w.Code != http.StatusUnauthorized || errorCode(t, w) != "error.invalidCredentials" {
		t.Errorf("bad login = %d %s", w.Code, w.Body.String())
	}
}

func itoa(n int) string { return strconv.Itoa(n) }
