package reservations

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type stubService struct {
	Service
	createErr error
	cancelErr error
	created   *CreateReservationRequest
}

func (s *stubService) CreateReservation(_ context.Context, ownerID uuid.UUID, req *CreateReservationRequest) (*Reservation, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	s.created = req
	return &Reservation{ID: uuid.New(), UserID: ownerID, Status: StatusPendingPayment, TotalAmount: 110}, nil
}

func (s *stubService) CancelReservation(_ context.Context, id, ownerID uuid.UUID) (*Reservation, error) {
	if s.cancelErr != nil {
		return nil, s.cancelErr
	}
	return &Reservation{ID: id, UserID: ownerID, Status: StatusCancelled}, nil
}

func (s *stubService) CalculateAmount(start, end time.Time) (*AmountQuote, error) {
	return &AmountQuote{Amount: 110, Hours: 2}, nil
}

func newTestRouter(svc Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uuid.NewString())
		c.Next()
	}
	SetupBookingRoutes(r.Group("/api/v1"), NewController(svc), auth)
	return r
}

func doJSON(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateBookingHandler(t *testing.T) {
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	valid := map[string]interface{}{
		"spaceId":   uuid.NewString(),
		"carId":     uuid.NewString(),
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(90 * time.Minute).Format(time.RFC3339),
	}
	backwards := map[string]interface{}{
		"spaceId":   uuid.NewString(),
		"carId":     uuid.NewString(),
		"startTime": start.Format(time.RFC3339),
		"endTime":   start.Add(-time.Hour).Format(time.RFC3339),
	}

	tests := []struct {
		name string
		body map[string]interface{}
		err  error
		want int
	}{
		{"created", valid, nil, http.StatusCreated},
		{"end before start", backwards, nil, http.StatusBadRequest},
		{"missing space", map[string]interface{}{"carId": uuid.NewString()}, nil, http.StatusBadRequest},
		{"slot taken", valid, apperrors.Conflict("Parking space is not available for the selected window"), http.StatusConflict},
		{"foreign car", valid, apperrors.NotFound("Car not found"), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, _ := json.Marshal(tt.body)
			rec := doJSON(newTestRouter(&stubService{createErr: tt.err}), http.MethodPost, "/api/v1/bookings", string(payload))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCreateBookingIgnoresClientAmountField(t *testing.T) {
	svc := &stubService{}
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	payload, _ := json.Marshal(map[string]interface{}{
		"spaceId":     uuid.NewString(),
		"carId":       uuid.NewString(),
		"startTime":   start.Format(time.RFC3339),
		"endTime":     start.Add(time.Hour).Format(time.RFC3339),
		"totalAmount": 1,
	})

	rec := doJSON(newTestRouter(svc), http.MethodPost, "/api/v1/bookings", string(payload))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Data struct {
			TotalAmount float64 `json:"total_amount"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.TotalAmount != 110 {
		t.Errorf("total_amount = %v, want the computed 110", body.Data.TotalAmount)
	}
}

func TestCancelBookingHandler(t *testing.T) {
	tests := []struct {
		name string
		path string
		err  error
		want int
	}{
		{"cancelled", "/api/v1/bookings/" + uuid.NewString() + "/cancel", nil, http.StatusOK},
		{"bad id", "/api/v1/bookings/nope/cancel", nil, http.StatusBadRequest},
		{"terminal", "/api/v1/bookings/" + uuid.NewString() + "/cancel", apperrors.InvalidState("Booking is already completed"), http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(newTestRouter(&stubService{cancelErr: tt.err}), http.MethodPost, tt.path, "")
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestCalculateAmountHandler(t *testing.T) {
	start := time.Date(2030, 1, 1, 10, 0, 0, 0, time.UTC)
	body := `{"startTime":"` + start.Format(time.RFC3339) + `","endTime":"` + start.Add(90*time.Minute).Format(time.RFC3339) + `"}`

	rec := doJSON(newTestRouter(&stubService{}), http.MethodPost, "/api/v1/bookings/calculate-amount", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"amount":110`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}
