package cars

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"parkly/internal/shared/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newTestRouter(userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID.String())
		c.Next()
	}
	SetupCarRoutes(r.Group("/api/v1"), NewController(NewService(newFakeRepo(), 5)), auth)
	return r
}

func TestAddCarHandler(t *testing.T) {
	router := newTestRouter(uuid.New())

	tests := []struct {
		name string
		body map[string]interface{}
		want int
	}{
		{
			name: "valid",
			body: map[string]interface{}{"make": "Honda", "model": "City", "year": 2020, "color": "White", "licensePlate": "mh12de1433"},
			want: http.StatusCreated,
		},
		{
			name: "missing plate",
			body: map[string]interface{}{"make": "Honda", "model": "City", "year": 2020, "color": "White"},
			want: http.StatusBadRequest,
		},
		{
			name: "year out of range",
			body: map[string]interface{}{"make": "Honda", "model": "City", "year": 1800, "color": "White", "licensePlate": "X1"},
			want: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, _ := json.Marshal(tt.body)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cars", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestDeleteCarHandlerRejectsBadID(t *testing.T) {
	router := newTestRouter(uuid.New())
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cars/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "error" {
		t.Errorf("envelope status = %v", body["status"])
	}
}
