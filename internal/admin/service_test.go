package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"parkly/internal/reconciliation"
	"parkly/internal/shared/apperrors"
	"parkly/internal/shared/middleware"
	"parkly/pkg/logger"

	"github.com/gin-gonic/gin"
)

type fakeReconciler struct {
	result reconciliation.SweepResult
	err    error
	runs   int
}

func (f *fakeReconciler) RunOnce(context.Context) (reconciliation.SweepResult, error) {
	f.runs++
	return f.result, f.err
}

func (f *fakeReconciler) Status() reconciliation.JobStatus {
	return reconciliation.JobStatus{Enabled: true, Interval: "1m0s", TotalRuns: int64(f.runs)}
}

func writeLog(t *testing.T, dir, channel string, lines []string) {
	t.Helper()
	body := strings.Join(lines, "\n") + "\n"
	if err := os.WriteFile(logger.FilePath(dir, channel), []byte(body), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
}

func TestLogsNewestFirst(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, logger.ChannelJobs, []string{
		`{"level":"INFO","msg":"Sweep Completed","sweep":"expire_holds"}`,
		`panic: runtime error`,
		`{"level":"INFO","msg":"Sweep Completed","sweep":"close_finished"}`,
	})
	svc := NewService(&fakeReconciler{}, dir, logger.NewNop())

	page, err := svc.Logs(logger.ChannelJobs)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if page.Count != 3 {
		t.Fatalf("count = %d", page.Count)
	}
	if page.Entries[0]["sweep"] != "close_finished" {
		t.Errorf("first entry = %v", page.Entries[0])
	}
	if page.Entries[1]["message"] != "panic: runtime error" {
		t.Errorf("plain line = %v", page.Entries[1])
	}
	if page.Entries[2]["sweep"] != "expire_holds" {
		t.Errorf("last entry = %v", page.Entries[2])
	}
}

func TestLogsKeepsLastHundred(t *testing.T) {
	dir := t.TempDir()
	lines := make([]string, 250)
	for i := range lines {
		lines[i] = fmt.Sprintf(`{"seq":%d}`, i)
	}
	writeLog(t, dir, logger.ChannelWebsite, lines)
	svc := NewService(&fakeReconciler{}, dir, logger.NewNop())

	page, err := svc.Logs(logger.ChannelWebsite)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if page.Count != 100 {
		t.Fatalf("count = %d", page.Count)
	}
	// JSON numbers decode as float64
	if page.Entries[0]["seq"] != float64(249) || page.Entries[99]["seq"] != float64(150) {
		t.Errorf("window = %v .. %v", page.Entries[0], page.Entries[99])
	}
}

func TestLogsMissingFileIsEmpty(t *testing.T) {
	svc := NewService(&fakeReconciler{}, t.TempDir(), logger.NewNop())
	page, err := svc.Logs(logger.ChannelWebsite)
	if err != nil {
		t.Fatalf("Logs: %v", err)
	}
	if page.Count != 0 || page.Entries == nil {
		t.Errorf("page = %+v", page)
	}

	if _, err := svc.Logs("secrets"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("unknown channel error = %v", err)
	}
}

func TestCleanup(t *testing.T) {
	rec := &fakeReconciler{result: reconciliation.SweepResult{ExpiredHolds: 2, CompletedSessions: 1}}
	svc := NewService(rec, t.TempDir(), logger.NewNop())

	result, err := svc.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if result.Total() != 3 || rec.runs != 1 {
		t.Errorf("result = %+v runs %d", result, rec.runs)
	}

	rec.err = errors.New("expire_holds: connection refused")
	if _, err := svc.Cleanup(context.Background()); !errors.Is(err, apperrors.ErrInternal) {
		t.Errorf("failed pass error = %v", err)
	}
}

func TestAdminRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()
	svc := NewService(&fakeReconciler{}, dir, logger.NewNop())

	newRouter := func(role string) *gin.Engine {
		r := gin.New()
		auth := func(c *gin.Context) {
			c.Set(middleware.ContextUserRole, role)
			c.Next()
		}
		SetupAdminRoutes(r.Group("/api/v1"), NewController(svc), auth)
		return r
	}

	tests := []struct {
		name   string
		role   string
		method string
		path   string
		want   int
	}{
		{"cleanup", middleware.RoleAdmin, http.MethodPost, "/api/v1/admin/cleanup", http.StatusOK},
		{"job status", middleware.RoleAdmin, http.MethodGet, "/api/v1/admin/job-status", http.StatusOK},
		{"website logs", middleware.RoleAdmin, http.MethodGet, "/api/v1/admin/logs/website", http.StatusOK},
		{"jobs logs", middleware.RoleAdmin, http.MethodGet, "/api/v1/admin/logs/jobs", http.StatusOK},
		{"scanner cannot clean up", middleware.RoleScanner, http.MethodPost, "/api/v1/admin/cleanup", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newRouter(tt.role).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	rec := httptest.NewRecorder()
	newRouter(middleware.RoleAdmin).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/logs/jobs", nil))
	var body struct {
		Data LogPage `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Channel != logger.ChannelJobs || body.Data.Entries == nil || len(body.Data.Entries) != 0 {
		t.Errorf("body = %s", rec.Body.String())
	}
}
