package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
	"github.com/maksim/chatpulse/internal/domain/analytics/policy"
)

type fakeAnalyticsPolicy struct {
	out *policy.RunAnalyticsOutput
	err error

	lastRun     *policy.RunAnalyticsInput
	lastCompare *policy.CompareInput
}

func (f *fakeAnalyticsPolicy) RunAnalytics(_ context.Context, in policy.RunAnalyticsInput) (*policy.RunAnalyticsOutput, error) {
	f.lastRun = &in
	return f.out, f.err
}

func (f *fakeAnalyticsPolicy) RunForMessages(context.Context, policy.RunForMessagesInput) (*policy.RunAnalyticsOutput, error) {
	return f.out, f.err
}

func (f *fakeAnalyticsPolicy) Compare(_ context.Context, in policy.CompareInput) (*policy.RunAnalyticsOutput, error) {
	f.lastCompare = &in
	return f.out, f.err
}

func serveAnalytics(p AnalyticsPolicy, method, path, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewAnalyticsHandler(p).RegisterRoutes(r)
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRunEndpoint(t *testing.T) {
	fake := &fakeAnalyticsPolicy{out: &policy.RunAnalyticsOutput{
		ReportID: "r-1",
		Result:   &entity.AnalyticsResult{EngagementRate: 42},
	}}

	rec := serveAnalytics(fake, http.MethodPost, "/analytics",
		`{"chat_ids":[5],"from":"2026-03-01","to":"2026-03-07"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp RunResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.ReportID != "r-1" || resp.Result.EngagementRate != 42 {
		t.Errorf("unexpected response: %+v", resp)
	}

	// Dates expand to whole days.
	if fake.lastRun == nil {
		t.Fatal("policy not invoked")
	}
	if h := fake.lastRun.DateRange.To.Hour(); h != 23 {
		t.Errorf("range end hour = %d, want 23", h)
	}
}

func TestRunEndpointComparePath(t *testing.T) {
	fake := &fakeAnalyticsPolicy{out: &policy.RunAnalyticsOutput{
		Result: &entity.AnalyticsResult{Comparison: &entity.Comparison{}},
	}}

	rec := serveAnalytics(fake, http.MethodPost, "/analytics",
		`{"chat_ids":[5],"from":"2026-03-08","to":"2026-03-14","compare_from":"2026-03-01","compare_to":"2026-03-07"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if fake.lastCompare == nil {
		t.Fatal("compare path not taken")
	}
}

func TestRunEndpointBadInput(t *testing.T) {
	fake := &fakeAnalyticsPolicy{}

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{`},
		{"missing dates", `{"chat_ids":[5]}`},
		{"garbage date", `{"chat_ids":[5],"from":"tomorrow","to":"2026-03-07"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serveAnalytics(fake, http.MethodPost, "/analytics", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{entity.ErrNoChats, http.StatusBadRequest},
		{entity.ErrInvalidDateRange, http.StatusBadRequest},
		{entity.ErrReportNotFound, http.StatusNotFound},
		{entity.ErrUnauthorized, http.StatusUnauthorized},
		{entity.ErrUpstreamUnavailable, http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		fake := &fakeAnalyticsPolicy{err: tt.err}
		rec := serveAnalytics(fake, http.MethodPost, "/analytics",
			`{"chat_ids":[5],"from":"2026-03-01","to":"2026-03-07"}`)
		if rec.Code != tt.want {
			t.Errorf("%v mapped to %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}
