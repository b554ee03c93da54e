package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"
)

const (
	baseURL = "http://localhost:8080/api/v1"
	chatID  = 5 // running workspace chat used for live checks
)

type RunAnalyticsRequest struct {
	ChatIDs     []int64 `json:"chat_ids"`
	From        string  `json:"from"`
	To          string  `json:"to"`
	CompareFrom string  `json:"compare_from,omitempty"`
	CompareTo   string  `json:"compare_to,omitempty"`
}

type RunAnalyticsResponse struct {
	ReportID string `json:"report_id"`
	Cached   bool   `json:"cached"`
	Result   struct {
		EngagementRate float64 `json:"engagement_rate"`
		MessageStats   []struct {
			ID      int64   `json:"id"`
			Readers int     `json:"readers"`
			ER      float64 `json:"er"`
		} `json:"message_stats"`
		DaysStats []struct {
			Date string  `json:"date"`
			ER   float64 `json:"er"`
		} `json:"days_stats"`
		TopUsers []struct {
			UserID int64   `json:"user_id"`
			Score  float64 `json:"score"`
		} `json:"top_users"`
		Comparison *struct {
			EngagementRate float64 `json:"engagement_rate"`
		} `json:"comparison"`
	} `json:"result"`
}

// Helper function to run analytics over the last week
func runTestAnalytics(t *testing.T) RunAnalyticsResponse {
	t.Helper()

	now := time.Now()
	req := RunAnalyticsRequest{
		ChatIDs: []int64{chatID},
		From:    now.AddDate(0, 0, -7).Format("2006-01-02"),
		To:      now.Format("2006-01-02"),
	}

	body, _ := json.Marshal(req)
	resp, err := http.Post(baseURL+"/analytics", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("Failed to run analytics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(respBody))
	}

	var out RunAnalyticsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	return out
}

// TestAnalyticsRun tests POST /analytics
func TestAnalyticsRun(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	t.Run("run over last week", func(t *testing.T) {
		out := runTestAnalytics(t)

		if out.Result.EngagementRate < 0 || out.Result.EngagementRate > 100 {
			t.Errorf("Engagement rate %v outside [0,100]", out.Result.EngagementRate)
		}
		for _, st := range out.Result.MessageStats {
			if st.ER < 0 || st.ER > 100 {
				t.Errorf("Message %d ER %v outside [0,100]", st.ID, st.ER)
			}
		}
		for i := 1; i < len(out.Result.DaysStats); i++ {
			if out.Result.DaysStats[i].Date <= out.Result.DaysStats[i-1].Date {
				t.Errorf("Day series not sorted at %d", i)
			}
		}
		if len(out.Result.TopUsers) > 10 {
			t.Errorf("Expected at most 10 top users, got %d", len(out.Result.TopUsers))
		}

		t.Logf("Run finished: report=%s ER=%.2f messages=%d", out.ReportID, out.Result.EngagementRate, len(out.Result.MessageStats))
	})

	t.Run("second identical run is cached when redis is on", func(t *testing.T) {
		runTestAnalytics(t)
		second := runTestAnalytics(t)
		t.Logf("Second run cached=%v", second.Cached)
	})

	t.Run("run without chats fails", func(t *testing.T) {
		req := RunAnalyticsRequest{From: "2026-03-01", To: "2026-03-07"}
		body, _ := json.Marshal(req)
		resp, err := http.Post(baseURL+"/analytics", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("run with inverted range fails", func(t *testing.T) {
		req := RunAnalyticsRequest{ChatIDs: []int64{chatID}, From: "2026-03-07", To: "2026-03-01"}
		body, _ := json.Marshal(req)
		resp, err := http.Post(baseURL+"/analytics", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("run with comparison period", func(t *testing.T) {
		now := time.Now()
		req := RunAnalyticsRequest{
			ChatIDs:     []int64{chatID},
			From:        now.AddDate(0, 0, -7).Format("2006-01-02"),
			To:          now.Format("2006-01-02"),
			CompareFrom: now.AddDate(0, 0, -14).Format("2006-01-02"),
			CompareTo:   now.AddDate(0, 0, -8).Format("2006-01-02"),
		}
		body, _ := json.Marshal(req)
		resp, err := http.Post(baseURL+"/analytics", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("Failed to run comparison: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(respBody))
		}

		var out RunAnalyticsResponse
		json.NewDecoder(resp.Body).Decode(&out)
		if out.Result.Comparison == nil {
			t.Error("Expected comparison block in response")
		}

		t.Logf("Comparison run finished: report=%s", out.ReportID)
	})
}

// TestReports tests the /reports resources
func TestReports(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	t.Run("run then fetch report", func(t *testing.T) {
		out := runTestAnalytics(t)
		if out.ReportID == "" {
			t.Skip("run served from cache, no fresh report")
		}

		resp, err := http.Get(fmt.Sprintf("%s/reports/%s", baseURL, out.ReportID))
		if err != nil {
			t.Fatalf("Failed to get report: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(respBody))
		}

		t.Logf("Fetched report %s", out.ReportID)
	})

	t.Run("export report as workbook", func(t *testing.T) {
		out := runTestAnalytics(t)
		if out.ReportID == "" {
			t.Skip("run served from cache, no fresh report")
		}

		resp, err := http.Get(fmt.Sprintf("%s/reports/%s/export", baseURL, out.ReportID))
		if err != nil {
			t.Fatalf("Failed to export report: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", resp.StatusCode)
		}
		body, _ := io.ReadAll(resp.Body)
		if !bytes.HasPrefix(body, []byte("PK")) {
			t.Error("Export is not an xlsx archive")
		}

		t.Logf("Exported %d bytes", len(body))
	})

	t.Run("get non-existent report returns 404", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/reports/non-existent-id")
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", resp.StatusCode)
		}
	})
}

// TestChats tests GET /chats and GET /me
func TestChats(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	t.Run("list chats", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/chats")
		if err != nil {
			t.Fatalf("Failed to list chats: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			respBody, _ := io.ReadAll(resp.Body)
			t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(respBody))
		}

		var out struct {
			Chats []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"chats"`
		}
		json.NewDecoder(resp.Body).Decode(&out)

		t.Logf("Listed %d chats", len(out.Chats))
	})

	t.Run("token check", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/me")
		if err != nil {
			t.Fatalf("Failed to check token: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}
	})
}

// TestSchedules tests the /schedules resources
func TestSchedules(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}

	t.Run("create and delete schedule", func(t *testing.T) {
		req := map[string]interface{}{
			"name":             "e2e weekly",
			"chat_ids":         []int64{chatID},
			"window_days":      7,
			"interval_seconds": 3600,
		}
		body, _ := json.Marshal(req)
		resp, err := http.Post(baseURL+"/schedules", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("Failed to create schedule: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusCreated {
			respBody, _ := io.ReadAll(resp.Body)
			t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, string(respBody))
		}

		var schedule struct {
			ID string `json:"id"`
		}
		json.NewDecoder(resp.Body).Decode(&schedule)

		delReq, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf("%s/schedules/%s", baseURL, schedule.ID), nil)
		delResp, err := http.DefaultClient.Do(delReq)
		if err != nil {
			t.Fatalf("Failed to delete schedule: %v", err)
		}
		defer delResp.Body.Close()

		if delResp.StatusCode != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", delResp.StatusCode)
		}

		t.Logf("Created and removed schedule %s", schedule.ID)
	})

	t.Run("create without chats fails", func(t *testing.T) {
		req := map[string]interface{}{
			"name":             "bad",
			"window_days":      7,
			"interval_seconds": 3600,
		}
		body, _ := json.Marshal(req)
		resp, err := http.Post(baseURL+"/schedules", "application/json", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("Failed to make request: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", resp.StatusCode)
		}
	})
}
