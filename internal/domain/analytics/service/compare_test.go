package service

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

func TestCompare(t *testing.T) {
	current := entity.Metrics{
		TotalMessages:         30,
		TotalReads:            100,
		TotalReactions:        0,
		TotalThreadMessages:   5,
		MessagesWithReactions: 0,
		EngagementRate:        45,
	}
	previous := entity.Metrics{
		TotalMessages:         20,
		TotalReads:            200,
		TotalReactions:        0,
		TotalThreadMessages:   0,
		MessagesWithReactions: 0,
		EngagementRate:        0,
	}

	percentage, absolute := Compare(current, previous)

	wantPct := map[string]float64{
		entity.MetricTotalMessages:         50,
		entity.MetricTotalReads:            -50,
		entity.MetricTotalReactions:        0,   // 0 -> 0 stays flat
		entity.MetricTotalThreadMessages:   100, // growth from zero
		entity.MetricMessagesWithReactions: 0,
		entity.MetricEngagementRate:        100,
	}
	if diff := cmp.Diff(wantPct, percentage, cmpopts.EquateApprox(0, 0.001)); diff != "" {
		t.Errorf("percentage differences mismatch (-want +got):\n%s", diff)
	}

	wantAbs := map[string]float64{
		entity.MetricTotalMessages:         10,
		entity.MetricTotalReads:            -100,
		entity.MetricTotalReactions:        0,
		entity.MetricTotalThreadMessages:   5,
		entity.MetricMessagesWithReactions: 0,
		entity.MetricEngagementRate:        45,
	}
	if diff := cmp.Diff(wantAbs, absolute, cmpopts.EquateApprox(0, 0.001)); diff != "" {
		t.Errorf("absolute differences mismatch (-want +got):\n%s", diff)
	}
}
