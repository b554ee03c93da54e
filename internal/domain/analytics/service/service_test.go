package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/neilotoole/slogt"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

type fakeClient struct {
	listMessages      func(ctx context.Context, chatID int64, rng entity.DateRange) ([]entity.Message, error)
	getMessage        func(ctx context.Context, messageID int64) (*entity.Message, error)
	getReaders        func(ctx context.Context, messageID int64) ([]int64, error)
	getReactions      func(ctx context.Context, messageID int64) ([]entity.ReactionEvent, error)
	getThreadMessages func(ctx context.Context, threadChatID int64) ([]entity.Message, error)
	listUsers         func(ctx context.Context) ([]entity.User, error)
	listChats         func(ctx context.Context) ([]entity.Chat, error)
	getChat           func(ctx context.Context, chatID int64) (*entity.Chat, error)
	validateToken     func(ctx context.Context) error
}

func (f *fakeClient) ListMessages(ctx context.Context, chatID int64, rng entity.DateRange) ([]entity.Message, error) {
	if f.listMessages == nil {
		return nil, nil
	}
	return f.listMessages(ctx, chatID, rng)
}

func (f *fakeClient) GetMessage(ctx context.Context, messageID int64) (*entity.Message, error) {
	if f.getMessage == nil {
		return nil, entity.ErrMessageNotFound
	}
	return f.getMessage(ctx, messageID)
}

func (f *fakeClient) GetReaders(ctx context.Context, messageID int64) ([]int64, error) {
	if f.getReaders == nil {
		return nil, nil
	}
	return f.getReaders(ctx, messageID)
}

func (f *fakeClient) GetReactions(ctx context.Context, messageID int64) ([]entity.ReactionEvent, error) {
	if f.getReactions == nil {
		return nil, nil
	}
	return f.getReactions(ctx, messageID)
}

func (f *fakeClient) GetThreadMessages(ctx context.Context, threadChatID int64) ([]entity.Message, error) {
	if f.getThreadMessages == nil {
		return nil, nil
	}
	return f.getThreadMessages(ctx, threadChatID)
}

func (f *fakeClient) ListUsers(ctx context.Context) ([]entity.User, error) {
	if f.listUsers == nil {
		return nil, nil
	}
	return f.listUsers(ctx)
}

func (f *fakeClient) ListChats(ctx context.Context) ([]entity.Chat, error) {
	if f.listChats == nil {
		return nil, nil
	}
	return f.listChats(ctx)
}

func (f *fakeClient) GetChat(ctx context.Context, chatID int64) (*entity.Chat, error) {
	if f.getChat == nil {
		return nil, entity.ErrChatNotFound
	}
	return f.getChat(ctx, chatID)
}

func (f *fakeClient) ValidateToken(ctx context.Context) error {
	if f.validateToken == nil {
		return nil
	}
	return f.validateToken(ctx)
}

func rangeOver(from, to string) entity.DateRange {
	f, _ := time.Parse("2006-01-02", from)
	t, _ := time.Parse("2006-01-02", to)
	return entity.DateRange{From: f, To: t}
}

func at(day string, hour int) time.Time {
	d, _ := time.Parse("2006-01-02", day)
	return d.Add(time.Duration(hour) * time.Hour)
}

func newService(t *testing.T, client UpstreamClient, opts ...Option) *Service {
	t.Helper()
	opts = append(opts, WithLogger(slogt.New(t)))
	return New(client, opts...)
}

func TestRunAnalyticsValidation(t *testing.T) {
	svc := newService(t, &fakeClient{})

	_, err := svc.RunAnalytics(context.Background(), nil, rangeOver("2026-03-01", "2026-03-02"), nil)
	if !errors.Is(err, entity.ErrNoChats) {
		t.Fatalf("expected ErrNoChats, got %v", err)
	}

	_, err = svc.RunAnalytics(context.Background(), []int64{1}, rangeOver("2026-03-02", "2026-03-01"), nil)
	if !errors.Is(err, entity.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
}

func TestRunAnalyticsEmptyChat(t *testing.T) {
	svc := newService(t, &fakeClient{})

	got, err := svc.RunAnalytics(context.Background(), []int64{1}, rangeOver("2026-03-01", "2026-03-02"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.EngagementRate != 0 || len(got.MessageStats) != 0 || len(got.DaysStats) != 0 || len(got.TopUsers) != 0 {
		t.Fatalf("expected zeroed result, got %+v", got)
	}
}

func TestRunAnalyticsListingFailureIsFatal(t *testing.T) {
	svc := newService(t, &fakeClient{
		listMessages: func(context.Context, int64, entity.DateRange) ([]entity.Message, error) {
			return nil, entity.ErrUpstreamUnavailable
		},
	})

	_, err := svc.RunAnalytics(context.Background(), []int64{1}, rangeOver("2026-03-01", "2026-03-02"), nil)
	if !errors.Is(err, entity.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestRunAnalyticsComputesEngagement(t *testing.T) {
	// Two messages on one day. Message 1: readers {10,11,12}, reactor 11,
	// commenter 12 plus the author 10 reading implicitly. Message 2: readers
	// {10,11}, nobody engages, ER 0. Author self-reads keep both reader sets
	// non-empty.
	client := &fakeClient{
		listMessages: func(_ context.Context, chatID int64, _ entity.DateRange) ([]entity.Message, error) {
			return []entity.Message{
				{ID: 1, ChatID: chatID, AuthorID: 10, Text: "release shipped", CreatedAt: at("2026-03-01", 9),
					Thread: &entity.ThreadRef{ID: 77, ChatID: 770}},
				{ID: 2, ChatID: chatID, AuthorID: 11, Text: "standup notes", CreatedAt: at("2026-03-01", 15)},
			}, nil
		},
		getReaders: func(_ context.Context, messageID int64) ([]int64, error) {
			if messageID == 1 {
				return []int64{11, 12}, nil
			}
			return []int64{10}, nil
		},
		getReactions: func(_ context.Context, messageID int64) ([]entity.ReactionEvent, error) {
			if messageID == 1 {
				return []entity.ReactionEvent{{MessageID: 1, UserID: 11, Code: "fire"}}, nil
			}
			return nil, nil
		},
		getThreadMessages: func(_ context.Context, threadChatID int64) ([]entity.Message, error) {
			if threadChatID != 770 {
				t.Errorf("unexpected thread chat %d", threadChatID)
				return nil, nil
			}
			return []entity.Message{{ID: 100, ChatID: 770, AuthorID: 12, Text: "nice", CreatedAt: at("2026-03-01", 10)}}, nil
		},
		listUsers: func(context.Context) ([]entity.User, error) {
			return []entity.User{
				{ID: 10, FirstName: "Anna", LastName: "K"},
				{ID: 11, FirstName: "Boris", LastName: "L"},
				{ID: 12, FirstName: "Vera", LastName: "M"},
			}, nil
		},
	}
	svc := newService(t, client)

	got, err := svc.RunAnalytics(context.Background(), []int64{5}, rangeOver("2026-03-01", "2026-03-01"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Message 1: readers {10,11,12}, engaged {11,12} -> 66.67. Message 2:
	// readers {10}, engaged none -> 0. Mean over both: 33.335.
	approx := cmpopts.EquateApprox(0, 0.01)
	if diff := cmp.Diff(66.67, got.MessageStats[0].ER, approx); diff != "" {
		t.Errorf("message 1 ER mismatch (-want +got):\n%s", diff)
	}
	if got.MessageStats[1].ER != 0 {
		t.Errorf("message 2 ER = %v, want 0", got.MessageStats[1].ER)
	}
	if diff := cmp.Diff(33.34, got.EngagementRate, cmpopts.EquateApprox(0, 0.01)); diff != "" {
		t.Errorf("overall ER mismatch (-want +got):\n%s", diff)
	}

	wantMetrics := entity.Metrics{
		TotalMessages:         2,
		TotalReads:            5,
		TotalReactions:        1,
		TotalThreadMessages:   1,
		MessagesWithReactions: 1,
		EngagementRate:        got.EngagementRate,
	}
	if diff := cmp.Diff(wantMetrics, got.Metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}

	// Day series: one real day plus the synthetic trailing point.
	if len(got.DaysStats) != 2 {
		t.Fatalf("expected 2 day points, got %d", len(got.DaysStats))
	}
	if got.DaysStats[1].Date != "2026-03-02" || got.DaysStats[1].ER != got.DaysStats[0].ER {
		t.Errorf("trailing day point wrong: %+v", got.DaysStats[1])
	}

	// Leaderboard: Anna 1 msg = 1.0, Boris 1 msg + 1 reaction = 1.25,
	// Vera 1 thread reply = 0.8.
	if len(got.TopUsers) != 3 {
		t.Fatalf("expected 3 ranked users, got %d", len(got.TopUsers))
	}
	if got.TopUsers[0].UserID != 11 || got.TopUsers[1].UserID != 10 || got.TopUsers[2].UserID != 12 {
		t.Errorf("unexpected leaderboard order: %+v", got.TopUsers)
	}
}

func TestRunAnalyticsFiltersSystemAndBotMessages(t *testing.T) {
	client := &fakeClient{
		listMessages: func(_ context.Context, chatID int64, _ entity.DateRange) ([]entity.Message, error) {
			return []entity.Message{
				{ID: 1, ChatID: chatID, AuthorID: 10, Text: "Начался видеочат", CreatedAt: at("2026-03-01", 9)},
				{ID: 2, ChatID: chatID, AuthorID: 10, Text: "Видеочат завершён (32 мин.)", CreatedAt: at("2026-03-01", 10)},
				{ID: 3, ChatID: chatID, AuthorID: 10, Text: "видеочат завершен", CreatedAt: at("2026-03-01", 10)},
				{ID: 4, ChatID: chatID, AuthorID: 99, Text: "daily digest", CreatedAt: at("2026-03-01", 11)},
				{ID: 5, ChatID: chatID, AuthorID: 10, Text: "real talk", CreatedAt: at("2026-03-01", 12)},
			}, nil
		},
		listUsers: func(context.Context) ([]entity.User, error) {
			return []entity.User{
				{ID: 10, FirstName: "Anna", LastName: "K"},
				{ID: 99, FirstName: "Digest", LastName: "Bot", Bot: true},
			}, nil
		},
	}
	svc := newService(t, client)

	got, err := svc.RunAnalytics(context.Background(), []int64{5}, rangeOver("2026-03-01", "2026-03-01"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.MessageStats) != 1 || got.MessageStats[0].ID != 5 {
		t.Fatalf("expected only message 5 to survive, got %+v", got.MessageStats)
	}
}

func TestRunAnalyticsDegradesOnSubFetchFailures(t *testing.T) {
	client := &fakeClient{
		listMessages: func(_ context.Context, chatID int64, _ entity.DateRange) ([]entity.Message, error) {
			return []entity.Message{{ID: 1, ChatID: chatID, AuthorID: 10, Text: "hi", CreatedAt: at("2026-03-01", 9)}}, nil
		},
		getReaders: func(context.Context, int64) ([]int64, error) {
			return nil, entity.ErrUpstreamUnavailable
		},
		getReactions: func(context.Context, int64) ([]entity.ReactionEvent, error) {
			return nil, entity.ErrUpstreamUnavailable
		},
	}
	svc := newService(t, client)

	got, err := svc.RunAnalytics(context.Background(), []int64{5}, rangeOver("2026-03-01", "2026-03-01"), nil)
	if err != nil {
		t.Fatalf("expected degraded success, got error: %v", err)
	}
	// The author self-read still counts.
	if got.MessageStats[0].Readers != 1 || got.MessageStats[0].Reactions != 0 {
		t.Errorf("unexpected degraded stat: %+v", got.MessageStats[0])
	}
}

func TestRunAnalyticsProgressIsMonotonic(t *testing.T) {
	client := &fakeClient{
		listMessages: func(_ context.Context, chatID int64, _ entity.DateRange) ([]entity.Message, error) {
			msgs := make([]entity.Message, 0, 20)
			for i := int64(1); i <= 20; i++ {
				msgs = append(msgs, entity.Message{ID: i, ChatID: chatID, AuthorID: 10, Text: "m", CreatedAt: at("2026-03-01", int(i%12))})
			}
			return msgs, nil
		},
	}
	svc := newService(t, client, WithFetchConcurrency(4))

	var seen []int
	_, err := svc.RunAnalytics(context.Background(), []int64{5}, rangeOver("2026-03-01", "2026-03-01"), func(pct int) {
		seen = append(seen, pct)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) < 3 {
		t.Fatalf("expected several progress reports, got %v", seen)
	}
	if seen[0] != 5 || seen[len(seen)-1] != 100 {
		t.Errorf("progress should run 5..100, got %v", seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("progress not strictly increasing at %d: %v", i, seen)
		}
	}
}

func TestRunAnalyticsForMessages(t *testing.T) {
	client := &fakeClient{
		getMessage: func(_ context.Context, messageID int64) (*entity.Message, error) {
			if messageID == 404 {
				return nil, entity.ErrMessageNotFound
			}
			return &entity.Message{ID: messageID, ChatID: 5, AuthorID: 10, Text: "hello", CreatedAt: at("2026-03-01", 9)}, nil
		},
		getReaders: func(context.Context, int64) ([]int64, error) {
			return []int64{10, 11}, nil
		},
		getReactions: func(_ context.Context, messageID int64) ([]entity.ReactionEvent, error) {
			return []entity.ReactionEvent{{MessageID: messageID, UserID: 11, Code: "+1"}}, nil
		},
	}
	svc := newService(t, client)

	got, err := svc.RunAnalyticsForMessages(context.Background(), []int64{1, 404, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.MessageStats) != 2 {
		t.Fatalf("expected 2 stats after skipping the missing id, got %d", len(got.MessageStats))
	}
	if len(got.DaysStats) != 0 || len(got.TopUsers) != 0 {
		t.Errorf("message-set runs must not aggregate days or users: %+v", got)
	}
	if diff := cmp.Diff(50.0, got.EngagementRate, cmpopts.EquateApprox(0, 0.01)); diff != "" {
		t.Errorf("ER mismatch (-want +got):\n%s", diff)
	}
}

func TestRunAnalyticsForMessagesValidation(t *testing.T) {
	svc := newService(t, &fakeClient{})
	if _, err := svc.RunAnalyticsForMessages(context.Background(), nil); !errors.Is(err, entity.ErrNoMessageIDs) {
		t.Fatalf("expected ErrNoMessageIDs, got %v", err)
	}
}

func TestRunComparison(t *testing.T) {
	// The previous period has half the volume of the current one.
	client := &fakeClient{
		listMessages: func(_ context.Context, chatID int64, _ entity.DateRange) ([]entity.Message, error) {
			return []entity.Message{{ID: 1, ChatID: chatID, AuthorID: 10, Text: "old", CreatedAt: at("2026-02-01", 9)}}, nil
		},
		getReaders: func(context.Context, int64) ([]int64, error) {
			return []int64{10, 11}, nil
		},
	}
	svc := newService(t, client)

	current := &entity.AnalyticsResult{
		EngagementRate: 50,
		Metrics:        entity.Metrics{TotalMessages: 2, TotalReads: 4, EngagementRate: 50},
	}
	got, err := svc.RunComparison(context.Background(), current, []int64{5}, rangeOver("2026-02-01", "2026-02-01"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Comparison == nil {
		t.Fatal("comparison not attached")
	}
	if got.Comparison.Metrics.TotalMessages != 1 {
		t.Errorf("previous total messages = %d, want 1", got.Comparison.Metrics.TotalMessages)
	}
	if got.Comparison.PercentageDifferences[entity.MetricTotalMessages] != 100 {
		t.Errorf("total_messages delta = %v, want 100", got.Comparison.PercentageDifferences[entity.MetricTotalMessages])
	}
	if got.Comparison.AbsoluteDifferences[entity.MetricTotalMessages] != 1 {
		t.Errorf("total_messages abs delta = %v, want 1", got.Comparison.AbsoluteDifferences[entity.MetricTotalMessages])
	}
	if current.Comparison != nil {
		t.Error("input result must not be mutated")
	}
}

func TestSearchChats(t *testing.T) {
	client := &fakeClient{
		listChats: func(context.Context) ([]entity.Chat, error) {
			return []entity.Chat{
				{ID: 1, Name: "general", Channel: true, Public: true},
				{ID: 2, Name: "random", Channel: false, Public: true},
				{ID: 3, Name: "leads", Channel: true, Public: false},
			}, nil
		},
	}
	svc := newService(t, client)

	all, err := svc.SearchChats(context.Background(), SearchChatsInput{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 chats, got %d", len(all))
	}

	channel := true
	public := false
	got, err := svc.SearchChats(context.Background(), SearchChatsInput{Channel: &channel, Public: &public})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("expected only chat 3, got %+v", got)
	}
}
