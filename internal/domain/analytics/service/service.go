package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/maksim/chatpulse/internal/domain/analytics/entity"
)

// UpstreamClient is the query surface of the chat platform the analytics are
// computed from.
type UpstreamClient interface {
	ListMessages(ctx context.Context, chatID int64, rng entity.DateRange) ([]entity.Message, error)
	GetMessage(ctx context.Context, messageID int64) (*entity.Message, error)
	GetReaders(ctx context.Context, messageID int64) ([]int64, error)
	GetReactions(ctx context.Context, messageID int64) ([]entity.ReactionEvent, error)
	GetThreadMessages(ctx context.Context, threadChatID int64) ([]entity.Message, error)
	ListUsers(ctx context.Context) ([]entity.User, error)
	ListChats(ctx context.Context) ([]entity.Chat, error)
	GetChat(ctx context.Context, chatID int64) (*entity.Chat, error)
	ValidateToken(ctx context.Context) error
}

// ProgressFunc receives coarse completion percentages, monotonically from 0
// to 100, while a run is in flight.
type ProgressFunc func(pct int)

// Progress checkpoints of one run.
const (
	progressStarted        = 5
	progressMessagesLoaded = 40
	progressDone           = 100
)

const defaultFetchConcurrency = 16

// System notices Pachka posts into a chat around video calls. They carry no
// authored content and are dropped before aggregation.
var (
	callStartedText = "Начался видеочат"
	callFinishedRe  = regexp.MustCompile(`(?i)^Видеочат заверш[её]н( \(.+\))?$`)
)

// Service is the engagement analytics engine.
type Service struct {
	client     UpstreamClient
	fetchLimit int
	logger     *slog.Logger
}

// Option configures the Service
type Option func(*Service)

// WithFetchConcurrency caps the number of simultaneous per-message fetches.
func WithFetchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchLimit = n
		}
	}
}

// WithLogger sets the service logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a new analytics service
func New(client UpstreamClient, opts ...Option) *Service {
	s := &Service{
		client:     client,
		fetchLimit: defaultFetchConcurrency,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// messageData joins the three per-message collections fetched concurrently.
type messageData struct {
	readers    map[int64]struct{}
	reactors   map[int64]struct{}
	commenters map[int64]struct{}
	reactions  []entity.ReactionEvent
	replies    []entity.Message
}

// RunAnalytics fetches all messages of the given chats within the range and
// computes the full engagement picture: per-message stats, the day series,
// the user leaderboard and the period totals. A run where no messages survive
// filtering returns a zeroed result, not an error. Failures of individual
// reader/reaction/thread fetches degrade that one message to empty sets;
// only a failing message listing aborts the run.
func (s *Service) RunAnalytics(ctx context.Context, chatIDs []int64, rng entity.DateRange, onProgress ProgressFunc) (*entity.AnalyticsResult, error) {
	if len(chatIDs) == 0 {
		return nil, entity.ErrNoChats
	}
	if rng.From.After(rng.To) {
		return nil, entity.ErrInvalidDateRange
	}

	progress := progressReporter(onProgress)
	progress(progressStarted)

	directory, err := s.client.ListUsers(ctx)
	if err != nil {
		// The leaderboard and bot filtering degrade without the directory;
		// the run itself survives.
		s.logger.Warn("listing users failed, proceeding without directory", "error", err)
		directory = nil
	}

	messages, err := s.listAllMessages(ctx, chatIDs, rng)
	if err != nil {
		return nil, err
	}
	messages = filterMessages(messages, directory)
	topLevel := topLevelMessages(messages)
	progress(progressMessagesLoaded)

	if len(topLevel) == 0 {
		progress(progressDone)
		return emptyResult(), nil
	}

	// Per-message data is fetched day by day so progress moves in visible
	// steps even on large ranges.
	days, byDay := groupByDay(topLevel)
	stats := make([]entity.MessageStat, 0, len(topLevel))
	var (
		allReactions []entity.ReactionEvent
		allReplies   []entity.Message
	)
	processed := 0
	for _, day := range days {
		dayMessages := byDay[day]
		data, err := s.fetchMessageBatch(ctx, dayMessages)
		if err != nil {
			return nil, err
		}
		for i, msg := range dayMessages {
			stats = append(stats, buildMessageStat(msg, data[i]))
			allReactions = append(allReactions, data[i].reactions...)
			allReplies = append(allReplies, data[i].replies...)

			processed++
			pct := progressMessagesLoaded + int(float64(processed)/float64(len(topLevel))*59)
			if pct > 99 {
				pct = 99
			}
			progress(pct)
		}
	}

	er := meanER(stats)
	result := &entity.AnalyticsResult{
		EngagementRate: er,
		MessageStats:   stats,
		DaysStats:      AggregateByDay(stats),
		TopUsers:       RankUsers(topLevel, allReplies, allReactions, directory),
		Metrics:        buildMetrics(er, stats),
	}
	progress(progressDone)
	return result, nil
}

// RunAnalyticsForMessages computes per-message stats and their mean ER for an
// ad hoc set of message IDs, bypassing the day and user aggregations. IDs the
// platform no longer knows are skipped.
func (s *Service) RunAnalyticsForMessages(ctx context.Context, messageIDs []int64) (*entity.AnalyticsResult, error) {
	if len(messageIDs) == 0 {
		return nil, entity.ErrNoMessageIDs
	}

	fetched := make([]*entity.Message, len(messageIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchLimit)
	for i, id := range messageIDs {
		i, id := i, id
		g.Go(func() error {
			msg, err := s.client.GetMessage(gctx, id)
			if err != nil {
				if errors.Is(err, entity.ErrMessageNotFound) {
					s.logger.Warn("message not found, skipping", "message_id", id)
					return nil
				}
				return err
			}
			fetched[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	messages := make([]entity.Message, 0, len(fetched))
	for _, msg := range fetched {
		if msg != nil {
			messages = append(messages, *msg)
		}
	}
	if len(messages) == 0 {
		return emptyResult(), nil
	}

	data, err := s.fetchMessageBatch(ctx, messages)
	if err != nil {
		return nil, err
	}
	stats := make([]entity.MessageStat, 0, len(messages))
	for i, msg := range messages {
		stats = append(stats, buildMessageStat(msg, data[i]))
	}

	er := meanER(stats)
	return &entity.AnalyticsResult{
		EngagementRate: er,
		MessageStats:   stats,
		DaysStats:      []entity.DayStat{},
		TopUsers:       []entity.UserStat{},
		Metrics:        buildMetrics(er, stats),
	}, nil
}

// RunComparison reruns the analytics over the comparison range and returns a
// copy of the current result with per-metric deltas attached.
func (s *Service) RunComparison(ctx context.Context, current *entity.AnalyticsResult, chatIDs []int64, rng entity.DateRange, onProgress ProgressFunc) (*entity.AnalyticsResult, error) {
	previous, err := s.RunAnalytics(ctx, chatIDs, rng, onProgress)
	if err != nil {
		return nil, err
	}

	percentage, absolute := Compare(current.Metrics, previous.Metrics)
	out := *current
	out.Comparison = &entity.Comparison{
		DateRange:             rng,
		Metrics:               previous.Metrics,
		EngagementRate:        previous.EngagementRate,
		PercentageDifferences: percentage,
		AbsoluteDifferences:   absolute,
	}
	return &out, nil
}

// SearchChatsInput narrows a chat listing; nil flags mean "either".
type SearchChatsInput struct {
	Channel *bool
	Public  *bool
}

// SearchChats lists the workspace's chats, optionally filtered by kind and
// visibility.
func (s *Service) SearchChats(ctx context.Context, in SearchChatsInput) ([]entity.Chat, error) {
	chats, err := s.client.ListChats(ctx)
	if err != nil {
		return nil, err
	}
	if in.Channel == nil && in.Public == nil {
		return chats, nil
	}
	filtered := make([]entity.Chat, 0, len(chats))
	for _, chat := range chats {
		if in.Channel != nil && chat.Channel != *in.Channel {
			continue
		}
		if in.Public != nil && chat.Public != *in.Public {
			continue
		}
		filtered = append(filtered, chat)
	}
	return filtered, nil
}

// GetChat fetches a single chat.
func (s *Service) GetChat(ctx context.Context, chatID int64) (*entity.Chat, error) {
	return s.client.GetChat(ctx, chatID)
}

// GetChatForMessage resolves the chat a message lives in.
func (s *Service) GetChatForMessage(ctx context.Context, messageID int64) (*entity.Chat, error) {
	msg, err := s.client.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	return s.client.GetChat(ctx, msg.ChatID)
}

// ValidateToken checks the upstream credential.
func (s *Service) ValidateToken(ctx context.Context) error {
	return s.client.ValidateToken(ctx)
}

// listAllMessages fans out one listing per chat and flattens the results.
// Any listing failure is fatal for the run.
func (s *Service) listAllMessages(ctx context.Context, chatIDs []int64, rng entity.DateRange) ([]entity.Message, error) {
	perChat := make([][]entity.Message, len(chatIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fetchLimit)
	for i, chatID := range chatIDs {
		i, chatID := i, chatID
		g.Go(func() error {
			messages, err := s.client.ListMessages(gctx, chatID, rng)
			if err != nil {
				return err
			}
			perChat[i] = messages
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []entity.Message
	for _, messages := range perChat {
		all = append(all, messages...)
	}
	return all, nil
}

// fetchMessageBatch concurrently fetches readers, reactions and thread
// replies for every message of the batch. Sub-fetch failures degrade to
// empty sets; the only error returned is context cancellation.
func (s *Service) fetchMessageBatch(ctx context.Context, messages []entity.Message) ([]messageData, error) {
	data := make([]messageData, len(messages))
	g := new(errgroup.Group)
	g.SetLimit(s.fetchLimit)
	for i, msg := range messages {
		i, msg := i, msg
		g.Go(func() error {
			data[i] = s.fetchMessageData(ctx, msg)
			return nil
		})
	}
	g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *Service) fetchMessageData(ctx context.Context, msg entity.Message) messageData {
	d := messageData{
		readers:    make(map[int64]struct{}),
		reactors:   make(map[int64]struct{}),
		commenters: make(map[int64]struct{}),
	}

	readers, err := s.client.GetReaders(ctx, msg.ID)
	if err != nil {
		s.logger.Warn("reader fetch failed, degrading to empty set", "message_id", msg.ID, "error", err)
	}
	for _, userID := range readers {
		d.readers[userID] = struct{}{}
	}
	// The author has read their own message even when the platform omits
	// them from the reader list.
	if msg.AuthorID != 0 {
		d.readers[msg.AuthorID] = struct{}{}
	}

	reactions, err := s.client.GetReactions(ctx, msg.ID)
	if err != nil {
		s.logger.Warn("reaction fetch failed, degrading to empty set", "message_id", msg.ID, "error", err)
	}
	d.reactions = reactions
	for _, reaction := range reactions {
		if reaction.UserID != 0 {
			d.reactors[reaction.UserID] = struct{}{}
		}
	}

	if msg.Thread != nil && msg.Thread.ChatID != 0 {
		replies, err := s.client.GetThreadMessages(ctx, msg.Thread.ChatID)
		if err != nil {
			s.logger.Warn("thread fetch failed, degrading to empty set", "message_id", msg.ID, "thread_chat_id", msg.Thread.ChatID, "error", err)
		}
		d.replies = replies
		for _, reply := range replies {
			if reply.AuthorID != 0 {
				d.commenters[reply.AuthorID] = struct{}{}
			}
		}
	}

	return d
}

func buildMessageStat(msg entity.Message, d messageData) entity.MessageStat {
	return entity.MessageStat{
		ID:             msg.ID,
		ChatID:         msg.ChatID,
		Text:           msg.Text,
		Date:           msg.CreatedAt,
		Readers:        len(d.readers),
		Reactions:      len(d.reactors),
		ThreadComments: len(d.commenters),
		ER:             round2(ComputeMessageER(d.readers, d.reactors, d.commenters)),
	}
}

// meanER is the unweighted mean over messages somebody has read. Unlike the
// day series, unread messages are left out of the mean rather than counted
// as zero.
func meanER(stats []entity.MessageStat) float64 {
	sum := 0.0
	count := 0
	for _, st := range stats {
		if st.Readers > 0 {
			sum += st.ER
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

func buildMetrics(er float64, stats []entity.MessageStat) entity.Metrics {
	m := entity.Metrics{
		TotalMessages:  len(stats),
		EngagementRate: er,
	}
	for _, st := range stats {
		m.TotalReads += st.Readers
		m.TotalReactions += st.Reactions
		m.TotalThreadMessages += st.ThreadComments
		if st.Reactions > 0 {
			m.MessagesWithReactions++
		}
	}
	return m
}

// filterMessages drops video-call notices and bot-authored messages.
func filterMessages(messages []entity.Message, directory []entity.User) []entity.Message {
	bots := make(map[int64]struct{})
	for _, u := range directory {
		if u.Bot {
			bots[u.ID] = struct{}{}
		}
	}

	out := make([]entity.Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Text == callStartedText || callFinishedRe.MatchString(msg.Text) {
			continue
		}
		if _, isBot := bots[msg.AuthorID]; isBot {
			continue
		}
		out = append(out, msg)
	}
	return out
}

func topLevelMessages(messages []entity.Message) []entity.Message {
	out := make([]entity.Message, 0, len(messages))
	for _, msg := range messages {
		if !msg.IsThreadReply {
			out = append(out, msg)
		}
	}
	return out
}

// groupByDay splits messages by calendar day, days sorted ascending.
func groupByDay(messages []entity.Message) ([]string, map[string][]entity.Message) {
	byDay := make(map[string][]entity.Message)
	for _, msg := range messages {
		day := msg.CreatedAt.Format(dayFormat)
		byDay[day] = append(byDay[day], msg)
	}
	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)
	return days, byDay
}

func emptyResult() *entity.AnalyticsResult {
	return &entity.AnalyticsResult{
		MessageStats: []entity.MessageStat{},
		DaysStats:    []entity.DayStat{},
		TopUsers:     []entity.UserStat{},
	}
}

// progressReporter guards against nil callbacks and keeps reported values
// clamped and strictly increasing.
func progressReporter(fn ProgressFunc) ProgressFunc {
	if fn == nil {
		return func(int) {}
	}
	last := -1
	return func(pct int) {
		if pct < 0 {
			pct = 0
		}
		if pct > 100 {
			pct = 100
		}
		if pct <= last {
			return
		}
		last = pct
		fn(pct)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
