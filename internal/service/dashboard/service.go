// Package dashboard aggregates a user's mailbox statistics.
package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"mailnight/internal/htmltext"
	"mailnight/internal/model"
	"mailnight/internal/repository"
)

const (
	defaultColor = "#667eea"
	recentCount  = 5
	previewLen   = 50
	week         = 7 * 24 * time.Hour
)

type StatsStore interface {
	UserTotals(ctx context.Context, userID int) (model.UserTotals, error)
	Activity(ctx context.Context, userID int, since time.Time) (received, sent []time.Time, err error)
	CategoryCounts(ctx context.Context, userID int) ([]model.CategoryStat, error)
}

type EmailLister interface {
	List(ctx context.Context, f repository.ListFilter, offset, limit int) ([]model.EmailListItem, int, error)
}

type Service struct {
	stats  StatsStore
	emails EmailLister
	now    func() time.Time
}

func NewService(stats StatsStore, emails EmailLister) *Service {
	return &Service{stats: stats, emails: emails, now: time.Now}
}

// Overview builds the dashboard of userID. Weeks are the rolling seven days
// before now and the seven days before that.
func (s *Service) Overview(ctx context.Context, userID int) (*model.Dashboard, error) {
	t, err := s.stats.UserTotals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}

	d := &model.Dashboard{
		TotalEmails:   t.Received + t.Sent,
		TotalReceived: t.Received,
		TotalSent:     t.Sent,
		Unread:        t.Unread,
		Starred:       t.Starred,
		Drafts:        t.Drafts,
	}

	now := s.now().UTC()
	weekAgo := now.Add(-week)
	received, sent, err := s.stats.Activity(ctx, userID, now.Add(-2*week))
	if err != nil {
		return nil, fmt.Errorf("activity: %w", err)
	}
	d.ReceivedThisWeek, d.ReceivedLastWeek = splitWeeks(received, weekAgo)
	d.SentThisWeek, d.SentLastWeek = splitWeeks(sent, weekAgo)
	d.ReceivedChangePercent = changePercent(d.ReceivedThisWeek, d.ReceivedLastWeek)
	d.SentChangePercent = changePercent(d.SentThisWeek, d.SentLastWeek)
	d.Last7Days = lastSevenDays(now, received, sent)

	if d.Categories, err = s.categories(ctx, userID); err != nil {
		return nil, err
	}
	if d.Recent, err = s.recent(ctx, userID); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) categories(ctx context.Context, userID int) ([]model.CategoryStat, error) {
	stats, err := s.stats.CategoryCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("category counts: %w", err)
	}
	total := 0
	for _, c := range stats {
		total += c.Count
	}
	for i := range stats {
		if stats[i].Color == "" {
			stats[i].Color = defaultColor
		}
		if total > 0 {
			stats[i].Percentage = round1(float64(stats[i].Count) / float64(total) * 100)
		}
	}
	return stats, nil
}

func (s *Service) recent(ctx context.Context, userID int) ([]model.RecentEmail, error) {
	items, _, err := s.emails.List(ctx, repository.ListFilter{Box: repository.BoxInbox, UserID: userID}, 0, recentCount)
	if err != nil {
		return nil, fmt.Errorf("recent emails: %w", err)
	}
	out := make([]model.RecentEmail, 0, len(items))
	for _, it := range items {
		r := model.RecentEmail{
			ID:             it.ID,
			Subject:        it.Subject,
			Preview:        htmltext.Preview(it.Preview, previewLen),
			Sender:         it.Sender,
			SenderInitials: it.Sender.Initials(),
			IsRead:         it.IsRead,
			IsStarred:      it.IsStarred,
			CategoryColor:  defaultColor,
			CreatedAt:      it.CreatedAt,
		}
		if it.Category != nil && it.Category.Color != "" {
			r.CategoryColor = it.Category.Color
		}
		out = append(out, r)
	}
	return out, nil
}

func splitWeeks(times []time.Time, weekAgo time.Time) (thisWeek, lastWeek int) {
	for _, at := range times {
		if at.Before(weekAgo) {
			lastWeek++
		} else {
			thisWeek++
		}
	}
	return thisWeek, lastWeek
}

// changePercent is the week-over-week change, 0 when last week was empty.
func changePercent(thisWeek, lastWeek int) float64 {
	if lastWeek == 0 {
		return 0
	}
	return round1(float64(thisWeek-lastWeek) / float64(lastWeek) * 100)
}

// lastSevenDays counts mail per UTC calendar day, oldest first, ending today.
func lastSevenDays(now time.Time, received, sent []time.Time) []model.DailyCount {
	days := make([]model.DailyCount, 7)
	index := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i-6)
		key := day.Format(time.DateOnly)
		days[i] = model.DailyCount{Date: key, Label: day.Format("Mon")}
		index[key] = i
	}
	for _, at := range received {
		if i, ok := index[at.UTC().Format(time.DateOnly)]; ok {
			days[i].Received++
		}
	}
	for _, at := range sent {
		if i, ok := index[at.UTC().Format(time.DateOnly)]; ok {
			days[i].Sent++
		}
	}
	return days
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
