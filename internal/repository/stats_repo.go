package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailnight/internal/model"
)

// StatsRepository serves the aggregate queries behind the dashboard, the
// profile page and the admin area.
type StatsRepository struct {
	db *pgxpool.Pool
}

func NewStatsRepository(db *pgxpool.Pool) *StatsRepository {
	return &StatsRepository{db: db}
}

const (
	receivedCond = `e.receiver_id = $1 AND NOT e.is_deleted AND NOT e.receiver_deleted AND NOT e.is_draft`
	sentByCond   = `e.sender_id = $1 AND NOT e.is_deleted AND NOT e.sender_deleted AND NOT e.is_draft`
)

func (r *StatsRepository) UserTotals(ctx context.Context, userID int) (model.UserTotals, error) {
	query := `
        SELECT
            COUNT(*) FILTER (WHERE ` + receivedCond + `),
            COUNT(*) FILTER (WHERE ` + sentByCond + `),
            COUNT(*) FILTER (WHERE ` + receivedCond + ` AND NOT e.is_read),
            COUNT(*) FILTER (WHERE ((` + receivedCond + `) OR (` + sentByCond + `)) AND e.is_starred),
            COUNT(*) FILTER (WHERE e.sender_id = $1 AND e.is_draft AND NOT e.is_deleted AND NOT e.sender_deleted),
            COUNT(*) FILTER (WHERE ` + receivedCond + ` AND e.is_read)
        FROM emails e
        WHERE e.sender_id = $1 OR e.receiver_id = $1
    `
	var t model.UserTotals
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&t.Received, &t.Sent, &t.Unread, &t.Starred, &t.Drafts, &t.ReadReceived,
	)
	return t, err
}

// AccountCounts are the raw counters shown to admins: every non-draft email
// sent, every email received and every draft, deleted ones included.
func (r *StatsRepository) AccountCounts(ctx context.Context, userID int) (sent, received, drafts int, err error) {
	query := `
        SELECT
            COUNT(*) FILTER (WHERE e.sender_id = $1 AND NOT e.is_draft),
            COUNT(*) FILTER (WHERE e.receiver_id = $1),
            COUNT(*) FILTER (WHERE e.sender_id = $1 AND e.is_draft)
        FROM emails e
        WHERE e.sender_id = $1 OR e.receiver_id = $1
    `
	err = r.db.QueryRow(ctx, query, userID).Scan(&sent, &received, &drafts)
	return
}

// Activity returns creation times of mail received and sent since the given
// instant.
func (r *StatsRepository) Activity(ctx context.Context, userID int, since time.Time) (received, sent []time.Time, err error) {
	query := `
        SELECT e.created_at, e.receiver_id = $1
        FROM emails e
        WHERE ((` + receivedCond + `) OR (` + sentByCond + `)) AND e.created_at >= $2
    `
	rows, err := r.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var at time.Time
		var isReceived bool
		if err := rows.Scan(&at, &isReceived); err != nil {
			return nil, nil, err
		}
		if isReceived {
			received = append(received, at)
		} else {
			sent = append(sent, at)
		}
	}
	return received, sent, rows.Err()
}

// CategoryCounts groups received mail of userID by category. userID 0
// groups every email.
func (r *StatsRepository) CategoryCounts(ctx context.Context, userID int) ([]model.CategoryStat, error) {
	query := `
        SELECT c.id, c.name, c.color, c.icon, COUNT(*)
        FROM emails e
        JOIN email_categories c ON c.id = e.category_id
        WHERE ($1 = 0 OR (e.receiver_id = $1 AND NOT e.is_deleted AND NOT e.receiver_deleted))
        GROUP BY c.id, c.name, c.color, c.icon
        ORDER BY COUNT(*) DESC, c.id
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := []model.CategoryStat{}
	for rows.Next() {
		var s model.CategoryStat
		if err := rows.Scan(&s.CategoryID, &s.Name, &s.Color, &s.Icon, &s.Count); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// SystemCounts fills the counters of the admin overview. dayStart and
// weekStart bound "today" and "this week".
func (r *StatsRepository) SystemCounts(ctx context.Context, dayStart, weekStart time.Time) (model.AdminOverview, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM emails),
            (SELECT COUNT(*) FROM emails WHERE created_at >= $1),
            (SELECT COUNT(DISTINCT sender_id) FROM emails WHERE created_at >= $1),
            (SELECT COUNT(*) FROM users WHERE created_at >= $2),
            (SELECT COUNT(*) FROM email_attachments)
    `
	var o model.AdminOverview
	err := r.db.QueryRow(ctx, query, dayStart, weekStart).Scan(
		&o.TotalUsers, &o.TotalEmails, &o.EmailsToday, &o.ActiveSendersToday,
		&o.NewUsersThisWeek, &o.TotalAttachments,
	)
	return o, err
}

// DailyCounts counts emails per UTC day from since onwards. Days without
// mail are absent.
func (r *StatsRepository) DailyCounts(ctx context.Context, since time.Time) ([]model.DateCount, error) {
	query := `
        SELECT date_trunc('day', created_at AT TIME ZONE 'UTC') AS day, COUNT(*)
        FROM emails
        WHERE created_at >= $1
        GROUP BY day
        ORDER BY day
    `
	rows, err := r.db.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.DateCount
	for rows.Next() {
		var dc model.DateCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, err
		}
		dc.Date = time.Date(dc.Date.Year(), dc.Date.Month(), dc.Date.Day(), 0, 0, 0, 0, time.UTC)
		out = append(out, dc)
	}
	return out, rows.Err()
}

// TopSenders ranks users by non-draft emails sent.
func (r *StatsRepository) TopSenders(ctx context.Context, limit int) ([]model.SenderStat, error) {
	query := `
        SELECT u.id, u.name, u.surname, u.email, u.image_url, COUNT(*) AS sent
        FROM emails e
        JOIN users u ON u.id = e.sender_id
        WHERE NOT e.is_draft
        GROUP BY u.id
        ORDER BY sent DESC, u.id
        LIMIT $1
    `
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SenderStat{}
	for rows.Next() {
		var s model.SenderStat
		if err := rows.Scan(&s.User.ID, &s.User.Name, &s.User.Surname, &s.User.Email, &s.User.ImageURL, &s.Count); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Totals returns system wide counts of users, emails, drafts and attachments.
func (r *StatsRepository) Totals(ctx context.Context) (users, emails, drafts, attachments int, err error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM users),
            (SELECT COUNT(*) FROM emails),
            (SELECT COUNT(*) FROM emails WHERE is_draft),
            (SELECT COUNT(*) FROM email_attachments)
    `
	err = r.db.QueryRow(ctx, query).Scan(&users, &emails, &drafts, &attachments)
	return
}

// RecentUsers returns the newest accounts.
func (r *StatsRepository) RecentUsers(ctx context.Context, limit int) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u ORDER BY u.created_at DESC, u.id DESC LIMIT $1`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}
