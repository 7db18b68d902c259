package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mailnight/internal/model"
)

// Box selects one of the mailbox listings.
type Box int

const (
	BoxInbox Box = iota
	BoxSent
	BoxStarred
	BoxDrafts
	BoxCategory
	BoxSearch
	BoxAll
	// BoxActivity is every non-draft email UserID can still see.
	BoxActivity
	// BoxUser is every email UserID sent or received, drafts and deleted
	// mail included.
	BoxUser
)

// ListFilter describes a mailbox listing. CategoryID is used by BoxCategory,
// Query by BoxSearch and BoxAll. BoxAll lists every email, drafts included,
// and ignores UserID.
type ListFilter struct {
	Box        Box
	UserID     int
	CategoryID int
	Query      string
}

type EmailRepository struct {
	db *pgxpool.Pool
}

func NewEmailRepository(db *pgxpool.Pool) *EmailRepository {
	return &EmailRepository{db: db}
}

const emailColumns = `id, sender_id, receiver_id, subject, body, ai_summary, category_id,
        is_read, is_starred, is_draft, is_deleted, sender_deleted, receiver_deleted,
        created_at, read_at, scheduled_at`

// Create inserts e and fills in ID and CreatedAt.
func (r *EmailRepository) Create(ctx context.Context, e *model.Email) error {
	query := `
        INSERT INTO emails (sender_id, receiver_id, subject, body, ai_summary, category_id, is_draft, scheduled_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at
    `
	err := r.db.QueryRow(ctx, query,
		e.SenderID, e.ReceiverID, e.Subject, e.Body, e.AISummary, e.CategoryID, e.IsDraft, e.ScheduledAt,
	).Scan(&e.ID, &e.CreatedAt)
	return translate(err)
}

func (r *EmailRepository) FindByID(ctx context.Context, id int) (*model.Email, error) {
	query := `SELECT ` + emailColumns + ` FROM emails WHERE id = $1`
	var e model.Email
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID, &e.SenderID, &e.ReceiverID, &e.Subject, &e.Body, &e.AISummary, &e.CategoryID,
		&e.IsRead, &e.IsStarred, &e.IsDraft, &e.IsDeleted, &e.SenderDeleted, &e.ReceiverDeleted,
		&e.CreatedAt, &e.ReadAt, &e.ScheduledAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

// UpdateDraft overwrites receiver, subject and body of a draft owned by
// e.SenderID.
func (r *EmailRepository) UpdateDraft(ctx context.Context, e *model.Email) error {
	query := `
        UPDATE emails
        SET receiver_id = $3, subject = $4, body = $5
        WHERE id = $1 AND sender_id = $2 AND is_draft AND NOT is_deleted
    `
	return r.execOne(ctx, query, e.ID, e.SenderID, e.ReceiverID, e.Subject, e.Body)
}

// UpdateAnalysis writes summary and category back onto the email.
func (r *EmailRepository) UpdateAnalysis(ctx context.Context, id int, summary string, categoryID int) error {
	return r.execOne(ctx,
		`UPDATE emails SET ai_summary = $2, category_id = $3 WHERE id = $1`, id, summary, categoryID)
}

func (r *EmailRepository) UpdateSummary(ctx context.Context, id int, summary string) error {
	return r.execOne(ctx, `UPDATE emails SET ai_summary = $2 WHERE id = $1`, id, summary)
}

// MarkRead sets the read flag once; read_at keeps its first value.
func (r *EmailRepository) MarkRead(ctx context.Context, id int, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE emails SET is_read = TRUE, read_at = COALESCE(read_at, $2) WHERE id = $1`, id, at)
}

func (r *EmailRepository) SetStarred(ctx context.Context, id int, starred bool) error {
	return r.execOne(ctx, `UPDATE emails SET is_starred = $2 WHERE id = $1`, id, starred)
}

// SoftDelete hides the email from one party.
func (r *EmailRepository) SoftDelete(ctx context.Context, id int, asSender bool) error {
	column := "receiver_deleted"
	if asSender {
		column = "sender_deleted"
	}
	return r.execOne(ctx, `UPDATE emails SET `+column+` = TRUE WHERE id = $1`, id)
}

// Delete removes the row; attachments go with it.
func (r *EmailRepository) Delete(ctx context.Context, id int) error {
	return r.execOne(ctx, `DELETE FROM emails WHERE id = $1`, id)
}

const (
	inboxCond   = `e.receiver_id = $1 AND NOT e.is_deleted AND NOT e.receiver_deleted AND NOT e.is_draft`
	sentCond    = `e.sender_id = $1 AND NOT e.sender_deleted AND NOT e.is_draft`
	visibleCond = `((e.sender_id = $1 AND NOT e.sender_deleted) OR (e.receiver_id = $1 AND NOT e.receiver_deleted)) AND NOT e.is_deleted`
	starredCond = visibleCond + ` AND e.is_starred`
	draftsCond  = `e.sender_id = $1 AND e.is_draft AND NOT e.is_deleted AND NOT e.sender_deleted`
)

// matchCond is the search predicate against placeholder p.
func matchCond(p string) string {
	return strings.NewReplacer("$q", p).Replace(`(e.subject ILIKE $q OR e.body ILIKE $q
            OR s.name ILIKE $q OR s.surname ILIKE $q OR s.email ILIKE $q
            OR r.name ILIKE $q OR r.surname ILIKE $q OR r.email ILIKE $q
            OR c.name ILIKE $q)`)
}

const listFrom = `
        FROM emails e
        JOIN users s ON s.id = e.sender_id
        LEFT JOIN users r ON r.id = e.receiver_id
        LEFT JOIN email_categories c ON c.id = e.category_id`

const listColumns = `e.id, e.subject, e.body, COALESCE(e.ai_summary, ''), e.is_read, e.is_starred, e.is_draft, e.created_at,
        s.id, s.name, s.surname, s.email, s.image_url,
        r.id, r.name, r.surname, r.email, r.image_url,
        c.id, c.name, c.color, c.icon, c.is_system,
        (SELECT COUNT(*) FROM email_attachments a WHERE a.email_id = e.id)`

// likePattern turns q into an ILIKE substring pattern with wildcards escaped.
func likePattern(q string) string {
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + q + "%"
}

func (f ListFilter) where() (string, []any, error) {
	switch f.Box {
	case BoxInbox:
		return inboxCond, []any{f.UserID}, nil
	case BoxSent:
		return sentCond, []any{f.UserID}, nil
	case BoxStarred:
		return starredCond, []any{f.UserID}, nil
	case BoxDrafts:
		return draftsCond, []any{f.UserID}, nil
	case BoxCategory:
		return inboxCond + ` AND e.category_id = $2`, []any{f.UserID, f.CategoryID}, nil
	case BoxSearch:
		return visibleCond + ` AND NOT e.is_draft AND ` + matchCond("$2"), []any{f.UserID, likePattern(f.Query)}, nil
	case BoxActivity:
		return visibleCond + ` AND NOT e.is_draft`, []any{f.UserID}, nil
	case BoxUser:
		return `(e.sender_id = $1 OR e.receiver_id = $1)`, []any{f.UserID}, nil
	case BoxAll:
		if strings.TrimSpace(f.Query) == "" {
			return `TRUE`, nil, nil
		}
		return matchCond("$1"), []any{likePattern(f.Query)}, nil
	}
	return "", nil, fmt.Errorf("unknown mailbox %d", f.Box)
}

// List returns one page of f, newest first, and the total match count.
func (r *EmailRepository) List(ctx context.Context, f ListFilter, offset, limit int) ([]model.EmailListItem, int, error) {
	where, args, err := f.where()
	if err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) `+listFrom+` WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	query := `SELECT ` + listColumns + listFrom + ` WHERE ` + where +
		fmt.Sprintf(` ORDER BY e.created_at DESC, e.id DESC LIMIT $%d OFFSET $%d`, n+1, n+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := []model.EmailListItem{}
	for rows.Next() {
		item, err := scanListItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	return items, total, rows.Err()
}

func scanListItem(row pgx.Row) (model.EmailListItem, error) {
	var it model.EmailListItem
	var rID, cID *int
	var rName, rSurname, rEmail, rImage *string
	var cName, cColor, cIcon *string
	var cSystem *bool
	err := row.Scan(
		&it.ID, &it.Subject, &it.Preview, &it.Summary, &it.IsRead, &it.IsStarred, &it.IsDraft, &it.CreatedAt,
		&it.Sender.ID, &it.Sender.Name, &it.Sender.Surname, &it.Sender.Email, &it.Sender.ImageURL,
		&rID, &rName, &rSurname, &rEmail, &rImage,
		&cID, &cName, &cColor, &cIcon, &cSystem,
		&it.AttachmentCount,
	)
	if err != nil {
		return it, err
	}
	if rID != nil {
		it.Receiver = &model.Party{ID: *rID, Name: deref(rName), Surname: deref(rSurname), Email: deref(rEmail), ImageURL: deref(rImage)}
	}
	if cID != nil {
		it.Category = &model.Category{ID: *cID, Name: deref(cName), Color: deref(cColor), Icon: deref(cIcon), IsSystem: cSystem != nil && *cSystem}
	}
	return it, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Counts returns the sidebar counters of userID in one round trip.
func (r *EmailRepository) Counts(ctx context.Context, userID int) (model.MailboxCounts, error) {
	query := `
        SELECT
            COUNT(*) FILTER (WHERE ` + inboxCond + ` AND NOT e.is_read),
            COUNT(*) FILTER (WHERE ` + starredCond + `),
            COUNT(*) FILTER (WHERE ` + draftsCond + `),
            COUNT(*) FILTER (WHERE ` + inboxCond + `)
        FROM emails e
        WHERE e.sender_id = $1 OR e.receiver_id = $1
    `
	var c model.MailboxCounts
	err := r.db.QueryRow(ctx, query, userID).Scan(&c.Unread, &c.Starred, &c.Drafts, &c.Inbox)
	return c, err
}

// CountUnread is the receiver's unread inbox count.
func (r *EmailRepository) CountUnread(ctx context.Context, userID int) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM emails e WHERE `+inboxCond+` AND NOT e.is_read`, userID,
	).Scan(&n)
	return n, err
}

func (r *EmailRepository) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
