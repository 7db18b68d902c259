package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"mailnight/internal/model"
)

type AttachmentRepository struct {
	db *pgxpool.Pool
}

func NewAttachmentRepository(db *pgxpool.Pool) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

const attachmentColumns = `id, email_id, file_name, stored_file_name, file_path, content_type, file_size, uploaded_at`

// Create inserts a and fills in ID and UploadedAt.
func (r *AttachmentRepository) Create(ctx context.Context, a *model.Attachment) error {
	query := `
        INSERT INTO email_attachments (email_id, file_name, stored_file_name, file_path, content_type, file_size)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, uploaded_at
    `
	err := r.db.QueryRow(ctx, query,
		a.EmailID, a.FileName, a.StoredFileName, a.FilePath, a.ContentType, a.FileSize,
	).Scan(&a.ID, &a.UploadedAt)
	return translate(err)
}

func (r *AttachmentRepository) FindByID(ctx context.Context, id int) (*model.Attachment, error) {
	var a model.Attachment
	err := r.db.QueryRow(ctx, `SELECT `+attachmentColumns+` FROM email_attachments WHERE id = $1`, id).Scan(
		&a.ID, &a.EmailID, &a.FileName, &a.StoredFileName, &a.FilePath, &a.ContentType, &a.FileSize, &a.UploadedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AttachmentRepository) ListByEmail(ctx context.Context, emailID int) ([]model.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM email_attachments WHERE email_id = $1 ORDER BY id`
	rows, err := r.db.Query(ctx, query, emailID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Attachment{}
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.EmailID, &a.FileName, &a.StoredFileName, &a.FilePath, &a.ContentType, &a.FileSize, &a.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// PathsByUser lists the stored paths of attachments on mail userID sent or
// received, so files can be removed along with the account.
func (r *AttachmentRepository) PathsByUser(ctx context.Context, userID int) ([]string, error) {
	query := `
        SELECT a.file_path
        FROM email_attachments a
        JOIN emails e ON e.id = a.email_id
        WHERE e.sender_id = $1 OR e.receiver_id = $1
    `
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}
