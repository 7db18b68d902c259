package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

type Email struct {
	ID              int        `json:"id"`
	SenderID        int        `json:"sender_id"`
	ReceiverID      *int       `json:"receiver_id,omitempty"`
	Subject         string     `json:"subject"`
	Body            string     `json:"body"`
	AISummary       *string    `json:"ai_summary,omitempty"`
	CategoryID      *int       `json:"category_id,omitempty"`
	IsRead          bool       `json:"is_read"`
	IsStarred       bool       `json:"is_starred"`
	IsDraft         bool       `json:"is_draft"`
	IsDeleted       bool       `json:"is_deleted"`
	SenderDeleted   bool       `json:"sender_deleted"`
	ReceiverDeleted bool       `json:"receiver_deleted"`
	CreatedAt       time.Time  `json:"created_at"`
	ReadAt          *time.Time `json:"read_at,omitempty"`
	ScheduledAt     *time.Time `json:"scheduled_at,omitempty"`
}

// IsParty reports whether userID sent or received e.
func (e *Email) IsParty(userID int) bool {
	return e.SenderID == userID || e.IsReceiver(userID)
}

func (e *Email) IsReceiver(userID int) bool {
	return e.ReceiverID != nil && *e.ReceiverID == userID
}

type Attachment struct {
	ID             int       `json:"id"`
	EmailID        int       `json:"email_id"`
	FileName       string    `json:"file_name"`
	StoredFileName string    `json:"stored_file_name"`
	FilePath       string    `json:"-"`
	ContentType    string    `json:"content_type"`
	FileSize       int64     `json:"file_size"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// AnalysisResult is the outcome of one analysis request. Only Summary and
// CategoryID are written back onto the email.
type AnalysisResult struct {
	Summary      string   `json:"summary"`
	CategoryID   int      `json:"categoryId"`
	CategoryName string   `json:"categoryName"`
	Priority     int      `json:"priority"`
	Keywords     []string `json:"keywords"`
	Sentiment    string   `json:"sentiment"`
}

// Party is the public view of a sender or receiver.
type Party struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Surname  string `json:"surname"`
	Email    string `json:"email"`
	ImageURL string `json:"image_url,omitempty"`
}

func (p Party) FullName() string {
	if p.Surname == "" {
		return p.Name
	}
	return p.Name + " " + p.Surname
}

// Initials returns up to two upper-case initials, "?" when no name is set.
func (p Party) Initials() string {
	var b strings.Builder
	for _, part := range []string{p.Name, p.Surname} {
		if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(part)); r != utf8.RuneError {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "?"
	}
	return strings.ToUpper(b.String())
}

// EmailListItem is one row of a mailbox listing. Partner is the receiver in
// the sent view and the sender everywhere else.
type EmailListItem struct {
	ID              int       `json:"id"`
	Subject         string    `json:"subject"`
	Preview         string    `json:"preview"`
	Summary         string    `json:"summary,omitempty"`
	IsRead          bool      `json:"is_read"`
	IsStarred       bool      `json:"is_starred"`
	IsDraft         bool      `json:"is_draft"`
	CreatedAt       time.Time `json:"created_at"`
	Sender          Party     `json:"sender"`
	Receiver        *Party    `json:"receiver,omitempty"`
	Category        *Category `json:"category,omitempty"`
	AttachmentCount int       `json:"attachment_count"`
}

type EmailDetail struct {
	Email       Email        `json:"email"`
	Sender      Party        `json:"sender"`
	Receiver    *Party       `json:"receiver,omitempty"`
	Category    *Category    `json:"category,omitempty"`
	Attachments []Attachment `json:"attachments"`
}

type EmailPage struct {
	Items    []EmailListItem `json:"items"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
	Total    int             `json:"total"`
}

// TotalPages is at least 1 so an empty mailbox still has a first page.
func (p EmailPage) TotalPages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 1
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}

type MailboxCounts struct {
	Unread  int `json:"unread"`
	Starred int `json:"starred"`
	Drafts  int `json:"drafts"`
	Inbox   int `json:"inbox"`
}
