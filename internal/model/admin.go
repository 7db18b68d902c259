package model

import "time"

type AdminOverview struct {
	TotalUsers         int `json:"total_users"`
	TotalEmails        int `json:"total_emails"`
	EmailsToday        int `json:"emails_today"`
	ActiveSendersToday int `json:"active_senders_today"`
	NewUsersThisWeek   int `json:"new_users_this_week"`
	TotalAttachments   int `json:"total_attachments"`

	RecentUsers  []User          `json:"recent_users"`
	RecentEmails []EmailListItem `json:"recent_emails"`
}

type AdminUser struct {
	User       User `json:"user"`
	EmailCount int  `json:"email_count"`
	IsActive   bool `json:"is_active"`
}

type AdminUserPage struct {
	Items    []AdminUser `json:"items"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Total    int         `json:"total"`
}

type AdminUserDetail struct {
	User          User            `json:"user"`
	SentCount     int             `json:"sent_count"`
	ReceivedCount int             `json:"received_count"`
	DraftCount    int             `json:"draft_count"`
	RecentEmails  []EmailListItem `json:"recent_emails"`
}

type SenderStat struct {
	User  Party `json:"user"`
	Count int   `json:"count"`
}

type DateCount struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

type AdminStatistics struct {
	Daily            []DateCount    `json:"daily"`
	Categories       []CategoryStat `json:"categories"`
	TopSenders       []SenderStat   `json:"top_senders"`
	TotalUsers       int            `json:"total_users"`
	TotalEmails      int            `json:"total_emails"`
	TotalDrafts      int            `json:"total_drafts"`
	TotalAttachments int            `json:"total_attachments"`
}
