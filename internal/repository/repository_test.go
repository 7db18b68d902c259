package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailnight/internal/model"
	"mailnight/internal/testutil"
)

func createUser(t *testing.T, repo *UserRepository, name, email string, roles ...string) *model.User {
	t.Helper()
	if len(roles) == 0 {
		roles = []string{"user"}
	}
	u := &model.User{
		Name:         name,
		Surname:      "Test",
		UserName:     name,
		Email:        email,
		PasswordHash: "hash",
		Roles:        roles,
	}
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}

func sendEmail(t *testing.T, repo *EmailRepository, from, to int, subject string, categoryID int) *model.Email {
	t.Helper()
	summary := "summary of " + subject
	e := &model.Email{
		SenderID:   from,
		ReceiverID: &to,
		Subject:    subject,
		Body:       "<p>" + subject + " body</p>",
		AISummary:  &summary,
		CategoryID: &categoryID,
	}
	require.NoError(t, repo.Create(context.Background(), e))
	return e
}

func TestRepositories(t *testing.T) {
	pool := testutil.NewTestDB(t)

	t.Run("users", func(t *testing.T) { testUsers(t, pool) })
	t.Run("emails", func(t *testing.T) { testEmails(t, pool) })
	t.Run("attachments cascade", func(t *testing.T) { testAttachments(t, pool) })
	t.Run("stats", func(t *testing.T) { testStats(t, pool) })
	t.Run("delete user with emails", func(t *testing.T) { testDeleteUser(t, pool) })
	t.Run("notification log", func(t *testing.T) { testNotificationLog(t, pool) })
}

func testUsers(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	users := NewUserRepository(pool)

	u := createUser(t, users, "alice", "Alice@Example.com", "user", "admin")
	assert.NotZero(t, u.ID)

	found, err := users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, []string{"admin", "user"}, found.Roles)

	exists, err := users.ExistsByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	err = users.Create(ctx, &model.User{Name: "a", Surname: "b", UserName: "other", Email: "alice@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = users.FindByID(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, users.RemoveRole(ctx, u.ID, "admin"))
	roles, err := users.GetRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, roles)

	now := time.Now()
	require.NoError(t, users.UpdateLastLogin(ctx, u.ID, now))
	found, err = users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, found.LastLoginAt)
	assert.WithinDuration(t, now, *found.LastLoginAt, time.Second)
}

func testEmails(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	users := NewUserRepository(pool)
	emails := NewEmailRepository(pool)

	bob := createUser(t, users, "bob", "bob@example.com")
	carol := createUser(t, users, "carol", "carol@example.com")

	work := sendEmail(t, emails, bob.ID, carol.ID, "Quarterly report", 4)
	social := sendEmail(t, emails, bob.ID, carol.ID, "Party_time 100%", 2)
	draft := &model.Email{SenderID: bob.ID, Subject: "unfinished", IsDraft: true}
	require.NoError(t, emails.Create(ctx, draft))

	inbox, total, err := emails.List(ctx, ListFilter{Box: BoxInbox, UserID: carol.ID}, 0, 25)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, inbox, 2)
	assert.Equal(t, social.ID, inbox[0].ID, "newest first")
	assert.Equal(t, "bob", inbox[0].Sender.Name)
	require.NotNil(t, inbox[0].Category)
	assert.Equal(t, "Social", inbox[0].Category.Name)

	drafts, _, err := emails.List(ctx, ListFilter{Box: BoxDrafts, UserID: bob.ID}, 0, 25)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Nil(t, drafts[0].Receiver)

	byCategory, _, err := emails.List(ctx, ListFilter{Box: BoxCategory, UserID: carol.ID, CategoryID: 4}, 0, 25)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, work.ID, byCategory[0].ID)

	found, _, err := emails.List(ctx, ListFilter{Box: BoxSearch, UserID: bob.ID, Query: "QUARTERLY"}, 0, 25)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	found, _, err = emails.List(ctx, ListFilter{Box: BoxSearch, UserID: carol.ID, Query: "100%"}, 0, 25)
	require.NoError(t, err)
	assert.Len(t, found, 1, "wildcards in the query are literal")
	found, _, err = emails.List(ctx, ListFilter{Box: BoxSearch, UserID: carol.ID, Query: "work"}, 0, 25)
	require.NoError(t, err)
	assert.Len(t, found, 1, "matches category name")

	require.NoError(t, emails.MarkRead(ctx, work.ID, time.Now()))
	require.NoError(t, emails.SetStarred(ctx, social.ID, true))
	counts, err := emails.Counts(ctx, carol.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MailboxCounts{Unread: 1, Starred: 1, Drafts: 0, Inbox: 2}, counts)

	require.NoError(t, emails.SoftDelete(ctx, social.ID, false))
	inbox, _, err = emails.List(ctx, ListFilter{Box: BoxInbox, UserID: carol.ID}, 0, 25)
	require.NoError(t, err)
	assert.Len(t, inbox, 1)
	sent, _, err := emails.List(ctx, ListFilter{Box: BoxSent, UserID: bob.ID}, 0, 25)
	require.NoError(t, err)
	assert.Len(t, sent, 2, "receiver delete does not hide it from the sender")

	draft.Subject = "finished"
	draft.ReceiverID = &carol.ID
	require.NoError(t, emails.UpdateDraft(ctx, draft))
	reloaded, err := emails.FindByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "finished", reloaded.Subject)
	assert.True(t, reloaded.IsDraft)

	other := *draft
	other.SenderID = carol.ID
	assert.ErrorIs(t, emails.UpdateDraft(ctx, &other), ErrNotFound)
}

func testAttachments(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	users := NewUserRepository(pool)
	emails := NewEmailRepository(pool)
	attachments := NewAttachmentRepository(pool)

	dan := createUser(t, users, "dan", "dan@example.com")
	eve := createUser(t, users, "eve", "eve@example.com")
	e := sendEmail(t, emails, dan.ID, eve.ID, "files", 1)

	a := &model.Attachment{EmailID: e.ID, FileName: "a.pdf", StoredFileName: "x.pdf", FilePath: "/uploads/attachments/x.pdf", ContentType: "application/pdf", FileSize: 10}
	require.NoError(t, attachments.Create(ctx, a))

	list, err := attachments.ListByEmail(ctx, e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	paths, err := attachments.PathsByUser(ctx, eve.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/uploads/attachments/x.pdf"}, paths)

	require.NoError(t, emails.Delete(ctx, e.ID))
	_, err = attachments.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testStats(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	users := NewUserRepository(pool)
	emails := NewEmailRepository(pool)
	stats := NewStatsRepository(pool)

	fay := createUser(t, users, "fay", "fay@example.com")
	gus := createUser(t, users, "gus", "gus@example.com")
	sendEmail(t, emails, fay.ID, gus.ID, "one", 4)
	read := sendEmail(t, emails, fay.ID, gus.ID, "two", 4)
	sendEmail(t, emails, gus.ID, fay.ID, "three", 2)
	require.NoError(t, emails.MarkRead(ctx, read.ID, time.Now()))

	totals, err := stats.UserTotals(ctx, gus.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, totals.Received)
	assert.Equal(t, 1, totals.Sent)
	assert.Equal(t, 1, totals.Unread)
	assert.Equal(t, 1, totals.ReadReceived)

	received, sent, err := stats.Activity(ctx, gus.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, received, 2)
	assert.Len(t, sent, 1)

	cats, err := stats.CategoryCounts(ctx, gus.ID)
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Work", cats[0].Name)
	assert.Equal(t, 2, cats[0].Count)

	top, err := stats.TopSenders(ctx, 5)
	require.NoError(t, err)
	require.NotEmpty(t, top)

	daily, err := stats.DailyCounts(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.NotEmpty(t, daily)
}

func testDeleteUser(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	users := NewUserRepository(pool)
	emails := NewEmailRepository(pool)

	hal := createUser(t, users, "hal", "hal@example.com")
	ivy := createUser(t, users, "ivy", "ivy@example.com")
	e := sendEmail(t, emails, hal.ID, ivy.ID, "bye", 1)

	_, err := pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, hal.ID)
	assert.Error(t, err, "emails restrict user deletion")

	require.NoError(t, users.DeleteWithEmails(ctx, hal.ID))
	_, err = emails.FindByID(ctx, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = users.FindByID(ctx, hal.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, users.DeleteWithEmails(ctx, hal.ID), ErrNotFound)
}

func testNotificationLog(t *testing.T, pool *pgxpool.Pool) {
	ctx := context.Background()
	users := NewUserRepository(pool)
	emails := NewEmailRepository(pool)
	logs := NewNotificationLogRepository(pool)

	jo := createUser(t, users, "jo", "jo@example.com")
	kim := createUser(t, users, "kim", "kim@example.com")
	first := sendEmail(t, emails, jo.ID, kim.ID, "one", 1)
	second := sendEmail(t, emails, jo.ID, kim.ID, "two", 1)

	for _, e := range []*model.Email{first, second, first} {
		require.NoError(t, logs.Insert(ctx, &model.NotificationLog{UserID: kim.ID, EmailID: e.ID, Message: e.Subject}))
	}

	got, err := logs.ListByUser(ctx, kim.ID, 10)
	require.NoError(t, err)
	require.Len(t, got, 2, "redelivered insert is ignored")
	assert.Equal(t, second.ID, got[0].EmailID)

	none, err := logs.ListByUser(ctx, jo.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
