package admin

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailnight/internal/model"
	"mailnight/internal/repository"
)

type memUsers struct {
	users   map[int]*model.User
	deleted []int
}

func (m *memUsers) FindByID(_ context.Context, id int) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	cp.Roles = slices.Clone(u.Roles)
	return &cp, nil
}

func (m *memUsers) List(_ context.Context, offset, limit int) ([]model.AdminUser, int, error) {
	var out []model.AdminUser
	for id := 1; id <= len(m.users); id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, model.AdminUser{User: *u, EmailCount: id})
		}
	}
	total := len(out)
	if offset >= len(out) {
		return nil, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memUsers) AddRole(_ context.Context, id int, role string) error {
	m.users[id].Roles = append(m.users[id].Roles, role)
	slices.Sort(m.users[id].Roles)
	return nil
}

func (m *memUsers) RemoveRole(_ context.Context, id int, role string) error {
	m.users[id].Roles = slices.DeleteFunc(m.users[id].Roles, func(r string) bool { return r == role })
	return nil
}

func (m *memUsers) GetRoles(_ context.Context, id int) ([]string, error) {
	return slices.Clone(m.users[id].Roles), nil
}

func (m *memUsers) DeleteWithEmails(_ context.Context, id int) error {
	delete(m.users, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type fakeStats struct {
	daily      []model.DateCount
	dailySince time.Time
	dayStart   time.Time
	weekStart  time.Time
	catUser    int
}

func (f *fakeStats) SystemCounts(_ context.Context, dayStart, weekStart time.Time) (model.AdminOverview, error) {
	f.dayStart, f.weekStart = dayStart, weekStart
	return model.AdminOverview{TotalUsers: 3, TotalEmails: 9, EmailsToday: 2, ActiveSendersToday: 1}, nil
}

func (f *fakeStats) RecentUsers(context.Context, int) ([]model.User, error) {
	return []model.User{{ID: 3}}, nil
}

func (f *fakeStats) AccountCounts(context.Context, int) (int, int, int, error) {
	return 4, 5, 1, nil
}

func (f *fakeStats) DailyCounts(_ context.Context, since time.Time) ([]model.DateCount, error) {
	f.dailySince = since
	return f.daily, nil
}

func (f *fakeStats) CategoryCounts(_ context.Context, userID int) ([]model.CategoryStat, error) {
	f.catUser = userID
	return []model.CategoryStat{{Name: "Work", Count: 3}}, nil
}

func (f *fakeStats) TopSenders(_ context.Context, limit int) ([]model.SenderStat, error) {
	return make([]model.SenderStat, limit), nil
}

func (f *fakeStats) Totals(context.Context) (int, int, int, int, error) {
	return 3, 9, 2, 1, nil
}

type fakeEmails struct {
	filters []repository.ListFilter
	limits  []int
}

func (f *fakeEmails) List(_ context.Context, filter repository.ListFilter, _, limit int) ([]model.EmailListItem, int, error) {
	f.filters = append(f.filters, filter)
	f.limits = append(f.limits, limit)
	return []model.EmailListItem{{ID: 1, Preview: strings.Repeat("x", 100)}}, 1, nil
}

type fakeFiles struct {
	paths   []string
	removed []string
}

func (f *fakeFiles) PathsByUser(context.Context, int) ([]string, error) { return f.paths, nil }

func (f *fakeFiles) Remove(p string) error {
	f.removed = append(f.removed, p)
	return nil
}

type fixture struct {
	svc    *Service
	users  *memUsers
	stats  *fakeStats
	emails *fakeEmails
	files  *fakeFiles
}

var now = time.Date(2024, 5, 15, 15, 30, 0, 0, time.UTC)

func newFixture() *fixture {
	f := &fixture{
		users: &memUsers{users: map[int]*model.User{
			1: {ID: 1, Name: "Root", Roles: []string{"admin", "user"}},
			2: {ID: 2, Name: "Bob", Roles: []string{"user"}},
			3: {ID: 3, Name: "Cid", Roles: []string{"user"}},
		}},
		stats:  &fakeStats{},
		emails: &fakeEmails{},
		files:  &fakeFiles{paths: []string{"/uploads/attachments/a.pdf"}},
	}
	f.svc = NewService(f.users, f.stats, f.emails, f.files, f.files, nil)
	f.svc.now = func() time.Time { return now }
	return f
}

func TestOverview(t *testing.T) {
	f := newFixture()

	o, err := f.svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, o.TotalEmails)
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), f.stats.dayStart)
	assert.Equal(t, now.AddDate(0, 0, -7), f.stats.weekStart)
	assert.Len(t, o.RecentUsers, 1)
	require.Len(t, o.RecentEmails, 1)
	assert.Equal(t, repository.BoxAll, f.emails.filters[0].Box)
	assert.Equal(t, 10, f.emails.limits[0])
	assert.Equal(t, strings.Repeat("x", 80)+"...", o.RecentEmails[0].Preview)
}

func TestUsersMarksEveryoneActive(t *testing.T) {
	f := newFixture()

	page, err := f.svc.Users(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 3)
	for _, u := range page.Items {
		assert.True(t, u.IsActive)
	}

	page, err = f.svc.Users(context.Background(), 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestUserDetail(t *testing.T) {
	f := newFixture()

	d, err := f.svc.UserDetail(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, "Bob", d.User.Name)
	assert.Equal(t, 4, d.SentCount)
	assert.Equal(t, 5, d.ReceivedCount)
	assert.Equal(t, 1, d.DraftCount)
	assert.Equal(t, repository.ListFilter{Box: repository.BoxUser, UserID: 2}, f.emails.filters[0])

	_, err = f.svc.UserDetail(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestToggleRole(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	roles, err := f.svc.ToggleRole(ctx, 1, 2, "Admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"admin", "user"}, roles)

	roles, err = f.svc.ToggleRole(ctx, 1, 2, "admin")
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, roles)

	_, err = f.svc.ToggleRole(ctx, 1, 1, "admin")
	assert.ErrorIs(t, err, ErrSelfDemote)
	assert.Contains(t, f.users.users[1].Roles, "admin")

	_, err = f.svc.ToggleRole(ctx, 1, 2, "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = f.svc.ToggleRole(ctx, 1, 42, "user")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestDeleteUser(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, 1, 1), ErrSelfDelete)
	assert.ErrorIs(t, f.svc.DeleteUser(ctx, 1, 42), ErrUserNotFound)
	assert.Empty(t, f.users.deleted)

	require.NoError(t, f.svc.DeleteUser(ctx, 1, 2))
	assert.Equal(t, []int{2}, f.users.deleted)
	assert.Equal(t, []string{"/uploads/attachments/a.pdf"}, f.files.removed)
}

func TestEmailsIncludesDraftsAndSearches(t *testing.T) {
	f := newFixture()

	page, err := f.svc.Emails(context.Background(), 3, "  invoice ")
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 25, page.PageSize)
	assert.Equal(t, repository.ListFilter{Box: repository.BoxAll, Query: "invoice"}, f.emails.filters[0])
}

func TestStatisticsFillsSevenDays(t *testing.T) {
	f := newFixture()
	f.stats.daily = []model.DateCount{
		{Date: time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), Count: 2},
		{Date: time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), Count: 5},
	}

	st, err := f.svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), f.stats.dailySince)
	require.Len(t, st.Daily, 7)
	assert.Equal(t, 2, st.Daily[0].Count)
	assert.Equal(t, 0, st.Daily[3].Count)
	assert.Equal(t, 5, st.Daily[6].Count)
	assert.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), st.Daily[6].Date)
	assert.Equal(t, 0, f.stats.catUser)
	assert.Len(t, st.TopSenders, 5)
	assert.Equal(t, 3, st.TotalUsers)
	assert.Equal(t, 2, st.TotalDrafts)
}
