package mail

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	mqcontracts "mailnight/contracts/mq"
	"mailnight/internal/analysis"
	"mailnight/internal/model"
	"mailnight/internal/repository"
	"mailnight/internal/storage"
)

type fakeEmails struct {
	rows      map[int]*model.Email
	nextID    int
	listItems []model.EmailListItem
	listCalls int
	lastLimit int
	softDel   []string
	unread    int
}

func newFakeEmails() *fakeEmails {
	return &fakeEmails{rows: map[int]*model.Email{}, nextID: 1}
}

func (f *fakeEmails) Create(_ context.Context, e *model.Email) error {
	e.ID = f.nextID
	e.CreatedAt = time.Now()
	f.nextID++
	cp := *e
	f.rows[e.ID] = &cp
	return nil
}

func (f *fakeEmails) FindByID(_ context.Context, id int) (*model.Email, error) {
	e, ok := f.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeEmails) UpdateDraft(_ context.Context, e *model.Email) error {
	row, ok := f.rows[e.ID]
	if !ok || row.SenderID != e.SenderID || !row.IsDraft || row.IsDeleted {
		return repository.ErrNotFound
	}
	row.ReceiverID, row.Subject, row.Body = e.ReceiverID, e.Subject, e.Body
	return nil
}

func (f *fakeEmails) UpdateAnalysis(_ context.Context, id int, summary string, categoryID int) error {
	row := f.rows[id]
	row.AISummary, row.CategoryID = &summary, &categoryID
	return nil
}

func (f *fakeEmails) UpdateSummary(_ context.Context, id int, summary string) error {
	f.rows[id].AISummary = &summary
	return nil
}

func (f *fakeEmails) MarkRead(_ context.Context, id int, at time.Time) error {
	f.rows[id].IsRead = true
	f.rows[id].ReadAt = &at
	return nil
}

func (f *fakeEmails) SetStarred(_ context.Context, id int, starred bool) error {
	f.rows[id].IsStarred = starred
	return nil
}

func (f *fakeEmails) SoftDelete(_ context.Context, id int, asSender bool) error {
	if asSender {
		f.rows[id].SenderDeleted = true
		f.softDel = append(f.softDel, "sender")
	} else {
		f.rows[id].ReceiverDeleted = true
		f.softDel = append(f.softDel, "receiver")
	}
	return nil
}

func (f *fakeEmails) List(_ context.Context, _ repository.ListFilter, _, limit int) ([]model.EmailListItem, int, error) {
	f.listCalls++
	f.lastLimit = limit
	items := append([]model.EmailListItem(nil), f.listItems...)
	return items, len(items), nil
}

func (f *fakeEmails) Counts(context.Context, int) (model.MailboxCounts, error) {
	return model.MailboxCounts{Unread: f.unread}, nil
}

func (f *fakeEmails) CountUnread(context.Context, int) (int, error) {
	return f.unread, nil
}

type fakeUsers map[int]*model.User

func (f fakeUsers) FindByID(_ context.Context, id int) (*model.User, error) {
	if u, ok := f[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (f fakeUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeCategories struct{}

func (fakeCategories) FindByID(_ context.Context, id int) (*model.Category, error) {
	if !analysis.IsSystemCategory(id) {
		return nil, repository.ErrNotFound
	}
	c := analysis.SystemCategories[id-1]
	return &model.Category{ID: c.ID, Name: c.Name, Color: c.Color, Icon: c.Icon, IsSystem: true}, nil
}

type fakeAttachments struct {
	rows []model.Attachment
}

func (f *fakeAttachments) Create(_ context.Context, a *model.Attachment) error {
	a.ID = len(f.rows) + 1
	f.rows = append(f.rows, *a)
	return nil
}

func (f *fakeAttachments) FindByID(_ context.Context, id int) (*model.Attachment, error) {
	for _, a := range f.rows {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAttachments) ListByEmail(_ context.Context, emailID int) ([]model.Attachment, error) {
	var out []model.Attachment
	for _, a := range f.rows {
		if a.EmailID == emailID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeFiles struct {
	files map[string][]byte
	saves int
	n     int
}

func newFakeFiles() *fakeFiles { return &fakeFiles{files: map[string][]byte{}} }

func (f *fakeFiles) Save(dir, originalName string, r io.Reader) (storage.SavedFile, error) {
	f.saves++
	f.n++
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.SavedFile{}, err
	}
	name := fmt.Sprintf("file-%d-%s", f.n, originalName)
	p := "/uploads/" + dir + "/" + name
	f.files[p] = data
	return storage.SavedFile{StoredName: name, Path: p, Size: int64(len(data))}, nil
}

func (f *fakeFiles) Open(p string) (io.ReadCloser, error) {
	data, ok := f.files[p]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFiles) Remove(p string) error {
	delete(f.files, p)
	return nil
}

type fakeAnalyzer struct {
	result    model.AnalysisResult
	analyzes  int
	summaries int
	replies   []string
}

func (f *fakeAnalyzer) Analyze(context.Context, string, string) model.AnalysisResult {
	f.analyzes++
	return f.result
}

func (f *fakeAnalyzer) Summarize(_ context.Context, subject, _ string) string {
	f.summaries++
	return "summary of " + subject
}

func (f *fakeAnalyzer) GenerateReply(_ context.Context, _, _, tone string) string {
	f.replies = append(f.replies, tone)
	return "reply in " + tone
}

type fakeNotifier struct {
	sent   []mqcontracts.EmailSentPayload
	unread map[int]int
	err    error
}

func (f *fakeNotifier) EmailSent(_ context.Context, p mqcontracts.EmailSentPayload) error {
	f.sent = append(f.sent, p)
	return f.err
}

func (f *fakeNotifier) UnreadCount(_ context.Context, userID, count int) error {
	if f.unread == nil {
		f.unread = map[int]int{}
	}
	f.unread[userID] = count
	return f.err
}

type fixture struct {
	svc         *Service
	emails      *fakeEmails
	attachments *fakeAttachments
	files       *fakeFiles
	analyzer    *fakeAnalyzer
	notifier    *fakeNotifier
}

const (
	alice = 1
	bob   = 2
	carol = 3
)

func newFixture(maxUpload int64) *fixture {
	f := &fixture{
		emails:      newFakeEmails(),
		attachments: &fakeAttachments{},
		files:       newFakeFiles(),
		analyzer: &fakeAnalyzer{result: model.AnalysisResult{
			Summary: "A meeting request.", CategoryID: analysis.CategoryWork, CategoryName: "Work", Priority: 3,
		}},
		notifier: &fakeNotifier{},
	}
	users := fakeUsers{
		alice: {ID: alice, Name: "Alice", Surname: "Smith", Email: "alice@example.com"},
		bob:   {ID: bob, Name: "Bob", Surname: "Jones", Email: "bob@example.com"},
		carol: {ID: carol, Name: "Carol", Surname: "White", Email: "carol@example.com"},
	}
	f.svc = NewService(Deps{
		Emails:             f.emails,
		Users:              users,
		Categories:         fakeCategories{},
		Attachments:        f.attachments,
		Files:              f.files,
		Analyzer:           f.analyzer,
		Notifier:           f.notifier,
		MaxAttachmentBytes: maxUpload,
	})
	return f
}
