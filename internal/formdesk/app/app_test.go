package app_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"formdesk/internal/formdesk/adapters/memory"
	"formdesk/internal/formdesk/app"
	"formdesk/internal/formdesk/domain/entities"
	"formdesk/internal/formdesk/domain/validation"
	"formdesk/internal/formdesk/ports/repositories"
	"formdesk/internal/formdesk/ports/sessions"
)

var errStoreDown = errors.New("connection refused")

type mockRecordStore struct {
	mock.Mock
}

func (m *mockRecordStore) Insert(ctx context.Context, rec *entities.Record) (*entities.StoredRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.StoredRecord), args.Error(1)
}

func (m *mockRecordStore) Select(ctx context.Context, limit int) ([]*entities.StoredRecord, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.StoredRecord), args.Error(1)
}

func (m *mockRecordStore) Update(ctx context.Context, id int64, patch entities.Patch) (int64, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRecordStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ repositories.RecordStore = (*mockRecordStore)(nil)

// flakySessions оборачивает хранилище в памяти и возвращает ошибки на заданных вызовах Update.
type flakySessions struct {
	*memory.SessionStore

	mu      sync.Mutex
	calls   int
	failOn  map[int]error
	deleted []string
}

func newFlakySessions(failOn map[int]error) *flakySessions {
	return &flakySessions{SessionStore: memory.NewSessionStore(0), failOn: failOn}
}

func (s *flakySessions) Update(ctx context.Context, id string, fn sessions.UpdateFunc) (*entities.Session, error) {
	s.mu.Lock()
	s.calls++
	err := s.failOn[s.calls]
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return s.SessionStore.Update(ctx, id, fn)
}

func (s *flakySessions) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	s.deleted = append(s.deleted, id)
	s.mu.Unlock()
	return s.SessionStore.Delete(ctx, id)
}

func validRecord() *entities.Record {
	return &entities.Record{
		Username:  "alice",
		Email:     "a@x.io",
		Address:   "1 Main",
		Phone:     "555",
		Password:  "secret1",
		Gender:    "f",
		Terms:     true,
		File:      "cv.pdf",
		Date:      "2024-01-01",
		Year:      1990,
		Expertise: []string{"go"},
	}
}

func storedPage(n int) []*entities.StoredRecord {
	page := make([]*entities.StoredRecord, n)
	for i := range page {
		rec := validRecord()
		page[i] = &entities.StoredRecord{ID: int64(i + 1), Record: *rec}
	}
	return page
}

type fixture struct {
	store      *mockRecordStore
	sessions   *memory.SessionStore
	submission *app.SubmissionUseCase
	browser    *app.BrowserUseCase
}

func newFixture() *fixture {
	store := new(mockRecordStore)
	sessionStore := memory.NewSessionStore(0)
	return &fixture{
		store:      store,
		sessions:   sessionStore,
		submission: app.NewSubmissionUseCase(store, sessionStore, validation.New()),
		browser:    app.NewBrowserUseCase(store, sessionStore, app.DefaultPageSize),
	}
}

func (f *fixture) mountReady(t *testing.T, sid string, page []*entities.StoredRecord) {
	t.Helper()
	f.store.On("Select", mock.Anything, app.DefaultPageSize).Return(page, nil).Once()
	sess, err := f.browser.Mount(context.Background(), sid)
	require.NoError(t, err)
	require.Equal(t, entities.FetchReady, sess.Browser.Status)
}

func TestSubmit_ValidRecord(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(2))

	token, err := f.submission.IssueToken(ctx, "s1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	rec := validRecord()
	f.store.On("Insert", mock.Anything, rec).Return(&entities.StoredRecord{ID: 99, Record: *rec}, nil).Once()

	res, err := f.submission.Submit(ctx, "s1", token, rec)
	require.NoError(t, err)
	assert.Empty(t, res.FieldErrors)
	assert.Equal(t, int64(99), res.Record.ID)
	assert.NotEmpty(t, res.Token)
	assert.NotEqual(t, token, res.Token)

	sess, err := f.browser.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchIdle, sess.Browser.Status, "next render must refetch")
	assert.Empty(t, sess.Browser.Records)
	assert.Equal(t, res.Token, sess.Form.Token)

	f.store.AssertExpectations(t)
}

func TestSubmit_InvalidRecordSkipsStore(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	token, err := f.submission.IssueToken(ctx, "s1")
	require.NoError(t, err)

	rec := validRecord()
	rec.Email = "not-an-email"
	rec.Password = "abc"

	res, err := f.submission.Submit(ctx, "s1", token, rec)
	require.NoError(t, err)
	assert.Equal(t, validation.Errors{
		"email":    validation.MsgInvalidEmail,
		"password": validation.MsgPasswordTooShort,
	}, res.FieldErrors)
	assert.Equal(t, token, res.Token, "token stays valid for the corrected resubmission")

	f.store.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSubmit_DuplicateTokenInsertsOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	token, err := f.submission.IssueToken(ctx, "s1")
	require.NoError(t, err)

	rec := validRecord()
	f.store.On("Insert", mock.Anything, rec).Return(&entities.StoredRecord{ID: 1, Record: *rec}, nil).Once()

	_, err = f.submission.Submit(ctx, "s1", token, rec)
	require.NoError(t, err)

	_, err = f.submission.Submit(ctx, "s1", token, rec)
	assert.ErrorIs(t, err, app.ErrDuplicateSubmission)

	_, err = f.submission.Submit(ctx, "s1", "", rec)
	assert.ErrorIs(t, err, app.ErrDuplicateSubmission)

	f.store.AssertNumberOfCalls(t, "Insert", 1)
}

func TestSubmit_StoreFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(1))

	token, err := f.submission.IssueToken(ctx, "s1")
	require.NoError(t, err)

	rec := validRecord()
	f.store.On("Insert", mock.Anything, rec).Return(nil, errStoreDown).Once()

	res, err := f.submission.Submit(ctx, "s1", token, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, app.ErrStore)
	assert.ErrorIs(t, err, errStoreDown)
	require.NotNil(t, res)
	assert.Empty(t, res.FieldErrors)
	assert.NotEmpty(t, res.Token)
	assert.NotEqual(t, token, res.Token)

	sess, err := f.browser.State(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchReady, sess.Browser.Status, "failed submit leaves the list untouched")
	assert.Len(t, sess.Browser.Records, 1)
}

func TestCreate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	t.Run("invalid", func(t *testing.T) {
		res, err := f.submission.Create(ctx, &entities.Record{})
		require.NoError(t, err)
		assert.Len(t, res.FieldErrors, 8)
	})

	t.Run("store failure", func(t *testing.T) {
		rec := validRecord()
		rec.Username = "failing"
		f.store.On("Insert", mock.Anything, rec).Return(nil, errStoreDown).Once()

		_, err := f.submission.Create(ctx, rec)
		assert.ErrorIs(t, err, app.ErrStore)
	})

	t.Run("success", func(t *testing.T) {
		rec := validRecord()
		f.store.On("Insert", mock.Anything, rec).Return(&entities.StoredRecord{ID: 5, Record: *rec}, nil).Once()

		res, err := f.submission.Create(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, int64(5), res.Record.ID)
	})
}

func TestMount_LoadsFirstPageOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	page := storedPage(10)
	f.store.On("Select", mock.Anything, 10).Return(page, nil).Once()

	sess, err := f.browser.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchReady, sess.Browser.Status)
	require.Len(t, sess.Browser.Records, 10)
	for i, r := range sess.Browser.Records {
		assert.Equal(t, page[i].ID, r.ID, "records keep store order")
	}

	sess, err = f.browser.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, sess.Browser.Records, 10)

	f.store.AssertNumberOfCalls(t, "Select", 1)
}

func TestMount_StoreFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.store.On("Select", mock.Anything, 10).Return(nil, errStoreDown).Once()

	sess, err := f.browser.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchFailed, sess.Browser.Status)
	assert.Equal(t, errStoreDown.Error(), sess.Browser.Error)
	assert.Empty(t, sess.Browser.Records)

	sess, err = f.browser.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchFailed, sess.Browser.Status, "no automatic retry")
	f.store.AssertNumberOfCalls(t, "Select", 1)
}

func TestMount_CancelledRequestStillSettlesState(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.store.On("Select", mock.Anything, 10).Return(nil, context.Canceled).Once().Run(func(mock.Arguments) {
		cancel()
	})

	sess, err := f.browser.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchFailed, sess.Browser.Status)

	for i := 0; i < 3; i++ {
		sess, err = f.browser.Mount(context.Background(), "s1")
		require.NoError(t, err)
		assert.NotEqual(t, entities.FetchLoading, sess.Browser.Status, "mount %d", i)
	}

	f.store.On("Select", mock.Anything, 10).Return(storedPage(2), nil).Once()
	sess, err = f.browser.Reload(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchReady, sess.Browser.Status)
	assert.Len(t, sess.Browser.Records, 2)
}

func TestMount_AbandonedLoadingIsFetchedAgain(t *testing.T) {
	errRedisDown := errors.New("redis: connection pool closed")
	store := new(mockRecordStore)
	sessionStore := newFlakySessions(map[int]error{2: errRedisDown})

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	browser := app.NewBrowserUseCase(store, sessionStore, app.DefaultPageSize,
		app.WithLoadingTimeout(10*time.Second),
		app.WithClock(func() time.Time { return now }))
	ctx := context.Background()

	store.On("Select", mock.Anything, 10).Return(storedPage(1), nil).Once()
	_, err := browser.Mount(ctx, "s1")
	require.ErrorIs(t, err, app.ErrSession)

	sess, err := browser.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchLoading, sess.Browser.Status, "fetch may still be in flight")
	store.AssertNumberOfCalls(t, "Select", 1)

	now = now.Add(10 * time.Second)
	store.On("Select", mock.Anything, 10).Return(storedPage(3), nil).Once()
	sess, err = browser.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchReady, sess.Browser.Status)
	assert.Len(t, sess.Browser.Records, 3)
	store.AssertNumberOfCalls(t, "Select", 2)
}

func TestReload_RefetchesReadyList(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(1))

	_, err := f.browser.SelectForEdit(ctx, "s1", 1)
	require.NoError(t, err)

	f.store.On("Select", mock.Anything, 10).Return(storedPage(4), nil).Once()
	sess, err := f.browser.Reload(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchReady, sess.Browser.Status)
	assert.Len(t, sess.Browser.Records, 4)
	assert.Nil(t, sess.Browser.Editing)
}

func TestIssueToken_DiscardsCorruptSession(t *testing.T) {
	store := new(mockRecordStore)
	sessionStore := newFlakySessions(map[int]error{
		1: fmt.Errorf("%w: unexpected end of JSON input", sessions.ErrSessionCorrupt),
	})
	submission := app.NewSubmissionUseCase(store, sessionStore, validation.New())

	token, err := submission.IssueToken(context.Background(), "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, []string{"s1"}, sessionStore.deleted)
}

func TestIssueToken_SessionFailure(t *testing.T) {
	store := new(mockRecordStore)
	sessionStore := newFlakySessions(map[int]error{1: sessions.ErrSessionConflict})
	submission := app.NewSubmissionUseCase(store, sessionStore, validation.New())

	_, err := submission.IssueToken(context.Background(), "s1")
	require.ErrorIs(t, err, app.ErrSession)
	assert.Empty(t, sessionStore.deleted)
}

func TestMount_DiscardsSupersededFetch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	stalePage := storedPage(3)
	freshPage := storedPage(1)

	// Пока первая загрузка в полете, сессия перезагружается и получает свежую страницу.
	f.store.On("Select", mock.Anything, 10).Return(stalePage, nil).Once().Run(func(mock.Arguments) {
		_, err := f.browser.Reload(ctx, "s1")
		require.NoError(t, err)
	})
	f.store.On("Select", mock.Anything, 10).Return(freshPage, nil).Once()

	sess, err := f.browser.Mount(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, entities.FetchReady, sess.Browser.Status)
	assert.Len(t, sess.Browser.Records, 1, "result of the superseded fetch is dropped")
}

func TestEdit_SuccessMergesDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(3))

	sess, err := f.browser.SelectForEdit(ctx, "s1", 2)
	require.NoError(t, err)
	require.NotNil(t, sess.Browser.Editing)
	assert.Equal(t, int64(2), sess.Browser.Editing.ID)

	sess, err = f.browser.EditField(ctx, "s1", 2, entities.FieldUsername, "Alicia")
	require.NoError(t, err)
	cached, _ := sess.Browser.Find(2)
	assert.Equal(t, "alice", cached.Username, "cache is untouched while editing")

	f.store.On("Update", mock.Anything, int64(2), mock.MatchedBy(func(p entities.Patch) bool {
		return len(p) == 11 && p[0].Name == entities.FieldUsername && p[0].Value == "Alicia"
	})).Return(int64(1), nil).Once()

	sess, err = f.browser.SubmitEdit(ctx, "s1", 2, nil)
	require.NoError(t, err)
	assert.Nil(t, sess.Browser.Editing)
	assert.Empty(t, sess.Browser.EditError)

	require.Len(t, sess.Browser.Records, 3)
	assert.Equal(t, "Alicia", sess.Browser.Records[1].Username)
	assert.Equal(t, int64(2), sess.Browser.Records[1].ID)
	assert.Equal(t, "alice", sess.Browser.Records[0].Username)

	f.store.AssertExpectations(t)
}

func TestEdit_SubmitAppliesValues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(1))

	_, err := f.browser.SelectForEdit(ctx, "s1", 1)
	require.NoError(t, err)

	f.store.On("Update", mock.Anything, int64(1), mock.Anything).Return(int64(1), nil).Once()

	sess, err := f.browser.SubmitEdit(ctx, "s1", 1, entities.Patch{
		{Name: entities.FieldExpertise, Value: "go,rust"},
		{Name: entities.FieldTerms, Value: "off"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "rust"}, sess.Browser.Records[0].Expertise)
	assert.False(t, sess.Browser.Records[0].Terms)
}

func TestEdit_FailureKeepsDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(2))

	_, err := f.browser.SelectForEdit(ctx, "s1", 1)
	require.NoError(t, err)

	f.store.On("Update", mock.Anything, int64(1), mock.Anything).Return(int64(0), errStoreDown).Once()

	sess, err := f.browser.SubmitEdit(ctx, "s1", 1, entities.Patch{{Name: entities.FieldEmail, Value: "b@x.io"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, app.ErrStore)
	require.NotNil(t, sess)

	require.NotNil(t, sess.Browser.Editing, "draft survives a failed save")
	v, _ := sess.Browser.Editing.Value(entities.FieldEmail)
	assert.Equal(t, "b@x.io", v)
	assert.Equal(t, errStoreDown.Error(), sess.Browser.EditError)
	assert.Equal(t, "a@x.io", sess.Browser.Records[0].Email)
}

func TestEdit_ZeroRowsIsNotFound(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(1))

	_, err := f.browser.SelectForEdit(ctx, "s1", 1)
	require.NoError(t, err)

	f.store.On("Update", mock.Anything, int64(1), mock.Anything).Return(int64(0), nil).Once()

	sess, err := f.browser.SubmitEdit(ctx, "s1", 1, nil)
	assert.ErrorIs(t, err, app.ErrRecordNotFound)
	assert.NotNil(t, sess.Browser.Editing)
}

func TestEdit_CancelDuringSaveDropsResult(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(1))

	_, err := f.browser.SelectForEdit(ctx, "s1", 1)
	require.NoError(t, err)

	f.store.On("Update", mock.Anything, int64(1), mock.Anything).Return(int64(1), nil).Once().Run(func(mock.Arguments) {
		_, err := f.browser.CancelEdit(ctx, "s1")
		require.NoError(t, err)
	})

	sess, err := f.browser.SubmitEdit(ctx, "s1", 1, entities.Patch{{Name: entities.FieldUsername, Value: "late"}})
	require.NoError(t, err)
	assert.Nil(t, sess.Browser.Editing)
	assert.Equal(t, "alice", sess.Browser.Records[0].Username)
}

func TestEdit_ReselectReplacesDraft(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(2))

	_, err := f.browser.SelectForEdit(ctx, "s1", 1)
	require.NoError(t, err)
	_, err = f.browser.EditField(ctx, "s1", 1, entities.FieldUsername, "unsaved")
	require.NoError(t, err)

	sess, err := f.browser.SelectForEdit(ctx, "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), sess.Browser.Editing.ID)
	assert.Equal(t, "alice", sess.Browser.Records[0].Username)

	_, err = f.browser.EditField(ctx, "s1", 1, entities.FieldUsername, "x")
	assert.ErrorIs(t, err, app.ErrNotEditing)
}

func TestEdit_Rejections(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(1))

	_, err := f.browser.SelectForEdit(ctx, "s1", 42)
	assert.ErrorIs(t, err, app.ErrRecordNotCached)

	_, err = f.browser.SubmitEdit(ctx, "s1", 1, nil)
	assert.ErrorIs(t, err, app.ErrNotEditing)

	_, err = f.browser.SelectForEdit(ctx, "s1", 1)
	require.NoError(t, err)

	_, err = f.browser.EditField(ctx, "s1", 1, entities.FieldID, "7")
	assert.ErrorIs(t, err, app.ErrUnknownField)

	_, err = f.browser.SubmitEdit(ctx, "s1", 1, entities.Patch{{Name: "created_at", Value: "x"}})
	assert.ErrorIs(t, err, app.ErrUnknownField)

	f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelEdit(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.mountReady(t, "s1", storedPage(1))

	_, err := f.browser.SelectForEdit(ctx, "s1", 1)
	require.NoError(t, err)
	_, err = f.browser.EditField(ctx, "s1", 1, entities.FieldUsername, "discard me")
	require.NoError(t, err)

	sess, err := f.browser.CancelEdit(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, sess.Browser.Editing)
	assert.Equal(t, "alice", sess.Browser.Records[0].Username)
	f.store.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	t.Run("rejects non-editable fields", func(t *testing.T) {
		err := f.browser.Update(ctx, 1, entities.Patch{{Name: entities.FieldID, Value: "2"}})
		assert.ErrorIs(t, err, app.ErrUnknownField)
	})

	t.Run("not found", func(t *testing.T) {
		f.store.On("Update", mock.Anything, int64(404), mock.Anything).Return(int64(0), nil).Once()
		err := f.browser.Update(ctx, 404, entities.Patch{{Name: entities.FieldUsername, Value: "x"}})
		assert.ErrorIs(t, err, app.ErrRecordNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		f.store.On("Update", mock.Anything, int64(500), mock.Anything).Return(int64(0), errStoreDown).Once()
		err := f.browser.Update(ctx, 500, entities.Patch{{Name: entities.FieldUsername, Value: "x"}})
		assert.ErrorIs(t, err, app.ErrStore)
	})

	t.Run("success", func(t *testing.T) {
		f.store.On("Update", mock.Anything, int64(1), mock.Anything).Return(int64(1), nil).Once()
		assert.NoError(t, f.browser.Update(ctx, 1, entities.Patch{{Name: entities.FieldUsername, Value: "x"}}))
	})
}

func TestList(t *testing.T) {
	f := newFixture()
	f.store.On("Select", mock.Anything, 10).Return(storedPage(2), nil).Once()

	records, err := f.browser.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
