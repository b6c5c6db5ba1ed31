package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/scanledger/waitlist/internal/database"
	"github.com/scanledger/waitlist/internal/models"
	"github.com/scanledger/waitlist/internal/pkg/metrics"
	"github.com/scanledger/waitlist/internal/pkg/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(sqlite.Open(filepath.Join(t.TempDir(), "waitlist.db")), logger.Silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

// inlineDispatcher runs tasks synchronously and remembers their errors.
type inlineDispatcher struct {
	mu     sync.Mutex
	types  []string
	errs   []error
	refuse error
}

func (d *inlineDispatcher) Submit(taskType string, fn taskqueue.Func) (string, error) {
	if d.refuse != nil {
		return "", d.refuse
	}
	err := fn(context.Background())
	d.mu.Lock()
	defer d.mu.Unlock()
	d.types = append(d.types, taskType)
	d.errs = append(d.errs, err)
	return "task-" + taskType, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []string
	names []string
	err   error
}

func (n *recordingNotifier) SendConfirmation(ctx context.Context, email, name string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, email)
	n.names = append(n.names, name)
	return n.err
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *inlineDispatcher, *recordingNotifier, *metrics.Metrics) {
	db := openTestDB(t)
	d := &inlineDispatcher{}
	n := &recordingNotifier{}
	m := metrics.New()
	return NewService(NewStore(db), d, n, zap.NewNop(), m), db, d, n, m
}

func countByEmail(t *testing.T, db *gorm.DB, email string) int64 {
	var n int64
	require.NoError(t, db.Model(&models.WaitlistSignup{}).Where("email = ?", email).Count(&n).Error)
	return n
}

func TestSubmitCreatesAndNotifies(t *testing.T) {
	svc, db, d, n, m := newTestService(t)
	company := "Analytical Engines"

	rec, err := svc.Submit(context.Background(), SignupInput{Name: "Ada", Email: "ada@example.com", Company: &company})
	require.NoError(t, err)

	assert.NotZero(t, rec.ID)
	assert.True(t, rec.EmailSent)
	assert.True(t, rec.IsActive)
	assert.False(t, rec.CreatedAt.IsZero())
	assert.Equal(t, []string{"ada@example.com"}, n.sent)
	assert.Equal(t, []string{"Ada"}, n.names)
	assert.Equal(t, []string{TaskTypeConfirmation}, d.types)

	var stored models.WaitlistSignup
	require.NoError(t, db.First(&stored, rec.ID).Error)
	assert.True(t, stored.EmailSent)
	require.NotNil(t, stored.Company)
	assert.Equal(t, company, *stored.Company)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signups.WithLabelValues(metrics.SignupCreated)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.NotificationSent)))
}

func TestSubmitDuplicate(t *testing.T) {
	svc, db, _, n, m := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SignupInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, SignupInput{Name: "Ada again", Email: " ada@example.com "})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	assert.Equal(t, int64(1), countByEmail(t, db, "ada@example.com"))
	assert.Len(t, n.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signups.WithLabelValues(metrics.SignupDuplicate)))
}

func TestSubmitEmailMatchIsExact(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SignupInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, SignupInput{Name: "Ada", Email: "ada+beta@example.com"})
	assert.NoError(t, err)
}

func TestSubmitConcurrentSameEmail(t *testing.T) {
	svc, db, _, _, _ := newTestService(t)

	const workers = 2
	errs := make([]error, workers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Submit(context.Background(), SignupInput{Name: "Grace", Email: "grace@example.com"})
		}(i)
	}
	close(start)
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateEmail):
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
	assert.Equal(t, int64(1), countByEmail(t, db, "grace@example.com"))
}

// missingStore hides existing rows from the pre-check so every insert
// reaches the unique index.
type missingStore struct{ Store }

func (missingStore) FindActiveByEmail(context.Context, string) (*models.WaitlistSignup, error) {
	return nil, nil
}

func TestSubmitUniqueIndexPastPreCheck(t *testing.T) {
	db := openTestDB(t)
	n := &recordingNotifier{}
	m := metrics.New()
	svc := NewService(missingStore{NewStore(db)}, &inlineDispatcher{}, n, zap.NewNop(), m)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SignupInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, SignupInput{Name: "Ada", Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	assert.Equal(t, int64(1), countByEmail(t, db, "ada@example.com"))
	assert.Len(t, n.sent, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signups.WithLabelValues(metrics.SignupDuplicate)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Signups.WithLabelValues(metrics.SignupError)))
}

func TestStoreCreateTranslatesUniqueViolation(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &models.WaitlistSignup{Name: "A", Email: "a@example.com", IsActive: true}))
	err := store.Create(ctx, &models.WaitlistSignup{Name: "B", Email: "a@example.com", IsActive: true})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestStoreFindIgnoresInactive(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	rec := &models.WaitlistSignup{Name: "A", Email: "a@example.com", IsActive: true}
	require.NoError(t, store.Create(ctx, rec))
	require.NoError(t, db.Model(rec).Update("is_active", false).Error)

	found, err := store.FindActiveByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSubmitInvalid(t *testing.T) {
	svc, _, _, n, m := newTestService(t)
	cases := []SignupInput{
		{Name: "", Email: "ada@example.com"},
		{Name: "   ", Email: "ada@example.com"},
		{Name: "Ada", Email: ""},
		{Name: "Ada", Email: "not-an-email"},
		{Name: "Ada", Email: "Ada <ada@example.com>"},
		{Name: "Ada", Email: "a@b"},
		{Name: "Ada", Email: "ada@localhost"},
	}
	for _, in := range cases {
		_, err := svc.Submit(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalidSignup, "input %+v", in)
	}
	assert.Empty(t, n.sent)
	assert.Equal(t, float64(len(cases)), testutil.ToFloat64(m.Signups.WithLabelValues(metrics.SignupInvalid)))
}

func TestSubmitQueueRefusedKeepsFlagFalse(t *testing.T) {
	svc, db, d, n, _ := newTestService(t)
	d.refuse = taskqueue.ErrQueueFull

	rec, err := svc.Submit(context.Background(), SignupInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.False(t, rec.EmailSent)
	assert.Empty(t, n.sent)

	var stored models.WaitlistSignup
	require.NoError(t, db.First(&stored, rec.ID).Error)
	assert.False(t, stored.EmailSent)
}

func TestSubmitMailFailureDoesNotRollBack(t *testing.T) {
	svc, db, d, n, m := newTestService(t)
	n.err = errors.New("smtp: connection refused")

	rec, err := svc.Submit(context.Background(), SignupInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.True(t, rec.EmailSent)
	require.Len(t, d.errs, 1)
	assert.Error(t, d.errs[0])
	assert.Equal(t, int64(1), countByEmail(t, db, "ada@example.com"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues(metrics.NotificationFailed)))
}

func TestSubmitWithRealQueue(t *testing.T) {
	db := openTestDB(t)
	n := &recordingNotifier{}
	q := taskqueue.New(zap.NewNop(), 1, 4, nil)
	q.Start()
	svc := NewService(NewStore(db), q, n, zap.NewNop(), nil)

	rec, err := svc.Submit(context.Background(), SignupInput{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.True(t, rec.EmailSent)

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, []string{"ada@example.com"}, n.sent)
}

func newTestRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func postJSON(r http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/waitlist", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandlerSignupScenario(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	r := newTestRouter(svc)

	first := postJSON(r, `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusOK, first.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &body))
	assert.Equal(t, true, body["email_sent"])
	assert.Equal(t, true, body["is_active"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Nil(t, body["company"])
	assert.NotZero(t, body["id"])
	assert.Contains(t, body, "created_at")
	assert.NotContains(t, body, "updated_at")

	second := postJSON(r, `{"name":"Ada","email":"ada@example.com"}`)
	require.Equal(t, http.StatusBadRequest, second.Code)
	var errBody map[string]interface{}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &errBody))
	assert.Equal(t, "Email already registered", errBody["message"])
	assert.Equal(t, float64(0), errBody["ok"])
}

func TestHandlerBadBody(t *testing.T) {
	svc, _, _, _, _ := newTestService(t)
	r := newTestRouter(svc)

	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{"email":"ada@example.com"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{"name":"Ada","email":"nope"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `{"name":"Ada","email":"ada@localhost"}`).Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(r, `not json`).Code)
}
