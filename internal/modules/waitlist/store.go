package waitlist

import (
	"context"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/scanledger/waitlist/internal/models"
	"gorm.io/gorm"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// Store persists waitlist signups.
type Store interface {
	// FindActiveByEmail returns nil, nil when no active signup exists.
	FindActiveByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error)
	// Create inserts rec and fills its id and timestamps. A unique violation
	// on email is reported as ErrDuplicateEmail.
	Create(ctx context.Context, rec *models.WaitlistSignup) error
	// MarkNotified sets email_sent and refreshes updated_at.
	MarkNotified(ctx context.Context, rec *models.WaitlistSignup) error
}

type gormStore struct{ db *gorm.DB }

// NewStore returns a Store backed by db.
func NewStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) FindActiveByEmail(ctx context.Context, email string) (*models.WaitlistSignup, error) {
	var rec models.WaitlistSignup
	err := s.db.WithContext(ctx).
		Where("email = ? AND is_active = ?", email, true).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) Create(ctx context.Context, rec *models.WaitlistSignup) error {
	err := s.db.WithContext(ctx).Create(rec).Error
	if isDuplicateKey(err) {
		return ErrDuplicateEmail
	}
	return err
}

func (s *gormStore) MarkNotified(ctx context.Context, rec *models.WaitlistSignup) error {
	return s.db.WithContext(ctx).Model(rec).Update("email_sent", true).Error
}

// isDuplicateKey reports whether err is a unique constraint violation.
// TranslateError covers most drivers; the rest are matched by code or text.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}
