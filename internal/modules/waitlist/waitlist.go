package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/scanledger/waitlist/internal/models"
	"github.com/scanledger/waitlist/internal/pkg/metrics"
	"github.com/scanledger/waitlist/internal/pkg/response"
	"github.com/scanledger/waitlist/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

const (
	// TaskTypeConfirmation labels confirmation mail tasks on the queue.
	TaskTypeConfirmation = "waitlist.confirmation"

	duplicateEmailMessage = "Email already registered"
)

// validate applies the same email rule as the HTTP binding.
var validate = validator.New()

var (
	ErrInvalidSignup  = errors.New("invalid signup")
	ErrDuplicateEmail = errors.New("email already registered")
)

// Dispatcher schedules work off the request path.
type Dispatcher interface {
	Submit(taskType string, fn taskqueue.Func) (string, error)
}

type SignupInput struct {
	Name    string
	Email   string
	Company *string
}

type Service struct {
	store      Store
	dispatcher Dispatcher
	notifier   Notifier
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewService(store Store, dispatcher Dispatcher, notifier Notifier, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger.Named("waitlist"),
		metrics:    m,
	}
}

// Submit registers a new signup and schedules its confirmation mail.
//
// email_sent is set once the mail task is queued, not when it is delivered.
// A refused task leaves it false without failing the signup.
func (s *Service) Submit(ctx context.Context, in SignupInput) (*models.WaitlistSignup, error) {
	rec, err := s.submit(ctx, in)
	switch {
	case err == nil:
		s.metrics.ObserveSignup(metrics.SignupCreated)
	case errors.Is(err, ErrDuplicateEmail):
		s.metrics.ObserveSignup(metrics.SignupDuplicate)
	case errors.Is(err, ErrInvalidSignup):
		s.metrics.ObserveSignup(metrics.SignupInvalid)
	default:
		s.metrics.ObserveSignup(metrics.SignupError)
	}
	return rec, err
}

func (s *Service) submit(ctx context.Context, in SignupInput) (*models.WaitlistSignup, error) {
	in, err := normalizeInput(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindActiveByEmail(ctx, in.Email)
	if err != nil {
		return nil, fmt.Errorf("lookup signup: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateEmail
	}

	rec := &models.WaitlistSignup{
		Name:      in.Name,
		Email:     in.Email,
		Company:   in.Company,
		IsActive:  true,
		EmailSent: false,
	}
	if err := s.store.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("create signup: %w", err)
	}

	log := s.logger.With(zap.Uint("signup_id", rec.ID), zap.String("email", rec.Email))
	taskID, err := s.dispatcher.Submit(TaskTypeConfirmation, s.confirmationTask(rec.Email, rec.Name))
	if err != nil {
		log.Warn("confirmation not scheduled", zap.Error(err))
		return rec, nil
	}
	log.Debug("confirmation scheduled", zap.String("task_id", taskID))

	if err := s.store.MarkNotified(ctx, rec); err != nil {
		log.Error("mark notified failed", zap.Error(err))
		return rec, nil
	}
	rec.EmailSent = true
	return rec, nil
}

func (s *Service) confirmationTask(email, name string) taskqueue.Func {
	return func(ctx context.Context) error {
		if err := s.notifier.SendConfirmation(ctx, email, name); err != nil {
			s.metrics.ObserveNotification(metrics.NotificationFailed)
			return fmt.Errorf("send confirmation to %s: %w", email, err)
		}
		s.metrics.ObserveNotification(metrics.NotificationSent)
		return nil
	}
}

func normalizeInput(in SignupInput) (SignupInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", ErrInvalidSignup)
	}
	if in.Email == "" {
		return in, fmt.Errorf("%w: email is required", ErrInvalidSignup)
	}
	if err := validate.Var(in.Email, "required,email"); err != nil {
		return in, fmt.Errorf("%w: email is not a valid address", ErrInvalidSignup)
	}
	if in.Company != nil {
		company := strings.TrimSpace(*in.Company)
		if company == "" {
			in.Company = nil
		} else {
			in.Company = &company
		}
	}
	return in, nil
}

type SignupDTO struct {
	Name    string  `json:"name"    binding:"required"`
	Email   string  `json:"email"   binding:"required,email"`
	Company *string `json:"company"`
}

type SignupResponse struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   *string   `json:"company"`
	IsActive  bool      `json:"is_active"`
	EmailSent bool      `json:"email_sent"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(rec *models.WaitlistSignup) SignupResponse {
	return SignupResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Email:     rec.Email,
		Company:   rec.Company,
		IsActive:  rec.IsActive,
		EmailSent: rec.EmailSent,
		CreatedAt: rec.CreatedAt,
	}
}

type Handler struct {
	svc     *Service
	metrics *metrics.Metrics
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, metrics: svc.metrics}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.POST("/waitlist", h.join)
}

func (h *Handler) join(c *gin.Context) {
	var dto SignupDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		h.metrics.ObserveSignup(metrics.SignupInvalid)
		response.BadRequest(c, err.Error())
		return
	}
	rec, err := h.svc.Submit(c.Request.Context(), SignupInput{
		Name:    dto.Name,
		Email:   dto.Email,
		Company: dto.Company,
	})
	switch {
	case errors.Is(err, ErrDuplicateEmail):
		response.BadRequest(c, duplicateEmailMessage)
		return
	case errors.Is(err, ErrInvalidSignup):
		response.BadRequest(c, err.Error())
		return
	case err != nil:
		response.InternalError(c, err)
		return
	}
	response.OK(c, toResponse(rec))
}
