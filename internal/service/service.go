package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/apperr"
	"github.com/Leganyst/slot-scheduler/internal/model"
	"github.com/Leganyst/slot-scheduler/internal/repository"
	"github.com/Leganyst/slot-scheduler/internal/token"
)

const (
	maxNameLen    = 255
	maxContactLen = 255
	// Сколько часовых слотов можно создать одним запросом.
	MaxBulkSlots = 24
)

// SchedulingService: события, слоты и бронирования. Все мутации проходят
// через транзакцию Store и проверку секретного токена.
type SchedulingService struct {
	store  *repository.Store
	tokens token.Generator
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*SchedulingService)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *SchedulingService) { s.now = now }
}

func WithTokenGenerator(g token.Generator) Option {
	return func(s *SchedulingService) { s.tokens = g }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *SchedulingService) { s.logger = l }
}

func NewSchedulingService(store *repository.Store, opts ...Option) *SchedulingService {
	s := &SchedulingService{
		store:  store,
		tokens: token.NewGenerator(),
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now: текущее время по часам сервиса.
func (s *SchedulingService) Now() time.Time {
	return s.now()
}

func (s *SchedulingService) newToken(kind token.Kind) (string, error) {
	t, err := s.tokens.Generate(kind)
	if err != nil {
		return "", apperr.Wrap(apperr.CodeInternal, "generate token", err)
	}
	return t, nil
}

// mapStoreError переводит ошибки GORM/драйвера в доменные.
// Уже типизированные ошибки проходят как есть.
func mapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.Wrap(apperr.CodeNotFound, op+": not found", err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Wrap(apperr.CodeConflict, op+": duplicate key", err)
	default:
		return apperr.Wrap(apperr.CodeUpstreamUnavailable, op, err)
	}
}

// retryRead повторяет идемпотентное чтение один раз при недоступности хранилища.
func retryRead[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !errors.Is(err, apperr.ErrUpstreamUnavailable) || ctx.Err() != nil {
		return v, err
	}
	return fn(ctx)
}

// tokensEqual сравнивает секреты за постоянное время.
func tokensEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

// parseID: кривой UUID неотличим от отсутствующей записи.
func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.ErrNotFound
	}
	return id, nil
}

func checkTokenShape(kind token.Kind, raw string) error {
	if !token.Valid(kind, raw) {
		return apperr.ErrNotFound
	}
	return nil
}

func requireName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", apperr.New(apperr.CodeInvalidInput, field+" is required")
	}
	if len([]rune(v)) > maxNameLen {
		return "", apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("%s must be at most %d characters", field, maxNameLen))
	}
	return v, nil
}

// optionalText: пустая строка после trim превращается в nil.
func optionalText(field string, v *string, max int) (*string, error) {
	if v == nil {
		return nil, nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil, nil
	}
	if max > 0 && len([]rune(t)) > max {
		return nil, apperr.New(apperr.CodeInvalidInput, fmt.Sprintf("%s must be at most %d characters", field, max))
	}
	return &t, nil
}

func auditEntry(eventID uuid.UUID, action model.AuditAction, target model.AuditTarget, targetID uuid.UUID, meta map[string]any) *model.AuditLog {
	entry := &model.AuditLog{
		EventID:    &eventID,
		Action:     action,
		TargetType: &target,
		TargetID:   &targetID,
	}
	if len(meta) > 0 {
		if raw, err := json.Marshal(meta); err == nil {
			entry.Meta = datatypes.JSON(raw)
		}
	}
	return entry
}

func (s *SchedulingService) logError(op string, err error, args ...any) {
	code := apperr.CodeOf(err)
	switch code {
	case apperr.CodeUpstreamUnavailable, apperr.CodeInternal:
		s.logger.Error("Scheduling:"+op+":Error", append(args, "code", code, "err", err)...)
	default:
		s.logger.Debug("Scheduling:"+op+":Rejected", append(args, "code", code, "err", err)...)
	}
}
