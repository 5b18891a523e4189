package admission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ms-admission/internal/apperrors"
	"ms-admission/internal/lock"
	"ms-admission/internal/logger"
	"ms-admission/internal/models"
	"ms-admission/internal/utils"
	"ms-admission/internal/validation"
)

const publishTimeout = 5 * time.Second

type EventPublisher interface {
	PublishEntryRecorded(ctx context.Context, event models.AdmissionEvent) error
}

type EventEmitter interface {
	Emit(event models.AdmissionEvent)
}

// Service runs one admission: validate, judge and record under the pass lock, then
// announce the recorded attempt.
type Service struct {
	Judge     *Judge
	Recorder  *Recorder
	Locker    lock.Locker
	Publisher EventPublisher
	Emitter   EventEmitter
	Logger    *logger.Logger
}

func NewService(judge *Judge, recorder *Recorder, locker lock.Locker, log *logger.Logger) *Service {
	return &Service{Judge: judge, Recorder: recorder, Locker: locker, Logger: log}
}

// Admit judges passNumber and records the attempt. Every verdict, OK or NG, yields exactly
// one stored entry log before Admit returns.
func (s *Service) Admit(ctx context.Context, passNumber string) (models.Verdict, *models.EntryLog, error) {
	if fe := validation.PassNumber(passNumber); fe != nil {
		return models.Verdict{}, nil, apperrors.Validation(fe.Message)
	}
	passNumber = strings.TrimSpace(passNumber)

	verdict, entry, err := s.judgeAndRecord(ctx, passNumber)
	if err != nil {
		s.Logger.Error("ADMISSION", fmt.Sprintf("%s: %v", passNumber, err))
		return models.Verdict{}, nil, err
	}

	s.Logger.LogAdmission(passNumber, string(entry.Result), entry.Comment)
	s.announce(ctx, entry)
	return verdict, entry, nil
}

func (s *Service) judgeAndRecord(ctx context.Context, passNumber string) (models.Verdict, *models.EntryLog, error) {
	unlock, err := s.Locker.Lock(ctx, passNumber)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindStorage) {
			return models.Verdict{}, nil, err
		}
		return models.Verdict{}, nil, apperrors.Storage("acquire pass lock", err)
	}
	defer unlock()

	verdict, err := s.Judge.Judge(ctx, passNumber)
	if err != nil {
		return models.Verdict{}, nil, err
	}

	entry, err := s.Recorder.RecordVerdict(ctx, passNumber, verdict)
	if err != nil {
		return models.Verdict{}, nil, err
	}
	return verdict, entry, nil
}

// announce is best effort; the attempt is already stored.
func (s *Service) announce(ctx context.Context, entry *models.EntryLog) {
	event := models.NewAdmissionEvent(utils.GenerateEventID(), entry)

	if s.Emitter != nil {
		s.Emitter.Emit(event)
	}
	if s.Publisher == nil {
		return
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.Publisher.PublishEntryRecorded(pubCtx, event); err != nil {
		s.Logger.Warn("KAFKA", fmt.Sprintf("Failed to publish admission event for %s: %v", entry.PassNumber, err))
	}
}
