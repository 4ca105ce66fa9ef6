package service

import (
	"context"
	"encoding/json"
	"time"

	"prompt-optimiser-be/internal/dto"
	"prompt-optimiser-be/internal/pkg/logger"
	"prompt-optimiser-be/internal/repository/memory"
	"prompt-optimiser-be/pkg/apperr"
	pktIdentity "prompt-optimiser-be/pkg/identity"
	"prompt-optimiser-be/pkg/optimiser"
	"prompt-optimiser-be/pkg/optimiser/orchestrator"
	"prompt-optimiser-be/pkg/optimiser/session"

	"github.com/google/uuid"
)

type ISessionService interface {
	Create(ctx context.Context, identity string) (*session.Snapshot, error)
	Get(ctx context.Context, id string) (*session.Snapshot, error)
	Delete(ctx context.Context, id string) error
	UpdateEntry(ctx context.Context, id string, req *dto.UpdateEntryRequest) (*session.Snapshot, error)
	SubmitCritique(ctx context.Context, id string, req *dto.SubmitCritiqueRequest) (*session.Snapshot, error)
	AnswerQuestion(ctx context.Context, id, questionID string, req *dto.AnswerQuestionRequest) (*session.Snapshot, error)
	Generate(ctx context.Context, id string) (*session.Snapshot, error)
	SwitchModel(ctx context.Context, id string, req *dto.SwitchModelRequest) (*session.Snapshot, error)
	EditInput(ctx context.Context, id string, req *dto.EditInputRequest) (*session.Snapshot, error)
	ImplementSuggestions(ctx context.Context, id string) (*session.Snapshot, error)
	Retry(ctx context.Context, id string) (*session.Snapshot, error)
	Reset(ctx context.Context, id string) (*session.Snapshot, error)
}

// orchestratorBackend runs a session's remote calls through the orchestrator
// under the identity that created the session.
type orchestratorBackend struct {
	orch     *orchestrator.Orchestrator
	identity string
}

func (b orchestratorBackend) Critique(ctx context.Context, req session.CritiqueRequest) (map[string]any, error) {
	return b.orch.HandleFor(ctx, b.identity, orchestrator.Request{
		Mode:           optimiser.ModeCritique,
		Vendor:         req.Vendor,
		Model:          req.Model,
		InputText:      req.InputText,
		EntryMode:      req.EntryMode,
		ProblemContext: req.ProblemContext,
	})
}

func (b orchestratorBackend) Generate(ctx context.Context, req session.GenerateRequest) (map[string]any, error) {
	return b.orch.HandleFor(ctx, b.identity, orchestrator.Request{
		Mode:              optimiser.ModeGenerate,
		Vendor:            req.Vendor,
		Model:             req.Model,
		InputText:         req.InputText,
		AdditionalContext: req.AdditionalContext,
		ProblemContext:    req.ProblemContext,
	})
}

type sessionService struct {
	repo         *memory.SessionRepository
	orchestrator *orchestrator.Orchestrator
	publisher    IPublisherService
	debounce     time.Duration
	logger       logger.ILogger
}

func NewSessionService(
	repo *memory.SessionRepository,
	orch *orchestrator.Orchestrator,
	publisher IPublisherService,
	debounce time.Duration,
	logger logger.ILogger,
) ISessionService {
	return &sessionService{
		repo:         repo,
		orchestrator: orch,
		publisher:    publisher,
		debounce:     debounce,
		logger:       logger,
	}
}

func (s *sessionService) Create(ctx context.Context, identity string) (*session.Snapshot, error) {
	id := uuid.NewString()
	sess := session.New(id,
		orchestratorBackend{orch: s.orchestrator, identity: identity},
		session.WithDebounce(s.debounce),
		session.WithObserver(s.observe),
	)
	s.repo.Save(sess)

	s.logger.Info("SESSION", "Session created", map[string]interface{}{"session_id": id, "identity": pktIdentity.Redact(identity)})
	return snapshotOf(sess), nil
}

// observe forwards every state change to the session topic.
func (s *sessionService) observe(snap session.Snapshot) {
	payload, err := json.Marshal(dto.SessionChangedMessage{SessionId: snap.ID, Snapshot: snap})
	if err != nil {
		s.logger.Error("SESSION", "Failed to encode snapshot", map[string]interface{}{"session_id": snap.ID, "error": err.Error()})
		return
	}
	if err := s.publisher.Publish(context.Background(), payload); err != nil {
		s.logger.Warn("SESSION", "Failed to publish snapshot", map[string]interface{}{"session_id": snap.ID, "error": err.Error()})
	}
}

func (s *sessionService) find(id string) (*session.Session, error) {
	sess, ok := s.repo.Get(id)
	if !ok {
		return nil, apperr.NotFound("session not found")
	}
	return sess, nil
}

func (s *sessionService) Get(ctx context.Context, id string) (*session.Snapshot, error) {
	sess, err := s.find(id)
	if err != nil {
		return nil, err
	}
	return snapshotOf(sess), nil
}

func (s *sessionService) Delete(ctx context.Context, id string) error {
	if _, err := s.find(id); err != nil {
		return err
	}
	s.repo.Delete(id)
	s.logger.Info("SESSION", "Session deleted", map[string]interface{}{"session_id": id})
	return nil
}

func (s *sessionService) UpdateEntry(ctx context.Context, id string, req *dto.UpdateEntryRequest) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		if req.EntryMode != "" {
			if err := sess.SetEntryMode(optimiser.EntryMode(req.EntryMode)); err != nil {
				return err
			}
		}
		if req.ProblemContext != nil {
			return sess.SetProblemContext(*req.ProblemContext)
		}
		return nil
	})
}

func (s *sessionService) SubmitCritique(ctx context.Context, id string, req *dto.SubmitCritiqueRequest) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		return sess.SubmitCritique(ctx, req.InputText, optimiser.EntryMode(req.EntryMode), req.ProblemContext)
	})
}

func (s *sessionService) AnswerQuestion(ctx context.Context, id, questionID string, req *dto.AnswerQuestionRequest) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		return sess.AnswerQuestion(questionID, req.Text)
	})
}

func (s *sessionService) Generate(ctx context.Context, id string) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		return sess.SubmitGenerate(ctx)
	})
}

func (s *sessionService) SwitchModel(ctx context.Context, id string, req *dto.SwitchModelRequest) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		return sess.SwitchModel(ctx, req.Vendor, req.Model)
	})
}

func (s *sessionService) EditInput(ctx context.Context, id string, req *dto.EditInputRequest) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		return sess.EditInput(req.InputText)
	})
}

func (s *sessionService) ImplementSuggestions(ctx context.Context, id string) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		return sess.ImplementSuggestions(ctx)
	})
}

func (s *sessionService) Retry(ctx context.Context, id string) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		return sess.Retry(ctx)
	})
}

func (s *sessionService) Reset(ctx context.Context, id string) (*session.Snapshot, error) {
	return s.apply(id, func(sess *session.Session) error {
		return sess.Reset()
	})
}

// apply runs op and returns the resulting snapshot. Failures of the remote call
// are part of the session state (error, retryCount), so they are reported in the
// snapshot rather than as a request error.
func (s *sessionService) apply(id string, op func(*session.Session) error) (*session.Snapshot, error) {
	sess, err := s.find(id)
	if err != nil {
		return nil, err
	}

	if err := op(sess); err != nil && !recordedInSession(err) {
		return nil, err
	}
	return snapshotOf(sess), nil
}

func recordedInSession(err error) bool {
	switch apperr.KindOf(err) {
	case apperr.KindRateLimited, apperr.KindUpstreamAuth, apperr.KindUpstreamFailure,
		apperr.KindExtraction, apperr.KindMisconfigured:
		return true
	case "":
		// foreign errors from the backend are recorded too
		return true
	default:
		return false
	}
}

func snapshotOf(sess *session.Session) *session.Snapshot {
	snap := sess.Snapshot()
	return &snap
}
