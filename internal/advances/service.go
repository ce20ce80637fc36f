package advances

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, userID int64) ([]Advance, error)
	Get(ctx context.Context, id int64) (Advance, error)
}

// ApprovalPort records and reads decision history.
type ApprovalPort interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
	List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error)
}

// IdempotencyPort guards request replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Mailer queues a notification email.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

var errMissingAmount = shared.NewError(shared.ErrValidation, "missing_amount", "Montant et motif obligatoires")

// Service orchestrates salary advance requests.
type Service struct {
	repo        RepositoryPort
	approvals   ApprovalPort
	audit       shared.Auditor
	idempotency IdempotencyPort
	mailer      Mailer
	logger      *slog.Logger
	loc         *time.Location
	now         func() time.Time
}

// Deps collects the optional collaborators of Service.
type Deps struct {
	Approvals   ApprovalPort
	Audit       shared.Auditor
	Idempotency IdempotencyPort
	Mailer      Mailer
	Logger      *slog.Logger
	Location    *time.Location
}

// NewService constructs the salary advance service.
func NewService(repo RepositoryPort, deps Deps) *Service {
	s := &Service{
		repo:        repo,
		approvals:   deps.Approvals,
		audit:       deps.Audit,
		idempotency: deps.Idempotency,
		mailer:      deps.Mailer,
		logger:      deps.Logger,
		loc:         deps.Location,
		now:         time.Now,
	}
	if s.audit == nil {
		s.audit = shared.NopAuditor{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// WithClock overrides the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Create files a pending request for userID. A non-empty key makes the call
// safe to replay: a second call with the same key is rejected as a duplicate.
func (s *Service) Create(ctx context.Context, userID int64, key string, in CreateInput) (Advance, error) {
	in.Motif = strings.TrimSpace(in.Motif)
	if in.Montant <= 0 || in.Motif == "" {
		return Advance{}, errMissingAmount
	}
	idemKey := ""
	if key = strings.TrimSpace(key); key != "" && s.idempotency != nil {
		idemKey = fmt.Sprintf("%s:%d:%s", ApprovalModule, userID, key)
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, ApprovalModule); err != nil {
			return Advance{}, err
		}
	}
	now := s.now().UTC()
	var created Advance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		created, err = tx.Insert(ctx, Advance{
			RefID:       uuid.New(),
			UserID:      userID,
			Montant:     in.Montant,
			Motif:       in.Motif,
			Statut:      StatusPending,
			DateDemande: shared.BusinessDate(now, s.loc).Format(time.DateOnly),
			CreatedAt:   now,
		})
		return err
	})
	if err != nil {
		if idemKey != "" {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return Advance{}, err
	}
	s.recordApproval(ctx, created, userID, shared.ApprovalSubmit, in.Motif)
	s.recordAudit(ctx, userID, "salary_advance.create", created.ID, map[string]any{"montant": created.Montant})
	return created, nil
}

// List returns every request when all is set, otherwise only userID's.
func (s *Service) List(ctx context.Context, userID int64, all bool) ([]Advance, error) {
	if all {
		userID = 0
	}
	out, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Advance{}
	}
	return out, nil
}

// Detail returns one request with its decision history. Requests owned by
// someone else are reported missing unless canSeeAll is set.
func (s *Service) Detail(ctx context.Context, actorID int64, canSeeAll bool, id int64) (Detail, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if !canSeeAll && a.UserID != actorID {
		return Detail{}, ErrNotFound
	}
	out := Detail{Advance: a, History: []shared.ApprovalLog{}}
	if s.approvals == nil {
		return out, nil
	}
	history, err := s.approvals.List(ctx, ApprovalModule, a.RefID)
	if err != nil {
		return Detail{}, err
	}
	if history != nil {
		out.History = history
	}
	return out, nil
}

// Approve accepts a pending request.
func (s *Service) Approve(ctx context.Context, actorID, id int64, in DecisionInput) (Advance, error) {
	return s.decide(ctx, actorID, id, Approve, in)
}

// Refuse rejects a pending request.
func (s *Service) Refuse(ctx context.Context, actorID, id int64, in DecisionInput) (Advance, error) {
	return s.decide(ctx, actorID, id, Refuse, in)
}

func (s *Service) decide(ctx context.Context, actorID, id int64, d Decision, in DecisionInput) (Advance, error) {
	notes := strings.TrimSpace(in.NotesAdmin)
	now := s.now().UTC()
	var decided Advance
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !current.Pending() {
			return ErrAlreadyDecided
		}
		if err := tx.Decide(ctx, id, d.Status, notes, actorID, now); err != nil {
			return err
		}
		current.Statut = d.Status
		current.NotesAdmin = notes
		current.ApprovedAt = &now
		current.ApprovedBy = &actorID
		decided = current
		return nil
	})
	if err != nil {
		return Advance{}, err
	}
	s.recordApproval(ctx, decided, actorID, d.Action, notes)
	s.recordAudit(ctx, actorID, "salary_advance."+strings.ToLower(string(d.Action)), decided.ID, map[string]any{"statut": d.Status})
	s.notify(ctx, decided, d)
	return decided, nil
}

func (s *Service) notify(ctx context.Context, a Advance, d Decision) {
	if s.mailer == nil || a.UserEmail == "" {
		return
	}
	subject := fmt.Sprintf("Votre demande d'avance a été %s", d.Label)
	body := fmt.Sprintf("Votre demande d'avance de %.0f du %s a été %s.", a.Montant, a.DateDemande, d.Label)
	if a.NotesAdmin != "" {
		body += "\n\n" + a.NotesAdmin
	}
	if err := s.mailer.SendMail(ctx, a.UserEmail, subject, body); err != nil {
		s.logger.Warn("queue advance notification", slog.Int64("advance_id", a.ID), slog.Any("error", err))
	}
}

func (s *Service) recordApproval(ctx context.Context, a Advance, actorID int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	err := s.approvals.Record(ctx, shared.ApprovalLog{Module: ApprovalModule, RefID: a.RefID, ActorID: actorID, Action: action, Note: note})
	if err != nil {
		s.logger.Warn("record advance approval", slog.Int64("advance_id", a.ID), slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "salary_advance",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit salary advance", slog.String("action", action), slog.Any("error", err))
	}
}
