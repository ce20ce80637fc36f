package advances

import (
	"time"

	"github.com/google/uuid"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// Statuses of a salary advance request.
const (
	StatusPending  = "en_attente"
	StatusApproved = "approuve"
	StatusRefused  = "refuse"
)

// ApprovalModule tags approval and idempotency records.
const ApprovalModule = "salary_advance"

var (
	// ErrNotFound signals an unknown advance id.
	ErrNotFound = shared.NewError(shared.ErrNotFound, "advance_not_found", "Demande d'avance introuvable")
	// ErrAlreadyDecided signals a decision on a request that is no longer pending.
	ErrAlreadyDecided = shared.NewError(shared.ErrConflict, "advance_already_decided", "Cette demande a déjà été traitée.")
)

// Advance is a salary advance request.
type Advance struct {
	ID          int64      `json:"id"`
	RefID       uuid.UUID  `json:"ref_id"`
	UserID      int64      `json:"user_id"`
	UserName    string     `json:"user_name"`
	UserEmail   string     `json:"-"`
	Montant     float64    `json:"montant"`
	Motif       string     `json:"motif"`
	Statut      string     `json:"statut"`
	DateDemande string     `json:"date_demande"`
	NotesAdmin  string     `json:"notes_admin"`
	CreatedAt   time.Time  `json:"created_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
	ApprovedBy  *int64     `json:"approved_by"`
}

// Detail is an advance together with its approval trail.
type Detail struct {
	Advance Advance              `json:"advance"`
	History []shared.ApprovalLog `json:"history"`
}

// Pending reports whether a decision can still be taken.
func (a Advance) Pending() bool {
	return a.Statut == StatusPending
}

// CreateInput is the payload of POST /salary_advances.
type CreateInput struct {
	Montant float64 `json:"montant" validate:"required,gt=0"`
	Motif   string  `json:"motif" validate:"required,max=1000"`
}

// DecisionInput is the payload of the approve and refuse endpoints.
type DecisionInput struct {
	NotesAdmin string `json:"notes_admin" validate:"max=1000"`
}

// Decision is an approve or refuse outcome.
type Decision struct {
	Status string
	Action shared.ApprovalAction
	Label  string
}

var (
	// Approve accepts a pending request.
	Approve = Decision{Status: StatusApproved, Action: shared.ApprovalApprove, Label: "approuvée"}
	// Refuse rejects a pending request.
	Refuse = Decision{Status: StatusRefused, Action: shared.ApprovalReject, Label: "refusée"}
)
