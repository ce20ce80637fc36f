package advances

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

type memRepo struct {
	mu     sync.Mutex
	rows   map[int64]Advance
	emails map[int64]string
	nextID int64
	failTx error
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[int64]Advance{}, emails: map[int64]string{7: "awa@example.sn"}}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTx != nil {
		return m.failTx
	}
	snapshot := make(map[int64]Advance, len(m.rows))
	for k, v := range m.rows {
		snapshot[k] = v
	}
	if err := fn(ctx, m); err != nil {
		m.rows = snapshot
		return err
	}
	return nil
}

func (m *memRepo) Insert(ctx context.Context, a Advance) (Advance, error) {
	m.nextID++
	a.ID = m.nextID
	m.rows[a.ID] = a
	a.UserEmail = m.emails[a.UserID]
	return a, nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id int64) (Advance, error) {
	return m.Get(ctx, id)
}

func (m *memRepo) Decide(ctx context.Context, id int64, status, notes string, actorID int64, at time.Time) error {
	a, ok := m.rows[id]
	if !ok || a.Statut != StatusPending {
		return ErrAlreadyDecided
	}
	a.Statut, a.NotesAdmin, a.ApprovedBy, a.ApprovedAt = status, notes, &actorID, &at
	m.rows[id] = a
	return nil
}

func (m *memRepo) List(ctx context.Context, userID int64) ([]Advance, error) {
	var out []Advance
	for _, a := range m.rows {
		if userID == 0 || a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memRepo) Get(ctx context.Context, id int64) (Advance, error) {
	a, ok := m.rows[id]
	if !ok {
		return Advance{}, ErrNotFound
	}
	a.UserEmail = m.emails[a.UserID]
	return a, nil
}

type memIdempotency struct {
	keys map[string]bool
}

func (m *memIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.keys[key] {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = true
	return nil
}

func (m *memIdempotency) Delete(ctx context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

type approvalLog []shared.ApprovalLog

func (l *approvalLog) Record(ctx context.Context, log shared.ApprovalLog) error {
	*l = append(*l, log)
	return nil
}

func (l *approvalLog) List(ctx context.Context, module string, ref uuid.UUID) ([]shared.ApprovalLog, error) {
	var out []shared.ApprovalLog
	for _, entry := range *l {
		if entry.Module == module && entry.RefID == ref {
			out = append(out, entry)
		}
	}
	return out, nil
}

type sentMail struct {
	to, subject, body string
}

type outbox struct {
	sent []sentMail
	err  error
}

func (o *outbox) SendMail(ctx context.Context, to, subject, body string) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, sentMail{to, subject, body})
	return nil
}

type fixture struct {
	repo      *memRepo
	idem      *memIdempotency
	approvals *approvalLog
	mail      *outbox
	svc       *Service
}

func newFixture() *fixture {
	f := &fixture{repo: newMemRepo(), idem: &memIdempotency{keys: map[string]bool{}}, approvals: &approvalLog{}, mail: &outbox{}}
	f.svc = NewService(f.repo, Deps{Approvals: f.approvals, Idempotency: f.idem, Mailer: f.mail}).
		WithClock(func() time.Time { return time.Date(2024, 6, 3, 10, 0, 0, 0, time.UTC) })
	return f
}

func TestCreateAdvance(t *testing.T) {
	f := newFixture()
	a, err := f.svc.Create(context.Background(), 7, "", CreateInput{Montant: 50000, Motif: " Loyer "})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, a.Statut)
	assert.Equal(t, "Loyer", a.Motif)
	assert.Equal(t, "2024-06-03", a.DateDemande)
	require.Len(t, *f.approvals, 1)
	assert.Equal(t, shared.ApprovalSubmit, (*f.approvals)[0].Action)
	assert.Equal(t, a.RefID, (*f.approvals)[0].RefID)

	_, err = f.svc.Create(context.Background(), 7, "", CreateInput{Montant: 0, Motif: "x"})
	assert.True(t, errors.Is(err, shared.ErrValidation))
	_, err = f.svc.Create(context.Background(), 7, "", CreateInput{Montant: 10, Motif: "  "})
	assert.True(t, errors.Is(err, shared.ErrValidation))
}

func TestCreateAdvanceIdempotencyKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := f.svc.Create(ctx, 7, "abc", CreateInput{Montant: 1000, Motif: "Santé"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, 7, "abc", CreateInput{Montant: 1000, Motif: "Santé"})
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	assert.True(t, errors.Is(err, shared.ErrConflict))

	// The key is scoped to the requester.
	_, err = f.svc.Create(ctx, 8, "abc", CreateInput{Montant: 1000, Motif: "Santé"})
	require.NoError(t, err)
	assert.Len(t, f.repo.rows, 2)
}

func TestCreateAdvanceReleasesKeyOnFailure(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.repo.failTx = errors.New("db down")
	_, err := f.svc.Create(ctx, 7, "k1", CreateInput{Montant: 1000, Motif: "Santé"})
	require.Error(t, err)
	assert.Empty(t, f.idem.keys)

	f.repo.failTx = nil
	_, err = f.svc.Create(ctx, 7, "k1", CreateInput{Montant: 1000, Motif: "Santé"})
	assert.NoError(t, err)
}

func TestDecisionsOnlyFromPending(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a, err := f.svc.Create(ctx, 7, "", CreateInput{Montant: 25000, Motif: "Scolarité"})
	require.NoError(t, err)

	approved, err := f.svc.Approve(ctx, 1, a.ID, DecisionInput{NotesAdmin: "OK fin du mois"})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Statut)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, int64(1), *approved.ApprovedBy)

	_, err = f.svc.Refuse(ctx, 1, a.ID, DecisionInput{})
	require.ErrorIs(t, err, ErrAlreadyDecided)
	assert.Equal(t, StatusApproved, f.repo.rows[a.ID].Statut)

	_, err = f.svc.Approve(ctx, 1, 999, DecisionInput{})
	assert.ErrorIs(t, err, ErrNotFound)

	require.Len(t, *f.approvals, 2)
	assert.Equal(t, shared.ApprovalApprove, (*f.approvals)[1].Action)
	assert.Equal(t, "OK fin du mois", (*f.approvals)[1].Note)

	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "awa@example.sn", f.mail.sent[0].to)
	assert.Contains(t, f.mail.sent[0].subject, "approuvée")
}

func TestRefuseSurvivesMailFailure(t *testing.T) {
	f := newFixture()
	f.mail.err = errors.New("redis unavailable")
	ctx := context.Background()
	a, err := f.svc.Create(ctx, 7, "", CreateInput{Montant: 25000, Motif: "Scolarité"})
	require.NoError(t, err)
	refused, err := f.svc.Refuse(ctx, 1, a.ID, DecisionInput{NotesAdmin: "Budget épuisé"})
	require.NoError(t, err)
	assert.Equal(t, StatusRefused, refused.Statut)
}

func TestListScopes(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for _, uid := range []int64{7, 8, 7} {
		_, err := f.svc.Create(ctx, uid, "", CreateInput{Montant: 100, Motif: "x"})
		require.NoError(t, err)
	}
	own, err := f.svc.List(ctx, 7, false)
	require.NoError(t, err)
	assert.Len(t, own, 2)
	all, err := f.svc.List(ctx, 7, true)
	require.NoError(t, err)
	assert.Len(t, all, 3)
	none, err := f.svc.List(ctx, 9, false)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestAdvanceDetailHistory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	a, err := f.svc.Create(ctx, 7, "", CreateInput{Montant: 20000, Motif: "Loyer"})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, 8, "", CreateInput{Montant: 5000, Motif: "Santé"})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, 1, a.ID, DecisionInput{NotesAdmin: "OK"})
	require.NoError(t, err)

	detail, err := f.svc.Detail(ctx, 7, false, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, detail.Advance.Statut)
	require.Len(t, detail.History, 2)
	assert.Equal(t, shared.ApprovalSubmit, detail.History[0].Action)
	assert.Equal(t, shared.ApprovalApprove, detail.History[1].Action)
	assert.Equal(t, "OK", detail.History[1].Note)

	_, err = f.svc.Detail(ctx, 8, false, a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.Detail(ctx, 1, true, a.ID)
	assert.NoError(t, err)
	_, err = f.svc.Detail(ctx, 1, true, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}
