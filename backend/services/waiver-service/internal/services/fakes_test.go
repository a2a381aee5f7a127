package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgconn"

	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-models"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-repositories"
	"github.com/gitAronasoft/waiver-app-sub000/backend/shared/go-utils"
)

// ---------------------------------------------------------------------
// clock
// ---------------------------------------------------------------------

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// ---------------------------------------------------------------------
// store
// ---------------------------------------------------------------------

type otpRow struct {
	hash      string
	attempts  int
	expiresAt time.Time
}

type tables struct {
	nextID    int64
	customers map[int64]models.Customer
	minors    map[int64]models.Minor
	waivers   map[int64]models.Waiver
	otps      map[string]otpRow
	tokens    map[string]models.RatingToken
	feedback  map[int64]models.Feedback
	outbox    map[int64]models.Notification
	staff     map[int64]models.Staff
	counters  map[string]int
}

func (t tables) clone() tables {
	out := tables{
		nextID:    t.nextID,
		customers: make(map[int64]models.Customer, len(t.customers)),
		minors:    make(map[int64]models.Minor, len(t.minors)),
		waivers:   make(map[int64]models.Waiver, len(t.waivers)),
		otps:      make(map[string]otpRow, len(t.otps)),
		tokens:    make(map[string]models.RatingToken, len(t.tokens)),
		feedback:  make(map[int64]models.Feedback, len(t.feedback)),
		outbox:    make(map[int64]models.Notification, len(t.outbox)),
		staff:     make(map[int64]models.Staff, len(t.staff)),
		counters:  make(map[string]int, len(t.counters)),
	}
	for k, v := range t.customers {
		out.customers[k] = v
	}
	for k, v := range t.minors {
		out.minors[k] = v
	}
	for k, v := range t.waivers {
		out.waivers[k] = v
	}
	for k, v := range t.otps {
		out.otps[k] = v
	}
	for k, v := range t.tokens {
		out.tokens[k] = v
	}
	for k, v := range t.feedback {
		out.feedback[k] = v
	}
	for k, v := range t.outbox {
		out.outbox[k] = v
	}
	for k, v := range t.staff {
		out.staff[k] = v
	}
	for k, v := range t.counters {
		out.counters[k] = v
	}
	return out
}

// memStore stands in for Postgres. Rows are stored by value and replaced
// whole on every write, so a snapshot is a shallow copy of the maps.
// Transactions are serialized, which is what row locks give the real
// repositories for the rows these tests contend on.
type memStore struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	clock *fakeClock
	t     tables

	failMinorCreate bool
}

func newMemStore(clock *fakeClock) *memStore {
	return &memStore{clock: clock, t: tables{}.clone()}
}

func (s *memStore) id() int64 {
	s.t.nextID++
	return s.t.nextID
}

type fakeTxKey struct{}

type memTxManager struct {
	store *memStore
}

func (m *memTxManager) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}

	m.store.txMu.Lock()
	defer m.store.txMu.Unlock()

	m.store.mu.Lock()
	saved := m.store.t.clone()
	m.store.mu.Unlock()

	defer func() {
		if err != nil {
			m.store.mu.Lock()
			m.store.t = saved
			m.store.mu.Unlock()
		}
	}()
	return fn(context.WithValue(ctx, fakeTxKey{}, true))
}

// ---------------------------------------------------------------------
// customers
// ---------------------------------------------------------------------

type memCustomerRepo struct{ s *memStore }

func (r *memCustomerRepo) Create(_ context.Context, c *models.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	c.RowVersion = 1
	c.CreatedAt = r.s.clock.Now()
	c.UpdatedAt = c.CreatedAt
	r.s.t.customers[c.ID] = *c
	return nil
}

func (r *memCustomerRepo) GetByID(_ context.Context, id int64) (*models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.t.customers[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (r *memCustomerRepo) GetByPhone(_ context.Context, phone string) (*models.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var best *models.Customer
	for _, c := range r.s.t.customers {
		if c.CellPhone != phone {
			continue
		}
		if best == nil || c.UpdatedAt.After(best.UpdatedAt) {
			cc := c
			best = &cc
		}
	}
	return best, nil
}

func (r *memCustomerRepo) UpdateIfVersion(_ context.Context, c *models.Customer, expected int64) (pgconn.CommandTag, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.customers[c.ID]
	if !ok || cur.RowVersion != expected {
		return pgconn.CommandTag("UPDATE 0"), nil
	}
	c.RowVersion = expected + 1
	c.UpdatedAt = r.s.clock.Now()
	r.s.t.customers[c.ID] = *c
	return pgconn.CommandTag("UPDATE 1"), nil
}

func (r *memCustomerRepo) UpdateWithRetry(ctx context.Context, id int64, mutate func(*models.Customer) error) error {
	for i := 0; i < 3; i++ {
		c, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if c == nil {
			return utils.ErrNoRowsUpdated
		}
		if err := mutate(c); err != nil {
			return err
		}
		tag, err := r.UpdateIfVersion(ctx, c, c.RowVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 1 {
			return nil
		}
	}
	return utils.ErrRowVersionConflict
}

func (r *memCustomerRepo) UpdateSignature(_ context.Context, id int64, signature string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.t.customers[id]
	if !ok {
		return utils.ErrNoRowsUpdated
	}
	c.SignatureImage = signature
	r.s.t.customers[id] = c
	return nil
}

func (r *memCustomerRepo) SetStatus(_ context.Context, id int64, status models.CustomerStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.s.t.customers[id]; ok {
		c.Status = status
		r.s.t.customers[id] = c
	}
	return nil
}

func (r *memCustomerRepo) LockPhone(context.Context, string) error { return nil }

// ---------------------------------------------------------------------
// minors
// ---------------------------------------------------------------------

var errMinorInsert = errors.New("minor insert failed")

type memMinorRepo struct{ s *memStore }

func (r *memMinorRepo) Create(_ context.Context, m *models.Minor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failMinorCreate {
		return errMinorInsert
	}
	m.ID = r.s.id()
	m.CreatedAt = r.s.clock.Now()
	m.UpdatedAt = m.CreatedAt
	r.s.t.minors[m.ID] = *m
	return nil
}

func (r *memMinorRepo) Update(_ context.Context, m *models.Minor) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.t.minors[m.ID]
	if !ok || cur.CustomerID != m.CustomerID {
		return utils.ErrNoRowsUpdated
	}
	cur.FirstName, cur.LastName, cur.DOB, cur.Status = m.FirstName, m.LastName, m.DOB, m.Status
	cur.UpdatedAt = r.s.clock.Now()
	r.s.t.minors[m.ID] = cur
	return nil
}

func (r *memMinorRepo) ListByCustomer(_ context.Context, customerID int64, activeOnly bool) ([]*models.Minor, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*models.Minor
	for _, m := range r.s.t.minors {
		if m.CustomerID != customerID || (activeOnly && m.Status != models.MinorStatusActive) {
			continue
		}
		mm := m
		out = append(out, &mm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memMinorRepo) DeactivateExcept(_ context.Context, customerID int64, keep []int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	kept := make(map[int64]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	for id, m := range r.s.t.minors {
		if m.CustomerID == customerID && m.Status == models.MinorStatusActive && !kept[id] {
			m.Status = models.MinorStatusInactive
			r.s.t.minors[id] = m
		}
	}
	return nil
}

// ---------------------------------------------------------------------
// waivers
// ---------------------------------------------------------------------

type memWaiverRepo struct{ s *memStore }

func (r *memWaiverRepo) Create(_ context.Context, w *models.Waiver) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w.ID = r.s.id()
	w.Status = models.WaiverStatusCreated
	w.CreatedAt = r.s.clock.Now()
	w.UpdatedAt = w.CreatedAt
	r.s.t.waivers[w.ID] = *w
	return nil
}

func (r *memWaiverRepo) GetByID(_ context.Context, id int64) (*models.Waiver, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.t.waivers[id]
	if !ok {
		return nil, nil
	}
	// Keep nil (never signed) apart from an empty snapshot, as the JSON column does.
	if w.MinorsSnapshot != nil {
		w.MinorsSnapshot = append([]models.MinorSnapshot{}, w.MinorsSnapshot...)
	}
	return &w, nil
}

func (r *memWaiverRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Waiver, error) {
	return r.GetByID(ctx, id)
}

func (r *memWaiverRepo) GetLatestByCustomer(ctx context.Context, customerID int64, _ bool) (*models.Waiver, error) {
	r.s.mu.Lock()
	var latest int64
	for id, w := range r.s.t.waivers {
		if w.CustomerID == customerID && id > latest {
			latest = id
		}
	}
	r.s.mu.Unlock()
	if latest == 0 {
		return nil, nil
	}
	return r.GetByID(ctx, latest)
}

func (r *memWaiverRepo) update(id int64, allowed func(models.Waiver) bool, apply func(*models.Waiver)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.t.waivers[id]
	if !ok || !allowed(w) {
		return utils.ErrInvalidTransition
	}
	apply(&w)
	w.UpdatedAt = r.s.clock.Now()
	r.s.t.waivers[id] = w
	return nil
}

func (r *memWaiverRepo) MarkSigned(
	_ context.Context,
	id int64,
	signature string,
	signedAt time.Time,
	minors []models.MinorSnapshot,
	customer *models.CustomerSnapshot,
) error {
	return r.update(id,
		func(w models.Waiver) bool { return w.Status == models.WaiverStatusCreated },
		func(w *models.Waiver) {
			w.Status = models.WaiverStatusSigned
			w.SignatureImage = signature
			w.SignedAt = &signedAt
			w.MinorsSnapshot = append([]models.MinorSnapshot{}, minors...)
			cs := *customer
			w.CustomerSnapshot = &cs
		})
}

func (r *memWaiverRepo) MarkRulesAccepted(_ context.Context, id int64) error {
	return r.update(id,
		func(w models.Waiver) bool { return w.Status == models.WaiverStatusSigned },
		func(w *models.Waiver) {
			w.Status = models.WaiverStatusRulesAccepted
			w.RulesAccepted = true
			w.Completed = true
		})
}

func (r *memWaiverRepo) SetStaffVerification(_ context.Context, id int64, v models.StaffVerification, staffID int64) error {
	now := r.s.clock.Now()
	return r.update(id,
		func(w models.Waiver) bool { return w.Status.IsCompleted() },
		func(w *models.Waiver) {
			w.VerifiedByStaff = v
			w.StaffID = &staffID
			w.VerifiedAt = &now
			w.Status = v.Status()
		})
}

func (r *memWaiverRepo) SetRatingMarker(_ context.Context, id int64, channel models.NotificationChannel, marker models.NotifyMarker) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.t.waivers[id]
	if !ok {
		return utils.ErrNoRowsUpdated
	}
	if channel == models.ChannelEmail {
		w.RatingEmailSent = marker
	} else {
		w.RatingSMSSent = marker
	}
	r.s.t.waivers[id] = w
	return nil
}

func (r *memWaiverRepo) ListRatingCandidates(
	_ context.Context,
	signedAfter, signedBefore time.Time,
	limit int,
) ([]*repositories.RatingCandidate, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	queued := map[int64]bool{}
	for _, n := range r.s.t.outbox {
		if n.Purpose == models.PurposeRating && n.WaiverID != nil {
			queued[*n.WaiverID] = true
		}
	}

	var ws []models.Waiver
	for _, w := range r.s.t.waivers {
		if !w.Completed || w.SignedAt == nil || queued[w.ID] {
			continue
		}
		if w.SignedAt.Before(signedAfter) || w.SignedAt.After(signedBefore) {
			continue
		}
		if w.RatingEmailSent != models.NotifyNotAttempted && w.RatingSMSSent != models.NotifyNotAttempted {
			continue
		}
		ws = append(ws, w)
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i].SignedAt.Before(*ws[j].SignedAt) })

	var out []*repositories.RatingCandidate
	for _, w := range ws {
		if len(out) == limit {
			break
		}
		c := r.s.t.customers[w.CustomerID]
		out = append(out, &repositories.RatingCandidate{
			WaiverID:        w.ID,
			CustomerID:      c.ID,
			FirstName:       c.FirstName,
			CellPhone:       c.CellPhone,
			Email:           c.Email,
			CanEmail:        c.CanEmail,
			RatingEmailSent: w.RatingEmailSent,
			RatingSMSSent:   w.RatingSMSSent,
		})
	}
	return out, nil
}

func (r *memWaiverRepo) ListSnapshotGaps(context.Context) ([]*repositories.SnapshotGap, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*repositories.SnapshotGap
	for _, w := range r.s.t.waivers {
		if w.SignedAt == nil || (w.CustomerSnapshot != nil && w.MinorsSnapshot != nil) {
			continue
		}
		gap := &repositories.SnapshotGap{WaiverID: w.ID, CustomerID: w.CustomerID, SignedAt: *w.SignedAt}
		if w.MinorsSnapshot == nil {
			gap.MissingParts = append(gap.MissingParts, "minors")
		}
		if w.CustomerSnapshot == nil {
			gap.MissingParts = append(gap.MissingParts, "customer")
		}
		out = append(out, gap)
	}
	return out, nil
}

// ---------------------------------------------------------------------
// otps
// ---------------------------------------------------------------------

type memOTPRepo struct{ s *memStore }

func (r *memOTPRepo) DeleteByPhone(_ context.Context, phone string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.t.otps, phone)
	return nil
}

func (r *memOTPRepo) Create(_ context.Context, phone, codeHash string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.t.otps[phone] = otpRow{hash: codeHash, expiresAt: expiresAt}
	return nil
}

func (r *memOTPRepo) Consume(_ context.Context, phone, codeHash string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.t.otps[phone]
	if !ok || row.hash != codeHash || !row.expiresAt.After(r.s.clock.Now()) {
		return false, nil
	}
	delete(r.s.t.otps, phone)
	return true, nil
}

func (r *memOTPRepo) IncrementAttempts(_ context.Context, phone string, maxAttempts int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.t.otps[phone]
	if !ok || !row.expiresAt.After(r.s.clock.Now()) {
		return false, nil
	}
	row.attempts++
	if row.attempts >= maxAttempts {
		delete(r.s.t.otps, phone)
		return true, nil
	}
	r.s.t.otps[phone] = row
	return false, nil
}

func (r *memOTPRepo) LockPhone(context.Context, string) error { return nil }

func (r *memOTPRepo) CleanupExpired(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for phone, row := range r.s.t.otps {
		if !row.expiresAt.After(r.s.clock.Now()) {
			delete(r.s.t.otps, phone)
			n++
		}
	}
	return n, nil
}

// ---------------------------------------------------------------------
// rating tokens + feedback
// ---------------------------------------------------------------------

type memTokenRepo struct{ s *memStore }

func (r *memTokenRepo) Create(_ context.Context, t *models.RatingToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = r.s.id()
	t.CreatedAt = r.s.clock.Now()
	r.s.t.tokens[t.Token] = *t
	return nil
}

func (r *memTokenRepo) GetByToken(_ context.Context, token string) (*models.RatingToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.t.tokens[token]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r *memTokenRepo) GetUsableByWaiver(_ context.Context, waiverID int64) (*models.RatingToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.t.tokens {
		if t.WaiverID == waiverID && t.Usable(r.s.clock.Now()) {
			tt := t
			return &tt, nil
		}
	}
	return nil, nil
}

func (r *memTokenRepo) DeleteExpiredUnused(_ context.Context, waiverID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, t := range r.s.t.tokens {
		if t.WaiverID == waiverID && !t.Used && t.Expired(r.s.clock.Now()) {
			delete(r.s.t.tokens, k)
		}
	}
	return nil
}

func (r *memTokenRepo) Consume(_ context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.t.tokens[token]
	now := r.s.clock.Now()
	if !ok || !t.Usable(now) {
		return false, nil
	}
	t.Used = true
	t.UsedAt = &now
	r.s.t.tokens[token] = t
	return true, nil
}

func (r *memTokenRepo) CleanupExpired(_ context.Context, retention time.Duration) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	cutoff := r.s.clock.Now().Add(-retention)
	for k, t := range r.s.t.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(r.s.t.tokens, k)
			n++
		}
	}
	return n, nil
}

type memFeedbackRepo struct{ s *memStore }

func (r *memFeedbackRepo) Create(_ context.Context, f *models.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	f.ID = r.s.id()
	f.CreatedAt = r.s.clock.Now()
	f.UpdatedAt = f.CreatedAt
	r.s.t.feedback[f.ID] = *f
	return nil
}

func (r *memFeedbackRepo) GetByWaiverID(_ context.Context, waiverID int64) (*models.Feedback, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, f := range r.s.t.feedback {
		if f.WaiverID != nil && *f.WaiverID == waiverID {
			ff := f
			return &ff, nil
		}
	}
	return nil, nil
}

func (r *memFeedbackRepo) SubmitDetails(_ context.Context, waiverID int64, issue, staffName, message *string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, f := range r.s.t.feedback {
		if f.WaiverID == nil || *f.WaiverID != waiverID || f.DetailsSubmitted {
			continue
		}
		f.Issue, f.StaffName, f.Message = issue, staffName, message
		f.DetailsSubmitted = true
		r.s.t.feedback[id] = f
		return true, nil
	}
	return false, nil
}

// ---------------------------------------------------------------------
// outbox
// ---------------------------------------------------------------------

type memOutboxRepo struct{ s *memStore }

func (r *memOutboxRepo) Enqueue(_ context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if n.MaxAttempts <= 0 {
		n.MaxAttempts = 1
	}
	n.ID = r.s.id()
	n.Status = models.NotificationPending
	n.CreatedAt = r.s.clock.Now()
	n.UpdatedAt = n.CreatedAt
	r.s.t.outbox[n.ID] = *n
	return nil
}

func (r *memOutboxRepo) ClaimBatch(_ context.Context, limit int, staleAfter time.Duration) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock.Now()

	ids := make([]int64, 0, len(r.s.t.outbox))
	for id := range r.s.t.outbox {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []*models.Notification
	for _, id := range ids {
		if len(out) == limit {
			break
		}
		n := r.s.t.outbox[id]
		stale := n.Status == models.NotificationSending && n.UpdatedAt.Before(now.Add(-staleAfter))
		if n.Status != models.NotificationPending && !stale {
			continue
		}
		if n.Attempts >= n.MaxAttempts {
			continue
		}
		n.Status = models.NotificationSending
		n.Attempts++
		n.UpdatedAt = now
		r.s.t.outbox[id] = n
		nn := n
		out = append(out, &nn)
	}
	return out, nil
}

func (r *memOutboxRepo) MarkSent(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := r.s.t.outbox[id]
	now := r.s.clock.Now()
	n.Status = models.NotificationSent
	n.SentAt = &now
	if n.Purpose == models.PurposeOTP {
		n.Body = ""
	}
	r.s.t.outbox[id] = n
	return nil
}

func (r *memOutboxRepo) MarkFailed(_ context.Context, id int64, reason string, terminal bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := r.s.t.outbox[id]
	n.LastError = &reason
	if terminal {
		n.Status = models.NotificationFailed
	} else {
		n.Status = models.NotificationPending
	}
	r.s.t.outbox[id] = n
	return nil
}

func (r *memOutboxRepo) FailAbandoned(_ context.Context, staleAfter time.Duration) ([]*models.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.clock.Now()
	reason := "delivery abandoned after final attempt"

	var out []*models.Notification
	for id, n := range r.s.t.outbox {
		if n.Status != models.NotificationSending || n.Attempts < n.MaxAttempts ||
			!n.UpdatedAt.Before(now.Add(-staleAfter)) {
			continue
		}
		n.Status = models.NotificationFailed
		if n.LastError == nil {
			n.LastError = &reason
		}
		n.UpdatedAt = now
		r.s.t.outbox[id] = n
		nn := n
		out = append(out, &nn)
	}
	return out, nil
}

func (r *memOutboxRepo) CleanupDelivered(_ context.Context, olderThan time.Duration) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	cutoff := r.s.clock.Now().Add(-olderThan)
	for id, row := range r.s.t.outbox {
		if row.Purpose == models.PurposeOTP && row.Status != models.NotificationPending &&
			row.Status != models.NotificationSending && row.UpdatedAt.Before(cutoff) {
			delete(r.s.t.outbox, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) outboxRows(purpose models.NotificationPurpose) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.t.outbox {
		if n.Purpose == purpose {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---------------------------------------------------------------------
// staff + rate limits
// ---------------------------------------------------------------------

type memStaffRepo struct{ s *memStore }

func (r *memStaffRepo) Create(_ context.Context, st *models.Staff) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.t.staff {
		if strings.EqualFold(existing.Email, st.Email) {
			return utils.ErrEmailExists
		}
	}
	st.ID = r.s.id()
	r.s.t.staff[st.ID] = *st
	return nil
}

func (r *memStaffRepo) GetByEmail(_ context.Context, email string) (*models.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.t.staff {
		if st.Email == email {
			out := st
			return &out, nil
		}
	}
	return nil, nil
}

func (r *memStaffRepo) GetByID(_ context.Context, id int64) (*models.Staff, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, ok := r.s.t.staff[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

type memRateLimitRepo struct{ s *memStore }

func (r *memRateLimitRepo) IncrementAndCheck(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.t.counters[key]++
	return r.s.t.counters[key] <= limit, nil
}

func (r *memRateLimitRepo) CleanupExpired(context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := int64(len(r.s.t.counters))
	r.s.t.counters = map[string]int{}
	return n, nil
}

// ---------------------------------------------------------------------
// senders + kicker
// ---------------------------------------------------------------------

type recordingSender struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (r *recordingSender) Send(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, *n)
	return nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type countingKicker struct {
	mu    sync.Mutex
	kicks int
}

func (k *countingKicker) Kick() {
	k.mu.Lock()
	k.kicks++
	k.mu.Unlock()
}
