package campaign

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"Sahaaya/internal/apperror"
	"Sahaaya/internal/auth"
	"Sahaaya/internal/config"
	"Sahaaya/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// memoryRepository mirrors the Mongo repository's versioned writes.
type memoryRepository struct {
	mu        sync.Mutex
	campaigns map[primitive.ObjectID]*Campaign
	order     []primitive.ObjectID
	totals    map[primitive.ObjectID]float64
	users     int64

	conflicts atomic.Int32 // forced conflicts still to return from writes
	failWith  error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		campaigns: map[primitive.ObjectID]*Campaign{},
		totals:    map[primitive.ObjectID]float64{},
	}
}

func clone(c *Campaign) *Campaign {
	cp := *c
	cp.Participants = slices.Clone(c.Participants)
	cp.Donations = slices.Clone(c.Donations)
	cp.Goals = slices.Clone(c.Goals)
	cp.Documents = slices.Clone(c.Documents)
	return &cp
}

func (r *memoryRepository) Create(_ context.Context, c *Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.Version = 1
	r.campaigns[c.ID] = clone(c)
	r.order = append(r.order, c.ID)
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failWith != nil {
		return nil, r.failWith
	}
	c, ok := r.campaigns[id]
	if !ok {
		return nil, nil
	}
	return clone(c), nil
}

func (r *memoryRepository) List(_ context.Context, filter ListFilter) ([]Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Campaign{}
	for i := len(r.order) - 1; i >= 0; i-- {
		c := r.campaigns[r.order[i]]
		if filter.Status == "" || c.Status == filter.Status {
			out = append(out, *clone(c))
		}
	}
	return out, nil
}

func (r *memoryRepository) replaceLocked(c *Campaign) error {
	if r.conflicts.Load() > 0 {
		r.conflicts.Add(-1)
		return ErrVersionConflict
	}
	stored, ok := r.campaigns[c.ID]
	if !ok || stored.Version != c.Version {
		return ErrVersionConflict
	}
	next := clone(c)
	next.Version++
	r.campaigns[c.ID] = next
	c.Version++
	return nil
}

func (r *memoryRepository) Replace(_ context.Context, c *Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replaceLocked(c)
}

func (r *memoryRepository) ConfirmDonation(_ context.Context, c *Campaign, donor primitive.ObjectID, amount float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.replaceLocked(c); err != nil {
		return err
	}
	r.totals[donor] += amount
	return nil
}

func (r *memoryRepository) Stats(_ context.Context) (*DashboardStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &DashboardStats{TotalUsers: r.users}
	for _, c := range r.campaigns {
		stats.TotalCampaigns++
		switch c.Status {
		case StatusPending:
			stats.PendingCampaigns++
		case StatusApproved:
			stats.ApprovedCampaigns++
		case StatusRejected:
			stats.RejectedCampaigns++
		}
		stats.TotalDonations += c.TotalReceived()
	}
	return stats, nil
}

type fixture struct {
	svc     *Service
	repo    *memoryRepository
	metrics *metrics.Metrics
	admin   *auth.Identity
	creator *auth.Identity
	user    *auth.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gate, err := auth.NewGate()
	require.NoError(t, err)
	repo := newMemoryRepository()
	m := metrics.New(prometheus.NewRegistry())
	svc := NewService(repo, gate, m, &config.AppConfig{PlatformFeePercent: 10}, zap.NewNop())
	svc.now = func() time.Time { return fixedNow }

	return &fixture{
		svc:     svc,
		repo:    repo,
		metrics: m,
		admin:   &auth.Identity{UserID: primitive.NewObjectID(), Role: auth.RoleAdmin},
		creator: &auth.Identity{UserID: primitive.NewObjectID(), Role: auth.RoleUser},
		user:    &auth.Identity{UserID: primitive.NewObjectID(), Role: auth.RoleUser},
	}
}

func (f *fixture) propose(t *testing.T, req ProposeRequest) *View {
	t.Helper()
	v, err := f.svc.Propose(context.Background(), f.creator, req)
	require.NoError(t, err)
	return v
}

func (f *fixture) approved(t *testing.T, req ProposeRequest) *View {
	t.Helper()
	v := f.propose(t, req)
	approved, err := f.svc.Approve(context.Background(), v.ID, f.admin)
	require.NoError(t, err)
	return approved
}

func TestPropose(t *testing.T) {
	f := newFixture(t)

	v := f.propose(t, validProposal())

	assert.Equal(t, StatusPending, v.Status)
	assert.Equal(t, f.creator.UserID, v.Creator)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CampaignsProposed))

	stored, err := f.repo.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Version)
}

func TestApprove_NotFoundBeforeForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, primitive.NewObjectID(), f.user)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	v := f.propose(t, validProposal())
	_, err = f.svc.Approve(ctx, v.ID, f.user)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	stored, _ := f.repo.FindByID(ctx, v.ID)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestApproveReject_RedecisionIsAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.approved(t, validProposal())

	again, err := f.svc.Approve(ctx, v.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, again.Status)

	rejected, err := f.svc.Reject(ctx, v.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
}

func TestJoin_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := f.propose(t, validProposal())
	_, err := f.svc.Join(ctx, pending.ID, f.user)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	_, err = f.svc.Join(ctx, primitive.NewObjectID(), f.user)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	v := f.approved(t, validProposal())
	res, err := f.svc.Join(ctx, v.ID, f.user)
	require.NoError(t, err)
	assert.Equal(t, 1, res.PopularityScore)

	_, err = f.svc.Join(ctx, v.ID, f.user)
	assert.True(t, apperror.Is(err, apperror.KindAlreadyExists))

	got, err := f.svc.Get(ctx, v.ID, f.user)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)
	assert.True(t, *got.IsJoined)
}

func TestJoin_ConcurrentSameUserSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	v := f.approved(t, validProposal())

	const callers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		duplicate atomic.Int32
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Join(context.Background(), v.ID, f.user)
			switch {
			case err == nil:
				successes.Add(1)
			case apperror.Is(err, apperror.KindAlreadyExists):
				duplicate.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	stored, err := f.repo.FindByID(context.Background(), v.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Participants, 1)
}

func TestJoin_ConflictRetriesThenGivesUp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.approved(t, validProposal())

	f.repo.conflicts.Store(maxWriteAttempts - 1)
	_, err := f.svc.Join(ctx, v.ID, f.user)
	require.NoError(t, err)

	f.repo.conflicts.Store(maxWriteAttempts)
	_, err = f.svc.Join(ctx, v.ID, f.creator)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	stored, _ := f.repo.FindByID(ctx, v.ID)
	assert.Len(t, stored.Participants, 1)
}

func TestDonate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// amount is validated before the campaign is looked up
	_, err := f.svc.Donate(ctx, primitive.NewObjectID(), f.user, DonateRequest{Amount: 0})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.Donate(ctx, primitive.NewObjectID(), f.user, DonateRequest{Amount: 10})
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	pending := f.propose(t, validProposal())
	_, err = f.svc.Donate(ctx, pending.ID, f.user, DonateRequest{Amount: 10})
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	v := f.approved(t, validProposal())
	d, err := f.svc.Donate(ctx, v.ID, f.user, DonateRequest{Amount: 100, PaymentRef: "upi@bank"})
	require.NoError(t, err)
	assert.Equal(t, DonationPending, d.Status)
	assert.Equal(t, f.user.UserID, d.Donor)
	assert.Zero(t, f.repo.totals[f.user.UserID])
}

func TestConfirmReceived_AppliesAllEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.approved(t, validProposal())
	goalID := v.Goals[0].ID
	require.Equal(t, 1000.0, v.Goals[0].TargetAmount)

	d, err := f.svc.Donate(ctx, v.ID, f.user, DonateRequest{Amount: 100})
	require.NoError(t, err)

	confirmed, err := f.svc.ConfirmReceived(ctx, v.ID, d.ID, goalID.Hex(), f.admin)
	require.NoError(t, err)
	assert.Equal(t, DonationReceived, confirmed.Status)
	assert.Equal(t, 100.0, f.repo.totals[f.user.UserID])

	got, err := f.svc.Get(ctx, v.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Goals[0].CollectedAmount)
	assert.Equal(t, 10, got.Goals[0].PercentComplete)
	assert.Equal(t, 100.0, got.TotalReceived)
	assert.Equal(t, 90.0, got.Donations[0].NetAmount)
	assert.Equal(t, 100.0, testutil.ToFloat64(f.metrics.ConfirmedAmount))

	_, err = f.svc.ConfirmReceived(ctx, v.ID, d.ID, goalID.Hex(), f.admin)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
	assert.Equal(t, 100.0, f.repo.totals[f.user.UserID])
}

func TestConfirmReceived_ErrorOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.approved(t, validProposal())
	d, err := f.svc.Donate(ctx, v.ID, f.user, DonateRequest{Amount: 50})
	require.NoError(t, err)

	_, err = f.svc.ConfirmReceived(ctx, primitive.NewObjectID(), d.ID, "", f.user)
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "missing campaign first")

	_, err = f.svc.ConfirmReceived(ctx, v.ID, primitive.NewObjectID(), "", f.user)
	assert.True(t, apperror.Is(err, apperror.KindForbidden), "then the admin check")

	_, err = f.svc.ConfirmReceived(ctx, v.ID, primitive.NewObjectID(), "", f.admin)
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "then the donation")

	_, err = f.svc.ConfirmReceived(ctx, primitive.NewObjectID(), d.ID, "zzz", f.user)
	assert.True(t, apperror.Is(err, apperror.KindNotFound), "missing campaign before a malformed goal")
	_, err = f.svc.ConfirmReceived(ctx, v.ID, d.ID, "zzz", f.user)
	assert.True(t, apperror.Is(err, apperror.KindForbidden), "admin check before a malformed goal")
	_, err = f.svc.ConfirmReceived(ctx, v.ID, d.ID, "zzz", f.admin)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	assert.Zero(t, f.repo.totals[f.user.UserID])
}

func TestConfirmReceived_ConflictLeavesNothingApplied(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.approved(t, validProposal())
	goalID := v.Goals[0].ID
	d, err := f.svc.Donate(ctx, v.ID, f.user, DonateRequest{Amount: 70})
	require.NoError(t, err)

	f.repo.conflicts.Store(maxWriteAttempts)
	_, err = f.svc.ConfirmReceived(ctx, v.ID, d.ID, goalID.Hex(), f.admin)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))

	stored, _ := f.repo.FindByID(ctx, v.ID)
	assert.Equal(t, DonationPending, stored.Donations[0].Status)
	assert.Zero(t, stored.Goals[0].CollectedAmount)
	assert.Zero(t, f.repo.totals[f.user.UserID])
}

func TestList_MarksJoined(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.approved(t, validProposal())
	f.approved(t, validProposal())
	_, err := f.svc.Join(ctx, first.ID, f.user)
	require.NoError(t, err)

	views, err := f.svc.List(ctx, f.user, ListFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.False(t, *views[0].IsJoined) // newest first
	assert.True(t, *views[1].IsJoined)
	assert.Nil(t, views[1].Donations)

	anonymous, err := f.svc.List(ctx, nil, ListFilter{Status: StatusApproved})
	require.NoError(t, err)
	assert.Nil(t, anonymous[0].IsJoined)
}

func TestAdminListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.approved(t, validProposal())
	f.propose(t, validProposal())
	d, err := f.svc.Donate(ctx, v.ID, f.user, DonateRequest{Amount: 25})
	require.NoError(t, err)
	_, err = f.svc.ConfirmReceived(ctx, v.ID, d.ID, "", f.admin)
	require.NoError(t, err)

	_, err = f.svc.AdminList(ctx, f.user, ListFilter{})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	all, err := f.svc.AdminList(ctx, f.admin, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = f.svc.DashboardStats(ctx, f.user)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
	stats, err := f.svc.DashboardStats(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalCampaigns)
	assert.Equal(t, int64(1), stats.PendingCampaigns)
	assert.Equal(t, int64(1), stats.ApprovedCampaigns)
	assert.Equal(t, 25.0, stats.TotalDonations)
}

func TestGet_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.repo.failWith = errors.New("connection refused")

	_, err := f.svc.Get(context.Background(), primitive.NewObjectID(), nil)
	assert.Equal(t, apperror.KindInternal, apperror.KindOf(err))
}
