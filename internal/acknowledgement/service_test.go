package acknowledgement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Sahaaya/internal/apperror"
	"Sahaaya/internal/auth"
	"Sahaaya/internal/campaign"
	"Sahaaya/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2025, 4, 2, 9, 30, 0, 0, time.UTC)

type memoryRepository struct {
	mu   sync.Mutex
	acks map[primitive.ObjectID]*Acknowledgement

	// raceWith is stored, as if by a concurrent generate, right before the next Create
	raceWith *Acknowledgement
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{acks: map[primitive.ObjectID]*Acknowledgement{}}
}

func (r *memoryRepository) Create(_ context.Context, ack *Acknowledgement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.raceWith != nil {
		cp := *r.raceWith
		r.acks[cp.ID] = &cp
		r.raceWith = nil
	}
	for _, existing := range r.acks {
		if existing.CampaignID == ack.CampaignID {
			return ErrDuplicate
		}
	}
	cp := *ack
	r.acks[ack.ID] = &cp
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id primitive.ObjectID) (*Acknowledgement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ack, ok := r.acks[id]
	if !ok {
		return nil, nil
	}
	cp := *ack
	return &cp, nil
}

func (r *memoryRepository) FindByCampaign(_ context.Context, campaignID primitive.ObjectID) (*Acknowledgement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ack := range r.acks {
		if ack.CampaignID == campaignID {
			cp := *ack
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memoryRepository) ListByGenerator(_ context.Context, userID primitive.ObjectID) ([]Acknowledgement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Acknowledgement{}
	for _, ack := range r.acks {
		if ack.GeneratedBy == userID {
			out = append(out, *ack)
		}
	}
	return out, nil
}

func (r *memoryRepository) MarkPublished(_ context.Context, id primitive.ObjectID, at time.Time) (*Acknowledgement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ack, ok := r.acks[id]
	if !ok || ack.Status != StatusDraft {
		return nil, nil
	}
	ack.Status = StatusPublished
	ack.PublishedAt = &at
	ack.UpdatedAt = at
	cp := *ack
	return &cp, nil
}

func (r *memoryRepository) UpdateMessage(_ context.Context, id primitive.ObjectID, message string, at time.Time) (*Acknowledgement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ack, ok := r.acks[id]
	if !ok {
		return nil, nil
	}
	ack.Message = message
	ack.UpdatedAt = at
	cp := *ack
	return &cp, nil
}

func (r *memoryRepository) RecordDelivery(_ context.Context, id primitive.ObjectID, emails []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ack, ok := r.acks[id]; ok {
		ack.DeliveredTo = append(ack.DeliveredTo, emails...)
	}
	return nil
}

type campaignStore map[primitive.ObjectID]*campaign.Campaign

func (s campaignStore) FindByID(_ context.Context, id primitive.ObjectID) (*campaign.Campaign, error) {
	return s[id], nil
}

type failingCampaigns struct{}

func (failingCampaigns) FindByID(context.Context, primitive.ObjectID) (*campaign.Campaign, error) {
	return nil, errors.New("connection reset")
}

type recordingAnnouncer struct {
	mu        sync.Mutex
	announced []Acknowledgement
}

func (a *recordingAnnouncer) Enqueue(ack Acknowledgement) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.announced = append(a.announced, ack)
}

type fixture struct {
	svc       *Service
	repo      *memoryRepository
	campaigns campaignStore
	announcer *recordingAnnouncer
	metrics   *metrics.Metrics
	creator   *auth.Identity
	other     *auth.Identity
	admin     *auth.Identity
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gate, err := auth.NewGate()
	require.NoError(t, err)

	f := &fixture{
		repo:      newMemoryRepository(),
		campaigns: campaignStore{},
		announcer: &recordingAnnouncer{},
		metrics:   metrics.New(prometheus.NewRegistry()),
		creator:   &auth.Identity{UserID: primitive.NewObjectID(), Role: auth.RoleUser},
		other:     &auth.Identity{UserID: primitive.NewObjectID(), Role: auth.RoleUser},
		admin:     &auth.Identity{UserID: primitive.NewObjectID(), Role: auth.RoleAdmin},
	}
	f.svc = NewService(f.repo, f.campaigns, f.announcer, gate, f.metrics, zap.NewNop())
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func (f *fixture) addCampaign(status string, ngo bool) *campaign.Campaign {
	c := &campaign.Campaign{
		ID:      primitive.NewObjectID(),
		Title:   "River bank clean-up",
		Status:  status,
		Creator: f.creator.UserID,
	}
	if ngo {
		c.IsNGOAffiliated = true
		c.NGODetails = &campaign.NGODetails{Name: "Green Earth", Location: "Pune"}
	}
	f.campaigns[c.ID] = c
	return c
}

func (f *fixture) generate(t *testing.T, c *campaign.Campaign) *Acknowledgement {
	t.Helper()
	ack, err := f.svc.Generate(context.Background(), f.creator, GenerateRequest{CampaignID: c.ID.Hex()})
	require.NoError(t, err)
	return ack
}

func TestGenerate(t *testing.T) {
	f := newFixture(t)
	c := f.addCampaign(campaign.StatusApproved, true)

	ack := f.generate(t, c)

	assert.Equal(t, StatusDraft, ack.Status)
	assert.Equal(t, DefaultMessage, ack.Message)
	assert.Equal(t, "Green Earth", ack.NGOName)
	assert.Equal(t, "Pune", ack.NGOLocation)
	assert.Equal(t, c.ID, ack.CampaignID)
	assert.Equal(t, f.creator.UserID, ack.GeneratedBy)
	assert.Nil(t, ack.PublishedAt)
	assert.Equal(t, fixedNow, ack.CreatedAt)
}

func TestGenerate_CustomMessage(t *testing.T) {
	f := newFixture(t)
	c := f.addCampaign(campaign.StatusApproved, true)

	ack, err := f.svc.Generate(context.Background(), f.creator, GenerateRequest{CampaignID: c.ID.Hex(), Message: "  Thank you all!  "})
	require.NoError(t, err)
	assert.Equal(t, "Thank you all!", ack.Message)
}

func TestGenerate_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		caller *auth.Identity
		id     func() string
		kind   apperror.Kind
	}{
		{"malformed campaign id", f.creator, func() string { return "nope" }, apperror.KindNotFound},
		{"unknown campaign", f.creator, func() string { return primitive.NewObjectID().Hex() }, apperror.KindNotFound},
		{"not NGO affiliated", f.creator, func() string { return f.addCampaign(campaign.StatusApproved, false).ID.Hex() }, apperror.KindValidation},
		{"not the creator", f.other, func() string { return f.addCampaign(campaign.StatusApproved, true).ID.Hex() }, apperror.KindForbidden},
		{"admin is not the creator", f.admin, func() string { return f.addCampaign(campaign.StatusApproved, true).ID.Hex() }, apperror.KindForbidden},
		{"pending campaign", f.creator, func() string { return f.addCampaign(campaign.StatusPending, true).ID.Hex() }, apperror.KindInvalidState},
		{"anonymous", nil, func() string { return f.addCampaign(campaign.StatusApproved, true).ID.Hex() }, apperror.KindForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack, err := f.svc.Generate(ctx, tt.caller, GenerateRequest{CampaignID: tt.id()})
			assert.Nil(t, ack)
			assert.Equal(t, tt.kind, apperror.KindOf(err), "got %v", err)
		})
	}
}

func TestGenerate_SecondCallReturnsExisting(t *testing.T) {
	f := newFixture(t)
	c := f.addCampaign(campaign.StatusApproved, true)
	first := f.generate(t, c)

	again, err := f.svc.Generate(context.Background(), f.creator, GenerateRequest{CampaignID: c.ID.Hex(), Message: "different"})
	assert.True(t, apperror.Is(err, apperror.KindAlreadyExists))
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, DefaultMessage, again.Message)
}

func TestGenerate_LostRaceReturnsWinner(t *testing.T) {
	f := newFixture(t)
	c := f.addCampaign(campaign.StatusApproved, true)
	winner := &Acknowledgement{
		ID:          primitive.NewObjectID(),
		CampaignID:  c.ID,
		Message:     "first in",
		GeneratedBy: f.creator.UserID,
		Status:      StatusDraft,
	}
	f.repo.raceWith = winner

	got, err := f.svc.Generate(context.Background(), f.creator, GenerateRequest{CampaignID: c.ID.Hex()})
	assert.True(t, apperror.Is(err, apperror.KindAlreadyExists))
	require.NotNil(t, got)
	assert.Equal(t, winner.ID, got.ID)

	all, err := f.repo.ListByGenerator(context.Background(), f.creator.UserID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGenerate_StoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	f.svc.campaigns = failingCampaigns{}

	_, err := f.svc.Generate(context.Background(), f.creator, GenerateRequest{CampaignID: primitive.NewObjectID().Hex()})
	assert.True(t, apperror.Is(err, apperror.KindInternal))
}

func TestPublish(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ack := f.generate(t, f.addCampaign(campaign.StatusApproved, true))

	published, err := f.svc.Publish(ctx, ack.ID, f.creator)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	assert.Equal(t, fixedNow, *published.PublishedAt)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AcknowledgementsPublished))
	require.Len(t, f.announcer.announced, 1)
	assert.Equal(t, ack.ID, f.announcer.announced[0].ID)

	_, err = f.svc.Publish(ctx, ack.ID, f.creator)
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
	assert.Len(t, f.announcer.announced, 1)
}

func TestPublish_Rules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ack := f.generate(t, f.addCampaign(campaign.StatusApproved, true))

	_, err := f.svc.Publish(ctx, primitive.NewObjectID(), f.other)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.Publish(ctx, ack.ID, f.other)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	stored, err := f.repo.FindByID(ctx, ack.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, stored.Status)
}

func TestPublish_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	ack := f.generate(t, f.addCampaign(campaign.StatusApproved, true))

	const callers = 6
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Publish(context.Background(), ack.ID, f.creator)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, invalid int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case apperror.Is(err, apperror.KindInvalidState):
			invalid++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, invalid)
	assert.Len(t, f.announcer.announced, 1)
}

func TestUpdateMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ack := f.generate(t, f.addCampaign(campaign.StatusApproved, true))

	_, err := f.svc.UpdateMessage(ctx, ack.ID, f.creator, "   ")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.svc.UpdateMessage(ctx, primitive.NewObjectID(), f.creator, "hello")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.svc.UpdateMessage(ctx, ack.ID, f.other, "hello")
	assert.True(t, apperror.Is(err, apperror.KindForbidden))

	updated, err := f.svc.UpdateMessage(ctx, ack.ID, f.creator, "Thanks, everyone")
	require.NoError(t, err)
	assert.Equal(t, "Thanks, everyone", updated.Message)

	_, err = f.svc.Publish(ctx, ack.ID, f.creator)
	require.NoError(t, err)
	updated, err = f.svc.UpdateMessage(ctx, ack.ID, f.creator, "Edited after publishing")
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, updated.Status)
	assert.Equal(t, "Edited after publishing", updated.Message)
}

func TestGetByCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.addCampaign(campaign.StatusApproved, true)

	_, err := f.svc.GetByCampaign(ctx, c.ID)
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
	assert.EqualError(t, err, "acknowledgement not found for this campaign")

	ack := f.generate(t, c)
	got, err := f.svc.GetByCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, ack.ID, got.ID)
}

func TestListMine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.generate(t, f.addCampaign(campaign.StatusApproved, true))
	f.generate(t, f.addCampaign(campaign.StatusApproved, true))

	mine, err := f.svc.ListMine(ctx, f.creator)
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Count)
	assert.Len(t, mine.Acknowledgements, 2)

	theirs, err := f.svc.ListMine(ctx, f.other)
	require.NoError(t, err)
	assert.Zero(t, theirs.Count)
	assert.NotNil(t, theirs.Acknowledgements)
}
