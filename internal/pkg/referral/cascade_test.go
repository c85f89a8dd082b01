package referral

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/lumichat/lumichat/app/models"
	"github.com/lumichat/lumichat/internal/pkg/wallet"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu      sync.Mutex
	users   map[uint]*models.User
	edges   []models.ReferralEdge
	rewards map[string]models.ReferralRewardRecord // key orderNo|referrer
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:   make(map[uint]*models.User),
		rewards: make(map[string]models.ReferralRewardRecord),
	}
}

func rewardKey(orderNo string, referrerID uint) string {
	return orderNo + "|" + strconv.FormatUint(uint64(referrerID), 10)
}

func (f *fakeRepo) EdgesForReferred(_ context.Context, referredID uint) ([]models.ReferralEdge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ReferralEdge
	for _, e := range f.edges {
		if e.ReferredID == referredID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) DirectReferrerOf(_ context.Context, userID uint) (uint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.edges {
		if e.ReferredID == userID && e.Level == models.ReferralLevelDirect {
			return e.ReferrerID, nil
		}
	}
	return 0, nil
}

func (f *fakeRepo) GetUser(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id], nil
}

func (f *fakeRepo) RewardExists(_ context.Context, orderNo string, referrerID uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rewards[rewardKey(orderNo, referrerID)]
	return ok, nil
}

func (f *fakeRepo) CreateReward(_ context.Context, rec *models.ReferralRewardRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rewardKey(rec.OrderNo, rec.ReferrerID)
	if _, ok := f.rewards[k]; ok {
		return false, nil
	}
	f.rewards[k] = *rec
	return true, nil
}

func (f *fakeRepo) CreateEdge(_ context.Context, edge *models.ReferralEdge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges = append(f.edges, *edge)
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestCascade(repo Repository, ledger wallet.Ledger) *Cascade {
	return NewCascade(repo, ledger, decimal.NewFromInt(20), decimal.NewFromInt(10))
}

// Order O2 scenario: payer 3 referred by R1 (user 2), R1 referred by R2
// (user 1, agent). Paid 100.00 pays R1 +20.00 and R2 +10.00.
func TestCascadeTwoLevelPayout(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	ledger := wallet.NewMemoryLedger()
	c := newTestCascade(repo, ledger)

	repo.users[1] = &models.User{ID: 1, Role: models.ROLE_AGENT}
	repo.users[2] = &models.User{ID: 2, Role: models.ROLE_USER}
	require.NoError(t, c.RecordEdges(ctx, 1, 2))
	require.NoError(t, c.RecordEdges(ctx, 2, 3))

	require.NoError(t, c.Apply(ctx, "O2", 3, dec("100.00")))

	b1, _ := ledger.Balance(ctx, 2)
	b2, _ := ledger.Balance(ctx, 1)
	assert.True(t, b1.Equal(dec("20.00")), "level-1 referrer got %s", b1)
	assert.True(t, b2.Equal(dec("10.00")), "level-2 referrer got %s", b2)
	assert.Len(t, repo.rewards, 2)
}

func TestCascadeLevel2RequiresAgentRole(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	ledger := wallet.NewMemoryLedger()
	c := newTestCascade(repo, ledger)

	repo.users[1] = &models.User{ID: 1, Role: models.ROLE_USER}
	repo.users[2] = &models.User{ID: 2, Role: models.ROLE_USER}
	require.NoError(t, c.RecordEdges(ctx, 1, 2))
	require.NoError(t, c.RecordEdges(ctx, 2, 3))

	require.NoError(t, c.Apply(ctx, "O3", 3, dec("100.00")))

	b1, _ := ledger.Balance(ctx, 2)
	b2, _ := ledger.Balance(ctx, 1)
	assert.True(t, b1.Equal(dec("20.00")))
	assert.True(t, b2.IsZero(), "non-agent level-2 referrer must not be paid, got %s", b2)
	assert.Len(t, repo.rewards, 1)
}

func TestCascadeReplayPaysAtMostOncePerReferrer(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	ledger := wallet.NewMemoryLedger()
	c := newTestCascade(repo, ledger)

	repo.users[2] = &models.User{ID: 2, Role: models.ROLE_USER}
	require.NoError(t, c.RecordEdges(ctx, 2, 3))

	require.NoError(t, c.Apply(ctx, "O4", 3, dec("50.00")))
	require.NoError(t, c.Apply(ctx, "O4", 3, dec("50.00")))

	b, _ := ledger.Balance(ctx, 2)
	assert.True(t, b.Equal(dec("10.00")), "replay must not double-credit, got %s", b)
	assert.Len(t, repo.rewards, 1)
}

func TestCascadeNoEdgesNoPayout(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	ledger := wallet.NewMemoryLedger()
	c := newTestCascade(repo, ledger)

	require.NoError(t, c.Apply(ctx, "O5", 9, dec("100.00")))
	assert.Empty(t, repo.rewards)
}

func TestRecordEdgesBuildsTwoLevels(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo()
	c := newTestCascade(repo, wallet.NewMemoryLedger())

	require.NoError(t, c.RecordEdges(ctx, 1, 2))
	require.NoError(t, c.RecordEdges(ctx, 2, 3))

	edges, err := repo.EdgesForReferred(ctx, 3)
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, uint(2), edges[0].ReferrerID)
	assert.Equal(t, models.ReferralLevelDirect, edges[0].Level)
	assert.Equal(t, uint(1), edges[1].ReferrerID)
	assert.Equal(t, models.ReferralLevelIndirect, edges[1].Level)
}
