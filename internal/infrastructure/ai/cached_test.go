package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cotejo/matching"
)

// MockProvider мок арбитра на testify/mock
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) ValidateBatch(ctx context.Context, pairs []matching.PairRequest) (map[string]matching.Verdict, error) {
	args := m.Called(ctx, pairs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]matching.Verdict), args.Error(1)
}

func (m *MockProvider) Provider() string { return "mockprovider" }

func (m *MockProvider) Model() string { return "m1" }

type failingStore struct{}

func (failingStore) LoadVerdicts(context.Context, []string) (map[string]matching.Verdict, error) {
	return nil, errors.New("disk full")
}

func (failingStore) SaveVerdicts(context.Context, map[string]matching.Verdict) error {
	return errors.New("disk full")
}

func TestVerdictKey(t *testing.T) {
	a := VerdictKey("m1", "parafuso", "porca")
	assert.Len(t, a, 64)
	assert.Equal(t, a, VerdictKey("m1", "parafuso", "porca"))
	assert.NotEqual(t, a, VerdictKey("m2", "parafuso", "porca"))
	assert.NotEqual(t, a, VerdictKey("m1", "porca", "parafuso"))
	assert.NotEqual(t, VerdictKey("m1", "ab", "c"), VerdictKey("m1", "a", "bc"))
}

func TestCachedClient_SendsOnlyMisses(t *testing.T) {
	inner := new(MockProvider)
	store := NewMemoryVerdictStore()
	metrics := NewMetricsCollector()
	client := NewCachedClient(inner, store, metrics, quietLogger())
	ctx := context.Background()
	pairs := samplePairs()

	require.NoError(t, store.SaveVerdicts(ctx, map[string]matching.Verdict{
		VerdictKey("m1", pairs[0].SourceText, pairs[0].TargetText): {IsMatch: true, Confidence: 0.9, Rationale: "cached"},
	}))

	inner.On("ValidateBatch", mock.Anything, []matching.PairRequest{pairs[1]}).
		Return(map[string]matching.Verdict{
			"G2_C2":   {IsMatch: false, Confidence: 0.2},
			"bogus_1": {IsMatch: true, Confidence: 1},
		}, nil).Once()

	verdicts, err := client.ValidateBatch(ctx, pairs)
	require.NoError(t, err)
	require.Len(t, verdicts, 2)
	assert.Equal(t, "cached", verdicts["G1_C1"].Rationale)
	assert.False(t, verdicts["G2_C2"].IsMatch)
	assert.Equal(t, 2, store.Len())
	inner.AssertExpectations(t)

	// второй вызов целиком из кэша
	verdicts, err = client.ValidateBatch(ctx, pairs)
	require.NoError(t, err)
	assert.Len(t, verdicts, 2)
	inner.AssertNumberOfCalls(t, "ValidateBatch", 1)

	snapshot := metrics.GetAllMetrics()
	assert.Equal(t, int64(3), snapshot.CacheHits)
	assert.Equal(t, int64(1), snapshot.CacheMisses)
}

func TestCachedClient_InnerErrorDropsBatch(t *testing.T) {
	inner := new(MockProvider)
	inner.On("ValidateBatch", mock.Anything, mock.Anything).Return(nil, ErrProviderUnavailable)
	client := NewCachedClient(inner, NewMemoryVerdictStore(), nil, quietLogger())

	verdicts, err := client.ValidateBatch(context.Background(), samplePairs())
	assert.Nil(t, verdicts)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestCachedClient_StoreFailureFallsThrough(t *testing.T) {
	inner := new(MockProvider)
	inner.On("ValidateBatch", mock.Anything, mock.Anything).
		Return(map[string]matching.Verdict{"G1_C1": {IsMatch: true, Confidence: 0.8}}, nil)
	client := NewCachedClient(inner, failingStore{}, nil, quietLogger())

	verdicts, err := client.ValidateBatch(context.Background(), samplePairs())
	require.NoError(t, err)
	assert.Len(t, verdicts, 1)
	assert.Equal(t, "mockprovider", client.Provider())
	assert.Equal(t, "m1", client.Model())
}
