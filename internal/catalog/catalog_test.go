package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vagledaren/vagledaren/internal/fault"
	"github.com/vagledaren/vagledaren/internal/registry"
	"github.com/vagledaren/vagledaren/internal/storage"
	"github.com/vagledaren/vagledaren/internal/testutil"
)

func newTestCache(t *testing.T, api registry.API, store SnapshotStore) *Cache {
	t.Helper()
	return New(testutil.TestLogger(), api, store, Options{FetchConcurrency: 4})
}

func TestSearch_PopulatesAndFilters(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	fixture := testutil.NewRegistryFixture()
	fixture.Install(api)

	cache := newTestCache(t, api, nil)

	schools, err := cache.Search(context.Background(), Criteria{
		Municipality: "Stockholm",
		ProgramCodes: []string{"TE"},
	})

	require.NoError(t, err)
	require.Len(t, schools, 2)
	assert.Equal(t, "Norra Tekniska Gymnasiet", schools[0].Name)
	assert.Equal(t, "Södermalms Gymnasium", schools[1].Name)
	for _, s := range schools {
		assert.Equal(t, "Stockholm", s.Municipality)
		assert.True(t, s.OffersAny([]string{"TE"}))
	}
}

func TestSearch_SecondCallServedFromCache(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	fixture := testutil.NewRegistryFixture()
	fixture.Install(api)

	cache := newTestCache(t, api, nil)

	_, err := cache.Search(context.Background(), Criteria{})
	require.NoError(t, err)
	_, err = cache.Search(context.Background(), Criteria{Municipality: "Uppsala"})
	require.NoError(t, err)

	api.AssertNumberOfCalls(t, "ListSummaries", 1)
}

func TestSearch_ConcurrentColdCallsShareOneBuild(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	fixture := testutil.NewRegistryFixture()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	api.On("ListSummaries", mock.Anything).Run(func(mock.Arguments) {
		once.Do(func() { close(started) })
		<-release
	}).Return(fixture.Summaries, nil)
	for code, rec := range fixture.Details {
		api.On("GetDetail", mock.Anything, code).Return(rec, nil)
	}

	cache := newTestCache(t, api, nil)

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = cache.Search(context.Background(), Criteria{})
		}()
	}

	<-started
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	api.AssertNumberOfCalls(t, "ListSummaries", 1)
}

func TestSearch_DropsFailedAndInvalidUnits(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	fixture := testutil.NewRegistryFixture()

	api.On("ListSummaries", mock.Anything).Return(fixture.Summaries, nil)
	api.On("GetDetail", mock.Anything, "11111111").Return(fixture.Details["11111111"], nil)
	api.On("GetDetail", mock.Anything, "22222222").Return(nil, errors.New("timeout"))
	// Missing municipality makes the record invalid.
	api.On("GetDetail", mock.Anything, "33333333").Return(&registry.SchoolRecord{
		Code: "33333333", Name: "Uppsala Tekniska Gymnasium",
	}, nil)

	cache := newTestCache(t, api, nil)

	schools, err := cache.Search(context.Background(), Criteria{})
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "11111111", schools[0].Code)
}

func TestSearch_SkipsInactiveUnits(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	api.On("ListSummaries", mock.Anything).Return([]registry.Summary{
		{Code: "11111111", Name: "Aktiv Skolan", Status: "AKTIV"},
		{Code: "99999999", Name: "Nedlagd Skolan", Status: "UPPHÖRD"},
	}, nil)
	api.On("GetDetail", mock.Anything, "11111111").Return(&registry.SchoolRecord{
		Code: "11111111", Name: "Aktiv Skolan", Municipality: "Stockholm",
	}, nil)

	cache := newTestCache(t, api, nil)

	schools, err := cache.Search(context.Background(), Criteria{})
	require.NoError(t, err)
	require.Len(t, schools, 1)
	assert.Equal(t, "Aktiv Skolan", schools[0].Name)
	api.AssertNotCalled(t, "GetDetail", mock.Anything, "99999999")
}

func TestSearch_ListFailureIsRetryable(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	api.On("ListSummaries", mock.Anything).Return(nil, errors.New("connection refused"))

	cache := newTestCache(t, api, nil)

	_, err := cache.Search(context.Background(), Criteria{})
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.CodeSearch))
	assert.True(t, fault.CanRetry(err))
}

func TestGetByCode_FromCache(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	fixture := testutil.NewRegistryFixture()
	fixture.Install(api)

	cache := newTestCache(t, api, nil)

	school, err := cache.GetByCode(context.Background(), "33333333")
	require.NoError(t, err)
	assert.Equal(t, "Uppsala", school.Municipality)
}

func TestGetByCode_DirectFetchOnCacheMiss(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	api.On("ListSummaries", mock.Anything).Return([]registry.Summary{}, nil)
	api.On("GetDetail", mock.Anything, "44444444").Return(&registry.SchoolRecord{
		Code: "44444444", Name: "Nya Gymnasiet", Municipality: "Lund",
	}, nil)

	cache := newTestCache(t, api, nil)

	school, err := cache.GetByCode(context.Background(), "44444444")
	require.NoError(t, err)
	assert.Equal(t, "Nya Gymnasiet", school.Name)
}

func TestGetByCode_NotFound(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	api.On("ListSummaries", mock.Anything).Return([]registry.Summary{}, nil)
	api.On("GetDetail", mock.Anything, "00000000").Return(nil,
		fault.New(fault.CodeSchoolNotFound, "school unit 00000000 not found"))

	cache := newTestCache(t, api, nil)

	_, err := cache.GetByCode(context.Background(), "00000000")
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.CodeSchoolNotFound))
	assert.False(t, fault.CanRetry(err))
}

func TestGetByCode_TransientFetchFailureStaysRetryable(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	api.On("ListSummaries", mock.Anything).Return([]registry.Summary{}, nil)
	api.On("GetDetail", mock.Anything, "44444444").Return(nil,
		fault.Retryable(fault.CodeNetwork, "connection refused", 0))

	cache := newTestCache(t, api, nil)

	_, err := cache.GetByCode(context.Background(), "44444444")
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.CodeSearch))
	assert.True(t, fault.CanRetry(err))
	assert.False(t, fault.IsCode(err, fault.CodeSchoolNotFound))
}

func TestRefresh_RebuildsCollection(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	fixture := testutil.NewRegistryFixture()
	fixture.Install(api)

	cache := newTestCache(t, api, nil)

	_, err := cache.Search(context.Background(), Criteria{})
	require.NoError(t, err)

	count, err := cache.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	api.AssertNumberOfCalls(t, "ListSummaries", 2)
}

func TestRefresh_FailureKeepsErrorRetryable(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	api.On("ListSummaries", mock.Anything).Return(nil, errors.New("upstream down"))

	cache := newTestCache(t, api, nil)

	_, err := cache.Refresh(context.Background())
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.CodeRefresh))
	assert.True(t, fault.CanRetry(err))
}

func TestRefresh_FailureDropsSnapshot(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	api.On("ListSummaries", mock.Anything).Return(nil, errors.New("upstream down"))

	store := &testutil.MockSnapshotStore{}
	store.On("DeleteSnapshots", "schools").Return(nil)

	cache := newTestCache(t, api, store)

	_, err := cache.Refresh(context.Background())
	require.Error(t, err)
	store.AssertCalled(t, "DeleteSnapshots", "schools")
}

func TestPrograms_EmptyCatalogFails(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	api.On("GetPrograms", mock.Anything).Return([]registry.ProgramRecord{}, nil)

	cache := newTestCache(t, api, nil)

	_, err := cache.Programs(context.Background())
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.CodeNoPrograms))
}

func TestProgramByCode(t *testing.T) {
	api := &testutil.MockRegistryAPI{}
	fixture := testutil.NewRegistryFixture()
	fixture.Install(api)

	cache := newTestCache(t, api, nil)

	program, err := cache.ProgramByCode(context.Background(), "TE")
	require.NoError(t, err)
	assert.Equal(t, "Teknikprogrammet", program.Name)
	assert.Len(t, program.StudyPaths, 2)

	_, err = cache.ProgramByCode(context.Background(), "XX")
	require.Error(t, err)
	assert.True(t, fault.IsCode(err, fault.CodeProgramNotFound))
}

func TestSchools_RestoredFromFreshSnapshot(t *testing.T) {
	schools := []School{{Code: "11111111", Name: "Norra Tekniska Gymnasiet", Municipality: "Stockholm"}}
	data, err := json.Marshal(schools)
	require.NoError(t, err)

	store := &testutil.MockSnapshotStore{}
	store.On("LatestSnapshot", "schools").Return(&storage.Snapshot{
		Kind: "schools", Data: data, ItemCount: 1, FetchedAt: time.Now().Add(-time.Hour),
	}, nil)
	store.On("SaveSnapshot", mock.Anything).Return(nil)

	api := &testutil.MockRegistryAPI{}

	cache := newTestCache(t, api, store)

	got, err := cache.Search(context.Background(), Criteria{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "11111111", got[0].Code)
	api.AssertNotCalled(t, "ListSummaries", mock.Anything)
}

func TestSchools_StaleSnapshotIgnored(t *testing.T) {
	store := &testutil.MockSnapshotStore{}
	store.On("LatestSnapshot", "schools").Return(&storage.Snapshot{
		Kind: "schools", Data: []byte(`[]`), ItemCount: 1,
		FetchedAt: time.Now().Add(-200 * 24 * time.Hour),
	}, nil)
	store.On("SaveSnapshot", mock.Anything).Return(nil)

	api := &testutil.MockRegistryAPI{}
	fixture := testutil.NewRegistryFixture()
	fixture.Install(api)

	cache := newTestCache(t, api, store)

	got, err := cache.Search(context.Background(), Criteria{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
	api.AssertCalled(t, "ListSummaries", mock.Anything)
	store.AssertCalled(t, "SaveSnapshot", mock.Anything)
}
