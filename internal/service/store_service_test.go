package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
	"github.com/noah-isme/canvas-assignment-manager/pkg/secret"
)

const storeTestToken = "1234~abcdefghijklmnopqrstuvwxyz"

var storeTestConfig = models.APIConfig{BaseURL: "https://school.instructure.com", APIKey: storeTestToken}

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]string
	writes  int
	failSet error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]string{}}
}

func (f *fakeKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return f.failSet
	}
	f.writes++
	f.data[key] = value
	return nil
}

func (f *fakeKV) Remove(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

type fetcherStub struct {
	items   []models.ClassifiedAssignment
	err     error
	calls   int
	started chan struct{}
	release chan struct{}
}

func (f *fetcherStub) FetchAll(ctx context.Context, cfg models.APIConfig) ([]models.ClassifiedAssignment, error) {
	f.calls++
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.items, f.err
}

func sampleItems() []models.ClassifiedAssignment {
	return []models.ClassifiedAssignment{
		Classify(realAssignment(1, "Essay"), "English"),
		Classify(realAssignment(2, "Lab work"), "Biology"),
		Classify(realAssignment(3, "Problem set"), "Math"),
	}
}

func newTestStore(kv *fakeKV, fetcher Fetcher) *AssignmentStore {
	return NewAssignmentStore(kv, fetcher, StoreOptions{Now: func() time.Time { return fixedNow }})
}

func ids(items []models.ClassifiedAssignment) []int64 {
	out := make([]int64, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestVisibleAssignmentsHonoursShowHidden(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeKV(), nil)
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))

	assert.Equal(t, []int64{1, 3}, ids(store.VisibleAssignments()))
	assert.Equal(t, []int64{2}, ids(store.HiddenAssignments()))

	require.NoError(t, store.SetShowHiddenAssignments(ctx, true))
	assert.Equal(t, []int64{1, 2, 3}, ids(store.VisibleAssignments()))
	assert.Equal(t, []int64{2}, ids(store.HiddenAssignments()))
}

func TestToggleSelectionTwiceRestoresState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeKV(), nil)
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))

	found, err := store.ToggleSelection(ctx, 1)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []int64{1}, ids(store.SelectedAssignments()))

	_, err = store.ToggleSelection(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, store.SelectedAssignments())
}

func TestToggleUnknownIDIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := newTestStore(kv, nil)
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))
	writes := kv.writes

	found, err := store.ToggleSelection(ctx, 999)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = store.ToggleVisibility(ctx, 999)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, writes, kv.writes)
}

func TestToggleVisibilityKeepsDueInClass(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeKV(), nil)
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))

	_, err := store.ToggleVisibility(ctx, 2)
	require.NoError(t, err)
	all := store.Assignments()
	assert.False(t, all[1].IsHidden)
	assert.True(t, all[1].IsDueInClass)

	_, err = store.ToggleVisibility(ctx, 1)
	require.NoError(t, err)
	all = store.Assignments()
	assert.True(t, all[0].IsHidden)
	assert.False(t, all[0].IsDueInClass)
}

func TestSelectAllSkipsHiddenUnlessShown(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeKV(), nil)
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))

	require.NoError(t, store.SelectAll(ctx))
	assert.Equal(t, []int64{1, 3}, ids(store.SelectedAssignments()))

	require.NoError(t, store.SetShowHiddenAssignments(ctx, true))
	require.NoError(t, store.SelectAll(ctx))
	assert.Equal(t, []int64{1, 2, 3}, ids(store.SelectedAssignments()))

	require.NoError(t, store.SetShowHiddenAssignments(ctx, false))
	require.NoError(t, store.DeselectAll(ctx))
	assert.Empty(t, store.SelectedAssignments())
}

func TestSetShowHiddenDoesNotTouchItems(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeKV(), nil)
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))
	before := store.Assignments()

	require.NoError(t, store.SetShowHiddenAssignments(ctx, true))
	assert.Equal(t, before, store.Assignments())
}

func TestStorePersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	box := secret.NewBox("passphrase")
	store := NewAssignmentStore(kv, nil, StoreOptions{Box: box})

	require.NoError(t, store.SetConfig(ctx, storeTestConfig))
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))
	_, err := store.ToggleSelection(ctx, 3)
	require.NoError(t, err)
	require.NoError(t, store.SetShowHiddenAssignments(ctx, true))

	assert.NotContains(t, kv.data[KeyConfig], storeTestToken)
	assert.Equal(t, "true", kv.data[KeyShowHidden])

	reloaded := NewAssignmentStore(kv, nil, StoreOptions{Box: box})
	require.NoError(t, reloaded.Load(ctx))

	cfg, ok := reloaded.Config()
	require.True(t, ok)
	assert.Equal(t, storeTestConfig, cfg)
	assert.True(t, reloaded.ShowHiddenAssignments())
	assert.Equal(t, store.Assignments(), reloaded.Assignments())
	assert.Equal(t, []int64{3}, ids(reloaded.SelectedAssignments()))
}

func TestLoadSkipsCorruptEntries(t *testing.T) {
	kv := newFakeKV()
	kv.data[KeyAssignments] = "{not json"
	kv.data[KeyShowHidden] = "true"

	store := newTestStore(kv, nil)
	require.NoError(t, store.Load(context.Background()))
	assert.Empty(t, store.Assignments())
	assert.True(t, store.ShowHiddenAssignments())
}

func TestSetConfigValidates(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := newTestStore(kv, nil)

	err := store.SetConfig(ctx, models.APIConfig{BaseURL: "http://school.instructure.com", APIKey: storeTestToken})
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Contains(t, err.Error(), "https://")

	err = store.SetConfig(ctx, models.APIConfig{BaseURL: "https://school.instructure.com", APIKey: "short"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valid Canvas API key")

	_, ok := store.Config()
	assert.False(t, ok)
	assert.Zero(t, kv.writes)
}

func TestSetConfigNormalisesBaseURL(t *testing.T) {
	store := newTestStore(newFakeKV(), nil)
	require.NoError(t, store.SetConfig(context.Background(), models.APIConfig{BaseURL: " https://school.instructure.com/ ", APIKey: storeTestToken}))
	cfg, _ := store.Config()
	assert.Equal(t, "https://school.instructure.com", cfg.BaseURL)
}

func TestChangingConfigDropsCollection(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeKV(), nil)
	require.NoError(t, store.SetConfig(ctx, storeTestConfig))
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))

	require.NoError(t, store.SetConfig(ctx, storeTestConfig))
	assert.Len(t, store.Assignments(), 3)

	other := storeTestConfig
	other.BaseURL = "https://other.instructure.com"
	require.NoError(t, store.SetConfig(ctx, other))
	assert.Empty(t, store.Assignments())
}

func TestClearResetsEverything(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := newTestStore(kv, nil)
	require.NoError(t, store.SetConfig(ctx, storeTestConfig))
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))
	require.NoError(t, store.SetShowHiddenAssignments(ctx, true))
	store.SetError("boom")

	require.NoError(t, store.Clear(ctx))
	snap := store.Snapshot()
	assert.False(t, snap.Configured)
	assert.False(t, snap.ShowHiddenAssignments)
	assert.Nil(t, snap.Error)
	assert.Zero(t, snap.Counts.Total)
	assert.Empty(t, kv.data)
}

func TestRefreshRequiresConfig(t *testing.T) {
	store := newTestStore(newFakeKV(), &fetcherStub{})
	err := store.Refresh(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrConfigRequired))
}

func TestRefreshReplacesCollection(t *testing.T) {
	ctx := context.Background()
	fetcher := &fetcherStub{items: sampleItems()}
	store := newTestStore(newFakeKV(), fetcher)
	require.NoError(t, store.SetConfig(ctx, storeTestConfig))

	require.NoError(t, store.Refresh(ctx))
	snap := store.Snapshot()
	assert.Equal(t, 3, snap.Counts.Total)
	assert.Equal(t, 2, snap.Counts.Visible)
	assert.Equal(t, 1, snap.Counts.DueInClass)
	assert.False(t, snap.IsLoading)
	require.NotNil(t, snap.LastFetchedAt)
	assert.Equal(t, fixedNow, *snap.LastFetchedAt)
	assert.Equal(t, "****wxyz", snap.MaskedKey)
}

func TestRefreshFailureKeepsPreviousCollection(t *testing.T) {
	ctx := context.Background()
	fetcher := &fetcherStub{err: appErrors.NewUpstreamError(401, "Unauthorized", "")}
	store := newTestStore(newFakeKV(), fetcher)
	require.NoError(t, store.SetConfig(ctx, storeTestConfig))
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))

	err := store.Refresh(ctx)
	require.Error(t, err)
	assert.Len(t, store.Assignments(), 3)

	snap := store.Snapshot()
	require.NotNil(t, snap.Error)
	assert.True(t, strings.HasPrefix(*snap.Error, "Failed to fetch assignments: "))
	assert.Contains(t, *snap.Error, "401")
	assert.False(t, snap.IsLoading)
}

func TestRefreshBlockedTransportUsesFriendlyMessage(t *testing.T) {
	ctx := context.Background()
	fetcher := &fetcherStub{err: &appErrors.TransportError{Op: "GET", Err: errors.New("request blocked by CORS policy")}}
	store := newTestStore(newFakeKV(), fetcher)
	require.NoError(t, store.SetConfig(ctx, storeTestConfig))

	require.Error(t, store.Refresh(ctx))
	snap := store.Snapshot()
	require.NotNil(t, snap.Error)
	assert.True(t, strings.HasPrefix(*snap.Error, "CORS Error"))
}

func TestRefreshRejectsConcurrentRun(t *testing.T) {
	ctx := context.Background()
	fetcher := &fetcherStub{items: sampleItems(), started: make(chan struct{}), release: make(chan struct{})}
	store := newTestStore(newFakeKV(), fetcher)
	require.NoError(t, store.SetConfig(ctx, storeTestConfig))

	done := make(chan error, 1)
	go func() { done <- store.Refresh(ctx) }()
	<-fetcher.started

	assert.True(t, store.Snapshot().IsLoading)
	assert.True(t, errors.Is(store.Refresh(ctx), appErrors.ErrRefreshInProgress))

	close(fetcher.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, fetcher.calls)
}

func TestPersistFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := newTestStore(kv, nil)
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))
	kv.failSet = errors.New("disk full")

	_, err := store.ToggleSelection(ctx, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrInternal))
	assert.Equal(t, []int64{1}, ids(store.SelectedAssignments()))
}

func TestViewDispatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(newFakeKV(), nil)
	require.NoError(t, store.SetAssignments(ctx, sampleItems()))

	items, err := store.View(models.ViewHidden)
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ids(items))

	items, err = store.View("")
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = store.View("archived")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestPersistedCollectionIsJSONArray(t *testing.T) {
	kv := newFakeKV()
	store := newTestStore(kv, nil)
	require.NoError(t, store.SetAssignments(context.Background(), sampleItems()))

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(kv.data[KeyAssignments]), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, "Biology", decoded[1]["courseName"])
	assert.Equal(t, true, decoded[1]["isHidden"])
}

func TestSetLoadingAndErrorReflectInSnapshot(t *testing.T) {
	store := newTestStore(newFakeKV(), nil)
	store.SetLoading(true)
	store.SetError("Failed to fetch assignments: boom")

	snap := store.Snapshot()
	assert.True(t, snap.IsLoading)
	require.NotNil(t, snap.Error)
	assert.Equal(t, "Failed to fetch assignments: boom", *snap.Error)

	store.SetError("")
	assert.Nil(t, store.Snapshot().Error)
}

type verifierFunc func(ctx context.Context, cfg models.APIConfig) error

func (f verifierFunc) Verify(ctx context.Context, cfg models.APIConfig) error { return f(ctx, cfg) }

func TestBulkAndToggleOperations(t *testing.T) {
	cases := []struct {
		name       string
		showHidden bool
		apply      func(ctx context.Context, store *AssignmentStore) error
		selected   []int64
		hidden     []int64
		dueInClass []int64
	}{
		{
			name: "deselect all twice",
			apply: func(ctx context.Context, store *AssignmentStore) error {
				if err := store.SelectAll(ctx); err != nil {
					return err
				}
				if err := store.DeselectAll(ctx); err != nil {
					return err
				}
				return store.DeselectAll(ctx)
			},
			selected:   []int64{},
			hidden:     []int64{2},
			dueInClass: []int64{2},
		},
		{
			name: "toggle visibility twice",
			apply: func(ctx context.Context, store *AssignmentStore) error {
				for i := 0; i < 2; i++ {
					if _, err := store.ToggleVisibility(ctx, 2); err != nil {
						return err
					}
				}
				return nil
			},
			selected:   []int64{},
			hidden:     []int64{2},
			dueInClass: []int64{2},
		},
		{
			name: "select all keeps selected hidden item",
			apply: func(ctx context.Context, store *AssignmentStore) error {
				if _, err := store.ToggleVisibility(ctx, 3); err != nil {
					return err
				}
				if _, err := store.ToggleSelection(ctx, 2); err != nil {
					return err
				}
				return store.SelectAll(ctx)
			},
			selected:   []int64{1, 2},
			hidden:     []int64{2, 3},
			dueInClass: []int64{2},
		},
		{
			name:       "select all with hidden shown",
			showHidden: true,
			apply:      func(ctx context.Context, store *AssignmentStore) error { return store.SelectAll(ctx) },
			selected:   []int64{1, 2, 3},
			hidden:     []int64{2},
			dueInClass: []int64{2},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			store := newTestStore(newFakeKV(), nil)
			require.NoError(t, store.SetAssignments(ctx, sampleItems()))
			require.NoError(t, store.SetShowHiddenAssignments(ctx, tc.showHidden))

			require.NoError(t, tc.apply(ctx, store))

			var selected, hidden, dueInClass []int64
			for _, item := range store.Assignments() {
				if item.IsSelected {
					selected = append(selected, item.ID)
				}
				if item.IsHidden {
					hidden = append(hidden, item.ID)
				}
				if item.IsDueInClass {
					dueInClass = append(dueInClass, item.ID)
				}
			}
			assert.ElementsMatch(t, tc.selected, selected)
			assert.ElementsMatch(t, tc.hidden, hidden)
			assert.ElementsMatch(t, tc.dueInClass, dueInClass)
			assert.Equal(t, tc.showHidden, store.ShowHiddenAssignments())
		})
	}
}

func TestNeedsInitialFetch(t *testing.T) {
	cases := []struct {
		name   string
		setup  func(ctx context.Context, store *AssignmentStore)
		expect bool
	}{
		{name: "unconfigured", setup: func(ctx context.Context, store *AssignmentStore) {}, expect: false},
		{
			name: "configured and empty",
			setup: func(ctx context.Context, store *AssignmentStore) {
				require.NoError(t, store.SetConfig(ctx, storeTestConfig))
			},
			expect: true,
		},
		{
			name: "configured with items",
			setup: func(ctx context.Context, store *AssignmentStore) {
				require.NoError(t, store.SetConfig(ctx, storeTestConfig))
				require.NoError(t, store.SetAssignments(ctx, sampleItems()))
			},
			expect: false,
		},
		{
			name: "refresh claimed",
			setup: func(ctx context.Context, store *AssignmentStore) {
				require.NoError(t, store.SetConfig(ctx, storeTestConfig))
				require.NoError(t, store.BeginRefresh())
			},
			expect: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(newFakeKV(), nil)
			tc.setup(context.Background(), store)
			assert.Equal(t, tc.expect, store.NeedsInitialFetch())
		})
	}
}

func TestBeginRefreshClaimsOnce(t *testing.T) {
	ctx := context.Background()
	fetcher := &fetcherStub{items: sampleItems()}
	store := newTestStore(newFakeKV(), fetcher)
	require.NoError(t, store.SetConfig(ctx, storeTestConfig))

	require.NoError(t, store.BeginRefresh())
	assert.True(t, store.Snapshot().IsLoading)
	assert.ErrorIs(t, store.BeginRefresh(), appErrors.ErrRefreshInProgress)

	require.NoError(t, store.RunRefresh(ctx))
	assert.False(t, store.Snapshot().IsLoading)
	assert.Len(t, store.Assignments(), 3)
	assert.Equal(t, 1, fetcher.calls)
}

func TestRunRefreshAfterClearReleasesClaim(t *testing.T) {
	ctx := context.Background()
	fetcher := &fetcherStub{items: sampleItems()}
	store := newTestStore(newFakeKV(), fetcher)
	require.NoError(t, store.SetConfig(ctx, storeTestConfig))
	require.NoError(t, store.BeginRefresh())
	require.NoError(t, store.Clear(ctx))

	assert.ErrorIs(t, store.RunRefresh(ctx), appErrors.ErrConfigRequired)
	assert.False(t, store.Snapshot().IsLoading)
	assert.Zero(t, fetcher.calls)
}

func TestSetConfigRejectedByVerifierStoresNothing(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	var checked models.APIConfig
	store := NewAssignmentStore(kv, nil, StoreOptions{
		Verifier: verifierFunc(func(ctx context.Context, cfg models.APIConfig) error {
			checked = cfg
			return appErrors.NewUpstreamError(401, "Unauthorized", "")
		}),
	})

	err := store.SetConfig(ctx, models.APIConfig{BaseURL: "https://school.instructure.com/", APIKey: storeTestToken})
	require.Error(t, err)
	assert.Equal(t, "https://school.instructure.com", checked.BaseURL)

	_, ok := store.Config()
	assert.False(t, ok)
	assert.Zero(t, kv.writes)
	snap := store.Snapshot()
	assert.False(t, snap.Configured)
	require.NotNil(t, snap.Error)
	assert.True(t, strings.HasPrefix(*snap.Error, "Failed to connect to Canvas API: "))
}

func TestSetConfigAcceptedByVerifierClearsError(t *testing.T) {
	ctx := context.Background()
	calls := 0
	store := NewAssignmentStore(newFakeKV(), nil, StoreOptions{
		Verifier: verifierFunc(func(ctx context.Context, cfg models.APIConfig) error {
			calls++
			return nil
		}),
	})
	store.SetError("Failed to connect to Canvas API: timeout")

	require.NoError(t, store.SetConfig(ctx, storeTestConfig))
	assert.Equal(t, 1, calls)
	assert.Nil(t, store.Snapshot().Error)
	_, ok := store.Config()
	assert.True(t, ok)
}
