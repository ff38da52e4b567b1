package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/canvas-assignment-manager/internal/models"
	appErrors "github.com/noah-isme/canvas-assignment-manager/pkg/errors"
	"github.com/noah-isme/canvas-assignment-manager/pkg/secret"
)

// Persistence keys.
const (
	KeyConfig      = "canvas-api-config"
	KeyAssignments = "canvas-assignments"
	KeyShowHidden  = "canvas-show-hidden"
)

const blockedTransportMessage = "CORS Error: Canvas API calls are blocked by browser security. Route requests through the relay or deploy the app behind a server with proper CORS handling."

// KeyValueStore is the durable storage port behind the store.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Fetcher produces a fresh classified collection for a configuration.
type Fetcher interface {
	FetchAll(ctx context.Context, cfg models.APIConfig) ([]models.ClassifiedAssignment, error)
}

// ConnectionVerifier checks that credentials reach Canvas before SetConfig saves them.
type ConnectionVerifier interface {
	Verify(ctx context.Context, cfg models.APIConfig) error
}

// StoreOptions carries the optional collaborators of an AssignmentStore.
type StoreOptions struct {
	Validator *validator.Validate
	Verifier  ConnectionVerifier
	Box       *secret.Box
	Metrics   *MetricsService
	Logger    *zap.Logger
	Now       func() time.Time
}

// AssignmentStore owns the classified collection plus per-item selection and visibility flags.
// Every mutation writes through to the KeyValueStore before returning. All methods are safe for
// concurrent use; mutations are serialized.
type AssignmentStore struct {
	mu sync.Mutex

	kv        KeyValueStore
	fetcher   Fetcher
	validator *validator.Validate
	verifier  ConnectionVerifier
	box       *secret.Box
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time

	config        *models.APIConfig
	assignments   []models.ClassifiedAssignment
	showHidden    bool
	loading       bool
	lastErr       *string
	lastFetchedAt *time.Time
}

// NewAssignmentStore constructs an empty store. Call Load to restore persisted state.
func NewAssignmentStore(kv KeyValueStore, fetcher Fetcher, opts StoreOptions) *AssignmentStore {
	if opts.Validator == nil {
		opts.Validator = NewConfigValidator()
	}
	if opts.Box == nil {
		opts.Box = secret.NewBox("")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AssignmentStore{
		kv:          kv,
		fetcher:     fetcher,
		validator:   opts.Validator,
		verifier:    opts.Verifier,
		box:         opts.Box,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
		now:         opts.Now,
		assignments: []models.ClassifiedAssignment{},
	}
}

// Load restores config, collection and the show-hidden flag from storage. Corrupt entries are
// logged and skipped.
func (s *AssignmentStore) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok, err := s.kv.Get(ctx, KeyConfig); err != nil {
		return fmt.Errorf("load %s: %w", KeyConfig, err)
	} else if ok {
		var cfg models.APIConfig
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			s.logger.Warn("failed to load saved config", zap.Error(err))
		} else if key, err := s.box.Open(cfg.APIKey); err != nil {
			s.logger.Warn("failed to open saved api key", zap.Error(err))
		} else {
			cfg.APIKey = key
			s.config = &cfg
		}
	}

	if raw, ok, err := s.kv.Get(ctx, KeyAssignments); err != nil {
		return fmt.Errorf("load %s: %w", KeyAssignments, err)
	} else if ok {
		var items []models.ClassifiedAssignment
		if err := json.Unmarshal([]byte(raw), &items); err != nil {
			s.logger.Warn("failed to load saved assignments", zap.Error(err))
		} else if items != nil {
			s.assignments = items
		}
	}

	if raw, ok, err := s.kv.Get(ctx, KeyShowHidden); err != nil {
		return fmt.Errorf("load %s: %w", KeyShowHidden, err)
	} else if ok {
		var show bool
		if err := json.Unmarshal([]byte(raw), &show); err != nil {
			s.logger.Warn("failed to load saved show-hidden flag", zap.Error(err))
		} else {
			s.showHidden = show
		}
	}

	s.publishCounts()
	return nil
}

// Config returns the current configuration, if any.
func (s *AssignmentStore) Config() (models.APIConfig, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return models.APIConfig{}, false
	}
	return *s.config, true
}

// SetConfig validates and replaces the configuration. With a ConnectionVerifier the credentials
// must also reach Canvas; a failed check stores nothing and records the error message. Pointing
// the store at a different Canvas instance or token drops the previous collection.
func (s *AssignmentStore) SetConfig(ctx context.Context, cfg models.APIConfig) error {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if err := s.validator.Struct(cfg); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	if s.verifier != nil {
		if err := s.verifier.Verify(ctx, cfg); err != nil {
			s.SetError(userFacingMessage("Failed to connect to Canvas API", err))
			s.logger.Warn("canvas connection check failed", zap.String("base_url", cfg.BaseURL), zap.Error(err))
			return err
		}
		s.SetError("")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.config != nil && *s.config != cfg
	s.config = &cfg
	if err := s.persistConfig(ctx); err != nil {
		return err
	}
	if changed && len(s.assignments) > 0 {
		s.assignments = []models.ClassifiedAssignment{}
		s.lastFetchedAt = nil
		return s.persistAssignments(ctx)
	}
	return nil
}

// SetAssignments replaces the whole collection.
func (s *AssignmentStore) SetAssignments(ctx context.Context, items []models.ClassifiedAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments = append(make([]models.ClassifiedAssignment, 0, len(items)), items...)
	return s.persistAssignments(ctx)
}

// ToggleSelection flips IsSelected for id. It reports false, without persisting, when id is absent.
func (s *AssignmentStore) ToggleSelection(ctx context.Context, id int64) (bool, error) {
	return s.mutateOne(ctx, id, func(item *models.ClassifiedAssignment) {
		item.IsSelected = !item.IsSelected
	})
}

// ToggleVisibility flips IsHidden for id. IsDueInClass is never touched.
func (s *AssignmentStore) ToggleVisibility(ctx context.Context, id int64) (bool, error) {
	return s.mutateOne(ctx, id, func(item *models.ClassifiedAssignment) {
		item.IsHidden = !item.IsHidden
	})
}

// SelectAll selects every currently visible item. Hidden items keep their selection unless
// hidden assignments are being shown.
func (s *AssignmentStore) SelectAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.showHidden || !s.assignments[i].IsHidden {
			s.assignments[i].IsSelected = true
		}
	}
	return s.persistAssignments(ctx)
}

// DeselectAll clears selection on every item regardless of visibility.
func (s *AssignmentStore) DeselectAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		s.assignments[i].IsSelected = false
	}
	return s.persistAssignments(ctx)
}

// SetShowHiddenAssignments toggles the global display flag without altering any item.
func (s *AssignmentStore) SetShowHiddenAssignments(ctx context.Context, show bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showHidden = show
	return s.persist(ctx, KeyShowHidden, show)
}

// ShowHiddenAssignments reports the global display flag.
func (s *AssignmentStore) ShowHiddenAssignments() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showHidden
}

// Assignments returns a copy of the whole collection.
func (s *AssignmentStore) Assignments() []models.ClassifiedAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(models.ClassifiedAssignment) bool { return true })
}

// Assignment returns a copy of the item with id.
func (s *AssignmentStore) Assignment(id int64) (models.ClassifiedAssignment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.assignments {
		if item.ID == id {
			return item, true
		}
	}
	return models.ClassifiedAssignment{}, false
}

// VisibleAssignments returns everything when hidden assignments are shown, else unhidden items.
func (s *AssignmentStore) VisibleAssignments() []models.ClassifiedAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(s.isVisible)
}

// HiddenAssignments returns hidden items regardless of the global flag.
func (s *AssignmentStore) HiddenAssignments() []models.ClassifiedAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(item models.ClassifiedAssignment) bool { return item.IsHidden })
}

// SelectedAssignments returns selected items.
func (s *AssignmentStore) SelectedAssignments() []models.ClassifiedAssignment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(item models.ClassifiedAssignment) bool { return item.IsSelected })
}

// View dispatches to the query matching name (visible, hidden, selected, all).
func (s *AssignmentStore) View(name string) ([]models.ClassifiedAssignment, error) {
	switch name {
	case "", models.ViewVisible:
		return s.VisibleAssignments(), nil
	case models.ViewHidden:
		return s.HiddenAssignments(), nil
	case models.ViewSelected:
		return s.SelectedAssignments(), nil
	case models.ViewAll:
		return s.Assignments(), nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown view %q", name))
	}
}

// NeedsInitialFetch reports a configured store that holds no assignments and is not fetching.
func (s *AssignmentStore) NeedsInitialFetch() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config != nil && len(s.assignments) == 0 && !s.loading
}

// SetLoading records whether a fetch is in flight. Callers that claimed a refresh with
// BeginRefresh but could not start it release the flag with SetLoading(false).
func (s *AssignmentStore) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = loading
}

// SetError records the last user-facing error; an empty message clears it.
func (s *AssignmentStore) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message == "" {
		s.lastErr = nil
		return
	}
	s.lastErr = &message
}

// Clear resets the store to its initial state and erases persisted data.
func (s *AssignmentStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config = nil
	s.assignments = []models.ClassifiedAssignment{}
	s.showHidden = false
	s.loading = false
	s.lastErr = nil
	s.lastFetchedAt = nil
	s.publishCounts()

	var errs []error
	for _, key := range []string{KeyConfig, KeyAssignments, KeyShowHidden} {
		if err := s.kv.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Refresh claims the loading flag and runs the fetcher against the current configuration. On
// failure the previous collection is kept and the error field is populated.
func (s *AssignmentStore) Refresh(ctx context.Context) error {
	if err := s.BeginRefresh(); err != nil {
		return err
	}
	return s.RunRefresh(ctx)
}

// BeginRefresh marks a refresh as loading, failing with ErrConfigRequired or
// ErrRefreshInProgress. A successful claim must be followed by RunRefresh or SetLoading(false).
func (s *AssignmentStore) BeginRefresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.config == nil {
		return appErrors.ErrConfigRequired
	}
	if s.loading {
		return appErrors.ErrRefreshInProgress
	}
	s.loading = true
	s.lastErr = nil
	return nil
}

// RunRefresh fetches with the current configuration and replaces the collection. A result whose
// configuration changed or was cleared during the fetch is discarded.
func (s *AssignmentStore) RunRefresh(ctx context.Context) error {
	cfg, ok := s.Config()
	if !ok {
		s.SetLoading(false)
		return appErrors.ErrConfigRequired
	}

	items, err := s.fetcher.FetchAll(ctx, cfg)
	if err != nil {
		s.SetLoading(false)
		s.SetError(userFacingMessage("Failed to fetch assignments", err))
		s.logger.Warn("assignment refresh failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if s.config == nil || *s.config != cfg {
		return nil
	}
	fetchedAt := s.now().UTC()
	s.lastFetchedAt = &fetchedAt
	s.assignments = append(make([]models.ClassifiedAssignment, 0, len(items)), items...)
	return s.persistAssignments(ctx)
}

// Snapshot summarises the store for display.
func (s *AssignmentStore) Snapshot() models.StoreSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := models.StoreSnapshot{
		ShowHiddenAssignments: s.showHidden,
		IsLoading:             s.loading,
		Counts:                s.countsLocked(),
	}
	if s.config != nil {
		snap.Configured = true
		snap.BaseURL = s.config.BaseURL
		snap.MaskedKey = s.config.MaskedKey()
	}
	if s.lastErr != nil {
		msg := *s.lastErr
		snap.Error = &msg
	}
	if s.lastFetchedAt != nil {
		at := *s.lastFetchedAt
		snap.LastFetchedAt = &at
	}
	return snap
}

func (s *AssignmentStore) mutateOne(ctx context.Context, id int64, apply func(*models.ClassifiedAssignment)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.assignments {
		if s.assignments[i].ID == id {
			apply(&s.assignments[i])
			return true, s.persistAssignments(ctx)
		}
	}
	return false, nil
}

func (s *AssignmentStore) isVisible(item models.ClassifiedAssignment) bool {
	return s.showHidden || !item.IsHidden
}

func (s *AssignmentStore) filter(keep func(models.ClassifiedAssignment) bool) []models.ClassifiedAssignment {
	out := make([]models.ClassifiedAssignment, 0, len(s.assignments))
	for _, item := range s.assignments {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func (s *AssignmentStore) countsLocked() models.StoreCount {
	counts := models.StoreCount{Total: len(s.assignments)}
	for _, item := range s.assignments {
		if item.IsHidden {
			counts.Hidden++
		}
		if s.isVisible(item) {
			counts.Visible++
		}
		if item.IsSelected {
			counts.Selected++
		}
		if item.IsDueInClass {
			counts.DueInClass++
		}
	}
	return counts
}

func (s *AssignmentStore) publishCounts() {
	if s.metrics == nil {
		return
	}
	c := s.countsLocked()
	s.metrics.SetAssignmentCounts(c.Total, c.Visible, c.Hidden, c.Selected)
}

func (s *AssignmentStore) persistConfig(ctx context.Context) error {
	cfg := *s.config
	sealed, err := s.box.Seal(cfg.APIKey)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seal api key")
	}
	cfg.APIKey = sealed
	return s.persist(ctx, KeyConfig, cfg)
}

func (s *AssignmentStore) persistAssignments(ctx context.Context) error {
	s.publishCounts()
	return s.persist(ctx, KeyAssignments, s.assignments)
}

func (s *AssignmentStore) persist(ctx context.Context, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	start := time.Now()
	err = s.kv.Set(ctx, key, string(payload))
	s.metrics.ObservePersist(key, time.Since(start))
	if err != nil {
		s.logger.Error("failed to persist store state", zap.String("key", key), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist store state")
	}
	return nil
}

// userFacingMessage maps browser-style transport blocks to the CORS hint and prefixes anything else.
func userFacingMessage(prefix string, err error) string {
	var transport *appErrors.TransportError
	if errors.As(err, &transport) && transport.LooksBlocked() {
		return blockedTransportMessage
	}
	return prefix + ": " + err.Error()
}
