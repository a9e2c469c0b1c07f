package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"newsletteradmin/internal/esp"
	"newsletteradmin/internal/metrics"
	"newsletteradmin/internal/models"
	"newsletteradmin/internal/repository"
)

// SyncStatus tags the outcome of a campaign synchronization
type SyncStatus int

const (
	SyncOK SyncStatus = iota
	SyncConnectivityFailure
	SyncOtherFailure
)

func (s SyncStatus) String() string {
	switch s {
	case SyncOK:
		return "ok"
	case SyncConnectivityFailure:
		return "connectivity_failure"
	default:
		return "other_failure"
	}
}

// SyncResult is the outcome of one synchronization. CampaignID is set only
// for SyncOK and Err only for the failures.
type SyncResult struct {
	Status     SyncStatus
	CampaignID string
	Err        error
}

func syncFailed(err error) SyncResult {
	if esp.IsConnectionError(err) || errors.Is(err, context.DeadlineExceeded) {
		return SyncResult{Status: SyncConnectivityFailure, Err: err}
	}
	return SyncResult{Status: SyncOtherFailure, Err: err}
}

// CampaignSynchronizer creates or updates the remote campaign for a newsletter
type CampaignSynchronizer struct {
	provider     esp.Provider
	instances    repository.InstanceRepository
	builder      *CampaignBuilder
	listSetting  string
	defaultList  string
	adminTimeout time.Duration
	metrics      *metrics.EditorMetrics
	logger       *slog.Logger
}

// SynchronizerOptions configures a CampaignSynchronizer
type SynchronizerOptions struct {
	// ListSetting is the per-instance setting naming the default list
	ListSetting string
	// DefaultList is used when no instance list can be resolved
	DefaultList  string
	AdminTimeout time.Duration
	Metrics      *metrics.EditorMetrics
	Logger       *slog.Logger
}

// NewCampaignSynchronizer creates a synchronizer
func NewCampaignSynchronizer(provider esp.Provider, instances repository.InstanceRepository, builder *CampaignBuilder, opts SynchronizerOptions) *CampaignSynchronizer {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &CampaignSynchronizer{
		provider:     provider,
		instances:    instances,
		builder:      builder,
		listSetting:  opts.ListSetting,
		defaultList:  opts.DefaultList,
		adminTimeout: opts.AdminTimeout,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
}

// Sync pushes the newsletter to the provider. instanceID is the instance the
// newsletter belonged to before editing; nil falls back to the segment's.
// Sync never returns a Go error: every fault is folded into the result.
func (s *CampaignSynchronizer) Sync(ctx context.Context, n *models.Newsletter, instanceID *int) SyncResult {
	start := time.Now()
	result := s.sync(ctx, n, instanceID)
	s.metrics.ObserveSync(result.Status.String(), time.Since(start))

	s.logger.Debug("campaign sync finished",
		"newsletter_id", n.ID,
		"status", result.Status.String(),
		"campaign_id", result.CampaignID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result
}

func (s *CampaignSynchronizer) sync(ctx context.Context, n *models.Newsletter, instanceID *int) SyncResult {
	listID, err := s.resolveList(ctx, n, instanceID)
	if err != nil {
		return syncFailed(err)
	}

	campaign, err := s.builder.Build(n)
	if err != nil {
		return syncFailed(fmt.Errorf("failed to build campaign: %w", err))
	}

	// The admin timeout bounds each request and the whole chain of them
	list := s.provider.List(listID)
	if s.adminTimeout > 0 {
		list.SetTimeout(s.adminTimeout)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.adminTimeout)
		defer cancel()
	}

	// A saved newsletter without a remote id may have been created remotely
	// by an earlier save whose response was lost.
	lookupByTitle := !n.IsNew() && !n.HasCampaign()

	campaignID, err := list.SaveCampaign(ctx, campaign, lookupByTitle)
	if err != nil {
		return syncFailed(err)
	}
	if campaignID == "" {
		return syncFailed(errors.New("provider returned an empty campaign id"))
	}
	campaign.ID = campaignID

	if err := ctx.Err(); err != nil {
		return syncFailed(&esp.ConnectionError{Op: "upload resources", Err: err})
	}
	if err := list.UploadResources(ctx, campaign); err != nil {
		return syncFailed(err)
	}

	return SyncResult{Status: SyncOK, CampaignID: campaignID}
}

// resolveList finds the instance default list, falling back to the segment's
// instance and then to the configured default
func (s *CampaignSynchronizer) resolveList(ctx context.Context, n *models.Newsletter, instanceID *int) (string, error) {
	if instanceID == nil && n.Segment != nil {
		instanceID = n.Segment.InstanceID
	}

	if instanceID != nil {
		listID, err := s.instances.GetConfigSetting(ctx, *instanceID, s.listSetting)
		switch {
		case err == nil && listID != "":
			return listID, nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return "", fmt.Errorf("failed to resolve default list: %w", err)
		}
	}

	if s.defaultList == "" {
		return "", errors.New("no default list configured for newsletter")
	}
	return s.defaultList, nil
}
