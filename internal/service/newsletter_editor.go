package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"newsletteradmin/internal/messages"
	"newsletteradmin/internal/metrics"
	"newsletteradmin/internal/models"
	"newsletteradmin/internal/repository"
)

// Synchronizer pushes a newsletter to the email service provider
type Synchronizer interface {
	Sync(ctx context.Context, n *models.Newsletter, instanceID *int) SyncResult
}

// EditContext is the caller's admin context for one request
type EditContext struct {
	// Session keys the flash message queue
	Session string
	// InstanceID scopes the admin to one instance; nil is platform-wide
	InstanceID *int
}

// Crumb is one navigation entry
type Crumb struct {
	Title string `json:"title"`
	Link  string `json:"link,omitempty"`
}

// EditPage is everything the editor needs to render. A non-empty Redirect
// means the newsletter cannot be edited and the caller should go there.
type EditPage struct {
	Newsletter     *models.Newsletter `json:"newsletter"`
	SegmentOptions []SegmentOption    `json:"segment_options"`
	SegmentVisible bool               `json:"segment_visible"`
	Breadcrumb     []Crumb            `json:"breadcrumb"`
	Redirect       string             `json:"-"`
}

// SaveInput is validated form input for a save
type SaveInput struct {
	Subject     string `json:"subject"`
	SegmentID   int    `json:"campaign_segment"`
	HTMLContent string `json:"html_content"`
	TextContent string `json:"text_content"`
}

// Validate validates the save input
func (in *SaveInput) Validate() error {
	if strings.TrimSpace(in.Subject) == "" {
		return &ValidationError{Field: "subject", Message: "subject is required"}
	}
	if in.SegmentID <= 0 {
		return &ValidationError{Field: "campaign_segment", Message: "a segment must be selected"}
	}
	if strings.TrimSpace(in.HTMLContent) == "" && strings.TrimSpace(in.TextContent) == "" {
		return &ValidationError{Field: "text_content", Message: "html or text content is required"}
	}
	return nil
}

// SaveOutcome reports what a save did. Relocate tells the caller to leave
// the editor for Location.
type SaveOutcome struct {
	Relocate   bool               `json:"relocate"`
	Location   string             `json:"location,omitempty"`
	Saved      bool               `json:"saved"`
	Newsletter *models.Newsletter `json:"newsletter"`
	Message    *models.Message    `json:"message,omitempty"`
	Sync       string             `json:"sync"`
}

// NewsletterDetails is the read-only view of a newsletter
type NewsletterDetails struct {
	Newsletter    *models.Newsletter `json:"newsletter"`
	CampaignTitle string             `json:"campaign_title"`
	Scheduled     bool               `json:"scheduled"`
	MergeTags     []string           `json:"merge_tags"`
	Breadcrumb    []Crumb            `json:"breadcrumb"`
}

// NewsletterEditor loads and saves newsletters for the admin editor
type NewsletterEditor struct {
	newsletters       repository.NewsletterRepository
	segments          repository.SegmentRepository
	instances         repository.InstanceRepository
	catalog           *SegmentCatalog
	sync              Synchronizer
	messages          messages.Store
	faults            *FaultReporter
	metrics           *metrics.EditorMetrics
	logger            *slog.Logger
	multipleInstances bool
	now               func() time.Time
}

// EditorDeps are the collaborators of a NewsletterEditor
type EditorDeps struct {
	Newsletters       repository.NewsletterRepository
	Segments          repository.SegmentRepository
	Instances         repository.InstanceRepository
	Catalog           *SegmentCatalog
	Sync              Synchronizer
	Messages          messages.Store
	Faults            *FaultReporter
	Metrics           *metrics.EditorMetrics
	Logger            *slog.Logger
	MultipleInstances bool
}

// NewNewsletterEditor creates a new editor
func NewNewsletterEditor(deps EditorDeps) *NewsletterEditor {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Faults == nil {
		deps.Faults = NewFaultReporter(nil, deps.Metrics, deps.Logger)
	}
	return &NewsletterEditor{
		newsletters:       deps.Newsletters,
		segments:          deps.Segments,
		instances:         deps.Instances,
		catalog:           deps.Catalog,
		sync:              deps.Sync,
		messages:          deps.Messages,
		faults:            deps.Faults,
		metrics:           deps.Metrics,
		logger:            deps.Logger,
		multipleInstances: deps.MultipleInstances,
		now:               time.Now,
	}
}

// DetailsPath is where a newsletter is viewed read-only
func DetailsPath(id int) string {
	return fmt.Sprintf("/newsletters/%d", id)
}

// Initialize prepares the editor for a new newsletter
func (e *NewsletterEditor) Initialize(ctx context.Context, ec EditContext) (*EditPage, error) {
	if err := e.checkScope(ctx, ec); err != nil {
		return nil, err
	}
	return e.buildPage(ctx, ec, &models.Newsletter{})
}

// LoadForEdit loads an existing newsletter into the editor. Scheduled or
// sent newsletters come back with Redirect set and no options.
func (e *NewsletterEditor) LoadForEdit(ctx context.Context, ec EditContext, id int) (*EditPage, error) {
	if err := e.checkScope(ctx, ec); err != nil {
		return nil, err
	}

	n, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if n.IsScheduled() {
		return &EditPage{Newsletter: n, Redirect: DetailsPath(n.ID)}, nil
	}

	return e.buildPage(ctx, ec, n)
}

// Details returns the read-only view used after saving and for scheduled
// newsletters
func (e *NewsletterEditor) Details(ctx context.Context, id int) (*NewsletterDetails, error) {
	n, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	tags := MergeTags(n.HTMLContent + "\n" + n.TextContent)
	if tags == nil {
		tags = []string{}
	}

	title := n.CampaignTitle(e.multipleInstances)
	return &NewsletterDetails{
		Newsletter:    n,
		CampaignTitle: title,
		Scheduled:     n.IsScheduled(),
		MergeTags:     tags,
		Breadcrumb:    []Crumb{{Title: "Newsletters", Link: "/newsletters"}, {Title: title}},
	}, nil
}

// checkScope rejects an edit context scoped to an instance that does not exist
func (e *NewsletterEditor) checkScope(ctx context.Context, ec EditContext) error {
	if ec.InstanceID == nil || e.instances == nil {
		return nil
	}

	_, err := e.instances.GetByID(ctx, *ec.InstanceID)
	if errors.Is(err, repository.ErrNotFound) {
		return &ValidationError{Field: "instance", Message: fmt.Sprintf("instance %d does not exist", *ec.InstanceID)}
	}
	if err != nil {
		return fmt.Errorf("failed to load instance %d: %w", *ec.InstanceID, err)
	}
	return nil
}

func (e *NewsletterEditor) load(ctx context.Context, id int) (*models.Newsletter, error) {
	n, err := e.newsletters.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: "newsletter", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load newsletter %d: %w", id, err)
	}
	return n, nil
}

func (e *NewsletterEditor) buildPage(ctx context.Context, ec EditContext, n *models.Newsletter) (*EditPage, error) {
	options, err := e.catalog.Load(ctx, ec.InstanceID, n)
	if err != nil {
		return nil, err
	}

	return &EditPage{
		Newsletter:     n,
		SegmentOptions: options,
		SegmentVisible: len(options) > 0,
		Breadcrumb:     e.breadcrumb(n),
	}, nil
}

func (e *NewsletterEditor) breadcrumb(n *models.Newsletter) []Crumb {
	crumbs := []Crumb{{Title: "Newsletters", Link: "/newsletters"}}
	if n.IsNew() {
		return append(crumbs, Crumb{Title: "New Newsletter"})
	}
	return append(crumbs,
		Crumb{Title: n.CampaignTitle(e.multipleInstances), Link: DetailsPath(n.ID)},
		Crumb{Title: "Edit"},
	)
}

// Save applies the input, syncs the campaign with the provider and persists
// the newsletter. id 0 creates a new newsletter.
//
// A connectivity failure still saves the local copy and relocates. Any
// other sync failure saves nothing and keeps the editor open. The returned
// error is reserved for invalid input and store faults.
func (e *NewsletterEditor) Save(ctx context.Context, ec EditContext, id int, in SaveInput) (*SaveOutcome, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := e.checkScope(ctx, ec); err != nil {
		return nil, err
	}

	n := &models.Newsletter{}
	if id != 0 {
		loaded, err := e.load(ctx, id)
		if err != nil {
			return nil, err
		}
		n = loaded
	}

	if n.IsScheduled() {
		return &SaveOutcome{Relocate: true, Location: DetailsPath(n.ID), Newsletter: n, Sync: "skipped"}, nil
	}

	segment, err := e.resolveSegment(ctx, ec, n, in.SegmentID)
	if err != nil {
		return nil, err
	}

	// Instance as it was before this edit, used to pick the default list.
	currentInstance := n.InstanceID

	n.Apply(models.NewsletterEdit{
		Subject:     in.Subject,
		Segment:     segment,
		HTMLContent: in.HTMLContent,
		TextContent: in.TextContent,
	})

	result := e.sync.Sync(ctx, n, currentInstance)

	outcome := &SaveOutcome{Newsletter: n, Sync: result.Status.String()}
	var msg *models.Message
	persist := false

	switch result.Status {
	case SyncOK:
		persist = true
		outcome.Relocate = true
	case SyncConnectivityFailure:
		persist = true
		outcome.Relocate = true
		e.faults.Report(ctx, n, models.FaultKindConnection, result.Err)
		msg = connectivityMessage(n.Subject)
	default:
		e.faults.Report(ctx, n, models.FaultKindOther, result.Err)
		msg = models.NewMessage(models.MessageLevelSystemError,
			"An error has occurred. The newsletter has not been saved.")
	}

	if persist {
		if !n.HasCampaign() && result.CampaignID != "" {
			campaignID := result.CampaignID
			n.CampaignID = &campaignID
		}

		if err := e.persist(ctx, n); err != nil {
			return nil, err
		}
		outcome.Saved = true
		outcome.Location = DetailsPath(n.ID)

		if msg == nil {
			msg = models.NewMessage(models.MessageLevelInfo,
				fmt.Sprintf("“%s” has been saved.", n.CampaignTitle(e.multipleInstances)))
		}
	} else {
		e.metrics.ObserveSave("rejected")
	}

	// Only a relocating save leaves its message for the next page; otherwise
	// the caller renders outcome.Message directly.
	outcome.Message = msg
	if outcome.Relocate {
		e.queueMessage(ctx, ec.Session, msg)
	}

	return outcome, nil
}

func (e *NewsletterEditor) persist(ctx context.Context, n *models.Newsletter) error {
	if n.IsNew() {
		created := e.now().UTC()
		n.CreatedAt = &created
		if err := e.newsletters.Create(ctx, n); err != nil {
			return fmt.Errorf("failed to create newsletter: %w", err)
		}
		e.metrics.ObserveSave("created")
		e.logger.Info("newsletter created", "newsletter_id", n.ID, "campaign_id", derefString(n.CampaignID))
		return nil
	}

	if err := e.newsletters.Update(ctx, n); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &NotFoundError{Resource: "newsletter", ID: n.ID}
		}
		return fmt.Errorf("failed to update newsletter %d: %w", n.ID, err)
	}
	e.metrics.ObserveSave("updated")
	e.logger.Info("newsletter updated", "newsletter_id", n.ID, "campaign_id", derefString(n.CampaignID))
	return nil
}

// resolveSegment loads the chosen segment and checks it could have been
// offered by the catalog
func (e *NewsletterEditor) resolveSegment(ctx context.Context, ec EditContext, n *models.Newsletter, segmentID int) (*models.Segment, error) {
	segment, err := e.segments.GetByID(ctx, segmentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &ValidationError{Field: "campaign_segment", Message: fmt.Sprintf("segment %d does not exist", segmentID)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load segment %d: %w", segmentID, err)
	}

	if !segment.HasSubscribers() {
		return nil, &BusinessLogicError{Message: fmt.Sprintf("segment %q has no subscribers", segment.Title)}
	}
	if ec.InstanceID != nil && (segment.InstanceID == nil || *segment.InstanceID != *ec.InstanceID) {
		return nil, &BusinessLogicError{Message: fmt.Sprintf("segment %q is not available in this instance", segment.Title)}
	}
	if !n.IsNew() && !n.SameInstance(segment) {
		return nil, &BusinessLogicError{Message: fmt.Sprintf("segment %q belongs to another instance", segment.Title)}
	}

	return segment, nil
}

// queueMessage hands the message to the session queue. The message is also
// returned to the caller, so a failure here only loses the flash copy.
func (e *NewsletterEditor) queueMessage(ctx context.Context, session string, msg *models.Message) {
	if msg == nil || e.messages == nil || session == "" {
		return
	}
	if err := e.messages.Add(ctx, session, msg); err != nil {
		e.logger.Warn("failed to queue admin message", "error", err)
	}
}

// Messages drains the messages queued for a session
func (e *NewsletterEditor) Messages(ctx context.Context, session string) ([]*models.Message, error) {
	if e.messages == nil || session == "" {
		return []*models.Message{}, nil
	}
	msgs, err := e.messages.Drain(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	if msgs == nil {
		msgs = []*models.Message{}
	}
	return msgs, nil
}

func connectivityMessage(subject string) *models.Message {
	secondary := fmt.Sprintf("<strong>%s</strong><br />%s",
		fmt.Sprintf("“%s” has been saved locally so that your work is not lost. "+
			"You must edit the newsletter again before sending to have your "+
			"changes reflected in the sent newsletter.", html.EscapeString(subject)),
		"Connection issues are typically short-lived and editing the newsletter "+
			"again after a delay will usually be successful.",
	)
	return models.NewMessage(models.MessageLevelError,
		"There was an issue connecting to the email service provider.").
		WithSecondary(secondary, "text/xml")
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
