package service

import (
	"context"
	"fmt"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"newsletteradmin/internal/models"
	"newsletteradmin/internal/repository"
)

// SegmentOptionKind says how an entry of the segment list is rendered
type SegmentOptionKind string

const (
	// OptionSegment is a segment that can be chosen
	OptionSegment SegmentOptionKind = "segment"
	// OptionSegmentDivider is a segment shown for reference only
	OptionSegmentDivider SegmentOptionKind = "segment_divider"
	// OptionInstanceDivider heads the segments of one instance
	OptionInstanceDivider SegmentOptionKind = "instance_divider"
)

// SegmentOption is one entry in the segment selector
type SegmentOption struct {
	Kind       SegmentOptionKind `json:"kind"`
	SegmentID  *int              `json:"segment_id,omitempty"`
	InstanceID *int              `json:"instance_id,omitempty"`
	Label      string            `json:"label"`
	Selected   bool              `json:"selected,omitempty"`
}

// Selectable reports whether choosing the option is allowed
func (o SegmentOption) Selectable() bool {
	return o.Kind == OptionSegment
}

const subscriberCountKey = "%d subscribers"

// SegmentCatalog builds the segment selector for the newsletter editor
type SegmentCatalog struct {
	segments          repository.SegmentRepository
	multipleInstances bool
	printer           *message.Printer
}

// NewSegmentCatalog creates a catalog loader. multipleInstances enables
// per-instance grouping when the admin is not scoped to one instance.
func NewSegmentCatalog(segments repository.SegmentRepository, multipleInstances bool) *SegmentCatalog {
	return &SegmentCatalog{
		segments:          segments,
		multipleInstances: multipleInstances,
		printer:           newLabelPrinter(language.English),
	}
}

func newLabelPrinter(tag language.Tag) *message.Printer {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	// A failed Set leaves the key untranslated, which still prints the count.
	_ = b.Set(language.English, subscriberCountKey, plural.Selectf(1, "%d",
		"=0", "No subscribers",
		"=1", "One subscriber",
		plural.Other, "%d subscribers",
	))
	return message.NewPrinter(tag, message.Catalog(b))
}

// Label combines the segment title with its subscriber count
func (c *SegmentCatalog) Label(segment *models.Segment) string {
	return fmt.Sprintf("%s (%s)", segment.Title, c.printer.Sprintf(subscriberCountKey, segment.CachedSegmentSize))
}

// Load returns the options for editing newsletter. instanceID scopes the
// catalog to one instance; nil lists every instance. An empty result means
// the selector should be hidden.
func (c *SegmentCatalog) Load(ctx context.Context, instanceID *int, newsletter *models.Newsletter) ([]SegmentOption, error) {
	segments, err := c.segments.ListForCatalog(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load segment catalog: %w", err)
	}

	grouped := c.multipleInstances && instanceID == nil
	options := make([]SegmentOption, 0, len(segments))
	var lastInstance *int

	for _, segment := range segments {
		if !newsletter.IsNew() && !newsletter.SameInstance(segment) {
			continue
		}

		if grouped && segment.Instance != nil &&
			(lastInstance == nil || *lastInstance != segment.Instance.ID) {
			id := segment.Instance.ID
			lastInstance = &id
			options = append(options, SegmentOption{
				Kind:       OptionInstanceDivider,
				InstanceID: &id,
				Label:      segment.Instance.Title,
			})
		}

		segmentID := segment.ID
		option := SegmentOption{
			SegmentID: &segmentID,
			Label:     c.Label(segment),
		}
		if segment.HasSubscribers() {
			option.Kind = OptionSegment
			option.Selected = newsletter.SegmentID != nil && *newsletter.SegmentID == segment.ID
		} else {
			option.Kind = OptionSegmentDivider
		}
		options = append(options, option)
	}

	return options, nil
}
