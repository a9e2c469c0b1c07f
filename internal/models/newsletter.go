package models

import (
	"fmt"
	"time"
)

// Newsletter is a locally authored email campaign. A zero ID means the
// newsletter has not been persisted yet.
type Newsletter struct {
	ID          int        `json:"id,omitempty" db:"id"`
	Subject     string     `json:"subject" db:"subject"`
	HTMLContent string     `json:"html_content" db:"html_content"`
	TextContent string     `json:"text_content" db:"text_content"`
	SegmentID   *int       `json:"campaign_segment,omitempty" db:"campaign_segment"`
	InstanceID  *int       `json:"instance,omitempty" db:"instance"`
	CampaignID  *string    `json:"campaign_id,omitempty" db:"campaign_id"`
	SendDate    *time.Time `json:"send_date,omitempty" db:"send_date"`
	CreatedAt   *time.Time `json:"created_at,omitempty" db:"createdate"`

	Segment  *Segment  `json:"-"`
	Instance *Instance `json:"-"`
}

// NewsletterEdit carries validated editor input
type NewsletterEdit struct {
	Subject     string
	Segment     *Segment
	HTMLContent string
	TextContent string
}

// IsNew reports whether the newsletter has never been saved
func (n *Newsletter) IsNew() bool {
	return n.ID == 0
}

// IsScheduled checks if the newsletter has been scheduled. Sent newsletters
// keep their send date, so this also covers sent ones.
func (n *Newsletter) IsScheduled() bool {
	return n.SendDate != nil
}

// HasCampaign reports whether a remote campaign id is known
func (n *Newsletter) HasCampaign() bool {
	return n.CampaignID != nil && *n.CampaignID != ""
}

// Apply sets all editable fields at once. The instance always follows the
// chosen segment.
func (n *Newsletter) Apply(edit NewsletterEdit) {
	n.Subject = edit.Subject
	n.HTMLContent = edit.HTMLContent
	n.TextContent = edit.TextContent
	n.Segment = edit.Segment

	if edit.Segment == nil {
		n.SegmentID = nil
		n.InstanceID = nil
		n.Instance = nil
		return
	}

	segmentID := edit.Segment.ID
	n.SegmentID = &segmentID
	n.InstanceID = copyIntPtr(edit.Segment.InstanceID)
	n.Instance = edit.Segment.Instance
}

// Edit returns the editable fields, the inverse of Apply
func (n *Newsletter) Edit() NewsletterEdit {
	return NewsletterEdit{
		Subject:     n.Subject,
		Segment:     n.Segment,
		HTMLContent: n.HTMLContent,
		TextContent: n.TextContent,
	}
}

// CampaignTitle is the title used for the remote campaign and in admin
// messages. Instanced newsletters are prefixed with the instance shortname.
func (n *Newsletter) CampaignTitle(multipleInstances bool) string {
	if multipleInstances && n.Instance != nil && n.Instance.Shortname != "" {
		return fmt.Sprintf("%s: %s", n.Instance.Shortname, n.Subject)
	}
	return n.Subject
}

// SameInstance reports whether the segment belongs to the newsletter's instance
func (n *Newsletter) SameInstance(segment *Segment) bool {
	if n.InstanceID == nil || segment.InstanceID == nil {
		return n.InstanceID == nil && segment.InstanceID == nil
	}
	return *n.InstanceID == *segment.InstanceID
}

func copyIntPtr(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
