package esp

import (
	"context"
	"time"
)

// Campaign types accepted by the provider
const (
	CampaignTypeRegular   = "regular"
	CampaignTypePlaintext = "plaintext"
)

// Campaign is the provider-side representation of a newsletter. ID is empty
// until the campaign has been created or looked up remotely.
type Campaign struct {
	ID               string
	Type             string
	Title            string
	Subject          string
	ListID           string
	SegmentShortname string
	FromName         string
	ReplyTo          string
	HTMLContent      string
	TextContent      string
}

// List is a mailing list on the provider that campaigns are sent to
type List interface {
	// SetTimeout bounds every call made through this list
	SetTimeout(d time.Duration)

	// SaveCampaign creates or updates the campaign and returns its id. With
	// lookupByTitle set, a campaign without an id is first matched by title
	// against existing campaigns so a previously created one is updated.
	SaveCampaign(ctx context.Context, campaign *Campaign, lookupByTitle bool) (string, error)

	// UploadResources pushes campaign content after the campaign exists
	UploadResources(ctx context.Context, campaign *Campaign) error
}

// Provider hands out lists by provider list id
type Provider interface {
	List(listID string) List
	Ping(ctx context.Context) error
}

// campaignRequest mirrors the provider create/update payload
type campaignRequest struct {
	Type       string             `json:"type,omitempty"`
	Recipients campaignRecipients `json:"recipients"`
	Settings   campaignSettings   `json:"settings"`
}

type campaignRecipients struct {
	ListID         string                  `json:"list_id"`
	SegmentOptions *campaignSegmentOptions `json:"segment_opts,omitempty"`
}

type campaignSegmentOptions struct {
	Match      string              `json:"match"`
	Conditions []campaignCondition `json:"conditions"`
}

type campaignCondition struct {
	ConditionType string `json:"condition_type"`
	Field         string `json:"field"`
	Op            string `json:"op"`
	Value         string `json:"value"`
}

type campaignSettings struct {
	SubjectLine string `json:"subject_line"`
	Title       string `json:"title"`
	FromName    string `json:"from_name"`
	ReplyTo     string `json:"reply_to"`
}

type campaignContentRequest struct {
	HTML      string `json:"html"`
	PlainText string `json:"plain_text"`
}

type campaignResponse struct {
	ID       string           `json:"id"`
	WebID    uint             `json:"web_id"`
	Type     string           `json:"type"`
	Status   string           `json:"status"`
	Settings campaignSettings `json:"settings"`
}

type campaignListResponse struct {
	Campaigns  []campaignResponse `json:"campaigns"`
	TotalItems int                `json:"total_items"`
}

// segmentMergeField is the list merge field segments are keyed on
const segmentMergeField = "SEGMENT"

func newCampaignRequest(c *Campaign) campaignRequest {
	req := campaignRequest{
		Type: c.Type,
		Recipients: campaignRecipients{
			ListID: c.ListID,
		},
		Settings: campaignSettings{
			SubjectLine: c.Subject,
			Title:       c.Title,
			FromName:    c.FromName,
			ReplyTo:     c.ReplyTo,
		},
	}
	if req.Type == "" {
		req.Type = CampaignTypeRegular
	}

	if c.SegmentShortname != "" {
		req.Recipients.SegmentOptions = &campaignSegmentOptions{
			Match: "all",
			Conditions: []campaignCondition{{
				ConditionType: "TextMerge",
				Field:         segmentMergeField,
				Op:            "is",
				Value:         c.SegmentShortname,
			}},
		}
	}

	return req
}
