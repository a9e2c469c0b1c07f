package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"newsletteradmin/internal/esp"
	"newsletteradmin/internal/models"
)

// mergeTagPattern matches provider merge tags such as *|FNAME|*
var (
	mergeTagPattern    = regexp.MustCompile(`\*\|([A-Z0-9_:]+)\|\*`)
	mergeOpenerPattern = regexp.MustCompile(`\*\|[A-Z0-9_:]+`)
)

// CampaignBuilder turns a newsletter into the provider campaign model
type CampaignBuilder struct {
	fromName          string
	replyTo           string
	multipleInstances bool
}

// NewCampaignBuilder creates a builder stamping every campaign with the
// given sender details
func NewCampaignBuilder(fromName, replyTo string, multipleInstances bool) *CampaignBuilder {
	return &CampaignBuilder{
		fromName:          fromName,
		replyTo:           replyTo,
		multipleInstances: multipleInstances,
	}
}

// Build maps the newsletter onto a campaign. The campaign id is the
// newsletter's known remote id, if any.
func (b *CampaignBuilder) Build(n *models.Newsletter) (*esp.Campaign, error) {
	if n == nil {
		return nil, errors.New("newsletter cannot be nil")
	}
	if strings.TrimSpace(n.Subject) == "" {
		return nil, errors.New("newsletter subject cannot be empty")
	}
	if n.Segment == nil {
		return nil, errors.New("newsletter has no segment")
	}
	if err := ValidateMergeTags(n.HTMLContent); err != nil {
		return nil, fmt.Errorf("invalid html content: %w", err)
	}
	if err := ValidateMergeTags(n.TextContent); err != nil {
		return nil, fmt.Errorf("invalid text content: %w", err)
	}

	campaign := &esp.Campaign{
		Type:             esp.CampaignTypeRegular,
		Title:            n.CampaignTitle(b.multipleInstances),
		Subject:          n.Subject,
		SegmentShortname: n.Segment.Shortname,
		FromName:         b.fromName,
		ReplyTo:          b.replyTo,
		HTMLContent:      n.HTMLContent,
		TextContent:      n.TextContent,
	}
	if strings.TrimSpace(n.HTMLContent) == "" {
		campaign.Type = esp.CampaignTypePlaintext
	}
	if n.HasCampaign() {
		campaign.ID = *n.CampaignID
	}

	return campaign, nil
}

// ValidateMergeTags checks that every merge tag opener is closed. Stray
// "*|" or "|*" that do not start a tag name are plain text.
func ValidateMergeTags(content string) error {
	rest := mergeTagPattern.ReplaceAllString(content, "")
	if opener := mergeOpenerPattern.FindString(rest); opener != "" {
		return fmt.Errorf("unterminated merge tag %q", opener)
	}
	return nil
}

// MergeTags lists the distinct merge tag names used in content
func MergeTags(content string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, m := range mergeTagPattern.FindAllStringSubmatch(content, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			tags = append(tags, m[1])
		}
	}
	return tags
}
