package service

import (
	"testing"

	"newsletteradmin/internal/esp"
	"newsletteradmin/internal/testutil"
)

func TestCampaignBuilder_Build(t *testing.T) {
	instance := testutil.NewTestInstance(1, "emrap", "EM:RAP")
	n := testutil.NewTestNewsletter(4, testutil.NewTestSegment(2, "Paid Members", 10, instance))
	n.CampaignID = testutil.StringPtr("c-9")

	c, err := NewCampaignBuilder("EM:RAP", "hello@example.com", true).Build(n)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, c.ID, "c-9")
	testutil.AssertEqual(t, c.Title, "emrap: Monthly update")
	testutil.AssertEqual(t, c.Subject, "Monthly update")
	testutil.AssertEqual(t, c.SegmentShortname, "paid-members")
	testutil.AssertEqual(t, c.FromName, "EM:RAP")
	testutil.AssertEqual(t, c.Type, esp.CampaignTypeRegular)
}

func TestCampaignBuilder_SingleInstanceTitle(t *testing.T) {
	instance := testutil.NewTestInstance(1, "emrap", "EM:RAP")
	n := testutil.NewTestNewsletter(4, testutil.NewTestSegment(2, "Members", 10, instance))

	c, err := NewCampaignBuilder("", "", false).Build(n)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, c.Title, "Monthly update")
	testutil.AssertEqual(t, c.ID, "")
}

func TestCampaignBuilder_PlaintextWithoutHTML(t *testing.T) {
	n := testutil.NewTestNewsletter(0, testutil.NewTestSegment(2, "Members", 10, nil))
	n.HTMLContent = "  "

	c, err := NewCampaignBuilder("", "", false).Build(n)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, c.Type, esp.CampaignTypePlaintext)
}

func TestCampaignBuilder_Rejects(t *testing.T) {
	b := NewCampaignBuilder("", "", false)

	_, err := b.Build(nil)
	testutil.AssertError(t, err)

	n := testutil.NewTestNewsletter(0, nil)
	_, err = b.Build(n)
	testutil.AssertError(t, err)

	n = testutil.NewTestNewsletter(0, testutil.NewTestSegment(2, "Members", 10, nil))
	n.Subject = " "
	_, err = b.Build(n)
	testutil.AssertError(t, err)

	n = testutil.NewTestNewsletter(0, testutil.NewTestSegment(2, "Members", 10, nil))
	n.TextContent = "Hi *|FNAME"
	_, err = b.Build(n)
	testutil.AssertError(t, err)
}

func TestMergeTags(t *testing.T) {
	tags := MergeTags("Hi *|FNAME|*, *|FNAME|* from *|LIST:COMPANY|* *|bad|*")
	testutil.AssertEqual(t, len(tags), 2)
	testutil.AssertEqual(t, tags[0], "FNAME")
	testutil.AssertEqual(t, tags[1], "LIST:COMPANY")

	testutil.AssertNoError(t, ValidateMergeTags("*|FNAME|* and *|LNAME|*"))
	testutil.AssertError(t, ValidateMergeTags("*|FNAME| and"))
	testutil.AssertError(t, ValidateMergeTags("*|FNAME *|LNAME|*"))
}

func TestValidateMergeTags_StrayDelimitersArePlainText(t *testing.T) {
	testutil.AssertNoError(t, ValidateMergeTags("a |* b"))
	testutil.AssertNoError(t, ValidateMergeTags("a *| b"))
	testutil.AssertNoError(t, ValidateMergeTags("rates |* 2 *|FNAME|*"))

	b := NewCampaignBuilder("", "", false)
	n := testutil.NewTestNewsletter(0, testutil.NewTestSegment(2, "Members", 10, nil))
	n.TextContent = "Scores: home |* away"
	_, err := b.Build(n)
	testutil.AssertNoError(t, err)
}
