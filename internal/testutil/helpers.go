// Package testutil holds assertion helpers and fixtures shared by package tests.
package testutil

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"newsletteradmin/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
)

// AssertNoError checks that no error occurred
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("Expected no error but got: %v", err)
	}
}

// AssertError checks that an error occurred
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Error("Expected an error but got nil")
	}
}

// AssertEqual checks if two values are equal
func AssertEqual(t *testing.T, got, want interface{}) {
	t.Helper()
	if got != want {
		t.Errorf("Expected %v but got %v", want, got)
	}
}

// AssertTrue checks a boolean condition
func AssertTrue(t *testing.T, cond bool, msg string) {
	t.Helper()
	if !cond {
		t.Error(msg)
	}
}

// AssertContains checks if string contains substring
func AssertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Errorf("Expected %q to contain %q", haystack, needle)
	}
}

// NewMockDB creates a mock database for testing
func NewMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// IntPtr returns a pointer to the given int
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to the given string
func StringPtr(s string) *string {
	return &s
}

// NewTestInstance creates an instance fixture
func NewTestInstance(id int, shortname, title string) *models.Instance {
	return &models.Instance{ID: id, Shortname: shortname, Title: title}
}

// NewTestSegment creates a segment belonging to the given instance (nil for none)
func NewTestSegment(id int, title string, size int, instance *models.Instance) *models.Segment {
	segment := &models.Segment{
		ID:                id,
		Title:             title,
		Shortname:         strings.ToLower(strings.ReplaceAll(title, " ", "-")),
		CachedSegmentSize: size,
		DisplayOrder:      id,
		Instance:          instance,
	}
	if instance != nil {
		segment.InstanceID = IntPtr(instance.ID)
	}
	return segment
}

// NewTestNewsletter creates a persisted, unscheduled newsletter on the segment
func NewTestNewsletter(id int, segment *models.Segment) *models.Newsletter {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	n := &models.Newsletter{ID: id, CreatedAt: &created}
	n.Apply(models.NewsletterEdit{
		Subject:     "Monthly update",
		Segment:     segment,
		HTMLContent: "<p>Hello readers</p>",
		TextContent: "Hello readers",
	})
	return n
}
