package esp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"newsletteradmin/internal/testutil"
)

// fakeESP records requests and serves canned campaign responses
type fakeESP struct {
	mu       sync.Mutex
	requests []string
	bodies   []campaignRequest
	existing []campaignResponse
	status   int
	delay    time.Duration
}

func (f *fakeESP) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/campaigns", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.fail(w) {
			return
		}
		switch r.Method {
		case http.MethodGet:
			f.mu.Lock()
			resp := campaignListResponse{Campaigns: f.existing, TotalItems: len(f.existing)}
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			var req campaignRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("bad create body: %v", err)
			}
			f.mu.Lock()
			f.bodies = append(f.bodies, req)
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(campaignResponse{ID: "new-1", Settings: req.Settings})
		}
	})

	mux.HandleFunc("/campaigns/", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.fail(w) {
			return
		}
		if r.Method == http.MethodPatch {
			var req campaignRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			f.mu.Lock()
			f.bodies = append(f.bodies, req)
			f.mu.Unlock()
			_ = json.NewEncoder(w).Encode(campaignResponse{ID: r.URL.Path[len("/campaigns/"):]})
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.fail(w) {
			return
		}
		_, _ = w.Write([]byte(`{"health_status":"Everything's Chimpy!"}`))
	})

	return mux
}

func (f *fakeESP) record(r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.mu.Unlock()
}

func (f *fakeESP) fail(w http.ResponseWriter) bool {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.status == 0 {
		return false
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(f.status)
	_, _ = w.Write([]byte(`{"status":400,"title":"Invalid Resource","detail":"The resource submitted could not be validated."}`))
	return true
}

func (f *fakeESP) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

func newTestClient(t *testing.T, f *fakeESP) *Client {
	t.Helper()
	server := httptest.NewServer(f.handler(t))
	t.Cleanup(server.Close)
	return NewClient(ClientOptions{BaseURL: server.URL, APIKey: "key-us1", Timeout: 2 * time.Second, RateLimit: 100})
}

func testCampaign() *Campaign {
	return &Campaign{
		Title:            "emrap: March",
		Subject:          "March",
		SegmentShortname: "members",
		HTMLContent:      "<p>March</p>",
		TextContent:      "March",
	}
}

func TestSaveCampaign_CreatesWhenNoID(t *testing.T) {
	f := &fakeESP{}
	list := newTestClient(t, f).List("list-1")

	campaign := testCampaign()
	id, err := list.SaveCampaign(context.Background(), campaign, false)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, id, "new-1")
	testutil.AssertEqual(t, campaign.ID, "new-1")

	calls := f.calls()
	testutil.AssertEqual(t, len(calls), 1)
	testutil.AssertEqual(t, calls[0], "POST /campaigns")

	body := f.bodies[0]
	testutil.AssertEqual(t, body.Recipients.ListID, "list-1")
	testutil.AssertEqual(t, body.Settings.Title, "emrap: March")
	testutil.AssertEqual(t, body.Settings.SubjectLine, "March")
	testutil.AssertEqual(t, body.Type, CampaignTypeRegular)
	testutil.AssertEqual(t, body.Recipients.SegmentOptions.Conditions[0].Value, "members")
}

func TestSaveCampaign_UpdatesKnownID(t *testing.T) {
	f := &fakeESP{}
	list := newTestClient(t, f).List("list-1")

	campaign := testCampaign()
	campaign.ID = "abc123"

	for i := 0; i < 2; i++ {
		id, err := list.SaveCampaign(context.Background(), campaign, true)
		testutil.AssertNoError(t, err)
		testutil.AssertEqual(t, id, "abc123")
	}

	calls := f.calls()
	testutil.AssertEqual(t, len(calls), 2)
	for _, c := range calls {
		testutil.AssertEqual(t, c, "PATCH /campaigns/abc123")
	}
}

func TestSaveCampaign_LookupByTitleFindsExisting(t *testing.T) {
	f := &fakeESP{existing: []campaignResponse{
		{ID: "other", Settings: campaignSettings{Title: "emrap: February"}},
		{ID: "found-7", Settings: campaignSettings{Title: "emrap: March"}},
	}}
	list := newTestClient(t, f).List("list-1")

	id, err := list.SaveCampaign(context.Background(), testCampaign(), true)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, id, "found-7")

	calls := f.calls()
	testutil.AssertEqual(t, len(calls), 2)
	testutil.AssertEqual(t, calls[0], "GET /campaigns")
	testutil.AssertEqual(t, calls[1], "PATCH /campaigns/found-7")
}

func TestSaveCampaign_LookupByTitleFallsBackToCreate(t *testing.T) {
	f := &fakeESP{existing: []campaignResponse{
		{ID: "other", Settings: campaignSettings{Title: "emrap: February"}},
	}}
	list := newTestClient(t, f).List("list-1")

	id, err := list.SaveCampaign(context.Background(), testCampaign(), true)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, id, "new-1")
	testutil.AssertEqual(t, f.calls()[1], "POST /campaigns")
}

func TestSaveCampaign_NoLookupSkipsSearch(t *testing.T) {
	f := &fakeESP{existing: []campaignResponse{
		{ID: "found-7", Settings: campaignSettings{Title: "emrap: March"}},
	}}
	list := newTestClient(t, f).List("list-1")

	id, err := list.SaveCampaign(context.Background(), testCampaign(), false)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, id, "new-1")
	testutil.AssertEqual(t, len(f.calls()), 1)
}

func TestSaveCampaign_GatewayErrorIsConnectionError(t *testing.T) {
	f := &fakeESP{status: http.StatusServiceUnavailable}
	list := newTestClient(t, f).List("list-1")

	_, err := list.SaveCampaign(context.Background(), testCampaign(), false)
	testutil.AssertError(t, err)
	testutil.AssertTrue(t, IsConnectionError(err), "expected connection error for 503")
}

func TestSaveCampaign_BadRequestIsAPIError(t *testing.T) {
	f := &fakeESP{status: http.StatusBadRequest}
	list := newTestClient(t, f).List("list-1")

	_, err := list.SaveCampaign(context.Background(), testCampaign(), false)
	testutil.AssertError(t, err)
	testutil.AssertTrue(t, !IsConnectionError(err), "400 must not be a connection error")

	var apiErr *APIError
	testutil.AssertTrue(t, errors.As(err, &apiErr), "expected APIError")
	testutil.AssertEqual(t, apiErr.Status, http.StatusBadRequest)
	testutil.AssertEqual(t, apiErr.Title, "Invalid Resource")
}

func TestSaveCampaign_TimeoutIsConnectionError(t *testing.T) {
	f := &fakeESP{delay: 300 * time.Millisecond}
	list := newTestClient(t, f).List("list-1")
	list.SetTimeout(50 * time.Millisecond)

	_, err := list.SaveCampaign(context.Background(), testCampaign(), false)
	testutil.AssertError(t, err)
	testutil.AssertTrue(t, IsConnectionError(err), "expected connection error on timeout")
}

func TestSaveCampaign_UnreachableHostIsConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient(ClientOptions{BaseURL: url, APIKey: "k", Timeout: time.Second})
	_, err := client.List("list-1").SaveCampaign(context.Background(), testCampaign(), false)
	testutil.AssertError(t, err)
	testutil.AssertTrue(t, IsConnectionError(err), "expected connection error for refused connection")
}

func TestUploadResources(t *testing.T) {
	f := &fakeESP{}
	list := newTestClient(t, f).List("list-1")

	err := list.UploadResources(context.Background(), testCampaign())
	testutil.AssertError(t, err)

	campaign := testCampaign()
	campaign.ID = "abc123"
	testutil.AssertNoError(t, list.UploadResources(context.Background(), campaign))
	testutil.AssertEqual(t, f.calls()[0], "PUT /campaigns/abc123/content")
}

func TestPing(t *testing.T) {
	f := &fakeESP{}
	client := newTestClient(t, f)
	testutil.AssertNoError(t, client.Ping(context.Background()))
}
