package handler

import (
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"

	"newsletteradmin/internal/esp"
	"newsletteradmin/internal/messages"
	"newsletteradmin/internal/repository"
	"newsletteradmin/internal/service"
	"newsletteradmin/internal/testutil"
)

// setupAPIRouter wires the real editor stack over a mock database and a
// simulated provider
func setupAPIRouter(t *testing.T, db *sql.DB, provider esp.Provider) *mux.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	newsletterRepo := repository.NewNewsletterRepository(db)
	segmentRepo := repository.NewSegmentRepository(db)
	instanceRepo := repository.NewInstanceRepository(db)

	builder := service.NewCampaignBuilder("Newsletter", "newsletter@example.com", false)
	synchronizer := service.NewCampaignSynchronizer(provider, instanceRepo, builder, service.SynchronizerOptions{
		ListSetting: "mail_chimp.default_list",
		Logger:      logger,
	})
	editor := service.NewNewsletterEditor(service.EditorDeps{
		Newsletters: newsletterRepo,
		Segments:    segmentRepo,
		Instances:   instanceRepo,
		Catalog:     service.NewSegmentCatalog(segmentRepo, false),
		Sync:        synchronizer,
		Messages:    messages.NewMemoryStore(),
		Logger:      logger,
	})

	health := NewHealthHandler(service.NewHealthService(db, nil, nil, "test"))
	return NewRouter(NewNewsletterHandler(editor), health, logger)
}

func expectNewsletterLoad(mock sqlmock.Sqlmock, id int) {
	cols := []string{
		"id", "subject", "html_content", "text_content", "campaign_segment", "instance",
		"campaign_id", "send_date", "createdate",
		"s_id", "s_title", "s_shortname", "s_size", "s_instance", "s_order",
		"i_id", "i_shortname", "i_title",
	}
	mock.ExpectQuery("FROM newsletters n").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			id, "March", "<p>March</p>", "March", 2, 1,
			nil, nil, nil,
			2, "Members", "members", 430, 1, 1,
			1, "emrap", "EM:RAP",
		))
}

func expectSegmentLoad(mock sqlmock.Sqlmock, id int) {
	mock.ExpectQuery("FROM campaign_segments s").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "shortname", "cached_segment_size", "instance", "displayorder",
			"i_id", "i_shortname", "i_title",
		}).AddRow(id, "Members", "members", 430, 1, 1, 1, "emrap", "EM:RAP"))
}

func expectListSetting(mock sqlmock.Sqlmock, instanceID int, value string) {
	mock.ExpectQuery("FROM instance_config_settings").
		WithArgs("mail_chimp.default_list", instanceID).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(value))
}

func saveBody() map[string]interface{} {
	return map[string]interface{}{
		"subject":          "March Update",
		"campaign_segment": 2,
		"html_content":     "<p>Hello *|FNAME|*</p>",
		"text_content":     "Hello *|FNAME|*",
	}
}

func TestAPI_UpdateNewsletter_SyncsAndSaves(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	sim := esp.NewSimulator(1.0, 0)

	expectNewsletterLoad(mock, 5)
	expectSegmentLoad(mock, 2)
	expectListSetting(mock, 1, "list-emrap")
	mock.ExpectExec("UPDATE newsletters").
		WithArgs("March Update", "<p>Hello *|FNAME|*</p>", "Hello *|FNAME|*", 2, 1, "sim000001", 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := setupAPIRouter(t, db, sim)
	headers := map[string]string{"X-Session-ID": "s-1"}
	rec := serve(router, http.MethodPut, "/newsletters/5", saveBody(), headers)

	testutil.AssertEqual(t, rec.Code, http.StatusOK)

	var resp SaveResponse
	testutil.AssertNoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	testutil.AssertTrue(t, resp.Relocate, "expected relocate")
	testutil.AssertTrue(t, resp.Saved, "expected saved")
	testutil.AssertEqual(t, resp.Sync, "ok")
	testutil.AssertEqual(t, resp.Location, "/newsletters/5")
	testutil.AssertEqual(t, len(resp.Messages), 0)

	campaign, ok := sim.Campaign("sim000001")
	testutil.AssertTrue(t, ok, "campaign should exist remotely")
	testutil.AssertEqual(t, campaign.ListID, "list-emrap")
	testutil.AssertEqual(t, sim.Uploads("sim000001"), 1)
	testutil.AssertNoError(t, mock.ExpectationsWereMet())

	// the success notice waits for the page the editor relocates to
	rec = serve(router, http.MethodGet, "/messages", nil, headers)
	testutil.AssertEqual(t, rec.Code, http.StatusOK)
	testutil.AssertContains(t, rec.Body.String(), "has been saved.")
	testutil.AssertContains(t, rec.Body.String(), `"level":"info"`)
}

func TestAPI_UpdateNewsletter_ConnectivityFailureSavesLocally(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	sim := esp.NewSimulator(0.0, 0)

	expectNewsletterLoad(mock, 5)
	expectSegmentLoad(mock, 2)
	expectListSetting(mock, 1, "list-emrap")
	mock.ExpectExec("UPDATE newsletters").
		WithArgs("March Update", "<p>Hello *|FNAME|*</p>", "Hello *|FNAME|*", 2, 1, nil, 5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	router := setupAPIRouter(t, db, sim)
	headers := map[string]string{"X-Session-ID": "s-2"}
	rec := serve(router, http.MethodPut, "/newsletters/5", saveBody(), headers)

	testutil.AssertEqual(t, rec.Code, http.StatusOK)

	var resp SaveResponse
	testutil.AssertNoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	testutil.AssertTrue(t, resp.Relocate, "connectivity failure still relocates")
	testutil.AssertTrue(t, resp.Saved, "connectivity failure still saves")
	testutil.AssertEqual(t, resp.Sync, "connectivity_failure")
	testutil.AssertNoError(t, mock.ExpectationsWereMet())

	rec = serve(router, http.MethodGet, "/messages", nil, headers)
	testutil.AssertContains(t, rec.Body.String(), `"level":"error"`)
	testutil.AssertContains(t, rec.Body.String(), `"content_type":"text/xml"`)
}

func TestAPI_CreateNewsletter_UnresolvableListSavesNothing(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	sim := esp.NewSimulator(1.0, 0)

	expectSegmentLoad(mock, 2)
	mock.ExpectQuery("FROM instance_config_settings").
		WithArgs("mail_chimp.default_list", 1).
		WillReturnError(sql.ErrNoRows)

	router := setupAPIRouter(t, db, sim)
	rec := serve(router, http.MethodPost, "/newsletters", saveBody(), map[string]string{"X-Session-ID": "s-3"})

	testutil.AssertEqual(t, rec.Code, http.StatusOK)

	var resp SaveResponse
	testutil.AssertNoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	testutil.AssertTrue(t, !resp.Relocate, "editor should stay open")
	testutil.AssertTrue(t, !resp.Saved, "nothing should be saved")
	testutil.AssertEqual(t, resp.Sync, "other_failure")
	testutil.AssertEqual(t, len(resp.Messages), 1)
	testutil.AssertEqual(t, string(resp.Messages[0].Level), "system-error")

	creates, updates := sim.Counts()
	testutil.AssertEqual(t, creates+updates, 0)
	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_CreateNewsletter_Created(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	sim := esp.NewSimulator(1.0, 0)

	expectSegmentLoad(mock, 2)
	expectListSetting(mock, 1, "list-emrap")
	mock.ExpectQuery("INSERT INTO newsletters").
		WithArgs("March Update", "<p>Hello *|FNAME|*</p>", "Hello *|FNAME|*", 2, 1, "sim000001", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))

	router := setupAPIRouter(t, db, sim)
	rec := serve(router, http.MethodPost, "/newsletters", saveBody(), map[string]string{"X-Session-ID": "s-4"})

	testutil.AssertEqual(t, rec.Code, http.StatusCreated)

	var resp SaveResponse
	testutil.AssertNoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	testutil.AssertEqual(t, resp.Location, "/newsletters/42")
	testutil.AssertEqual(t, resp.Newsletter.ID, 42)
	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}

func TestAPI_NewNewsletter_UnknownInstanceScope(t *testing.T) {
	db, mock := testutil.NewMockDB(t)

	mock.ExpectQuery("FROM instances").
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)

	router := setupAPIRouter(t, db, esp.NewSimulator(1.0, 0))
	rec := serve(router, http.MethodGet, "/newsletters/new", nil, map[string]string{"X-Instance-ID": "9"})

	testutil.AssertEqual(t, rec.Code, http.StatusBadRequest)
	testutil.AssertContains(t, rec.Body.String(), "instance 9 does not exist")
	testutil.AssertNoError(t, mock.ExpectationsWereMet())
}
