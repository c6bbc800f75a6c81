package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer returns a client pointed at a handler.
func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL)
}

// ============================================================
// Request shape
// ============================================================

func TestFetchQueryShape(t *testing.T) {
	var gotMethod, gotAction, gotParam string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotAction = r.URL.Query().Get("action")
		gotParam = r.URL.Query().Get("woNumber")
		w.Write([]byte(`{"success":true,"progress":null}`))
	})

	_, err := c.GetProgress(context.Background(), "WO-100")
	if err != nil {
		t.Fatal(err)
	}
	if gotMethod != http.MethodGet {
		t.Errorf("method = %s", gotMethod)
	}
	if gotAction != "getProgress" {
		t.Errorf("action = %q", gotAction)
	}
	if gotParam != "WO-100" {
		t.Errorf("woNumber = %q", gotParam)
	}
}

func TestSendBodyShape(t *testing.T) {
	var body map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"success":true,"added":1,"updated":0,"total":1}`))
	})

	res, err := c.SaveWorkOrders(context.Background(), []WorkOrder{
		{WONumber: "WO-100", JobName: "Regrade"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if body["action"] != "saveWorkOrders" {
		t.Errorf("action in body = %v", body["action"])
	}
	if _, ok := body["workOrders"]; !ok {
		t.Error("workOrders missing from body")
	}
	if res.Added != 1 {
		t.Errorf("added = %d", res.Added)
	}
}

func TestUpdateProgressBody(t *testing.T) {
	var body map[string]any
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Write([]byte(`{"success":true,"woNumber":"WO-100","itemsUpdated":2}`))
	})

	hours := 4.0
	res, err := c.UpdateProgress(context.Background(), "WO-100", []ProgressItem{
		{Index: 0, QuantityCompleted: 5, Status: "in-progress"},
		{Index: 2, QuantityCompleted: 4, HoursUsed: &hours, Status: "completed"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if body["woNumber"] != "WO-100" {
		t.Errorf("woNumber = %v", body["woNumber"])
	}
	if res.ItemsUpdated != 2 {
		t.Errorf("itemsUpdated = %d", res.ItemsUpdated)
	}
}

// ============================================================
// Validation
// ============================================================

func TestEmptyWONumberRejected(t *testing.T) {
	c := New("http://unused.invalid")

	if _, err := c.GetProgress(context.Background(), ""); err != ErrMissingWONumber {
		t.Errorf("GetProgress: %v", err)
	}
	if _, err := c.GetSummary(context.Background(), ""); err != ErrMissingWONumber {
		t.Errorf("GetSummary: %v", err)
	}
	if _, err := c.UpdateProgress(context.Background(), "", nil); err != ErrMissingWONumber {
		t.Errorf("UpdateProgress: %v", err)
	}
	if _, err := c.DeleteWorkOrder(context.Background(), ""); err != ErrMissingWONumber {
		t.Errorf("DeleteWorkOrder: %v", err)
	}
	if _, err := c.SaveWorkOrders(context.Background(), []WorkOrder{{}}); err != ErrMissingWONumber {
		t.Errorf("SaveWorkOrders: %v", err)
	}
}

// ============================================================
// Error taxonomy
// ============================================================

func TestEnvelopeErrorIsAppError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":false,"error":"Work order not found"}`))
	})

	_, err := c.GetSummary(context.Background(), "WO-404")
	if !IsAppError(err) {
		t.Fatalf("expected AppError, got %T: %v", err, err)
	}
	if IsUnavailable(err) {
		t.Error("application error must not look like unavailability")
	}
}

func TestNon200IsUnavailable(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Ping(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("expected UnavailableError, got %T: %v", err, err)
	}
}

func TestConnectionRefusedIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url)
	_, err := c.Ping(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("expected UnavailableError, got %T: %v", err, err)
	}
}

func TestMalformedBodyIsUnavailable(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>not json</html>`))
	})

	_, err := c.GetAll(context.Background())
	if !IsUnavailable(err) {
		t.Fatalf("expected UnavailableError, got %T: %v", err, err)
	}
}

// ============================================================
// Decoding
// ============================================================

func TestGetAllDecodes(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"success": true,
			"workOrders": [
				{"woNumber":"WO-100","jobName":"Regrade","client":"Hendricks",
				 "lineItems":[{"lineNumber":1,"itemName":"Topsoil","quantity":12,"unit":"yards"}]}
			],
			"progressData": {
				"WO-100": {"woNumber":"WO-100","items":[
					{"index":0,"quantityCompleted":4,"status":"in-progress"}
				]}
			},
			"lastSync": "2026-08-30T10:00:00Z"
		}`))
	})

	res, err := c.GetAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.WorkOrders) != 1 {
		t.Fatalf("work orders = %d", len(res.WorkOrders))
	}
	wo := res.WorkOrders[0]
	if wo.WONumber != "WO-100" || len(wo.LineItems) != 1 {
		t.Errorf("decoded order wrong: %+v", wo)
	}
	set, ok := res.ProgressData["WO-100"]
	if !ok || len(set.Items) != 1 {
		t.Fatalf("progress data wrong: %+v", res.ProgressData)
	}
	if set.Items[0].HoursUsed != nil {
		t.Error("absent hoursUsed must decode to nil")
	}
}

func TestGetProgressNilWhenUnrecorded(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"progress":null}`))
	})

	res, err := c.GetProgress(context.Background(), "WO-100")
	if err != nil {
		t.Fatal(err)
	}
	if res.Progress != nil {
		t.Fatalf("expected nil progress, got %+v", res.Progress)
	}
}
