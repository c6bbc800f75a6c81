package syncer

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/dkeller/fieldops/internal/remote"
	"github.com/dkeller/fieldops/internal/store"
)

// fakeSheet is an in-memory stand-in for the sheet endpoint. It records the
// actions it receives and can be switched to fail every request.
type fakeSheet struct {
	mu       sync.Mutex
	fail     bool
	orders   map[string]remote.WorkOrder
	progress map[string]remote.ProgressSet
	actions  []string
}

func newFakeSheet() *fakeSheet {
	return &fakeSheet{
		orders:   make(map[string]remote.WorkOrder),
		progress: make(map[string]remote.ProgressSet),
	}
}

func (f *fakeSheet) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeSheet) actionCount(action string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.actions {
		if a == action {
			n++
		}
	}
	return n
}

func (f *fakeSheet) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var action string
	var body map[string]json.RawMessage
	if r.Method == http.MethodGet {
		action = r.URL.Query().Get("action")
	} else {
		json.NewDecoder(r.Body).Decode(&body)
		json.Unmarshal(body["action"], &action)
	}
	f.actions = append(f.actions, action)

	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	switch action {
	case "getAll":
		resp := remote.GetAllResponse{Success: true, ProgressData: f.progress}
		for _, wo := range f.orders {
			resp.WorkOrders = append(resp.WorkOrders, wo)
		}
		json.NewEncoder(w).Encode(resp)

	case "saveWorkOrders":
		var orders []remote.WorkOrder
		json.Unmarshal(body["workOrders"], &orders)
		added := 0
		for _, wo := range orders {
			if _, ok := f.orders[wo.WONumber]; !ok {
				added++
			}
			f.orders[wo.WONumber] = wo
		}
		json.NewEncoder(w).Encode(remote.SaveResult{
			Success: true, Added: added, Updated: len(orders) - added, Total: len(f.orders),
		})

	case "updateProgress":
		var ps remote.ProgressSet
		json.Unmarshal(body["progress"], &ps)
		f.progress[ps.WONumber] = ps
		json.NewEncoder(w).Encode(remote.UpdateProgressResult{
			Success: true, WONumber: ps.WONumber, ItemsUpdated: len(ps.Items),
		})

	case "deleteWorkOrder":
		var wo string
		json.Unmarshal(body["woNumber"], &wo)
		_, had := f.orders[wo]
		delete(f.orders, wo)
		delete(f.progress, wo)
		json.NewEncoder(w).Encode(remote.DeleteResult{Success: true, Deleted: had})

	default:
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "unknown action"})
	}
}

func newTestEngine(t *testing.T, sheet *fakeSheet, opts ...Option) (*Engine, *store.Store) {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	srv := httptest.NewServer(sheet)
	t.Cleanup(srv.Close)

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.SetLogger(quiet)
	opts = append([]Option{WithLogger(quiet), WithDebounce(time.Hour)}, opts...)

	e := New(s, remote.New(srv.URL), opts...)
	t.Cleanup(e.Close)
	return e, s
}

func localOrder(wo string) store.WorkOrder {
	return store.WorkOrder{
		WONumber: wo,
		JobName:  "Local job",
		LineItems: []store.LineItem{
			{LineNumber: 1, ItemName: "Labor", Quantity: 8, Unit: "hours"},
		},
	}
}

// ============================================================
// Pull
// ============================================================

func TestPullEmptyCacheAdoptsRemote(t *testing.T) {
	sheet := newFakeSheet()
	sheet.orders["WO-100"] = remote.WorkOrder{WONumber: "WO-100", JobName: "Remote job"}
	sheet.progress["WO-100"] = remote.ProgressSet{
		WONumber: "WO-100",
		Items:    []remote.ProgressItem{{Index: 0, QuantityCompleted: 3, Status: "in-progress"}},
	}
	e, s := newTestEngine(t, sheet)

	if err := e.Pull(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetWorkOrder("WO-100")
	if got == nil || got.JobName != "Remote job" {
		t.Fatalf("remote order not adopted: %+v", got)
	}
	recs, _ := s.ListProgress("WO-100")
	if len(recs) != 1 || recs[0].QuantityCompleted != 3 {
		t.Fatalf("remote progress not adopted: %+v", recs)
	}
}

func TestPullLocalWins(t *testing.T) {
	sheet := newFakeSheet()
	sheet.orders["WO-100"] = remote.WorkOrder{WONumber: "WO-100", JobName: "Remote version"}
	sheet.orders["WO-200"] = remote.WorkOrder{WONumber: "WO-200", JobName: "Only remote"}
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))

	if err := e.Pull(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, _ := s.GetWorkOrder("WO-100")
	if got.JobName != "Local job" {
		t.Fatalf("remote overwrote local: %q", got.JobName)
	}
	adopted, _ := s.GetWorkOrder("WO-200")
	if adopted == nil {
		t.Fatal("absent order WO-200 should still be adopted")
	}
}

func TestPullSetsLastSync(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet)

	if err := e.Pull(context.Background()); err != nil {
		t.Fatal(err)
	}
	last, _ := s.LastSync()
	if last == nil {
		t.Fatal("last sync not recorded")
	}
}

func TestPullFailure(t *testing.T) {
	sheet := newFakeSheet()
	sheet.setFail(true)
	e, s := newTestEngine(t, sheet)

	if err := e.Pull(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	last, _ := s.LastSync()
	if last != nil {
		t.Fatal("failed pull must not advance last sync")
	}
}

// ============================================================
// Push
// ============================================================

func TestPushSendsSnapshot(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))
	s.PutWorkOrder(localOrder("WO-200"))

	if err := e.Push(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(sheet.orders) != 2 {
		t.Fatalf("sheet has %d orders, want 2", len(sheet.orders))
	}
}

func TestPushIdempotent(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))

	for i := 0; i < 3; i++ {
		if err := e.Push(context.Background()); err != nil {
			t.Fatal(err)
		}
	}

	if len(sheet.orders) != 1 {
		t.Fatalf("repeated pushes duplicated orders: %d", len(sheet.orders))
	}
}

func TestPushEmptyLocalSkipsRequest(t *testing.T) {
	sheet := newFakeSheet()
	e, _ := newTestEngine(t, sheet)

	if err := e.Push(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := sheet.actionCount("saveWorkOrders"); n != 0 {
		t.Fatalf("empty cache must not push, got %d saves", n)
	}
}

func TestPushFailureQueuesPending(t *testing.T) {
	sheet := newFakeSheet()
	sheet.setFail(true)
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))

	if err := e.Push(context.Background()); err == nil {
		t.Fatal("expected error")
	}

	snap := e.State()
	if len(snap.PendingWorkOrders) != 1 || snap.PendingWorkOrders[0] != "WO-100" {
		t.Fatalf("pending = %v", snap.PendingWorkOrders)
	}

	// Persisted too, so a restart restores it.
	ids, _ := s.ListPending(store.PendingWorkOrder)
	if len(ids) != 1 {
		t.Fatalf("pending not persisted: %v", ids)
	}
}

func TestPushSuccessClearsPending(t *testing.T) {
	sheet := newFakeSheet()
	sheet.setFail(true)
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))
	e.Push(context.Background())

	sheet.setFail(false)
	if err := e.Push(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := e.State()
	if len(snap.PendingWorkOrders) != 0 {
		t.Fatalf("pending not cleared: %v", snap.PendingWorkOrders)
	}
	ids, _ := s.ListPending(store.PendingWorkOrder)
	if len(ids) != 0 {
		t.Fatalf("persisted pending not cleared: %v", ids)
	}
}

func TestPendingRestoredOnConstruction(t *testing.T) {
	sheet := newFakeSheet()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	s.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.AddPending(store.PendingWorkOrder, "WO-100")
	s.AddPending(store.PendingProgress, "WO-200")

	srv := httptest.NewServer(sheet)
	t.Cleanup(srv.Close)

	e := New(s, remote.New(srv.URL), WithDebounce(time.Hour))
	t.Cleanup(e.Close)

	snap := e.State()
	if len(snap.PendingWorkOrders) != 1 || len(snap.PendingProgress) != 1 {
		t.Fatalf("pending not restored: %+v", snap)
	}
}

// ============================================================
// Progress
// ============================================================

func TestUpdateProgressWritesLocallyFirst(t *testing.T) {
	sheet := newFakeSheet()
	sheet.setFail(true) // remote down; local write must still land
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))
	s.SetSetting(store.SettingOperatorName, "Dana")

	err := e.UpdateProgress(context.Background(), "WO-100", store.ProgressRecord{
		Index: 0, QuantityCompleted: 4, Status: store.StatusInProgress,
	})
	if err != nil {
		t.Fatal(err)
	}

	recs, _ := s.ListProgress("WO-100")
	if len(recs) != 1 || recs[0].QuantityCompleted != 4 {
		t.Fatalf("local write missing: %+v", recs)
	}
	if recs[0].ModifiedBy != "Dana" {
		t.Errorf("operator name not filled in, got %q", recs[0].ModifiedBy)
	}
}

func TestPushProgressRoundTrip(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))
	s.PutProgress("WO-100", store.ProgressRecord{
		Index: 0, QuantityCompleted: 5, Status: store.StatusInProgress,
	})

	if err := e.PushProgress(context.Background(), "WO-100"); err != nil {
		t.Fatal(err)
	}

	ps, ok := sheet.progress["WO-100"]
	if !ok || len(ps.Items) != 1 {
		t.Fatalf("progress not on sheet: %+v", sheet.progress)
	}
	if ps.Items[0].QuantityCompleted != 5 {
		t.Errorf("quantity = %v", ps.Items[0].QuantityCompleted)
	}
}

func TestPushProgressFailureQueues(t *testing.T) {
	sheet := newFakeSheet()
	sheet.setFail(true)
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))
	s.PutProgress("WO-100", store.ProgressRecord{Index: 0, QuantityCompleted: 5, Status: store.StatusInProgress})

	if err := e.PushProgress(context.Background(), "WO-100"); err == nil {
		t.Fatal("expected error")
	}
	snap := e.State()
	if len(snap.PendingProgress) != 1 {
		t.Fatalf("pending progress = %v", snap.PendingProgress)
	}

	// The next successful full sync retries it.
	sheet.setFail(false)
	if err := e.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	snap = e.State()
	if len(snap.PendingProgress) != 0 {
		t.Fatalf("pending progress not retried: %v", snap.PendingProgress)
	}
	if _, ok := sheet.progress["WO-100"]; !ok {
		t.Fatal("retried progress never reached the sheet")
	}
}

// ============================================================
// Sync orchestration
// ============================================================

func TestSyncPullThenPush(t *testing.T) {
	sheet := newFakeSheet()
	sheet.orders["WO-REMOTE"] = remote.WorkOrder{WONumber: "WO-REMOTE", JobName: "From sheet"}
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-LOCAL"))

	if err := e.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}

	// Pull adopted the remote order, then push sent both back.
	if got, _ := s.GetWorkOrder("WO-REMOTE"); got == nil {
		t.Fatal("remote order not adopted")
	}
	if len(sheet.orders) != 2 {
		t.Fatalf("sheet orders = %d, want 2", len(sheet.orders))
	}

	gets := sheet.actionCount("getAll")
	saves := sheet.actionCount("saveWorkOrders")
	if gets != 1 || saves != 1 {
		t.Fatalf("getAll=%d saveWorkOrders=%d, want 1/1", gets, saves)
	}
}

func TestSyncPullErrorTakesPrecedence(t *testing.T) {
	sheet := newFakeSheet()
	sheet.setFail(true)
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))

	err := e.Sync(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !remote.IsUnavailable(err) {
		t.Fatalf("expected unavailability from pull, got %v", err)
	}

	snap := e.State()
	if snap.LastError == nil {
		t.Fatal("snapshot should carry the failure")
	}
	if snap.Status != StatusIdle {
		t.Fatalf("engine stuck in %q", snap.Status)
	}
}

func TestSyncBusyGuard(t *testing.T) {
	sheet := newFakeSheet()
	e, _ := newTestEngine(t, sheet)

	if !e.tryBegin() {
		t.Fatal("first begin refused")
	}
	// A second sync while one is in flight must no-op without error.
	if err := e.Sync(context.Background()); err != nil {
		t.Fatalf("overlapping sync errored: %v", err)
	}
	if n := sheet.actionCount("getAll"); n != 0 {
		t.Fatalf("overlapping sync hit the network %d times", n)
	}
	e.end(nil)

	if err := e.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := sheet.actionCount("getAll"); n != 1 {
		t.Fatalf("sync after release should run, getAll=%d", n)
	}
}

func TestDebouncedAutoSync(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet, WithDebounce(20*time.Millisecond))
	defer e.Close()

	// Rapid writes coalesce into one sync after quiescence.
	s.PutWorkOrder(localOrder("WO-100"))
	s.PutWorkOrder(localOrder("WO-200"))
	s.PutWorkOrder(localOrder("WO-300"))

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sheet.actionCount("saveWorkOrders") > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if n := sheet.actionCount("saveWorkOrders"); n != 1 {
		t.Fatalf("saveWorkOrders = %d, want exactly 1 coalesced push", n)
	}
	if len(sheet.orders) != 3 {
		t.Fatalf("sheet orders = %d", len(sheet.orders))
	}
}

func TestAutoSyncDisabled(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet, WithDebounce(10*time.Millisecond))
	defer e.Close()

	s.SetSetting(store.SettingSyncEnabled, "0")
	s.PutWorkOrder(localOrder("WO-100"))

	time.Sleep(100 * time.Millisecond)
	if n := sheet.actionCount("saveWorkOrders"); n != 0 {
		t.Fatalf("disabled sync still pushed %d times", n)
	}
}

// ============================================================
// Interval timer
// ============================================================

func TestIntervalTimerFires(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet, WithIntervalUnit(20*time.Millisecond))
	defer e.Close()

	s.SetSetting(store.SettingSyncInterval, "1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sheet.actionCount("getAll") > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("interval timer never synced")
}

func TestIntervalZeroNeverFires(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet, WithIntervalUnit(time.Millisecond))
	defer e.Close()

	s.SetSetting(store.SettingSyncInterval, "0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	time.Sleep(100 * time.Millisecond)
	if n := sheet.actionCount("getAll"); n != 0 {
		t.Fatalf("interval 0 still synced %d times", n)
	}
}

func TestIntervalRearmsOnSettingsChange(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet, WithIntervalUnit(20*time.Millisecond))
	defer e.Close()

	s.SetSetting(store.SettingSyncInterval, "0")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.Run(ctx)

	// The timer is off; flipping the setting wakes the loop and re-arms it.
	time.Sleep(50 * time.Millisecond)
	s.SetSetting(store.SettingSyncInterval, "1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if sheet.actionCount("getAll") > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("settings change never re-armed the interval timer")
}

// ============================================================
// Delete
// ============================================================

func TestDeleteWorkOrderLocalAndRemote(t *testing.T) {
	sheet := newFakeSheet()
	e, s := newTestEngine(t, sheet)

	s.PutWorkOrder(localOrder("WO-100"))
	e.Push(context.Background())

	if err := e.DeleteWorkOrder(context.Background(), "WO-100"); err != nil {
		t.Fatal(err)
	}

	if got, _ := s.GetWorkOrder("WO-100"); got != nil {
		t.Fatal("local delete missing")
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		sheet.mu.Lock()
		_, still := sheet.orders["WO-100"]
		sheet.mu.Unlock()
		if !still {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("remote delete never happened")
}
