package summary

import (
	"testing"
	"time"

	"github.com/dkeller/fieldops/internal/store"
)

func ptr(f float64) *float64 { return &f }

// ============================================================
// Summarize
// ============================================================

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(store.WorkOrder{WONumber: "WO-1"}, nil)

	if s.Percentage != 0 || s.TotalItems != 0 || s.TotalHours != 0 {
		t.Fatalf("empty order should zero out: %+v", s)
	}
	if s.Status != store.StatusNotStarted {
		t.Errorf("status = %q", s.Status)
	}
}

func TestSummarizeFullScenario(t *testing.T) {
	wo := store.WorkOrder{
		WONumber: "WO-100",
		JobName:  "Front beds",
		LineItems: []store.LineItem{
			{LineNumber: 1, ItemName: "Mulch", Quantity: 6, Unit: "yards"},
			{LineNumber: 2, ItemName: "Skilled labor hours", Quantity: 10, Unit: "hours"},
			{LineNumber: 3, ItemName: "Shrubs", Quantity: 12, Unit: "each"},
			{LineNumber: 4, ItemName: "Edging", Quantity: 80, Unit: "linear-feet"},
		},
	}
	records := []store.ProgressRecord{
		{Index: 0, QuantityCompleted: 6, Status: store.StatusCompleted},
		{Index: 1, QuantityCompleted: 10, HoursUsed: ptr(10), Status: store.StatusCompleted},
		{Index: 2, QuantityCompleted: 4, Status: store.StatusInProgress},
	}

	s := Summarize(wo, records)

	if s.Percentage != 50 {
		t.Errorf("percentage = %d, want 50", s.Percentage)
	}
	if s.CompletedItems != 2 || s.TotalItems != 4 {
		t.Errorf("items = %d/%d", s.CompletedItems, s.TotalItems)
	}
	if s.TotalHours != 10 || s.UsedHours != 10 || s.RemainingHours != 0 {
		t.Errorf("hours = %v/%v/%v", s.TotalHours, s.UsedHours, s.RemainingHours)
	}
	if s.Status != store.StatusInProgress {
		t.Errorf("status = %q", s.Status)
	}
}

func TestSummarizeRoundsHalfUp(t *testing.T) {
	wo := store.WorkOrder{WONumber: "WO-1", LineItems: make([]store.LineItem, 3)}

	s := Summarize(wo, []store.ProgressRecord{
		{Index: 0, Status: store.StatusCompleted},
	})
	// 1/3 = 33.33 -> 33
	if s.Percentage != 33 {
		t.Errorf("1/3 = %d, want 33", s.Percentage)
	}

	s = Summarize(wo, []store.ProgressRecord{
		{Index: 0, Status: store.StatusCompleted},
		{Index: 1, Status: store.StatusCompleted},
	})
	// 2/3 = 66.67 -> 67
	if s.Percentage != 67 {
		t.Errorf("2/3 = %d, want 67", s.Percentage)
	}

	wo.LineItems = make([]store.LineItem, 8)
	s = Summarize(wo, []store.ProgressRecord{
		{Index: 0, Status: store.StatusCompleted},
		{Index: 1, Status: store.StatusCompleted},
		{Index: 2, Status: store.StatusCompleted},
	})
	// 3/8 = 37.5 -> 38 (half rounds up)
	if s.Percentage != 38 {
		t.Errorf("3/8 = %d, want 38", s.Percentage)
	}
}

func TestSummarizeAllCompleted(t *testing.T) {
	wo := store.WorkOrder{WONumber: "WO-1", LineItems: make([]store.LineItem, 2)}
	s := Summarize(wo, []store.ProgressRecord{
		{Index: 0, Status: store.StatusCompleted},
		{Index: 1, Status: store.StatusCompleted},
	})
	if s.Percentage != 100 || s.Status != store.StatusCompleted {
		t.Fatalf("got %d%% %q", s.Percentage, s.Status)
	}
}

func TestLaborHeuristicCaseInsensitive(t *testing.T) {
	cases := map[string]bool{
		"Skilled Labor":      true,
		"MAN HOURS":          true,
		"Hourly equipment":   true,
		"Foreman time":       true, // "man" substring
		"Mulch delivery":     false,
		"Shrub installation": false,
	}
	for name, want := range cases {
		if got := isLaborItem(name); got != want {
			t.Errorf("isLaborItem(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestQuantityFallbackWhenHoursMissing(t *testing.T) {
	wo := store.WorkOrder{
		WONumber: "WO-1",
		LineItems: []store.LineItem{
			{LineNumber: 1, ItemName: "Labor", Quantity: 40, Unit: "hours"},
		},
	}
	s := Summarize(wo, []store.ProgressRecord{
		{Index: 0, QuantityCompleted: 15, Status: store.StatusInProgress},
	})

	if s.UsedHours != 15 {
		t.Errorf("used hours = %v, want fallback to quantity 15", s.UsedHours)
	}
	if s.RemainingHours != 25 {
		t.Errorf("remaining = %v", s.RemainingHours)
	}
}

func TestHoursUsedWinsOverQuantity(t *testing.T) {
	wo := store.WorkOrder{
		WONumber: "WO-1",
		LineItems: []store.LineItem{
			{LineNumber: 1, ItemName: "Labor", Quantity: 40, Unit: "hours"},
		},
	}
	s := Summarize(wo, []store.ProgressRecord{
		{Index: 0, QuantityCompleted: 15, HoursUsed: ptr(22), Status: store.StatusInProgress},
	})

	if s.UsedHours != 22 {
		t.Errorf("used hours = %v, want reported 22", s.UsedHours)
	}
}

func TestRemainingHoursClampedAtZero(t *testing.T) {
	wo := store.WorkOrder{
		WONumber: "WO-1",
		LineItems: []store.LineItem{
			{LineNumber: 1, ItemName: "Labor", Quantity: 10, Unit: "hours"},
		},
	}
	s := Summarize(wo, []store.ProgressRecord{
		{Index: 0, HoursUsed: ptr(14), Status: store.StatusInProgress},
	})

	if s.RemainingHours != 0 {
		t.Errorf("overrun must clamp to 0, got %v", s.RemainingHours)
	}
}

// ============================================================
// Cache
// ============================================================

func TestCacheServesWithinTTL(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	wo := store.WorkOrder{WONumber: "WO-1", LineItems: make([]store.LineItem, 2)}

	first := c.Get(wo, []store.ProgressRecord{{Index: 0, Status: store.StatusCompleted}})
	if first.Percentage != 50 {
		t.Fatalf("percentage = %d", first.Percentage)
	}

	// Fresher records within the TTL are ignored; the cache serves stale.
	second := c.Get(wo, []store.ProgressRecord{
		{Index: 0, Status: store.StatusCompleted},
		{Index: 1, Status: store.StatusCompleted},
	})
	if second.Percentage != 50 {
		t.Fatalf("expected cached 50, got %d", second.Percentage)
	}
}

func TestCacheExpires(t *testing.T) {
	c := NewCache()
	now := time.Now()
	c.now = func() time.Time { return now }

	wo := store.WorkOrder{WONumber: "WO-1", LineItems: make([]store.LineItem, 2)}
	c.Get(wo, nil)

	now = now.Add(defaultTTL + time.Second)
	s := c.Get(wo, []store.ProgressRecord{{Index: 0, Status: store.StatusCompleted}})
	if s.Percentage != 50 {
		t.Fatalf("expired entry not recomputed, got %d", s.Percentage)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache()

	wo := store.WorkOrder{WONumber: "WO-1", LineItems: make([]store.LineItem, 2)}
	c.Get(wo, nil)
	c.Invalidate("WO-1")

	s := c.Get(wo, []store.ProgressRecord{{Index: 0, Status: store.StatusCompleted}})
	if s.Percentage != 50 {
		t.Fatalf("invalidated entry not recomputed, got %d", s.Percentage)
	}
}
