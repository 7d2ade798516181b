package action

import (
	"reflect"
	"testing"
	"time"

	"github.com/hitoshi/subsense/internal/model"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func daysFromNow(d float64) *time.Time {
	t := testNow.Add(time.Duration(d * float64(24*time.Hour)))
	return &t
}

func newSub(id string, status model.SubscriptionStatus, cost float64) model.Subscription {
	return model.Subscription{
		ID:             id,
		UserID:         "user-1",
		Name:           "Service " + id,
		Category:       "Other",
		MonthlyCost:    cost,
		UsageFrequency: model.UsageWeekly,
		Importance:     model.ImportanceMedium,
		BillingCycle:   model.BillingMonthly,
		UsageScope:     model.ScopePersonal,
		Status:         status,
	}
}

func findByID(items []model.ActionItem, id string) *model.ActionItem {
	for i := range items {
		if items[i].ID == id {
			return &items[i]
		}
	}
	return nil
}

func TestID_RoundTrip(t *testing.T) {
	id := ID(KindTrialExpired, "3f2c-uuid")
	kind, subID, ok := ParseID(id)
	if !ok {
		t.Fatalf("ParseID(%q) failed", id)
	}
	if kind != KindTrialExpired || subID != "3f2c-uuid" {
		t.Errorf("ParseID = (%q, %q), want (%q, %q)", kind, subID, KindTrialExpired, "3f2c-uuid")
	}

	for _, bad := range []string{"", "cancel", "cancel:", "bogus:sub-1", ":sub-1"} {
		if _, _, ok := ParseID(bad); ok {
			t.Errorf("ParseID(%q) should fail", bad)
		}
	}
}

func TestGenerate_Cancel(t *testing.T) {
	tests := []struct {
		name     string
		cost     float64
		priority model.Priority
	}{
		{"expensive", 30.01, model.PriorityHigh},
		{"boundary", 30, model.PriorityMedium},
		{"cheap", 5, model.PriorityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := Generate([]model.Subscription{newSub("s1", model.StatusCut, tt.cost)}, testNow)
			item := findByID(items, "cancel:s1")
			if item == nil {
				t.Fatalf("cancel item not generated: %+v", items)
			}
			if item.Priority != tt.priority {
				t.Errorf("Priority = %q, want %q", item.Priority, tt.priority)
			}
			if item.PotentialSavings == nil || *item.PotentialSavings != tt.cost {
				t.Errorf("PotentialSavings = %v, want %v", item.PotentialSavings, tt.cost)
			}
		})
	}
}

func TestGenerate_Review(t *testing.T) {
	rare := newSub("s1", model.StatusReview, 20)
	rare.UsageFrequency = model.UsageRare
	monthly := newSub("s2", model.StatusReview, 10)
	monthly.UsageFrequency = model.UsageMonthly
	weekly := newSub("s3", model.StatusReview, 10)
	weekly.UsageFrequency = model.UsageWeekly
	goodRare := newSub("s4", model.StatusGood, 10)
	goodRare.UsageFrequency = model.UsageRare

	items := Generate([]model.Subscription{rare, monthly, weekly, goodRare}, testNow)

	item := findByID(items, "review:s1")
	if item == nil {
		t.Fatal("review item for rare usage not generated")
	}
	if item.Priority != model.PriorityMedium {
		t.Errorf("Priority = %q, want medium", item.Priority)
	}
	if *item.PotentialSavings != 10 {
		t.Errorf("PotentialSavings = %v, want 10", *item.PotentialSavings)
	}
	if findByID(items, "review:s2") == nil {
		t.Error("review item for monthly usage not generated")
	}
	if findByID(items, "review:s3") != nil {
		t.Error("weekly usage must not produce a review item")
	}
	if findByID(items, "review:s4") != nil {
		t.Error("good status must not produce a review item")
	}
}

func TestGenerate_TrialEnding(t *testing.T) {
	tests := []struct {
		name     string
		days     float64
		id       string
		priority model.Priority
		wantItem bool
	}{
		{"urgent", 2.5, "trial_ending:t", model.PriorityHigh, true},
		{"three days", 3, "trial_ending:t", model.PriorityHigh, true},
		{"within week", 3.2, "trial_ending:t", model.PriorityMedium, true},
		{"seven days", 7, "trial_ending:t", model.PriorityMedium, true},
		{"too far", 7.1, "", "", false},
		{"expired", -2, "trial_expired:t", model.PriorityHigh, true},
		{"just now", 0, "trial_expired:t", model.PriorityHigh, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newSub("t", model.StatusGood, 12)
			sub.BillingCycle = model.BillingTrial
			sub.TrialEndDate = daysFromNow(tt.days)

			items := Generate([]model.Subscription{sub}, testNow)
			if !tt.wantItem {
				if len(items) != 0 {
					t.Fatalf("expected no items, got %+v", items)
				}
				return
			}
			item := findByID(items, tt.id)
			if item == nil {
				t.Fatalf("item %q not generated: %+v", tt.id, items)
			}
			if item.Type != model.ActionTrialEnding {
				t.Errorf("Type = %q, want %q", item.Type, model.ActionTrialEnding)
			}
			if item.Priority != tt.priority {
				t.Errorf("Priority = %q, want %q", item.Priority, tt.priority)
			}
			if item.DueDate == nil || !item.DueDate.Equal(*sub.TrialEndDate) {
				t.Errorf("DueDate = %v, want %v", item.DueDate, sub.TrialEndDate)
			}
		})
	}
}

func TestGenerate_TrialWithoutEndDateOrNotTrial(t *testing.T) {
	noDate := newSub("a", model.StatusGood, 12)
	noDate.BillingCycle = model.BillingTrial

	notTrial := newSub("b", model.StatusGood, 12)
	notTrial.TrialEndDate = daysFromNow(2)

	items := Generate([]model.Subscription{noDate, notTrial}, testNow)
	if len(items) != 0 {
		t.Errorf("expected no items, got %+v", items)
	}
}

func TestGenerate_RenewalReminder(t *testing.T) {
	tests := []struct {
		name     string
		status   model.SubscriptionStatus
		cost     float64
		days     float64
		cycle    model.BillingCycle
		wantItem bool
		priority model.Priority
	}{
		{"good but expensive", model.StatusGood, 25, 3, model.BillingMonthly, true, model.PriorityLow},
		{"good and cheap", model.StatusGood, 20, 3, model.BillingMonthly, false, ""},
		{"review", model.StatusReview, 5, 7, model.BillingAnnual, true, model.PriorityLow},
		{"cut", model.StatusCut, 5, 1, model.BillingMonthly, true, model.PriorityHigh},
		{"past", model.StatusCut, 5, -1, model.BillingMonthly, false, ""},
		{"too far", model.StatusCut, 5, 8, model.BillingMonthly, false, ""},
		{"trial ignored", model.StatusCut, 5, 2, model.BillingTrial, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := newSub("r", tt.status, tt.cost)
			sub.BillingCycle = tt.cycle
			sub.RenewalDate = daysFromNow(tt.days)

			items := Generate([]model.Subscription{sub}, testNow)
			item := findByID(items, "renewal_reminder:r")
			if !tt.wantItem {
				if item != nil {
					t.Fatalf("unexpected renewal item: %+v", item)
				}
				return
			}
			if item == nil {
				t.Fatalf("renewal item not generated: %+v", items)
			}
			if item.Priority != tt.priority {
				t.Errorf("Priority = %q, want %q", item.Priority, tt.priority)
			}
		})
	}
}

func TestGenerate_Downgrade(t *testing.T) {
	known := newSub("d1", model.StatusReview, 54.99)
	known.Name = "Adobe Creative Cloud"

	caseVariant := newSub("d2", model.StatusReview, 54.99)
	caseVariant.Name = "adobe creative cloud"

	unknown := newSub("d3", model.StatusReview, 54.99)
	unknown.Name = "Some Niche Tool"

	cheap := newSub("d4", model.StatusReview, 40)
	cheap.Name = "Netflix"

	good := newSub("d5", model.StatusGood, 99)
	good.Name = "Netflix"

	items := Generate([]model.Subscription{known, caseVariant, unknown, cheap, good}, testNow)

	item := findByID(items, "downgrade:d1")
	if item == nil {
		t.Fatal("downgrade item not generated for known service")
	}
	if *item.PotentialSavings != 37 {
		t.Errorf("PotentialSavings = %v, want 37", *item.PotentialSavings)
	}
	for _, id := range []string{"downgrade:d2", "downgrade:d3", "downgrade:d4", "downgrade:d5"} {
		if findByID(items, id) != nil {
			t.Errorf("unexpected item %s", id)
		}
	}
}

// TestGenerate_MultipleItemsPerSubscription は1件の購読から複数のアクションが出ることを検証する。
func TestGenerate_MultipleItemsPerSubscription(t *testing.T) {
	sub := newSub("m", model.StatusCut, 45)
	sub.RenewalDate = daysFromNow(2)

	items := Generate([]model.Subscription{sub}, testNow)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d: %+v", len(items), items)
	}
	if findByID(items, "cancel:m") == nil || findByID(items, "renewal_reminder:m") == nil {
		t.Errorf("expected cancel and renewal items, got %+v", items)
	}
}

func TestGenerate_SortOrder(t *testing.T) {
	a := newSub("a", model.StatusCut, 10) // cancel medium, savings 10
	b := newSub("b", model.StatusCut, 50) // cancel high, savings 50
	c := newSub("c", model.StatusReview, 60)
	c.UsageFrequency = model.UsageRare // review medium, savings 30
	d := newSub("d", model.StatusGood, 25)
	d.RenewalDate = daysFromNow(4) // renewal low, no savings
	e := newSub("e", model.StatusCut, 31) // cancel high, savings 31

	items := Generate([]model.Subscription{a, b, c, d, e}, testNow)

	var got []string
	for _, item := range items {
		got = append(got, item.ID)
	}
	want := []string{"cancel:b", "cancel:e", "review:c", "cancel:a", "renewal_reminder:d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

// TestGenerate_Idempotent は同じ入力で同じID・同じ順序が得られることを検証する。
func TestGenerate_Idempotent(t *testing.T) {
	subs := []model.Subscription{
		newSub("a", model.StatusCut, 10),
		newSub("b", model.StatusCut, 10),
		newSub("c", model.StatusReview, 10),
	}
	subs[2].UsageFrequency = model.UsageMonthly

	first := Generate(subs, testNow)
	second := Generate(subs, testNow)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("generation is not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestFilterSnoozed(t *testing.T) {
	subs := []model.Subscription{
		newSub("a", model.StatusCut, 100),
		newSub("b", model.StatusCut, 10),
	}
	snoozed := map[string]bool{"cancel:a": true}

	items := FilterSnoozed(Generate(subs, testNow), func(id string) bool { return snoozed[id] })
	if len(items) != 1 || items[0].ID != "cancel:b" {
		t.Errorf("FilterSnoozed = %+v, want only cancel:b", items)
	}

	all := Generate(subs, testNow)
	if got := FilterSnoozed(all, nil); len(got) != len(all) {
		t.Errorf("nil predicate should keep all items, got %d of %d", len(got), len(all))
	}
}

func TestGenerate_EmptyInput(t *testing.T) {
	items := Generate(nil, testNow)
	if items == nil || len(items) != 0 {
		t.Errorf("Generate(nil) = %#v, want empty non-nil slice", items)
	}
}
