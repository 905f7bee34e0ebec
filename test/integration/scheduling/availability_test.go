//go:build integration

package scheduling

import (
	"medsched/pkg/model"
	"medsched/test/integration/testutil"
	"net/http"
	"net/url"
	"testing"
	"time"
)

// Runs against a scheduling service started with MONGO_DATABASE_NAME set
// to the test database.
func TestAvailabilityEndToEnd(t *testing.T) {
	env := testutil.NewTestEnv()
	mongo, client := env.Setup(t)
	defer env.Cleanup(t, mongo)

	resp := client.POST(t, "/api/v1/practitioners", map[string]any{
		"name":      "Gregory House",
		"time_zone": "Europe/Brussels",
	})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	var practitioner model.Practitioner
	resp.Data(t, &practitioner)

	var rules []map[string]any
	for day := 0; day < 5; day++ {
		rules = append(rules,
			map[string]any{"day_of_week": day, "hour_from": 9, "hour_to": 12},
			map[string]any{"day_of_week": day, "hour_from": 14, "hour_to": 17},
		)
	}
	schedule := map[string]any{
		"practitioner_id": practitioner.ID,
		"date_from":       "2024-03-04",
		"rules":           rules,
	}
	testutil.AssertStatusCode(t, client.POST(t, "/api/v1/schedules", schedule), http.StatusCreated)

	t.Run("duplicate start date", func(t *testing.T) {
		testutil.AssertStatusCode(t, client.POST(t, "/api/v1/schedules", schedule), http.StatusConflict)
	})

	day := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	availability := func(t *testing.T) model.AvailabilitySet {
		t.Helper()
		q := url.Values{}
		q.Set("practitioner_id", practitioner.ID)
		q.Set("start", day.Format(time.RFC3339))
		q.Set("end", day.Add(24*time.Hour).Format(time.RFC3339))
		resp := client.GET(t, "/api/v1/availability?"+q.Encode())
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var set model.AvailabilitySet
		resp.Data(t, &set)
		return set
	}

	t.Run("weekday availability in UTC", func(t *testing.T) {
		set := availability(t)
		want := [][2]string{{"08:00", "11:00"}, {"13:00", "16:00"}}
		if len(set.Intervals) != len(want) {
			t.Fatalf("intervals = %v", set.Intervals)
		}
		for i, iv := range set.Intervals {
			if iv.Start.UTC().Format("15:04") != want[i][0] || iv.End.UTC().Format("15:04") != want[i][1] {
				t.Errorf("interval %d = %v", i, iv)
			}
		}
	})

	t.Run("accepted slot", func(t *testing.T) {
		resp := client.POST(t, "/api/v1/availability/validate", map[string]any{
			"practitioner_id": practitioner.ID,
			"start":           "2024-03-04T09:00:00Z",
			"duration_hours":  1,
		})
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var decision model.SlotDecision
		resp.Data(t, &decision)
		if !decision.Accepted {
			t.Fatalf("decision = %+v", decision)
		}
	})

	t.Run("rejected slot suggests local times", func(t *testing.T) {
		resp := client.POST(t, "/api/v1/availability/validate", map[string]any{
			"practitioner_id":   practitioner.ID,
			"start":             "2024-03-04T11:30:00Z",
			"duration_hours":    1,
			"display_time_zone": "Europe/Brussels",
		})
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var decision model.SlotDecision
		resp.Data(t, &decision)
		if decision.Accepted || decision.Code != model.RejectSlotUnavailable {
			t.Fatalf("decision = %+v", decision)
		}
		testutil.AssertContains(t, resp, "09:00–12:00")
		testutil.AssertContains(t, resp, "14:00–17:00")
	})

	t.Run("exception carves out availability", func(t *testing.T) {
		resp := client.POST(t, "/api/v1/exceptions", map[string]any{
			"practitioner_id": practitioner.ID,
			"name":            "Conference",
			"start":           "2024-03-04T09:00:00Z",
			"end":             "2024-03-04T10:00:00Z",
		})
		testutil.AssertStatusCode(t, resp, http.StatusCreated)

		set := availability(t)
		if len(set.Intervals) != 3 {
			t.Fatalf("intervals = %v", set.Intervals)
		}
		if got := set.Intervals[1].Start.UTC().Format("15:04"); got != "10:00" {
			t.Errorf("second interval starts at %s", got)
		}
	})

	t.Run("no schedule before date_from", func(t *testing.T) {
		resp := client.POST(t, "/api/v1/availability/validate", map[string]any{
			"practitioner_id": practitioner.ID,
			"start":           "2024-02-26T09:00:00Z",
			"duration_hours":  1,
		})
		testutil.AssertStatusCode(t, resp, http.StatusOK)
		var decision model.SlotDecision
		resp.Data(t, &decision)
		if decision.Code != model.RejectNoSchedule {
			t.Fatalf("decision = %+v", decision)
		}
	})
}
