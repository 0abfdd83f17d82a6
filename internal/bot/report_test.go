package bot

import (
	"context"
	"slices"
	"strings"
	"testing"
	"time"

	"astrobot/internal/models"
	"astrobot/internal/storage/stubs"
)

func seedReportData(t *testing.T, db *stubs.MockDB) {
	t.Helper()
	ctx := context.Background()
	for _, bk := range []models.Booking{
		{ID: "1", UserID: 1, StartsAt: time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC)},
		{ID: "2", UserID: 1, StartsAt: time.Date(2025, time.March, 5, 11, 0, 0, 0, time.UTC)},
		{ID: "3", UserID: 2, StartsAt: time.Date(2025, time.March, 7, 12, 0, 0, 0, time.UTC)},
		{ID: "4", UserID: 3, StartsAt: time.Date(2025, time.February, 1, 9, 0, 0, 0, time.UTC)},
	} {
		if err := db.CreateBooking(ctx, bk); err != nil {
			t.Fatalf("CreateBooking failed: %v", err)
		}
	}
	for _, p := range []models.NatalProfile{
		{UserID: 1, Name: "Ольга", UpdatedAt: time.Date(2025, time.March, 4, 18, 0, 0, 0, time.UTC)},
		{UserID: 2, Name: "Пётр", UpdatedAt: time.Date(2025, time.January, 1, 9, 0, 0, 0, time.UTC)},
	} {
		if err := db.SaveNatalProfile(ctx, p); err != nil {
			t.Fatalf("SaveNatalProfile failed: %v", err)
		}
	}
}

func TestBot_ReportPeriod(t *testing.T) {
	b, api, db := newTestBot(t, testOptions())
	seedReportData(t, db)

	b.HandleWebhookUpdate(commandUpdate(testAdminID, "/report"))
	state := mustState(t, b, testAdminID)
	if state.Command != cmdReport || state.Step != stepReportStart {
		t.Fatalf("Expected report start step, got %s/%d", state.Command, state.Step)
	}
	first := api.lastSent(t)
	if !hasButton(first, "rs:year:2024") || !hasButton(first, "report:default") {
		t.Error("Expected start picker with the 30 days shortcut")
	}

	click(b, testAdminID, "rs:year:2025", "rs:month:3", "rs:day:7")
	if state.Step != stepReportEnd {
		t.Fatalf("Expected report end step, got %d", state.Step)
	}
	if !strings.Contains(api.lastEdit(t), "07.03.2025") {
		t.Errorf("Expected chosen start in message, got %q", api.lastEdit(t))
	}

	// The end is before the start, the days are swapped
	click(b, testAdminID, "re:year:2025", "re:month:3", "re:day:3")

	text := api.lastEdit(t)
	for _, want := range []string{
		"с 03.03.2025 по 07.03.2025",
		"Консультаций: 3",
		"Клиентов: 2",
		"Заполнено анкет: 1",
		"Консультаций: 4",
		"Анкет: 2",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected %q in report, got %q", want, text)
		}
	}
	if _, ok := b.getState(testAdminID); ok {
		t.Error("Expected conversation to end")
	}
}

func TestBot_ReportDefaultPeriod(t *testing.T) {
	b, api, db := newTestBot(t, testOptions())
	seedReportData(t, db)

	b.HandleWebhookUpdate(commandUpdate(testAdminID, "/report"))
	click(b, testAdminID, "report:default")

	text := api.lastEdit(t)
	if !strings.Contains(text, "с 08.02.2025 по 10.03.2025") {
		t.Errorf("Expected last 30 days, got %q", text)
	}
	if !strings.Contains(text, "Консультаций: 3\n") {
		t.Errorf("Expected February booking to be left out, got %q", text)
	}
	if _, ok := b.getState(testAdminID); ok {
		t.Error("Expected conversation to end")
	}
}

func TestBot_ReportAdminsOnly(t *testing.T) {
	b, api, _ := newTestBot(t, testOptions())

	b.HandleWebhookUpdate(commandUpdate(testUserID, "/report"))
	if _, ok := b.getState(testUserID); ok {
		t.Error("Expected non-admin to be refused")
	}
	if !strings.Contains(api.lastSent(t).Text, "только администраторам") {
		t.Errorf("Unexpected reply %q", api.lastSent(t).Text)
	}

	// The shortcut does nothing outside a report conversation
	b.HandleWebhookUpdate(commandUpdate(testUserID, "/booking"))
	sent := len(api.sent)
	click(b, testUserID, "report:default")
	if state := mustState(t, b, testUserID); state.Command != cmdBooking {
		t.Errorf("Expected booking conversation to stay, got %s", state.Command)
	}
	if len(api.sent) != sent {
		t.Error("Expected no report to be sent")
	}
}

func TestPeriodBounds(t *testing.T) {
	march := func(day int) time.Time { return time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name       string
		start, end time.Time
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{"ordered", march(1), march(5), march(1), march(5)},
		{"swapped", march(5), march(1), march(1), march(5)},
		{"one day", march(3), march(3), march(3), march(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := periodBounds(tt.start, tt.end)
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Errorf("Expected %v..%v, got %v..%v", tt.wantStart, tt.wantEnd, start, end)
			}
		})
	}

	start, end := defaultPeriod(time.Date(2025, time.March, 10, 17, 30, 0, 0, time.UTC))
	if !end.Equal(march(10)) || !start.Equal(time.Date(2025, time.February, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Unexpected default period %v..%v", start, end)
	}
}

func TestBot_BookingInLocation(t *testing.T) {
	opts := testOptions()
	opts.Booking.Location = time.FixedZone("MSK", 3*60*60)
	b, api, db := newTestBot(t, opts)
	ctx := context.Background()

	// 08:00 UTC is 11:00 in Moscow
	monday := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	if got, want := b.availableHours(ctx, monday), []int{12, 14, 15, 16, 17, 18}; !slices.Equal(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}

	b.HandleWebhookUpdate(commandUpdate(testUserID, "/booking"))
	click(b, testUserID, "bk:year:2025", "bk:month:3", "bk:day:11", "bk:hour:10")
	if !strings.Contains(api.lastEdit(t), "11.03.2025 в 10:00") {
		t.Errorf("Unexpected confirmation %q", api.lastEdit(t))
	}
	click(b, testUserID, "booking:confirm")

	bookings, err := db.ListUserBookings(ctx, testUserID, testNow)
	if err != nil {
		t.Fatalf("ListUserBookings failed: %v", err)
	}
	if len(bookings) != 1 {
		t.Fatalf("Expected 1 booking, got %d", len(bookings))
	}
	want := time.Date(2025, time.March, 11, 7, 0, 0, 0, time.UTC)
	if !bookings[0].StartsAt.Equal(want) {
		t.Errorf("Expected booking at %v, got %v", want, bookings[0].StartsAt)
	}

	tuesday := monday.AddDate(0, 0, 1)
	if hours := b.availableHours(ctx, tuesday); slices.Contains(hours, 10) || !slices.Contains(hours, 9) {
		t.Errorf("Expected only 10:00 Moscow time to be taken, got %v", hours)
	}
}
