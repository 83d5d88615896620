package app

import (
	"testing"
	"time"

	"xposter/internal/config"
	"xposter/internal/publisher"
	"xposter/internal/schedule"
)

func TestMapSettingsDefaults(t *testing.T) {
	t.Parallel()

	rt, err := mapSettings(&config.Config{})
	if err != nil {
		t.Fatalf("mapSettings: %v", err)
	}
	want := settings{
		PollInterval: defaultPollInterval,
		Tolerance:    schedule.DefaultTolerance,
		MaxRetries:   publisher.DefaultMaxRetries,
		ThreadDelay:  publisher.DefaultThreadDelay,
		RequestRate:  defaultRequestRate,
	}
	if rt != want {
		t.Fatalf("settings = %+v, want %+v", rt, want)
	}
}

func TestMapSettingsRejectsBadDuration(t *testing.T) {
	t.Parallel()

	_, err := mapSettings(&config.Config{Runtime: config.RuntimeConfig{PollInterval: "soon"}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestMapRetention(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		hc        config.HistoryConfig
		retention time.Duration
		spec      string
		wantErr   bool
	}{
		{name: "defaults", retention: defaultRetention, spec: "@daily"},
		{name: "disabled", hc: config.HistoryConfig{Retention: "0s"}, retention: 0, spec: "@daily"},
		{name: "custom", hc: config.HistoryConfig{Retention: "720h", PruneSchedule: "0 3 * * *"}, retention: 720 * time.Hour, spec: "0 3 * * *"},
		{name: "invalid", hc: config.HistoryConfig{Retention: "forever"}, wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d, spec, err := mapRetention(&config.Config{History: tt.hc})
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("mapRetention: %v", err)
			}
			if d != tt.retention || spec != tt.spec {
				t.Fatalf("got (%v, %q), want (%v, %q)", d, spec, tt.retention, tt.spec)
			}
		})
	}
}

func TestMapScheduleConfig(t *testing.T) {
	t.Parallel()

	sc, err := mapScheduleConfig(config.ScheduleConfig{Timezone: "Asia/Tokyo", PostsPerDay: 3, CoreHoursStart: 9, CoreHoursEnd: 21, MinIntervalHours: 1.5})
	if err != nil {
		t.Fatalf("mapScheduleConfig: %v", err)
	}
	if sc.Location.String() != "Asia/Tokyo" || sc.MinInterval != 90*time.Minute || sc.CoreEndHour != 21 {
		t.Fatalf("schedule config = %+v", sc)
	}
	if _, err := mapScheduleConfig(config.ScheduleConfig{Timezone: "Mars/Base"}); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestMapProfileDefaultCategory(t *testing.T) {
	t.Parallel()

	p := mapProfile(config.ContentConfig{Persona: "p"})
	if len(p.Categories) != 1 || p.Categories[0].Name != "general" || p.Categories[0].Weight != 1 {
		t.Fatalf("categories = %+v", p.Categories)
	}
}

func TestMapStorageConfigDefaults(t *testing.T) {
	t.Parallel()

	sc, err := mapStorageConfig(&config.Config{History: config.HistoryConfig{Driver: "sqlite"}})
	if err != nil {
		t.Fatalf("mapStorageConfig: %v", err)
	}
	if sc.Path != "data/history.db" || sc.BusyTimeout != time.Second {
		t.Fatalf("storage config = %+v", sc)
	}
}
