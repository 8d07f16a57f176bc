package connectivity

import (
	"testing"
	"time"
)

func driveMonitor(m *Monitor, base time.Time, readings []bool, step time.Duration) {
	for i, online := range readings {
		m.observe(online, base.Add(time.Duration(i)*step))
	}
}

func TestDebounceSuppressesFlap(t *testing.T) {
	m := NewMonitor(nil, Config{Interval: time.Second, Debounce: 300 * time.Millisecond}, nil, nil)
	base := time.Now()

	// Readings flip back before the debounce window elapses.
	driveMonitor(m, base, []bool{true, false, true, false, true}, 100*time.Millisecond)

	if !m.Online() {
		t.Error("flapping readings must not change the published state")
	}
	select {
	case state := <-m.Updates():
		t.Errorf("unexpected update published: %v", state)
	default:
	}
}

func TestStableOfflinePublishes(t *testing.T) {
	m := NewMonitor(nil, Config{Interval: time.Second, Debounce: 300 * time.Millisecond}, nil, nil)
	base := time.Now()

	driveMonitor(m, base, []bool{true, false, false, false, false, false}, 100*time.Millisecond)

	if m.Online() {
		t.Fatal("stable offline readings must flip the state")
	}
	select {
	case state := <-m.Updates():
		if state {
			t.Error("expected offline update")
		}
	default:
		t.Error("expected an update on the channel")
	}
}

func TestRecoveryFiresTriggerOnce(t *testing.T) {
	fired := 0
	m := NewMonitor(nil, Config{Interval: time.Second, Debounce: 300 * time.Millisecond},
		func() { fired++ }, nil)
	base := time.Now()

	// Offline long enough to settle, then online long enough to settle,
	// then steady online readings.
	readings := []bool{false, false, false, false, false, true, true, true, true, true, true, true}
	driveMonitor(m, base, readings, 100*time.Millisecond)

	if !m.Online() {
		t.Fatal("expected online state after recovery")
	}
	if fired != 1 {
		t.Errorf("recovery trigger fired %d times, want exactly 1", fired)
	}
}

func TestOfflineDoesNotFireTrigger(t *testing.T) {
	fired := 0
	m := NewMonitor(nil, Config{Interval: time.Second, Debounce: 300 * time.Millisecond},
		func() { fired++ }, nil)
	base := time.Now()

	driveMonitor(m, base, []bool{true, false, false, false, false, false}, 100*time.Millisecond)

	if fired != 0 {
		t.Errorf("losing connectivity must not trigger a sync, fired %d times", fired)
	}
}
