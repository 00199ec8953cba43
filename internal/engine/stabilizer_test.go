package engine

import (
	"errors"
	"math"
	"testing"
	"time"

	"presence_monitor"
)

// feed pushes a run of identical snapshots spaced step apart, starting at the
// stabilizer's next monotonic slot.
func feed(t *testing.T, s *StateStabilizer, start time.Duration, step time.Duration, n int, present, device bool) (presence_monitor.CanonicalState, time.Duration) {
	t.Helper()
	var st presence_monitor.CanonicalState
	mono := start
	for i := 0; i < n; i++ {
		var err error
		st, err = s.Update(presence_monitor.DetectionSnapshot{
			PersonPresent: present,
			DeviceInUse:   device,
			Monotonic:     mono,
		})
		if err != nil {
			t.Fatalf("Update at %v: %v", mono, err)
		}
		mono += step
	}
	return st, mono
}

func TestStateStabilizer_RejectsMalformedSnapshot(t *testing.T) {
	t.Parallel()

	s := NewStateStabilizer(StabilizerConfig{})

	// Zero monotonic timestamp is malformed.
	_, err := s.Update(presence_monitor.DetectionSnapshot{PersonPresent: true})
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("want ErrInvalidSnapshot, got %v", err)
	}

	// Seed a valid snapshot, then go backwards in time.
	if _, err := s.Update(presence_monitor.DetectionSnapshot{PersonPresent: true, Monotonic: time.Second}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	before := s.State()
	_, err = s.Update(presence_monitor.DetectionSnapshot{PersonPresent: false, Monotonic: 500 * time.Millisecond})
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("want ErrInvalidSnapshot for backwards clock, got %v", err)
	}
	if after := s.State(); after != before {
		t.Fatalf("state changed on rejected snapshot: %+v vs %+v", after, before)
	}
}

func TestStateStabilizer_DebounceSingleFlicker(t *testing.T) {
	t.Parallel()

	s := NewStateStabilizer(StabilizerConfig{DebounceFrames: 2})

	// Seed present, then one flickering absent frame surrounded by present.
	_, mono := feed(t, s, 100*time.Millisecond, 100*time.Millisecond, 3, true, false)
	st, err := s.Update(presence_monitor.DetectionSnapshot{PersonPresent: false, Monotonic: mono})
	if err != nil {
		t.Fatalf("flicker frame: %v", err)
	}
	if !st.PersonPresent {
		t.Fatalf("single flicker frame must not flip canonical presence")
	}
	st, _ = feed(t, s, mono+100*time.Millisecond, 100*time.Millisecond, 2, true, false)
	if !st.PersonPresent {
		t.Fatalf("presence lost after flicker recovered")
	}
	if st.AbsenceSeconds != 0 {
		t.Fatalf("absence must not accumulate while canonically present, got %v", st.AbsenceSeconds)
	}
}

func TestStateStabilizer_SustainedFlipHappensOnce(t *testing.T) {
	t.Parallel()

	s := NewStateStabilizer(StabilizerConfig{DebounceFrames: 2})

	transitions := 0
	s.now = func() time.Time {
		transitions++
		return time.Unix(int64(transitions), 0)
	}

	// Seed present (one transition stamp for the seed).
	_, mono := feed(t, s, 100*time.Millisecond, 100*time.Millisecond, 1, true, false)
	seedStamps := transitions

	// Hold absent well past the debounce window.
	st, _ := feed(t, s, mono, 100*time.Millisecond, 20, false, false)
	if st.PersonPresent {
		t.Fatalf("sustained absence must flip canonical presence")
	}
	if got := transitions - seedStamps; got != 1 {
		t.Fatalf("canonical state must flip exactly once, got %d transitions", got)
	}
}

func TestStateStabilizer_AbsenceAccumulatesAndConverges(t *testing.T) {
	t.Parallel()

	s := NewStateStabilizer(StabilizerConfig{DebounceFrames: 2})

	// 100 absent snapshots at 0.1s apart: duration converges to ~9.9s
	// (first snapshot seeds, 99 deltas follow).
	st, _ := feed(t, s, 100*time.Millisecond, 100*time.Millisecond, 100, false, false)
	want := 9.9
	if math.Abs(st.AbsenceSeconds-want) > 0.2 {
		t.Fatalf("AbsenceSeconds: want ~%v, got %v", want, st.AbsenceSeconds)
	}
}

func TestStateStabilizer_AbsenceNeverDecreasesWhileAbsent(t *testing.T) {
	t.Parallel()

	s := NewStateStabilizer(StabilizerConfig{DebounceFrames: 2})

	prev := 0.0
	mono := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		st, err := s.Update(presence_monitor.DetectionSnapshot{PersonPresent: false, Monotonic: mono})
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if st.AbsenceSeconds < prev {
			t.Fatalf("AbsenceSeconds decreased from %v to %v while absent", prev, st.AbsenceSeconds)
		}
		prev = st.AbsenceSeconds
		mono += 100 * time.Millisecond
	}
}

func TestStateStabilizer_ResetOnConfirmedReturn(t *testing.T) {
	t.Parallel()

	s := NewStateStabilizer(StabilizerConfig{DebounceFrames: 2})

	// Absent long enough to accumulate, then return.
	_, mono := feed(t, s, 100*time.Millisecond, 100*time.Millisecond, 30, false, false)
	if st := s.State(); st.AbsenceSeconds == 0 {
		t.Fatalf("expected accumulated absence before return")
	}

	// One present frame: still inside debounce, absence keeps accumulating.
	st, err := s.Update(presence_monitor.DetectionSnapshot{PersonPresent: true, Monotonic: mono})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st.PersonPresent {
		t.Fatalf("presence flipped before debounce window elapsed")
	}
	if st.AbsenceSeconds == 0 {
		t.Fatalf("absence must keep accumulating against the confirmed state inside the debounce window")
	}

	// Second present frame confirms: duration resets at the flip instant.
	st, err = s.Update(presence_monitor.DetectionSnapshot{PersonPresent: true, Monotonic: mono + 100*time.Millisecond})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !st.PersonPresent {
		t.Fatalf("presence must flip after debounce frames agree")
	}
	if st.AbsenceSeconds != 0 {
		t.Fatalf("AbsenceSeconds must reset to 0 on confirmed return, got %v", st.AbsenceSeconds)
	}
}

func TestStateStabilizer_DeviceUseAccumulatesAndResetsWhenIdle(t *testing.T) {
	t.Parallel()

	s := NewStateStabilizer(StabilizerConfig{DebounceFrames: 2})

	// Present with device in use.
	st, mono := feed(t, s, 100*time.Millisecond, 100*time.Millisecond, 30, true, true)
	if !st.DeviceInUse {
		t.Fatalf("expected confirmed device use")
	}
	if st.DeviceUseSeconds <= 0 {
		t.Fatalf("expected accumulated device use, got %v", st.DeviceUseSeconds)
	}
	if st.AbsenceSeconds != 0 {
		t.Fatalf("absence must stay 0 while present, got %v", st.AbsenceSeconds)
	}

	// Device goes idle for the debounce window: duration resets.
	st, _ = feed(t, s, mono, 100*time.Millisecond, 2, true, false)
	if st.DeviceInUse {
		t.Fatalf("device must be confirmed idle")
	}
	if st.DeviceUseSeconds != 0 {
		t.Fatalf("DeviceUseSeconds must reset when the device is confirmed idle, got %v", st.DeviceUseSeconds)
	}
}

func TestStateStabilizer_ClampsLargeGaps(t *testing.T) {
	t.Parallel()

	s := NewStateStabilizer(StabilizerConfig{DebounceFrames: 2, MaxDelta: 5 * time.Second})

	feed(t, s, 100*time.Millisecond, 100*time.Millisecond, 2, false, false)

	// A one minute stall is credited as MaxDelta only.
	st, err := s.Update(presence_monitor.DetectionSnapshot{PersonPresent: false, Monotonic: time.Minute})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st.AbsenceSeconds > 5.2 {
		t.Fatalf("gap not clamped: AbsenceSeconds=%v", st.AbsenceSeconds)
	}
}
