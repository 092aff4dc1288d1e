package audio

import (
	"context"
	"errors"
	"testing"
	"time"

	"Bpsb/core/player"
	"Bpsb/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func staticProber(durations map[string]float64) DurationProber {
	return ProberFunc(func(_ context.Context, src string) (float64, error) {
		d, ok := durations[src]
		if !ok {
			return 0, ErrUnknownDuration
		}
		return d, nil
	})
}

// nextEvent waits for the next event of type want, skipping time updates.
func nextEvent(t *testing.T, events <-chan player.Event, want player.EventType) player.Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events channel closed")
			if ev.Type == want {
				return ev
			}
			if ev.Type != player.EventTimeUpdate {
				t.Fatalf("unexpected %s event while waiting for %s", ev.Type, want)
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestClockOutputPlaysToEnd(t *testing.T) {
	out := NewClockOutput(nil, staticProber(map[string]float64{"/a.wav": 0.05}), 5*time.Millisecond)
	defer out.Close()

	require.NoError(t, out.Load(1, "/a.wav"))
	require.NoError(t, out.Play())

	ev := nextEvent(t, out.Events(), player.EventDurationKnown)
	assert.Equal(t, uint64(1), ev.Generation)
	assert.Equal(t, 0.05, ev.Duration)

	ev = nextEvent(t, out.Events(), player.EventEnded)
	assert.Equal(t, uint64(1), ev.Generation)
}

func TestClockOutputLoadFailure(t *testing.T) {
	out := NewClockOutput(nil, staticProber(nil), 5*time.Millisecond)
	defer out.Close()

	require.NoError(t, out.Load(7, "/missing.wav"))
	ev := nextEvent(t, out.Events(), player.EventLoadFailed)
	assert.Equal(t, uint64(7), ev.Generation)
	assert.ErrorIs(t, ev.Err, ErrUnknownDuration)

	assert.Error(t, out.Load(8, ""), "empty source")
}

func TestClockOutputSupersededLoadIsSilent(t *testing.T) {
	release := make(chan struct{})
	prober := ProberFunc(func(ctx context.Context, src string) (float64, error) {
		if src == "/slow.wav" {
			select {
			case <-release:
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}
		return 1, nil
	})
	out := NewClockOutput(nil, prober, time.Hour)
	defer out.Close()

	require.NoError(t, out.Load(1, "/slow.wav"))
	require.NoError(t, out.Load(2, "/fast.wav"))
	close(release)

	ev := nextEvent(t, out.Events(), player.EventDurationKnown)
	assert.Equal(t, uint64(2), ev.Generation)

	select {
	case ev := <-out.Events():
		t.Fatalf("unexpected event %s for generation %d", ev.Type, ev.Generation)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClockOutputPauseStopsClock(t *testing.T) {
	out := NewClockOutput(nil, staticProber(map[string]float64{"/a.wav": 10}), 5*time.Millisecond)
	defer out.Close()

	require.NoError(t, out.Load(1, "/a.wav"))
	nextEvent(t, out.Events(), player.EventDurationKnown)
	require.NoError(t, out.Pause())
	require.NoError(t, out.SetPosition(3))

	select {
	case ev := <-out.Events():
		t.Fatalf("paused output emitted %s", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, out.Play())
	ev := nextEvent(t, out.Events(), player.EventTimeUpdate)
	assert.GreaterOrEqual(t, ev.Position, 3.0)
}

func TestClockOutputVolumeAndClose(t *testing.T) {
	out := NewClockOutput(nil, staticProber(nil), time.Hour)

	require.NoError(t, out.SetVolume(1.5))
	assert.Equal(t, 1.5, out.Volume())

	require.NoError(t, out.Close())
	require.NoError(t, out.Close())
	_, ok := <-out.Events()
	assert.False(t, ok)
	assert.ErrorIs(t, out.Load(1, "/a.wav"), ErrOutputClosed)
	assert.ErrorIs(t, out.Play(), ErrOutputClosed)
}

func TestFallbackProber(t *testing.T) {
	ctx := context.Background()
	broken := ProberFunc(func(context.Context, string) (float64, error) { return 0, errors.New("no ffprobe") })

	d, err := FallbackProber{broken, staticProber(map[string]float64{"/a.wav": 42})}.Probe(ctx, "/a.wav")
	require.NoError(t, err)
	assert.Equal(t, 42.0, d)

	_, err = FallbackProber{broken, staticProber(nil)}.Probe(ctx, "/a.wav")
	assert.ErrorIs(t, err, ErrUnknownDuration)

	_, err = FallbackProber{}.Probe(ctx, "/a.wav")
	assert.ErrorIs(t, err, ErrUnknownDuration)
}

func TestFFprobeMissingBinary(t *testing.T) {
	_, err := NewFFprobe("/nonexistent/ffprobe").Probe(context.Background(), "/a.wav")
	assert.Error(t, err)
}

func TestCoordinatorAdvancesOnClockOutput(t *testing.T) {
	prober := staticProber(map[string]float64{"/1.wav": 0.03, "/2.wav": 10})
	out := NewClockOutput(nil, prober, 5*time.Millisecond)
	c := player.NewCoordinator(out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)
	defer c.Close()

	first := model.Track{ID: "1", Title: "One", Src: "/1.wav"}
	c.AddToQueue(first)
	c.AddToQueue(model.Track{ID: "2", Title: "Two", Src: "/2.wav"})
	c.PlayTrack(first)

	require.Eventually(t, func() bool {
		s := c.State()
		return s.CurrentTrack != nil && s.CurrentTrack.ID == "2" && s.Duration == 10 && s.Status == model.StatusPlaying
	}, 2*time.Second, 5*time.Millisecond)
}
