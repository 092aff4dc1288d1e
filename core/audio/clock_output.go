package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"Bpsb/core/player"
	"Bpsb/logger"
)

// ErrOutputClosed is returned by operations on a closed ClockOutput.
var ErrOutputClosed = errors.New("output closed")

// ClockOutput is a headless player.Output. It resolves and probes the source
// in the background, then advances the position with the wall clock while
// playing and reports ended once the position reaches the duration.
type ClockOutput struct {
	resolver SourceResolver
	prober   DurationProber
	tick     time.Duration
	timeout  time.Duration
	now      func() time.Time

	mu       sync.Mutex
	gen      uint64
	src      string
	loaded   bool
	playing  bool
	position float64
	duration float64
	volume   float64
	lastTick time.Time
	cancel   context.CancelFunc
	closed   bool

	// events are queued so emitting never blocks a caller holding a lock
	pendingMu sync.Mutex
	pending   []player.Event
	notify    chan struct{}
	events    chan player.Event
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewClockOutput 创建时钟驱动的输出句柄
func NewClockOutput(resolver SourceResolver, prober DurationProber, tick time.Duration) *ClockOutput {
	if resolver == nil {
		resolver = Passthrough{}
	}
	if tick <= 0 {
		tick = 250 * time.Millisecond
	}
	o := &ClockOutput{
		resolver: resolver,
		prober:   prober,
		tick:     tick,
		timeout:  30 * time.Second,
		now:      time.Now,
		volume:   1,
		notify:   make(chan struct{}, 1),
		events:   make(chan player.Event, 64),
		done:     make(chan struct{}),
	}
	o.wg.Add(2)
	go o.pump()
	go o.clock()
	return o
}

// Events implements player.Output.
func (o *ClockOutput) Events() <-chan player.Event { return o.events }

// Load starts resolving and probing src for generation gen.
func (o *ClockOutput) Load(gen uint64, src string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOutputClosed
	}
	if src == "" {
		return fmt.Errorf("empty source")
	}
	if o.cancel != nil {
		o.cancel()
	}

	o.gen = gen
	o.src = src
	o.loaded = false
	o.playing = false
	o.position = 0
	o.duration = 0

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	o.cancel = cancel

	o.wg.Add(1)
	go o.load(ctx, gen, src)
	return nil
}

func (o *ClockOutput) load(ctx context.Context, gen uint64, src string) {
	defer o.wg.Done()

	resolved, err := o.resolver.Resolve(ctx, src)
	var duration float64
	if err == nil {
		duration, err = o.prober.Probe(ctx, resolved)
		if err == nil && duration <= 0 {
			err = fmt.Errorf("non-positive duration %v for %s", duration, src)
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// 已被更新的 Load 取代
	if o.gen != gen || o.closed {
		return
	}
	if err != nil {
		o.playing = false
		logger.Warn("音源加载失败", logger.String("src", src), logger.ErrorField(err))
		o.emit(player.Event{Generation: gen, Type: player.EventLoadFailed, Err: err})
		return
	}

	o.loaded = true
	o.duration = duration
	o.lastTick = o.now()
	o.emit(player.Event{Generation: gen, Type: player.EventDurationKnown, Duration: duration})
}

// Play starts or resumes playback. A finished source restarts from zero.
func (o *ClockOutput) Play() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOutputClosed
	}
	if o.src == "" {
		return fmt.Errorf("no source loaded")
	}
	if o.loaded && o.duration > 0 && o.position >= o.duration {
		o.position = 0
	}
	o.playing = true
	o.lastTick = o.now()
	return nil
}

// Pause 暂停播放
func (o *ClockOutput) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOutputClosed
	}
	o.advanceLocked()
	o.playing = false
	return nil
}

// SetPosition moves the playhead without bounds checking.
func (o *ClockOutput) SetPosition(seconds float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOutputClosed
	}
	o.position = seconds
	o.lastTick = o.now()
	return nil
}

// SetVolume records the volume level as given.
func (o *ClockOutput) SetVolume(volume float64) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return ErrOutputClosed
	}
	o.volume = volume
	return nil
}

// Volume returns the last volume set.
func (o *ClockOutput) Volume() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.volume
}

// Close stops the clock and closes the event channel.
func (o *ClockOutput) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	if o.cancel != nil {
		o.cancel()
	}
	o.mu.Unlock()

	close(o.done)
	o.wg.Wait()
	close(o.events)
	return nil
}

// advanceLocked moves the position by the wall time since the last tick and
// reports whether the end was reached.
func (o *ClockOutput) advanceLocked() bool {
	now := o.now()
	if !o.playing || !o.loaded {
		o.lastTick = now
		return false
	}
	o.position += now.Sub(o.lastTick).Seconds()
	o.lastTick = now
	if o.duration > 0 && o.position >= o.duration {
		o.position = o.duration
		return true
	}
	return false
}

func (o *ClockOutput) clock() {
	defer o.wg.Done()

	ticker := time.NewTicker(o.tick)
	defer ticker.Stop()

	for {
		select {
		case <-o.done:
			return
		case <-ticker.C:
			o.onTick()
		}
	}
}

func (o *ClockOutput) onTick() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed || !o.playing || !o.loaded {
		return
	}
	ended := o.advanceLocked()
	o.emit(player.Event{Generation: o.gen, Type: player.EventTimeUpdate, Position: o.position})
	if ended {
		o.playing = false
		o.emit(player.Event{Generation: o.gen, Type: player.EventEnded})
	}
}

func (o *ClockOutput) emit(ev player.Event) {
	o.pendingMu.Lock()
	o.pending = append(o.pending, ev)
	o.pendingMu.Unlock()

	select {
	case o.notify <- struct{}{}:
	default:
	}
}

// pump forwards queued events to the events channel in order.
func (o *ClockOutput) pump() {
	defer o.wg.Done()

	for {
		select {
		case <-o.done:
			return
		case <-o.notify:
		}

		o.pendingMu.Lock()
		batch := o.pending
		o.pending = nil
		o.pendingMu.Unlock()

		for _, ev := range batch {
			select {
			case o.events <- ev:
			case <-o.done:
				return
			}
		}
	}
}
