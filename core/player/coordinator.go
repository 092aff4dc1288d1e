package player

import (
	"context"
	"math/rand"
	"sync"

	"Bpsb/logger"
	"Bpsb/model"

	"github.com/samber/lo"
)

const subscriberBuffer = 16

// Coordinator is the "now playing" state machine layered on one Output.
// Operations and output events are applied serially under one lock, always
// against the latest state.
type Coordinator struct {
	out  Output
	intn func(n int) int

	mu          sync.Mutex
	gen         uint64
	state       model.PlaybackState
	subscribers map[chan model.PlaybackState]struct{}
}

// Option customises a Coordinator.
type Option func(*Coordinator)

// WithRandom overrides the shuffle index source. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(c *Coordinator) { c.intn = intn }
}

// WithVolume sets the initial volume.
func WithVolume(v float64) Option {
	return func(c *Coordinator) { c.state.Volume = v }
}

// NewCoordinator 创建播放协调器，初始状态为空闲
func NewCoordinator(out Output, opts ...Option) *Coordinator {
	c := &Coordinator{
		out:  out,
		intn: rand.Intn,
		state: model.PlaybackState{
			Volume: 1,
			Queue:  []model.Track{},
			Repeat: model.RepeatNone,
			Status: model.StatusIdle,
		},
		subscribers: make(map[chan model.PlaybackState]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := out.SetVolume(c.state.Volume); err != nil {
		logger.Warn("设置初始音量失败", logger.ErrorField(err))
	}
	return c
}

// State returns a snapshot of the playback state.
func (c *Coordinator) State() model.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Subscribe returns a channel receiving a snapshot after every change.
// Slow subscribers miss snapshots rather than blocking the coordinator.
func (c *Coordinator) Subscribe() (<-chan model.PlaybackState, func()) {
	ch := make(chan model.PlaybackState, subscriberBuffer)

	c.mu.Lock()
	c.subscribers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			if _, ok := c.subscribers[ch]; ok {
				delete(c.subscribers, ch)
				close(ch)
			}
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

func (c *Coordinator) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snap := c.state.Clone()
	for ch := range c.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

// PlayTrack makes track current and starts it on the output.
func (c *Coordinator) PlayTrack(track model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playLocked(track)
	c.publishLocked()
}

func (c *Coordinator) playLocked(track model.Track) {
	c.gen++
	t := track
	c.state.CurrentTrack = &t
	c.state.CurrentTime = 0
	c.state.Duration = 0
	c.state.LoadError = ""
	c.state.Generation = c.gen

	logger.Debug("播放歌曲",
		logger.String("trackId", track.ID),
		logger.String("title", track.Title),
		logger.Uint64("generation", c.gen))

	if err := c.out.Load(c.gen, track.Src); err != nil {
		c.failLocked(err)
		return
	}
	if err := c.out.Play(); err != nil {
		c.failLocked(err)
		return
	}
	c.state.IsPlaying = true
	c.state.Status = model.StatusLoading
}

func (c *Coordinator) failLocked(err error) {
	logger.Warn("音源加载失败", logger.ErrorField(err), logger.Uint64("generation", c.gen))
	c.state.IsPlaying = false
	c.state.Status = model.StatusFailed
	if err != nil {
		c.state.LoadError = err.Error()
	}
}

// TogglePlay pauses or resumes the current track. Without one it does nothing.
func (c *Coordinator) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.CurrentTrack == nil {
		return
	}

	if c.state.IsPlaying {
		if err := c.out.Pause(); err != nil {
			logger.Warn("暂停失败", logger.ErrorField(err))
		}
		c.state.IsPlaying = false
		c.state.Status = model.StatusPaused
	} else {
		if err := c.out.Play(); err != nil {
			c.failLocked(err)
			c.publishLocked()
			return
		}
		c.state.IsPlaying = true
		c.state.LoadError = ""
		if c.state.Duration > 0 {
			c.state.Status = model.StatusPlaying
		} else {
			c.state.Status = model.StatusLoading
		}
	}
	c.publishLocked()
}

// NextTrack plays the queue successor of the current track, wrapping at the
// end, or a uniformly random queue entry when shuffle is on.
func (c *Coordinator) NextTrack() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.nextLocked() {
		c.publishLocked()
	}
}

func (c *Coordinator) nextLocked() bool {
	n := len(c.state.Queue)
	if n == 0 {
		return false
	}

	next := (c.currentIndexLocked() + 1) % n
	if c.state.Shuffle {
		next = c.intn(n)
	}
	c.playLocked(c.state.Queue[next])
	return true
}

// PreviousTrack plays the queue predecessor of the current track, wrapping to
// the last entry. Shuffle is ignored.
func (c *Coordinator) PreviousTrack() {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.state.Queue)
	if n == 0 {
		return
	}

	idx := c.currentIndexLocked()
	prev := n - 1
	if idx > 0 {
		prev = idx - 1
	}
	c.playLocked(c.state.Queue[prev])
	c.publishLocked()
}

// currentIndexLocked returns the first queue position holding the current
// track's ID, or -1.
func (c *Coordinator) currentIndexLocked() int {
	if c.state.CurrentTrack == nil {
		return -1
	}
	id := c.state.CurrentTrack.ID
	_, idx, ok := lo.FindIndexOf(c.state.Queue, func(t model.Track) bool { return t.ID == id })
	if !ok {
		return -1
	}
	return idx
}

// SetVolume applies v as given; callers keep it within [0, 1].
func (c *Coordinator) SetVolume(v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.Volume = v
	if err := c.out.SetVolume(v); err != nil {
		logger.Warn("设置音量失败", logger.Float64("volume", v), logger.ErrorField(err))
	}
	c.publishLocked()
}

// SeekTo moves the playback position. No bounds check against duration.
func (c *Coordinator) SeekTo(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.out.SetPosition(seconds); err != nil {
		logger.Warn("跳转失败", logger.Float64("position", seconds), logger.ErrorField(err))
	}
	c.state.CurrentTime = seconds
	c.publishLocked()
}

// ToggleRepeat cycles none → one → all → none.
func (c *Coordinator) ToggleRepeat() model.RepeatMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Repeat = c.state.Repeat.Next()
	c.publishLocked()
	return c.state.Repeat
}

// ToggleShuffle 切换随机播放
func (c *Coordinator) ToggleShuffle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Shuffle = !c.state.Shuffle
	c.publishLocked()
	return c.state.Shuffle
}

// AddToQueue appends track to the queue. Duplicates are kept.
func (c *Coordinator) AddToQueue(track model.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Queue = append(c.state.Queue, track)
	c.publishLocked()
}

// HandleEvent applies one output event. Events from a superseded Load are dropped.
func (c *Coordinator) HandleEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.Generation != c.gen || c.state.CurrentTrack == nil {
		logger.Debug("丢弃过期事件",
			logger.String("event", ev.Type.String()),
			logger.Uint64("eventGeneration", ev.Generation),
			logger.Uint64("generation", c.gen))
		return
	}

	switch ev.Type {
	case EventTimeUpdate:
		c.state.CurrentTime = ev.Position
	case EventDurationKnown:
		c.state.Duration = ev.Duration
		if c.state.IsPlaying && c.state.Status == model.StatusLoading {
			c.state.Status = model.StatusPlaying
		}
	case EventLoadFailed:
		c.failLocked(ev.Err)
	case EventEnded:
		c.endedLocked()
	default:
		return
	}
	c.publishLocked()
}

// endedLocked restarts the track under repeat-one and otherwise advances.
// With an empty queue the track stays current in the ended state.
func (c *Coordinator) endedLocked() {
	if c.state.Repeat == model.RepeatOne {
		c.state.CurrentTime = 0
		if err := c.out.SetPosition(0); err != nil {
			logger.Warn("重置播放位置失败", logger.ErrorField(err))
		}
		if err := c.out.Play(); err != nil {
			c.failLocked(err)
			return
		}
		c.state.IsPlaying = true
		c.state.Status = model.StatusPlaying
		return
	}

	c.state.IsPlaying = false
	c.state.Status = model.StatusEnded
	c.nextLocked()
}

// Run feeds output events into HandleEvent until ctx is done or the output
// closes its event channel.
func (c *Coordinator) Run(ctx context.Context) error {
	events := c.out.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.HandleEvent(ev)
		}
	}
}

// Close detaches all subscribers and closes the output.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	for ch := range c.subscribers {
		delete(c.subscribers, ch)
		close(ch)
	}
	c.mu.Unlock()
	return c.out.Close()
}
