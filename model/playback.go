package model

// RepeatMode 循环模式
type RepeatMode string

const (
	RepeatNone RepeatMode = "none" // 不循环
	RepeatOne  RepeatMode = "one"  // 单曲循环
	RepeatAll  RepeatMode = "all"  // 列表循环
)

// Next returns the mode that follows m in the none → one → all cycle.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatNone:
		return RepeatOne
	case RepeatOne:
		return RepeatAll
	default:
		return RepeatNone
	}
}

// TransportStatus describes what the output handle is doing.
type TransportStatus string

const (
	StatusIdle    TransportStatus = "idle"
	StatusLoading TransportStatus = "loading"
	StatusPlaying TransportStatus = "playing"
	StatusPaused  TransportStatus = "paused"
	StatusEnded   TransportStatus = "ended"
	StatusFailed  TransportStatus = "failed"
)

// PlaybackState 播放器可观察状态
type PlaybackState struct {
	CurrentTrack *Track          `json:"currentTrack"`
	IsPlaying    bool            `json:"isPlaying"`
	CurrentTime  float64         `json:"currentTime"` // seconds
	Duration     float64         `json:"duration"`    // seconds, 0 until the source reports metadata
	Volume       float64         `json:"volume"`
	Queue        []Track         `json:"queue"`
	Repeat       RepeatMode      `json:"repeat"`
	Shuffle      bool            `json:"shuffle"`
	Status       TransportStatus `json:"status"`
	LoadError    string          `json:"loadError,omitempty"`
	Generation   uint64          `json:"generation"`
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s PlaybackState) Clone() PlaybackState {
	out := s
	if s.CurrentTrack != nil {
		t := *s.CurrentTrack
		out.CurrentTrack = &t
	}
	out.Queue = append([]Track(nil), s.Queue...)
	return out
}
