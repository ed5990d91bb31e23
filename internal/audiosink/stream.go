package audiosink

// StreamSource adapts a Graph into the teacher's audio.SampleSource
// contract (internal/audio.SampleSource: Process(dst []float32) writes
// stereo-interleaved samples, two float32 per frame regardless of the
// underlying engine's channel count — mono Graphs simply duplicate left
// into right, matching how the teacher's own engines feed StreamReader).
type StreamSource struct {
	g            *Graph
	masterVolume float32
}

// NewStreamSource wraps g for real-time playback through
// internal/audio.NewPlayer, applying masterVolume (§5's fillBuffer
// "scales by master volume" step) after mixing.
func NewStreamSource(g *Graph, masterVolume float64) *StreamSource {
	return &StreamSource{g: g, masterVolume: float32(masterVolume)}
}

// Process fills dst (stereo float32, two entries per frame) one frame at a
// time from the Graph.
func (s *StreamSource) Process(dst []float32) {
	frames := len(dst) / 2
	for i := 0; i < frames; i++ {
		l, r := s.g.NextFrame()
		dst[2*i] = float32(l) * s.masterVolume
		dst[2*i+1] = float32(r) * s.masterVolume
	}
}
