// Package dmx builds universe frames and streams them as Art-Net and sACN.
package dmx

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bbernstein/lacylights-console/pkg/artnet"
	"github.com/bbernstein/lacylights-console/pkg/sacn"
)

const (
	// UniverseSize is the number of channels per DMX universe.
	UniverseSize = 512
	// MaxRateHz is the highest output frame rate.
	MaxRateHz = 44
	// MinRateHz is the lowest output frame rate.
	MinRateHz = 1

	sendTimeout = 100 * time.Millisecond
)

// Frame maps 0-based console universes to 512-byte buffers.
type Frame map[int][]byte

// FrameSource produces the frame to transmit. It is called once per tick.
type FrameSource interface {
	BuildFrame() Frame
}

// FrameSourceFunc adapts a function to FrameSource.
type FrameSourceFunc func() Frame

// BuildFrame calls f.
func (f FrameSourceFunc) BuildFrame() Frame { return f() }

// Recorder receives output counters. A nil Recorder records nothing.
type Recorder interface {
	Count(name string, value int64, tags ...string)
	Gauge(name string, value float64, tags ...string)
}

// Config holds DMX service configuration.
type Config struct {
	RateHz   int
	ArtNet   ArtNetConfig
	SACN     SACNConfig
	Recorder Recorder
}

// DefaultConfig returns 44Hz Art-Net broadcast output.
func DefaultConfig() Config {
	return Config{
		RateHz: MaxRateHz,
		ArtNet: DefaultArtNetConfig(),
		SACN:   DefaultSACNConfig(),
	}
}

// ClampRate keeps a frame rate inside [MinRateHz, MaxRateHz].
func ClampRate(hz int) int {
	if hz < MinRateHz {
		return MinRateHz
	}
	if hz > MaxRateHz {
		return MaxRateHz
	}
	return hz
}

// Stats are cumulative output counters.
type Stats struct {
	Frames     uint64 `json:"frames"`
	Packets    uint64 `json:"packets"`
	Dropped    uint64 `json:"dropped"`
	SendErrors uint64 `json:"sendErrors"`
}

type packet struct {
	protocol string
	ip       string
	port     int
	data     []byte
}

// worker owns one destination. Its queue holds at most one pending frame.
type worker struct {
	key   string
	queue chan []packet
}

// Service periodically builds frames and hands encoded packets to a Sender.
// Sends never block the frame loop: a destination that is still busy with
// the previous frame drops the new one.
type Service struct {
	mu sync.RWMutex

	source   FrameSource
	sender   Sender
	recorder Recorder

	artnet ArtNetConfig
	sacn   SACNConfig
	rateHz int

	artnetSeq atomic.Uint32
	sacnSeq   atomic.Uint32

	lastFrame Frame
	workers   map[string]*worker

	frames     atomic.Uint64
	packets    atomic.Uint64
	dropped    atomic.Uint64
	sendErrors atomic.Uint64

	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	resetTickerChan chan struct{}
	running         bool
}

// NewService creates a DMX output service.
func NewService(cfg Config, source FrameSource, sender Sender) *Service {
	if cfg.RateHz == 0 {
		cfg.RateHz = MaxRateHz
	}
	return &Service{
		source:          source,
		sender:          sender,
		recorder:        cfg.Recorder,
		artnet:          cfg.ArtNet.Normalize(),
		sacn:            cfg.SACN.Normalize(),
		rateHz:          ClampRate(cfg.RateHz),
		lastFrame:       Frame{},
		workers:         make(map[string]*worker),
		resetTickerChan: make(chan struct{}, 1),
	}
}

// Start begins periodic transmission.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if s.source == nil || s.sender == nil {
		return fmt.Errorf("dmx service needs a frame source and a sender")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.running = true

	log.Info().Int("rate_hz", s.rateHz).Msg("🎭 DMX Service started")
	if s.artnet.Enabled {
		log.Info().Str("mode", s.artnet.Mode).Str("address", s.artnet.IPAddress).Int("port", s.artnet.Port).
			Int("universe_start", s.artnet.UniverseStart).Msg("📡 Art-Net output enabled")
	}
	if s.sacn.Enabled {
		log.Info().Str("mode", s.sacn.Mode).Int("universe_start", s.sacn.UniverseStart).
			Int("priority", s.sacn.Priority).Msg("📡 sACN output enabled")
	}

	s.wg.Add(1)
	go s.transmitLoop(s.ctx)
	return nil
}

func (s *Service) transmitLoop(ctx context.Context) {
	defer s.wg.Done()

	rate := s.Rate()
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.resetTickerChan:
			if current := s.Rate(); current != rate {
				rate = current
				ticker.Reset(time.Second / time.Duration(rate))
				log.Debug().Int("rate_hz", rate).Msg("📡 DMX ticker reset")
			}
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick builds one frame and queues its packets. It is called by the
// transmit loop and may be called directly.
func (s *Service) Tick() {
	frame := s.source.BuildFrame()
	s.frames.Add(1)

	s.mu.Lock()
	s.lastFrame = copyFrame(frame)
	s.mu.Unlock()

	byDest := s.encode(frame, false)
	for key, packets := range byDest {
		s.enqueue(key, packets)
	}
	s.count("dmx.frames", 1)
}

// encode builds packets for every enabled protocol, grouped by destination.
// Each protocol's sequence advances once per frame.
func (s *Service) encode(frame Frame, terminated bool) map[string][]packet {
	s.mu.RLock()
	an, sc := s.artnet, s.sacn
	s.mu.RUnlock()

	universes := make([]int, 0, len(frame))
	for u := range frame {
		universes = append(universes, u)
	}
	sort.Ints(universes)

	out := make(map[string][]packet)
	add := func(p packet) {
		key := fmt.Sprintf("%s:%d", p.ip, p.port)
		out[key] = append(out[key], p)
	}

	if an.Enabled && an.IPAddress != "" {
		seq := byte(s.artnetSeq.Add(1))
		for _, u := range universes {
			if !an.Covers(u) {
				continue
			}
			data := artnet.BuildDMXPacket(an.UniverseStart+u, frame[u], seq)
			add(packet{protocol: "artnet", ip: an.IPAddress, port: an.Port, data: data})
		}
	}

	if sc.Enabled {
		seq := byte(s.sacnSeq.Add(1))
		for _, u := range universes {
			if !sc.Covers(u) {
				continue
			}
			universe := uint16(sc.UniverseStart + u)
			data := sacn.BuildPacket(universe, frame[u], sacn.Options{
				SourceName: sc.SourceName,
				Priority:   sc.Priority,
				Sequence:   seq,
				Terminated: terminated,
			})
			add(packet{protocol: "sacn", ip: sc.Destination(universe), port: sc.Port, data: data})
		}
	}
	return out
}

func (s *Service) enqueue(key string, packets []packet) {
	s.mu.Lock()
	w, ok := s.workers[key]
	if !ok && s.running {
		w = &worker{key: key, queue: make(chan []packet, 1)}
		s.workers[key] = w
		s.wg.Add(1)
		go s.runWorker(s.ctx, w)
	}
	s.mu.Unlock()

	if w == nil {
		return
	}
	select {
	case w.queue <- packets:
	default:
		s.dropped.Add(1)
		s.count("dmx.frames_dropped", 1, "destination:"+key)
	}
}

func (s *Service) runWorker(ctx context.Context, w *worker) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case packets := <-w.queue:
			s.send(ctx, packets)
		}
	}
}

func (s *Service) send(ctx context.Context, packets []packet) {
	for _, p := range packets {
		sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		err := s.sender.Send(sendCtx, p.ip, p.port, p.data)
		cancel()
		if err != nil {
			if s.sendErrors.Add(1)%100 == 1 {
				log.Warn().Err(err).Str("protocol", p.protocol).Str("ip", p.ip).Msg("DMX send failed")
			}
			s.count("dmx.send_errors", 1, "protocol:"+p.protocol)
			continue
		}
		s.packets.Add(1)
	}
}

func (s *Service) count(name string, value int64, tags ...string) {
	if s.recorder != nil {
		s.recorder.Count(name, value, tags...)
	}
}

// Stop stops transmission and sends a final blackout frame synchronously,
// flagged as terminated for sACN receivers.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	blackout := Frame{}
	for u := range s.lastFrame {
		blackout[u] = make([]byte, UniverseSize)
	}
	s.lastFrame = blackout
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.workers = make(map[string]*worker)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, packets := range s.encode(blackout, true) {
		s.send(ctx, packets)
	}

	log.Info().Msg("🎭 DMX Service stopped")
}

// SetRate changes the frame rate, clamped to [1,44] Hz.
func (s *Service) SetRate(hz int) int {
	s.mu.Lock()
	s.rateHz = ClampRate(hz)
	rate := s.rateHz
	s.mu.Unlock()

	select {
	case s.resetTickerChan <- struct{}{}:
	default:
	}
	return rate
}

// Rate returns the frame rate in Hz.
func (s *Service) Rate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rateHz
}

// ArtNetConfig returns the Art-Net configuration.
func (s *Service) ArtNetConfig() ArtNetConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artnet
}

// SACNConfig returns the sACN configuration.
func (s *Service) SACNConfig() SACNConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sacn
}

// UpdateArtNet replaces the Art-Net configuration; the next frame uses it.
func (s *Service) UpdateArtNet(cfg ArtNetConfig) ArtNetConfig {
	cfg = cfg.Normalize()
	s.mu.Lock()
	s.artnet = cfg
	s.mu.Unlock()
	log.Info().Bool("enabled", cfg.Enabled).Str("mode", cfg.Mode).Str("address", cfg.IPAddress).Msg("🔄 Art-Net configuration updated")
	return cfg
}

// UpdateSACN replaces the sACN configuration; the next frame uses it.
func (s *Service) UpdateSACN(cfg SACNConfig) SACNConfig {
	cfg = cfg.Normalize()
	s.mu.Lock()
	s.sacn = cfg
	s.mu.Unlock()
	log.Info().Bool("enabled", cfg.Enabled).Str("mode", cfg.Mode).Int("universe_start", cfg.UniverseStart).Msg("🔄 sACN configuration updated")
	return cfg
}

// Universe returns a copy of the last transmitted buffer for a console universe.
func (s *Service) Universe(universe int) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.lastFrame[universe]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Stats returns cumulative counters.
func (s *Service) Stats() Stats {
	return Stats{
		Frames:     s.frames.Load(),
		Packets:    s.packets.Load(),
		Dropped:    s.dropped.Load(),
		SendErrors: s.sendErrors.Load(),
	}
}

// IsRunning reports whether the transmit loop is active.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

func copyFrame(f Frame) Frame {
	out := make(Frame, len(f))
	for u, data := range f {
		buf := make([]byte, UniverseSize)
		copy(buf, data)
		out[u] = buf
	}
	return out
}
