// Package session owns the live interview lifecycle: it drives the
// capture→send path, dispatches inbound channel events to playback and
// turn assembly, enforces the session duration limit, and produces the final
// session record exactly once.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nareswara/intervox/pkg/capture"
	"github.com/nareswara/intervox/pkg/channel"
	"github.com/nareswara/intervox/pkg/errorsx"
	"github.com/nareswara/intervox/pkg/frames"
	"github.com/nareswara/intervox/pkg/logging"
	"github.com/nareswara/intervox/pkg/metrics"
	"github.com/nareswara/intervox/pkg/playback"
	"github.com/nareswara/intervox/pkg/presence"
	"github.com/nareswara/intervox/pkg/profile"
	"github.com/nareswara/intervox/pkg/recording"
	"github.com/nareswara/intervox/pkg/stt"
	"github.com/nareswara/intervox/pkg/turns"
)

type Config struct {
	SessionID     string
	Model         string
	Voice         string
	DurationLimit time.Duration
	SourceRate    int
	SinkRate      int
	TickInterval  time.Duration

	// ForwardInterim lets non-final fallback STT results reach the
	// candidate accumulator.
	ForwardInterim bool
	// InputTranscription and OutputTranscription request both-direction
	// transcription from the remote service.
	InputTranscription  bool
	OutputTranscription bool

	Profile profile.Candidate
	Prompt  profile.PromptConfig
}

func (c Config) withDefaults() Config {
	if c.DurationLimit <= 0 {
		c.DurationLimit = DefaultDurationLimit
	}
	if c.SourceRate <= 0 {
		c.SourceRate = capture.DefaultSourceRate
	}
	if c.SinkRate <= 0 {
		c.SinkRate = playback.DefaultSinkRate
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	return c
}

// Options carries the controller's collaborators. Channel, Source and
// Scheduler are required; the rest are optional.
type Options struct {
	Channel     channel.Channel
	Source      capture.Source
	Scheduler   *playback.Scheduler
	Recorder    recording.Recorder
	FallbackSTT stt.StreamingSTT
	Presence    presence.Detector
	Images      <-chan frames.ImageFrame
	Observer    metrics.Observer
}

// Controller is the session state machine. A controller runs one session
// and is not reused after it closes.
type Controller struct {
	cfg    Config
	logger *slog.Logger

	ch        channel.Channel
	source    capture.Source
	encoder   *capture.Encoder
	scheduler *playback.Scheduler
	assembler *turns.Assembler
	recorder  recording.Recorder
	fallback  stt.StreamingSTT
	detector  presence.Detector
	images    <-chan frames.ImageFrame
	observer  metrics.Observer

	phases *phaseMachine
	clock  Clock

	ctx    context.Context
	cancel context.CancelFunc

	actions chan string
	done    chan struct{}

	finalizeOnce  sync.Once
	record        Record
	sentFrames    atomic.Int64
	droppedFrames atomic.Int64
	interruptions atomic.Int64
	present       atomic.Bool
}

func NewController(cfg Config, opts Options) (*Controller, error) {
	cfg = cfg.withDefaults()
	if opts.Channel == nil {
		return nil, errors.New("channel is required")
	}
	if opts.Source == nil {
		return nil, errors.New("capture source is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("playback scheduler is required")
	}
	c := &Controller{
		cfg:       cfg,
		logger:    logging.NewSessionLogger(logging.NewComponentLogger(slog.Default(), "session"), cfg.SessionID),
		ch:        opts.Channel,
		source:    opts.Source,
		encoder:   capture.NewEncoder(cfg.SessionID, cfg.SourceRate),
		scheduler: opts.Scheduler,
		assembler: turns.NewAssembler(),
		recorder:  opts.Recorder,
		fallback:  opts.FallbackSTT,
		detector:  opts.Presence,
		images:    opts.Images,
		observer:  opts.Observer,
		phases:    newPhaseMachine(),
		actions:   make(chan string, 1),
		done:      make(chan struct{}),
	}
	c.present.Store(true)
	c.phases.AddListener(phaseForwarder{c})
	return c, nil
}

// AddPhaseListener registers a listener for phase change events.
func (c *Controller) AddPhaseListener(l PhaseListener) {
	c.phases.AddListener(l)
}

// Start acquires capture media, opens the remote channel with the
// configured prompt, and begins the event loop. A device or channel
// failure leaves the session un-started; there is no automatic retry.
func (c *Controller) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	if err := c.source.Start(c.ctx); err != nil {
		c.cancel()
		return errorsx.Wrap(err, errorsx.ReasonCaptureDevice)
	}
	if err := c.phases.Transition(PhaseConnecting, "start requested"); err != nil {
		_ = c.source.Stop()
		c.cancel()
		return err
	}

	if c.recorder != nil {
		if err := c.recorder.Start(); err != nil {
			// Recording is a parallel pipeline; its failure never blocks
			// the session.
			c.logger.Warn("recording_start_failed", "error", err.Error())
			c.recorder = nil
		}
	}

	setup := channel.Setup{
		Model:               c.cfg.Model,
		Voice:               c.cfg.Voice,
		SystemInstruction:   profile.BuildSystemInstruction(c.cfg.Profile, c.cfg.Prompt),
		InputTranscription:  c.cfg.InputTranscription,
		OutputTranscription: c.cfg.OutputTranscription,
	}
	if err := c.ch.Open(c.ctx, setup); err != nil {
		_ = c.source.Stop()
		_ = c.phases.Transition(PhaseIdle, "channel open failed")
		c.cancel()
		return errorsx.Wrap(err, errorsx.ReasonChannelOpen)
	}

	if c.fallback != nil {
		if err := c.fallback.Start(c.ctx); err != nil {
			c.logger.Warn("fallback_stt_start_failed", "error", err.Error())
			c.fallback = nil
		}
	}

	c.discardPreOpenFrames()
	c.clock = Clock{ConnectedAt: time.Now(), Limit: c.cfg.DurationLimit}
	if err := c.phases.Transition(PhaseOpen, "channel opened"); err != nil {
		return err
	}
	c.logger.Info("session_open",
		"model", c.cfg.Model,
		"duration_limit", c.cfg.DurationLimit.String())

	go c.run()
	return nil
}

// Stop requests an orderly close. It is a no-op unless the session is
// open.
func (c *Controller) Stop() error {
	if c.phases.Phase() != PhaseOpen {
		return errors.New("session not open")
	}
	select {
	case c.actions <- "stop requested":
	default:
	}
	return nil
}

// Done is closed once the session record has been produced.
func (c *Controller) Done() <-chan struct{} { return c.done }

// Record returns the final artifact once the session has closed.
func (c *Controller) Record() (Record, bool) {
	select {
	case <-c.done:
		return c.record, true
	default:
		return Record{}, false
	}
}

// Phase returns the current session phase.
func (c *Controller) Phase() Phase { return c.phases.Phase() }

// AgentSpeaking reports whether response audio is currently scheduled.
func (c *Controller) AgentSpeaking() bool { return c.scheduler.Speaking() }

// SentFrames counts capture frames forwarded to the channel.
func (c *Controller) SentFrames() int64 { return c.sentFrames.Load() }

// DroppedFrames counts capture frames discarded outside PhaseOpen.
func (c *Controller) DroppedFrames() int64 { return c.droppedFrames.Load() }

// Present reports the advisory presence signal.
func (c *Controller) Present() bool { return c.present.Load() }

// Transcript returns the committed turns so far.
func (c *Controller) Transcript() []turns.Record { return c.assembler.Transcript() }

// run is the single event loop: capture frames, channel events, fallback
// transcription, presence frames, and clock ticks are processed strictly
// in arrival order.
func (c *Controller) run() {
	tick := time.NewTicker(c.cfg.TickInterval)
	defer tick.Stop()

	frameCh := c.source.Frames()
	eventCh := c.ch.Events()
	var sttCh <-chan frames.Frame
	if c.fallback != nil {
		sttCh = c.fallback.Results()
	}
	imageCh := c.images

	for {
		select {
		case <-c.ctx.Done():
			c.shutdown("context canceled")
			return
		case reason := <-c.actions:
			c.shutdown(reason)
			return
		case samples, ok := <-frameCh:
			if !ok {
				frameCh = nil
				continue
			}
			c.handleCapture(samples)
		case evt, ok := <-eventCh:
			if !ok {
				eventCh = nil
				if c.phases.Phase() == PhaseOpen {
					c.shutdown("channel closed")
					return
				}
				continue
			}
			if c.handleEvent(evt) {
				c.shutdown("channel closed")
				return
			}
		case f, ok := <-sttCh:
			if !ok {
				sttCh = nil
				continue
			}
			c.handleFallbackText(f)
		case img, ok := <-imageCh:
			if !ok {
				imageCh = nil
				continue
			}
			c.handlePresence(img)
		case now := <-tick.C:
			if c.phases.Phase() == PhaseOpen && c.clock.Expired(now) {
				c.shutdown("deadline reached")
				return
			}
		}
	}
}

// discardPreOpenFrames empties the frame backlog the source accumulated
// while the channel was connecting. Those frames predate PhaseOpen and
// must never reach the send path or the sent-frame count.
func (c *Controller) discardPreOpenFrames() {
	for {
		select {
		case _, ok := <-c.source.Frames():
			if !ok {
				return
			}
			c.droppedFrames.Add(1)
		default:
			return
		}
	}
}

// handleCapture encodes and forwards one capture frame. Frames produced
// while the session is not open are dropped silently.
func (c *Controller) handleCapture(samples []float32) {
	if c.phases.Phase() != PhaseOpen {
		c.droppedFrames.Add(1)
		return
	}
	af := c.encoder.Encode(samples)
	if c.recorder != nil {
		_ = c.recorder.Write(af.RawPayload())
	}
	if c.fallback != nil {
		if err := c.fallback.SendAudio(af); err != nil {
			c.logger.Debug("fallback_stt_send_failed", "error", err.Error())
		}
	}
	if err := c.ch.SendAudio(c.encoder.Wire(af)); err != nil {
		// Per-frame failure; the stream continues.
		c.logger.Warn("frame_send_failed", "error", err.Error())
	} else {
		c.sentFrames.Add(1)
	}
	frames.ReleaseAudioFrame(af)
}

// handleEvent dispatches one inbound message by kind. It returns true
// when the channel reported closure.
func (c *Controller) handleEvent(evt channel.Event) bool {
	switch evt.Kind {
	case channel.EventAudio:
		chunk := frames.NewPlaybackFrame(c.cfg.SessionID, time.Now().UnixNano(), evt.PCM, c.cfg.SinkRate, 1, nil)
		src, err := c.scheduler.Schedule(chunk)
		if err != nil {
			c.logger.Warn("playback_schedule_failed", "error", err.Error())
			break
		}
		c.observe("playback_scheduled", map[string]any{
			"start_offset_s": src.Start.Seconds(),
			"duration_s":     chunk.Duration().Seconds(),
		})
	case channel.EventInputTranscription:
		c.assembler.Append(frames.SpeakerCandidate, evt.Text)
	case channel.EventOutputTranscription:
		c.assembler.Append(frames.SpeakerAI, evt.Text)
	case channel.EventTurnComplete:
		committed := c.assembler.Commit(time.Now())
		for _, r := range committed {
			c.logger.Info("turn_committed", "speaker", string(r.Speaker), "chars", len(r.Text))
			c.observe("turn_committed", map[string]any{
				"speaker": string(r.Speaker),
				"text":    r.Text,
			})
		}
	case channel.EventInterrupted:
		c.scheduler.Flush()
		c.interruptions.Add(1)
		c.observe("barge_in", nil)
	case channel.EventError:
		if evt.Err != nil {
			c.logger.Warn("channel_error", "error", evt.Err.Error())
		}
	case channel.EventClosed:
		return true
	}
	return false
}

func (c *Controller) handleFallbackText(f frames.Frame) {
	tf, ok := f.(frames.TextFrame)
	if !ok {
		return
	}
	if tf.Meta()[frames.MetaIsFinal] != "true" && !c.cfg.ForwardInterim {
		return
	}
	c.assembler.Append(frames.SpeakerCandidate, tf.Text())
}

func (c *Controller) handlePresence(img frames.ImageFrame) {
	if c.detector == nil {
		return
	}
	present := c.detector.DetectPresence(img)
	if c.present.Swap(present) != present {
		c.logger.Debug("presence_changed", "present", present)
		c.observe("presence_changed", map[string]any{"present": present})
	}
	frames.ReleaseImageFrame(img)
}

// shutdown performs the Open→Closing→Closed teardown: capture stops,
// playback flushes, the channel close is best-effort, the recorder is
// finalized, and the session record is produced exactly once.
func (c *Controller) shutdown(reason string) {
	if err := c.phases.Transition(PhaseClosing, reason); err != nil {
		return
	}
	c.logger.Info("session_closing", "reason", reason)

	_ = c.source.Stop()
	if c.fallback != nil {
		_ = c.fallback.Close()
	}
	c.scheduler.Flush()
	if err := c.ch.Close(); err != nil {
		c.logger.Warn("channel_close_failed", "error", err.Error())
	}

	// A turn cut off by the deadline or an explicit stop still reaches
	// the transcript.
	c.assembler.Commit(time.Now())

	var ref *recording.Ref
	if c.recorder != nil {
		r, err := c.recorder.Finalize()
		if err != nil {
			c.logger.Warn("recording_finalize_failed", "error", err.Error())
		} else if r.ID != "" {
			ref = &r
		}
	}

	_ = c.phases.Transition(PhaseClosed, "finalized")

	c.finalizeOnce.Do(func() {
		c.record = Record{
			SessionID:     c.cfg.SessionID,
			StartTime:     c.clock.ConnectedAt.UnixMilli(),
			DurationLimit: int(c.clock.Limit / time.Second),
			Transcript:    c.assembler.Transcript(),
			RecordingRef:  ref,
			Interruptions: int(c.interruptions.Load()),
		}
		close(c.done)
	})
	c.observe("session_closed", map[string]any{"reason": reason})
	c.cancel()
}

func (c *Controller) observe(name string, fields map[string]any) {
	if c.observer == nil {
		return
	}
	c.observer.RecordEvent(metrics.MetricsEvent{
		Name:   name,
		Time:   time.Now(),
		Tags:   map[string]string{"session_id": c.cfg.SessionID},
		Fields: fields,
	})
}

// phaseForwarder mirrors phase changes into the observer stream.
type phaseForwarder struct {
	c *Controller
}

func (p phaseForwarder) OnPhaseChange(event PhaseChange) {
	p.c.observe("phase_change", map[string]any{
		"from":   event.FromPhase.String(),
		"to":     event.ToPhase.String(),
		"reason": event.Reason,
	})
}
