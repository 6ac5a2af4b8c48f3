package session

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/voice-turn-lab/internal/audio"
	"github.com/voice-turn-lab/internal/logging"
)

// FallbackReply is appended as the assistant turn when the chat stream
// fails, so a spoken question never goes unanswered in the transcript.
const FallbackReply = "Sorry, I encountered an error while processing your message."

// State enumerates the orchestrator phases. Only the session goroutine
// mutates it; everyone else observes.
type State int32

const (
	StateIdle State = iota
	StateListening
	StateSilencePending
	StateSubmitting
	StateAwaitingResponse
	StateSpeaking
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateSilencePending:
		return "silence-pending"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingResponse:
		return "awaiting-response"
	case StateSpeaking:
		return "speaking"
	}
	return "unknown"
}

// Transcriber converts a finalized WAV segment into text.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte, correlationID string) (string, error)
}

// Completer streams a chat completion for a transcript and returns the
// assembled reply text.
type Completer interface {
	Complete(ctx context.Context, message, userID string, onDelta func(string)) (string, error)
}

// Synthesizer converts reply text into playable WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Player plays a WAV reply to completion.
type Player interface {
	Play(ctx context.Context, wav []byte) error
}

type eventKind int

const (
	evAbandoned eventKind = iota // turn discarded: failed or empty transcript
	evUserTurn                   // transcript accepted
	evSpeaking                   // reply playback began
	evAssistantTurn              // reply final (assembled text or fallback)
)

// event carries a worker result back onto the session goroutine. All state
// transitions and history mutations happen there; workers never touch
// shared state directly.
type event struct {
	kind          eventKind
	correlationID string
	text          string
	fallback      bool
}

// Session is the turn orchestrator: it drives capture and silence analysis
// on a fixed tick, finalizes qualified utterance segments, and runs each
// turn through transcription, chat completion, and spoken playback.
type Session struct {
	cfg     Config
	capture *audio.Capture
	tracker *audio.SilenceTracker
	history *History
	stt     Transcriber
	llm     Completer
	tts     Synthesizer
	player  Player

	state  atomic.Int32
	events chan event

	// turnInFlight guards against a second submission while a turn is still
	// being processed; capture keeps running regardless. Loop goroutine only.
	turnInFlight bool

	ctx      context.Context
	cancel   context.CancelFunc
	workers  sync.WaitGroup
	done     chan struct{}
	stopOnce sync.Once
}

func New(cfg Config, src audio.Source, stt Transcriber, llm Completer, tts Synthesizer, player Player) *Session {
	cfg = cfg.sanitized()
	return &Session{
		cfg:     cfg,
		capture: audio.NewCapture(src),
		tracker: audio.NewSilenceTracker(cfg.SilenceThreshold, cfg.SilenceHold, cfg.TickInterval),
		history: NewHistory(cfg.MaxTurns),
		stt:     stt,
		llm:     llm,
		tts:     tts,
		player:  player,
		events:  make(chan event, 8),
		done:    make(chan struct{}),
	}
}

// History exposes the conversation log so the presentation layer can attach
// its OnUpdate hook before Start.
func (s *Session) History() *History { return s.history }

// State returns the current orchestrator phase.
func (s *Session) State() State { return State(s.state.Load()) }

func (s *Session) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		logging.Debugw("session: state transition", "from", prev.String(), "to", next.String())
	}
}

// Start opens the capture source, arms a fresh segment, and launches the
// orchestrator loop. A source that cannot be opened fails with
// audio.ErrDeviceUnavailable and leaves the session Idle.
func (s *Session) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)
	if err := s.capture.Open(s.ctx); err != nil {
		s.cancel()
		close(s.done)
		return err
	}
	s.capture.Begin()
	s.tracker.Reset()
	s.setState(StateListening)
	go s.run()
	logging.Infow("session: listening", "sample_rate", s.capture.SampleRate(), "user_id", s.cfg.UserID)
	return nil
}

// Stop requests session shutdown: the tick loop exits, capture resources
// are released, and a response resolving afterwards can no longer touch
// history or playback. Safe to call multiple times.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// Done is closed once the orchestrator loop has exited and resources are
// released, whether by Stop or by device loss.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) run() {
	defer s.teardown()
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()
	armAt := time.Now().Add(s.cfg.WarmupDelay)
	for {
		select {
		case <-s.ctx.Done():
			return
		case ch, ok := <-s.capture.Chunks():
			if !ok {
				logging.Errorw("session: capture ended unexpectedly; stopping")
				return
			}
			s.capture.Append(ch)
		case <-ticker.C:
			s.tick(armAt)
		case ev := <-s.events:
			s.apply(ev)
		}
	}
}

func (s *Session) teardown() {
	s.Stop()
	s.workers.Wait()
	if err := s.capture.Close(); err != nil {
		logging.Warnw("session: capture close", "err", err)
	}
	s.setState(StateIdle)
	close(s.done)
	logging.Infow("session: stopped")
}

// tick runs one analysis step: compute loudness over the recent window,
// advance the silence tracker, and decide whether the active segment is a
// finished utterance.
func (s *Session) tick(armAt time.Time) {
	if time.Now().Before(armAt) {
		return
	}
	loudness := audio.RMS(s.capture.Window())
	fired := s.tracker.Tick(loudness)

	if s.State() == StateSilencePending && loudness >= s.cfg.SilenceThreshold {
		s.setState(StateListening)
	}
	if !fired {
		return
	}
	if s.turnInFlight {
		logging.Debugw("session: silence during active turn; capture continues")
		return
	}
	seg := s.capture.Segment()
	if seg == nil {
		return
	}
	if seg.Duration() < s.cfg.MinRecording || seg.Size() < s.cfg.MinSegmentBytes {
		logging.Debugw("session: segment below minimums; treating silence as noise",
			logging.SegmentFields(seg.ID, seg.Size(), int(seg.Duration().Milliseconds()))...)
		s.setState(StateSilencePending)
		return
	}
	s.finalizeAndSubmit()
}

// finalizeAndSubmit seals the active segment, immediately re-arms capture
// for the next utterance, and hands the blob to a worker. The user may keep
// speaking while this utterance is transcribed and answered.
func (s *Session) finalizeAndSubmit() {
	seg, wav := s.capture.Finalize()
	logging.Infow("session: segment finalized",
		logging.SegmentFields(seg.ID, seg.Size(), int(seg.Duration().Milliseconds()))...)
	s.capture.Begin()
	s.tracker.Reset()
	s.turnInFlight = true
	s.setState(StateSubmitting)

	s.workers.Add(1)
	go func() {
		defer s.workers.Done()
		s.processTurn(wav, seg.ID)
	}()
}

// processTurn runs one turn end to end on a worker goroutine. Results are
// marshaled back through the event channel; after Stop they are dropped on
// the floor.
func (s *Session) processTurn(wav []byte, cid string) {
	text, err := s.stt.Transcribe(s.ctx, wav, cid)
	if s.ctx.Err() != nil {
		return
	}
	if err != nil {
		logging.Warnw("turn: transcription failed; discarding", "err", err, "correlation_id", cid)
		s.post(event{kind: evAbandoned, correlationID: cid})
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		logging.Debugw("turn: empty transcript; discarding", "correlation_id", cid)
		s.post(event{kind: evAbandoned, correlationID: cid})
		return
	}
	s.post(event{kind: evUserTurn, text: text, correlationID: cid})

	reply, err := s.llm.Complete(s.ctx, text, s.cfg.UserID, nil)
	if s.ctx.Err() != nil {
		// Stopped while awaiting the response; a late reply must not touch
		// history or trigger playback.
		return
	}
	if err != nil {
		logging.Warnw("turn: chat stream failed", "err", err, "correlation_id", cid)
		s.post(event{kind: evAssistantTurn, text: FallbackReply, fallback: true, correlationID: cid})
		return
	}

	// The reply is spoken before the turn is appended so the transcript
	// never runs ahead of what the user has heard.
	if replyWAV, serr := s.tts.Synthesize(s.ctx, reply); s.ctx.Err() != nil {
		return
	} else if serr != nil {
		logging.Warnw("turn: synthesis failed; skipping playback", "err", serr, "correlation_id", cid)
	} else {
		s.post(event{kind: evSpeaking, correlationID: cid})
		if perr := s.player.Play(s.ctx, replyWAV); perr != nil {
			logging.Warnw("turn: playback failed", "err", perr, "correlation_id", cid)
		}
	}
	s.post(event{kind: evAssistantTurn, text: reply, correlationID: cid})
}

func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// apply handles a worker event on the session goroutine.
func (s *Session) apply(ev event) {
	switch ev.kind {
	case evAbandoned:
		s.turnInFlight = false
		s.setState(StateListening)
	case evUserTurn:
		s.history.Append(Turn{Role: RoleUser, Content: ev.text})
		s.setState(StateAwaitingResponse)
	case evSpeaking:
		s.setState(StateSpeaking)
	case evAssistantTurn:
		s.history.Append(Turn{Role: RoleAssistant, Content: ev.text})
		s.turnInFlight = false
		s.setState(StateListening)
		if ev.fallback {
			logging.Infow("turn: fallback reply appended", "correlation_id", ev.correlationID)
		} else {
			logging.Infow("turn: completed", "correlation_id", ev.correlationID, "reply_len", len(ev.text))
		}
	}
}
