package assistant

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	"orin/internal/ipc"
	"orin/internal/llm"
	"orin/internal/nlu"
	"orin/internal/tts"
	"orin/pkg/audioconv"
	"orin/pkg/keyword"
	"orin/pkg/stt"
)

// ErrExit is returned by Run when the user asked the assistant to shut down.
var ErrExit = errors.New("assistant exited")

type State int32

const (
	Sleeping State = iota
	Listening
	Responding
	Exited
)

func (s State) String() string {
	switch s {
	case Sleeping:
		return "sleeping"
	case Listening:
		return "listening"
	case Responding:
		return "responding"
	case Exited:
		return "exited"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

type Recorder interface {
	Record(ctx context.Context, d time.Duration) ([]float32, error)
}

// AutoRecorder captures one utterance, stopping on silence. It returns
// audioconv.ErrNoAudio when nobody spoke.
type AutoRecorder interface {
	RecordAuto(ctx context.Context) ([]float32, error)
}

type Beeper interface {
	Start(ctx context.Context)
	End(ctx context.Context)
}

type Retriever interface {
	Context(ctx context.Context, query string) (string, error)
}

type ScriptRunner interface {
	Run(ctx context.Context, res nlu.Result) error
}

type Config struct {
	Hotword           string
	HotwordWindow     time.Duration
	CommandWindow     time.Duration
	Language          string
	Threads           int
	TranscribeTimeout time.Duration
	// RetryDelay is the pause after a failed capture or transcription.
	RetryDelay time.Duration
	System     string

	Greeting     string
	SleepNotice  string
	ExitNotice   string
	ScriptNotice string
	ScriptError  string
}

func DefaultConfig() Config {
	return Config{
		Hotword:           "hello",
		HotwordWindow:     3 * time.Second,
		CommandWindow:     5 * time.Second,
		Language:          "en",
		TranscribeTimeout: 60 * time.Second,
		RetryDelay:        time.Second,
		System:            llm.DefaultSystemPrompt,
		Greeting:          "I'm listening. How can I assist?",
		SleepNotice:       "Going to sleep mode.",
		ExitNotice:        "Exiting assistant. Goodbye!",
		ScriptNotice:      "Running the script now.",
		ScriptError:       "There was an error running the script.",
	}
}

type Deps struct {
	Recorder Recorder
	// AutoRecorder, when set, captures commands in triggered sessions.
	AutoRecorder AutoRecorder
	Transcriber  stt.Transcriber
	Speaker      tts.Speaker
	Beeper       Beeper
	Completer    llm.Completer
	Retriever    Retriever
	Router       *nlu.Router
	Scripts      ScriptRunner
}

// Assistant sleeps until it hears the hotword (or is triggered), then
// serves commands until the user goes quiet, asks it to exit or it is told
// to sleep.
type Assistant struct {
	cfg Config
	Deps

	hotword keyword.Matcher
	state   atomic.Int32

	trigger  chan struct{}
	sleepReq atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
}

func New(cfg Config, deps Deps) *Assistant {
	return &Assistant{
		cfg:     cfg,
		Deps:    deps,
		hotword: keyword.New(cfg.Hotword),
		trigger: make(chan struct{}, 1),
		quit:    make(chan struct{}),
	}
}

func (a *Assistant) State() State { return State(a.state.Load()) }

func (a *Assistant) setState(s State) {
	if old := State(a.state.Swap(int32(s))); old != s {
		log.Debug("State", "from", old, "to", s)
	}
}

// Trigger starts a session at the next opportunity without the hotword.
// It reports false when a trigger is already pending.
func (a *Assistant) Trigger() bool {
	select {
	case a.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Sleep ends the current session after the command being handled.
func (a *Assistant) Sleep() { a.sleepReq.Store(true) }

// Exit stops Run after the current step.
func (a *Assistant) Exit() { a.quitOnce.Do(func() { close(a.quit) }) }

// Control answers daemon control messages.
func (a *Assistant) Control(msg ipc.ControlMessage) ipc.Reply {
	switch msg.Cmd {
	case ipc.CmdTrigger:
		if !a.Trigger() {
			return ipc.Reply{OK: true, Message: "trigger already pending"}
		}
		return ipc.Reply{OK: true, Message: "triggered"}
	case ipc.CmdSleep:
		a.Sleep()
		return ipc.Reply{OK: true, Message: "going to sleep"}
	case ipc.CmdExit:
		a.Exit()
		return ipc.Reply{OK: true, Message: "exiting"}
	case ipc.CmdStatus:
		return ipc.Reply{OK: true, Message: a.State().String()}
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
		return ipc.Reply{Message: fmt.Sprintf("unknown command %q", msg.Cmd)}
	}
}

// Run listens for the hotword until ctx is done or the user exits.
func (a *Assistant) Run(ctx context.Context) error {
	log.Info("Listening for hotword", "hotword", a.cfg.Hotword)

	for {
		a.setState(Sleeping)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.quit:
			a.setState(Exited)
			return ErrExit
		case <-a.trigger:
			log.Info("Triggered")
			if err := a.session(ctx, true); err != nil {
				return a.finish(err)
			}
			continue
		default:
		}

		heard, err := a.listenHotword(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Hotword window failed", "err", err)
			a.pause(ctx)
			continue
		}
		if !heard {
			continue
		}

		log.Info("Hotword detected")
		if err := a.session(ctx, false); err != nil {
			return a.finish(err)
		}
	}
}

// pause waits RetryDelay unless ctx ends or Exit is called first.
func (a *Assistant) pause(ctx context.Context) {
	if a.cfg.RetryDelay <= 0 {
		return
	}
	t := time.NewTimer(a.cfg.RetryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-a.quit:
	case <-t.C:
	}
}

func (a *Assistant) finish(err error) error {
	if errors.Is(err, ErrExit) {
		a.setState(Exited)
	}
	return err
}

func (a *Assistant) listenHotword(ctx context.Context) (bool, error) {
	pcm, err := a.Recorder.Record(ctx, a.cfg.HotwordWindow)
	if err != nil {
		return false, fmt.Errorf("record: %w", err)
	}
	text, err := a.transcribe(ctx, pcm)
	if err != nil {
		return false, err
	}
	log.Debug("Heard", "text", text)
	return a.hotword.Contains(text), nil
}

// Session runs one conversation. It returns nil when the assistant goes
// back to sleep and ErrExit when the user asked to exit.
func (a *Assistant) Session(ctx context.Context) error {
	err := a.session(ctx, false)
	if err == nil {
		a.setState(Sleeping)
	}
	return a.finish(err)
}

// session serves commands. Triggered sessions capture with the
// AutoRecorder when one is set.
func (a *Assistant) session(ctx context.Context, triggered bool) error {
	a.sleepReq.Store(false)
	a.setState(Responding)
	a.say(ctx, a.cfg.Greeting)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.quit:
			return ErrExit
		default:
		}
		if a.sleepReq.Swap(false) {
			a.say(ctx, a.cfg.SleepNotice)
			return nil
		}

		a.setState(Listening)
		query, err := a.listenCommand(ctx, triggered)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error("Command window failed", "err", err)
			a.pause(ctx)
			continue
		}
		log.Info("User said", "text", query)

		a.setState(Responding)
		res := a.Router.Route(query)
		switch res.Intent {
		case nlu.IntentSleep:
			log.Info("No input, going to sleep")
			a.say(ctx, a.cfg.SleepNotice)
			return nil

		case nlu.IntentExit:
			log.Info("Exit requested", "phrase", res.Phrase)
			a.say(ctx, a.cfg.ExitNotice)
			return ErrExit

		case nlu.IntentRunScript:
			a.say(ctx, a.cfg.ScriptNotice)
			if err := a.Scripts.Run(ctx, res); err != nil {
				log.Error("Script failed", "script", res.Script, "err", err)
				a.say(ctx, a.cfg.ScriptError)
			}

		case nlu.IntentAsk:
			answer, err := a.ask(ctx, res.Query)
			if err != nil {
				log.Error("Failed to answer", "err", err)
				continue
			}
			log.Info("Agent response", "text", answer)
			a.say(ctx, answer)
		}
	}
}

func (a *Assistant) listenCommand(ctx context.Context, triggered bool) (string, error) {
	if a.Beeper != nil {
		a.Beeper.Start(ctx)
	}
	var pcm []float32
	var err error
	if triggered && a.AutoRecorder != nil {
		pcm, err = a.AutoRecorder.RecordAuto(ctx)
	} else {
		pcm, err = a.Recorder.Record(ctx, a.cfg.CommandWindow)
	}
	if a.Beeper != nil {
		a.Beeper.End(ctx)
	}
	if errors.Is(err, audioconv.ErrNoAudio) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("record: %w", err)
	}
	return a.transcribe(ctx, pcm)
}

func (a *Assistant) transcribe(ctx context.Context, pcm []float32) (string, error) {
	if a.cfg.TranscribeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.TranscribeTimeout)
		defer cancel()
	}
	res, err := a.Transcriber.TranscribePCM(ctx, pcm, stt.Options{Language: a.cfg.Language, Threads: a.cfg.Threads})
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	return res.Text, nil
}

func (a *Assistant) ask(ctx context.Context, query string) (string, error) {
	var docs string
	if a.Retriever != nil {
		var err error
		if docs, err = a.Retriever.Context(ctx, query); err != nil {
			log.Warn("Retrieval failed, answering without context", "err", err)
		}
	}

	answer, err := a.Completer.Complete(ctx, llm.BuildPrompt(a.cfg.System, docs, query))
	if err != nil {
		return "", err
	}
	answer = tts.Clean(answer)
	if answer == "" {
		return "", llm.ErrEmptyResponse
	}
	return answer, nil
}

func (a *Assistant) say(ctx context.Context, text string) {
	if text == "" {
		return
	}
	if err := a.Speaker.Speak(ctx, text); err != nil {
		log.Error("Failed to speak", "err", err)
	}
}
