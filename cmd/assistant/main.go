package main

import (
	"context"
	"errors"
	log "log/slog"
	"net/http"
	"time"

	cli "github.com/spf13/pflag"

	"orin/internal/app"
	"orin/internal/assistant"
	"orin/internal/audio"
	"orin/internal/config"
	"orin/internal/ipc"
	"orin/internal/llm"
	"orin/internal/nlu"
	"orin/internal/notify"
	"orin/internal/rag"
	"orin/internal/tts"
)

func main() {
	noRAG := cli.Bool("no-rag", false, "Disable document retrieval")
	cfg := app.Boot("assistant")

	ctx, cancel := app.SignalContext()
	defer cancel()

	app.SelectSink(ctx, cfg.Audio)

	rec := audio.NewRecorder()
	if err := rec.Init(); err != nil {
		app.Fatal("Failed to init audio", "err", err)
	}
	defer rec.Close()
	log.Debug("Loaded recorder")

	transcriber, closeSTT := app.NewTranscriber(cfg.STT)
	defer closeSTT()

	httpClient := app.HTTPClient(cfg, cfg.LLM.Timeout.Duration)

	player := tts.NewPlayer(0)
	speaker, err := app.NewSpeaker(cfg.TTS, httpClient, player)
	if err != nil {
		app.Fatal("Failed to init speech", "engine", cfg.TTS.Engine, "err", err)
	}

	deps := assistant.Deps{
		Recorder:     rec,
		AutoRecorder: rec,
		Transcriber:  transcriber,
		Speaker:      speaker,
		Beeper:       notify.NewBeeper(player, cfg.Audio.StartBeep, cfg.Audio.EndBeep),
		Completer:    newCompleter(cfg.LLM, httpClient),
		Router:       nlu.NewRouter(cfg.Assistant.ExitPhrases, cfg.Assistant.Scripts),
		Scripts:      nlu.NewDispatcher(),
	}
	if !*noRAG {
		retriever, closeRAG, err := newRetriever(ctx, cfg.RAG, cfg.LLM.APIKey, httpClient)
		if err != nil {
			log.Warn("Retrieval disabled", "err", err)
		} else {
			defer closeRAG()
			deps.Retriever = retriever
		}
	}

	acfg := assistant.DefaultConfig()
	acfg.Hotword = cfg.Assistant.Hotword
	acfg.HotwordWindow = cfg.Assistant.HotwordWindow.Duration
	acfg.CommandWindow = cfg.Assistant.CommandWindow.Duration
	acfg.Language = cfg.STT.Language
	acfg.Threads = cfg.STT.Threads
	acfg.TranscribeTimeout = cfg.Assistant.TranscribeWait.Duration
	if cfg.Assistant.Greeting != "" {
		acfg.Greeting = cfg.Assistant.Greeting
	}
	if cfg.LLM.System != "" {
		acfg.System = cfg.LLM.System
	}

	a := assistant.New(acfg, deps)

	srv, err := ipc.Listen(cfg.Assistant.ControlSocket, a.Control)
	if err != nil {
		app.Fatal("Failed ipc server", "socket", cfg.Assistant.ControlSocket, "err", err)
	}
	defer srv.Close()

	log.Info("Boot up - successful", "hotword", acfg.Hotword)

	err = a.Run(ctx)
	switch {
	case errors.Is(err, assistant.ErrExit):
		log.Info("Assistant exited")
	case errors.Is(err, context.Canceled):
		log.Info("Shutting down")
	case err != nil:
		log.Error("Assistant stopped", "err", err)
	}
}

func newCompleter(cfg config.LLMConfig, httpClient *http.Client) llm.Completer {
	params := llm.Params{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}
	if cfg.Backend == "openai" {
		return llm.NewOpenAI(cfg.URL, cfg.APIKey, cfg.Model, cfg.System, params, httpClient)
	}
	return llm.NewLlama(cfg.URL, params, httpClient)
}

// newRetriever restores the persisted index and embeds any seed documents
// that are not stored yet.
func newRetriever(ctx context.Context, cfg config.RAGConfig, apiKey string, httpClient *http.Client) (*rag.Retriever, func(), error) {
	var store *rag.SQLiteStore
	closeFn := func() {}
	if cfg.DBPath != "" {
		s, err := rag.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		store = s
		closeFn = func() { s.Close() }
	}

	embedder := rag.NewOpenAIEmbedder(cfg.EmbedURL, apiKey, cfg.EmbedModel, httpClient)
	r := rag.NewRetriever(embedder, rag.NewIndex(cfg.Dimensions), store, cfg.TopK)

	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	n, err := r.Restore(ctx)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	docs := cfg.Documents
	if len(docs) == 0 {
		docs = rag.DefaultDocuments
	}
	if err := r.AddDocuments(ctx, docs...); err != nil {
		closeFn()
		return nil, nil, err
	}
	log.Info("Loaded documents", "restored", n, "seed", len(docs))
	return r, closeFn, nil
}
