package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/parleychat/parley/pkg/api"
	"github.com/parleychat/parley/pkg/chat"
	"github.com/parleychat/parley/pkg/config"
	"github.com/parleychat/parley/pkg/consumer"
	"github.com/parleychat/parley/pkg/logger"
	"github.com/parleychat/parley/pkg/search"
	"github.com/parleychat/parley/pkg/store"
)

// App wires the store, persistence, client, consumer, and search index
// together for the commands.
type App struct {
	Store    *store.Store
	Consumer *consumer.Consumer
	Index    *search.Index

	persister *store.Persister
}

func newApp() (*App, error) {
	cfg := config.Get()

	st := store.New()

	persister, err := store.NewPersister(st, cfg.Storage.SnapshotFile)
	if err != nil {
		return nil, fmt.Errorf("failed to set up persistence: %w", err)
	}
	persister.Load()
	persister.Attach()

	model := viper.GetString("model")
	if model == "" {
		model = st.CurrentModel()
	}
	if model == "" {
		model = cfg.Ollama.Model
	}
	st.SetCurrentModel(model)

	client, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	cons := consumer.New(st, client)
	cons.SetSendDefaults(chat.SendOptions{
		Stream:      cfg.Streaming,
		Temperature: cfg.Sampling.Temperature,
		MaxTokens:   cfg.Sampling.MaxTokens,
	})

	app := &App{
		Store:     st,
		Consumer:  cons,
		persister: persister,
	}

	if cfg.Search.Enabled {
		index, err := search.New(cfg.Search.PersistenceDir,
			search.OllamaEmbedder(cfg.Search.EmbedderModel, cfg.Search.EmbedderURL))
		if err != nil {
			// Search is a convenience, not a dependency of chatting
			logger.Warn("search index unavailable: %v", err)
		} else {
			app.Index = index
			app.indexOnComplete()
		}
	}

	return app, nil
}

// newClient picks the hosted backend when configured, local Ollama
// through LangChain otherwise.
func newClient(cfg *config.Config) (consumer.Streamer, error) {
	if cfg.Backend.URL != "" {
		return api.NewStreamingClientWithTimeout(cfg.Backend.URL, cfg.Backend.Timeout), nil
	}

	client, err := api.NewLangChainClient(cfg.Ollama.URL, cfg.Ollama.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider client: %w", err)
	}
	return client, nil
}

// indexOnComplete indexes the last message of a session once its
// generation flag clears.
func (a *App) indexOnComplete() {
	a.Store.Subscribe(func(evt store.Event) {
		if evt.Type != store.EventGenerating || a.Store.Generating(evt.SessionID) {
			return
		}
		sess, ok := a.Store.Session(evt.SessionID)
		if !ok {
			return
		}
		last, found := sess.LastMessage()
		if !found {
			return
		}
		if err := a.Index.Add(context.Background(), sess.ID, last); err != nil {
			logger.Warn("failed to index message: %v", err)
		}
	})
}

// RunPrompt sends a single prompt against the current (or a fresh)
// session and prints the streamed reply.
func (a *App) RunPrompt(ctx context.Context, prompt string) error {
	sessionID := a.Store.CurrentSessionID()
	if sessionID == "" {
		sess := a.Store.CreateSession(a.Store.CurrentModel(), "")
		if err := a.Store.SelectSession(sess.ID); err != nil {
			return err
		}
		sessionID = sess.ID
	}

	if err := a.Consumer.Send(ctx, sessionID, prompt, chat.SendOptions{}); err != nil {
		return err
	}

	sess, _ := a.Store.Session(sessionID)
	if last, ok := sess.LastAssistantMessage(); ok {
		fmt.Println(last.Content)
	}
	return nil
}

func (a *App) Close() {
	logger.Close()
}
