package consumer

import (
	"context"
	"errors"
	"fmt"

	"github.com/parleychat/parley/pkg/api"
	"github.com/parleychat/parley/pkg/chat"
	"github.com/parleychat/parley/pkg/logger"
	"github.com/parleychat/parley/pkg/store"
)

// State tracks one send cycle through its protocol.
type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateStreaming State = "streaming"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// ErrGenerationInProgress is returned when a send is attempted against a
// session that already has a stream in flight. The consumer never
// interleaves two streams into the same message list.
var ErrGenerationInProgress = errors.New("generation already in progress for session")

// Streamer is the slice of the API facade the consumer needs.
type Streamer interface {
	SendMessage(ctx context.Context, req api.ChatRequest) (chat.Message, error)
	StreamMessage(ctx context.Context, req api.ChatRequest) (<-chan chat.Chunk, error)
}

// StateFunc observes protocol transitions. Optional.
type StateFunc func(sessionID string, state State)

// Consumer orchestrates one "send a message, fold the incremental reply"
// cycle against the store. It does not retry; retry is a user re-send.
type Consumer struct {
	store    *store.Store
	client   Streamer
	onState  StateFunc
	defaults chat.SendOptions
}

func New(st *store.Store, client Streamer) *Consumer {
	return &Consumer{store: st, client: client}
}

// OnState sets the transition observer. Wire up before first use.
func (c *Consumer) OnState(fn StateFunc) {
	c.onState = fn
}

// SetSendDefaults sets configuration-level fallbacks for send options.
// Session-level settings still win; these fill whatever is left unset.
// Wire up before first use.
func (c *Consumer) SetSendDefaults(opts chat.SendOptions) {
	c.defaults = opts
}

func (c *Consumer) applyDefaults(sess chat.Session, opts chat.SendOptions) chat.SendOptions {
	opts = opts.WithDefaults(sess)
	if opts.Model == "" {
		opts.Model = c.defaults.Model
	}
	if opts.Temperature == 0 {
		opts.Temperature = c.defaults.Temperature
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = c.defaults.MaxTokens
	}
	opts.Stream = opts.Stream || c.defaults.Stream
	return opts
}

func (c *Consumer) transition(sessionID string, state State) {
	if c.onState != nil {
		c.onState(sessionID, state)
	}
}

// Send appends the user message, streams the reply, and folds content
// deltas into the session's last message. Partial content is kept on
// failure; the generating flag is cleared no matter how the cycle ends.
func (c *Consumer) Send(ctx context.Context, sessionID, text string, opts chat.SendOptions) error {
	sess, ok := c.store.Session(sessionID)
	if !ok {
		return &store.NotFoundError{SessionID: sessionID}
	}
	if !c.store.TryStartGenerating(sessionID) {
		return ErrGenerationInProgress
	}

	opts = c.applyDefaults(sess, opts)

	if err := c.store.AppendMessage(sessionID, chat.NewUserMessage(text)); err != nil {
		c.store.SetGenerating(sessionID, false)
		return err
	}

	return c.generate(ctx, sessionID, opts)
}

// Regenerate pops the last assistant message and re-runs the reply for
// the remaining conversation.
func (c *Consumer) Regenerate(ctx context.Context, sessionID string, opts chat.SendOptions) error {
	sess, ok := c.store.Session(sessionID)
	if !ok {
		return &store.NotFoundError{SessionID: sessionID}
	}
	if !c.store.TryStartGenerating(sessionID) {
		return ErrGenerationInProgress
	}

	opts = c.applyDefaults(sess, opts)

	if last, found := sess.LastMessage(); found && last.IsAssistant() {
		c.store.RemoveLastMessage(sessionID)
	}

	return c.generate(ctx, sessionID, opts)
}

// generate runs with the generation slot already claimed by the caller.
func (c *Consumer) generate(ctx context.Context, sessionID string, opts chat.SendOptions) (err error) {
	defer func() {
		// Guaranteed release regardless of outcome
		c.store.SetGenerating(sessionID, false)
		if err != nil {
			c.transition(sessionID, StateFailed)
		} else {
			c.transition(sessionID, StateCompleted)
		}
		c.transition(sessionID, StateIdle)
	}()

	c.transition(sessionID, StateSending)

	sess, _ := c.store.Session(sessionID)
	req := api.ChatRequest{
		SessionID: sessionID,
		Messages:  sess.Messages,
		Options:   opts,
	}

	if !opts.Stream {
		msg, sendErr := c.client.SendMessage(ctx, req)
		if sendErr != nil {
			return sendErr
		}
		return c.store.AppendMessage(sessionID, msg)
	}

	chunks, streamErr := c.client.StreamMessage(ctx, req)
	if streamErr != nil {
		return streamErr
	}

	return c.consume(ctx, sessionID, chunks)
}

// consume folds chunks in delivery order. The first content chunk opens
// an empty assistant message; an error chunk stops consumption with the
// partial content left in place.
func (c *Consumer) consume(ctx context.Context, sessionID string, chunks <-chan chat.Chunk) error {
	streaming := false

	for {
		// Cancellation wins over buffered chunks
		select {
		case <-ctx.Done():
			logger.Debug("stream abandoned for session %s: %v", sessionID, ctx.Err())
			return ctx.Err()
		default:
		}

		select {
		case <-ctx.Done():
			logger.Debug("stream abandoned for session %s: %v", sessionID, ctx.Err())
			return ctx.Err()
		case chunk, open := <-chunks:
			if !open {
				if !streaming {
					return &api.StreamError{Message: "stream ended before any content"}
				}
				return nil
			}

			if chunk.IsError() {
				return &api.StreamError{Message: chunk.Error}
			}

			if !streaming {
				if err := c.store.AppendMessage(sessionID, chat.NewAssistantMessage("")); err != nil {
					return err
				}
				streaming = true
				c.transition(sessionID, StateStreaming)
			}

			if chunk.Content != "" {
				if err := c.store.UpdateLastMessageContent(sessionID, chunk.Content); err != nil {
					return fmt.Errorf("failed to fold chunk: %w", err)
				}
			}

			if chunk.Done {
				return nil
			}
		}
	}
}
