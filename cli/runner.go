// Command execution for CLI commands.
//
// Information Hiding:
// - Pipe and storage setup hidden
// - Session bookkeeping hidden
// - Output formatting hidden

package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/richinex/orpipe/config"
	"github.com/richinex/orpipe/openrouter"
	"github.com/richinex/orpipe/pipe"
	"github.com/richinex/orpipe/storage"
)

// Options holds CLI execution options.
type Options struct {
	Model     string
	SessionID string
	DBPath    string
	NoStream  bool
}

// ListModels prints the available model catalog.
func ListModels(ctx context.Context) error {
	p, _, err := newPipe()
	if err != nil {
		return err
	}

	models := p.Models(ctx)
	if len(models) == 0 {
		fmt.Println("No models available.")
		return nil
	}

	for _, m := range models {
		fmt.Printf("  %-40s %s\n", m.ID, m.Name)
	}
	return nil
}

// Ask runs a single prompt and prints the response.
func Ask(ctx context.Context, prompt string, opts Options) error {
	p, _, err := newPipe()
	if err != nil {
		return err
	}

	req := pipe.Request{
		Model:    opts.Model,
		Messages: []openrouter.ChatMessage{openrouter.UserMessage(prompt)},
	}

	if opts.NoStream {
		fmt.Println(p.Completion(ctx, req))
		return nil
	}

	for fragment := range p.Stream(ctx, req) {
		fmt.Print(fragment)
	}
	fmt.Println()
	return nil
}

// Chat starts an interactive chat session. History is persisted per session
// so a conversation can be resumed with the same session id.
func Chat(ctx context.Context, opts Options) error {
	p, settings, err := newPipe()
	if err != nil {
		return err
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = settings.DBPath
	}
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	session := opts.SessionID
	if session == "" {
		session = uuid.NewString()
		fmt.Printf("Starting session '%s'\n", session)
	}

	history, err := store.Load(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(history) > 0 {
		fmt.Printf("Resuming session '%s' (%d messages)\n", session, len(history))
	}

	fmt.Printf("Chatting with %s. Type 'exit' to quit.\n\n", opts.Model)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		history = append(history, openrouter.UserMessage(input))

		req := pipe.Request{
			Model:    opts.Model,
			Messages: history,
		}

		var reply strings.Builder
		fmt.Println()
		for fragment := range p.Stream(ctx, req) {
			fmt.Print(fragment)
			reply.WriteString(fragment)
		}
		fmt.Print("\n\n")

		history = append(history, openrouter.AssistantMessage(reply.String()))

		if err := store.Save(ctx, session, history); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
		}
	}

	return scanner.Err()
}

// Sessions lists stored conversation sessions.
func Sessions(ctx context.Context, dbPath string) error {
	if dbPath == "" {
		settings, err := config.New()
		if err != nil {
			return err
		}
		dbPath = settings.DBPath
	}

	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	sessions, err := store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("No stored sessions.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("  %s\n", s)
	}
	return nil
}

func newPipe() (*pipe.Pipe, config.Settings, error) {
	settings, err := config.New()
	if err != nil {
		return nil, config.Settings{}, err
	}
	return pipe.New(settings), settings, nil
}
