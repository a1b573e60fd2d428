package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"lexio/assistant"
	"lexio/config"
	"lexio/model"
	"lexio/storage"
)

// docList collects repeated -doc flags.
type docList []string

func (d *docList) String() string     { return strings.Join(*d, ",") }
func (d *docList) Set(v string) error { *d = append(*d, v); return nil }

type askFlags struct {
	matter       string
	docs         docList
	modelName    string
	systemPrompt string
	conversation string
	noRAG        bool
	copy         bool
}

func parseAskFlags(name string, args []string) (*askFlags, string, error) {
	f := &askFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&f.matter, "matter", "", "Matter ID to scope the query to")
	fs.Var(&f.docs, "doc", "Document ID to ground the answer in (repeatable)")
	fs.StringVar(&f.modelName, "model", "", "Model override")
	fs.StringVar(&f.systemPrompt, "system", "", "System prompt override")
	fs.StringVar(&f.conversation, "conversation", "", "Conversation ID to continue")
	fs.BoolVar(&f.noRAG, "no-rag", false, "Answer without document retrieval")
	fs.BoolVar(&f.copy, "copy", false, "Copy the answer to the clipboard")
	if err := fs.Parse(args); err != nil {
		return nil, "", err
	}
	if fs.NArg() != 1 {
		return nil, "", fmt.Errorf("usage: lexio %s [flags] \"question\"", name)
	}
	return f, fs.Arg(0), nil
}

func (f *askFlags) request(cfg *config.Config, question string, previous []model.ChatMessage) model.QueryRequest {
	matter := f.matter
	if matter == "" {
		matter = cfg.DefaultMatter
	}
	system := f.systemPrompt
	if system == "" {
		system = cfg.DefaultSystemPrompt
	}
	return model.QueryRequest{
		Query:            question,
		MatterID:         matter,
		Documents:        f.docs,
		UseRAG:           cfg.UseRAG && !f.noRAG,
		Model:            f.modelName,
		SystemPrompt:     system,
		ConversationID:   f.conversation,
		PreviousMessages: previous,
	}
}

// runAsk streams an answer chunk by chunk. Ctrl-C aborts the stream; an
// aborted stream is not an error.
func runAsk(cfg *config.Config, client *assistant.Client, conversations *storage.ConversationStorage, args []string) error {
	f, question, err := parseAskFlags("ask", args)
	if err != nil {
		return err
	}

	previous, err := loadPrevious(conversations, f.conversation)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var (
		answer  strings.Builder
		usage   *model.TokenUsage
		sources []model.SourceCitation
	)

	err = client.StreamQuery(ctx, f.request(cfg, question, previous), func(chunk model.StreamChunk) error {
		switch {
		case (chunk.Type == model.ChunkWelcome || chunk.Type == model.ChunkComplete) && chunk.Content != "":
			// One-shot answers with content replace anything streamed so far.
			// A bare completion frame keeps the streamed text. Reprint only
			// what the terminal has not seen yet.
			if strings.HasPrefix(chunk.Content, answer.String()) {
				fmt.Print(chunk.Content[answer.Len():])
			} else {
				fmt.Print("\n" + chunk.Content)
			}
			answer.Reset()
			answer.WriteString(chunk.Content)
		default:
			fmt.Print(chunk.Content)
			answer.WriteString(chunk.Content)
		}
		if chunk.TokenUsage != nil {
			usage = chunk.TokenUsage
		}
		if len(chunk.Sources) > 0 {
			sources = chunk.Sources
		}
		return nil
	})
	fmt.Println()
	if err != nil {
		return err
	}
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "(cancelled)")
		return nil
	}

	printSources(sources)
	printUsage(usage)

	if f.copy {
		copyToClipboard(answer.String())
	}

	return recordExchange(conversations, f.conversation, question, answer.String())
}

// runQuery is the single-shot variant: one request, markdown-rendered reply.
func runQuery(cfg *config.Config, client *assistant.Client, conversations *storage.ConversationStorage, args []string) error {
	f, question, err := parseAskFlags("query", args)
	if err != nil {
		return err
	}

	previous, err := loadPrevious(conversations, f.conversation)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := client.Query(ctx, f.request(cfg, question, previous))
	if err != nil {
		return err
	}

	fmt.Print(renderMarkdown(result.Response))
	printSources(result.Sources)
	printUsage(result.TokenUsage)

	if f.copy {
		copyToClipboard(result.Response)
	}

	return recordExchange(conversations, f.conversation, question, result.Response)
}

func loadPrevious(conversations *storage.ConversationStorage, id string) ([]model.ChatMessage, error) {
	if id == "" {
		return nil, nil
	}
	conv, err := conversations.Load(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", id, err)
	}
	return conv.Messages, nil
}

// recordExchange appends the question/answer pair to the transcript. With no
// conversation flag a new one is created so the exchange is still kept.
func recordExchange(conversations *storage.ConversationStorage, id, question, answer string) error {
	sink := conversations.Sink(id)
	now := time.Now()
	if err := sink.Append(model.ChatMessage{Role: "user", Content: question, Timestamp: now}); err != nil {
		return err
	}
	if err := sink.Append(model.ChatMessage{Role: "assistant", Content: answer, Timestamp: now}); err != nil {
		return err
	}
	if id == "" {
		fmt.Fprintf(os.Stderr, "Saved as conversation %s\n", sink.ConversationID())
	}
	return nil
}

func runConversations(conversations *storage.ConversationStorage) error {
	list, err := conversations.List()
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}
	printConversations(list)
	return nil
}
