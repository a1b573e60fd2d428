package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"lexio/assistant"
	"lexio/config"
	"lexio/quickaction"
	"lexio/storage"
)

// cliNotifier prints outcome notifications to stderr so they never mix with
// the action result on stdout.
type cliNotifier struct{}

func (cliNotifier) Success(title, message string) {
	fmt.Fprintf(os.Stderr, "✓ %s: %s\n", title, message)
}

func (cliNotifier) Failure(title, message string) {
	fmt.Fprintf(os.Stderr, "✗ %s: %s\n", title, message)
}

// runAction executes one quick action over the selected documents. Ctrl-C
// cancels the run and frees the action slot immediately.
func runAction(cfg *config.Config, client *assistant.Client, conversations *storage.ConversationStorage, args []string) error {
	var (
		docs         docList
		modelName    string
		conversation string
	)
	fs := flag.NewFlagSet("action", flag.ContinueOnError)
	fs.Var(&docs, "doc", "Document ID to run the action over (repeatable)")
	fs.StringVar(&modelName, "model", "", "Model override")
	fs.StringVar(&conversation, "conversation", "", "Conversation to record the result in")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: lexio action [flags] <name>")
	}
	name := fs.Arg(0)

	markers, err := storage.OpenMarkers(cfg.DataDir())
	if err != nil {
		return err
	}
	defer markers.Close()

	if modelName == "" {
		modelName = cfg.DefaultModel
	}

	sink := conversations.Sink(conversation)
	runner := quickaction.NewRunner(quickaction.RunnerConfig{
		Service:  client,
		Markers:  markers,
		Notifier: cliNotifier{},
		Messages: sink,
		Model:    modelName,
		Logger:   config.DebugLog,
	})

	// Surface a run left over from a previous invocation before rejecting.
	if active, startedAt, activeDocs, ok := runner.InProgress(); ok {
		fmt.Fprintf(os.Stderr, "%s is already running over %d document(s) since %s\n",
			active, len(activeDocs), startedAt.Format(time.Kitchen))
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	defer signal.Stop(interrupt)
	go func() {
		if _, ok := <-interrupt; ok {
			runner.Cancel()
		}
	}()

	result, err := runner.Execute(context.Background(), name, docs)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "(cancelled)")
			return nil
		}
		return err
	}

	fmt.Print(renderMarkdown(result.Message.Content))
	if conversation == "" {
		fmt.Fprintf(os.Stderr, "Saved as conversation %s\n", sink.ConversationID())
	}

	// Let the grace-delayed marker clear run before the process exits, so a
	// follow-up invocation is not spuriously rejected.
	time.Sleep(runner.GraceDelay() + 100*time.Millisecond)
	return nil
}

// runActions lists the registered quick actions.
func runActions() {
	printActions(quickaction.Actions())
}

// runStatus reports the quick action currently marked in progress, if any.
// The markers are durable, so this sees runs started by other invocations.
func runStatus(cfg *config.Config) error {
	markers, err := storage.OpenMarkers(cfg.DataDir())
	if err != nil {
		return err
	}
	defer markers.Close()

	runner := quickaction.NewRunner(quickaction.RunnerConfig{Markers: markers})
	name, startedAt, docs, active := runner.InProgress()
	if !active {
		fmt.Println("No quick action in progress.")
		return nil
	}
	fmt.Printf("%s in progress over %d document(s), started %s\n",
		name, len(docs), startedAt.Format(time.RFC3339))
	return nil
}

var _ quickaction.ActionService = (*assistant.Client)(nil)
