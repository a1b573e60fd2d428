package main

import (
	"fmt"
	"os"

	"lexio/assistant"
	"lexio/config"
	"lexio/storage"
)

const (
	Version = "v0.1.0"
	License = "Apache-2.0"
)

func usage() {
	fmt.Fprintf(os.Stderr, `lexio %s - assistant client for the practice backend

Usage:
  lexio ask [flags] "question"      Stream an assistant answer
  lexio query [flags] "question"    Single-shot answer, rendered as markdown
  lexio action [flags] <name>       Run a quick action over selected documents
  lexio actions                     List available quick actions
  lexio conversations               List saved conversations
  lexio status                      Show the quick action in progress, if any
  lexio version                     Print version

Run "lexio <command> -h" for command flags.
`, Version)
}

func main() {
	// Validate environment variables first
	if config.HasAnyEnvVar() && !config.HasAllEnvVars() {
		fmt.Fprintf(os.Stderr, "Missing environment variable: %s\n\n"+
			"When using environment variables, all 3 must be set:\n"+
			"  • LEXIO_BACKEND_URL\n"+
			"  • LEXIO_MODEL\n"+
			"  • LEXIO_DATA_DIR\n\n"+
			"Set the missing variable(s) before launching lexio.\n",
			config.GetMissingEnvVar())
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize debug logging after config is loaded
	config.InitDebugLog(cfg.DataDir())

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	switch cmd {
	case "version":
		fmt.Printf("lexio %s (%s)\n", Version, License)
		return
	case "actions":
		runActions()
		return
	}

	conversations, err := storage.NewConversationStorage(cfg.DataDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize conversation storage: %v\n", err)
		os.Exit(1)
	}

	client := assistant.New(assistant.Config{
		BaseURL: cfg.BackendURL,
		Token:   loadToken(cfg),
		Model:   cfg.DefaultModel,
		Logger:  config.DebugLog,
	})

	var cmdErr error
	switch cmd {
	case "ask":
		cmdErr = runAsk(cfg, client, conversations, args)
	case "query":
		cmdErr = runQuery(cfg, client, conversations, args)
	case "action":
		cmdErr = runAction(cfg, client, conversations, args)
	case "conversations":
		cmdErr = runConversations(conversations)
	case "status":
		cmdErr = runStatus(cfg)
	default:
		usage()
		os.Exit(2)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

// loadToken resolves the backend API token: environment first, then the
// credential store (plain or SSH-encrypted per what exists on disk).
func loadToken(cfg *config.Config) string {
	if token := os.Getenv("LEXIO_TOKEN"); token != "" {
		return token
	}

	method := config.SecurityPlainText
	sshKeyPath := ""
	if config.LexioKeyExists() {
		method = config.SecuritySSHKey
		sshKeyPath = config.GetLexioKeyPath()
	}

	store := config.NewCredentialStore(method, sshKeyPath)
	if err := store.Load(cfg.DataDir()); err != nil {
		if config.DebugLog != nil {
			config.DebugLog.Printf("[main] failed to load credentials: %v", err)
		}
		return ""
	}
	return store.BackendToken()
}
