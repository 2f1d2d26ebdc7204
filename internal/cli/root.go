// Package cli is the terminal client for ragdesk. It drives the same
// services as the HTTP server over a local session store.
package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhouzirui/ragdesk/backend/internal/client/rag"
	"github.com/zhouzirui/ragdesk/backend/internal/pkg/logger"
	adminService "github.com/zhouzirui/ragdesk/backend/internal/service/admin"
	chatService "github.com/zhouzirui/ragdesk/backend/internal/service/chat"
	"github.com/zhouzirui/ragdesk/backend/internal/store/local"
)

var (
	version = "dev"
	commit  = "unknown"
)

type options struct {
	storeDir   string
	backendURL string
	adminToken string
	topK       int
	verbose    bool
	// stderr receives verbose logs.
	stderr io.Writer
}

// app holds the services one command invocation needs.
type app struct {
	directory    *chatService.Directory
	conversation *chatService.Conversation
	admin        *adminService.Service
}

func (o *options) open() (*app, error) {
	if o.topK < 1 {
		return nil, fmt.Errorf("invalid --top-k value %d: must be at least 1", o.topK)
	}
	st, err := local.NewFileStorage(o.storeDir)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	var log logger.Logger = logger.NewNop()
	if o.verbose {
		stderr := o.stderr
		if stderr == nil {
			stderr = os.Stderr
		}
		log = logger.New(logger.Options{Console: stderr})
	}

	repo := local.NewRepository(st)
	client := rag.New(o.backendURL, rag.WithAdminToken(o.adminToken))
	return &app{
		directory:    chatService.NewDirectory(repo, nil, log),
		conversation: chatService.NewConversation(repo, client, o.topK, nil, log),
		admin:        adminService.NewService(client, adminService.Options{Logger: log}),
	}, nil
}

// NewRootCommand builds the ragdesk command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "ragdesk",
		Short: "Chat with and manage a RAG backend from the terminal",
		Long: `ragdesk keeps chat sessions on this machine and forwards questions to a
retrieval-augmented answer backend. The admin commands manage the
backend's document index and question history.

Quick Start:
  ragdesk sessions new "Pricing"
  ragdesk ask <session-id> "What does the enterprise plan cost?"
  ragdesk export <session-id> --format md`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			opts.stderr = cmd.ErrOrStderr()
		},
	}
	root.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.storeDir, "store-dir", envOr("LOCAL_STORE_PATH", "./data"), "Directory holding the local session file")
	flags.StringVar(&opts.backendURL, "backend", envOr("RAG_BACKEND_URL", "http://localhost:8000"), "RAG backend base URL")
	flags.StringVar(&opts.adminToken, "admin-token", os.Getenv("RAG_ADMIN_TOKEN"), "Token sent as X-Admin-Token on admin calls")
	flags.IntVar(&opts.topK, "top-k", envIntOr("RAG_TOP_K", 5), "Number of chunks the backend retrieves per question")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		newSessionsCommand(opts),
		newAskCommand(opts),
		newExportCommand(opts),
		newAdminCommand(opts),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}
