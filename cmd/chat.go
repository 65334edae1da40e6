package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chattmt/chattmt/internal/config"
	"github.com/chattmt/chattmt/internal/dependency"
	"github.com/chattmt/chattmt/internal/pipeline"
	"github.com/chattmt/chattmt/internal/session"
)

var (
	chatMessage string
	chatSession string
	chatConfig  string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Send a single message and exit")
	chatCmd.Flags().StringVarP(&chatSession, "session", "s", "", "Resume an existing session ID")
	chatCmd.Flags().StringVar(&chatConfig, "config", "", "Config file path (default ~/.chattmt/config.yaml)")
}

func runChat(_ *cobra.Command, _ []string) error {
	cfg, err := config.Load(chatConfig)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	container, err := dependency.New(cfg)
	if err != nil {
		return err
	}

	sess, err := resolveSession(container)
	if err != nil {
		return err
	}

	pipe := container.Pipeline(sess)

	if chatMessage != "" {
		return runSingleMessage(container, pipe, chatMessage)
	}
	return runInteractive(container, pipe)
}

// resolveSession loads the requested session or creates a fresh one.
func resolveSession(container *dependency.Container) (*session.Session, error) {
	if chatSession == "" {
		return container.Sessions().New(), nil
	}
	sess, err := container.Sessions().Load(chatSession)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// runSingleMessage processes one utterance, prints the response and saves.
func runSingleMessage(container *dependency.Container, pipe *pipeline.Pipeline, message string) error {
	result, err := pipe.ProcessAndRecord(context.Background(), message)
	if err != nil {
		return err
	}
	fmt.Println(result.Response)
	return container.Sessions().Save(pipe.Session())
}

// runInteractive runs the console loop with autosave in the background.
// Supported commands: /exit, /quit, /summary, /save, /clear.
func runInteractive(container *dependency.Container, pipe *pipeline.Pipeline) error {
	sess := pipe.Session()

	fmt.Println("chattmt — conversational assistant with session memory")
	fmt.Println("Commands: /exit, /summary, /save, /clear")
	fmt.Printf("Session: %s\n\n", sess.ID())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	saver := container.Autosave()
	saver.Track(sess)
	saver.Start()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		saver.Stop()
		return nil
	})
	g.Go(func() error {
		defer cancel()
		return chatLoop(gctx, container, pipe)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	// /clear may have swapped the pipeline's session; save the live one.
	return container.Sessions().Save(pipe.Session())
}

func chatLoop(ctx context.Context, container *dependency.Container, pipe *pipeline.Pipeline) error {
	sess := pipe.Session()
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("You: ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch input {
		case "/exit", "/quit":
			return nil
		case "/save":
			if err := container.Sessions().Save(sess); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
				continue
			}
			fmt.Println("Session saved.")
			continue
		case "/summary":
			printSummary(sess)
			continue
		case "/clear":
			container.Autosave().Untrack(sess.ID())
			fresh := container.Sessions().New()
			*pipe = *container.Pipeline(fresh)
			sess = fresh
			container.Autosave().Track(sess)
			fmt.Printf("Started fresh session: %s\n", sess.ID())
			continue
		}

		result, err := pipe.ProcessAndRecord(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		if result.NeedsClarification {
			fmt.Printf("\nAssistant (clarifying): %s\n\n", result.Response)
		} else {
			fmt.Printf("\nAssistant: %s\n\n", result.Response)
		}
	}
}

func printSummary(sess *session.Session) {
	summary := sess.Summary()
	if summary == nil {
		fmt.Println("No summary yet - conversation too short.")
		return
	}
	fmt.Println("--- Conversation summary ---")
	fmt.Println(summary.PromptText())
	fmt.Println("----------------------------")
}
