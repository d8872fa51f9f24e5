package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/docchat/internal/chat"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with your documents in the terminal",
	Long:  `Starts an interactive session in the terminal. Type a question and press Enter; type "exit" or press Ctrl+D to leave.`,
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().Bool("sources", false, "print the documents each answer was grounded on")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	showSources, _ := cmd.Flags().GetBool("sources")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := a.sessions.Create()
	defer a.sessions.End(sess.ID)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Ask a question about your documents. Type \"exit\" to quit.")

	for {
		p := promptui.Prompt{Label: "You"}
		input, err := p.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch classifyLine(input) {
		case lineSkip:
			continue
		case lineExit:
			return nil
		}

		outcome, err := a.controller.Submit(ctx, sess, input)
		if err != nil {
			if errors.Is(err, chat.ErrEmptyInput) {
				continue
			}
			return err
		}

		fmt.Fprintf(out, "\nAssistant: %s\n", outcome.Answer)
		if showSources {
			for i, d := range outcome.Documents {
				fmt.Fprintf(out, "  [%d] %s (%s)\n", i+1, d.Title, d.Path)
			}
		}
		if outcome.Notice != nil {
			fmt.Fprintf(os.Stderr, "! %s\n", chat.Notice(outcome.Notice))
		}
		fmt.Fprintln(out)

		if ctx.Err() != nil {
			return nil
		}
	}
}

type lineAction int

const (
	lineSubmit lineAction = iota
	lineSkip
	lineExit
)

// classifyLine decides what to do with a line typed at the prompt. Lines
// that are submitted go to the controller unchanged.
func classifyLine(line string) lineAction {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "":
		return lineSkip
	case "exit", "quit":
		return lineExit
	default:
		return lineSubmit
	}
}
