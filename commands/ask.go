package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/penwyp/go-timeline-chat/internal/chat"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	showQueries bool

	askCmd = &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask questions about your location history",
		Long: `Ask a question in plain language. The model answers by running SQL queries over
the visits and journeys tables.

Without a question an interactive chat starts. Follow-up questions share the conversation
history; type /new to start over and /exit (or Ctrl-D) to quit.

The OpenAI API key is read from the configuration file or OPENAI_API_KEY. When it is
missing and the command runs in a terminal, it is asked for without echo.

Examples:
  go-timeline-chat ask "How many days did I spend in Spain in 2019?"
  go-timeline-chat ask --show-queries "Where did I go most often after work?"
  go-timeline-chat ask`,
		RunE: runAsk,
	}
)

func init() {
	askCmd.Flags().BoolVar(&showQueries, "show-queries", false,
		"Print the SQL queries the model ran")

	rootCmd.AddCommand(askCmd)
}

// lineReader is satisfied by *term.Terminal
type lineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func (r scannerReader) ReadLine() (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	in := cmd.InOrStdin()
	tty, isTTY := terminalFile(in)
	if cfg.Chat.APIKey == "" && isTTY {
		key, err := readAPIKey(tty, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cfg.Chat.APIKey = key
	}
	completer, err := newCompleter(cfg.Chat)
	if err != nil {
		return err
	}

	_, ds, err := loadDataset(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), ds)
	if err != nil {
		return err
	}
	defer st.Close()
	agent := chat.NewAgent(completer, st, agentOptions(cfg))

	out := cmd.OutOrStdout()
	if len(args) > 0 {
		answer, err := agent.Ask(cmd.Context(), "", strings.Join(args, " "))
		if err != nil {
			return err
		}
		printAnswer(out, answer, nil)
		return nil
	}

	if isTTY {
		oldState, err := term.MakeRaw(int(tty.Fd()))
		if err != nil {
			return fmt.Errorf("failed to set terminal mode: %w", err)
		}
		defer term.Restore(int(tty.Fd()), oldState)

		t := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{tty, out}, "> ")
		if width, height, err := term.GetSize(int(tty.Fd())); err == nil {
			t.SetSize(width, height)
		}
		return chatLoop(cmd.Context(), agent, t, t)
	}
	return chatLoop(cmd.Context(), agent, scannerReader{bufio.NewScanner(in)}, out)
}

// chatLoop reads questions line by line until EOF or /exit.
// Errors from a single question are printed and the loop goes on.
func chatLoop(ctx context.Context, agent *chat.Agent, r lineReader, w io.Writer) error {
	fmt.Fprintln(w, "Ask about your location history. /new starts a new conversation, /exit quits.")

	conversationID := ""
	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch line = strings.TrimSpace(line); line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/new":
			conversationID = ""
			fmt.Fprintln(w, "Started a new conversation.")
			continue
		}

		answer, err := agent.Ask(ctx, conversationID, line)
		if answer != nil {
			conversationID = answer.ConversationID
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		printAnswer(w, answer, err)
	}
}

func printAnswer(w io.Writer, answer *chat.Answer, err error) {
	if answer != nil && showQueries {
		for _, q := range answer.Queries {
			fmt.Fprintf(w, "-- %s\n", strings.ReplaceAll(q, "\n", "\n-- "))
		}
	}
	switch {
	case errors.Is(err, chat.ErrNoAnswer):
		fmt.Fprintf(w, "No answer after %d steps. Try a more specific question.\n", answer.Steps)
	case err != nil:
		fmt.Fprintf(w, "Error: %v\n", err)
	default:
		fmt.Fprintln(w, answer.Text)
	}
}

func terminalFile(r io.Reader) (*os.File, bool) {
	f, ok := r.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, false
	}
	return f, true
}

func readAPIKey(tty *os.File, w io.Writer) (string, error) {
	fmt.Fprint(w, "OpenAI API key: ")
	key, err := term.ReadPassword(int(tty.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(string(key)), nil
}
