package main

import (
	"bufio"
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sells-group/warehouse-agent/internal/warehouse"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runREPL(cmd.Context(), os.Stdin)
	},
}

func init() {
	rootCmd.AddCommand(replCmd)
}

// answerer is what the REPL needs from a session.
type answerer interface {
	Schema(ctx context.Context) (string, error)
	Answer(ctx context.Context, question string) (string, error)
}

type sessionAnswerer struct {
	s *session
}

func (a sessionAnswerer) Schema(ctx context.Context) (string, error) {
	summary, err := a.s.agent.Schema(ctx)
	if err != nil {
		return "", err
	}
	return summary.String(), nil
}

func (a sessionAnswerer) Answer(ctx context.Context, question string) (string, error) {
	res, err := answerWithSpinner(ctx, a.s, question)
	if err != nil {
		return "", err
	}
	return formatAnswer(res), nil
}

func runREPL(ctx context.Context, in io.Reader) error {
	s, err := openSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	return replLoop(ctx, in, os.Stdout, sessionAnswerer{s: s})
}

var exitWords = map[string]bool{"exit": true, "quit": true, "q": true}

// replLoop reads questions until EOF, an exit word, or ctx ends. Provider
// failures are printed and the loop continues; a lost warehouse connection
// ends the session with an error.
func replLoop(ctx context.Context, in io.Reader, out io.Writer, a answerer) error {
	pterm.Fprintln(out, "Data Agent REPL (type 'exit' to quit, 'schema' to see tables)")
	pterm.Fprintln(out, strings.Repeat("-", 50))

	lines := readLines(ctx, in)
	for {
		pterm.Fprint(out, "\nYou> ")

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			pterm.Fprintln(out, "\nGoodbye!")
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			pterm.Fprintln(out, "\nGoodbye!")
			return nil
		}

		question := strings.TrimSpace(line)
		switch {
		case question == "":
			continue
		case exitWords[strings.ToLower(question)]:
			pterm.Fprintln(out, "Goodbye!")
			return nil
		case strings.EqualFold(question, "schema"):
			text, err := a.Schema(ctx)
			if err != nil {
				if fatal(err) {
					return err
				}
				pterm.Fprintln(out, pterm.Error.Sprint(err.Error()))
				continue
			}
			pterm.Fprintln(out, text)
			continue
		}

		answer, err := a.Answer(ctx, question)
		if err != nil {
			if ctx.Err() != nil {
				pterm.Fprintln(out, "\nGoodbye!")
				return nil
			}
			if fatal(err) {
				return err
			}
			pterm.Fprintln(out, pterm.Error.Sprint(err.Error()))
			continue
		}
		pterm.Fprintln(out, "\n"+answer)
	}
}

func fatal(err error) bool {
	return errors.Is(err, warehouse.ErrConnection)
}

// readLines streams lines from r until EOF or ctx ends.
func readLines(ctx context.Context, r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case ch <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}
