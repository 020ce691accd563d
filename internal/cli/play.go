package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"scripture-quiz-service/internal/client"
	"scripture-quiz-service/internal/domain"
	"scripture-quiz-service/internal/session"
)

// NewPlayCmd runs an interactive quiz in the terminal against a running server.
func NewPlayCmd() *cobra.Command {
	var (
		server  string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a quiz in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPlayer(client.New(server, timeout), os.Stdin, os.Stdout)
			return p.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "quiz server base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "request timeout")
	return cmd
}

const skipCommand = ":skip"

type player struct {
	api *client.Client
	in  *bufio.Scanner
	out io.Writer
}

func newPlayer(api *client.Client, in io.Reader, out io.Writer) *player {
	return &player{api: api, in: bufio.NewScanner(in), out: out}
}

func (p *player) run(ctx context.Context) error {
	bank, err := p.api.ListQuestions(ctx)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	s := session.New(bank)

	for {
		var err error
		switch s.Phase() {
		case session.PhaseConfiguring:
			err = p.configure(s)
		case session.PhaseInProgress:
			err = p.ask(ctx, s)
		case session.PhaseComplete, session.PhaseNoQuestions:
			var again bool
			again, err = p.finish(s)
			if err == nil && !again {
				return nil
			}
			if err == nil {
				err = s.Reconfigure()
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (p *player) readLine(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *player) configure(s *session.Session) error {
	available := s.View().Available
	filters := []session.TypeFilter{session.FilterMultipleChoice, session.FilterOpenAnswer, session.FilterBoth}
	labels := map[session.TypeFilter]string{
		session.FilterMultipleChoice: "Multiple choice",
		session.FilterOpenAnswer:     "Open answer",
		session.FilterBoth:           "Both",
	}

	fmt.Fprintln(p.out, "\nWhich questions do you want?")
	for i, f := range filters {
		fmt.Fprintf(p.out, "  %d) %s (%d)\n", i+1, labels[f], available[f])
	}
	for {
		line, err := p.readLine("> ")
		if err != nil {
			return err
		}
		n, convErr := strconv.Atoi(line)
		if convErr != nil || n < 1 || n > len(filters) {
			fmt.Fprintln(p.out, "Pick one of the numbers above.")
			continue
		}
		if err := s.ChooseFilter(filters[n-1]); err != nil {
			return err
		}
		break
	}

	counts := make([]string, 0, len(session.CountOptions)+1)
	for _, c := range session.CountOptions {
		counts = append(counts, strconv.Itoa(c))
	}
	counts = append(counts, "all")
	fmt.Fprintf(p.out, "How many questions? [%s]\n", strings.Join(counts, "/"))
	for {
		line, err := p.readLine("> ")
		if err != nil {
			return err
		}
		n := session.CountAll
		if !strings.EqualFold(line, "all") {
			if n, err = strconv.Atoi(line); err != nil {
				fmt.Fprintln(p.out, "Type a number or 'all'.")
				continue
			}
		}
		if err := s.ChooseCount(n); err != nil {
			if errors.Is(err, domain.ErrInvalidCount) {
				fmt.Fprintln(p.out, "That count is not offered.")
				continue
			}
			return err
		}
		return nil
	}
}

func (p *player) ask(ctx context.Context, s *session.Session) error {
	v := s.View()
	q := v.Question
	fmt.Fprintf(p.out, "\n[%d/%d] %s\n", v.Position, v.Total, q.Text)

	var (
		verdict session.Verdict
		err     error
	)
	if q.Kind == domain.KindMultipleChoice {
		verdict, err = p.askChoice(ctx, s, *q)
	} else {
		var skipped bool
		verdict, skipped, err = p.askOpen(ctx, s, v.CanSkip)
		if skipped || err != nil {
			return err
		}
	}
	if err != nil {
		return err
	}

	if verdict.Correct {
		fmt.Fprintln(p.out, "Correct!")
	} else {
		fmt.Fprintln(p.out, "Incorrect.")
		if verdict.CorrectIndex != nil && *verdict.CorrectIndex < len(q.Options) {
			fmt.Fprintf(p.out, "The answer was: %s\n", q.Options[*verdict.CorrectIndex])
		}
	}
	if verdict.Explanation != "" {
		fmt.Fprintln(p.out, verdict.Explanation)
	}
	if q.Reference != "" {
		fmt.Fprintf(p.out, "Read %s: %s\n", q.Reference, q.URL)
	}

	if _, err := p.readLine("Press Enter to continue "); err != nil {
		return err
	}
	return s.Next()
}

func (p *player) askChoice(ctx context.Context, s *session.Session, q domain.PublicQuestion) (session.Verdict, error) {
	for i, opt := range q.Options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, opt)
	}
	for {
		line, err := p.readLine("> ")
		if err != nil {
			return session.Verdict{}, err
		}
		n, convErr := strconv.Atoi(line)
		if convErr != nil {
			fmt.Fprintln(p.out, "Type the number of your answer.")
			continue
		}
		verdict, err := s.SelectOption(ctx, n-1, p.api)
		switch {
		case err == nil:
			return verdict, nil
		case errors.Is(err, domain.ErrOptionOutOfRange):
			fmt.Fprintln(p.out, "There is no such option.")
		default:
			fmt.Fprintf(p.out, "Could not check the answer: %v\n", err)
		}
	}
}

func (p *player) askOpen(ctx context.Context, s *session.Session, canSkip bool) (session.Verdict, bool, error) {
	if canSkip {
		fmt.Fprintf(p.out, "(type %s to come back to it later)\n", skipCommand)
	}
	for {
		line, err := p.readLine("> ")
		if err != nil {
			return session.Verdict{}, false, err
		}
		if line == skipCommand {
			if err := s.Skip(); err != nil {
				return session.Verdict{}, false, err
			}
			return session.Verdict{}, true, nil
		}
		if err := s.SetDraft(line); err != nil {
			return session.Verdict{}, false, err
		}
		fmt.Fprintln(p.out, "Checking...")
		verdict, err := s.SubmitOpenAnswer(ctx, p.api)
		switch {
		case err == nil:
			return verdict, false, nil
		case errors.Is(err, domain.ErrEmptyAnswer):
			fmt.Fprintln(p.out, "Write an answer first.")
		case errors.Is(err, domain.ErrAnswerTooLong):
			fmt.Fprintln(p.out, "That answer is too long, try a shorter one.")
		default:
			fmt.Fprintf(p.out, "Could not check the answer: %v\n", err)
		}
	}
}

func (p *player) finish(s *session.Session) (bool, error) {
	v := s.View()
	if v.Phase == session.PhaseNoQuestions {
		fmt.Fprintln(p.out, "\nNo questions match that choice.")
	} else {
		fmt.Fprintf(p.out, "\nDone! %d answered: %d correct, %d incorrect.\n", len(v.Results), v.CorrectCount, v.IncorrectCount)
		printTallies(p.out, "Mastered chapters", v.Mastery.Mastered, func(t session.ChapterTally) int { return t.Correct })
		printTallies(p.out, "Chapters to practice", v.Mastery.NeedsPractice, func(t session.ChapterTally) int { return t.Incorrect })
	}

	line, err := p.readLine("Play again? [y/N] ")
	if err != nil {
		return false, err
	}
	return strings.EqualFold(line, "y") || strings.EqualFold(line, "yes"), nil
}

func printTallies(out io.Writer, title string, tallies []session.ChapterTally, count func(session.ChapterTally) int) {
	if len(tallies) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, t := range tallies {
		fmt.Fprintf(out, "  %s (%d)\n", t.Chapter, count(t))
	}
}
