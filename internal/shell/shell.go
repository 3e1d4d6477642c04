package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"paperbase/internal/models"
	"paperbase/internal/storage"
	"paperbase/internal/util"
)

const prompt = "paperbase> "

const snippetLen = 120

// Manager is the slice of the paper manager the shell drives.
type Manager interface {
	Ingest(ctx context.Context, path string) (models.Paper, error)
	List(ctx context.Context) ([]models.Paper, error)
	Details(ctx context.Context, paperID int64) (models.PaperDetails, error)
	Query(ctx context.Context, question string) (models.QueryResult, error)
	Summarize(ctx context.Context, paperID int64) (string, error)
	Delete(ctx context.Context, paperID int64) error
	TagPaper(ctx context.Context, paperID int64, name string) (models.Tag, error)
	UntagPaper(ctx context.Context, paperID int64, name string) error
	PapersByTag(ctx context.Context, name string) ([]models.Paper, error)
}

// Shell is the interactive command loop. It reads one command per line and
// keeps running until exit or EOF; command failures are printed, never fatal.
type Shell struct {
	mgr Manager
	in  io.Reader
	out io.Writer
	log *zap.Logger
}

func New(mgr Manager, in io.Reader, out io.Writer, log *zap.Logger) *Shell {
	return &Shell{mgr: mgr, in: in, out: out, log: log}
}

func (s *Shell) Run(ctx context.Context) error {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	fmt.Fprintln(s.out, "Paper knowledge base. Type 'help' for commands, 'exit' to quit.")
	for {
		fmt.Fprint(s.out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cmd, rest := splitCommand(line)
		if cmd == "exit" || cmd == "quit" {
			fmt.Fprintln(s.out, "Goodbye.")
			return nil
		}
		if err := s.dispatch(ctx, cmd, rest); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}
}

func splitCommand(line string) (string, string) {
	parts := strings.SplitN(line, " ", 2)
	cmd := strings.ToLower(parts[0])
	rest := ""
	if len(parts) == 2 {
		rest = strings.TrimSpace(parts[1])
	}
	return cmd, rest
}

func (s *Shell) dispatch(ctx context.Context, cmd, rest string) error {
	switch cmd {
	case "help":
		s.printHelp()
		return nil
	case "add":
		return s.cmdAdd(ctx, rest)
	case "list":
		return s.cmdList(ctx, rest)
	case "details":
		return s.cmdDetails(ctx, rest)
	case "query":
		return s.cmdQuery(ctx, rest)
	case "summarize":
		return s.cmdSummarize(ctx, rest)
	case "tag":
		return s.cmdTag(ctx, rest)
	case "untag":
		return s.cmdUntag(ctx, rest)
	case "delete":
		return s.cmdDelete(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q, type 'help' for the command list", cmd)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprint(s.out, `Commands:
  add <path>             ingest a PDF into the library
  list                   list all papers
  list tag <name>        list papers carrying a tag
  details <id>           show a paper with its tags and references
  query <question>       ask a question across the library
  summarize <id>         show (or generate) a paper's summary
  tag <id> <name>        attach a tag to a paper
  untag <id> <name>      remove a tag from a paper
  delete <id>            remove a paper and everything attached to it
  help                   show this help
  exit                   leave the shell
`)
}

func (s *Shell) cmdAdd(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("usage: add <path>")
	}
	paper, err := s.mgr.Ingest(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Added [%d] %s (%d)\n", paper.ID, paper.Title, paper.PublicationYear)
	return nil
}

func (s *Shell) cmdList(ctx context.Context, rest string) error {
	var papers []models.Paper
	var err error
	if tagName, ok := strings.CutPrefix(rest, "tag "); ok {
		papers, err = s.mgr.PapersByTag(ctx, strings.TrimSpace(tagName))
	} else {
		papers, err = s.mgr.List(ctx)
	}
	if err != nil {
		return err
	}
	if len(papers) == 0 {
		fmt.Fprintln(s.out, "No papers found.")
		return nil
	}
	for _, p := range papers {
		fmt.Fprintf(s.out, "[%d] %s (%d) %s\n", p.ID, p.Title, p.PublicationYear, p.Authors)
	}
	return nil
}

func (s *Shell) cmdDetails(ctx context.Context, rest string) error {
	id, err := parseID(rest, "details <id>")
	if err != nil {
		return err
	}
	d, err := s.mgr.Details(ctx, id)
	if err != nil {
		return describeMissing(err, id)
	}
	fmt.Fprintf(s.out, "[%d] %s\n", d.ID, d.Title)
	fmt.Fprintf(s.out, "  Authors: %s\n", d.Authors)
	fmt.Fprintf(s.out, "  Year:    %d\n", d.PublicationYear)
	fmt.Fprintf(s.out, "  File:    %s\n", d.FilePath)
	if d.Abstract != "" {
		fmt.Fprintf(s.out, "  Abstract: %s\n", util.DisplaySnippet(d.Abstract, snippetLen))
	}
	if len(d.Tags) > 0 {
		names := make([]string, len(d.Tags))
		for i, tg := range d.Tags {
			names[i] = tg.Name
		}
		fmt.Fprintf(s.out, "  Tags:    %s\n", strings.Join(names, ", "))
	}
	if len(d.References) > 0 {
		fmt.Fprintf(s.out, "  References (%d):\n", len(d.References))
		for _, r := range d.References {
			marker := " "
			if r.IsInLibrary {
				marker = "*"
			}
			fmt.Fprintf(s.out, "    %s %s (%d)\n", marker, r.CitedTitle, r.CitedYear)
		}
	}
	return nil
}

func (s *Shell) cmdQuery(ctx context.Context, question string) error {
	if question == "" {
		return errors.New("usage: query <question>")
	}
	res, err := s.mgr.Query(ctx, question)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, res.Answer)
	if len(res.Retrieved) > 0 {
		fmt.Fprintln(s.out, "\nSources:")
		for _, rc := range res.Retrieved {
			fmt.Fprintf(s.out, "  [%.3f] %s, %s: %s\n",
				rc.Score, rc.PaperTitle, rc.SectionTitle, util.DisplaySnippet(rc.Content, snippetLen))
		}
	}
	return nil
}

func (s *Shell) cmdSummarize(ctx context.Context, rest string) error {
	id, err := parseID(rest, "summarize <id>")
	if err != nil {
		return err
	}
	summary, err := s.mgr.Summarize(ctx, id)
	if err != nil {
		return describeMissing(err, id)
	}
	fmt.Fprintln(s.out, summary)
	return nil
}

func (s *Shell) cmdTag(ctx context.Context, rest string) error {
	id, name, err := parseIDAndName(rest, "tag <id> <name>")
	if err != nil {
		return err
	}
	if _, err := s.mgr.TagPaper(ctx, id, name); err != nil {
		return describeMissing(err, id)
	}
	fmt.Fprintf(s.out, "Tagged paper %d with %q.\n", id, name)
	return nil
}

func (s *Shell) cmdUntag(ctx context.Context, rest string) error {
	id, name, err := parseIDAndName(rest, "untag <id> <name>")
	if err != nil {
		return err
	}
	if err := s.mgr.UntagPaper(ctx, id, name); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "Removed tag %q from paper %d.\n", name, id)
	return nil
}

func (s *Shell) cmdDelete(ctx context.Context, rest string) error {
	id, err := parseID(rest, "delete <id>")
	if err != nil {
		return err
	}
	if err := s.mgr.Delete(ctx, id); err != nil {
		return describeMissing(err, id)
	}
	fmt.Fprintf(s.out, "Deleted paper %d.\n", id)
	return nil
}

func parseID(rest, usage string) (int64, error) {
	if rest == "" {
		return 0, fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.ParseInt(strings.Fields(rest)[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid paper id %q", rest)
	}
	return id, nil
}

func parseIDAndName(rest, usage string) (int64, string, error) {
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return 0, "", fmt.Errorf("usage: %s", usage)
	}
	id, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid paper id %q", fields[0])
	}
	return id, strings.Join(fields[1:], " "), nil
}

func describeMissing(err error, id int64) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no paper with id %d", id)
	}
	return err
}
