package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/booknote/internal"
	"github.com/starford/booknote/internal/apperr"
	"github.com/starford/booknote/internal/models"
	"github.com/starford/booknote/internal/noteservice"
)

func candidateFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "candidates",
			Usage:    "JSON file with an array of book records to choose from",
			Required: true,
		},
		&cli.IntFlag{
			Name:  "pick",
			Usage: "Choose the Nth matching candidate (1-based) instead of prompting",
		},
	}
}

func selector(cmd *cli.Command) noteservice.Selector {
	if n := int(cmd.Int("pick")); n > 0 {
		return noteservice.IndexSelector(n - 1)
	}
	return noteservice.PromptSelector{PageSize: 10}
}

// openLibrary opens the vault with logs on stderr so stdout carries only
// command output.
func openLibrary(cmd *cli.Command) (*internal.Library, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Open(internal.WithConfig(cfg), internal.WithLogOutput(os.Stderr))
}

func newCommand() *cli.Command {
	flags := append(candidateFlags(),
		&cli.StringFlag{
			Name:  "query",
			Usage: "Only offer candidates whose title, author or ISBN contains this text",
		},
		&cli.BoolFlag{
			Name:  "force",
			Usage: "Create the note even if the ISBN is already in the library",
		},
	)
	return &cli.Command{
		Name:  "new",
		Usage: "Create a book note from a chosen candidate",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			lib, err := openLibrary(cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			src := noteservice.FileSource{Path: cmd.String("candidates")}
			note, err := lib.Service.SearchAndCreate(ctx, cmd.String("query"), src, selector(cmd), cmd.Bool("force"))
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, note.Path)
			return nil
		},
	}
}

func insertCommand() *cli.Command {
	return &cli.Command{
		Name:      "insert",
		Usage:     "Prepend book metadata to an existing note; the note name is the search query",
		ArgsUsage: "<note path>",
		Flags:     candidateFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			p := cmd.Args().First()
			if p == "" {
				return fmt.Errorf("insert: note path is required")
			}
			lib, err := openLibrary(cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			src := noteservice.FileSource{Path: cmd.String("candidates")}
			note, err := lib.Service.SearchAndInsert(ctx, p, src, selector(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, note.Path)
			return nil
		},
	}
}

func renderCommand() *cli.Command {
	return &cli.Command{
		Name:      "render",
		Usage:     "Print the note and file name a book record would produce",
		ArgsUsage: "<book.json | ->",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			book, err := readBookArg(cmd.Args().First())
			if err != nil {
				return err
			}
			lib, err := openLibrary(cmd)
			if err != nil {
				return err
			}
			defer lib.Close()

			p, err := lib.Service.Preview(ctx, book)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "%s\n\n%s", p.Path, p.Content)
			return nil
		},
	}
}

func readBookArg(arg string) (models.Book, error) {
	var (
		data []byte
		err  error
	)
	switch arg {
	case "":
		return models.Book{}, fmt.Errorf("render: book file is required (use - for stdin)")
	case "-":
		data, err = io.ReadAll(os.Stdin)
	default:
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("render: read book: %w", err)
	}
	book, err := models.DecodeBook(data)
	if err != nil {
		return models.Book{}, fmt.Errorf("render: %w: %w", apperr.ErrInvalidRecord, err)
	}
	return book, nil
}
