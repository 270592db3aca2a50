package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/starford/learnvex/internal/client"
	"github.com/starford/learnvex/internal/editor"
	"github.com/starford/learnvex/internal/models"
	"github.com/starford/learnvex/internal/reorder"
)

func structureCommand() *cli.Command {
	return &cli.Command{
		Name:  "structure",
		Usage: "Inspect and reorder a course structure through the API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api",
				Usage:   "Base URL of the LearnVex API",
				Value:   "http://localhost:8080/api",
				Sources: cli.EnvVars("LEARNVEX_API_URL"),
			},
			&cli.StringFlag{
				Name:    "token",
				Usage:   "Bearer token for the API",
				Sources: cli.EnvVars("LEARNVEX_TOKEN"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Print the chapters and lessons of a course",
				ArgsUsage: "<course-id>",
				Action: withSession(1, func(_ context.Context, s *editor.Session, _ []string) error {
					printStructure(os.Stdout, s.Structure())
					return nil
				}),
			},
			{
				Name:      "move",
				Usage:     "Drop a chapter or lesson onto another item",
				ArgsUsage: "<course-id> <item-id> <onto-id>",
				Action: withSession(3, func(ctx context.Context, s *editor.Session, args []string) error {
					res, err := s.Move(ctx, args[1], args[2])
					if err != nil {
						return err
					}
					if !res.OK() {
						return fmt.Errorf("%s: %s", res.Status, res.Message)
					}
					if res.Status == reorder.StatusIgnored {
						fmt.Fprintln(os.Stdout, "nothing to move")
						return nil
					}
					if res.Message != "" {
						fmt.Fprintln(os.Stdout, res.Message)
					}
					printStructure(os.Stdout, res.Structure)
					return nil
				}),
			},
			{
				Name:      "toggle",
				Usage:     "Expand a chapter to list its lessons",
				ArgsUsage: "<course-id> <chapter-id>",
				Action: withSession(2, func(_ context.Context, s *editor.Session, args []string) error {
					tree, err := s.Toggle(args[1])
					if err != nil {
						return err
					}
					printStructure(os.Stdout, tree)
					return nil
				}),
			},
		},
	}
}

// withSession opens an editor session for the course named by the first
// argument and passes it to fn together with all positional arguments.
func withSession(nargs int, fn func(context.Context, *editor.Session, []string) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		args := cmd.Args().Slice()
		if len(args) != nargs {
			return fmt.Errorf("expected %d argument(s), got %d", nargs, len(args))
		}

		api := client.New(cmd.String("api"), cmd.String("token"), nil)
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		s, err := editor.Open(ctx, args[0], api, api, logger)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, s, args)
	}
}

// printStructure writes the tree as an indented outline. Lessons are listed
// only under expanded chapters.
func printStructure(w io.Writer, s models.Structure) {
	for _, ch := range s.Chapters {
		marker := "+"
		if ch.Expanded {
			marker = "-"
		}
		fmt.Fprintf(w, "%s %d. %s  [%s]\n", marker, ch.Position, ch.Title, ch.ID)
		if !ch.Expanded {
			continue
		}
		for _, l := range ch.Lessons {
			fmt.Fprintf(w, "    %d. %s  [%s]\n", l.Position, l.Title, l.ID)
		}
	}
}
