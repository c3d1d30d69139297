package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"scenario-advisor/internal/advisor"
)

const shellPrompt = "advisor> "

// runShell reads one command per line and runs it against app until EOF, quit or ctx ends.
// Errors are printed and the loop continues.
func runShell(ctx context.Context, app *advisor.App, in io.Reader, out io.Writer) error {
	app.Start(ctx)

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	fmt.Fprint(out, shellPrompt)
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if quit := runShellLine(ctx, app, line, out); quit {
				return nil
			}
			fmt.Fprint(out, shellPrompt)
		}
	}
}

// runShellLine executes one line and reports whether the shell should exit.
func runShellLine(ctx context.Context, app *advisor.App, line string, out io.Writer) bool {
	args, err := shellquote.Split(line)
	if err != nil {
		printErr(out, err)
		return false
	}
	if len(args) == 0 {
		return false
	}
	switch strings.ToLower(args[0]) {
	case "quit", "exit":
		return true
	}

	root := &cobra.Command{
		Use:           "",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(appCommands(func() *advisor.App { return app })...)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	if err := root.ExecuteContext(ctx); err != nil {
		printErr(out, err)
	}
	return false
}
