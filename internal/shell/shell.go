// Package shell is the line-oriented front end of the storefront. Each input
// line is one action; failures are printed as notices and the loop goes on.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/fjod/storefront/internal/app"
	"github.com/fjod/storefront/internal/domain"
)

var errUsage = fmt.Errorf("%w: wrong arguments", domain.ErrValidation)

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, args []string) error
}

type Shell struct {
	app      *app.App
	out      io.Writer
	logger   *zap.Logger
	commands map[string]command
}

func New(a *app.App, out io.Writer, logger *zap.Logger) *Shell {
	s := &Shell{app: a, out: out, logger: logger}
	s.commands = map[string]command{
		"categories": {"categories", "list product categories", s.categories},
		"products":   {"products <category>", "list the products of a category", s.products},
		"show":       {"show <id>", "show a listed product", s.show},
		"add":        {"add <id>", "add a listed product to the cart", s.add},
		"inc":        {"inc <id>", "increase a cart item by one", s.inc},
		"dec":        {"dec <id>", "decrease a cart item by one", s.dec},
		"cart":       {"cart", "show the cart", s.cart},
		"clear":      {"clear", "empty the cart", s.clear},
		"checkout":   {"checkout", "place an order for the cart", s.checkout},
		"signup":     {"signup <name> <email> <password>", "create an account and sign in", s.signUp},
		"signin":     {"signin <email> <password>", "sign in", s.signIn},
		"signout":    {"signout", "sign out", s.signOut},
		"whoami":     {"whoami", "show the signed-in user", s.whoami},
		"profile":    {"profile [name=<n>] [password=<p>]", "change name or password", s.profile},
		"orders":     {"orders", "fetch and show your orders", s.orders},
		"toggle":     {"toggle <id>", "expand or collapse an order", s.toggle},
		"pay":        {"pay <id>", "mark a new order as paid", s.pay},
		"receive":    {"receive <id>", "confirm delivery of a paid order", s.receive},
		"help":       {"help", "show this list", s.help},
	}
	return s
}

// Run reads commands from in until EOF, "quit" or ctx is done. Cancelling
// ctx returns at once, even while a read is pending.
func (s *Shell) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	s.prompt()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("shell interrupted", zap.Error(ctx.Err()))
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-readErr
			}
			if !s.Execute(ctx, line) {
				return nil
			}
			s.prompt()
		}
	}
}

// Execute runs one line and reports whether the shell should keep going.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return true
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	if name == "quit" || name == "exit" {
		return false
	}

	cmd, ok := s.commands[name]
	if !ok {
		s.printf("unknown command %q, type help\n", name)
		return true
	}
	if err := cmd.run(ctx, args); err != nil {
		s.logger.Debug("command failed", zap.String("command", name), zap.Error(err))
		if errors.Is(err, errUsage) {
			s.printf("usage: %s\n", cmd.usage)
			return true
		}
		s.printf("! %s\n", app.Describe(err))
	}
	return true
}

func (s *Shell) prompt() {
	if badge := s.app.Badge(); badge > 0 {
		s.printf("storefront [cart %d]> ", badge)
		return
	}
	s.printf("storefront> ")
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) help(context.Context, []string) error {
	names := make([]string, 0, len(s.commands))
	for name := range s.commands {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(s.out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%s\n", s.commands[name].usage, s.commands[name].help)
	}
	fmt.Fprintf(tw, "  quit\tleave the shell\n")
	return tw.Flush()
}

func oneArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", errUsage
	}
	return args[0], nil
}
