package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli"

	"github.com/test-acc-vaccym/pol/internal/bignum"
	"github.com/test-acc-vaccym/pol/internal/container"
	"github.com/test-acc-vaccym/pol/internal/passgen"
	"github.com/test-acc-vaccym/pol/internal/safe"
)

func initCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:  "init",
		Usage: "create a new safe with up to six containers",
		Flags: []cli.Flag{
			cli.StringSliceFlag{Name: "password, p", Usage: "master password for a new container (repeatable, max 6)"},
			cli.StringSliceFlag{Name: "list-password", Usage: "list-only password, aligned by position with -p"},
			cli.StringSliceFlag{Name: "append-password", Usage: "append-only password, aligned by position with -p"},
			cli.IntFlag{Name: "n-blocks, N", Value: 0, Usage: "number of blocks (default 1024)"},
			cli.IntFlag{Name: "bits", Value: 0, Usage: "group-parameter bit size (default 1025; smaller sizes need --i-know-its-unsafe, and sizes whose blocks cannot hold a full access slice, such as 128, fail at container creation)"},
			cli.BoolFlag{Name: "precomputed, P", Usage: "use precomputed group parameters (test-only)"},
			cli.BoolFlag{Name: "i-know-its-unsafe", Usage: "override the precomputed/undersized-bits safety gate"},
			cli.BoolFlag{Name: "force, f", Usage: "overwrite an existing safe file"},
		},
		Action: func(c *cli.Context) error {
			masters := c.StringSlice("password")
			if len(masters) == 0 {
				return failf(safe.ErrEmptyInput)
			}
			lists := c.StringSlice("list-password")
			appends := c.StringSlice("append-password")

			var containers []safe.PasswordSet
			for i, m := range masters {
				ps := safe.PasswordSet{Master: m}
				if i < len(lists) {
					ps.List = lists[i]
				}
				if i < len(appends) {
					ps.Append = appends[i]
				}
				containers = append(containers, ps)
			}

			params := safe.CreateParams{
				Containers:     containers,
				NBlocks:        c.Int("n-blocks"),
				GPBits:         c.Int("bits"),
				Precomputed:    c.Bool("precomputed"),
				UnsafeOverride: c.Bool("i-know-its-unsafe"),
				NWorkers:       c.GlobalInt("workers"),
				UseThreads:     !c.GlobalBool("processes"),
				Override:       c.Bool("force"),
				Progress: func(p bignum.Progress) {
					fmt.Fprintf(os.Stderr, "\r%s: %.0f%%", p.Phase, p.Fraction*100)
				},
			}
			s, err := safe.Create(ctx, safePath(c), params)
			if err != nil {
				return failf(err)
			}
			fmt.Fprintln(os.Stderr)
			defer s.Close()
			fmt.Fprintln(os.Stderr, green(fmt.Sprintf("created %s with %d container(s)", safePath(c), len(containers))))
			return nil
		},
	}
}

func listCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:  "list",
		Usage: "list every entry visible to a password",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "password, p"},
		},
		Action: func(c *cli.Context) error {
			s, err := openSafe(ctx, c)
			if err != nil {
				return failf(err)
			}
			defer s.Close()

			pw := readPassword(c, "Enter (list-)password: ")
			containers, err := s.OpenContainers(ctx, pw, onMoveAppendEntries)
			if err != nil {
				return failf(err)
			}
			if len(containers) == 0 {
				fmt.Fprintln(os.Stderr, "no containers found")
				return failf(errNoMatchingContainer)
			}
			for i, cc := range containers {
				if i > 0 {
					fmt.Println()
				}
				fmt.Println(cyan(fmt.Sprintf("container @%s", cc.ID())))
				entries, err := cc.List(false)
				if err != nil {
					fmt.Println("  (no list access)")
					continue
				}
				if len(entries) == 0 {
					fmt.Println("  (empty)")
				}
				for _, e := range entries {
					fmt.Printf("  %-20s %s\n", e.Key, e.Note)
				}
			}
			return nil
		},
	}
}

func getCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "get",
		Usage:     "print a secret to stdout",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "password, p"},
		},
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return failf(safe.ErrEmptyInput)
			}
			s, err := openSafe(ctx, c)
			if err != nil {
				return failf(err)
			}
			defer s.Close()

			pw := readPassword(c, "Enter password: ")
			entries, err := matchEntries(ctx, s, pw, key)
			if err != nil {
				return failf(err)
			}
			if len(entries) == 0 {
				return failf(safe.ErrNoSuchEntry)
			}
			if len(entries) > 1 {
				return failf(safe.ErrMultipleMatches)
			}
			fmt.Fprintf(os.Stderr, " note: %q\n", entries[0].Note)
			fmt.Println(entries[0].Secret)
			return nil
		},
	}
}

// matchEntries opens every container password unlocks and collects
// every Get(key) match across them — the shared lookup `get` and
// `copy` both need.
func matchEntries(ctx context.Context, s *safe.Safe, password, key string) ([]container.Entry, error) {
	containers, err := s.OpenContainers(ctx, password, onMoveAppendEntries)
	if err != nil {
		return nil, err
	}
	if len(containers) == 0 {
		return nil, errNoMatchingContainer
	}
	var entries []container.Entry
	for _, cc := range containers {
		es, err := cc.Get(key)
		if err != nil {
			continue // MissingKey: this container's capability doesn't grant Get
		}
		entries = append(entries, es...)
	}
	return entries, nil
}

func storeInFirstWritable(ctx context.Context, s *safe.Safe, password, key, note, secret string) error {
	containers, err := s.OpenContainers(ctx, password, onMoveAppendEntries)
	if err != nil {
		return err
	}
	if len(containers) == 0 {
		return errNoMatchingContainer
	}
	for _, cc := range containers {
		if err := cc.Add(key, note, secret); err != nil {
			continue
		}
		return cc.Save(ctx)
	}
	return safe.ErrNoAppendPermission
}

func putCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "put",
		Usage:     "store a secret from -s or stdin",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "password, p"},
			cli.StringFlag{Name: "secret, s"},
			cli.StringFlag{Name: "note, n"},
		},
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return failf(safe.ErrEmptyInput)
			}
			secret := c.String("secret")
			if secret == "" {
				data, _ := io.ReadAll(os.Stdin)
				secret = string(data)
			}
			if secret == "" {
				return failf(safe.ErrEmptyInput)
			}
			s, err := openSafe(ctx, c)
			if err != nil {
				return failf(err)
			}
			defer s.Close()
			pw := readPassword(c, "Enter (append-)password: ")
			if err := storeInFirstWritable(ctx, s, pw, key, c.String("note"), secret); err != nil {
				return failf(err)
			}
			return nil
		},
	}
}

func pasteCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "paste",
		Usage:     "store a secret read from the clipboard",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "password, p"},
			cli.StringFlag{Name: "note, n"},
		},
		Action: func(c *cli.Context) error {
			if !clipboardAvailable() {
				fmt.Fprintln(os.Stderr, "clipboard access not available; use `polctl put` instead")
				return failf(safe.ErrClipboardUnavailable)
			}
			key := c.Args().First()
			if key == "" {
				return failf(safe.ErrEmptyInput)
			}
			secret, err := clipboard.ReadAll()
			if err != nil || secret == "" {
				return failf(safe.ErrEmptyInput)
			}
			s, err := openSafe(ctx, c)
			if err != nil {
				return failf(err)
			}
			defer s.Close()
			pw := readPassword(c, "Enter (append-)password: ")
			if err := storeInFirstWritable(ctx, s, pw, key, c.String("note"), secret); err != nil {
				return failf(err)
			}
			return nil
		},
	}
}

func copyCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "copy",
		Usage:     "copy a secret to the clipboard",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "password, p"},
		},
		Action: func(c *cli.Context) error {
			if !clipboardAvailable() {
				fmt.Fprintln(os.Stderr, "clipboard access not available; use `polctl get` instead")
				return failf(safe.ErrClipboardUnavailable)
			}
			key := c.Args().First()
			if key == "" {
				return failf(safe.ErrEmptyInput)
			}
			s, err := openSafe(ctx, c)
			if err != nil {
				return failf(err)
			}
			defer s.Close()
			pw := readPassword(c, "Enter password: ")
			entries, err := matchEntries(ctx, s, pw, key)
			if err != nil {
				return failf(err)
			}
			if len(entries) == 0 {
				return failf(safe.ErrNoSuchEntry)
			}
			if len(entries) > 1 {
				return failf(safe.ErrMultipleMatches)
			}
			return copyAndClear(entries[0].Secret)
		},
	}
}

// copyAndClear copies secret to the clipboard and clears it once this
// function returns, via defer rather than the fixed-in-this-port
// source bug spec.md §9 calls out (the Python original's cmd_paste
// calls clipboard.clear() after a `return`, which is dead code).
func copyAndClear(secret string) error {
	if err := clipboard.WriteAll(secret); err != nil {
		return failf(safe.ErrClipboardUnavailable)
	}
	defer clipboard.WriteAll("")
	fmt.Fprintln(os.Stderr, "copied secret to clipboard; it will be cleared now")
	return nil
}

func touchCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:  "touch",
		Usage: "rerandomize every block and persist, without opening any container",
		Action: func(c *cli.Context) error {
			s, err := openSafe(ctx, c)
			if err != nil {
				return failf(err)
			}
			defer s.Close()
			if err := s.Touch(ctx); err != nil {
				return failf(err)
			}
			return nil
		},
	}
}

func rawCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:  "raw",
		Usage: "dump the safe's top-level fields (debugging)",
		Flags: []cli.Flag{
			cli.StringSliceFlag{Name: "password, p"},
		},
		Action: func(c *cli.Context) error {
			s, err := openSafe(ctx, c)
			if err != nil {
				return failf(err)
			}
			defer s.Close()
			for k, v := range s.Data() {
				fmt.Printf("%s: %v\n", k, v)
			}
			for _, pw := range c.StringSlice("password") {
				containers, err := s.OpenContainers(ctx, pw, onMoveAppendEntries)
				if err != nil {
					return failf(err)
				}
				for _, cc := range containers {
					fmt.Println()
					fmt.Println(cyan(fmt.Sprintf("container %s (%s)", cc.ID(), cc.Capability())))
					fmt.Printf("  main_data:   %+v\n", cc.MainData())
					fmt.Printf("  append_data: %+v\n", cc.AppendData())
				}
			}
			return nil
		},
	}
}

func generateCommand(ctx context.Context) cli.Command {
	return cli.Command{
		Name:      "generate",
		Usage:     "generate a random password and store it",
		ArgsUsage: "<key>",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "password, p"},
			cli.StringFlag{Name: "note, n"},
			cli.BoolFlag{Name: "no-copy, N", Usage: "do not copy the generated secret to the clipboard"},
		},
		Action: func(c *cli.Context) error {
			key := c.Args().First()
			if key == "" {
				return failf(safe.ErrEmptyInput)
			}
			secret, err := passgen.GeneratePassword()
			if err != nil {
				return failf(err)
			}
			s, err := openSafe(ctx, c)
			if err != nil {
				return failf(err)
			}
			defer s.Close()
			pw := readPassword(c, "Enter (append-)password: ")
			if err := storeInFirstWritable(ctx, s, pw, key, c.String("note"), secret); err != nil {
				return failf(err)
			}
			if c.Bool("no-copy") || !clipboardAvailable() {
				fmt.Println(secret)
				return nil
			}
			return copyAndClear(secret)
		},
	}
}

func clipboardAvailable() bool {
	return clipboard.Unsupported == false
}
