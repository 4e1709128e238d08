package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/ekamanam/studysync/internal/logging"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	List(ctx context.Context) error
	Add(ctx context.Context, path string) error
	Open(ctx context.Context, id, page string) error
	Edit(ctx context.Context, id string) error
	Remove(ctx context.Context, id string) error
	Hubs(ctx context.Context) error
	HubNew(ctx context.Context, name string) error
	HubAdd(ctx context.Context, hubID, itemID string) error
	HubShow(ctx context.Context, hubID string) error
	Ask(ctx context.Context, id, page, question string) error
	Answer(ctx context.Context, id, page string) error
	Search(ctx context.Context, id, words string) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
}

const helpText = `Available commands:
  list                          list library items
  add <path>                    add a document
  open <id> <page>              record reading progress
  edit <id>                     edit item details
  remove <id>                   remove an item
  hubs                          list learning hubs
  hubnew <name>                 create a hub
  hubadd <hub> <item>           add an item to a hub
  hubshow <hub>                 show a hub and its items
  ask <id> <page> <question>    look up a cached answer
  answer <id> <page>            record an answer
  search <id> <words>           find pages by keyword
  sync                          reconcile with the remote store
  status                        show sync status
  exit | quit                   leave the program`

// runREPL reads commands from scanner and dispatches them to a until EOF or
// "exit". The prompt shows statusFn. Command errors are printed and the loop
// continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("studysync %s> ", statusFn()))
		if !scanner.Scan() || ctx.Err() != nil {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		ctx := logging.ContextWith(ctx, "cmd", cmd)

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "l", "list":
			err = a.List(ctx)

		case "add":
			if usage(args, 1, "add <path>") {
				err = a.Add(ctx, strings.Join(args, " "))
			}

		case "open":
			if usage(args, 2, "open <id> <page>") {
				err = a.Open(ctx, args[0], args[1])
			}

		case "edit":
			if usage(args, 1, "edit <id>") {
				err = a.Edit(ctx, args[0])
			}

		case "remove", "rm":
			if usage(args, 1, "remove <id>") {
				err = a.Remove(ctx, args[0])
			}

		case "hubs":
			err = a.Hubs(ctx)

		case "hubnew":
			if usage(args, 1, "hubnew <name>") {
				err = a.HubNew(ctx, strings.Join(args, " "))
			}

		case "hubadd":
			if usage(args, 2, "hubadd <hub> <item>") {
				err = a.HubAdd(ctx, args[0], args[1])
			}

		case "hubshow":
			if usage(args, 1, "hubshow <hub>") {
				err = a.HubShow(ctx, args[0])
			}

		case "ask":
			if usage(args, 2, "ask <id> <page> <question>") {
				err = a.Ask(ctx, args[0], args[1], strings.Join(args[2:], " "))
			}

		case "answer":
			if usage(args, 2, "answer <id> <page>") {
				err = a.Answer(ctx, args[0], args[1])
			}

		case "search":
			if usage(args, 2, "search <id> <words>") {
				err = a.Search(ctx, args[0], strings.Join(args[1:], " "))
			}

		case "sync":
			err = a.Sync(ctx)

		case "status":
			err = a.Status(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", err)
		}
	}
}

func usage(args []string, n int, text string) bool {
	if len(args) < n {
		printlnFn("Usage:", text)
		return false
	}
	return true
}
