package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	fail  error
}

func (f *fakeExec) record(call string, args ...string) error {
	f.calls = append(f.calls, strings.TrimSpace(call+" "+strings.Join(args, " ")))
	return f.fail
}

func (f *fakeExec) List(context.Context) error                 { return f.record("list") }
func (f *fakeExec) Add(_ context.Context, path string) error   { return f.record("add", path) }
func (f *fakeExec) Open(_ context.Context, id, p string) error { return f.record("open", id, p) }
func (f *fakeExec) Edit(_ context.Context, id string) error    { return f.record("edit", id) }
func (f *fakeExec) Remove(_ context.Context, id string) error  { return f.record("remove", id) }
func (f *fakeExec) Hubs(context.Context) error                 { return f.record("hubs") }
func (f *fakeExec) HubNew(_ context.Context, n string) error   { return f.record("hubnew", n) }
func (f *fakeExec) HubAdd(_ context.Context, h, i string) error {
	return f.record("hubadd", h, i)
}
func (f *fakeExec) HubShow(_ context.Context, h string) error { return f.record("hubshow", h) }
func (f *fakeExec) Ask(_ context.Context, id, p, q string) error {
	return f.record("ask", id, p, q)
}
func (f *fakeExec) Answer(_ context.Context, id, p string) error { return f.record("answer", id, p) }
func (f *fakeExec) Search(_ context.Context, id, w string) error { return f.record("search", id, w) }
func (f *fakeExec) Sync(context.Context) error                   { return f.record("sync") }
func (f *fakeExec) Status(context.Context) error                 { return f.record("status") }

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	captureOutput(t)

	input := strings.NewReader(strings.Join([]string{
		"help",
		"list",
		"add ~/books/Biology Grade 9.pdf",
		"open i1 12",
		"edit i1",
		"hubnew Exam prep",
		"hubadd h1 i1",
		"hubshow h1",
		"ask i1 4 What is photosynthesis?",
		"ask i1 4",
		"answer i1 4",
		"search i1 light energy",
		"hubs",
		"sync",
		"status",
		"rm i1",
		"exit",
		"list",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "(synced)" }, bufio.NewScanner(input))

	assert.Equal(t, []string{
		"list",
		"add ~/books/Biology Grade 9.pdf",
		"open i1 12",
		"edit i1",
		"hubnew Exam prep",
		"hubadd h1 i1",
		"hubshow h1",
		"ask i1 4 What is photosynthesis?",
		"ask i1 4",
		"answer i1 4",
		"search i1 light energy",
		"hubs",
		"sync",
		"status",
		"remove i1",
	}, exec.calls)
}

func TestRunREPL_UsageUnknownAndErrors(t *testing.T) {
	out := captureOutput(t)

	input := strings.NewReader("open i1\nfoobar\nlist\nquit\n")
	exec := &fakeExec{fail: errors.New("boom")}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(input))

	assert.Equal(t, []string{"list"}, exec.calls)
	assert.Contains(t, *out, "Usage: open <id> <page>")
	assert.Contains(t, *out, "Unknown command: foobar")
	assert.Contains(t, *out, "error: boom")
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	captureOutput(t)
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("status")))
	assert.Equal(t, []string{"status"}, exec.calls)
}

func TestRunREPL_CanceledContextRunsNothing(t *testing.T) {
	captureOutput(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &fakeExec{}
	runREPL(ctx, exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("sync\nlist\n")))
	assert.Empty(t, exec.calls)
}
