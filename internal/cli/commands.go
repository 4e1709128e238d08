package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ekamanam/studysync/internal/common"
	"github.com/ekamanam/studysync/internal/filex"
	"github.com/ekamanam/studysync/internal/hubs"
	"github.com/ekamanam/studysync/internal/library"
	"github.com/ekamanam/studysync/internal/models"
	"github.com/ekamanam/studysync/internal/respcache"
)

// List prints every library item, most recently opened first.
func (a *App) List(ctx context.Context) error {
	items, err := a.library.LoadAll(ctx)
	for _, item := range items {
		fmt.Fprintln(a.out, formatItem(item))
	}
	return err
}

// Add reads the document at path and adds it to the library. The display
// name and page count are prompted for.
func (a *App) Add(ctx context.Context, path string) error {
	data, _, err := filex.ReadFile(path)
	if err != nil {
		return err
	}

	base := filepath.Base(path)
	name, err := GetSimpleText(a.reader, fmt.Sprintf("Enter name (default %q)", strings.TrimSuffix(base, filepath.Ext(base))), a.out)
	if err != nil {
		return err
	}
	if name == "" {
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	pages, err := a.promptInt("Enter total pages (empty if unknown)")
	if err != nil {
		return err
	}

	item, err := a.library.Add(ctx, library.NewItem{Name: name, OriginalFileName: base, TotalPages: pages}, data)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s (%d bytes)\n", item.ID, item.SizeBytes)
	return nil
}

// Open records that page of item id was read.
func (a *App) Open(ctx context.Context, id, page string) error {
	p, err := strconv.Atoi(page)
	if err != nil {
		return fmt.Errorf("%w: page must be a number", common.ErrInvalidArgument)
	}
	item, err := a.library.RecordPageTurn(ctx, id, p)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, formatItem(item))
	return nil
}

// Edit prompts for item details. Empty answers keep the current value.
func (a *App) Edit(ctx context.Context, id string) error {
	item, err := a.library.Get(ctx, id)
	if err != nil {
		return err
	}

	var d models.ItemDetails
	fields := []struct {
		label string
		cur   string
		dst   **string
	}{
		{"name", item.Name, &d.Name},
		{"subject", item.Subject, &d.Subject},
		{"class", item.ClassLevel, &d.ClassLevel},
		{"collection", item.CollectionName, &d.CollectionName},
		{"chapter", item.ChapterNumber, &d.ChapterNumber},
		{"workspace", item.Workspace, &d.Workspace},
	}
	for _, f := range fields {
		v, err := GetSimpleText(a.reader, fmt.Sprintf("Enter %s (current %q)", f.label, f.cur), a.out)
		if err != nil {
			return err
		}
		if v != "" {
			*f.dst = &v
		}
	}

	tags, err := GetSimpleText(a.reader, fmt.Sprintf("Enter tags, comma separated (current %q)", strings.Join(item.Tags, ",")), a.out)
	if err != nil {
		return err
	}
	if tags != "" {
		for _, t := range strings.Split(tags, ",") {
			d.Tags = append(d.Tags, strings.TrimSpace(t))
		}
	}

	item, err = a.library.UpdateDetails(ctx, id, d)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, formatItem(item))
	return nil
}

// Remove deletes an item and its cached answers.
func (a *App) Remove(ctx context.Context, id string) error {
	if err := a.library.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Removed", id)
	return nil
}

// Hubs prints every hub, most recently accessed first.
func (a *App) Hubs(ctx context.Context) error {
	all, err := a.hubs.LoadAll(ctx)
	for _, h := range all {
		fmt.Fprintf(a.out, "%s  %s (%d items)\n", h.ID, h.Name, len(h.ItemIDs))
	}
	return err
}

// HubNew creates a hub, prompting for an optional description.
func (a *App) HubNew(ctx context.Context, name string) error {
	desc, err := GetSimpleText(a.reader, "Enter description (optional)", a.out)
	if err != nil {
		return err
	}
	h, err := a.hubs.Create(ctx, hubs.NewHub{Name: name, Description: desc})
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Created hub", h.ID)
	return nil
}

// HubAdd adds a library item to a hub.
func (a *App) HubAdd(ctx context.Context, hubID, itemID string) error {
	if _, err := a.library.Get(ctx, itemID); err != nil {
		return err
	}
	h, err := a.hubs.AddItem(ctx, hubID, itemID)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s now has %d items\n", h.Name, len(h.ItemIDs))
	return nil
}

// HubShow prints a hub and the items it still resolves to.
func (a *App) HubShow(ctx context.Context, hubID string) error {
	h, err := a.hubs.Touch(ctx, hubID)
	if err != nil {
		return err
	}
	items, err := a.hubs.Resolve(ctx, h, a.library)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s  %s\n", h.Name, h.Description)
	for _, item := range items {
		fmt.Fprintln(a.out, "  "+formatItem(item))
	}
	return nil
}

// Ask looks up a cached answer for question on a page.
func (a *App) Ask(ctx context.Context, id, page, question string) error {
	p, err := strconv.Atoi(page)
	if err != nil {
		return fmt.Errorf("%w: page must be a number", common.ErrInvalidArgument)
	}
	if strings.TrimSpace(question) == "" {
		if question, err = GetSimpleText(a.reader, "Enter question", a.out); err != nil {
			return err
		}
	}

	hit, err := a.cache.Lookup(ctx, respcache.Query{ItemID: id, Page: p, Question: question})
	if err != nil {
		return err
	}
	if hit == nil {
		fmt.Fprintf(a.out, "No cached answer. Use 'answer %s %d' to record one.\n", id, p)
		return nil
	}
	fmt.Fprintf(a.out, "Cached answer (score %.2f, asked %q):\n%s\n", hit.Score, hit.Question, hit.Response)
	return nil
}

// Answer records a question and its response for a page.
func (a *App) Answer(ctx context.Context, id, page string) error {
	p, err := strconv.Atoi(page)
	if err != nil {
		return fmt.Errorf("%w: page must be a number", common.ErrInvalidArgument)
	}
	if _, err := a.library.Get(ctx, id); err != nil {
		return err
	}

	question, err := GetSimpleText(a.reader, "Enter question", a.out)
	if err != nil {
		return err
	}
	mode, err := GetSimpleText(a.reader, "Enter mode (default \"explain\")", a.out)
	if err != nil {
		return err
	}
	if mode == "" {
		mode = "explain"
	}
	response, err := GetMultiline(a.reader, "Enter response", a.out)
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Enter page text (optional)", a.out)
	if err != nil {
		return err
	}

	q, err := a.cache.Store(ctx, respcache.Answer{
		ItemID:      id,
		Page:        p,
		PageContent: text,
		Question:    question,
		Mode:        mode,
		Response:    response,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Stored answer %s (~%d tokens)\n", q.QueryID, q.TokensUsedEstimate)
	return nil
}

// Search lists pages of an item whose keywords match words.
func (a *App) Search(ctx context.Context, id, words string) error {
	hits, err := a.index.Search(ctx, id, words)
	if errors.Is(err, common.ErrRemoteUnavailable) {
		fmt.Fprintln(a.out, "Page search needs the remote store.")
		return nil
	}
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Fprintln(a.out, "No matching pages.")
	}
	for _, h := range hits {
		fmt.Fprintf(a.out, "page %d: %s\n", h.Page, strings.Join(h.Matched, ", "))
	}
	return nil
}

// Sync reconciles the library and hubs with the remote store.
func (a *App) Sync(ctx context.Context) error {
	if _, ok := a.sess.Remote(); !ok {
		fmt.Fprintln(a.out, "Remote store not available, working locally.")
		return nil
	}
	if err := a.reconcile(ctx); err != nil {
		return err
	}
	return a.Status(ctx)
}

// Status prints the passive sync status.
func (a *App) Status(ctx context.Context) error {
	st := a.sess.Status()
	fmt.Fprintf(a.out, "Sync: %s\n", st.State)
	if !st.LastSync.IsZero() {
		fmt.Fprintf(a.out, "Last sync: %s\n", st.LastSync.Local().Format("2006-01-02 15:04:05"))
	}
	if st.LastError != nil {
		fmt.Fprintf(a.out, "Last error: %v\n", st.LastError)
	}
	pending, err := a.library.Pending(ctx)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		fmt.Fprintf(a.out, "Items waiting for upload: %d\n", len(pending))
	}
	return nil
}

func (a *App) promptInt(prompt string) (int, error) {
	s, err := GetSimpleText(a.reader, prompt, a.out)
	if err != nil || s == "" {
		return 0, err
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a page count", common.ErrInvalidArgument, s)
	}
	return n, nil
}

func formatItem(item *models.LibraryItem) string {
	pages := "?"
	if item.TotalPages > 0 {
		pages = strconv.Itoa(item.TotalPages)
	}
	return fmt.Sprintf("%s  %s  p.%d/%s  %d%%", item.ID, item.Name, item.LastPage, pages, item.ProgressPercent)
}
