package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knowledgebrain/knowbrain/internal/client/models"
)

// List fetches and prints one page of the note listing, newest first.
// An optional argument selects the page number (zero-based).
func (a *App) List(ctx context.Context, args []string) error {
	page := 0
	if len(args) > 0 {
		p, err := strconv.Atoi(args[0])
		if err != nil || p < 0 {
			printlnFn("Usage: list [page]")
			return nil
		}
		page = p
	}

	if err := a.notes.FetchPage(ctx, page, a.config.PageSize); err != nil {
		printlnFn("List failed:", err)
		return err
	}

	notes := a.notes.Cache().Notes()
	if len(notes) == 0 {
		printlnFn("No notes.")
		return nil
	}
	for _, n := range notes {
		printlnFn(formatNoteLine(n))
	}
	meta := a.notes.Cache().PageMeta()
	printlnFn(fmt.Sprintf("page %d/%d, %d notes total", meta.Page+1, meta.TotalPages, meta.TotalElements))
	return nil
}

// Open fetches a single note and prints it in full.
func (a *App) Open(ctx context.Context, args []string) error {
	id, err := a.noteID(args, "Enter note id")
	if err != nil {
		return err
	}

	n, err := a.notes.Open(ctx, id)
	if err != nil {
		printlnFn("Open failed:", err)
		return err
	}

	printlnFn("#", n.ID)
	printlnFn(n.Title)
	if n.Content != nil && *n.Content != "" {
		printlnFn("")
		printlnFn(*n.Content)
	}
	printlnFn("")
	printlnFn("updated", n.UpdatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// New prompts for a title and body and creates the note. The created note
// appears at the top of the listing immediately.
func (a *App) New(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter title", os.Stdout)
	if err != nil {
		return err
	}

	content, err := GetMultiline(a.reader, "Enter content", os.Stdout)
	if err != nil {
		return err
	}

	n, err := a.notes.Create(ctx, title, content)
	if err != nil {
		printlnFn("Create failed:", err)
		return err
	}

	printlnFn("Created note", n.ID)
	return nil
}

// Edit opens a note for line-by-line editing. Every entered line replaces the
// note body so far and is handed to the autosave cycle; nothing is written
// until the input has been quiet long enough, and rapid lines coalesce into
// a single write. A line containing only "." finishes the session.
func (a *App) Edit(ctx context.Context, args []string) error {
	id, err := a.noteID(args, "Enter note id")
	if err != nil {
		return err
	}

	n, err := a.notes.Open(ctx, id)
	if err != nil {
		printlnFn("Open failed:", err)
		return err
	}

	title, err := getSimpleText(a.reader, fmt.Sprintf("New title (empty keeps %q)", n.Title), os.Stdout)
	if err != nil {
		return err
	}
	if title == "" {
		title = n.Title
	}

	printlnFn("Enter content, one line at a time ('.' on its own line to finish):")
	var lines []string
	edited := title != n.Title
	for {
		line, rerr := a.reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if line == "." || (rerr != nil && line == "") {
			break
		}
		lines = append(lines, line)
		edited = true
		a.notes.Edit(id, title, strings.Join(lines, "\n"))
		if rerr != nil {
			break
		}
	}

	if edited && len(lines) == 0 {
		// Title-only change still has to reach the autosave cycle.
		content := ""
		if n.Content != nil {
			content = *n.Content
		}
		a.notes.Edit(id, title, content)
	}

	if edited {
		printlnFn("Editing finished; changes autosave shortly.")
	} else {
		a.notes.CloseNote(id)
		printlnFn("No changes.")
	}
	return nil
}

// Delete removes a note remotely and from the local views.
func (a *App) Delete(ctx context.Context, args []string) error {
	id, err := a.noteID(args, "Enter note id to delete")
	if err != nil {
		return err
	}

	if err := a.notes.Delete(ctx, id); err != nil {
		printlnFn("Delete failed:", err)
		return err
	}

	printlnFn("Deleted", id)
	return nil
}

// Search runs a full-text query and prints the ranked results. The primary
// listing is left untouched.
func (a *App) Search(ctx context.Context, args []string) error {
	if len(args) == 0 {
		printlnFn("Usage: search <query>")
		return nil
	}
	query := strings.Join(args, " ")

	if err := a.notes.Search(ctx, query, 0, a.config.PageSize); err != nil {
		printlnFn("Search failed:", err)
		return err
	}

	results := a.notes.Cache().SearchResults()
	if len(results) == 0 {
		printlnFn("No matches.")
		return nil
	}
	for _, r := range results {
		printlnFn(formatNoteLine(r.Note))
		if r.Headline != "" {
			printlnFn("   ", r.Headline)
		}
	}
	meta := a.notes.Cache().SearchMeta()
	printlnFn(fmt.Sprintf("%d matches", meta.TotalElements))
	return nil
}

// noteID resolves the note id from command arguments, prompting when absent.
func (a *App) noteID(args []string, prompt string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return getSimpleText(a.reader, prompt, os.Stdout)
}

func formatNoteLine(n models.Note) string {
	return fmt.Sprintf("%-36s  %-40s  %s", n.ID, truncate(n.Title, 40), n.UpdatedAt.Format("2006-01-02 15:04"))
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
