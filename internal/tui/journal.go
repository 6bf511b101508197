package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/sadopc/moodlog/internal/mood"
	"github.com/sadopc/moodlog/internal/store"
)

type entryFormKind int

const (
	entryFormNew entryFormKind = iota
	entryFormEdit
	entryFormDelete
)

type journalModel struct {
	env    *env
	width  int
	height int

	entries []store.Entry
	tags    []string
	cursor  int
	detail  bool
	err     error

	formActive  bool
	formKind    entryFormKind
	formEntryID int64
	form        *huh.Form

	// Form values as pointers (survive value copies)
	formMood    *int
	formDate    *string
	formContent *string
	formTags    *string
	formConfirm *bool
}

func newJournalModel(e *env) journalModel {
	m, date, content, tags, confirm := 0, "", "", "", false
	return journalModel{
		env:         e,
		formMood:    &m,
		formDate:    &date,
		formContent: &content,
		formTags:    &tags,
		formConfirm: &confirm,
	}
}

func (j *journalModel) setSize(w, h int) {
	j.width = w
	j.height = h
}

type journalDataMsg struct {
	entries []store.Entry
	tags    []string
	err     error
}

func (j journalModel) refresh() tea.Cmd {
	e := j.env
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		entries, err := e.journal.ListEntries(ctx, store.EntryFilter{})
		if err != nil {
			return journalDataMsg{err: err}
		}
		// Tag suggestions are optional.
		var names []string
		if tags, err := e.journal.ListTags(ctx); err == nil {
			for _, t := range tags {
				names = append(names, t.Name)
			}
		} else {
			e.logger.Printf("list tags: %v", err)
		}
		return journalDataMsg{entries: entries, tags: names}
	}
}

func (j journalModel) selected() (store.Entry, bool) {
	if j.cursor < 0 || j.cursor >= len(j.entries) {
		return store.Entry{}, false
	}
	return j.entries[j.cursor], true
}

func (j journalModel) update(msg tea.Msg) (journalModel, tea.Cmd) {
	if j.formActive && j.form != nil {
		return j.updateForm(msg)
	}

	switch msg := msg.(type) {
	case journalDataMsg:
		j.entries = msg.entries
		j.tags = msg.tags
		j.err = msg.err
		if j.cursor >= len(j.entries) {
			j.cursor = max(0, len(j.entries)-1)
		}
		return j, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if j.cursor > 0 {
				j.cursor--
			}
		case key.Matches(msg, keys.Down):
			if j.cursor < len(j.entries)-1 {
				j.cursor++
			}
		case key.Matches(msg, keys.Enter):
			j.detail = len(j.entries) > 0
		case key.Matches(msg, keys.Back):
			j.detail = false
		case key.Matches(msg, keys.New):
			return j.showForm()
		case key.Matches(msg, keys.Edit):
			if e, ok := j.selected(); ok {
				return j.showEditForm(e)
			}
		case key.Matches(msg, keys.Delete):
			if e, ok := j.selected(); ok {
				return j.showDeleteForm(e)
			}
		}
	}
	return j, nil
}

func moodOptions() []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(mood.Levels))
	for i := len(mood.Levels) - 1; i >= 0; i-- {
		l := mood.Levels[i]
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s %s", l.Marker, l.Label), l.Value))
	}
	return opts
}

func (j journalModel) showForm() (journalModel, tea.Cmd) {
	*j.formMood = 3
	*j.formDate = mood.DayKey(j.env.now())
	*j.formContent = ""
	*j.formTags = ""

	j.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().Title("How are you feeling?").Options(moodOptions()...).Value(j.formMood),
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(j.formDate).Validate(validateDay),
			huh.NewText().Title("What happened?").Value(j.formContent),
			huh.NewInput().Title("Tags (comma-separated)").Value(j.formTags).Suggestions(j.tags),
		).Title("New Entry"),
	).WithShowHelp(true).WithShowErrors(true)

	j.formKind = entryFormNew
	j.formActive = true
	j.detail = false
	return j, j.form.Init()
}

func (j journalModel) showEditForm(e store.Entry) (journalModel, tea.Cmd) {
	*j.formMood = mood.Lookup(e.Mood).Value
	*j.formContent = e.Content
	names := make([]string, 0, len(e.Selections))
	for _, t := range e.Selections {
		names = append(names, t.Name)
	}
	*j.formTags = strings.Join(names, ", ")

	j.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().Title("How were you feeling?").Options(moodOptions()...).Value(j.formMood),
			huh.NewText().Title("What happened?").Value(j.formContent),
			huh.NewInput().Title("Tags (comma-separated)").Value(j.formTags).Suggestions(j.tags),
		).Title("Edit Entry for "+e.Date),
	).WithShowHelp(true).WithShowErrors(true)

	j.formKind = entryFormEdit
	j.formEntryID = e.ID
	j.formActive = true
	return j, j.form.Init()
}

func (j journalModel) showDeleteForm(e store.Entry) (journalModel, tea.Cmd) {
	*j.formConfirm = false
	title := e.Title()
	if title == "" {
		title = mood.Label(e.Mood) + " entry"
	}
	j.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %q from %s?", truncate(title, 40), e.Date)).
				Affirmative("Delete").
				Negative("Keep").
				Value(j.formConfirm),
		),
	)
	j.formKind = entryFormDelete
	j.formEntryID = e.ID
	j.formActive = true
	return j, j.form.Init()
}

func validateDay(s string) error {
	if _, err := mood.ParseDayKey(strings.TrimSpace(s), time.Local); err != nil {
		return errors.New("use the YYYY-MM-DD format")
	}
	return nil
}

func (j journalModel) updateForm(msg tea.Msg) (journalModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			j.formActive = false
			j.form = nil
			return j, nil
		}
	}

	form, cmd := j.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		j.form = f
	}

	if j.form.State == huh.StateCompleted {
		j.formActive = false
		switch j.formKind {
		case entryFormEdit:
			m := *j.formMood
			content := strings.TrimSpace(*j.formContent)
			tags := splitTags(*j.formTags)
			if tags == nil {
				tags = []string{}
			}
			return j, j.updateEntry(j.formEntryID, store.EntryUpdate{Mood: &m, Content: &content, Tags: tags})
		case entryFormDelete:
			if !*j.formConfirm {
				return j, nil
			}
			j.detail = false
			return j, j.deleteEntry(j.formEntryID)
		}
		return j, j.saveEntry(store.EntryInput{
			Date:    strings.TrimSpace(*j.formDate),
			Mood:    *j.formMood,
			Content: strings.TrimSpace(*j.formContent),
			Tags:    splitTags(*j.formTags),
		})
	}

	return j, cmd
}

func (j journalModel) saveEntry(in store.EntryInput) tea.Cmd {
	e := j.env
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		entry, err := e.journal.CreateEntry(ctx, in)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Save failed: %v", err), isError: true}
		}
		return entryCreatedMsg{entry: entry}
	}
}

func (j journalModel) updateEntry(id int64, in store.EntryUpdate) tea.Cmd {
	e := j.env
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		entry, err := e.journal.UpdateEntry(ctx, id, in)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Update failed: %v", err), isError: true}
		}
		return entryChangedMsg{text: fmt.Sprintf("Updated entry for %s", entry.Date)}
	}
}

func (j journalModel) deleteEntry(id int64) tea.Cmd {
	e := j.env
	return func() tea.Msg {
		ctx, cancel := e.ctx()
		defer cancel()
		if err := e.journal.DeleteEntry(ctx, id); err != nil {
			return statusMsg{text: fmt.Sprintf("Delete failed: %v", err), isError: true}
		}
		return entryChangedMsg{text: "Entry deleted"}
	}
}

func (j journalModel) view() string {
	w := j.width - 4
	title := titleStyle.Render("Journal")

	if j.formActive && j.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", j.form.View()),
		)
	}
	if j.err != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", errorStyle.Render(j.err.Error())),
		)
	}
	if j.detail && j.cursor < len(j.entries) {
		return j.renderDetail(w, j.entries[j.cursor])
	}
	return j.renderList(w)
}

func (j journalModel) renderList(w int) string {
	var rows []string
	rows = append(rows, titleStyle.Render("Journal"), "")

	if len(j.entries) == 0 {
		rows = append(rows, mutedStyle.Render("  No entries yet. Press n to write the first one."))
		return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
	}

	visible := j.height - 8
	if visible < 3 {
		visible = 3
	}
	start := 0
	if j.cursor >= visible {
		start = j.cursor - visible + 1
	}
	end := min(start+visible, len(j.entries))

	for i := start; i < end; i++ {
		e := j.entries[i]
		cursor := "  "
		style := normalItemStyle
		if i == j.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := fmt.Sprintf("%s%s %s %-8s %s", cursor, e.Date, moodMarker(e.Mood), mood.Label(e.Mood), truncate(e.Title(), w-34))
		rows = append(rows, style.Render(row))
	}

	rows = append(rows, "", mutedStyle.Render(fmt.Sprintf("  %d entries  n: new  u: edit  d: delete  enter: open", len(j.entries))))
	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}

func (j journalModel) renderDetail(w int, e store.Entry) string {
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render(e.Date), "  ",
		moodStyle(e.Mood).Render(fmt.Sprintf("%s %s", mood.Lookup(e.Mood).Marker, mood.Label(e.Mood))),
	)

	content := e.Content
	if w > 6 {
		content = wordwrap.String(content, w-6)
	}
	if content == "" {
		content = mutedStyle.Render("(no text)")
	}

	parts := []string{header, "", content}
	if tags := tagList(e); tags != "" {
		parts = append(parts, "", highlightStyle.Render(tags))
	}
	parts = append(parts, "", mutedStyle.Render("  u: edit  d: delete  esc: back"))
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}
