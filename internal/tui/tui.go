package tui

import (
	"context"
	"errors"
	"fmt"

	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"

	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/gateway"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/model"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/session"
	"github.com/consultaterapiaspepon-debug/mi-agenda-app/internal/syncer"
)

const (
	viewHeader = "header"
	viewFooter = "footer"
	viewTasks  = "tasks"
	viewSetup  = "setup"
	viewForm   = "form"
	viewHelp   = "help"
)

// App is the wiring the UI renders from. When Configured is false the
// UI stays on the setup screen; no form is ever shown.
type App struct {
	Configured bool
	ConfigPath string
	Gateway    *gateway.Gateway
	Syncer     *syncer.Syncer
	Session    *session.Manager
}

type UI struct {
	gui *gocui.Gui
	app App

	identityID string
	tasks      []model.Task
	selected   int

	form       *formState
	formEditor *formEditor
	helpActive bool
	status     string
}

type formState struct {
	taskID string
	fields []formField
	index  int
}

type formEditor struct {
	ui *UI
}

func Run(ctx context.Context, app App) error {
	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := &UI{gui: gui, app: app}
	ui.formEditor = &formEditor{ui: ui}

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}

	if app.Configured {
		// Pushed snapshots and the resolved identity arrive on their
		// own goroutines; both re-enter the UI through gui.Update.
		app.Syncer.SetOnChange(func() {
			gui.Update(func(*gocui.Gui) error {
				ui.refreshTasks()
				return nil
			})
		})

		go func() {
			identity, ok := <-app.Session.Identities()
			if !ok {
				gui.Update(func(*gocui.Gui) error {
					ui.status = "anonymous sign-in failed"
					return nil
				})
				return
			}
			gui.Update(func(*gocui.Gui) error {
				ui.applyIdentity(ctx, identity.ID)
				return nil
			})
		}()
	}

	if err := gui.MainLoop(); err != nil && err != gocui.ErrQuit {
		return err
	}

	return nil
}

func (u *UI) applyIdentity(ctx context.Context, identityID string) {
	u.identityID = identityID
	u.app.Gateway.SetIdentity(identityID)
	u.app.Syncer.SetIdentity(ctx, identityID)
	u.refreshTasks()
}

func (u *UI) refreshTasks() {
	u.tasks = u.app.Syncer.Tasks()
	if u.selected >= len(u.tasks) {
		u.selected = max(len(u.tasks)-1, 0)
	}
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	if err := gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'q', gocui.ModNone, u.quit); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'a', gocui.ModNone, u.addTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'e', gocui.ModNone, u.editTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'd', gocui.ModNone, u.deleteTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", 'x', gocui.ModNone, u.toggleTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding("", '?', gocui.ModNone, u.toggleHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeyArrowDown, gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'j', gocui.ModNone, u.moveDown); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeyArrowUp, gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, 'k', gocui.ModNone, u.moveUp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewTasks, gocui.KeySpace, gocui.ModNone, u.toggleTask); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEnter, gocui.ModNone, u.submitForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyTab, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyBacktab, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowDown, gocui.ModNone, u.nextFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyArrowUp, gocui.ModNone, u.prevFormField); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewForm, gocui.KeyEsc, gocui.ModNone, u.cancelForm); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, gocui.KeyEsc, gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, 'q', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	if err := gui.SetKeybinding(viewHelp, '?', gocui.ModNone, u.closeHelp); err != nil {
		return err
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := maxY - 2
	if footerY1 < 1 {
		footerY1 = 1
	}
	footerY0 := footerY1 - 2
	if footerY0 < 1 {
		footerY0 = 1
	}
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	if !u.app.Configured {
		return u.layoutSetup(gui, maxX, bodyTop, bodyBottom)
	}

	tasksView, err := gui.SetView(viewTasks, 0, bodyTop, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		tasksView.Title = "Tasks"
		tasksView.TitleColor = gocui.ColorCyan
	}
	applyViewStyle(tasksView, u.form == nil && !u.helpActive)
	u.renderTasks(tasksView)

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(viewTasks)
	}

	gui.Cursor = u.form != nil

	return nil
}

func (u *UI) layoutSetup(gui *gocui.Gui, maxX, bodyTop, bodyBottom int) error {
	setupView, err := gui.SetView(viewSetup, 0, bodyTop, maxX-1, bodyBottom, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		setupView.Title = "Setup"
		setupView.Wrap = true
	}
	setupView.Clear()
	fmt.Fprintln(setupView, "Waiting for configuration.")
	fmt.Fprintln(setupView, "")
	fmt.Fprintf(setupView, "Set store_addr in %s and restart.\n", u.app.ConfigPath)
	_, _ = gui.SetCurrentView(viewSetup)
	return nil
}

func (u *UI) renderHeader(view *gocui.View) {
	view.Clear()
	switch {
	case !u.app.Configured:
		fmt.Fprint(view, "Agenda | not configured")
	case u.identityID == "":
		fmt.Fprint(view, "Agenda | signing in anonymously...")
	default:
		done := 0
		for _, task := range u.tasks {
			if task.Completed {
				done++
			}
		}
		fmt.Fprintf(view, "Agenda | identity %s | %d tasks (%d done)", shortIdentity(u.identityID), len(u.tasks), done)
	}
}

func (u *UI) renderFooter(view *gocui.View) {
	view.Clear()
	view.SetOrigin(0, 0)
	view.SetCursor(0, 0)

	if u.app.Configured {
		fmt.Fprintln(view, "a add | e edit | x/space toggle | d delete | j/k move | ? help | q quit")
	} else {
		fmt.Fprintln(view, "q quit")
	}
	if u.status != "" {
		fmt.Fprint(view, u.status)
	}
}

func (u *UI) renderTasks(view *gocui.View) {
	view.Clear()

	if u.identityID == "" || u.app.Syncer.Loading() {
		fmt.Fprintln(view, "Loading tasks...")
		return
	}

	if len(u.tasks) == 0 {
		fmt.Fprintln(view, "No tasks yet. Press a to add one.")
		return
	}

	for i, task := range u.tasks {
		prefix := " "
		if i == u.selected {
			prefix = ">"
		}
		fmt.Fprintf(view, "%s %s\n", prefix, formatTaskSummary(task))
	}
	view.SetCursor(0, min(u.selected, len(u.tasks)-1))
}

func (u *UI) selectedTask() *model.Task {
	if u.selected >= 0 && u.selected < len(u.tasks) {
		return &u.tasks[u.selected]
	}
	return nil
}

func (u *UI) moveDown(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected < len(u.tasks)-1 {
		u.selected++
	}
	return nil
}

func (u *UI) moveUp(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.selected > 0 {
		u.selected--
	}
	return nil
}

func (u *UI) addTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || !u.ready() {
		return nil
	}
	u.form = &formState{fields: buildFormFields(nil)}
	return nil
}

func (u *UI) editTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || !u.ready() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.form = &formState{taskID: selected.ID, fields: buildFormFields(selected)}
	return nil
}

func (u *UI) toggleTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || !u.ready() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	if err := u.app.Gateway.Toggle(context.Background(), *selected); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return nil
}

func (u *UI) deleteTask(gui *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || !u.ready() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	if err := u.app.Gateway.Delete(context.Background(), selected.ID); err != nil {
		u.status = err.Error()
		return nil
	}
	u.status = ""
	return nil
}

func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}

	text, dueDate, err := parseFormFields(u.form.fields)
	if err != nil {
		u.status = err.Error()
		return nil
	}

	// On failure the form stays open with its values: input is only
	// cleared, and edit mode only exited, by a successful write.
	if u.form.taskID == "" {
		err = u.app.Gateway.Create(context.Background(), text, dueDate)
	} else {
		err = u.app.Gateway.Edit(context.Background(), u.form.taskID, text, dueDate)
	}
	if err != nil {
		if errors.Is(err, gateway.ErrEmptyText) {
			u.status = "task text must not be empty"
		} else {
			u.status = err.Error()
		}
		return nil
	}

	u.status = ""
	u.closeForm(gui)
	return nil
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.closeForm(gui)
	return nil
}

func (u *UI) closeForm(gui *gocui.Gui) {
	u.form = nil
	if gui != nil {
		_ = gui.DeleteView(viewForm)
		_, _ = gui.SetCurrentView(viewTasks)
	}
}

func (u *UI) nextFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(view)
	return nil
}

func (u *UI) prevFormField(gui *gocui.Gui, view *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(view)
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	if u.form == nil {
		return nil
	}

	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(8, max(6, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewForm, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Wrap = true
	}
	if u.form.taskID != "" {
		view.Title = "Edit Task"
	} else {
		view.Title = "New Task"
	}
	view.Editable = true
	view.KeybindOnEdit = true
	view.Editor = u.formEditor
	u.renderForm(view)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) renderForm(view *gocui.View) {
	if u.form == nil || view == nil {
		return
	}
	view.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		fmt.Fprintf(view, "%s%s: %s\n", prefix, field.Label, field.Value)
	}
	label := u.form.fields[u.form.index].Label + ": "
	cursorX := len([]rune(label)) + len([]rune(u.form.fields[u.form.index].Value)) + 2
	view.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(view *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	switch {
	case key == gocui.KeySpace:
		field.Value += " "
	case key == gocui.KeyBackspace || key == gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case ch != 0 && mod == gocui.ModNone:
		field.Value += string(ch)
	default:
		return false
	}

	ui.renderForm(view)
	return true
}

func (u *UI) toggleHelp(gui *gocui.Gui, _ *gocui.View) error {
	if !u.app.Configured {
		return nil
	}
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	_ = gui.DeleteView(viewHelp)
	_, _ = gui.SetCurrentView(viewTasks)
	return nil
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 10
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2
	x1 := x0 + width
	y1 := y0 + height

	view, err := gui.SetView(viewHelp, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		view.Title = "Help"
		view.Wrap = true
	}
	view.Clear()
	fmt.Fprint(view, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func (u *UI) ready() bool {
	return u.app.Configured && u.identityID != "" && u.app.Gateway.Ready()
}

func (u *UI) inputActive() bool {
	return u.form != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func helpText() string {
	return `Tasks sync live from the remote store; edits made elsewhere
appear here without a refresh.

  a        add a task
  e        edit the selected task
  x/space  toggle completion
  d        delete the selected task
  j/k      move selection
  enter    save form
  esc      cancel form
  q        quit
`
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func applyViewStyle(view *gocui.View, focused bool) {
	if focused {
		view.FrameColor = gocui.ColorGreen
		view.Highlight = true
		view.SelBgColor = gocui.ColorBlue
		view.SelFgColor = gocui.ColorWhite
	} else {
		view.FrameColor = gocui.ColorDefault
		view.Highlight = false
	}
}
