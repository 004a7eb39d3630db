package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"enclave/internal/domain"
	"enclave/internal/wizard"
)

// stepCopy is the prompt text shown for each step.
var stepCopy = map[wizard.StepID]struct {
	prompt      string
	placeholder string
}{
	wizard.StepActivationCode: {"Enter the activation code you were given", "ABC123"},
	wizard.StepUsername:       {"Choose a username", "alice"},
	wizard.StepPassword:       {"Choose a password", ""},
	wizard.StepPhone:          {"Your phone number", "+61400000000"},
	wizard.StepEmail:          {"Your email address", "name@example.com"},
	wizard.StepEmailCode:      {"Enter the code we emailed you", "123456"},
	wizard.StepCity:           {"Where are you based?", ""},
}

// Model is the bubbletea model of the registration wizard.
type Model struct {
	ctx    context.Context
	ctrl   *wizard.Controller
	cities wizard.CityLister
	styles *StyleSet

	input   textinput.Model
	spinner spinner.Model

	cityList []domain.City
	cityErr  error
	cursor   int

	busy     bool
	fieldErr string
	stepErr  string
	notice   string

	width    int
	done     bool
	canceled bool
	err      error
}

// NewModel returns a wizard model driving ctrl. Calls to the identity
// service run under ctx.
func NewModel(ctx context.Context, ctrl *wizard.Controller, cities wizard.CityLister, theme TermTheme) Model {
	styles := NewStyleSet(theme)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.AccentTxt

	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		cities:  cities,
		styles:  styles,
		spinner: sp,
		width:   80,
	}
	m.input = m.newInput()
	return m
}

// Init starts the cursor blink and loads the city directory.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadCities())
}

func (m Model) loadCities() tea.Cmd {
	if m.cities == nil {
		return nil
	}
	ctx, list := m.ctx, m.cities
	return func() tea.Msg {
		cities, err := list(ctx)
		return citiesMsg{cities: cities, err: err}
	}
}

func (m Model) resend() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return resendResultMsg{err: ctrl.ResendCode(ctx)}
	}
}

func (m Model) advance() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		out, err := ctrl.Advance(ctx)
		return advanceResultMsg{outcome: out, err: err}
	}
}

// newInput builds the text input for the current step, prefilled with the
// answer already given.
func (m Model) newInput() textinput.Model {
	def := m.ctrl.Current()
	ti := textinput.New()
	ti.CharLimit = 128
	ti.Cursor.Style = m.styles.Cursor
	ti.Placeholder = stepCopy[def.ID].placeholder
	if def.ID == wizard.StepPassword {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	if len(def.RequiredFields) > 0 {
		ti.SetValue(m.ctrl.Answers()[def.RequiredFields[0]])
	}
	ti.Focus()
	return ti
}

// Update handles messages for the wizard.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.ctrl.Close()
			m.canceled = true
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		return m.handleKey(msg)

	case citiesMsg:
		m.cityList, m.cityErr = msg.cities, msg.err
		if m.cursor >= len(m.cityList) {
			m.cursor = 0
		}
		m.selectAnswered()
		return m, nil

	case advanceResultMsg:
		return m.handleResult(msg)

	case resendResultMsg:
		m.busy = false
		switch {
		case errors.Is(msg.err, wizard.ErrSessionClosed):
			return m.fatal(msg.err)
		case msg.err != nil:
			m.stepErr = wizard.Describe(msg.err)
		default:
			m.notice = "a new code was sent to " + m.ctrl.Answers()[wizard.FieldEmail]
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	if m.onCityStep() {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "shift+tab":
		if m.ctrl.GoBack() {
			m.resetStep()
			m.notice = ""
		}
		return m, nil
	case "enter":
		return m.submit()
	case "ctrl+r":
		if m.ctrl.Current().ID != wizard.StepEmailCode {
			break
		}
		m.busy = true
		m.fieldErr, m.stepErr, m.notice = "", "", ""
		return m, tea.Batch(m.spinner.Tick, m.resend())
	}

	if m.onCityStep() {
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.cityList)-1 {
				m.cursor++
			}
		case "r":
			if m.cityErr != nil {
				m.cityErr = nil
				return m, m.loadCities()
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.fieldErr = ""
	return m, cmd
}

// submit stores the current answer and starts an Advance.
func (m Model) submit() (tea.Model, tea.Cmd) {
	def := m.ctrl.Current()
	// After a failed completion hook the answers are frozen; enter retries.
	if len(def.RequiredFields) > 0 && !m.ctrl.Terminal() {
		value := strings.TrimSpace(m.input.Value())
		if m.onCityStep() {
			value = ""
			if m.cursor < len(m.cityList) {
				value = m.cityList[m.cursor].ID
			}
		}
		if err := m.ctrl.UpdateField(def.RequiredFields[0], value); err != nil {
			return m.fatal(err)
		}
	}

	m.busy = true
	m.fieldErr, m.stepErr, m.notice = "", "", ""
	return m, tea.Batch(m.spinner.Tick, m.advance())
}

func (m Model) handleResult(msg advanceResultMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	if msg.err != nil {
		if errors.Is(msg.err, wizard.ErrSessionClosed) {
			return m.fatal(msg.err)
		}
		m.stepErr = wizard.Describe(msg.err)
		return m, nil
	}

	out := msg.outcome
	if !out.Validation.IsValid() {
		fields := out.Validation.Fields()
		m.fieldErr = out.Validation.FieldErrors[fields[0]].Message
		return m, nil
	}
	if out.Terminal {
		m.done = true
		return m, tea.Quit
	}
	if out.Skipped {
		m.notice = "unchanged, already saved"
	}
	m.resetStep()
	return m, textinput.Blink
}

func (m Model) fatal(err error) (tea.Model, tea.Cmd) {
	m.err = err
	return m, tea.Quit
}

// resetStep prepares the widgets for the step the controller points at.
func (m *Model) resetStep() {
	m.input = m.newInput()
	m.fieldErr, m.stepErr = "", ""
	m.selectAnswered()
}

func (m *Model) selectAnswered() {
	if !m.onCityStep() {
		return
	}
	id := m.ctrl.Answers()[wizard.FieldCityID]
	for i, c := range m.cityList {
		if c.ID == id {
			m.cursor = i
			return
		}
	}
}

func (m Model) onCityStep() bool {
	return m.ctrl.Current().ID == wizard.StepCity
}

// View renders the wizard.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString("\n  " + m.styles.Title.Render("Create your account") + "\n\n")
	b.WriteString(RenderProgress(m.ctrl.Snapshot(), m.ctrl.Registry(), m.styles, m.width))
	b.WriteString("\n")

	if m.done {
		b.WriteString("  " + m.styles.SuccessTxt.Render("✓ Registration complete") + "\n")
		return b.String()
	}

	def := m.ctrl.Current()
	b.WriteString("  " + m.styles.AccentTxt.Render(stepCopy[def.ID].prompt) + "\n\n")

	canGoBack := m.ctrl.Pointer() > 0
	if m.onCityStep() {
		b.WriteString(m.cityView())
		b.WriteString("\n" + renderHints(m.styles, selectHints(canGoBack)) + "\n")
	} else {
		w := m.width - 8
		if w < 20 {
			w = 20
		}
		m.input.Width = w
		b.WriteString("  " + m.styles.ActiveBorder.Width(w).Render(m.input.View()) + "\n")
		hints := inputHints(canGoBack)
		if def.ID == wizard.StepEmailCode {
			if to, ok := m.ctrl.Answers()[wizard.FieldEmail]; ok {
				b.WriteString("  " + m.styles.DimTxt.Render("sent to "+to) + "\n")
			}
			hints = append([]keyBinding{{"ctrl+r", "resend code"}}, hints...)
		}
		b.WriteString("\n" + renderHints(m.styles, hints) + "\n")
	}

	switch {
	case m.busy:
		b.WriteString("\n  " + m.spinner.View() + " " + m.styles.DimTxt.Render("checking…") + "\n")
	case m.fieldErr != "":
		b.WriteString("\n  " + m.styles.ErrorTxt.Render("✗ "+m.fieldErr) + "\n")
	case m.stepErr != "":
		b.WriteString("\n  " + m.styles.WarningTxt.Render("! "+m.stepErr) + "\n")
	case m.notice != "":
		b.WriteString("\n  " + m.styles.DimTxt.Render(m.notice) + "\n")
	}
	return b.String()
}

func (m Model) cityView() string {
	if m.cityErr != nil {
		return "  " + m.styles.ErrorTxt.Render(fmt.Sprintf("could not load cities: %s (press r to retry)", domain.UserMessage(m.cityErr))) + "\n"
	}
	if len(m.cityList) == 0 {
		return "  " + m.styles.DimTxt.Render("loading cities…") + "\n"
	}
	var b strings.Builder
	for i, c := range m.cityList {
		if i == m.cursor {
			b.WriteString("  " + m.styles.Cursor.Render("› ") + m.styles.SelectedItem.Render(c.Name) + "\n")
			continue
		}
		b.WriteString("    " + m.styles.UnselectedItem.Render(c.Name) + "\n")
	}
	return b.String()
}

// Done reports whether the wizard reached its terminal step.
func (m Model) Done() bool { return m.done }

// Canceled reports whether the user quit.
func (m Model) Canceled() bool { return m.canceled }

// Err returns the error that ended the session, if any.
func (m Model) Err() error { return m.err }

// Run shows the wizard until it completes, fails or is cancelled.
func Run(ctx context.Context, ctrl *wizard.Controller, cities wizard.CityLister, theme TermTheme, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	final, err := tea.NewProgram(NewModel(ctx, ctrl, cities, theme), opts...).Run()
	if err != nil {
		ctrl.Close()
		return fmt.Errorf("tui: %w", err)
	}
	m := final.(Model)
	switch {
	case m.err != nil:
		return m.err
	case m.canceled:
		return wizard.ErrCanceled
	case !m.done:
		return wizard.ErrCanceled
	}
	return nil
}
