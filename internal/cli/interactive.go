package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/apresai/interviewcast/internal/config"
	"github.com/apresai/interviewcast/internal/script"
	"github.com/apresai/interviewcast/internal/tts"
)

var backendLabels = map[string]string{
	"openai": "OpenAI (gpt-4o-mini)",
	"claude": "Claude",
	"gemini": "Gemini",
	"nova":   "Amazon Nova (Bedrock)",
}

// menuItem represents a single configurable option in the TUI.
type menuItem struct {
	label   string
	value   string
	options []menuOption
	editing bool
	cursor  int // cursor within options when editing
}

type menuOption struct {
	label string
	value string
}

// menuState tracks which phase the TUI is in.
type menuState int

const (
	stateMenu menuState = iota
	stateEditing
)

// tuiModel is the Bubble Tea model for the interactive menu.
type tuiModel struct {
	items     []menuItem
	cursor    int
	state     menuState
	width     int
	confirmed bool
	cancelled bool
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)

	menuLabelStyle = lipgloss.NewStyle().
			Width(18).
			Align(lipgloss.Right).
			MarginRight(2)

	menuValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575"))

	menuValueDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#555555")).
				Italic(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4")).
			Bold(true)

	optionStyle = lipgloss.NewStyle().
			PaddingLeft(4)

	selectedOptionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true).
				PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 3)

	buttonDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#555555")).
			Padding(0, 3)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			MarginTop(1)

	headerBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("#7D56F4")).
			MarginBottom(1)
)

const (
	idxTopic = iota
	idxScriptBackend
	idxTTS
	idxInterviewer
	idxExpert
	idxMinutes
	idxVideo
	idxForce
	idxGenerate
)

const (
	videoAuto   = "auto"
	videoAlways = "always"
	videoOff    = "off"
)

// voiceOptions lists a provider's voices with the per-speaker default first
// selected. An empty value means "provider default".
func voiceOptions(provider string) []menuOption {
	opts := []menuOption{{label: "Provider default", value: ""}}
	voices, err := tts.AvailableVoices(provider)
	if err != nil {
		return opts
	}
	for _, v := range voices {
		label := fmt.Sprintf("%s - %s (%s)", v.Name, v.Description, v.Gender)
		if v.DefaultFor != "" {
			label += " [default " + v.DefaultFor + "]"
		}
		opts = append(opts, menuOption{label: label, value: v.ID})
	}
	return opts
}

func buildMenuItems(c config.Config) []menuItem {
	video := videoAuto
	switch {
	case flagNoVideo:
		video = videoOff
	case flagVideoAlways:
		video = videoAlways
	}
	force := "no"
	if flagForceGenerate {
		force = "yes"
	}

	ttsOpts := make([]menuOption, 0, len(tts.Providers()))
	for _, p := range tts.Providers() {
		ttsOpts = append(ttsOpts, menuOption{label: p, value: p})
	}

	scriptOpts := make([]menuOption, 0, len(script.Backends()))
	for _, b := range script.Backends() {
		label := backendLabels[b]
		if label == "" {
			label = b
		}
		scriptOpts = append(scriptOpts, menuOption{label: label, value: b})
	}

	items := []menuItem{
		idxTopic:         {label: "Topic", value: flagTopic},
		idxScriptBackend: {label: "Script Backend", value: c.ScriptBackend, options: scriptOpts},
		idxTTS:         {label: "TTS Provider", value: c.TTSBackend, options: ttsOpts},
		idxInterviewer: {label: "Interviewer Voice", value: c.InterviewerVoice, options: voiceOptions(c.TTSBackend)},
		idxExpert:      {label: "Expert Voice", value: c.ExpertVoice, options: voiceOptions(c.TTSBackend)},
		idxMinutes: {label: "Minutes", value: strconv.Itoa(c.Minutes), options: []menuOption{
			{label: "1", value: "1"}, {label: "2", value: "2"}, {label: "3", value: "3"},
			{label: "5", value: "5"}, {label: "8", value: "8"},
		}},
		idxVideo: {label: "Video", value: video, options: []menuOption{
			{label: "When background.jpg exists", value: videoAuto},
			{label: "Always (solid color fallback)", value: videoAlways},
			{label: "Never", value: videoOff},
		}},
		idxForce: {label: "Force Generate", value: force, options: []menuOption{
			{label: "No - reuse an existing script", value: "no"},
			{label: "Yes - always write a new script", value: "yes"},
		}},
		idxGenerate: {label: "Generate"},
	}
	for i := range items {
		items[i].cursor = optionIndex(items[i].options, items[i].value)
	}
	return items
}

func optionIndex(opts []menuOption, value string) int {
	for i, o := range opts {
		if o.value == value {
			return i
		}
	}
	return 0
}

func initialTUIModel(c config.Config) tuiModel {
	return tuiModel{items: buildMenuItems(c), state: stateMenu}
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if m.state == stateEditing {
			return m.updateEditing(msg)
		}
		return m.updateMenu(msg)
	}
	return m, nil
}

func (m tuiModel) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.cancelled = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.items)-1 {
			m.cursor++
		}

	case "enter", " ":
		if m.cursor == idxGenerate {
			m.confirmed = true
			return m, tea.Quit
		}
		m.state = stateEditing
		m.items[m.cursor].editing = true
	}
	return m, nil
}

func (m tuiModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	item := &m.items[m.cursor]

	if m.cursor == idxTopic {
		switch msg.String() {
		case "enter":
			m.closeEditor()
			m.cursor++
		case "esc":
			m.closeEditor()
		case "backspace":
			if r := []rune(item.value); len(r) > 0 {
				item.value = string(r[:len(r)-1])
			}
		case "ctrl+u":
			item.value = ""
		default:
			if msg.Type == tea.KeyRunes {
				item.value += string(msg.Runes)
			}
		}
		return m, nil
	}

	switch msg.String() {
	case "enter", " ":
		item.value = item.options[item.cursor].value
		m.closeEditor()
		if m.cursor == idxTTS {
			// voice IDs are provider-specific
			for _, idx := range []int{idxInterviewer, idxExpert} {
				m.items[idx].options = voiceOptions(item.value)
				m.items[idx].value = ""
				m.items[idx].cursor = 0
			}
		}
		m.cursor++

	case "esc":
		m.closeEditor()

	case "up", "k":
		if item.cursor > 0 {
			item.cursor--
		}

	case "down", "j":
		if item.cursor < len(item.options)-1 {
			item.cursor++
		}
	}
	return m, nil
}

func (m *tuiModel) closeEditor() {
	m.items[m.cursor].editing = false
	m.state = stateMenu
}

func (m tuiModel) View() string {
	var b strings.Builder

	b.WriteString(headerBorder.Render(titleStyle.Render("interviewcast")))
	b.WriteString("\n")

	for i, item := range m.items {
		active := m.cursor == i

		if i == idxGenerate {
			b.WriteString("\n")
			if active {
				b.WriteString("  " + buttonStyle.Render(" Generate "))
			} else {
				b.WriteString("  " + buttonDimStyle.Render(" Generate "))
			}
			b.WriteString("\n")
			continue
		}

		cursor := "  "
		if active {
			cursor = cursorStyle.Render("> ")
		}

		var value string
		switch {
		case item.editing && i == idxTopic:
			value = menuValueStyle.Render(item.value + "_")
		case item.value == "" && i == idxTopic:
			value = menuValueDimStyle.Render("(optional)")
		case item.value == "" && len(item.options) > 0:
			value = menuValueDimStyle.Render(item.options[0].label)
		default:
			display := item.value
			for _, opt := range item.options {
				if opt.value == item.value {
					display = opt.label
					break
				}
			}
			value = menuValueStyle.Render(display)
		}
		b.WriteString(cursor + menuLabelStyle.Render(item.label) + " " + value + "\n")

		if item.editing && len(item.options) > 0 {
			for j, opt := range item.options {
				if j == item.cursor {
					b.WriteString(selectedOptionStyle.Render("> "+opt.label) + "\n")
				} else {
					b.WriteString(optionStyle.Render("  "+opt.label) + "\n")
				}
			}
		}
	}

	switch {
	case m.state == stateMenu:
		b.WriteString(helpStyle.Render("  j/k or arrows to navigate | enter to edit | q to quit"))
	case m.cursor == idxTopic:
		b.WriteString(helpStyle.Render("  type value | enter to confirm | esc to cancel | ctrl+u to clear"))
	default:
		b.WriteString(helpStyle.Render("  j/k or arrows to pick | enter to select | esc to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}

// apply copies the wizard selections into c and the generation flags.
func (m tuiModel) apply(c *config.Config) {
	flagTopic = m.items[idxTopic].value
	c.ScriptBackend = m.items[idxScriptBackend].value
	c.TTSBackend = m.items[idxTTS].value
	c.InterviewerVoice = m.items[idxInterviewer].value
	c.ExpertVoice = m.items[idxExpert].value
	if n, err := strconv.Atoi(m.items[idxMinutes].value); err == nil {
		c.Minutes = n
	}
	flagNoVideo = m.items[idxVideo].value == videoOff
	flagVideoAlways = m.items[idxVideo].value == videoAlways
	flagForceGenerate = m.items[idxForce].value == "yes"
}

func runInteractiveSetup(c *config.Config) error {
	p := tea.NewProgram(initialTUIModel(*c), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	final := result.(tuiModel)
	if final.cancelled || !final.confirmed {
		return fmt.Errorf("cancelled")
	}
	final.apply(c)
	return nil
}
