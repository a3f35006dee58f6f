package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"wordvec/internal/domain"
)

// Model is the Bubble Tea model for the query console.
type Model struct {
	service   domain.QueryService
	input     textinput.Model
	viewport  viewport.Model
	results   []domain.Neighbor
	summary   string
	status    string
	cursor    int
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance.
func New(service domain.QueryService, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "word | a b c | sim a b | morph x/y,... word"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{service: service, input: ti, viewport: vp, summary: summary, status: "Model loaded. Type a word."}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		totalHeaderLines := 2                                    // header + summary
		totalFooterLines := 1                                    // status
		reserved := totalHeaderLines + totalFooterLines + qh + 1 // 1 spacer
		vh := msg.Height - reserved
		if vh < 3 {
			vh = 3
		}
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderResults())
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q != "" {
				m = m.run(q)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderResults())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) run(line string) Model {
	cmd, err := parseCommand(line)
	if err != nil {
		m.status = "Error: " + err.Error()
		return m
	}
	var res []domain.Neighbor
	switch cmd.op {
	case opPredict:
		res, err = m.service.Predict(cmd.words[0])
	case opAnalogy:
		res, err = m.service.Analogy(cmd.words[0], cmd.words[1], cmd.words[2])
	case opMorphology:
		res, err = m.service.Morphology(cmd.pairs, cmd.words[0])
	case opSimilarity:
		var sim float64
		sim, err = m.service.Similarity(cmd.words[0], cmd.words[1])
		if err == nil {
			m.status = fmt.Sprintf("similarity(%s, %s) = %.4f", cmd.words[0], cmd.words[1], sim)
			return m
		}
	}
	if err != nil {
		m.status = "Error: " + err.Error()
		m.results = nil
		return m
	}
	m.status = fmt.Sprintf("Results for %q", line)
	m.results = res
	m.cursor = 0
	m.lastQuery = line
	return m
}

// View renders the TUI layout and current results.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("wordvec")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderResults() string {
	if len(m.results) == 0 {
		return "No results yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", m.lastQuery)
	for i, r := range m.results {
		row := fmt.Sprintf("%2d. %-24s %.4f", i+1, r.Word, r.Score)
		if i == m.cursor {
			row = highlightStyle.Render(row)
		}
		b.WriteString(row)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
)

type op int

const (
	opPredict op = iota
	opAnalogy
	opMorphology
	opSimilarity
)

type command struct {
	op    op
	words []string
	pairs [][2]string
}

// parseCommand understands:
//
//	word                  nearest neighbours of word
//	a b c                 a is to b as c is to ?
//	sim a b               cosine similarity
//	morph x/y,x2/y2 word  word shifted by the mean x-y offset
func parseCommand(line string) (command, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return command{}, errors.New("empty query")
	}
	switch fields[0] {
	case "sim":
		if len(fields) != 3 {
			return command{}, errors.New("usage: sim a b")
		}
		return command{op: opSimilarity, words: fields[1:]}, nil
	case "morph":
		if len(fields) != 3 {
			return command{}, errors.New("usage: morph x/y,x2/y2 word")
		}
		var pairs [][2]string
		for _, p := range strings.Split(fields[1], ",") {
			xy := strings.Split(p, "/")
			if len(xy) != 2 || xy[0] == "" || xy[1] == "" {
				return command{}, fmt.Errorf("bad pair %q, want x/y", p)
			}
			pairs = append(pairs, [2]string{xy[0], xy[1]})
		}
		return command{op: opMorphology, words: fields[2:], pairs: pairs}, nil
	}
	switch len(fields) {
	case 1:
		return command{op: opPredict, words: fields}, nil
	case 3:
		return command{op: opAnalogy, words: fields}, nil
	default:
		return command{}, errors.New("type one word or three for an analogy")
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
