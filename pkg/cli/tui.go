package cli

import (
	"context"
	"fmt"
	"strings"

	"scrape-stream-go/pkg/models"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const maxVisibleLines = 18

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	rawStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	chunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	successStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// crawlModel streams one crawl session: it subscribes to the event
// stream, submits the crawl, and renders events as they arrive.
type crawlModel struct {
	client *Client
	req    models.CrawlRequest

	spinner  spinner.Model
	lines    []string
	eventCh  <-chan models.Event
	result   *models.ScrapeResult
	runErr   error
	finished bool
}

// NewCrawlModel creates the streaming-crawl flow.
func NewCrawlModel(client *Client, req models.CrawlRequest) tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return &crawlModel{
		client:  client,
		req:     req,
		spinner: s,
	}
}

type streamOpenedMsg struct {
	ch  <-chan models.Event
	err error
}

type eventMsg models.Event

type streamClosedMsg struct{}

type crawlDoneMsg struct {
	result *models.ScrapeResult
	err    error
}

func (m *crawlModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.openStream)
}

// openStream subscribes before the crawl starts so no events are missed.
func (m *crawlModel) openStream() tea.Msg {
	ch, err := m.client.StreamEvents(context.Background())
	return streamOpenedMsg{ch: ch, err: err}
}

func (m *crawlModel) startCrawl() tea.Msg {
	result, _, err := m.client.StartCrawl(context.Background(), m.req)
	return crawlDoneMsg{result: result, err: err}
}

func waitForEvent(ch <-chan models.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *crawlModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case streamOpenedMsg:
		if msg.err != nil {
			m.runErr = msg.err
			m.finished = true
			return m, nil
		}
		m.eventCh = msg.ch
		return m, tea.Batch(waitForEvent(m.eventCh), m.startCrawl)

	case eventMsg:
		m.appendEvent(models.Event(msg))
		return m, waitForEvent(m.eventCh)

	case streamClosedMsg:
		return m, nil

	case crawlDoneMsg:
		m.result = msg.result
		m.runErr = msg.err
		m.finished = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "enter":
			if m.finished {
				return m, tea.Quit
			}
		}
	}

	return m, nil
}

func (m *crawlModel) appendEvent(ev models.Event) {
	var line string
	switch ev.Type {
	case models.EventProgress:
		line = progressStyle.Render("• " + ev.Text)
	case models.EventRawItem:
		line = rawStyle.Render("raw  " + truncate(ev.Text, 80))
	case models.EventScrapingChunk:
		line = chunkStyle.Render("ai   " + truncate(ev.Text, 80))
	case models.EventSuccess:
		line = successStyle.Render(fmt.Sprintf("ok   %d item(s)", len(ev.Items)))
	case models.EventError:
		line = errorStyle.Render("err  " + ev.Text)
	default:
		line = ev.Text
	}
	m.lines = append(m.lines, line)
	if len(m.lines) > maxVisibleLines {
		m.lines = m.lines[len(m.lines)-maxVisibleLines:]
	}
}

func (m *crawlModel) View() string {
	var b strings.Builder

	b.WriteString("\n")
	b.WriteString(titleStyle.Render("Scrape Stream"))
	b.WriteString("  ")
	b.WriteString(progressStyle.Render(m.req.URL))
	b.WriteString("\n\n")

	for _, line := range m.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case !m.finished:
		b.WriteString(m.spinner.View())
		b.WriteString(" crawling... (q to abort)")
	case m.runErr != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Crawl failed: %v", m.runErr)))
		b.WriteString("\n\nPress enter to exit...")
	default:
		b.WriteString(successStyle.Render(fmt.Sprintf(
			"Done: %d item(s), %d/%d tokens, $%.6f",
			len(m.result.Items), m.result.InputTokens, m.result.OutputTokens, m.result.TotalCost,
		)))
		b.WriteString("\n\nPress enter to exit...")
	}
	b.WriteString("\n")

	return b.String()
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
