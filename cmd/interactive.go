package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/OlliL/bosch-thermostat-mqtt/config"
	"github.com/OlliL/bosch-thermostat-mqtt/data/mqtt"
)

const monitorBuffer = 256

type monitorModel struct {
	values    map[string]string
	published int
	updated   time.Time
	status    string
	finished  bool
	quitting  bool
	err       error
	messages  chan mqtt.Message
	done      chan error
}

type publishedMsg mqtt.Message
type pipelineDoneMsg struct{ err error }

// waitForPublished waits for the next published message
func waitForPublished(messages chan mqtt.Message) tea.Cmd {
	return func() tea.Msg {
		return publishedMsg(<-messages)
	}
}

// waitForPipeline waits for the fetch-and-publish loop to end
func waitForPipeline(done chan error) tea.Cmd {
	return func() tea.Msg {
		return pipelineDoneMsg{<-done}
	}
}

func newMonitorModel(messages chan mqtt.Message, done chan error) monitorModel {
	return monitorModel{
		values:   make(map[string]string),
		status:   "Connecting...",
		messages: messages,
		done:     done,
	}
}

func (m monitorModel) Init() tea.Cmd {
	return tea.Batch(
		waitForPublished(m.messages),
		waitForPipeline(m.done),
	)
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case publishedMsg:
		m.values[msg.Topic] = string(msg.Payload)
		m.published++
		m.updated = time.Now()
		m.status = "Publishing"
		// Keep listening for more messages
		return m, waitForPublished(m.messages)

	case pipelineDoneMsg:
		m.finished = true
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.status = "Finished, press q to quit"
	}

	return m, nil
}

func (m monitorModel) View() string {
	if m.quitting {
		return "Disconnecting from gateway...\n"
	}

	if m.err != nil {
		return fmt.Sprintf("Error: %v\n", m.err)
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00FF00")).
		Padding(1, 0)

	topicStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888"))

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFF00"))

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888888")).
		Padding(1, 0)

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#00FF00")).
		Padding(1, 2)

	topics := make([]string, 0, len(m.values))
	width := 0
	for topic := range m.values {
		topics = append(topics, topic)
		if len(topic) > width {
			width = len(topic)
		}
	}
	sort.Strings(topics)

	var rows strings.Builder
	for _, topic := range topics {
		rows.WriteString(topicStyle.Render(fmt.Sprintf("%-*s", width, topic)))
		rows.WriteString("  ")
		rows.WriteString(valueStyle.Render(m.values[topic]))
		rows.WriteString("\n")
	}
	if len(topics) == 0 {
		rows.WriteString("No values published yet\n")
	}

	updated := "never"
	if !m.updated.IsZero() {
		updated = m.updated.Format(time.TimeOnly)
	}
	info := fmt.Sprintf("Status: %s\nMessages: %d (%d topics)\nLast update: %s",
		m.status, m.published, len(topics), updated)

	return titleStyle.Render("Bosch Thermostat Monitor") + "\n" +
		boxStyle.Render(info) + "\n" +
		rows.String() +
		helpStyle.Render("Q - Quit")
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Scan and publish like scan, showing the published values live",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd)
	},
}

func init() {
	config.AddScanFlags(monitorCmd.Flags())
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd, config.CommandMonitor, os.Getenv)
	if err != nil {
		return err
	}
	// The terminal belongs to the TUI; logs only go to --log-file.
	logger, closer, err := newLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	// Create channels for updates
	messages := make(chan mqtt.Message, monitorBuffer)
	done := make(chan error, 1)
	exited := make(chan struct{})

	observer := func(msg mqtt.Message) {
		select {
		case messages <- msg:
		default:
			// Channel full, skip this update
			logger.Debug("monitor dropped update", "topic", msg.Topic)
		}
	}

	go func() {
		defer close(exited)
		done <- runPipeline(ctx, cfg, config.CommandMonitor, logger, observer)
	}()

	p := tea.NewProgram(newMonitorModel(messages, done))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	// Cleanup
	stop()
	<-exited

	if m, ok := final.(monitorModel); ok && m.err != nil {
		return m.err
	}
	return nil
}
