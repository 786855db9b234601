package main

import (
	"fmt"
	"net/rpc"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AndrewLester/sntp/internal/monitor"
	"github.com/AndrewLester/sntp/internal/sugar"
	"github.com/AndrewLester/sntp/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running monitor daemon's latest samples",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().String("socket", monitor.DefaultSocket, "Monitor daemon control socket.")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	socket, _ := cmd.Flags().GetString("socket")

	m := statusModel{socket: socket, table: setupTable()}
	_, err := sugar.RunProgram(m)
	return err
}

const fetchSamplesPeriod = time.Second * 5

type statusModel struct {
	socket string
	table  table.Model

	daemonKillStatus string
	err              error
}

var client *rpc.Client

type dialSocketMessage *rpc.Client
type fetchSamplesMessage []monitor.Sample
type statusErrorMessage error
type tickMsg time.Time

func dialSocketCommand(m statusModel) tea.Cmd {
	return func() tea.Msg {
		client, err := rpc.Dial("unix", m.socket)
		if err != nil {
			return statusErrorMessage(fmt.Errorf("connecting to %s daemon: %w", daemonName, err))
		}
		return dialSocketMessage(client)
	}
}

func fetchSamplesCommand() tea.Cmd {
	return func() tea.Msg {
		var samples []monitor.Sample
		if err := client.Call("RPCServer.FetchLatest", 0, &samples); err != nil {
			return statusErrorMessage(fmt.Errorf("getting samples from daemon: %w", err))
		}
		return fetchSamplesMessage(samples)
	}
}

func stopDaemonCommand() tea.Cmd {
	return func() tea.Msg {
		if err := killDaemon(); err != nil {
			return statusErrorMessage(err)
		}
		return nil
	}
}

func tickCommand(duration time.Duration) tea.Cmd {
	return tea.Tick(duration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m statusModel) Init() tea.Cmd {
	return dialSocketCommand(m)
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.table.Focused() {
				m.table.Blur()
			} else {
				m.table.Focus()
			}
		case "stop", "s":
			m.daemonKillStatus = "Stopping " + daemonName
			return m, tea.Sequence(stopDaemonCommand(), tea.Quit)
		case "ctrl+c", "q":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case dialSocketMessage:
		client = msg
		return m, tickCommand(0)
	case fetchSamplesMessage:
		rows := []table.Row{}
		for _, sample := range msg {
			status := "ok"
			if !sample.Ok() {
				status = sample.Error
			}
			rows = append(rows, table.Row{
				sample.Server,
				strconv.FormatFloat(sample.Offset.Seconds()*1e3, 'G', 5, 64),
				strconv.FormatFloat(sample.Delay.Seconds()*1e3, 'G', 5, 64),
				fmt.Sprintf("%s ago", time.Since(sample.Taken).Round(time.Second)),
				status,
			})
		}
		m.table.SetRows(rows)
		return m, nil
	case statusErrorMessage:
		m.err = msg
		return m, tea.Quit
	case tickMsg:
		return m, tea.Batch(tickCommand(fetchSamplesPeriod), fetchSamplesCommand())
	default:
		return m, nil
	}
}

func (m statusModel) View() (s string) {
	if m.err != nil {
		return
	}

	s += ui.Title("sntp - monitor status") + "\n"
	s += ui.TableBase(m.table.View()) + "\n\n"
	if m.daemonKillStatus != "" {
		s += m.daemonKillStatus + "\n"
	} else {
		s += ui.Help("q: exit, s: stop daemon") + "\n"
	}
	return
}

func (m statusModel) Err() error {
	return m.err
}

func setupTable() table.Model {
	columns := []table.Column{
		{Title: "Server", Width: 24},
		{Title: "Offset (ms)", Width: 12},
		{Title: "Delay (ms)", Width: 12},
		{Title: "Last Sample", Width: 14},
		{Title: "Status", Width: 28},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(7),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.TableGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}
