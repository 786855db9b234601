package main

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/AndrewLester/sntp/internal/sugar"
	"github.com/AndrewLester/sntp/internal/ui"
	"github.com/AndrewLester/sntp/pkg/sntp"
)

const (
	padding  = 10
	maxWidth = 80
)

// samplePause keeps repeated queries to the same public server polite.
const samplePause = time.Second

var queryCmd = &cobra.Command{
	Use:   "query <server>",
	Short: "Measure the clock offset against one NTP server",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("port", sntp.PORT, "Server port.")
	queryCmd.Flags().Duration("timeout", sntp.DefaultTimeout, "Receive timeout per sample.")
	queryCmd.Flags().IntP("samples", "n", 5, "Number of samples to take.")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	port, _ := cmd.Flags().GetInt("port")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	samples, _ := cmd.Flags().GetInt("samples")

	client := sntp.NewClient(args[0], sntp.WithPort(port), sntp.WithTimeout(timeout))

	m := queryModel{client: client, address: args[0], samples: samples}
	m.progress = progress.New(progress.WithScaledGradient("#68b1b1", "#6ea4ff"))

	_, err := sugar.RunProgram(m)
	return err
}

type queryModel struct {
	client  *sntp.Client
	address string
	samples int

	progress  progress.Model
	taken     int
	responses []*sntp.Response
	lastErr   error

	result string
	err    error
}

type sampleMessage struct {
	response *sntp.Response
	err      error
}

func takeSample(client *sntp.Client, pause time.Duration) tea.Cmd {
	return func() tea.Msg {
		time.Sleep(pause)
		response, err := client.Query()
		return sampleMessage{response: response, err: err}
	}
}

func (m queryModel) Init() tea.Cmd {
	return takeSample(m.client, 0)
}

func (m queryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}
		return m, nil
	case sampleMessage:
		m.taken++
		if msg.err != nil {
			m.lastErr = msg.err
		} else {
			m.responses = append(m.responses, msg.response)
		}
		if m.taken < m.samples {
			return m, takeSample(m.client, samplePause)
		}
		m.result, m.err = m.finish()
		return m, tea.Quit
	default:
		return m, nil
	}
}

// finish picks the minimum-delay sample; the shortest round trip gives the
// tightest bound on the offset.
func (m queryModel) finish() (string, error) {
	if len(m.responses) == 0 {
		return "", fmt.Errorf("%s: %w", m.address, m.lastErr)
	}

	best := m.responses[0]
	for _, response := range m.responses[1:] {
		if response.Delay < best.Delay {
			best = response
		}
	}

	offsetString := strconv.FormatFloat(best.Offset.Seconds(), 'G', 5, 64)
	if best.Offset > 0 {
		offsetString = "+" + offsetString
	}
	delayString := strconv.FormatFloat(best.Delay.Seconds(), 'G', 5, 64)

	addr, _ := net.ResolveIPAddr("ip", m.address)
	result := fmt.Sprint(offsetString, " +/- ", delayString, " ", m.address, " ", addr.String())
	if best.SuspectDelay() {
		result += "\n" + ui.Warning("warning: round-trip delay is implausibly large; offset is unreliable")
	}
	return result, nil
}

func (m queryModel) View() (s string) {
	if m.err != nil {
		return
	}

	if m.result == "" {
		s += ui.Title("sntp - query") + "\n\n"
		s += m.progress.ViewAs(float64(m.taken)/float64(m.samples)) + "\n\n"
		s += ui.Help("q: exit") + "\n"
	} else {
		s += m.result + "\n"
	}
	return
}

func (m queryModel) Err() error {
	return m.err
}
