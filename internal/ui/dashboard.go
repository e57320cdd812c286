package ui

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/Mohsinsiddi/w3transfer/internal/coordinator"
	"github.com/Mohsinsiddi/w3transfer/internal/units"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
)

// Session is the coordinator surface the dashboard drives.
type Session interface {
	State() coordinator.State
	Subscribe(fn func(coordinator.State)) (cancel func())
	Connect(ctx context.Context) error
	Send(ctx context.Context) (common.Hash, error)
	Refresh(ctx context.Context)
}

// dashboardModel is the Bubble Tea model for the live transfer dashboard.
type dashboardModel struct {
	ctx        context.Context
	session    Session
	network    string
	state      coordinator.State
	lastUpdate time.Time
	busy       string
	interval   time.Duration
	quitting   bool
}

type stateMsg coordinator.State
type actionDoneMsg struct {
	action string
	err    error
}
type tickMsg time.Time

func newDashboardModel(ctx context.Context, s Session, network string, interval time.Duration) dashboardModel {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return dashboardModel{
		ctx:        ctx,
		session:    s,
		network:    network,
		state:      s.State(),
		lastUpdate: time.Now(),
		interval:   interval,
	}
}

// RunDashboard shows coordinator state live until the user quits. Keys:
// c connect, s send the current draft, r refresh, q quit. History is
// refreshed every interval.
func RunDashboard(ctx context.Context, s Session, network string, interval time.Duration) error {
	p := tea.NewProgram(newDashboardModel(ctx, s, network, interval),
		tea.WithContext(ctx), tea.WithOutput(os.Stdout), tea.WithAltScreen())

	cancel := s.Subscribe(func(st coordinator.State) { p.Send(stateMsg(st)) })
	defer cancel()

	_, err := p.Run()
	return err
}

func (m dashboardModel) Init() tea.Cmd {
	return tick(m.interval)
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "c":
			return m.run("connecting", func(ctx context.Context) error { return m.session.Connect(ctx) })
		case "s":
			return m.run("sending", func(ctx context.Context) error {
				_, err := m.session.Send(ctx)
				return err
			})
		case "r":
			return m.run("refreshing", func(ctx context.Context) error {
				m.session.Refresh(ctx)
				return nil
			})
		}

	case stateMsg:
		m.state = coordinator.State(msg)
		m.lastUpdate = time.Now()

	case actionDoneMsg:
		m.busy = ""

	case tickMsg:
		cmds := []tea.Cmd{tick(m.interval)}
		if m.busy == "" && !m.state.IsLoading {
			session, ctx := m.session, m.ctx
			cmds = append(cmds, func() tea.Msg {
				session.Refresh(ctx)
				return nil
			})
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

// run starts one coordinator action unless another is still running.
func (m dashboardModel) run(label string, fn func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	if m.busy != "" {
		return m, nil
	}
	m.busy = label
	ctx := m.ctx
	return m, func() tea.Msg {
		return actionDoneMsg{action: label, err: fn(ctx)}
	}
}

func (m dashboardModel) View() string {
	if m.quitting {
		return ""
	}
	s := m.state

	var sb strings.Builder
	sb.WriteString(StyleTitle.Render("w3transfer · "+m.network) + "\n")
	sb.WriteString(StyleMeta.Render(fmt.Sprintf("Updated: %s · [c] connect  [s] send draft  [r] refresh  [q] quit", m.lastUpdate.Format("15:04:05"))) + "\n\n")

	account := StyleMeta.Render("not connected")
	if s.Account != nil {
		account = Addr(wallet.Lower(*s.Account))
	}
	count := "?"
	if s.CountKnown {
		count = fmt.Sprintf("%d", s.Count)
	}
	submission := s.Submission.String()
	if s.IsLoading {
		submission = StyleWarning.Render(submission)
	}
	pairs := [][2]string{
		{"Connection", s.Connection.String()},
		{"Account", account},
		{"Transfers", count},
		{"Submission", submission},
	}
	if d := s.Draft; d != (coordinator.TransferRequest{}) {
		pairs = append(pairs, [2]string{"Draft", fmt.Sprintf("%s ETH → %s (%s) %q", d.Amount, TruncateAddr(d.Recipient), d.Keyword, d.Message)})
	}
	if s.LastTxHash != (common.Hash{}) {
		pairs = append(pairs, [2]string{"Last tx", s.LastTxHash.Hex()})
	}
	sb.WriteString(KeyValueBlock("", pairs) + "\n")

	if m.busy != "" {
		sb.WriteString(Info(m.busy+"…") + "\n")
	}
	if s.Notice != "" {
		sb.WriteString(Warn(s.Notice) + "\n")
	}
	if s.Err != nil {
		sb.WriteString(Err(s.Err.Error()) + "\n")
	}
	sb.WriteString("\n")

	if len(s.Transactions) == 0 {
		sb.WriteString(StyleMeta.Render("No transfers loaded.") + "\n")
	} else {
		sb.WriteString(TransferTable(s.Transactions).Render())
		sb.WriteString(StyleMeta.Render(fmt.Sprintf("%d transfers, %s ETH total", len(s.Transactions), totalEther(s.Transactions))) + "\n")
	}
	return sb.String()
}

func totalEther(records []coordinator.TransferRecord) string {
	sum := new(big.Int)
	for _, r := range records {
		if r.AmountWei != nil {
			sum.Add(sum, r.AmountWei)
		}
	}
	return units.FormatEther(sum)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
