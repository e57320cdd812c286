package ui

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/Mohsinsiddi/w3transfer/internal/coordinator"
	"github.com/Mohsinsiddi/w3transfer/internal/wallet"
	tea "github.com/charmbracelet/bubbletea"
)

// transferListModel is the bubbletea model for the interactive transfer table.
type transferListModel struct {
	title    string
	table    *Table
	records  []coordinator.TransferRecord // parallel to table.Rows
	explorer func(addr string) string
	cursor   int
	flash    string // brief feedback shown in hint bar
}

func (m transferListModel) Init() tea.Cmd { return nil }

func (m transferListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	m.flash = ""
	switch key.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.records)-1 {
			m.cursor++
		}

	case "o":
		if r, ok := m.selected(); ok {
			url := ""
			if m.explorer != nil {
				url = m.explorer(wallet.Lower(r.Recipient))
			}
			if url != "" {
				openBrowser(url)
				m.flash = "Opening recipient in browser…"
			} else {
				m.flash = "No explorer for this network"
			}
		}

	case "c", "f":
		if r, ok := m.selected(); ok {
			addr := r.Recipient
			if key.String() == "f" {
				addr = r.Sender
			}
			if err := copyToClipboard(wallet.Lower(addr)); err == nil {
				m.flash = "Copied: " + TruncateAddr(wallet.Lower(addr))
			} else {
				m.flash = "Copy failed: " + err.Error()
			}
		}
	}
	return m, nil
}

func (m transferListModel) selected() (coordinator.TransferRecord, bool) {
	if m.cursor < 0 || m.cursor >= len(m.records) {
		return coordinator.TransferRecord{}, false
	}
	return m.records[m.cursor], true
}

func (m transferListModel) View() string {
	m.table.SelIdx = m.cursor

	var sb strings.Builder
	sb.WriteString(m.title)
	sb.WriteString("\n\n")
	sb.WriteString(m.table.Render())

	sb.WriteString("\n")
	if m.flash != "" {
		sb.WriteString(StyleSuccess.Render("  ✓ " + m.flash))
	} else {
		sb.WriteString(transferControls())
	}
	sb.WriteString("\n")

	if r, ok := m.selected(); ok && r.Message != "" {
		sb.WriteString("\n" + StyleMeta.Render("Message: ") + r.Message + "\n")
	}
	return sb.String()
}

func transferControls() string {
	sep := StyleMeta.Render("   ")
	var sb strings.Builder
	sb.WriteString(StyleMeta.Render("[ ↑↓ ]"))
	sb.WriteString(StyleMeta.Render(" navigate"))
	sb.WriteString(sep)
	sb.WriteString(StyleInfo.Render("[ o ]"))
	sb.WriteString(StyleMeta.Render(" open recipient"))
	sb.WriteString(sep)
	sb.WriteString(StyleWarning.Render("[ c / f ]"))
	sb.WriteString(StyleMeta.Render(" copy to / from"))
	sb.WriteString(sep)
	sb.WriteString(StyleMeta.Render("[ q ]"))
	sb.WriteString(StyleMeta.Render(" quit"))
	return sb.String()
}

// RunTransferList shows records (newest first) in an interactive table until
// the user quits. explorer maps an address to its explorer page and may be
// nil.
func RunTransferList(title string, records []coordinator.TransferRecord, explorer func(addr string) string) error {
	newest := make([]coordinator.TransferRecord, len(records))
	for i, r := range records {
		newest[len(records)-1-i] = r
	}
	m := transferListModel{
		title:    title,
		table:    TransferTable(records),
		records:  newest,
		explorer: explorer,
	}
	p := tea.NewProgram(m, tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// openBrowser opens url in the OS default browser.
func openBrowser(url string) {
	var name string
	switch runtime.GOOS {
	case "darwin":
		name = "open"
	case "windows":
		name = "cmd"
	default:
		name = "xdg-open"
	}
	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.Command(name, "/c", "start", url)
	} else {
		cmd = exec.Command(name, url)
	}
	_ = cmd.Start()
}

// copyToClipboard writes text to the system clipboard.
func copyToClipboard(text string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("pbcopy")
	case "windows":
		cmd = exec.Command("clip")
	default:
		// Try wl-copy (Wayland), fall back to xclip.
		if _, err := exec.LookPath("wl-copy"); err == nil {
			cmd = exec.Command("wl-copy")
		} else {
			cmd = exec.Command("xclip", "-selection", "clipboard")
		}
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	_, _ = io.WriteString(stdin, text)
	stdin.Close()
	return cmd.Wait()
}
