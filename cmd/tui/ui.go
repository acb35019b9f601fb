package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ping-me/internal/client"
	"ping-me/internal/models"
)

const requestTimeout = 10 * time.Second

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	selfStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	peerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

type (
	eventMsg  models.Event
	streamErr struct{ err error }
	noticeMsg struct{ err error }
	doneMsg   struct{ info string }
)

type model struct {
	store    *client.Store
	stream   *client.EventStream
	notices  chan error
	viewport viewport.Model
	input    textinput.Model
	notice   string
	ready    bool
}

func newModel(store *client.Store, stream *client.EventStream, notices chan error) model {
	ti := textinput.New()
	ti.Placeholder = "message, or /help"
	ti.Focus()
	ti.CharLimit = 1000

	return model{store: store, stream: stream, notices: notices, input: ti}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForEvent, m.waitForNotice, m.run(func(ctx context.Context) (string, error) {
		if err := m.store.LoadGroups(ctx); err != nil {
			return "", err
		}
		return "", m.store.LoadUsers(ctx)
	}))
}

func (m model) waitForEvent() tea.Msg {
	ev, err := m.stream.Next()
	if err != nil {
		return streamErr{err}
	}
	return eventMsg(ev)
}

func (m model) waitForNotice() tea.Msg {
	return noticeMsg{<-m.notices}
}

// run executes a store call off the UI goroutine. Store errors reach the
// notice line through the notifier.
func (m model) run(call func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		info, _ := call(ctx)
		return doneMsg{info}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line != "" {
				m.notice = ""
				cmds = append(cmds, m.command(line))
			}
		}
	case tea.WindowSizeMsg:
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-4)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 4
		}
		m.input.Width = msg.Width - 2
	case eventMsg:
		m.store.ApplyEvent(models.Event(msg))
		cmds = append(cmds, m.waitForEvent)
	case streamErr:
		m.notice = "live channel closed: " + msg.err.Error()
	case noticeMsg:
		m.notice = msg.err.Error()
		cmds = append(cmds, m.waitForNotice)
	case doneMsg:
		if msg.info != "" {
			m.notice = msg.info
		}
	}

	if m.ready {
		m.viewport.SetContent(m.renderMessages())
		m.viewport.GotoBottom()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) command(line string) tea.Cmd {
	if !strings.HasPrefix(line, "/") {
		return m.run(func(ctx context.Context) (string, error) {
			_, err := m.store.Send(ctx, line, "")
			return "", err
		})
	}

	fields := strings.Fields(line)
	args := fields[1:]
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}
	rest := func(from int) string {
		if from < len(args) {
			return strings.Join(args[from:], " ")
		}
		return ""
	}
	activeGroup := func() string {
		if sel, ok := m.store.Selection(); ok && sel.Kind == models.TargetGroup {
			return sel.ID
		}
		return ""
	}

	return m.run(func(ctx context.Context) (string, error) {
		switch fields[0] {
		case "/dm":
			return "", m.store.Select(ctx, client.Selection{Kind: models.TargetDirect, ID: arg(0)})
		case "/group":
			return "", m.store.Select(ctx, client.Selection{Kind: models.TargetGroup, ID: arg(0)})
		case "/close":
			m.store.ClearSelection()
			return "", nil
		case "/groups":
			return m.listGroups(), nil
		case "/users":
			return m.listUsers(), nil
		case "/create":
			g, err := m.store.CreateGroup(ctx, arg(0), strings.Split(arg(1), ","), "")
			if err != nil {
				return "", err
			}
			return "created " + g.ID, nil
		case "/add":
			_, err := m.store.AddMember(ctx, activeGroup(), arg(0))
			return "", err
		case "/remove":
			_, err := m.store.RemoveMember(ctx, activeGroup(), arg(0))
			return "", err
		case "/leave":
			return "", m.store.LeaveGroup(ctx, activeGroup())
		case "/rename":
			name := rest(0)
			_, err := m.store.UpdateGroup(ctx, activeGroup(), models.GroupPatch{Name: &name})
			return "", err
		case "/edit":
			_, err := m.store.Edit(ctx, arg(0), rest(1))
			return "", err
		case "/delete":
			return "", m.store.Delete(ctx, arg(0))
		default:
			return "/dm <user> /group <id> /close /groups /users /create <name> <a,b> /add <user> /remove <user> /leave /rename <name> /edit <id> <text> /delete <id>", nil
		}
	})
}

func (m model) listGroups() string {
	groups := m.store.Groups()
	if len(groups) == 0 {
		return "no groups"
	}
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, fmt.Sprintf("%s (%s, %d)", g.Name, g.ID, len(g.Members)))
	}
	return strings.Join(names, "  ")
}

func (m model) listUsers() string {
	users := m.store.Users()
	names := make([]string, 0, len(users))
	for _, u := range users {
		mark := ""
		if m.store.IsOnline(u.ID) {
			mark = "*"
		}
		names = append(names, u.ID+mark)
	}
	return strings.Join(names, " ")
}

func (m model) header() string {
	sel, ok := m.store.Selection()
	if !ok {
		return headerStyle.Render("ping-me") + dimStyle.Render("  no conversation, /dm <user> or /group <id>")
	}
	if g, ok := m.store.ActiveGroup(); ok {
		return headerStyle.Render("# "+g.Name) + dimStyle.Render(fmt.Sprintf("  %d members", len(g.Members)))
	}
	status := "offline"
	if m.store.IsOnline(sel.ID) {
		status = "online"
	}
	return headerStyle.Render("@ "+sel.ID) + dimStyle.Render("  "+status)
}

func (m model) renderMessages() string {
	var b strings.Builder
	for _, msg := range m.store.Messages() {
		style := peerStyle
		if msg.SenderID == m.store.Self() {
			style = selfStyle
		}
		text := msg.Text
		if msg.Image != "" {
			text = strings.TrimSpace(text + " [image] " + msg.Image)
		}
		edited := ""
		if msg.Edited {
			edited = dimStyle.Render(" (edited)")
		}
		fmt.Fprintf(&b, "%s %s %s%s %s\n",
			dimStyle.Render(msg.CreatedAt.Local().Format("15:04")),
			style.Render(msg.SenderID+":"),
			text, edited,
			dimStyle.Render(msg.ID))
	}
	return b.String()
}

func (m model) View() string {
	if !m.ready {
		return "\n  connecting..."
	}
	return fmt.Sprintf("%s\n%s\n%s\n%s",
		m.header(),
		m.viewport.View(),
		noticeStyle.Render(m.notice),
		m.input.View(),
	)
}
