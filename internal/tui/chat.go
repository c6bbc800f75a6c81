package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dkeller/fieldops/internal/chat"
	"github.com/dkeller/fieldops/internal/router"
)

const chatHistoryLimit = 20

type chatModel struct {
	client *chat.Client
	width  int
	height int

	input    textinput.Model
	messages viewport.Model
	history  []chat.Message
	waiting  bool
	notice   string
}

func newChatModel(client *chat.Client) chatModel {
	ti := textinput.New()
	ti.Placeholder = "Ask about work orders, inventory, scheduling..."
	ti.CharLimit = 500
	ti.Focus()

	return chatModel{
		client:   client,
		input:    ti,
		messages: viewport.New(60, 12),
	}
}

func (c *chatModel) setSize(w, h int) {
	c.width = w
	c.height = h
	c.input.Width = w - 12
	c.messages.Width = w - 8
	vh := h - 12
	if vh < 4 {
		vh = 4
	}
	c.messages.Height = vh
	c.renderMessages()
}

func (c chatModel) update(msg tea.Msg) (chatModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter {
			text := strings.TrimSpace(c.input.Value())
			if text == "" || c.waiting {
				return c, nil
			}
			c.input.SetValue("")
			c.waiting = true
			c.notice = ""
			c.history = append(c.history, chat.Message{Role: "user", Content: text})
			c.trimHistory()
			c.renderMessages()
			return c, c.send(text)
		}

	case chatReplyMsg:
		c.waiting = false
		c.notice = ""
		switch msg.transient {
		case "rate-limited":
			c.notice = "Assistant is rate limited; showing a local reply."
		case "overloaded":
			c.notice = "Assistant is overloaded; showing a local reply."
		case "offline":
			c.notice = "Assistant is unreachable; showing a local reply."
		}
		c.history = append(c.history, chat.Message{Role: "assistant", Content: msg.text})
		c.trimHistory()
		c.renderMessages()
		return c, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	cmds = append(cmds, cmd)
	c.messages, cmd = c.messages.Update(msg)
	cmds = append(cmds, cmd)
	return c, tea.Batch(cmds...)
}

// send classifies the message, asks the proxy, and falls back to a canned
// local reply on transient failures. A confident classification also
// navigates to the matching view.
func (c chatModel) send(text string) tea.Cmd {
	client := c.client
	history := make([]chat.Message, len(c.history))
	copy(history, c.history)

	return func() tea.Msg {
		res := router.Route(text)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		reply, err := client.Send(ctx, text, history)
		if err != nil {
			transient := "offline"
			switch {
			case errors.Is(err, chat.ErrRateLimited):
				transient = "rate-limited"
			case errors.Is(err, chat.ErrOverloaded):
				transient = "overloaded"
			}
			return chatReplyMsg{text: chat.Fallback(res), transient: transient}
		}

		if res.AutoNavigate() && res.Tool == router.ToolWorkOrders {
			return tea.BatchMsg{
				func() tea.Msg { return chatReplyMsg{text: reply} },
				func() tea.Msg { return navigateMsg{view: viewWorkOrders} },
			}
		}
		return chatReplyMsg{text: reply}
	}
}

func (c *chatModel) trimHistory() {
	if len(c.history) > chatHistoryLimit {
		c.history = c.history[len(c.history)-chatHistoryLimit:]
	}
}

func (c *chatModel) renderMessages() {
	wrap := c.messages.Width - 4
	if wrap < 20 {
		wrap = 20
	}

	var lines []string
	for _, m := range c.history {
		body := lipgloss.NewStyle().Width(wrap).Render(m.Content)
		if m.Role == "user" {
			lines = append(lines, userMsgStyle.Render("You")+"\n"+body)
		} else {
			lines = append(lines, assistantMsgStyle.Render("Assistant")+"\n"+body)
		}
		lines = append(lines, "")
	}
	c.messages.SetContent(strings.Join(lines, "\n"))
	c.messages.GotoBottom()
}

func (c chatModel) view() string {
	w := c.width - 4

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Chat"), "  ",
		subtitleStyle.Render("field assistant"),
	)

	body := c.messages.View()
	if len(c.history) == 0 {
		body = mutedStyle.Render("Ask a question to get started. Mentioning a tool by\nname will take you straight to it.")
	}

	status := ""
	if c.waiting {
		status = mutedStyle.Render("thinking...")
	} else if c.notice != "" {
		status = warningStyle.Render(c.notice)
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		body,
		"",
		status,
		inputStyle.Render(c.input.View()),
	))
}
