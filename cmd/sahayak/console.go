package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"agrisahayak.in/agri-sahayak/internal/cache"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	userStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	botStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
)

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("240")).
	Padding(0, 1)

// console serializes writes from the shell and from background speech.
type console struct {
	mu sync.Mutex
	w  io.Writer
}

func newConsole(w io.Writer) *console {
	return &console{w: w}
}

func (c *console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, s)
}

func (c *console) prompt(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprint(c.w, s)
}

func (c *console) title(s string) { c.println(titleStyle.Render(s)) }
func (c *console) ok(s string)    { c.println(okStyle.Render(s)) }
func (c *console) info(s string)  { c.println(infoStyle.Render(s)) }
func (c *console) fail(s string)  { c.println(errorStyle.Render(s)) }
func (c *console) panel(s string) { c.println(panelStyle.Render(s)) }

func (c *console) field(label string, value any) {
	c.println(fmt.Sprintf("%s %v", labelStyle.Render(label+":"), value))
}

func (c *console) message(m cache.Message) {
	switch m.Role {
	case cache.RoleUser:
		c.println(userStyle.Render("You: ") + m.Content)
	default:
		c.println(botStyle.Render("Sahayak: ") + m.Content)
	}
}

func (c *console) audio(path string) {
	c.info("Audio answer saved to " + path)
}
