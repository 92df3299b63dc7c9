package cli

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Choose actions from an interactive menu",
	Args:  cobra.NoArgs,
	RunE:  runMenu,
}

func init() {
	rootCmd.AddCommand(menuCmd)
}

// menuItem is one menu entry. Args are the command line of the action; when
// Prompt is set the typed answer is appended as the last argument.
type menuItem struct {
	Label  string
	Args   []string
	Prompt string
}

func menuItems() []menuItem {
	return []menuItem{
		{Label: "Setup Environment (First Time)", Args: []string{"setup"}},
		{Label: "Take Photo with Webcam", Args: []string{"capture"}},
		{Label: "Process Single Image", Args: []string{"analyze"}, Prompt: "Image path"},
		{Label: "Batch Process Images", Args: []string{"batch"}},
		{Label: "Track Progress", Args: []string{"progress"}},
		{Label: "View User History", Args: []string{"history"}},
		{Label: "Export User Data", Args: []string{"export"}},
		{Label: "Create Sample Images", Args: []string{"samples"}},
		{Label: "Exit"},
	}
}

var (
	menuTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	menuMutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	menuNormalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	menuSelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
)

// menuModel is the bubbletea model of the main menu
type menuModel struct {
	items     []menuItem
	selected  int
	prompting bool
	input     string
	choice    []string
}

func newMenuModel() menuModel {
	return menuModel{items: menuItems()}
}

// Init implements tea.Model
func (m menuModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.Type == tea.KeyCtrlC {
		m.choice = nil
		return m, tea.Quit
	}
	if m.prompting {
		return m.updatePrompt(key)
	}

	switch key.String() {
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.items)-1 {
			m.selected++
		}
	case "enter":
		item := m.items[m.selected]
		if item.Prompt != "" {
			m.prompting = true
			m.input = ""
			return m, nil
		}
		m.choice = item.Args
		return m, tea.Quit
	case "q", "esc":
		m.choice = nil
		return m, tea.Quit
	}
	return m, nil
}

func (m menuModel) updatePrompt(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.Type {
	case tea.KeyEsc:
		m.prompting = false
		m.input = ""
	case tea.KeyEnter:
		answer := strings.TrimSpace(m.input)
		if answer == "" {
			return m, nil
		}
		item := m.items[m.selected]
		m.choice = append(append([]string{}, item.Args...), answer)
		return m, tea.Quit
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(key.Runes)
	}
	return m, nil
}

// View implements tea.Model
func (m menuModel) View() string {
	var b strings.Builder
	b.WriteString(menuTitleStyle.Render("HAIRLINE TRACKER"))
	b.WriteString("\n")
	b.WriteString(menuMutedStyle.Render("Hairline measurement and progress tracking"))
	b.WriteString("\n\n")

	for i, item := range m.items {
		cursor := "  "
		style := menuNormalStyle
		if i == m.selected {
			cursor = "> "
			style = menuSelectedStyle
		}
		b.WriteString(cursor + style.Render(fmt.Sprintf("%d. %s", i+1, item.Label)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.prompting {
		b.WriteString(fmt.Sprintf("%s: %s_\n", m.items[m.selected].Prompt, m.input))
		b.WriteString(menuMutedStyle.Render("[Enter] Confirm  [Esc] Back"))
		return b.String()
	}
	b.WriteString(menuMutedStyle.Render("[j/k] Navigate  [Enter] Select  [q] Quit"))
	return b.String()
}

// runMenu shows the menu, runs the chosen action and returns to the menu
// until the user exits.
func runMenu(cmd *cobra.Command, _ []string) error {
	for {
		final, err := tea.NewProgram(newMenuModel()).Run()
		if err != nil {
			return fmt.Errorf("menu error: %w", err)
		}
		choice := final.(menuModel).choice
		if len(choice) == 0 {
			cmd.Println("Goodbye!")
			return nil
		}

		if err := runAction(cmd, choice); err != nil {
			cmd.PrintErrf("Error: %v\n", err)
		}
		cmd.Println()
	}
}

// runAction runs the subcommand named by args with the current flag values
func runAction(cmd *cobra.Command, args []string) error {
	sub, rest, err := rootCmd.Find(args)
	if err != nil {
		return err
	}
	if sub.RunE == nil || sub == rootCmd {
		return fmt.Errorf("unknown action %q", strings.Join(args, " "))
	}
	if sub.Args != nil {
		if err := sub.Args(sub, rest); err != nil {
			return err
		}
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	sub.SetContext(ctx)
	return sub.RunE(sub, rest)
}
