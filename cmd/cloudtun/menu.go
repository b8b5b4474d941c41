package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cloudtun/cloudtun/pkg/types"
)

var (
	cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

type menuItem struct {
	label  string
	action func(context.Context, *app) (*types.Snapshot, error)
}

// menuItems returns the actions valid for the current lifecycle state.
func menuItems(state types.LifecycleState) []menuItem {
	var items []menuItem

	switch state {
	case types.StateAbsent:
		items = append(items,
			menuItem{"Deploy endpoint", func(ctx context.Context, a *app) (*types.Snapshot, error) {
				return a.engine.Deploy(ctx)
			}},
			menuItem{"Deploy and connect", func(ctx context.Context, a *app) (*types.Snapshot, error) {
				if _, err := a.engine.Deploy(ctx); err != nil {
					return nil, err
				}
				return a.engine.Connect(ctx)
			}},
		)
	case types.StateProvisioning:
		items = append(items,
			menuItem{"Resume deployment", func(ctx context.Context, a *app) (*types.Snapshot, error) {
				return a.engine.Deploy(ctx)
			}},
			menuItem{"Delete endpoint", deleteAction},
		)
	case types.StateStopped:
		items = append(items,
			menuItem{"Start endpoint", func(ctx context.Context, a *app) (*types.Snapshot, error) {
				return a.engine.Start(ctx)
			}},
			menuItem{"Delete endpoint", deleteAction},
		)
	case types.StateRunningDisconnected:
		items = append(items,
			menuItem{"Connect", func(ctx context.Context, a *app) (*types.Snapshot, error) {
				return a.engine.Connect(ctx)
			}},
			menuItem{"Stop endpoint", func(ctx context.Context, a *app) (*types.Snapshot, error) {
				return a.engine.Stop(ctx)
			}},
			menuItem{"Delete endpoint", deleteAction},
		)
	case types.StateRunningConnected:
		items = append(items,
			menuItem{"Disconnect", func(ctx context.Context, a *app) (*types.Snapshot, error) {
				return a.engine.Disconnect(ctx)
			}},
			menuItem{"Stop endpoint", func(ctx context.Context, a *app) (*types.Snapshot, error) {
				return a.engine.Stop(ctx)
			}},
			menuItem{"Delete endpoint", deleteAction},
		)
	}

	items = append(items,
		menuItem{"Status check", func(ctx context.Context, a *app) (*types.Snapshot, error) {
			return a.engine.StatusCheck(ctx)
		}},
		menuItem{"View client config", viewConfigAction},
		menuItem{"Quit", nil},
	)
	return items
}

func deleteAction(ctx context.Context, a *app) (*types.Snapshot, error) {
	if !confirmDelete(a.cfg.InstanceName()) {
		fmt.Println("Aborted.")
		return nil, nil
	}
	return a.engine.Delete(ctx)
}

func viewConfigAction(ctx context.Context, a *app) (*types.Snapshot, error) {
	data, err := os.ReadFile(a.cfg.ClientConfig)
	if err != nil {
		return nil, err
	}
	fmt.Print(string(data))
	return nil, nil
}

type menuModel struct {
	header string
	items  []menuItem
	cursor int
	choice *menuItem
}

func (m menuModel) Init() tea.Cmd { return nil }

func (m menuModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			m.choice = &m.items[m.cursor]
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m menuModel) View() string {
	s := m.header + "\n\n"
	for i, item := range m.items {
		if i == m.cursor {
			s += cursorStyle.Render("> "+item.label) + "\n"
		} else {
			s += "  " + item.label + "\n"
		}
	}
	s += "\n" + dimStyle.Render("up/down to move, enter to select, q to quit") + "\n"
	return s
}

// runMenu reconciles, shows the actions valid for the derived state, runs
// the chosen one and loops until the user quits.
func runMenu() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		snap, err := a.engine.Reconcile(ctx)
		if err != nil {
			return err
		}

		model := menuModel{
			header: renderSnapshot(snap),
			items:  menuItems(snap.State),
		}
		out, err := tea.NewProgram(model).Run()
		if err != nil {
			return err
		}

		final := out.(menuModel)
		if final.choice == nil || final.choice.action == nil {
			return nil
		}

		snap, err = final.choice.action(ctx, a)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if snap != nil {
			fmt.Println(renderSnapshot(snap))
		}
	}
}
