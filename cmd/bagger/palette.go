package main

import (
	"fmt"
	"os"

	"bagger/internal/app"
	"bagger/internal/bagger"
	"bagger/internal/model"
	"bagger/internal/palette"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var paletteCmd = &cobra.Command{
	Use:     "palette",
	Aliases: []string{"p"},
	Short:   "Search everything and jump to it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newLibraryApp(cmd.Context(), "Palette")
		if err != nil {
			return err
		}
		defer a.Close()

		// Entries only record the choice; it runs once the program has
		// released the terminal. Filters do not outlive a command, so there
		// is no clear-filters action.
		var chosen func() error
		choose := func(fn func() error) func() { return func() { chosen = fn } }
		list := func(kind string) func() error {
			return func() error { return printList(a, kind) }
		}

		entries := palette.BuildIndex(a.Store().Snapshot(), palette.Actions{
			GoToCheats:    choose(list("cheats")),
			GoToTopics:    choose(list("topics")),
			GoToPlatforms: choose(list("platforms")),
			NewCheat: choose(func() error {
				fmt.Println("Run `bagger cheats add --title TITLE --code CODE` to create a cheat.")
				return nil
			}),
			Sync: choose(func() error {
				if err := a.Sync(cmd.Context()); err != nil {
					return err
				}
				fmt.Println("Library synced.")
				return nil
			}),
			OpenCheat: func(c model.Cheat) {
				chosen = func() error {
					printCheat(os.Stdout, a.Store(), c)
					return nil
				}
			},
			OpenTopic: func(t model.Topic) {
				chosen = func() error {
					return printFiltered(a, bagger.CheatFilter{TopicIDs: []int64{t.ID}})
				}
			},
			OpenPlatform: func(p model.Platform) {
				chosen = func() error {
					return printFiltered(a, bagger.CheatFilter{PlatformIDs: []int64{p.ID}})
				}
			},
		})

		final, err := tea.NewProgram(palette.NewModel(entries), tea.WithContext(cmd.Context())).Run()
		if err != nil {
			return fmt.Errorf("running palette: %w", err)
		}
		if m, ok := final.(palette.Model); !ok || !m.Invoked() || chosen == nil {
			return nil
		}
		return chosen()
	},
}

func printList(a *app.BaggerApp, kind string) error {
	store := a.Store()
	switch kind {
	case "topics":
		p := bagger.NewTopicListView().Render(store.Topics())
		for _, t := range p.Items {
			fmt.Printf("%5d  %s\n", t.ID, t.Name)
		}
		printPageFooter(os.Stdout, p.Number, p.TotalPages, p.Total)
	case "platforms":
		p := bagger.NewPlatformListView().Render(store.Platforms())
		for _, pl := range p.Items {
			fmt.Printf("%5d  %-20s  %s\n", pl.ID, pl.Name, pl.Type)
		}
		printPageFooter(os.Stdout, p.Number, p.TotalPages, p.Total)
	default:
		printCheatPage(os.Stdout, store, bagger.NewCheatListView().Render(store.Cheats()))
	}
	return nil
}

func printFiltered(a *app.BaggerApp, f bagger.CheatFilter) error {
	view := bagger.NewCheatListView()
	view.SetPlatforms(f.PlatformIDs)
	view.SetTopics(f.TopicIDs)
	printCheatPage(os.Stdout, a.Store(), view.Render(a.Store().Cheats()))
	return nil
}
