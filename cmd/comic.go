package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var comicCmd = &cobra.Command{
	Use:   "comic",
	Short: "Manage tracked comics",
}

var comicAddCmd = &cobra.Command{
	Use:   "add [name] [url]",
	Short: "Start tracking a comic",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		name, url := argAt(args, 0), argAt(args, 1)
		if name == "" {
			if name, err = ask("Comic name"); err != nil {
				return err
			}
		}
		if url == "" {
			if url, err = ask("Series page URL"); err != nil {
				return err
			}
		}

		if err := store.Add(name, url, time.Now()); err != nil {
			return err
		}
		if err := store.Save(); err != nil {
			return err
		}

		fmt.Printf("Tracking %q (%s)\n", name, url)
		return nil
	},
}

var comicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tracked comics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		list := store.List()
		if len(list) == 0 {
			fmt.Println("No comics tracked. Add one with `chaptrix comic add`.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 4, ' ', 0)
		_, _ = fmt.Fprintln(w, "NAME\tLAST CHAPTER\tLAST CHECKED\tURL")
		for _, c := range list {
			checked := "never"
			if !c.LastChecked.IsZero() {
				checked = c.LastChecked.Local().Format(time.DateTime)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, orDash(c.LastKnownChapter), checked, c.URL)
		}
		return w.Flush()
	},
}

var comicRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Stop tracking a comic",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}

		name := argAt(args, 0)
		if name == "" {
			list := store.List()
			if len(list) == 0 {
				return errors.New("no comics tracked")
			}

			items := make([]string, len(list))
			for i, c := range list {
				items[i] = c.Name
			}

			prompt := promptui.Select{Label: "Select comic to remove", Items: items}
			idx, _, err := prompt.Run()
			if err != nil {
				return errors.New("selection cancelled")
			}
			name = list[idx].Name

			if !confirm(fmt.Sprintf("Stop tracking %q", name)) {
				fmt.Println("Aborted.")
				return nil
			}
		}

		if err := store.Remove(name); err != nil {
			return err
		}
		if err := store.Save(); err != nil {
			return err
		}

		fmt.Printf("Removed %q\n", name)
		return nil
	},
}

func init() {
	comicCmd.AddCommand(comicAddCmd, comicListCmd, comicRemoveCmd)
	rootCmd.AddCommand(comicCmd)
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return strings.TrimSpace(args[i])
	}
	return ""
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func ask(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("cannot be empty")
			}
			return nil
		},
	}

	v, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("%s: %w", strings.ToLower(label), err)
	}
	return strings.TrimSpace(v), nil
}

func confirm(label string) bool {
	prompt := promptui.Prompt{Label: label, IsConfirm: true}
	_, err := prompt.Run()
	return err == nil
}
