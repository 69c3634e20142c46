package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"magicyan/internal/resume"
)

func newModuleCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "module",
		Short: "List and edit resume modules",
	}
	cmd.AddCommand(
		newModuleListCmd(a),
		newModuleAddCmd(a),
		newModuleMoveCmd(a),
		newModuleReorderCmd(a),
		newModuleRemoveCmd(a),
	)
	return cmd
}

// edit 读取文件，依次执行编辑并写回。
func (a *app) edit(path string, mutations ...resume.Mutation) (resume.Document, error) {
	doc, err := a.readDocument(path)
	if err != nil {
		return resume.Document{}, err
	}
	for _, m := range mutations {
		if doc, err = a.editor.Apply(doc, m); err != nil {
			return resume.Document{}, err
		}
	}
	if err := a.writeDocument(path, doc); err != nil {
		return resume.Document{}, err
	}
	return doc, nil
}

func requireModule(doc resume.Document, id string) error {
	if doc.FindModule(id) < 0 {
		return fmt.Errorf("module %q not found", id)
	}
	return nil
}

func newModuleListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "Print modules in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0])
			if err != nil {
				return err
			}
			for _, m := range resume.SortedModules(doc.Modules) {
				cmd.Printf("%d\t%s\t%s\n", m.Order, m.ID, m.Title)
			}
			return nil
		},
	}
}

func newModuleAddCmd(a *app) *cobra.Command {
	var patch struct {
		title, subtitle, timeRange, content, icon string
	}
	cmd := &cobra.Command{
		Use:   "add <file>",
		Short: "Append a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0])
			if err != nil {
				return err
			}
			doc, err = a.editor.Apply(doc, resume.Mutation{Op: resume.OpAddModule})
			if err != nil {
				return err
			}
			id := doc.Modules[len(doc.Modules)-1].ID

			mp := resume.ModulePatch{}
			flags := cmd.Flags()
			if flags.Changed("title") {
				mp.Title = &patch.title
			}
			if flags.Changed("subtitle") {
				mp.Subtitle = &patch.subtitle
			}
			if flags.Changed("time-range") {
				mp.TimeRange = &patch.timeRange
			}
			if flags.Changed("content") {
				mp.Content = &patch.content
			}
			if flags.Changed("icon") {
				icon := resume.IconRef(patch.icon)
				mp.Icon = &icon
			}
			if doc, err = a.editor.Apply(doc, resume.Mutation{Op: resume.OpUpdateModule, ID: id, Module: &mp}); err != nil {
				return err
			}
			if err := a.writeDocument(args[0], doc); err != nil {
				return err
			}
			cmd.Printf("added %s\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&patch.title, "title", "", "module title")
	cmd.Flags().StringVar(&patch.subtitle, "subtitle", "", "subtitle, e.g. company or school")
	cmd.Flags().StringVar(&patch.timeRange, "time-range", "", "time range, e.g. 2020.09 - 2024.06")
	cmd.Flags().StringVar(&patch.content, "content", "", "body text")
	cmd.Flags().StringVar(&patch.icon, "icon", "", "icon reference such as mdi:school")
	return cmd
}

func newModuleMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <file> <module-id> <up|down>",
		Short: "Swap a module with its neighbour",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0])
			if err != nil {
				return err
			}
			if err := requireModule(doc, args[1]); err != nil {
				return err
			}
			if _, err := a.edit(args[0], resume.Mutation{Op: resume.OpMoveModule, ID: args[1], Direction: args[2]}); err != nil {
				return err
			}
			cmd.Printf("moved %s %s\n", args[1], args[2])
			return nil
		},
	}
}

func newModuleReorderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <file> <module-id> <index>",
		Short: "Move a module to a zero-based position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid index %q", args[2])
			}
			doc, err := a.readDocument(args[0])
			if err != nil {
				return err
			}
			if err := requireModule(doc, args[1]); err != nil {
				return err
			}
			if _, err := a.edit(args[0], resume.Mutation{Op: resume.OpReorderModule, ID: args[1], Index: &index}); err != nil {
				return err
			}
			cmd.Printf("moved %s to %d\n", args[1], index)
			return nil
		},
	}
}

func newModuleRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <file> <module-id>",
		Short: "Delete a module",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0])
			if err != nil {
				return err
			}
			if err := requireModule(doc, args[1]); err != nil {
				return err
			}
			if _, err := a.edit(args[0], resume.Mutation{Op: resume.OpRemoveModule, ID: args[1]}); err != nil {
				return err
			}
			cmd.Printf("removed %s\n", args[1])
			return nil
		},
	}
}
