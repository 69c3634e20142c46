package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"magicyan/internal/magicyan"
	"magicyan/internal/resume"
	"magicyan/internal/validate"
)

// 空标题的文件无法再次导入，新建空白简历时给一个默认标题。
const defaultTitle = "我的简历"

func newNewCmd(a *app) *cobra.Command {
	var (
		sample bool
		title  string
		output string
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a new .magicyan file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			now := a.now()
			doc := resume.SetTitle(resume.New(now), defaultTitle)
			if sample {
				doc = resume.Sample(now)
			}
			if title != "" {
				doc = resume.SetTitle(doc, title)
			}
			if output == "" {
				output = magicyan.ExportFilename(doc.Title, now)
			}
			if !force {
				if _, err := os.Stat(output); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", output)
				} else if !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("stat %s: %w", output, err)
				}
			}
			if err := a.writeDocument(output, doc); err != nil {
				return err
			}
			cmd.Printf("created %s\n", output)
			return nil
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "start from the filled sample resume")
	cmd.Flags().StringVar(&title, "title", "", "resume title")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: <title>_<date>.magicyan)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	return cmd
}

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a .magicyan file against the resume rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(args[0])
			if err != nil {
				return err
			}
			// 导入只做结构检查，这里再跑一遍完整规则
			result := validate.Document(doc)
			if !result.Valid {
				for _, msg := range result.Errors {
					cmd.Printf("  - %s\n", msg)
				}
				return fmt.Errorf("%w: %s: %d problem(s)", errInvalidFile, args[0], len(result.Errors))
			}
			cmd.Printf("%s: ok (%d info items, %d modules)\n", args[0], len(doc.PersonalInfo), len(doc.Modules))
			return nil
		},
	}
}
