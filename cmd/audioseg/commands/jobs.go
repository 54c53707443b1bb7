package commands

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/haivivi/audioseg/pkg/cli"
	"github.com/haivivi/audioseg/pkg/manifest"
	"github.com/haivivi/audioseg/pkg/storage"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List, show and delete recorded jobs",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List jobs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		m, closeManifest, err := openManifest(c)
		if err != nil {
			return err
		}
		defer closeManifest()

		jobs, err := m.List(cmd.Context())
		if err != nil {
			return err
		}
		return outputResult(jobList(jobs), cli.FormatTable)
	},
}

var jobsShowCmd = &cobra.Command{
	Use:   "show <job-id>",
	Short: "Show a job and its segments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		m, closeManifest, err := openManifest(c)
		if err != nil {
			return err
		}
		defer closeManifest()

		job, segs, err := m.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return outputResult(struct {
			Job      manifest.Job       `json:"job" yaml:"job"`
			Segments []manifest.Segment `json:"segments" yaml:"segments"`
		}{job, segs}, cli.FormatYAML)
	},
}

var jobsDeleteCmd = &cobra.Command{
	Use:   "delete <job-id>",
	Short: "Delete a job record",
	Long: `Delete a job from the manifest. With --files its segment files are
removed from the store as well.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := getContext()
		if err != nil {
			return err
		}
		m, closeManifest, err := openManifest(c)
		if err != nil {
			return err
		}
		defer closeManifest()

		var files storage.FileStore
		if withFiles, _ := cmd.Flags().GetBool("files"); withFiles {
			if files, err = openStore(c); err != nil {
				return err
			}
		}
		if err := m.Delete(cmd.Context(), args[0], files); err != nil {
			return err
		}
		cli.PrintSuccess("Job '%s' deleted", args[0])
		return nil
	},
}

func init() {
	jobsDeleteCmd.Flags().Bool("files", false, "also delete the segment files")

	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsShowCmd)
	jobsCmd.AddCommand(jobsDeleteCmd)
}

type jobList []manifest.Job

func (l jobList) Table() string {
	styles := cli.NewStyles(cli.DefaultTheme)
	rows := make([][]string, 0, len(l))
	for _, j := range l {
		rows = append(rows, []string{
			j.ID,
			j.CreatedAt.Local().Format("2006-01-02 15:04"),
			j.Source,
			j.Kind,
			strconv.Itoa(j.Segments),
			cli.FormatBytes(j.Bytes),
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styles.Border).
		Headers("ID", "CREATED", "SOURCE", "KIND", "SEGMENTS", "SIZE").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			return styles.Cell
		}).
		String()
}
