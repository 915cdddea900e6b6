package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"rectify/internal/backup"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Inspect, restore and clean up the snapshots taken before fixes",
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshot directories, newest first",
	Args:  exactArgs(0),
	RunE:  runBackupsList,
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore DIR",
	Short: "Restore the files recorded in a snapshot directory",
	Long: `Restore every file recorded in DIR. DIR is either a path or the name of a
directory under the backup root. Checksums are verified before anything is
written back.`,
	Args: exactArgs(1),
	RunE: runBackupsRestore,
}

var backupsCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove all but the most recent snapshots",
	Args:  exactArgs(0),
	RunE:  runBackupsCleanup,
}

func init() {
	backupsCleanupCmd.Flags().Int("keep", -1, "snapshots to keep (default from config)")
	backupsCmd.AddCommand(backupsListCmd, backupsRestoreCmd, backupsCleanupCmd)
}

func openBackups(cmd *cobra.Command) (*backup.Manager, error) {
	cfg := configFrom(cmd.Context())
	return newBackups(cfg, nil)
}

func runBackupsList(cmd *cobra.Command, _ []string) error {
	m, err := openBackups(cmd)
	if err != nil {
		return err
	}
	ents, err := m.List()
	if err != nil {
		return err
	}
	printBackups(cmd.OutOrStdout(), ents)
	return nil
}

func printBackups(out io.Writer, ents []backup.Entry) {
	if len(ents) == 0 {
		fmt.Fprintln(out, "no backups")
		return
	}
	for _, e := range ents {
		var flags []string
		if !e.Success {
			flags = append(flags, "incomplete")
		}
		if e.InFlight {
			flags = append(flags, "in use")
		}
		line := fmt.Sprintf("%s  %-20s %3d file(s)  %s", e.Timestamp.Format("2006-01-02 15:04:05"), e.FixType, e.Files, e.Name)
		if len(flags) > 0 {
			line += "  " + detailColor.Sprintf("(%s)", strings.Join(flags, ", "))
		}
		fmt.Fprintln(out, line)
	}
}

func runBackupsRestore(cmd *cobra.Command, args []string) error {
	m, err := openBackups(cmd)
	if err != nil {
		return err
	}
	op, err := m.RestoreDirectory(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	root := m.Root()
	out := cmd.OutOrStdout()
	for _, man := range op.Manifests {
		fmt.Fprintf(out, "%s %s\n", committedColor.Sprint("restored"), displayPath(root, man.OriginalPath))
	}
	return nil
}

func runBackupsCleanup(cmd *cobra.Command, _ []string) error {
	cfg := configFrom(cmd.Context())
	keep := cfg.Backup.Keep
	if cmd.Flags().Changed("keep") {
		keep, _ = cmd.Flags().GetInt("keep")
		if keep < 0 {
			return usageErrorf("--keep must not be negative, got %d", keep)
		}
	}
	m, err := openBackups(cmd)
	if err != nil {
		return err
	}
	res, err := m.Cleanup(cmd.Context(), keep)
	out := cmd.OutOrStdout()
	root := m.Root()
	for _, p := range res.Archived {
		fmt.Fprintf(out, "archived %s\n", displayPath(root, p))
	}
	for _, p := range res.Removed {
		fmt.Fprintf(out, "removed  %s\n", displayPath(root, p))
	}
	for _, p := range res.Skipped {
		fmt.Fprintf(out, "kept     %s %s\n", displayPath(root, p), detailColor.Sprint("(in use)"))
	}
	if err != nil {
		return err
	}
	if len(res.Removed) == 0 && len(res.Skipped) == 0 {
		fmt.Fprintln(out, "nothing to clean up")
	}
	return nil
}
