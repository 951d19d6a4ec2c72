package main

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"social_syncer/internal/domain"
	"social_syncer/internal/storage/postgres"
	"social_syncer/internal/storage/postgres/migrations"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show schema version, checkpoints and profile snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := connectDB(cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		st, err := migrations.GetStatus(db.DB)
		if err != nil {
			return err
		}
		checkpoints, err := postgres.NewCheckpointStore(db).List(ctx)
		if err != nil {
			return err
		}
		profiles, err := postgres.NewProfileStore(db).List(ctx)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		printf(cmd, "Schema\n")
		renderTable(out, []string{"Version", "Latest", "Pending", "Dirty"}, [][]string{{
			strconv.FormatUint(uint64(st.Version), 10),
			strconv.FormatUint(uint64(st.Latest), 10),
			strconv.FormatUint(uint64(st.Pending()), 10),
			strconv.FormatBool(st.Dirty),
		}})
		printf(cmd, "\nCheckpoints\n")
		renderTable(out, []string{"Platform", "Last Seen", "Last Run"}, checkpointRows(checkpoints))
		printf(cmd, "\nProfiles\n")
		renderTable(out, []string{"Platform", "Handle", "Followers", "Avatar", "Fetched"}, profileRows(profiles))
		return nil
	},
}

func checkpointRows(checkpoints []domain.Checkpoint) [][]string {
	rows := make([][]string, 0, len(checkpoints))
	for _, c := range checkpoints {
		lastSeen := c.LastSeenID
		if c.Empty() {
			lastSeen = "-"
		}
		rows = append(rows, []string{c.Platform.Label(), lastSeen, formatTime(c.LastRunAt)})
	}
	return rows
}

func profileRows(profiles []domain.ProfileSnapshot) [][]string {
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		avatar := "remote"
		if p.AvatarPath != "" {
			avatar = p.AvatarPath
		}
		rows = append(rows, []string{
			p.Platform.Label(),
			"@" + p.Handle,
			p.FollowerDisplay,
			avatar,
			formatTime(p.FetchedAt),
		})
	}
	return rows
}

// formatTime renders never-run timestamps, stored as the epoch, as "never".
func formatTime(t time.Time) string {
	if t.IsZero() || t.Unix() == 0 {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}

func renderTable(w io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(header)
	table.Bulk(rows)
	table.Render()
}
