package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	archipelago "github.com/NeboLoop/archipelago-go-sdk"
)

const webHostEnv = "AP_WEB_HOST"

func addWebHostFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "web-host", envOr(webHostEnv, archipelago.DefaultWebHost), "Web host base URL")
}

func roomCmd() *cobra.Command {
	var webHost string

	cmd := &cobra.Command{
		Use:   "room <room-id>",
		Short: "Show a room's players and port",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := archipelago.NewAPIClient(webHost, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			rs, err := api.RoomStatus(ctx, args[0])
			if err != nil {
				return err
			}
			printRoomStatus(cmd.OutOrStdout(), rs)
			return nil
		},
	}
	addWebHostFlag(cmd, &webHost)
	return cmd
}

func printRoomStatus(out io.Writer, rs *archipelago.RoomStatus) {
	fmt.Fprintf(out, "Port:          %d\n", rs.LastPort)
	fmt.Fprintf(out, "Last activity: %s\n", rs.LastActivity)
	fmt.Fprintf(out, "Tracker:       %s\n\n", rs.Tracker)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SLOT\tNAME\tGAME")
	for i, p := range rs.Players {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i+1, p.Name, p.Game)
	}
	tw.Flush()
}

func dataPackageCmd() *cobra.Command {
	var webHost string

	cmd := &cobra.Command{
		Use:   "datapackage [checksum]",
		Short: "List data package checksums, or show one package",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := archipelago.NewAPIClient(webHost, nil)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				gd, err := api.DataPackage(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Checksum:  %s\n", gd.Checksum)
				fmt.Fprintf(out, "Items:     %d\n", len(gd.ItemNameToID))
				fmt.Fprintf(out, "Locations: %d\n", len(gd.LocationNameToID))
				return nil
			}

			sums, err := api.DataPackageChecksums(ctx)
			if err != nil {
				return err
			}
			games := make([]string, 0, len(sums))
			for g := range sums {
				games = append(games, g)
			}
			sort.Strings(games)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, g := range games {
				fmt.Fprintf(tw, "%s\t%s\n", g, sums[g])
			}
			return tw.Flush()
		},
	}
	addWebHostFlag(cmd, &webHost)
	return cmd
}
