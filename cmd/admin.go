package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"guardian/pkg/config"
	"guardian/pkg/registry"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var watchDashboard bool

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Print the event dashboard",
	Long:  "Prints the organiser dashboard: summary counters, crowd zones, incidents, SOS alerts and smart bins. With --watch the bin telemetry keeps updating.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		reg := registry.New()
		out := cmd.OutOrStdout()
		renderDashboard(out, reg, time.Now())
		if !watchDashboard {
			return
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		_ = reg.RunTelemetry(ctx, cfg.Admin.RefreshInterval(), nil, func() {
			fmt.Fprint(out, "\033[H\033[2J")
			renderDashboard(out, reg, time.Now())
		})
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.Flags().BoolVarP(&watchDashboard, "watch", "w", false, "refresh the dashboard after every telemetry tick")
}

func renderDashboard(out io.Writer, reg *registry.Registry, now time.Time) {
	summary := reg.Summary()
	fmt.Fprintf(out, "Simhastha Guardian dashboard · %s\n\n", now.Format("02 Jan 15:04:05"))

	table := newTable(out, "Metric", "Value")
	table.Append([]string{"Open incidents", strconv.Itoa(summary.OpenIncidents)})
	table.Append([]string{"Active SOS", strconv.Itoa(summary.ActiveSOS)})
	table.Append([]string{"Donations", fmt.Sprintf("₹%.0f (%d)", summary.DonationTotal, summary.DonationCount)})
	table.Append([]string{"Pending seva", strconv.Itoa(summary.PendingSeva)})
	table.Append([]string{"Critical bins", strconv.Itoa(summary.CriticalBins)})
	table.Append([]string{"High crowd zones", strings.Join(summary.HighCrowdZones, ", ")})
	table.Render()

	fmt.Fprintln(out, "\nCrowd zones")
	table = newTable(out, "Zone", "Level", "Occupancy")
	for _, zone := range reg.Zones() {
		table.Append([]string{zone.Name, string(zone.Level), strconv.Itoa(zone.Occupancy) + "%"})
	}
	table.Render()

	fmt.Fprintln(out, "\nIncidents")
	table = newTable(out, "ID", "Type", "Location", "Status", "Reported")
	for _, incident := range reg.Incidents() {
		table.Append([]string{
			shortID(incident.ID),
			incident.Type,
			incident.LocationName,
			string(incident.Status),
			age(now, incident.Timestamp),
		})
	}
	table.Render()

	fmt.Fprintln(out, "\nSOS alerts")
	table = newTable(out, "ID", "Name", "Phone", "Emergency contact", "Status", "Raised")
	for _, alert := range reg.SOSAlerts() {
		table.Append([]string{
			shortID(alert.ID),
			alert.UserName,
			alert.UserPhone,
			alert.EmergencyContact,
			string(alert.Status),
			age(now, alert.Timestamp),
		})
	}
	table.Render()

	fmt.Fprintln(out, "\nSmart bins")
	table = newTable(out, "ID", "Location", "Fill", "Battery", "Status")
	for _, bin := range reg.Bins() {
		table.Append([]string{
			bin.ID,
			bin.Location,
			fmt.Sprintf("%.0f%%", bin.FillLevel),
			fmt.Sprintf("%.0f%%", bin.BatteryLevel),
			bin.Status,
		})
	}
	table.Render()
}

func newTable(out io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func age(now, at time.Time) string {
	d := now.Sub(at)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
