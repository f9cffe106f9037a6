package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/speedhive-tools/internal/speedhive"
)

var (
	flagOrgsID        int64
	flagOrgsSearch    string
	flagOrgsMaxEvents int
)

func newOrgsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orgs",
		Short: "Look up organizations by id or name",
		Long: `Fetches one organization with --id, or scans recent public events for
organizations whose name contains --search.`,
		Example: `  speedhive orgs --id 30476
  speedhive orgs --search "waterford" --max-events 2000`,
		RunE: runOrgs,
	}

	cmd.Flags().Int64Var(&flagOrgsID, "id", 0, "Organization id")
	cmd.Flags().StringVar(&flagOrgsSearch, "search", "", "Name fragment to search for")
	cmd.Flags().IntVar(&flagOrgsMaxEvents, "max-events", 1000, "Public events scanned when searching")

	cmd.MarkFlagsMutuallyExclusive("id", "search")
	cmd.MarkFlagsOneRequired("id", "search")

	return cmd
}

func runOrgs(cmd *cobra.Command, args []string) error {
	format, err := outputFormat()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	client := newClient()

	var orgs []speedhive.Organization
	if flagOrgsID != 0 {
		org, err := client.GetOrganization(ctx, flagOrgsID)
		if err != nil {
			return err
		}
		orgs = append(orgs, *org)
	} else {
		if orgs, err = client.FindOrganizations(ctx, flagOrgsSearch, flagOrgsMaxEvents); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		if orgs == nil {
			orgs = []speedhive.Organization{}
		}
		return writeJSON(out, orgs)
	}
	return writeOrgsText(out, orgs)
}

// writeOrgsText outputs organizations as a table
func writeOrgsText(w io.Writer, orgs []speedhive.Organization) error {
	if len(orgs) == 0 {
		fmt.Fprintln(w, "No organizations found.")
		return nil
	}

	rows := make([][]string, len(orgs))
	for i, org := range orgs {
		country := ""
		if org.Country != nil {
			country = org.Country.Name
		}
		rows[i] = []string{strconv.FormatInt(org.ResolvedID(), 10), org.Name, country}
	}
	return writeTable(w, []string{"ID", "NAME", "COUNTRY"}, rows)
}
