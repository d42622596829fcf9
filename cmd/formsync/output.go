package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/groblegark/formsync/internal/engine"
	"github.com/groblegark/formsync/internal/model"
	"github.com/groblegark/formsync/internal/ui"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error encoding JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func printFormat(f *model.Format) {
	fmt.Printf("%s  %s\n", f.ID, f.Name)
	fmt.Printf("  service:  %s\n", f.Service)
	fmt.Printf("  version:  %d\n", f.Version)
	fmt.Printf("  renaming: %v\n", f.IncludeWhenRenaming)
	fmt.Printf("  specs:    %d\n", len(f.Specifications))
	for _, spec := range f.Specifications {
		flags := ""
		if spec.Negate {
			flags += " negate"
		}
		if spec.Required {
			flags += " required"
		}
		fmt.Printf("    - %s (%s)%s\n", spec.Name, spec.Implementation, flags)
	}
	fmt.Printf("  updated:  %s\n", f.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printFormatListTable(formats []*model.Format, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSERVICE\tVERSION\tSPECS")
	for _, f := range formats {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", f.ID, f.Name, f.Service, f.Version, len(f.Specifications))
	}
	w.Flush()
	if total > len(formats) {
		fmt.Printf("(%d of %d)\n", len(formats), total)
	}
}

func printInstanceListTable(instances []*model.Instance) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tSERVICE\tURL")
	for _, inst := range instances {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", inst.ID, inst.Label, inst.Service, inst.URL)
	}
	w.Flush()
}

func printDeploymentListTable(statuses []*model.DeploymentStatus) {
	useColor := ui.ShouldUseColor()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tFORMAT\tINSTANCE\tDEPLOYED\tLIVE\tDRIFT")
	for _, st := range statuses {
		fmt.Fprintf(w, "%s\t%s\t%s\tv%d\tv%d\t%s\n",
			st.ID, st.FormatName, st.InstanceID,
			st.DeployedVersion, st.LiveVersion,
			ui.Drift(st.NeedsUpdate, useColor),
		)
	}
	w.Flush()
}

func printBatchResult(res *engine.BatchResult) {
	useColor := ui.ShouldUseColor()
	for _, name := range res.Created {
		fmt.Printf("%s  %s\n", ui.Outcome("created", useColor), name)
	}
	for _, name := range res.Updated {
		fmt.Printf("%s  %s\n", ui.Outcome("updated", useColor), name)
	}
	for _, f := range res.Failed {
		fmt.Printf("%s   %s (%s): %s\n", ui.Outcome("failed", useColor), f.Name, f.FormatID, f.Error)
	}
	fmt.Printf("%d created, %d updated, %d failed\n", len(res.Created), len(res.Updated), len(res.Failed))
}
