package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mapmystandards/a3e/modules/standards/infrastructure/persistence"
	"github.com/mapmystandards/a3e/modules/standards/services"
	"github.com/mapmystandards/a3e/pkg/composables"
)

type exportOptions struct {
	key    string
	output string
}

func newExportCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a standards hierarchy from DB into a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.key, "key", "", "Standard key (required)")
	cmd.Flags().StringVar(&opts.output, "output", "", "Output JSON file (required)")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

type exportSummary struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Output string `json:"output"`
	Count  int    `json:"count"`
}

func runExport(ctx context.Context, opts exportOptions) error {
	if strings.TrimSpace(opts.key) == "" {
		return withCode(exitUsage, fmt.Errorf("--key is required"))
	}
	if strings.TrimSpace(opts.output) == "" {
		return withCode(exitUsage, fmt.Errorf("--output is required"))
	}

	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	svc := services.NewStandardsService(persistence.NewStandardsRepository(), services.ImportLimits{})
	ctx = composables.WithPool(ctx, pool)

	std, err := svc.GetStandard(ctx, opts.key)
	if err != nil {
		return asCliError(err)
	}
	items, err := svc.ListItems(ctx, opts.key)
	if err != nil {
		return asCliError(err)
	}

	codesByID := make(map[uuid.UUID]string, len(items))
	for _, it := range items {
		codesByID[it.ID] = it.Code
	}

	file := importFile{
		Key:       std.Key,
		Name:      std.Name,
		Version:   std.Version,
		Publisher: std.Publisher,
		Nodes:     make([]importFileNode, 0, len(items)),
	}
	for _, it := range items {
		var parentCode *string
		if it.ParentID != nil {
			code, ok := codesByID[*it.ParentID]
			if !ok {
				return withCode(exitDB, fmt.Errorf("item %s references unknown parent %s", it.Code, it.ParentID))
			}
			parentCode = &code
		}
		file.Nodes = append(file.Nodes, importFileNode{
			Code:        it.Code,
			Title:       it.Title,
			Description: it.Description,
			ParentCode:  parentCode,
		})
	}

	if err := writeJSONFile(opts.output, file); err != nil {
		return err
	}
	return writeJSONLine(exportSummary{
		Status: "exported",
		Key:    std.Key,
		Output: opts.output,
		Count:  len(items),
	})
}
