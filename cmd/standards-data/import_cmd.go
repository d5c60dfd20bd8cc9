package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mapmystandards/a3e/modules/standards/domain/standard"
	"github.com/mapmystandards/a3e/modules/standards/infrastructure/persistence"
	"github.com/mapmystandards/a3e/modules/standards/services"
	"github.com/mapmystandards/a3e/pkg/composables"
	"github.com/mapmystandards/a3e/pkg/configuration"
)

type importOptions struct {
	input     string
	apply     bool
	key       string
	name      string
	version   string
	publisher string
}

type importFileNode struct {
	Code        string  `json:"code"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	ParentCode  *string `json:"parentCode,omitempty"`
}

type importFile struct {
	Key       string           `json:"key"`
	Name      string           `json:"name"`
	Version   *string          `json:"version,omitempty"`
	Publisher *string          `json:"publisher,omitempty"`
	Nodes     []importFileNode `json:"nodes"`
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a standards hierarchy from a JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Input JSON file (required)")
	cmd.Flags().BoolVar(&opts.apply, "apply", false, "Apply changes to DB (default is dry-run)")
	cmd.Flags().StringVar(&opts.key, "key", "", "Override the standard key from the input file")
	cmd.Flags().StringVar(&opts.name, "name", "", "Override the standard name from the input file")
	cmd.Flags().StringVar(&opts.version, "version", "", "Override the standard version from the input file")
	cmd.Flags().StringVar(&opts.publisher, "publisher", "", "Override the standard publisher from the input file")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

type importSummary struct {
	Status     string              `json:"status"`
	Key        string              `json:"key"`
	Apply      bool                `json:"apply"`
	Input      string              `json:"input"`
	Count      int                 `json:"count"`
	StandardID string              `json:"standardId,omitempty"`
	Plan       []services.PlanNode `json:"plan,omitempty"`
}

func runImport(ctx context.Context, opts importOptions) error {
	if strings.TrimSpace(opts.input) == "" {
		return withCode(exitUsage, fmt.Errorf("--input is required"))
	}

	var file importFile
	if err := readJSONFile(opts.input, &file); err != nil {
		return err
	}
	if v := strings.TrimSpace(opts.key); v != "" {
		file.Key = v
	}
	if v := strings.TrimSpace(opts.name); v != "" {
		file.Name = v
	}
	if v := strings.TrimSpace(opts.version); v != "" {
		file.Version = &v
	}
	if v := strings.TrimSpace(opts.publisher); v != "" {
		file.Publisher = &v
	}

	in := services.ImportInput{
		Key:       file.Key,
		Name:      file.Name,
		Version:   file.Version,
		Publisher: file.Publisher,
		Nodes:     make([]standard.ItemInput, 0, len(file.Nodes)),
	}
	for _, n := range file.Nodes {
		in.Nodes = append(in.Nodes, standard.ItemInput{
			Code:        n.Code,
			Title:       n.Title,
			Description: n.Description,
			ParentCode:  n.ParentCode,
		})
	}

	conf := configuration.Use()
	limits := services.ImportLimits{
		MaxDepth: conf.Import.MaxDepth,
		MaxNodes: conf.Import.MaxNodes,
	}

	if !opts.apply {
		svc := services.NewStandardsService(nil, limits)
		plan, err := svc.Plan(in)
		if err != nil {
			return asCliError(err)
		}
		return writeJSONLine(importSummary{
			Status: "dry_run",
			Key:    in.Key,
			Apply:  false,
			Input:  opts.input,
			Count:  len(plan),
			Plan:   plan,
		})
	}

	pool, err := connectDB(ctx)
	if err != nil {
		return withCode(exitDB, err)
	}
	defer pool.Close()

	svc := services.NewStandardsService(persistence.NewStandardsRepository(), limits)
	res, err := svc.Import(composables.WithPool(ctx, pool), in)
	if err != nil {
		return asCliError(err)
	}

	return writeJSONLine(importSummary{
		Status:     "applied",
		Key:        in.Key,
		Apply:      true,
		Input:      opts.input,
		Count:      res.Count,
		StandardID: res.StandardID.String(),
	})
}

func asCliError(err error) error {
	var se *services.ServiceError
	if errors.As(err, &se) {
		if se.Status < 500 {
			return withCode(exitValidation, err)
		}
		return withCode(exitDB, err)
	}
	return withCode(exitDB, err)
}
