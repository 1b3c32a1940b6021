package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/netsyncd/netsync-core/internal/infrastructure/logging"
	"github.com/netsyncd/netsync-core/internal/inventory"
	"github.com/netsyncd/netsync-core/internal/sync"
)

// Importer errors.
var (
	// ErrPathNotFound is returned when the definitions directory does not
	// exist.
	ErrPathNotFound = errors.New("importer: definitions path not found")

	// ErrNoFilter is returned when neither a manufacturer nor a text
	// filter is set and AllowAll is false. The guard exists so a typo'd
	// invocation cannot import an entire definition library by accident.
	ErrNoFilter = errors.New("importer: no filter set and AllowAll not enabled")

	// ErrInvalidDefinition is returned for files missing required fields.
	ErrInvalidDefinition = errors.New("importer: invalid definition")
)

// Options selects which definition files to import.
type Options struct {
	// Path is the root of the definitions tree. Scanned recursively.
	Path string

	// Manufacturer keeps only files whose directory path contains it.
	Manufacturer string

	// Filter is a regular expression applied to file names.
	Filter string

	// AllowAll permits running without any filter.
	AllowAll bool

	// DryRun lists the files that would be imported without writing.
	DryRun bool
}

// Result summarizes one import.
type Result struct {
	Files     []string `json:"files"`
	Created   int      `json:"created"`
	Updated   int      `json:"updated"`
	Templates int      `json:"templates"`
	Errors    []string `json:"errors,omitempty"`
	DryRun    bool     `json:"dry_run,omitempty"`
}

// Importer loads device-type definition files into the inventory.
// Re-importing a file converges on its contents: the device type is
// updated in place and each category's template set is replaced.
type Importer struct {
	types     inventory.DeviceTypeRepository
	templates inventory.ComponentTemplateRepository
	log       *logging.Logger
}

// New creates an importer.
func New(types inventory.DeviceTypeRepository, templates inventory.ComponentTemplateRepository, log *logging.Logger) *Importer {
	if log == nil {
		log = logging.Default()
	}
	return &Importer{
		types:     types,
		templates: templates,
		log:       log,
	}
}

// Run scans the definitions tree and imports every matching file. A file
// that fails to parse or store is recorded in Result.Errors and the import
// moves on; only scan-level problems fail the run.
func (i *Importer) Run(ctx context.Context, opts Options) (*Result, error) {
	if _, err := os.Stat(opts.Path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, opts.Path)
	}
	if opts.Manufacturer == "" && opts.Filter == "" && !opts.AllowAll {
		return nil, ErrNoFilter
	}

	var fileFilter *regexp.Regexp
	if opts.Filter != "" {
		var err error
		fileFilter, err = regexp.Compile(opts.Filter)
		if err != nil {
			return nil, fmt.Errorf("compiling file filter: %w", err)
		}
	}

	var files []string
	err := filepath.WalkDir(opts.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := filepath.Ext(d.Name())
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}
		if opts.Manufacturer != "" && !strings.Contains(filepath.Dir(path), opts.Manufacturer) {
			return nil
		}
		if fileFilter != nil && !fileFilter.MatchString(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning definitions: %w", err)
	}

	result := &Result{Files: files, DryRun: opts.DryRun}
	if len(files) == 0 {
		i.log.Warn("no matching definition files", "path", opts.Path)
		return result, nil
	}

	if opts.DryRun {
		for _, f := range files {
			i.log.Info("would import definition", "file", f)
		}
		return result, nil
	}

	for _, f := range files {
		if err := i.importFile(ctx, f, result); err != nil {
			i.log.Error("definition import failed", "file", f, "error", err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f, err))
		}
	}

	i.log.Info("definition import completed",
		"files", len(files),
		"created", result.Created,
		"updated", result.Updated,
		"templates", result.Templates,
		"errors", len(result.Errors),
	)

	return result, nil
}

// importFile parses one definition and upserts its device type and
// templates.
func (i *Importer) importFile(ctx context.Context, path string, result *Result) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading definition: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return fmt.Errorf("parsing definition: %w", err)
	}
	if def.Manufacturer == "" || def.Model == "" {
		return fmt.Errorf("%w: manufacturer and model are required", ErrInvalidDefinition)
	}

	dt, created, err := i.upsertDeviceType(ctx, &def)
	if err != nil {
		return err
	}
	if created {
		result.Created++
	} else {
		result.Updated++
	}

	for _, cat := range sync.AllCategories() {
		defs := def.components(cat.Name)
		templates := make([]inventory.ComponentTemplate, 0, len(defs))
		for _, cd := range defs {
			templates = append(templates, cd.template(dt.ID, cat))
		}
		if err := i.templates.ReplaceForDeviceType(ctx, dt.ID, cat.Name, templates); err != nil {
			return fmt.Errorf("replacing %s templates: %w", cat.Name, err)
		}
		result.Templates += len(templates)
	}

	i.log.Info("imported device type",
		"manufacturer", def.Manufacturer,
		"model", def.Model,
		"created", created,
	)
	return nil
}

func (i *Importer) upsertDeviceType(ctx context.Context, def *Definition) (*inventory.DeviceType, bool, error) {
	slug := def.Slug
	if slug == "" {
		slug = inventory.GenerateSlug(def.Manufacturer + " " + def.Model)
	}

	existing, err := i.types.GetBySlug(ctx, slug)
	switch {
	case err == nil:
		existing.Manufacturer = def.Manufacturer
		existing.Model = def.Model
		existing.PartNumber = def.PartNumber
		if def.UHeight > 0 {
			existing.UHeight = def.UHeight
		}
		if def.IsFullDepth != nil {
			existing.IsFullDepth = *def.IsFullDepth
		}
		if err := i.types.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("updating device type: %w", err)
		}
		return existing, false, nil

	case errors.Is(err, inventory.ErrDeviceTypeNotFound):
		dt := &inventory.DeviceType{
			Manufacturer: def.Manufacturer,
			Model:        def.Model,
			Slug:         slug,
			PartNumber:   def.PartNumber,
			UHeight:      def.UHeight,
			IsFullDepth:  def.IsFullDepth == nil || *def.IsFullDepth,
		}
		if err := i.types.Create(ctx, dt); err != nil {
			return nil, false, fmt.Errorf("creating device type: %w", err)
		}
		return dt, true, nil

	default:
		return nil, false, fmt.Errorf("looking up device type: %w", err)
	}
}

// components returns the definition list for one category.
func (d *Definition) components(category string) []ComponentDef {
	switch category {
	case sync.CategoryInterfaces:
		return d.Interfaces
	case sync.CategoryConsolePorts:
		return d.ConsolePorts
	case sync.CategoryConsoleServerPorts:
		return d.ConsoleServerPorts
	case sync.CategoryPowerPorts:
		return d.PowerPorts
	case sync.CategoryPowerOutlets:
		return d.PowerOutlets
	case sync.CategoryFrontPorts:
		return d.FrontPorts
	case sync.CategoryRearPorts:
		return d.RearPorts
	case sync.CategoryDeviceBays:
		return d.DeviceBays
	default:
		return nil
	}
}

// template converts a definition entry, keeping only the category's
// declared attribute keys.
func (cd ComponentDef) template(deviceTypeID string, cat sync.Category) inventory.ComponentTemplate {
	t := inventory.ComponentTemplate{
		DeviceTypeID: deviceTypeID,
		Category:     cat.Name,
		Name:         cd.Name,
		Label:        cd.Label,
		Description:  cd.Description,
	}
	if cat.CopiesType {
		t.Type = cd.Type
	}

	attrs := inventory.Attrs{}
	for _, key := range cat.CopyKeys {
		switch key {
		case "mgmt_only":
			if cd.MgmtOnly != nil {
				attrs[key] = *cd.MgmtOnly
			}
		case "maximum_draw":
			if cd.MaximumDraw != nil {
				attrs[key] = *cd.MaximumDraw
			}
		case "allocated_draw":
			if cd.AllocatedDraw != nil {
				attrs[key] = *cd.AllocatedDraw
			}
		case "feed_leg":
			if cd.FeedLeg != "" {
				attrs[key] = cd.FeedLeg
			}
		case "rear_port_position":
			if cd.RearPortPosition != nil {
				attrs[key] = *cd.RearPortPosition
			}
		case "positions":
			if cd.Positions != nil {
				attrs[key] = *cd.Positions
			}
		}
	}
	if len(attrs) > 0 {
		t.Attrs = attrs
	}

	return t
}
