package datasheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.jacobcolvin.com/vdsheet/pms"
	"go.jacobcolvin.com/vdsheet/standards"
	"go.jacobcolvin.com/vdsheet/vds"
	"go.jacobcolvin.com/vdsheet/vdsindex"
)

// ErrTimeout reports that the context deadline expired mid-generation.
var ErrTimeout = errors.New("generation timed out")

// ctxInterval is how many fields resolve between deadline checks.
const ctxInterval = 8

// Engine generates valve datasheets. Immutable after [New]; safe for
// concurrent use from any number of goroutines.
type Engine struct {
	rules     *vds.Rules
	schema    *Schema
	materials *Maps
	pms       *pms.Repository
	standards *standards.Repository
	index     *vdsindex.Repository

	decoder  *vds.Decoder
	resolver *Resolver

	version string
	now     func() time.Time
	log     *slog.Logger
}

// Option configures an [Engine].
type Option func(*Engine)

// WithRules sets the VDS grammar.
func WithRules(r *vds.Rules) Option {
	return func(e *Engine) { e.rules = r }
}

// WithSchema sets the field schema.
func WithSchema(s *Schema) Option {
	return func(e *Engine) { e.schema = s }
}

// WithMaterials sets the material maps.
func WithMaterials(m *Maps) Option {
	return func(e *Engine) { e.materials = m }
}

// WithPMS sets the piping-class repository.
func WithPMS(r *pms.Repository) Option {
	return func(e *Engine) { e.pms = r }
}

// WithStandards sets the standard-clause repository.
func WithStandards(r *standards.Repository) Option {
	return func(e *Engine) { e.standards = r }
}

// WithIndex sets the VDS index repository.
func WithIndex(r *vdsindex.Repository) Option {
	return func(e *Engine) { e.index = r }
}

// WithVersion sets the generation version stamped into metadata.
func WithVersion(v string) Option {
	return func(e *Engine) { e.version = v }
}

// WithClock sets the time source for generation timestamps. Tests use
// it to pin GeneratedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New creates an [Engine]. Unset sources fall back to the built-in
// defaults.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		version: "1.0",
		now:     func() time.Time { return time.Now().UTC() },
		log:     slog.Default(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.rules == nil {
		e.rules = vds.DefaultRules()
	}

	if e.schema == nil {
		e.schema = DefaultSchema()
	}

	if e.materials == nil {
		e.materials = DefaultMaterials()
	}

	if e.pms == nil {
		e.pms = pms.DefaultClasses()
	}

	if e.standards == nil {
		e.standards = standards.DefaultClauses()
	}

	if e.index == nil {
		e.index = vdsindex.DefaultRows()
	}

	if err := e.schema.Validate(); err != nil {
		return nil, err
	}

	for _, w := range e.schema.ValidateAgainst(e.materials) {
		e.log.Warn("schema/material mismatch", "warning", w)
	}

	dec, err := vds.NewDecoder(e.rules, vds.WithClasses(e.pms))
	if err != nil {
		return nil, err
	}

	e.decoder = dec
	e.resolver = NewResolver(e.materials, e.standards)

	return e, nil
}

// Rules returns the VDS grammar in use.
func (e *Engine) Rules() *vds.Rules {
	return e.rules
}

// Schema returns the field schema in use.
func (e *Engine) Schema() *Schema {
	return e.schema
}

// Decode parses a VDS number without generating a datasheet.
func (e *Engine) Decode(code string) (*vds.Decoded, error) {
	return e.decoder.Decode(code)
}

// Validate reports whether a VDS number decodes. nil means valid.
func (e *Engine) Validate(code string) error {
	return e.decoder.Validate(code)
}

// checkCtx converts an expired context into [ErrTimeout].
func checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	return nil
}

// Generate produces the full datasheet for one VDS number. Identical
// inputs produce identical output for a fixed clock. The context
// deadline is checked between phases and every few fields.
func (e *Engine) Generate(ctx context.Context, code string) (*Datasheet, error) {
	dec, err := e.decoder.Decode(code)
	if err != nil {
		return nil, err
	}

	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	in := input{dec: dec}
	in.class, in.haveClass = e.pms.ClassFor(dec.PipingClass)
	in.row, in.haveRow = e.index.RowFor(dec.Raw)

	if in.haveRow {
		in.size, in.haveSize = in.row.RepresentativeSize()
	}

	defs := e.schema.Fields()
	fields := make([]Field, 0, len(defs))

	var fieldErrs []*FieldError

	for i, def := range defs {
		f, fe := e.resolver.Resolve(def, in)
		fields = append(fields, f)

		if fe != nil {
			fieldErrs = append(fieldErrs, fe)
		}

		if i%ctxInterval == ctxInterval-1 {
			if err := checkCtx(ctx); err != nil {
				return nil, err
			}
		}
	}

	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	d := assemble(e.schema, dec.Raw, e.version, e.now(), fields, fieldErrs)

	e.log.Debug("generated datasheet",
		"vds", dec.Raw,
		"status", d.Metadata.ValidationStatus,
		"completion", d.Metadata.Completion.Percentage,
	)

	return d, nil
}

// Batch item statuses.
const (
	BatchSuccess = "success"
	BatchError   = "error"
)

// BatchItem is one entry of a batch result, in request order.
type BatchItem struct {
	VDS       string     `json:"vds_no"`
	Status    string     `json:"status"`
	Datasheet *Datasheet `json:"datasheet,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// BatchResult is an order-preserving batch outcome.
type BatchResult struct {
	Items     []BatchItem `json:"results"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
}

// GenerateBatch generates datasheets for every code, preserving input
// order. Per-code failures become error items; an expired deadline
// aborts the whole batch with [ErrTimeout].
func (e *Engine) GenerateBatch(ctx context.Context, codes []string) (*BatchResult, error) {
	out := &BatchResult{Items: make([]BatchItem, 0, len(codes))}

	for _, code := range codes {
		d, err := e.Generate(ctx, code)

		switch {
		case errors.Is(err, ErrTimeout):
			return nil, err
		case err != nil:
			out.Items = append(out.Items, BatchItem{
				VDS:    code,
				Status: BatchError,
				Error:  err.Error(),
			})
			out.Failed++
		default:
			out.Items = append(out.Items, BatchItem{
				VDS:       d.Metadata.VDS,
				Status:    BatchSuccess,
				Datasheet: d,
			})
			out.Succeeded++
		}
	}

	return out, nil
}

// ListVDS pages the known VDS codes from the index.
func (e *Engine) ListVDS(f vdsindex.Filter) ([]string, int) {
	return e.index.AllCodes(f)
}

// Capabilities describes the loaded configuration: every code the
// grammar accepts plus repository counts.
type Capabilities struct {
	Version         string            `json:"version"`
	Prefixes        map[string]string `json:"valve_type_prefixes"`
	Bores           map[string]string `json:"bore_types"`
	EndConnections  map[string]string `json:"end_connections"`
	Modifiers       map[string]string `json:"modifiers"`
	PipingClasses   []string          `json:"piping_classes"`
	PressureClasses []string          `json:"pressure_classes"`
	SchemaFields    int               `json:"schema_fields"`
	Clauses         int               `json:"clauses"`
	IndexRows       int               `json:"index_rows"`
}

// Capabilities reports the engine's loaded configuration.
func (e *Engine) Capabilities() Capabilities {
	c := Capabilities{
		Version:         e.version,
		Prefixes:        make(map[string]string, len(e.rules.Prefixes)),
		Bores:           make(map[string]string, len(e.rules.Bores)),
		EndConnections:  make(map[string]string, len(e.rules.EndConnections)),
		Modifiers:       make(map[string]string, len(e.rules.Modifiers)),
		PipingClasses:   e.pms.AllClasses(),
		PressureClasses: e.pms.PressureRatings(),
		SchemaFields:    e.schema.Len(),
		Clauses:         e.standards.Len(),
		IndexRows:       e.index.Len(),
	}

	for code, p := range e.rules.Prefixes {
		c.Prefixes[code] = p.Name
	}

	for code, b := range e.rules.Bores {
		c.Bores[code] = b.Name
	}

	for code, ec := range e.rules.EndConnections {
		c.EndConnections[code] = ec.Description
	}

	for code, m := range e.rules.Modifiers {
		c.Modifiers[code] = m.Name
	}

	return c
}

// Health is the liveness summary served by the health endpoint.
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	DataLoaded    bool   `json:"data_loaded"`
	PipingClasses int    `json:"piping_classes"`
	Clauses       int    `json:"clauses"`
	IndexRows     int    `json:"index_rows"`
	SchemaFields  int    `json:"schema_fields"`
}

// Health reports repository counts for liveness checks.
func (e *Engine) Health() Health {
	return Health{
		Status:        "ok",
		Version:       e.version,
		DataLoaded:    e.pms.Len() > 0 && e.standards.Len() > 0 && e.index.Len() > 0,
		PipingClasses: e.pms.Len(),
		Clauses:       e.standards.Len(),
		IndexRows:     e.index.Len(),
		SchemaFields:  e.schema.Len(),
	}
}
