// Package service runs the report pipeline for one upload: read, resolve headers,
// normalize, price commissions, aggregate. Failures are contained per file and per sheet.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/channel-profit/internal/domain/commission"
	"github.com/FACorreiaa/channel-profit/internal/domain/fixedcost"
	"github.com/FACorreiaa/channel-profit/internal/domain/import/header"
	"github.com/FACorreiaa/channel-profit/internal/domain/import/normalizer"
	"github.com/FACorreiaa/channel-profit/internal/domain/import/reader"
	"github.com/FACorreiaa/channel-profit/internal/domain/metrics"
	"github.com/FACorreiaa/channel-profit/pkg/money"
	"github.com/FACorreiaa/channel-profit/pkg/telemetry"
)

var (
	ErrNoSalesFiles = errors.New("at least one sales file is required")
	ErrNoSalesRows  = errors.New("no usable sales rows in the uploaded files")
	ErrPanic        = errors.New("recovered from panic")
)

// File roles, used in diagnostics and metrics labels.
const (
	RoleSales      = "sales"
	RoleFixedCost  = "fixed_cost"
	RoleCommission = "commission"
)

// File is one uploaded file, fully buffered.
type File struct {
	Name string
	Data []byte
}

// Batch is everything uploaded for one report.
type Batch struct {
	Sales         []File
	FixedCost     *File
	Commission    *File
	Manual        fixedcost.Manual
	ReferenceYear int // 0 uses the configured year
	TopN          int // 0 uses the configured limit
}

// Options are the configured defaults.
type Options struct {
	ReferenceYear  int
	TopN           int
	ProgramToken   string
	ProgramChannel string
}

// FileOutcome records how one uploaded file was read.
type FileOutcome struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	Outcome  string `json:"outcome"`
	Format   string `json:"format,omitempty"`
	Encoding string `json:"encoding,omitempty"`
	Sheets   int    `json:"sheets"`
	Error    string `json:"error,omitempty"`
}

// SheetOutcome records how one sales sheet was resolved and normalized.
type SheetOutcome struct {
	Origin    string           `json:"origin"`
	Layout    string           `json:"layout"`
	HeaderRow int              `json:"header_row"`
	Columns   []string         `json:"columns,omitempty"`
	Stats     normalizer.Stats `json:"stats"`
	Skipped   bool             `json:"skipped"`
	Reason    string           `json:"reason,omitempty"`
}

// Diagnostics explains what the pipeline did with every input.
type Diagnostics struct {
	Files      []FileOutcome             `json:"files"`
	Sheets     []SheetOutcome            `json:"sheets"`
	Rows       normalizer.Stats          `json:"rows"`
	Commission *commission.OverrideStats `json:"commission,omitempty"`
	Warnings   []string                  `json:"warnings"`
}

func (d *Diagnostics) warn(format string, args ...any) {
	d.Warnings = append(d.Warnings, fmt.Sprintf(format, args...))
}

// Headline holds display strings for the summary KPIs.
type Headline struct {
	TotalSales       string `json:"total_sales"`
	TotalCommission  string `json:"total_commission"`
	TotalGrossProfit string `json:"total_gross_profit"`
	TotalFixedCost   string `json:"total_fixed_cost"`
	NetProfit        string `json:"net_profit"`
	GrossMargin      string `json:"gross_margin"`
	NetMargin        string `json:"net_margin"`
}

// Report is the outcome of one pipeline run.
type Report struct {
	ID            uuid.UUID                `json:"id"`
	GeneratedAt   time.Time                `json:"generated_at"`
	ReferenceYear int                      `json:"reference_year"`
	Headline      Headline                 `json:"headline"`
	Metrics       metrics.Report           `json:"metrics"`
	Records       []metrics.EnrichedRecord `json:"records"`
	Diagnostics   Diagnostics              `json:"diagnostics"`
}

// Service builds reports. It keeps no state between calls and is safe for concurrent use.
type Service struct {
	opts    Options
	reader  *reader.Reader
	headers *header.Resolver
	metrics *telemetry.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	logger  *slog.Logger
}

// NewService creates a report service
func NewService(opts Options, logger *slog.Logger) *Service {
	return &Service{
		opts:    opts,
		reader:  reader.New(),
		headers: header.NewResolver(nil),
		tracer:  telemetry.Tracer("report"),
		now:     time.Now,
		logger:  logger,
	}
}

// WithMetrics adds prometheus instrumentation
func (s *Service) WithMetrics(m *telemetry.Metrics) *Service {
	s.metrics = m
	return s
}

// WithReader replaces the file reader, e.g. to change the encoding fallback order
func (s *Service) WithReader(r *reader.Reader) *Service {
	s.reader = r
	return s
}

// WithDetector replaces the header detector
func (s *Service) WithDetector(d *header.Detector) *Service {
	s.headers = header.NewResolver(d)
	return s
}

// WithClock replaces the clock used for GeneratedAt
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Build runs the pipeline over batch. When no sales row survives, the report is still
// returned, carrying its diagnostics, together with ErrNoSalesRows.
func (s *Service) Build(ctx context.Context, batch Batch) (*Report, error) {
	ctx, span := s.tracer.Start(ctx, "report.Build")
	defer span.End()
	start := time.Now()

	rep, err := s.build(ctx, batch)

	result := "ok"
	switch {
	case errors.Is(err, ErrNoSalesRows):
		result = "no_rows"
	case err != nil:
		result = "error"
	}
	s.metrics.ObservePipeline(result, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return rep, err
}

func (s *Service) build(ctx context.Context, batch Batch) (*Report, error) {
	if len(batch.Sales) == 0 {
		return nil, ErrNoSalesFiles
	}

	year := batch.ReferenceYear
	if year == 0 {
		year = s.opts.ReferenceYear
	}
	topN := batch.TopN
	if topN == 0 {
		topN = s.opts.TopN
	}

	normOpts := normalizer.DefaultOptions(year)
	if s.opts.ProgramToken != "" {
		normOpts.ProgramToken = s.opts.ProgramToken
	}
	if s.opts.ProgramChannel != "" {
		normOpts.ProgramChannel = s.opts.ProgramChannel
	}
	norm, err := normalizer.New(normOpts)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		ID:            uuid.New(),
		GeneratedAt:   s.now().UTC(),
		ReferenceYear: year,
		Diagnostics:   Diagnostics{Files: []FileOutcome{}, Sheets: []SheetOutcome{}, Warnings: []string{}},
	}
	diag := &rep.Diagnostics

	overrides := s.loadCommission(ctx, batch.Commission, diag)
	resolver := commission.NewDefaultResolver(overrides)
	fixed := s.loadFixedCost(ctx, batch.FixedCost, year, diag).WithManual(batch.Manual)

	var records []normalizer.SalesRecord
	for _, f := range batch.Sales {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build interrupted: %w", err)
		}
		records = append(records, s.processSalesFile(ctx, f, norm, diag)...)
	}

	s.metrics.AddRows("kept", diag.Rows.Kept)
	s.metrics.AddRows("dropped_blank", diag.Rows.DroppedBlank)
	s.metrics.AddRows("dropped_total", diag.Rows.DroppedTotal)
	s.metrics.AddRows("dropped_date", diag.Rows.DroppedDate)

	enriched := metrics.Enrich(records, resolver)
	rep.Records = enriched
	rep.Metrics = metrics.Build(enriched, fixed, topN)
	rep.Metrics.Reconciliation = resolver.Reconcile(metrics.RevenueByChannel(enriched))
	rep.Headline = headline(rep.Metrics.Totals)

	if len(records) == 0 {
		s.logger.WarnContext(ctx, "no usable sales rows",
			slog.String("report_id", rep.ID.String()),
			slog.Int("files", len(batch.Sales)),
			slog.Int("warnings", len(diag.Warnings)))
		return rep, ErrNoSalesRows
	}

	s.logger.InfoContext(ctx, "report built",
		slog.String("report_id", rep.ID.String()),
		slog.Int("files", len(batch.Sales)),
		slog.Int("records", len(records)),
		slog.Int("warnings", len(diag.Warnings)),
		slog.String("total_sales", rep.Metrics.Totals.TotalSales.String()))
	return rep, nil
}

func (s *Service) processSalesFile(ctx context.Context, f File, norm *normalizer.Normalizer, diag *Diagnostics) []normalizer.SalesRecord {
	ctx, span := s.tracer.Start(ctx, "report.readSalesFile", trace.WithAttributes(attribute.String("file", f.Name)))
	defer span.End()

	outcome := s.reader.Read(f.Name, f.Data)
	diag.Files = append(diag.Files, fileOutcome(RoleSales, outcome))
	s.metrics.ObserveFile(RoleSales, outcome.Kind.String())

	if outcome.Kind != reader.OutcomeSuccess {
		s.logger.WarnContext(ctx, "sales file skipped",
			slog.String("file", f.Name),
			slog.String("outcome", outcome.Kind.String()),
			slog.Any("error", outcome.Err))
		if outcome.Kind == reader.OutcomeUnreadable {
			diag.warn("%s: 읽을 수 없는 파일이라 제외했습니다 (%v)", f.Name, outcome.Err)
		} else {
			diag.warn("%s: 데이터가 없는 파일이라 제외했습니다", f.Name)
		}
		return nil
	}

	var records []normalizer.SalesRecord
	for _, raw := range outcome.Tables {
		var result normalizer.Result
		sheet := SheetOutcome{Origin: raw.Origin(), Layout: header.LayoutUnrecognized.String(), HeaderRow: -1}

		err := guard(func() error {
			table, det, err := s.headers.Resolve(raw)
			sheet.Layout = det.Layout.String()
			if err != nil {
				return err
			}
			sheet.HeaderRow = det.HeaderRow
			sheet.Columns = table.Columns
			result = norm.Normalize(table)
			return nil
		})
		s.metrics.ObserveSheet(sheet.Layout)

		if err != nil {
			sheet.Skipped = true
			sheet.Reason = err.Error()
			diag.Sheets = append(diag.Sheets, sheet)
			s.logger.InfoContext(ctx, "sheet skipped", slog.String("origin", sheet.Origin), slog.Any("error", err))
			if !errors.Is(err, header.ErrUnrecognizedLayout) {
				diag.warn("%s: 시트를 처리하지 못해 건너뛰었습니다 (%v)", sheet.Origin, err)
			}
			continue
		}

		sheet.Stats = result.Stats
		diag.Rows.Add(result.Stats)
		diag.Sheets = append(diag.Sheets, sheet)
		records = append(records, result.Records...)
	}
	span.SetAttributes(attribute.Int("records", len(records)))
	return records
}

func (s *Service) loadCommission(ctx context.Context, f *File, diag *Diagnostics) commission.Table {
	if f == nil {
		return commission.Table{}
	}
	_, span := s.tracer.Start(ctx, "report.loadCommission")
	defer span.End()

	outcome := s.reader.Read(f.Name, f.Data)
	diag.Files = append(diag.Files, fileOutcome(RoleCommission, outcome))
	s.metrics.ObserveFile(RoleCommission, outcome.Kind.String())
	if outcome.Kind != reader.OutcomeSuccess {
		diag.warn("%s: 수수료 파일을 읽지 못해 기본 수수료율을 사용합니다 (%v)", f.Name, outcome.Err)
		return commission.Table{}
	}

	var (
		table commission.Table
		stats commission.OverrideStats
	)
	err := guard(func() error {
		var err error
		table, stats, err = commission.LoadOverrides(outcome.Tables[0])
		return err
	})
	if err != nil {
		diag.warn("%s: 수수료 파일에 채널/수수료율 행이 없어 기본 수수료율을 사용합니다", f.Name)
		s.logger.WarnContext(ctx, "commission overrides ignored", slog.String("file", f.Name), slog.Any("error", err))
		return commission.Table{}
	}
	if stats.Skipped > 0 {
		diag.warn("%s: 수수료율을 해석할 수 없는 %d개 행을 건너뛰었습니다", f.Name, stats.Skipped)
	}
	diag.Commission = &stats
	return table
}

func (s *Service) loadFixedCost(ctx context.Context, f *File, year int, diag *Diagnostics) fixedcost.Summary {
	if f == nil {
		return fixedcost.Empty()
	}
	_, span := s.tracer.Start(ctx, "report.loadFixedCost")
	defer span.End()

	outcome := s.reader.Read(f.Name, f.Data)
	diag.Files = append(diag.Files, fileOutcome(RoleFixedCost, outcome))
	s.metrics.ObserveFile(RoleFixedCost, outcome.Kind.String())
	if outcome.Kind != reader.OutcomeSuccess {
		diag.warn("%s: 고정비 파일을 읽지 못해 고정비를 0으로 처리합니다 (%v)", f.Name, outcome.Err)
		return fixedcost.Empty()
	}

	for _, raw := range outcome.Tables {
		var summary fixedcost.Summary
		err := guard(func() error {
			var err error
			summary, err = fixedcost.Load(raw, year)
			return err
		})
		if err == nil {
			return summary
		}
		s.logger.InfoContext(ctx, "fixed cost sheet skipped", slog.String("origin", raw.Origin()), slog.Any("error", err))
	}
	diag.warn("%s: 고정비 금액 열을 찾지 못해 고정비를 0으로 처리합니다", f.Name)
	return fixedcost.Empty()
}

func fileOutcome(role string, o reader.Outcome) FileOutcome {
	fo := FileOutcome{
		Role:     role,
		Name:     o.Name,
		Outcome:  o.Kind.String(),
		Format:   o.Format,
		Encoding: o.Encoding,
		Sheets:   len(o.Tables),
	}
	if o.Err != nil {
		fo.Error = o.Err.Error()
	}
	return fo
}

// guard runs fn and converts a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
	}()
	return fn()
}

func headline(t metrics.Totals) Headline {
	return Headline{
		TotalSales:       money.FormatWon(t.TotalSales),
		TotalCommission:  money.FormatWon(t.TotalCommission),
		TotalGrossProfit: money.FormatWon(t.TotalGrossProfit),
		TotalFixedCost:   money.FormatWon(t.TotalFixedCost),
		NetProfit:        money.FormatWon(t.NetProfit),
		GrossMargin:      formatPercent(t.GrossMarginPercent),
		NetMargin:        formatPercent(t.NetMarginPercent),
	}
}

func formatPercent(p decimal.Decimal) string {
	return p.StringFixed(2) + "%"
}
