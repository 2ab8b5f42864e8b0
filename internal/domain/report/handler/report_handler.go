package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/channel-profit/internal/domain/fixedcost"
	"github.com/FACorreiaa/channel-profit/internal/domain/import/normalizer"
	"github.com/FACorreiaa/channel-profit/internal/domain/report/export"
	"github.com/FACorreiaa/channel-profit/internal/domain/report/service"
	"github.com/FACorreiaa/channel-profit/pkg/money"
)

// Multipart field names.
const (
	FieldSales         = "sales"
	FieldFixedCost     = "fixed_cost"
	FieldCommission    = "commission"
	FieldReferenceYear = "reference_year"
	FieldAdCost        = "ad_cost"
	FieldShippingCost  = "shipping_cost"
	FieldEtcCost       = "etc_cost"
	FieldTopN          = "top_n"
)

var ErrInvalidField = errors.New("invalid form field")

// ReportBuilder builds a report from one upload.
type ReportBuilder interface {
	Build(ctx context.Context, batch service.Batch) (*service.Report, error)
}

// ReportHandler serves the upload API
type ReportHandler struct {
	reports   ReportBuilder
	maxUpload int64
	logger    *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(reports ReportBuilder, maxUpload int64, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports:   reports,
		maxUpload: maxUpload,
		logger:    logger,
	}
}

// Register mounts the handler's routes on mux.
func (h *ReportHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/reports", h.CreateReport)
	mux.HandleFunc("POST /api/v1/reports/export", h.ExportReport)
	mux.HandleFunc("GET /healthz", h.Health)
}

type errorResponse struct {
	Error  string          `json:"error"`
	Report *service.Report `json:"report,omitempty"`
}

// CreateReport builds the report and returns it as JSON.
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// ExportReport builds the report and returns it as an .xlsx attachment.
func (h *ReportHandler) ExportReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.build(w, r)
	if !ok {
		return
	}

	data, err := export.Bytes(rep)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to export workbook",
			slog.String("report_id", rep.ID.String()),
			slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "엑셀 파일을 만들지 못했습니다"})
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(rep)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Health reports liveness.
func (h *ReportHandler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// build parses the upload and runs the pipeline. It writes the error response itself
// and reports whether the caller should continue.
func (h *ReportHandler) build(w http.ResponseWriter, r *http.Request) (*service.Report, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	batch, err := h.parseBatch(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
				Error: fmt.Sprintf("업로드 용량이 %dMB를 초과했습니다", h.maxUpload>>20),
			})
			return nil, false
		}
		h.logger.InfoContext(r.Context(), "rejected upload", slog.Any("error", err))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return nil, false
	}

	rep, err := h.reports.Build(r.Context(), batch)
	switch {
	case err == nil:
		return rep, true
	case errors.Is(err, service.ErrNoSalesRows):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "업로드한 파일에서 사용할 수 있는 판매 데이터를 찾지 못했습니다",
			Report: rep,
		})
	case errors.Is(err, service.ErrNoSalesFiles):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "판매 파일을 하나 이상 업로드해야 합니다"})
	case errors.Is(err, normalizer.ErrReferenceYearRequired):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "기준 연도(reference_year)가 필요합니다"})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		h.logger.WarnContext(r.Context(), "report build interrupted", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "요청이 취소되었습니다"})
	default:
		h.logger.ErrorContext(r.Context(), "failed to build report", slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "보고서를 생성하지 못했습니다"})
	}
	return nil, false
}

func (h *ReportHandler) parseBatch(r *http.Request) (service.Batch, error) {
	var batch service.Batch
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return batch, fmt.Errorf("failed to parse multipart form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	for _, fh := range r.MultipartForm.File[FieldSales] {
		f, err := readPart(fh)
		if err != nil {
			return batch, err
		}
		batch.Sales = append(batch.Sales, f)
	}

	var err error
	if batch.FixedCost, err = optionalFile(r.MultipartForm, FieldFixedCost); err != nil {
		return batch, err
	}
	if batch.Commission, err = optionalFile(r.MultipartForm, FieldCommission); err != nil {
		return batch, err
	}

	if batch.ReferenceYear, err = intField(r, FieldReferenceYear); err != nil {
		return batch, err
	}
	if batch.ReferenceYear != 0 && (batch.ReferenceYear < 1900 || batch.ReferenceYear > 9999) {
		return batch, fmt.Errorf("%w: %s must be a four-digit year", ErrInvalidField, FieldReferenceYear)
	}
	if batch.TopN, err = intField(r, FieldTopN); err != nil {
		return batch, err
	}

	manual := fixedcost.Manual{}
	for field, dst := range map[string]*decimal.Decimal{
		FieldAdCost:       &manual.Advertising,
		FieldShippingCost: &manual.Shipping,
		FieldEtcCost:      &manual.Other,
	} {
		if *dst, err = amountField(r, field); err != nil {
			return batch, err
		}
	}
	batch.Manual = manual
	return batch, nil
}

func optionalFile(form *multipart.Form, field string) (*service.File, error) {
	parts := form.File[field]
	if len(parts) == 0 {
		return nil, nil
	}
	f, err := readPart(parts[0])
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func readPart(fh *multipart.FileHeader) (service.File, error) {
	src, err := fh.Open()
	if err != nil {
		return service.File{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return service.File{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	return service.File{Name: fh.Filename, Data: data}, nil
}

func intField(r *http.Request, field string) (int, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", ErrInvalidField, field)
	}
	return n, nil
}

func amountField(r *http.Request, field string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(r.FormValue(field))
	if raw == "" {
		return decimal.Zero, nil
	}
	m, err := money.NewFromString(raw, money.KRW)
	if err != nil || m.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %s must be a non-negative amount", ErrInvalidField, field)
	}
	return m.ToDecimal(), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
