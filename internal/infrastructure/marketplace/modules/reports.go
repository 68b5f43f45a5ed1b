package modules

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/commerceops/backend/internal/domain/integration"
	"github.com/commerceops/backend/internal/infrastructure/marketplace"
)

// Report is one requested or generated provider report.
type Report struct {
	ReportID         string    `json:"reportId"`
	ReportType       string    `json:"reportType"`
	ProcessingStatus string    `json:"processingStatus"`
	MarketplaceIDs   []string  `json:"marketplaceIds"`
	CreatedTime      time.Time `json:"createdTime"`
	DocumentID       string    `json:"reportDocumentId"`
}

// ReportQuery filters a report listing.
type ReportQuery struct {
	ReportTypes        []string
	ProcessingStatuses []string
	CreatedSince       time.Time
	PageSize           int
}

type createReportResponse struct {
	ReportID string `json:"reportId"`
}

type getReportsResponse struct {
	Reports   []Report `json:"reports"`
	NextToken string   `json:"nextToken"`
}

// ReportsModule is the façade over the reports resource group.
type ReportsModule struct {
	baseModule
}

// NewReportsModule creates the reports façade.
func NewReportsModule(deps ModuleDeps, version string) (*ReportsModule, error) {
	base, err := newBaseModule(deps, "reports", version)
	if err != nil {
		return nil, err
	}
	return &ReportsModule{baseModule: base}, nil
}

// CreateReport requests generation of a report and returns its id.
func (m *ReportsModule) CreateReport(ctx context.Context, reportType string, marketplaceIDs []string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"reportType":     reportType,
		"marketplaceIds": marketplaceIDs,
	})
	if err != nil {
		return "", fmt.Errorf("modules: failed to encode report request: %w", err)
	}

	spec := integration.RequestSpec{
		Method:    "POST",
		Path:      m.path("/reports"),
		Operation: "createReport",
		Body:      body,
	}
	resp, err := marketplace.Request[createReportResponse](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return "", err
	}
	return resp.Data.ReportID, nil
}

// GetReport returns a single report by id.
func (m *ReportsModule) GetReport(ctx context.Context, reportID string) (*Report, error) {
	spec := integration.RequestSpec{
		Method:    "GET",
		Path:      m.path("/reports/" + url.PathEscape(reportID)),
		Operation: "getReport",
	}
	resp, err := marketplace.Request[Report](ctx, m.deps.Dispatcher, m.id, spec)
	if err != nil {
		return nil, err
	}
	report := resp.Data
	return &report, nil
}

// GetAllReports drains every page of reports matching the query. The result
// may be partial when the page ceiling is reached.
func (m *ReportsModule) GetAllReports(ctx context.Context, q ReportQuery) ([]Report, error) {
	return marketplace.GetAllPages(ctx, m.maxPages(), func(ctx context.Context, token string) (integration.Page[Report], error) {
		var spec integration.RequestSpec
		if token != "" {
			// The provider rejects filter parameters alongside a token
			spec = integration.RequestSpec{
				Method:    "GET",
				Path:      m.path("/reports"),
				Operation: "getReports",
				Query:     url.Values{"nextToken": {token}},
			}
		} else {
			spec = integration.RequestSpec{
				Method:    "GET",
				Path:      m.path("/reports"),
				Operation: "getReports",
				Query:     q.values(),
			}
		}
		resp, err := marketplace.Request[getReportsResponse](ctx, m.deps.Dispatcher, m.id, spec)
		if err != nil {
			return integration.Page[Report]{}, err
		}
		return integration.Page[Report]{
			Items:     resp.Data.Reports,
			NextToken: resp.Data.NextToken,
		}, nil
	})
}

func (m *ReportsModule) path(suffix string) string {
	return "/reports/" + m.version + suffix
}

func (q ReportQuery) values() url.Values {
	v := url.Values{}
	if len(q.ReportTypes) > 0 {
		v.Set("reportTypes", strings.Join(q.ReportTypes, ","))
	}
	if len(q.ProcessingStatuses) > 0 {
		v.Set("processingStatuses", strings.Join(q.ProcessingStatuses, ","))
	}
	if !q.CreatedSince.IsZero() {
		v.Set("createdSince", q.CreatedSince.UTC().Format(time.RFC3339))
	}
	if q.PageSize > 0 {
		v.Set("pageSize", fmt.Sprintf("%d", q.PageSize))
	}
	return v
}

var _ integration.Module = (*ReportsModule)(nil)
