package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"

	"AgriPrice/internal/domain/models"
	domrepo "AgriPrice/internal/domain/repository"
	pkghttp "AgriPrice/pkg/http"
)

// HTTPSource downloads a dataset export. The body may be CSV, XLSX, or a
// JSON array of rows (optionally wrapped as {"rows": [...]}).
type HTTPSource struct {
	client   *pkghttp.Client
	url      string
	sheet    string
	encoding string
	headers  map[string]string
}

var _ domrepo.RowSource = (*HTTPSource)(nil)

func NewHTTPSource(client *pkghttp.Client, rawURL string, headers map[string]string) *HTTPSource {
	return &HTTPSource{client: client, url: rawURL, encoding: EncodingAuto, headers: headers}
}

func (s *HTTPSource) Name() string {
	if u, err := url.Parse(s.url); err == nil {
		return "http:" + u.Host + path.Clean("/"+u.Path)
	}
	return "http:" + s.url
}

func (s *HTTPSource) Load(ctx context.Context) (*models.LoadBatch, error) {
	var body []byte
	err := s.client.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:  pkghttp.MethodGet,
		URL:     s.url,
		Headers: s.headers,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("download dataset: %w", err)
	}
	if looksLikeJSON(body) {
		return decodeJSONRows(s.Name(), body)
	}
	records, err := readTable(body, s.sheet, s.encoding)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return decodeTable(s.Name(), records)
}

func looksLikeJSON(b []byte) bool {
	b = bytes.TrimLeft(b, " \t\r\n")
	return len(b) > 0 && (b[0] == '[' || b[0] == '{')
}

func decodeJSONRows(source string, body []byte) (*models.LoadBatch, error) {
	var rows []models.TimeSeriesRow
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if trimmed[0] == '{' {
		var wrapped struct {
			Rows []models.TimeSeriesRow `json:"rows"`
		}
		if err := json.Unmarshal(trimmed, &wrapped); err != nil {
			return nil, fmt.Errorf("%s: decode json: %w", source, err)
		}
		rows = wrapped.Rows
	} else if err := json.Unmarshal(trimmed, &rows); err != nil {
		return nil, fmt.Errorf("%s: decode json: %w", source, err)
	}
	return &models.LoadBatch{Source: source, Rows: rows}, nil
}
