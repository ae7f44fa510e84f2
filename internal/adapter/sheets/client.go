// Package sheets reads the roster from a Google Sheets worksheet.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"cloud.google.com/go/auth"
	"github.com/couchcryptid/painel-obra/internal/domain"
	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

// Client implements domain.RosterSource. The first row of the worksheet is
// the header; every following row becomes one RawRecord.
type Client struct {
	opts   []option.ClientOption
	logger *slog.Logger

	mu  sync.Mutex
	svc *gsheets.Service
}

// NewClient builds a Sheets client authenticated with a service account key.
// Extra options are appended after the credentials.
func NewClient(ctx context.Context, credentialsJSON []byte, logger *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	var base []option.ClientOption
	if len(credentialsJSON) > 0 {
		base = append(base,
			option.WithCredentialsJSON(credentialsJSON),
			option.WithScopes(gsheets.SpreadsheetsReadonlyScope),
		)
	}
	c := &Client{
		opts:   append(base, opts...),
		logger: logger,
	}
	if err := c.Reauthorize(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reauthorize rebuilds the underlying service and its token source.
func (c *Client) Reauthorize(ctx context.Context) error {
	// The service keeps ctx for token refreshes, so it must outlive the request.
	svc, err := gsheets.NewService(context.WithoutCancel(ctx), c.opts...)
	if err != nil {
		return fmt.Errorf("create sheets service: %w", err)
	}

	c.mu.Lock()
	c.svc = svc
	c.mu.Unlock()
	c.logger.Debug("sheets service initialized")
	return nil
}

// FetchRecords reads every row of sheetName in the spreadsheet storeID.
// Rejected credentials and failed token refreshes are reported as
// domain.ErrUnauthorized.
func (c *Client) FetchRecords(ctx context.Context, storeID, sheetName string) ([]domain.RawRecord, error) {
	c.mu.Lock()
	svc := c.svc
	c.mu.Unlock()

	resp, err := svc.Spreadsheets.Values.Get(storeID, sheetName).
		MajorDimension("ROWS").
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		if isAuthFailure(err) {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
		}
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}

	return toRecords(resp.Values), nil
}

// isAuthFailure reports whether err means the credentials were rejected:
// either the API answered 401/403, or the request never left the client
// because a token could not be obtained.
func isAuthFailure(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return true
	}
	var aerr *auth.Error
	return errors.As(err, &aerr)
}

// toRecords maps rows to header-keyed records. Short rows are padded with
// empty values; columns with a blank or repeated header are ignored.
func toRecords(values [][]interface{}) []domain.RawRecord {
	if len(values) == 0 {
		return []domain.RawRecord{}
	}

	header := make([]string, len(values[0]))
	seen := make(map[string]bool, len(header))
	for i, cell := range values[0] {
		name := strings.TrimSpace(fmt.Sprint(cell))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		header[i] = name
	}

	records := make([]domain.RawRecord, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := make(domain.RawRecord, len(seen))
		for i, name := range header {
			if name == "" {
				continue
			}
			rec[name] = ""
			if i < len(row) && row[i] != nil {
				rec[name] = fmt.Sprint(row[i])
			}
		}
		records = append(records, rec)
	}
	return records
}
