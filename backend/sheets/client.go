package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/models"
	"github.com/LoggingNewMemory/VCIAStudentGoogleSheet/backend/service"
)

const (
	mimeGoogleSheet = "application/vnd.google-apps.spreadsheet"
	mimeExcel       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Client talks to the Sheets and Drive APIs with service-account credentials.
type Client struct {
	srv   *sheets.Service
	drive *drive.Service
}

// NewClient reads the service-account key at credsPath and builds the API
// services.
func NewClient(ctx context.Context, credsPath string) (*Client, error) {
	b, err := os.ReadFile(credsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(b, sheets.SpreadsheetsScope, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
	}
	httpClient := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Sheets client: %w", err)
	}
	drv, err := drive.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &Client{srv: srv, drive: drv}, nil
}

// Open binds the client to one spreadsheet.
func (c *Client) Open(ctx context.Context, spreadsheetID string) (service.Workbook, error) {
	return c.Spreadsheet(spreadsheetID)
}

// Spreadsheet returns a handle on spreadsheetID.
func (c *Client) Spreadsheet(spreadsheetID string) (*Spreadsheet, error) {
	if spreadsheetID == "" {
		return nil, &RemoteAccessError{Op: "open", Message: "no spreadsheet ID given", Err: errors.New("empty spreadsheet ID")}
	}
	return &Spreadsheet{srv: c.srv, drive: c.drive, id: spreadsheetID}, nil
}

// Spreadsheet is a Google spreadsheet viewed as a service.Workbook.
type Spreadsheet struct {
	srv   *sheets.Service
	drive *drive.Service
	id    string
}

// Describe reports the file's title and worksheets. Excel files stored in
// Drive return ErrNotNativeSpreadsheet.
func (s *Spreadsheet) Describe(ctx context.Context) (models.SpreadsheetInfo, error) {
	f, err := s.drive.Files.Get(s.id).Fields("name", "mimeType").SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		return models.SpreadsheetInfo{}, wrapAPIError("describe", err)
	}
	info := models.SpreadsheetInfo{ID: s.id, Title: f.Name, MimeType: f.MimeType}
	switch f.MimeType {
	case mimeGoogleSheet:
	case mimeExcel:
		return info, ErrNotNativeSpreadsheet
	default:
		return info, fmt.Errorf("%q has type %s: %w", f.Name, f.MimeType, ErrNotSpreadsheet)
	}

	info.Worksheets, err = s.ListWorksheets(ctx)
	if err != nil {
		return info, err
	}
	return info, nil
}

func (s *Spreadsheet) ListWorksheets(ctx context.Context) ([]models.WorksheetHandle, error) {
	sp, err := s.srv.Spreadsheets.Get(s.id).Fields("sheets.properties(sheetId,title)").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("list", err)
	}
	out := make([]models.WorksheetHandle, 0, len(sp.Sheets))
	for _, sh := range sp.Sheets {
		if sh.Properties == nil {
			continue
		}
		out = append(out, models.WorksheetHandle{Title: sh.Properties.Title, ID: sh.Properties.SheetId})
	}
	return out, nil
}

func (s *Spreadsheet) ReadGrid(ctx context.Context, title string) ([]models.Row, error) {
	resp, err := s.srv.Spreadsheets.Values.Get(s.id, quoteTitle(title)).Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("read", err)
	}
	return toRows(resp.Values), nil
}

// AppendRow writes row at row index at, inserting grid rows as needed so the
// sheet grows instead of overflowing.
func (s *Spreadsheet) AppendRow(ctx context.Context, title string, at int, row models.Row) (int, error) {
	val := &sheets.ValueRange{Values: [][]interface{}{toInterfaces(row)}}
	resp, err := s.srv.Spreadsheets.Values.Append(s.id, a1Row(title, at), val).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return 0, wrapAPIError("append", err)
	}
	if resp.Updates == nil {
		return at, nil
	}
	landed, err := rowFromRange(resp.Updates.UpdatedRange)
	if err != nil {
		return at, nil
	}
	return landed, nil
}

func (s *Spreadsheet) BatchMutate(ctx context.Context, mutations []models.Mutation) error {
	if len(mutations) == 0 {
		return nil
	}
	if len(mutations) > MaxBatchRequests {
		return fmt.Errorf("batch of %d requests exceeds the limit of %d", len(mutations), MaxBatchRequests)
	}
	requests := make([]*sheets.Request, 0, len(mutations))
	for _, m := range mutations {
		req, err := toRequest(m)
		if err != nil {
			return err
		}
		requests = append(requests, req)
	}
	_, err := s.srv.Spreadsheets.BatchUpdate(s.id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
	return wrapAPIError("batch", err)
}

func (s *Spreadsheet) BatchLimit() int { return MaxBatchRequests }

// toRequest converts a mutation to a Sheets API request. Zero-valued IDs and
// indexes are force-sent; the first worksheet's ID is 0.
func toRequest(m models.Mutation) (*sheets.Request, error) {
	switch {
	case m.DeleteRows != nil:
		d := m.DeleteRows
		return &sheets.Request{DeleteDimension: &sheets.DeleteDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:         d.WorksheetID,
				Dimension:       "ROWS",
				StartIndex:      int64(d.StartIndex),
				EndIndex:        int64(d.EndIndex),
				ForceSendFields: []string{"SheetId", "StartIndex"},
			},
		}}, nil
	case m.UpdateCell != nil:
		u := m.UpdateCell
		ev := &sheets.ExtendedValue{}
		switch v := cellValue(u.Value).(type) {
		case int:
			f := float64(v)
			ev.NumberValue = &f
		default:
			str := u.Value
			ev.StringValue = &str
		}
		return &sheets.Request{UpdateCells: &sheets.UpdateCellsRequest{
			Start: &sheets.GridCoordinate{
				SheetId:         u.WorksheetID,
				RowIndex:        int64(u.RowIndex),
				ColumnIndex:     int64(u.ColumnIndex),
				ForceSendFields: []string{"SheetId", "RowIndex", "ColumnIndex"},
			},
			Rows:   []*sheets.RowData{{Values: []*sheets.CellData{{UserEnteredValue: ev}}}},
			Fields: "userEnteredValue",
		}}, nil
	default:
		return nil, errors.New("empty mutation")
	}
}
