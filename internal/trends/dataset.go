package trends

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strconv"
	"strings"
	"time"

	"noshow-predictor/internal/artifact"
	"noshow-predictor/internal/features"

	"github.com/xuri/excelize/v2"
)

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrDatasetInvalid  = errors.New("dataset is malformed")
)

// PlaceholderHour is used for every record when the dataset carries no
// appointment hour of its own.
const PlaceholderHour = 9

const (
	colNoShow          = "No-show"
	colAppointmentDay  = "AppointmentDay"
	colScheduledDay    = "ScheduledDay"
	colNeighbourhood   = "Neighbourhood"
	colAge             = "Age"
	colGender          = "Gender"
	colSMSReceived     = "SMS_received"
	colAppointmentHour = "AppointmentHour"
)

var requiredColumns = []string{colNoShow, colAppointmentDay, colNeighbourhood, colAge, colGender, colSMSReceived}

// Record is one appointment row with derived fields applied.
type Record struct {
	Gender          string
	Age             int
	Neighbourhood   string
	SMSReceived     int
	NoShow          bool
	AppointmentDay  time.Time
	ScheduledDay    time.Time
	AppointmentHour int
}

type Dataset struct {
	Records []Record
}

// Load reads the dataset at path (local or s3://). The format follows the
// extension: .csv is comma separated, anything else is read as a workbook.
func Load(ctx context.Context, opener *artifact.Opener, p string) (*Dataset, error) {
	rc, err := opener.Open(ctx, p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatasetNotFound, p)
	}
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var rows [][]string
	if strings.EqualFold(path.Ext(p), ".csv") {
		rows, err = readCSV(rc)
	} else {
		rows, err = readWorkbook(rc)
	}
	if err != nil {
		return nil, err
	}
	return Parse(rows)
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetInvalid, err)
	}
	return rows, nil
}

func readWorkbook(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetInvalid, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrDatasetInvalid)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatasetInvalid, err)
	}
	return rows, nil
}

// Parse converts a header row plus data rows into records. Blank rows are
// skipped; a row with an unreadable value fails the whole load.
func Parse(rows [][]string) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrDatasetInvalid)
	}
	idx := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range requiredColumns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrDatasetInvalid, c)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	ds := &Dataset{Records: make([]Record, 0, len(rows)-1)}
	for n, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := n + 2

		rec := Record{
			Gender:          cell(row, colGender),
			Neighbourhood:   features.DisplayName(cell(row, colNeighbourhood)),
			NoShow:          cell(row, colNoShow) == "Yes",
			AppointmentHour: PlaceholderHour,
		}

		var err error
		if rec.Age, err = parseInt(cell(row, colAge)); err != nil {
			return nil, fmt.Errorf("%w: row %d: age: %v", ErrDatasetInvalid, line, err)
		}
		if rec.SMSReceived, err = parseInt(cell(row, colSMSReceived)); err != nil {
			return nil, fmt.Errorf("%w: row %d: sms: %v", ErrDatasetInvalid, line, err)
		}
		if rec.AppointmentDay, err = parseDate(cell(row, colAppointmentDay)); err != nil {
			return nil, fmt.Errorf("%w: row %d: appointment day: %v", ErrDatasetInvalid, line, err)
		}
		if v := cell(row, colScheduledDay); v != "" {
			if rec.ScheduledDay, err = parseDate(v); err != nil {
				return nil, fmt.Errorf("%w: row %d: scheduled day: %v", ErrDatasetInvalid, line, err)
			}
		}
		if v := cell(row, colAppointmentHour); v != "" {
			if rec.AppointmentHour, err = parseInt(v); err != nil {
				return nil, fmt.Errorf("%w: row %d: appointment hour: %v", ErrDatasetInvalid, line, err)
			}
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// parseInt accepts "62" as well as spreadsheet renderings like "62.0".
func parseInt(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", v)
	}
	return int(f), nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"1/2/06 15:04",
	"01-02-06",
}

// parseDate returns the calendar date only, as the dashboard groups by day.
func parseDate(v string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return truncateDay(t), nil
		}
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return truncateDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", v)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
