package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"noshow-predictor/internal/artifact"
	"noshow-predictor/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var header = []string{
	"PatientId", "AppointmentID", "Gender", "ScheduledDay", "AppointmentDay", "Age",
	"Neighbourhood", "Scholarship", "Hipertension", "Diabetes", "Alcoholism", "Handcap",
	"SMS_received", "No-show",
}

// 2024-01-01 is a Monday.
var sampleRows = [][]string{
	{"1", "100", "F", "2023-12-20T08:00:00Z", "2024-01-01T00:00:00Z", "12", "N_SÃO JOSÉ", "0", "0", "0", "0", "0", "0", "No"},
	{"2", "101", "M", "2023-12-21T09:30:00Z", "2024-01-01T00:00:00Z", "13", "N_SÃO JOSÉ", "0", "0", "0", "0", "0", "1", "Yes"},
	{"3", "102", "F", "2023-12-22T10:00:00Z", "2024-01-02T00:00:00Z", "30", "JARDIM CAMBURI", "0", "1", "0", "0", "0", "1", "Yes"},
	{"4", "103", "M", "2023-12-23T11:00:00Z", "2024-01-07T00:00:00Z", "101", "CENTRO", "0", "0", "0", "0", "0", "0", "No"},
}

func writeCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	var b strings.Builder
	for _, r := range append([][]string{header}, rows...) {
		b.WriteString(strings.Join(r, ","))
		b.WriteString("\n")
	}
	path := filepath.Join(t.TempDir(), "noshow.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o600))
	return path
}

func writeXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, r := range append([][]string{header}, rows...) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		values := make([]interface{}, len(r))
		for j, v := range r {
			values[j] = v
		}
		require.NoError(t, f.SetSheetRow(sheet, cell, &values))
	}
	path := filepath.Join(t.TempDir(), "noshow.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func loadSample(t *testing.T, path string) *Dataset {
	t.Helper()
	ds, err := Load(context.Background(), artifact.NewOpener(artifact.S3Options{}), path)
	require.NoError(t, err)
	return ds
}

func TestAgeBucket(t *testing.T) {
	tests := []struct {
		age   int
		label string
		ok    bool
	}{
		{age: 0, label: "0-12", ok: true},
		{age: 12, label: "0-12", ok: true},
		{age: 13, label: "13-18", ok: true},
		{age: 18, label: "13-18", ok: true},
		{age: 19, label: "19-30", ok: true},
		{age: 45, label: "31-45", ok: true},
		{age: 60, label: "46-60", ok: true},
		{age: 75, label: "61-75", ok: true},
		{age: 100, label: "76-100", ok: true},
		{age: -1, ok: false},
		{age: 101, ok: false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.age), func(t *testing.T) {
			label, ok := AgeBucket(tt.age)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestLoad_CSV(t *testing.T) {
	ds := loadSample(t, writeCSV(t, sampleRows))
	require.Len(t, ds.Records, 4)

	r := ds.Records[0]
	assert.Equal(t, "F", r.Gender)
	assert.Equal(t, 12, r.Age)
	assert.Equal(t, "City Centre", r.Neighbourhood)
	assert.False(t, r.NoShow)
	assert.Equal(t, "2024-01-01", r.AppointmentDay.Format("2006-01-02"))
	assert.Equal(t, "2023-12-20", r.ScheduledDay.Format("2006-01-02"))
	assert.Equal(t, PlaceholderHour, r.AppointmentHour)

	assert.True(t, ds.Records[1].NoShow)
	assert.Equal(t, "JARDIM CAMBURI", ds.Records[2].Neighbourhood)
}

func TestLoad_XLSX(t *testing.T) {
	ds := loadSample(t, writeXLSX(t, sampleRows))
	require.Len(t, ds.Records, 4)
	assert.Equal(t, "City Centre", ds.Records[0].Neighbourhood)
	assert.Equal(t, 101, ds.Records[3].Age)
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(context.Background(), artifact.NewOpener(artifact.S3Options{}), filepath.Join(t.TempDir(), "missing.xlsx"))
	assert.ErrorIs(t, err, ErrDatasetNotFound)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(nil)
	assert.ErrorIs(t, err, ErrDatasetInvalid)

	_, err = Parse([][]string{{"Gender", "Age"}})
	assert.ErrorIs(t, err, ErrDatasetInvalid)

	bad := [][]string{header, {"1", "1", "F", "", "not-a-date", "3", "X", "0", "0", "0", "0", "0", "0", "No"}}
	_, err = Parse(bad)
	assert.ErrorIs(t, err, ErrDatasetInvalid)
}

func TestParse_AppointmentHourColumn(t *testing.T) {
	rows := [][]string{
		append(append([]string{}, header...), "AppointmentHour"),
		append(append([]string{}, sampleRows[1]...), "14"),
		{},
	}
	ds, err := Parse(rows)
	require.NoError(t, err)
	require.Len(t, ds.Records, 1)
	assert.Equal(t, 14, ds.Records[0].AppointmentHour)
}

func TestParseDate_Formats(t *testing.T) {
	for _, v := range []string{"2016-04-29T18:38:08Z", "2016-04-29 18:38:08", "2016-04-29", "04/29/2016", "04-29-16", "42489"} {
		d, err := parseDate(v)
		require.NoError(t, err, v)
		assert.Equal(t, "2016-04-29", d.Format("2006-01-02"), v)
	}
}

func TestBuild_Report(t *testing.T) {
	rep := Build(loadSample(t, writeCSV(t, sampleRows)))

	assert.Equal(t, 4, rep.Total)
	assert.Equal(t, 2, rep.NoShows)
	assert.InDelta(t, 50.0, rep.OverallRate, 1e-9)

	assert.Equal(t, []Rate{
		{Label: "2024-01-01", Count: 2, NoShows: 1, Rate: 0.5},
		{Label: "2024-01-02", Count: 1, NoShows: 1, Rate: 1},
		{Label: "2024-01-07", Count: 1, NoShows: 0, Rate: 0},
	}, rep.Daily)

	assert.Equal(t, []string{"Monday", "Tuesday", "Sunday"}, labels(rep.Weekday))

	assert.Equal(t, []string{"JARDIM CAMBURI", "City Centre", "CENTRO"}, labels(rep.Neighbourhood))

	require.Len(t, rep.AgeGroup, 7)
	assert.Equal(t, Rate{Label: "0-12", Count: 1, NoShows: 0, Rate: 0}, rep.AgeGroup[0])
	assert.Equal(t, Rate{Label: "13-18", Count: 1, NoShows: 1, Rate: 1}, rep.AgeGroup[1])
	assert.Equal(t, Rate{Label: "19-30", Count: 1, NoShows: 1, Rate: 1}, rep.AgeGroup[2])
	assert.Equal(t, 0, rep.AgeGroup[6].Count, "age 101 is outside every bucket")

	assert.Equal(t, []Rate{
		{Label: "F", Count: 2, NoShows: 1, Rate: 0.5},
		{Label: "M", Count: 2, NoShows: 1, Rate: 0.5},
	}, rep.Gender)

	assert.Equal(t, []Rate{
		{Label: "No", Count: 2, NoShows: 0, Rate: 0},
		{Label: "Yes", Count: 2, NoShows: 2, Rate: 1},
	}, rep.SMS)

	assert.Equal(t, []Rate{{Label: "9", Count: 4, NoShows: 2, Rate: 0.5}}, rep.Hourly)
}

func TestBuild_TopTenNeighbourhoods(t *testing.T) {
	ds := &Dataset{}
	for i := 0; i < 15; i++ {
		for j := 0; j < 15; j++ {
			ds.Records = append(ds.Records, Record{
				Neighbourhood:   fmt.Sprintf("N%02d", i),
				NoShow:          j < i,
				AppointmentHour: PlaceholderHour,
			})
		}
	}
	rep := Build(ds)
	require.Len(t, rep.Neighbourhood, TopNeighbourhoods)
	assert.Equal(t, "N14", rep.Neighbourhood[0].Label)
	assert.Equal(t, "N05", rep.Neighbourhood[9].Label)
}

func TestBuild_Empty(t *testing.T) {
	rep := Build(&Dataset{})
	assert.Zero(t, rep.Total)
	assert.Zero(t, rep.OverallRate)
	assert.Len(t, rep.AgeGroup, 7)
}

func TestReporter(t *testing.T) {
	ctx := context.Background()
	opener := artifact.NewOpener(artifact.S3Options{})

	missing := LoadReporter(ctx, opener, filepath.Join(t.TempDir(), "nope.xlsx"), logging.Discard())
	_, err := missing.Report()
	assert.ErrorIs(t, err, ErrDatasetNotFound)

	w := httptest.NewRecorder()
	TrendsHandler(missing)(w, httptest.NewRequest(http.MethodGet, "/api/v1/trends", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	ok := LoadReporter(ctx, opener, writeCSV(t, sampleRows), logging.Discard())
	rep, err := ok.Report()
	require.NoError(t, err)
	assert.Equal(t, 4, rep.Total)

	w = httptest.NewRecorder()
	TrendsHandler(ok)(w, httptest.NewRequest(http.MethodGet, "/api/v1/trends", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var got Report
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, 2, got.NoShows)
}

func labels(rates []Rate) []string {
	out := make([]string, len(rates))
	for i, r := range rates {
		out[i] = r.Label
	}
	return out
}
