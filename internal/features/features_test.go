package features

import (
	"testing"
	"time"

	"noshow-predictor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleRequest() models.PredictionRequest {
	return models.PredictionRequest{
		PatientID:    "42",
		Gender:       "Female",
		Age:          30,
		Location:     "City Centre",
		Hypertension: 1,
		Scheduled:    time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		Appointment:  time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestBuild_Example(t *testing.T) {
	v := Build(exampleRequest())

	require.Len(t, v, VectorWidth)
	want := []float64{42, 1, 30, 1, 0, 0, 0, 0, 2024, 1, 1, 9, 0, 0, 2024, 1, 2, 9, 0, 0}
	assert.Equal(t, want, v[:OneHotOffset])

	idx := OneHotOffset + indexOf(TrainedLocations, "N_SÃO JOSÉ")
	assert.Equal(t, 25, idx)
	for i := OneHotOffset; i < VectorWidth; i++ {
		if i == idx {
			assert.Equal(t, 1.0, v[i], "index %d", i)
		} else {
			assert.Equal(t, 0.0, v[i], "index %d", i)
		}
	}
}

func TestBuild_AppointmentTimeOfDayRepeatsScheduled(t *testing.T) {
	req := exampleRequest()
	req.Scheduled = time.Date(2024, 3, 4, 7, 15, 30, 0, time.UTC)
	req.Appointment = time.Date(2024, 3, 5, 16, 45, 10, 0, time.UTC)

	v := Build(req)
	assert.Equal(t, []float64{2024, 3, 5, 7, 15, 30}, v[14:20])
}

func TestBuild_Deterministic(t *testing.T) {
	req := exampleRequest()
	first := Build(req)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Build(req))
	}
}

func TestBuild_OneHotForEveryLocation(t *testing.T) {
	for _, name := range LocationNames {
		t.Run(name, func(t *testing.T) {
			req := exampleRequest()
			req.Location = name

			v := Build(req)
			require.Len(t, v, VectorWidth)

			var ones int
			for _, x := range v[OneHotOffset : OneHotOffset+len(TrainedLocations)] {
				if x == 1 {
					ones++
				}
			}
			assert.Equal(t, 1, ones)
			assert.Equal(t, 1.0, v[OneHotOffset+indexOf(TrainedLocations, Locations[name])])
		})
	}
}

func TestBuild_UnknownLocation(t *testing.T) {
	for _, loc := range []string{"", "Newcastle", "N_SÃO JOSÉ"} {
		req := exampleRequest()
		req.Location = loc

		v := Build(req)
		require.Len(t, v, VectorWidth)
		for i := OneHotOffset; i < VectorWidth; i++ {
			assert.Zero(t, v[i], "location %q index %d", loc, i)
		}
	}
}

func TestBuild_PatientID(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{raw: "42", want: 42},
		{raw: "007", want: 7},
		{raw: "", want: 0},
		{raw: "abc", want: 0},
		{raw: "-5", want: 0},
		{raw: "4.2", want: 0},
		{raw: " 42", want: 0},
		{raw: "99999999999999999999999", want: 0},
	}
	for _, tt := range tests {
		req := exampleRequest()
		req.PatientID = tt.raw
		assert.Equal(t, tt.want, Build(req)[0], "patient id %q", tt.raw)
	}
}

func TestBuild_Gender(t *testing.T) {
	req := exampleRequest()
	req.Gender = "Male"
	assert.Equal(t, 0.0, Build(req)[1])
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "City Centre", DisplayName("N_SÃO JOSÉ"))
	assert.Equal(t, "Grangetown", DisplayName("N_SEGURANÇA DO LAR"))
	assert.Equal(t, "JARDIM CAMBURI", DisplayName("JARDIM CAMBURI"))
}

func TestLocationTables(t *testing.T) {
	assert.Len(t, LocationNames, len(Locations))
	for _, name := range LocationNames {
		code, ok := Locations[name]
		require.True(t, ok, name)
		assert.NotEqual(t, -1, indexOf(TrainedLocations, code), code)
	}
	assert.LessOrEqual(t, OneHotOffset+len(TrainedLocations), VectorWidth)
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
