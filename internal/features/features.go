// Package features turns a prediction form into the fixed-width vector the
// classifier was trained on.
package features

import (
	"strconv"

	"noshow-predictor/internal/models"
)

// VectorWidth is the input width of the trained model.
const VectorWidth = 98

// Locations maps the display names offered on the form to the
// neighbourhood codes present in the training data.
var Locations = map[string]string{
	"City Centre":   "N_SÃO JOSÉ",
	"Ashbrooke":     "N_UNIVERSITÁRIO",
	"Hendon":        "N_SANTOS REIS",
	"Monkwearmouth": "N_SÃO PEDRO",
	"Millfield":     "N_SOLON BORGES",
	"Pallion":       "N_TABUAZEIRO",
	"Roker":         "N_SÃO CRISTÓVÃO",
	"Southwick":     "N_VILA RUBIM",
	"Seaburn":       "N_SÃO BENEDITO",
	"Grangetown":    "N_SEGURANÇA DO LAR",
}

// LocationNames is the form's option order.
var LocationNames = []string{
	"City Centre", "Ashbrooke", "Hendon", "Monkwearmouth", "Millfield",
	"Pallion", "Roker", "Southwick", "Seaburn", "Grangetown",
}

// TrainedLocations is the one-hot column order.
var TrainedLocations = []string{
	"N_SANTOS REIS", "N_SEGURANÇA DO LAR", "N_SOLON BORGES",
	"N_SÃO BENEDITO", "N_SÃO CRISTÓVÃO", "N_SÃO JOSÉ",
	"N_SÃO PEDRO", "N_TABUAZEIRO", "N_UNIVERSITÁRIO", "N_VILA RUBIM",
}

// OneHotOffset is the index of the first location column.
const OneHotOffset = 20

// DisplayName maps a neighbourhood code back to its form name, returning
// the code unchanged when it has none.
func DisplayName(code string) string {
	for name, c := range Locations {
		if c == code {
			return name
		}
	}
	return code
}

// Build lays out the vector as
//
//	patient id, gender, age, five condition flags,
//	scheduled Y M D h m s, appointment Y M D, scheduled h m s again,
//	location one-hot, zero padding.
//
// The appointment slot repeats the scheduled time of day. The model was
// trained on vectors built this way, so it is kept.
func Build(req models.PredictionRequest) []float64 {
	v := make([]float64, 0, VectorWidth)

	v = append(v, float64(patientID(req.PatientID)))
	if req.Gender == "Female" {
		v = append(v, 1)
	} else {
		v = append(v, 0)
	}
	v = append(v,
		float64(req.Age),
		float64(req.Hypertension),
		float64(req.Diabetes),
		float64(req.Alcoholism),
		float64(req.Handicap),
		float64(req.SMSReceived),
	)

	s, a := req.Scheduled, req.Appointment
	v = append(v,
		float64(s.Year()), float64(s.Month()), float64(s.Day()),
		float64(s.Hour()), float64(s.Minute()), float64(s.Second()),
		float64(a.Year()), float64(a.Month()), float64(a.Day()),
		float64(s.Hour()), float64(s.Minute()), float64(s.Second()),
	)

	code, known := Locations[req.Location]
	for _, loc := range TrainedLocations {
		if known && loc == code {
			v = append(v, 1)
		} else {
			v = append(v, 0)
		}
	}

	for len(v) < VectorWidth {
		v = append(v, 0)
	}
	return v
}

// patientID accepts only plain decimal digits; anything else is 0.
func patientID(raw string) uint64 {
	if raw == "" {
		return 0
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0
		}
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return id
}
