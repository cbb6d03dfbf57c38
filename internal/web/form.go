package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"noshow-predictor/internal/models"
)

const dateLayout = "2006-01-02"

// Browsers send time inputs as HH:MM, or HH:MM:SS when a step is set.
var clockLayouts = []string{"15:04", "15:04:05"}

func readPredictForm(r *http.Request) predictForm {
	v := func(name string) string { return strings.TrimSpace(r.PostFormValue(name)) }
	return predictForm{
		PatientID:       v("patient_id"),
		Gender:          v("gender"),
		Age:             v("age"),
		Location:        v("location"),
		Hypertension:    v("hypertension"),
		Diabetes:        v("diabetes"),
		Alcoholism:      v("alcoholism"),
		Handicap:        v("handicap"),
		SMSReceived:     v("sms_received"),
		ScheduledDate:   v("scheduled_date"),
		ScheduledTime:   v("scheduled_time"),
		AppointmentDate: v("appointment_date"),
		AppointmentTime: v("appointment_time"),
	}
}

// request converts the raw form into a typed request. Range checks are
// left to PredictionRequest.Validate.
func (f predictForm) request() (models.PredictionRequest, error) {
	req := models.PredictionRequest{
		PatientID: f.PatientID,
		Gender:    f.Gender,
		Location:  f.Location,
	}

	ints := []struct {
		name string
		raw  string
		dst  *int
	}{
		{"age", f.Age, &req.Age},
		{"hypertension", f.Hypertension, &req.Hypertension},
		{"diabetes", f.Diabetes, &req.Diabetes},
		{"alcoholism", f.Alcoholism, &req.Alcoholism},
		{"handicap", f.Handicap, &req.Handicap},
		{"sms_received", f.SMSReceived, &req.SMSReceived},
	}
	for _, field := range ints {
		n, err := strconv.Atoi(field.raw)
		if err != nil {
			return req, fmt.Errorf("%w: %s must be a whole number", models.ErrInvalidRequest, field.name)
		}
		*field.dst = n
	}

	var err error
	if req.Scheduled, err = combine(f.ScheduledDate, f.ScheduledTime); err != nil {
		return req, fmt.Errorf("%w: scheduled %v", models.ErrInvalidRequest, err)
	}
	if req.Appointment, err = combine(f.AppointmentDate, f.AppointmentTime); err != nil {
		return req, fmt.Errorf("%w: appointment %v", models.ErrInvalidRequest, err)
	}
	return req, nil
}

func combine(date, clock string) (time.Time, error) {
	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is not YYYY-MM-DD", date)
	}
	for _, layout := range clockLayouts {
		if c, err := time.Parse(layout, clock); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), c.Hour(), c.Minute(), c.Second(), 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("time %q is not HH:MM", clock)
}
