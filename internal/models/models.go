package models

import (
	"errors"
	"fmt"
	"time"
)

type User struct {
	ID           int64  `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
}

// Page is one of the screens a logged-in user can be on.
type Page string

const (
	PagePredict   Page = "predict"
	PageDashboard Page = "dashboard"
)

func (p Page) Valid() bool {
	return p == PagePredict || p == PageDashboard
}

var ErrInvalidRequest = errors.New("invalid prediction request")

// PredictionRequest is one submitted appointment form.
type PredictionRequest struct {
	PatientID    string    `json:"patient_id"`
	Gender       string    `json:"gender"`
	Age          int       `json:"age"`
	Location     string    `json:"location"`
	Hypertension int       `json:"hypertension"`
	Diabetes     int       `json:"diabetes"`
	Alcoholism   int       `json:"alcoholism"`
	Handicap     int       `json:"handicap"`
	SMSReceived  int       `json:"sms_received"`
	Scheduled    time.Time `json:"scheduled_at"`
	Appointment  time.Time `json:"appointment_at"`
}

func (r PredictionRequest) Validate() error {
	if r.Gender != "Male" && r.Gender != "Female" {
		return fmt.Errorf("%w: gender must be Male or Female", ErrInvalidRequest)
	}
	if r.Age < 0 || r.Age > 100 {
		return fmt.Errorf("%w: age must be between 0 and 100", ErrInvalidRequest)
	}
	flags := map[string]int{
		"hypertension": r.Hypertension,
		"diabetes":     r.Diabetes,
		"alcoholism":   r.Alcoholism,
		"handicap":     r.Handicap,
		"sms_received": r.SMSReceived,
	}
	for name, v := range flags {
		if v != 0 && v != 1 {
			return fmt.Errorf("%w: %s must be 0 or 1", ErrInvalidRequest, name)
		}
	}
	if r.Scheduled.IsZero() || r.Appointment.IsZero() {
		return fmt.Errorf("%w: scheduled and appointment times are required", ErrInvalidRequest)
	}
	return nil
}
