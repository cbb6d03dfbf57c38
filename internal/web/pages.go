package web

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"noshow-predictor/internal/auth"
	"noshow-predictor/internal/features"
	"noshow-predictor/internal/models"
	"noshow-predictor/internal/prediction"
	"noshow-predictor/internal/session"
	"noshow-predictor/internal/trends"
)

const (
	msgRegistered     = "Registration successful. Please log in."
	msgUsernameTaken  = "Username already exists. Please choose a different username."
	msgMissingFields  = "Username and password are required."
	msgBadCredentials = "Incorrect username or password"
	msgModelMissing   = "Model not loaded. Please check the model file path and ensure it is a valid model artifact."
	msgDatasetMissing = "Dataset file not found. Please check the dataset path."
	msgDatasetBroken  = "The dataset could not be read."
	msgInternal       = "Something went wrong. Please try again."
)

type ctxKey int

const sessionIDKey ctxKey = 0

type flagField struct {
	Name, Label, Value string
}

type predictForm struct {
	PatientID       string
	Gender          string
	Age             string
	Location        string
	Hypertension    string
	Diabetes        string
	Alcoholism      string
	Handicap        string
	SMSReceived     string
	ScheduledDate   string
	ScheduledTime   string
	AppointmentDate string
	AppointmentTime string
}

type loginForm struct {
	Username string
}

type predictResult struct {
	Probability  float64
	Width        string
	LikelyNoShow bool
	Verdict      string
}

type chartData struct {
	Title, XLabel, YLabel string
	Rates                 []trends.Rate
}

type pageData struct {
	Title       string
	Username    string
	Page        models.Page
	Message     string
	MessageKind string

	Form      any
	Genders   []string
	Locations []string
	Flags     []flagField
	Result    *predictResult
	Report    *trends.Report
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.Logger.Error(r.Context(), "render failed", "page", name, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func (s *Server) currentSession(r *http.Request) session.Session {
	return s.Sessions.Get(sessionID(r))
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sessionID(r)
		if !s.Sessions.Get(id).Authenticated {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// navigate moves the caller's session to page and returns the updated state.
func (s *Server) navigate(r *http.Request, page models.Page) (session.Session, error) {
	id, _ := r.Context().Value(sessionIDKey).(string)
	var out session.Session
	err := s.Sessions.Update(id, func(sess *session.Session) error {
		if err := sess.Navigate(page); err != nil {
			return err
		}
		out = *sess
		return nil
	})
	return out, err
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.currentSession(r)
	if !sess.Authenticated {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/"+string(sess.Page), http.StatusSeeOther)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.currentSession(r).Authenticated {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", pageData{Title: "Login", Form: loginForm{}})
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.render(w, r, http.StatusBadRequest, "login", pageData{Title: "Login", Form: loginForm{}, Message: msgMissingFields, MessageKind: "error"})
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	data := pageData{Title: "Login", Form: loginForm{Username: username}}

	if r.PostFormValue("action") == "register" {
		err := s.Auth.Register(r.Context(), username, password)
		status := http.StatusOK
		switch {
		case err == nil:
			s.Metrics.Registration("ok")
			data.Message, data.MessageKind = msgRegistered, "success"
		case errors.Is(err, auth.ErrUsernameTaken):
			s.Metrics.Registration("taken")
			status = http.StatusConflict
			data.Message, data.MessageKind = msgUsernameTaken, "error"
		case errors.Is(err, auth.ErrInvalidInput):
			s.Metrics.Registration("invalid")
			status = http.StatusBadRequest
			data.Message, data.MessageKind = msgMissingFields, "error"
		default:
			s.Metrics.Registration("error")
			s.Logger.Error(r.Context(), "registration failed", "error", err)
			status = http.StatusInternalServerError
			data.Message, data.MessageKind = msgInternal, "error"
		}
		s.render(w, r, status, "login", data)
		return
	}

	sess, err := s.Auth.Login(r.Context(), username, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.Metrics.Login("invalid")
		data.Message, data.MessageKind = msgBadCredentials, "error"
		s.render(w, r, http.StatusUnauthorized, "login", data)
		return
	}
	if err != nil {
		s.Metrics.Login("error")
		s.Logger.Error(r.Context(), "login failed", "error", err)
		data.Message, data.MessageKind = msgInternal, "error"
		s.render(w, r, http.StatusInternalServerError, "login", data)
		return
	}

	s.Metrics.Login("ok")
	// drop any session the browser still carries before issuing a new id
	s.Sessions.End(sessionID(r))
	id := s.Sessions.Start(sess)
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/"+string(sess.Page), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.End(sessionID(r))
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	page := models.Page(r.PostFormValue("page"))
	if _, err := s.navigate(r, page); err != nil {
		if errors.Is(err, session.ErrUnknownPage) {
			http.Error(w, "unknown page", http.StatusBadRequest)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/"+string(page), http.StatusSeeOther)
}

func defaultPredictForm(now time.Time) predictForm {
	today := now.Format(dateLayout)
	return predictForm{
		Gender:          "Male",
		Age:             "0",
		Location:        features.LocationNames[0],
		Hypertension:    "0",
		Diabetes:        "0",
		Alcoholism:      "0",
		Handicap:        "0",
		SMSReceived:     "0",
		ScheduledDate:   today,
		ScheduledTime:   "09:00",
		AppointmentDate: today,
		AppointmentTime: "10:00",
	}
}

func (s *Server) predictPage(sess session.Session, form predictForm) pageData {
	return pageData{
		Title:     "Predict",
		Username:  sess.Username,
		Page:      sess.Page,
		Form:      form,
		Genders:   []string{"Male", "Female"},
		Locations: features.LocationNames,
		Flags: []flagField{
			{Name: "hypertension", Label: "Hypertension", Value: form.Hypertension},
			{Name: "diabetes", Label: "Diabetes", Value: form.Diabetes},
			{Name: "alcoholism", Label: "Alcoholism", Value: form.Alcoholism},
			{Name: "handicap", Label: "Handicap", Value: form.Handicap},
			{Name: "sms_received", Label: "SMS Received", Value: form.SMSReceived},
		},
	}
}

func (s *Server) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.navigate(r, models.PagePredict)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "predict", s.predictPage(sess, defaultPredictForm(time.Now())))
}

func (s *Server) handlePredictSubmit(w http.ResponseWriter, r *http.Request) {
	sess, err := s.navigate(r, models.PagePredict)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	form := readPredictForm(r)
	data := s.predictPage(sess, form)

	req, err := form.request()
	if err == nil {
		err = req.Validate()
	}
	if err != nil {
		s.Metrics.Prediction("invalid", 0)
		data.Message, data.MessageKind = err.Error(), "error"
		s.render(w, r, http.StatusBadRequest, "predict", data)
		return
	}

	p, err := s.Predictor.Predict(r.Context(), features.Build(req))
	switch {
	case errors.Is(err, prediction.ErrModelUnavailable):
		s.Metrics.Prediction("unavailable", 0)
		data.Message, data.MessageKind = msgModelMissing, "error"
		s.render(w, r, http.StatusServiceUnavailable, "predict", data)
		return
	case err != nil:
		s.Metrics.Prediction("error", 0)
		s.Logger.Error(r.Context(), "prediction failed", "user", sess.Username, "error", err)
		data.Message, data.MessageKind = msgInternal, "error"
		s.render(w, r, http.StatusInternalServerError, "predict", data)
		return
	}

	s.Metrics.Prediction("ok", p)
	s.Logger.Info(r.Context(), "prediction served", "user", sess.Username, "probability", p)
	data.Result = &predictResult{
		Probability:  p,
		Width:        strconv.FormatFloat(p*100, 'f', 1, 64),
		LikelyNoShow: prediction.LikelyNoShow(p),
		Verdict:      prediction.Verdict(p),
	}
	s.render(w, r, http.StatusOK, "predict", data)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess, err := s.navigate(r, models.PageDashboard)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	data := pageData{Title: "Trends", Username: sess.Username, Page: sess.Page}

	rep, err := s.Reporter.Report()
	switch {
	case errors.Is(err, trends.ErrDatasetNotFound):
		data.Message, data.MessageKind = msgDatasetMissing, "error"
	case err != nil:
		data.Message, data.MessageKind = msgDatasetBroken, "error"
	default:
		data.Report = rep
	}
	s.render(w, r, http.StatusOK, "dashboard", data)
}
