package prediction

import (
	"encoding/json"
	"errors"
	"net/http"

	"noshow-predictor/internal/auth"
	"noshow-predictor/internal/features"
	"noshow-predictor/internal/httpjson"
	"noshow-predictor/internal/logging"
	"noshow-predictor/internal/metrics"
	"noshow-predictor/internal/models"
)

type PredictResponse struct {
	Probability  float64 `json:"probability"`
	LikelyNoShow bool    `json:"likely_no_show"`
	Verdict      string  `json:"verdict"`
}

func PredictHandler(svc *Service, m *metrics.Metrics, logger logging.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := auth.UsernameFromContext(r.Context())
		if !ok {
			httpjson.Error(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req models.PredictionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpjson.Error(w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := req.Validate(); err != nil {
			m.Prediction("invalid", 0)
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		p, err := svc.Predict(r.Context(), features.Build(req))
		if errors.Is(err, ErrModelUnavailable) {
			m.Prediction("unavailable", 0)
			httpjson.Error(w, http.StatusServiceUnavailable, "model not loaded")
			return
		}
		if err != nil {
			m.Prediction("error", 0)
			logger.Error(r.Context(), "prediction failed", "user", username, "error", err)
			httpjson.Error(w, http.StatusInternalServerError, "prediction failed")
			return
		}

		m.Prediction("ok", p)
		logger.Info(r.Context(), "prediction served", "user", username, "probability", p)
		httpjson.Write(w, http.StatusOK, PredictResponse{
			Probability:  p,
			LikelyNoShow: LikelyNoShow(p),
			Verdict:      Verdict(p),
		})
	}
}
