package prediction

import (
	"context"
	"errors"
	"fmt"

	"noshow-predictor/internal/artifact"
	"noshow-predictor/internal/features"
	"noshow-predictor/internal/logging"
)

var (
	ErrModelUnavailable = errors.New("model not loaded")
	ErrInputShape       = errors.New("feature vector has the wrong width")
)

// Threshold above which a patient is reported as likely to miss.
const Threshold = 0.5

type Service struct {
	model   *Model
	loadErr error
}

// NewService refuses models that do not take a features.VectorWidth input;
// such a service reports ErrModelUnavailable.
func NewService(model *Model) *Service {
	if model == nil {
		return &Service{loadErr: ErrModelUnavailable}
	}
	if err := checkWidth(model); err != nil {
		return &Service{loadErr: err}
	}
	return &Service{model: model}
}

func checkWidth(m *Model) error {
	if w := m.InputWidth(); w != features.VectorWidth {
		return fmt.Errorf("%w: model expects %d inputs, features have %d", ErrModelUnavailable, w, features.VectorWidth)
	}
	return nil
}

// LoadService reads the model once. A failure is logged and kept: the
// service still starts and Predict reports ErrModelUnavailable.
func LoadService(ctx context.Context, opener *artifact.Opener, path string, logger logging.Logger) *Service {
	rc, err := opener.Open(ctx, path)
	if err != nil {
		logger.Error(ctx, "model not loaded", "path", path, "error", err)
		return &Service{loadErr: fmt.Errorf("%w: %v", ErrModelUnavailable, err)}
	}
	defer rc.Close()

	m, err := LoadModel(rc)
	if err != nil {
		logger.Error(ctx, "model not loaded", "path", path, "error", err)
		return &Service{loadErr: fmt.Errorf("%w: %v", ErrModelUnavailable, err)}
	}
	if err := checkWidth(m); err != nil {
		logger.Error(ctx, "model not loaded", "path", path, "error", err)
		return &Service{loadErr: err}
	}
	logger.Info(ctx, "model loaded", "path", path, "name", m.Name, "inputs", m.InputWidth(), "layers", len(m.Layers))
	return &Service{model: m}
}

func (s *Service) Available() bool {
	return s.model != nil
}

// Predict returns the no-show probability for one feature vector.
func (s *Service) Predict(_ context.Context, vector []float64) (float64, error) {
	if s.model == nil {
		return 0, s.loadErr
	}
	return s.model.Predict(vector)
}

// LikelyNoShow reports whether p crosses the miss threshold.
func LikelyNoShow(p float64) bool {
	return p > Threshold
}

func Verdict(p float64) string {
	if LikelyNoShow(p) {
		return fmt.Sprintf("The patient is likely to miss the appointment. Probability: %.2f%%", p*100)
	}
	return fmt.Sprintf("The patient is likely to attend the appointment. Probability: %.2f%%", p*100)
}
