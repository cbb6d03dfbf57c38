package trends

import (
	"context"
	"errors"
	"net/http"

	"noshow-predictor/internal/artifact"
	"noshow-predictor/internal/httpjson"
	"noshow-predictor/internal/logging"
)

// Reporter serves the report computed from the dataset loaded at startup.
type Reporter struct {
	report  *Report
	loadErr error
}

func NewReporter(ds *Dataset) *Reporter {
	return &Reporter{report: Build(ds)}
}

// LoadReporter never fails: a missing or broken dataset is remembered and
// returned from Report, so only the dashboard is affected.
func LoadReporter(ctx context.Context, opener *artifact.Opener, path string, logger logging.Logger) *Reporter {
	ds, err := Load(ctx, opener, path)
	if err != nil {
		logger.Error(ctx, "dataset not loaded", "path", path, "error", err)
		return &Reporter{loadErr: err}
	}
	logger.Info(ctx, "dataset loaded", "path", path, "records", len(ds.Records))
	return NewReporter(ds)
}

func (r *Reporter) Report() (*Report, error) {
	if r.report == nil {
		if r.loadErr == nil {
			return nil, ErrDatasetNotFound
		}
		return nil, r.loadErr
	}
	return r.report, nil
}

func TrendsHandler(r *Reporter) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		rep, err := r.Report()
		if errors.Is(err, ErrDatasetNotFound) {
			httpjson.Error(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if err != nil {
			httpjson.Error(w, http.StatusInternalServerError, "dataset could not be read")
			return
		}
		httpjson.Write(w, http.StatusOK, rep)
	}
}
