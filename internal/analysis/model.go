package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"

	"github.com/couchcryptid/tornado-bigday/internal/covariates"
	"github.com/couchcryptid/tornado-bigday/internal/lmm"
)

// FitOutput holds both fitted models.
type FitOutput struct {
	Mixed *lmm.Result
	OLS   *lmm.Result
}

var designNames = []string{"intercept", "max_cape", "min_cin", "max_srh", "stm_speed", "year_trend"}

// BuildDesign builds the model design from the event table: log10 energy as
// the response, environmental covariates plus a linear year trend as
// predictors, and year as the grouping factor.
func BuildDesign(rows []covariates.Row, startYear int) (*lmm.Design, error) {
	if len(rows) == 0 {
		return nil, errors.New("empty event table")
	}

	y := make([]float64, len(rows))
	years := make([]int, len(rows))
	x := mat.NewDense(len(rows), len(designNames), nil)
	for i, row := range rows {
		y[i] = row.LogEnergy
		years[i] = row.Year
		x.SetRow(i, []float64{
			1,
			row.MaxCAPE,
			row.MinCIN,
			row.MaxSRH,
			math.Hypot(row.MeanUStm, row.MeanVStm),
			float64(row.Year - startYear),
		})
	}

	groups, _ := lmm.GroupIndex(years)
	return &lmm.Design{Y: y, X: x, Groups: groups, Names: designNames}, nil
}

// Fit fits the random-intercept model and the OLS baseline on the event
// table and writes both summaries to the model file.
func (r *Runner) Fit(_ context.Context) (*FitOutput, error) {
	f, err := os.Open(r.outPath(TableFile))
	if err != nil {
		return nil, fmt.Errorf("open event table (run extract first): %w", err)
	}
	defer f.Close()

	rows, err := covariates.ReadCSV(f)
	if err != nil {
		return nil, err
	}

	design, err := BuildDesign(rows, r.cfg.StartYear)
	if err != nil {
		return nil, err
	}

	mixed, err := lmm.Fit(design)
	if err != nil {
		return nil, fmt.Errorf("fit mixed model: %w", err)
	}
	ols, err := lmm.FitOLS(design)
	if err != nil {
		return nil, fmt.Errorf("fit ols model: %w", err)
	}

	out := &FitOutput{Mixed: mixed, OLS: ols}
	if err := r.writeFile(ModelFile, func(w *os.File) error {
		_, err := fmt.Fprintf(w, "%s\n%s",
			mixed.Summary("Random-intercept model (group: year)"),
			ols.Summary("OLS baseline"))
		return err
	}); err != nil {
		return nil, err
	}

	r.logger.Info("models fitted",
		"rows", len(rows), "groups", mixed.NGroups,
		"lambda", mixed.Lambda, "loglik", mixed.LogLik, "aic", mixed.AIC)
	return out, nil
}
