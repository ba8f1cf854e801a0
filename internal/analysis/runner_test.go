package analysis

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tornado-bigday/internal/catalog"
	"github.com/couchcryptid/tornado-bigday/internal/config"
	"github.com/couchcryptid/tornado-bigday/internal/covariates"
	"github.com/couchcryptid/tornado-bigday/internal/grid"
	"github.com/couchcryptid/tornado-bigday/internal/observability"
)

// Two convective days with three reports each, plus quiet days with a single
// report that must not form an event at min_count 3. The April and March
// quiet days are the contrast candidates.
const fixtureCSV = `om,yr,mo,dy,date,time,tz,st,stf,stn,mag,inj,fat,loss,closs,slat,slon,elat,elon,len,wid,ns,sn,sg,f1,f2,f3,f4,fc
1,2011,4,27,2011-04-27,14:00:00,3,AL,1,0,4,54,13,0,0,33.05,-87.92,33.91,-86.96,80.68,2640,1,1,1,0,0,0,0,0
2,2011,4,27,2011-04-27,15:20:00,3,MS,28,0,3,0,3,0,0,33.78,-88.55,34.08,-88.16,29.18,1320,1,1,1,0,0,0,0,0
3,2011,4,27,2011-04-27,17:05:00,3,TN,47,0,2,0,0,0,0,35.20,-89.10,35.30,-89.00,12.00,400,1,1,1,0,0,0,0,0
4,2012,3,2,2012-03-02,13:10:00,3,IN,18,0,3,10,1,0,0,38.60,-86.10,38.70,-85.90,20.00,800,1,1,1,0,0,0,0,0
5,2012,3,2,2012-03-02,14:45:00,3,KY,21,0,2,0,0,0,0,37.90,-85.50,37.95,-85.40,8.00,300,1,1,1,0,0,0,0,0
6,2012,3,2,2012-03-02,16:30:00,3,KY,21,0,4,25,2,0,0,37.40,-86.20,37.60,-85.80,35.00,1600,1,1,1,0,0,0,0,0
7,2012,6,10,2012-06-10,15:00:00,3,KS,20,0,1,0,0,0,0,38.00,-98.00,38.05,-97.95,5.00,150,1,1,1,0,0,0,0,0
8,2011,4,10,2011-04-10,15:00:00,3,OK,40,0,1,0,0,0,0,35.20,-97.40,35.25,-97.35,5.00,150,1,1,1,0,0,0,0,0
9,2012,3,20,2012-03-20,14:00:00,3,TX,48,0,0,0,0,0,0,32.50,-97.00,32.55,-96.95,4.00,120,1,1,1,0,0,0,0,0
`

// fakeStore serves uniform grids for any day and records EnsureDay calls.
type fakeStore struct {
	ensured []time.Time
	loadErr error
}

func (s *fakeStore) EnsureDay(_ context.Context, day time.Time) (int, error) {
	s.ensured = append(s.ensured, day)
	return 5, nil
}

func (s *fakeStore) LoadDay(time.Time) (map[string]*grid.Grid, error) {
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	grids := make(map[string]*grid.Grid)
	for variable, v := range map[string]float64{
		"cape": 1800, "cin": -60, "srh03": 280, "ustm": 10, "vstm": 6,
	} {
		grids[variable] = uniformGrid(variable, v)
	}
	return grids, nil
}

// uniformGrid covers lat 25..45, lon -105..-80 with the constant value v.
func uniformGrid(variable string, v float64) *grid.Grid {
	var lats, lons []float64
	for lat := 25.0; lat <= 45; lat += 2 {
		lats = append(lats, lat)
	}
	for lon := -105.0; lon <= -80; lon += 2 {
		lons = append(lons, lon)
	}
	values := make([]float64, len(lats)*len(lons))
	for i := range values {
		values[i] = v
	}
	return &grid.Grid{Variable: variable, Lats: lats, Lons: lons, Values: values}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "tornadoes.csv")
	require.NoError(t, os.WriteFile(catalogPath, []byte(fixtureCSV), 0o644))

	return &config.Config{
		CatalogPath:  catalogPath,
		DataDir:      filepath.Join(dir, "grids"),
		OutputDir:    filepath.Join(dir, "out"),
		StartYear:    2011,
		EndYear:      2012,
		LatMin:       24, LatMax: 50,
		LonMin:       -125, LonMax: -66,
		MinCount:     3,
		BufferKm:     75,
		ValidHour:    18,
		ContrastSize: 2,
		Seed:         42,
	}
}

func newTestRunner(t *testing.T, store *fakeStore) *Runner {
	t.Helper()
	return NewRunner(testConfig(t), store, nil, slog.Default(), observability.NewMetricsForTesting())
}

func TestRunner_StageSequence(t *testing.T) {
	store := &fakeStore{}
	r := newTestRunner(t, store)
	ctx := t.Context()

	require.NoError(t, r.Ingest(ctx))

	f, err := os.Open(r.outPath(ReportsFile))
	require.NoError(t, err)
	reports, err := catalog.ReadReports(f)
	f.Close()
	require.NoError(t, err)
	assert.Len(t, reports, 9)

	require.NoError(t, r.BuildEvents(ctx))

	events, err := r.readEvents()
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, time.Date(2011, 4, 27, 0, 0, 0, 0, time.UTC), events[0].Day)
	assert.Equal(t, time.Date(2012, 3, 2, 0, 0, 0, 0, time.UTC), events[1].Day)

	require.NoError(t, r.FetchGrids(ctx))
	assert.Len(t, store.ensured, 2)

	require.NoError(t, r.ExtractCovariates(ctx))

	f, err = os.Open(r.outPath(TableFile))
	require.NoError(t, err)
	rows, err := covariates.ReadCSV(f)
	f.Close()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1800.0, rows[0].MaxCAPE)
	assert.Equal(t, -60.0, rows[0].MinCIN)
	assert.Equal(t, 3, rows[0].Count)

	require.NoError(t, r.SampleContrast(ctx))

	f, err = os.Open(r.outPath(ContrastFile))
	require.NoError(t, err)
	contrastRows, err := covariates.ReadCSV(f)
	f.Close()
	require.NoError(t, err)
	require.Len(t, contrastRows, 2)
	for _, row := range contrastRows {
		assert.Zero(t, row.Count)
		assert.Equal(t, 1800.0, row.MaxCAPE)
	}
	// The only non-event catalog days in event months are the two quiet days.
	assert.Equal(t, time.Date(2011, 4, 10, 0, 0, 0, 0, time.UTC), contrastRows[0].Day)
	assert.Equal(t, time.Date(2012, 3, 20, 0, 0, 0, 0, time.UTC), contrastRows[1].Day)
	// Contrast days also had their grids ensured.
	assert.Len(t, store.ensured, 4)
}

func TestRunner_Stages(t *testing.T) {
	r := newTestRunner(t, &fakeStore{})
	stages := r.Stages()
	require.Len(t, stages, 6)
	assert.Equal(t, "ingest", stages[0].Name)
	assert.Equal(t, "fit-models", stages[5].Name)
}

func TestIngest_MissingCatalog(t *testing.T) {
	r := newTestRunner(t, &fakeStore{})
	r.cfg.CatalogPath = "/nonexistent.csv"
	require.Error(t, r.Ingest(t.Context()))
}

func TestBuildEvents_RequiresIngest(t *testing.T) {
	r := newTestRunner(t, &fakeStore{})
	err := r.BuildEvents(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run ingest first")
}

func TestExtractCovariates_StoreError(t *testing.T) {
	store := &fakeStore{loadErr: errors.New("disk gone")}
	r := newTestRunner(t, store)
	ctx := t.Context()

	require.NoError(t, r.Ingest(ctx))
	require.NoError(t, r.BuildEvents(ctx))
	require.Error(t, r.ExtractCovariates(ctx))
}

// publishRecorder captures rows handed to the exporter.
type publishRecorder struct {
	rows []covariates.Row
}

func (p *publishRecorder) PublishRows(_ context.Context, rows []covariates.Row) error {
	p.rows = append(p.rows, rows...)
	return nil
}

func TestExtractCovariates_Publishes(t *testing.T) {
	rec := &publishRecorder{}
	r := newTestRunner(t, &fakeStore{})
	r.publisher = rec
	ctx := t.Context()

	require.NoError(t, r.Ingest(ctx))
	require.NoError(t, r.BuildEvents(ctx))
	require.NoError(t, r.FetchGrids(ctx))
	require.NoError(t, r.ExtractCovariates(ctx))

	require.Len(t, rec.rows, 2)
	assert.NotEmpty(t, rec.rows[0].EventID)
}

// syntheticTable writes an event table large enough to fit both models.
func syntheticTable(t *testing.T, r *Runner, n int) {
	t.Helper()
	rng := rand.New(rand.NewPCG(7, 7))
	rows := make([]covariates.Row, n)
	for i := range rows {
		year := 2011 + i%3
		cape := 1000 + 2500*rng.Float64()
		cin := -150 * rng.Float64()
		srh := 100 + 400*rng.Float64()
		u := 5 + 10*rng.Float64()
		v := 2 + 8*rng.Float64()
		rows[i] = covariates.Row{
			EventID:   "bigday-" + string(rune('a'+i)),
			Day:       time.Date(year, 4, 1+i, 0, 0, 0, 0, time.UTC),
			Year:      year,
			Month:     4,
			Count:     10 + i,
			LogEnergy: 11 + 0.0005*cape + 0.002*srh + 0.2*rng.NormFloat64(),
			MaxCAPE:   cape,
			MinCIN:    cin,
			MaxSRH:    srh,
			MeanUStm:  u,
			MeanVStm:  v,
		}
	}
	require.NoError(t, r.writeFile(TableFile, func(w *os.File) error {
		return covariates.WriteCSV(w, rows)
	}))
}

func TestFit(t *testing.T) {
	r := newTestRunner(t, &fakeStore{})
	syntheticTable(t, r, 18)

	out, err := r.Fit(t.Context())
	require.NoError(t, err)

	require.Len(t, out.Mixed.Coefficients, 6)
	assert.Equal(t, 3, out.Mixed.NGroups)
	assert.Equal(t, 18, out.Mixed.NObs)
	assert.Positive(t, out.Mixed.VarResidual)
	assert.Zero(t, out.OLS.VarIntercept)

	data, err := os.ReadFile(r.outPath(ModelFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Random-intercept model")
	assert.Contains(t, string(data), "OLS baseline")
	assert.Contains(t, string(data), "max_cape")
}

func TestFit_RequiresTable(t *testing.T) {
	r := newTestRunner(t, &fakeStore{})
	_, err := r.Fit(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run extract first")
}
