// Package lmm fits a random-intercept linear mixed-effects model by profiled
// maximum likelihood:
//
//	y = Xβ + b_g + ε,   b_g ~ N(0, σ²_b),   ε ~ N(0, σ²_e)
//
// with one random intercept per group. The covariance V = I + λZZ'
// (λ = σ²_b/σ²_e) is block diagonal by group, so V⁻¹ has the closed form
// I − λ/(1+λ·n_g)·J within each block and both the GLS solve and log|V|
// reduce to per-group accumulations; no n×n matrix is ever formed. The
// scalar profile likelihood over λ is maximized by a coarse log-spaced scan
// followed by golden-section refinement.
package lmm

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// Design is the model specification: response, predictors (including an
// intercept column), and a group index per observation.
type Design struct {
	Y      []float64
	X      *mat.Dense // n x p
	Groups []int      // group index per row, dense 0..G-1
	Names  []string   // p column names, aligned with X
}

// Coefficient is one fixed-effect estimate.
type Coefficient struct {
	Name     string
	Estimate float64
	StdErr   float64
	TValue   float64
}

// Result holds a fitted model.
type Result struct {
	Coefficients []Coefficient
	VarIntercept float64 // σ²_b
	VarResidual  float64 // σ²_e
	Lambda       float64 // σ²_b / σ²_e
	LogLik       float64
	AIC          float64
	NObs         int
	NGroups      int
	SingleGroup  bool // σ²_b not identifiable; OLS estimates reported
}

const lambdaMax = 1e3

// Fit fits the random-intercept model. A design with a single group
// degenerates to OLS (σ²_b is not identifiable) and the Result is flagged
// so Summary can warn; fewer observations than predictors is an error.
func Fit(d *Design) (*Result, error) {
	if err := validate(d); err != nil {
		return nil, err
	}
	if nGroups(d.Groups) == 1 {
		res, err := FitOLS(d)
		if err != nil {
			return nil, err
		}
		res.SingleGroup = true
		return res, nil
	}

	// Coarse scan: λ=0 plus a log-spaced sweep, then refine around the best.
	best := 0.0
	bestLL := profileLogLik(d, 0)
	for i := 0; i <= 70; i++ {
		lambda := math.Pow(10, -4+float64(i)*0.1) // 1e-4 .. 1e3
		if ll := profileLogLik(d, lambda); ll > bestLL {
			bestLL = ll
			best = lambda
		}
	}

	lo, hi := best/3, best*3
	if best == 0 {
		lo, hi = 0, 1e-4
	}
	if hi > lambdaMax {
		hi = lambdaMax
	}
	lambda := goldenSection(func(l float64) float64 { return profileLogLik(d, l) }, lo, hi)
	if profileLogLik(d, 0) >= profileLogLik(d, lambda) {
		lambda = 0
	}

	return finish(d, lambda)
}

// FitOLS fits the fixed-effects-only model (σ²_b pinned at zero), the
// comparison baseline for the mixed fit.
func FitOLS(d *Design) (*Result, error) {
	if err := validate(d); err != nil {
		return nil, err
	}
	return finish(d, 0)
}

func validate(d *Design) error {
	if d == nil || d.X == nil {
		return fmt.Errorf("lmm: nil design")
	}
	n := len(d.Y)
	if n == 0 {
		return fmt.Errorf("lmm: empty design")
	}
	rows, cols := d.X.Dims()
	if rows != n {
		return fmt.Errorf("lmm: %d responses but %d predictor rows", n, rows)
	}
	if len(d.Groups) != n {
		return fmt.Errorf("lmm: %d responses but %d group labels", n, len(d.Groups))
	}
	if len(d.Names) != cols {
		return fmt.Errorf("lmm: %d predictor columns but %d names", cols, len(d.Names))
	}
	if n <= cols {
		return fmt.Errorf("lmm: %d observations cannot identify %d coefficients", n, cols)
	}
	g := nGroups(d.Groups)
	for _, idx := range d.Groups {
		if idx < 0 || idx >= g {
			return fmt.Errorf("lmm: group index %d outside dense range 0..%d", idx, g-1)
		}
	}
	return nil
}

func nGroups(groups []int) int {
	max := -1
	for _, g := range groups {
		if g > max {
			max = g
		}
	}
	return max + 1
}

// glsSolve computes the GLS normal equations for a given λ and returns the
// coefficient vector, the (X'V⁻¹X)⁻¹ matrix, and the weighted residual sum
// of squares r'V⁻¹r.
func glsSolve(d *Design, lambda float64) (beta *mat.VecDense, xtxInv *mat.Dense, wrss float64, err error) {
	n, p := d.X.Dims()
	g := nGroups(d.Groups)

	// Plain cross products.
	xtx := mat.NewDense(p, p, nil)
	xtx.Mul(d.X.T(), d.X)
	y := mat.NewVecDense(n, d.Y)
	xty := mat.NewVecDense(p, nil)
	xty.MulVec(d.X.T(), y)
	yty := mat.Dot(y, y)

	// Per-group sums of X rows and y for the rank-one corrections.
	sumX := mat.NewDense(g, p, nil)
	sumY := make([]float64, g)
	counts := make([]float64, g)
	for i := 0; i < n; i++ {
		gi := d.Groups[i]
		counts[gi]++
		sumY[gi] += d.Y[i]
		for j := 0; j < p; j++ {
			sumX.Set(gi, j, sumX.At(gi, j)+d.X.At(i, j))
		}
	}

	// Subtract c_g (Σx)(Σx)' per group: V⁻¹ = I − c_g J within each block.
	for gi := 0; gi < g; gi++ {
		c := lambda / (1 + lambda*counts[gi])
		if c == 0 {
			continue
		}
		row := sumX.RawRowView(gi)
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				xtx.Set(a, b, xtx.At(a, b)-c*row[a]*row[b])
			}
			xty.SetVec(a, xty.AtVec(a)-c*row[a]*sumY[gi])
		}
		yty -= c * sumY[gi] * sumY[gi]
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(asSym(xtx)); !ok {
		return nil, nil, 0, fmt.Errorf("lmm: predictor matrix is singular")
	}

	beta = mat.NewVecDense(p, nil)
	if err := chol.SolveVecTo(beta, xty); err != nil {
		return nil, nil, 0, fmt.Errorf("lmm: solve normal equations: %w", err)
	}

	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return nil, nil, 0, fmt.Errorf("lmm: invert normal equations: %w", err)
	}
	xtxInv = mat.DenseCopyOf(&inv)

	wrss = yty - mat.Dot(beta, xty)
	if wrss < 0 {
		wrss = 0 // numerical noise on perfect fits
	}
	return beta, xtxInv, wrss, nil
}

// profileLogLik evaluates the ML log-likelihood at λ with β and σ²_e
// profiled out. Returns -Inf when the solve fails.
func profileLogLik(d *Design, lambda float64) float64 {
	n := len(d.Y)
	_, _, wrss, err := glsSolve(d, lambda)
	if err != nil {
		return math.Inf(-1)
	}
	sigma2 := wrss / float64(n)
	if sigma2 <= 0 {
		sigma2 = math.SmallestNonzeroFloat64
	}

	logDetV := 0.0
	for _, c := range groupCounts(d.Groups) {
		logDetV += math.Log(1 + lambda*float64(c))
	}
	return -0.5*float64(n)*(math.Log(2*math.Pi)+math.Log(sigma2)+1) - 0.5*logDetV
}

func groupCounts(groups []int) []int {
	counts := make([]int, nGroups(groups))
	for _, g := range groups {
		counts[g]++
	}
	return counts
}

func finish(d *Design, lambda float64) (*Result, error) {
	n, p := d.X.Dims()

	beta, xtxInv, wrss, err := glsSolve(d, lambda)
	if err != nil {
		return nil, err
	}
	sigma2 := wrss / float64(n)

	coefs := make([]Coefficient, p)
	for j := 0; j < p; j++ {
		se := math.Sqrt(sigma2 * xtxInv.At(j, j))
		c := Coefficient{
			Name:     d.Names[j],
			Estimate: beta.AtVec(j),
			StdErr:   se,
		}
		if se > 0 {
			c.TValue = c.Estimate / se
		}
		coefs[j] = c
	}

	ll := profileLogLik(d, lambda)
	nParams := float64(p) + 2 // β, σ²_b, σ²_e
	if lambda == 0 {
		nParams = float64(p) + 1
	}

	return &Result{
		Coefficients: coefs,
		VarIntercept: lambda * sigma2,
		VarResidual:  sigma2,
		Lambda:       lambda,
		LogLik:       ll,
		AIC:          -2*ll + 2*nParams,
		NObs:         n,
		NGroups:      nGroups(d.Groups),
	}, nil
}

// goldenSection maximizes f on [lo, hi].
func goldenSection(f func(float64) float64, lo, hi float64) float64 {
	const phi = 0.6180339887498949
	const iterations = 60

	a, b := lo, hi
	c := b - phi*(b-a)
	d := a + phi*(b-a)
	fc, fd := f(c), f(d)
	for i := 0; i < iterations; i++ {
		if fc > fd {
			b, d, fd = d, c, fc
			c = b - phi*(b-a)
			fc = f(c)
		} else {
			a, c, fc = c, d, fd
			d = a + phi*(b-a)
			fd = f(d)
		}
	}
	return (a + b) / 2
}

func asSym(m *mat.Dense) *mat.SymDense {
	p, _ := m.Dims()
	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sym.SetSym(i, j, (m.At(i, j)+m.At(j, i))/2)
		}
	}
	return sym
}

// GroupIndex densifies arbitrary integer labels (years) into 0..G-1 indices,
// returning the index slice and the sorted distinct labels.
func GroupIndex(labels []int) ([]int, []int) {
	distinct := make(map[int]struct{}, len(labels))
	for _, l := range labels {
		distinct[l] = struct{}{}
	}
	sorted := make([]int, 0, len(distinct))
	for l := range distinct {
		sorted = append(sorted, l)
	}
	sort.Ints(sorted)

	pos := make(map[int]int, len(sorted))
	for i, l := range sorted {
		pos[l] = i
	}
	idx := make([]int, len(labels))
	for i, l := range labels {
		idx[i] = pos[l]
	}
	return idx, sorted
}
