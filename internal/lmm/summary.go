package lmm

import (
	"fmt"
	"strings"
)

// Summary renders the fit as a fixed-width table in the style of statistical
// package output, suitable for the terminal or a results file.
func (r *Result) Summary(title string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", title)
	fmt.Fprintf(&b, "Observations: %d   Groups: %d\n", r.NObs, r.NGroups)
	fmt.Fprintf(&b, "Log-likelihood: %.3f   AIC: %.3f\n\n", r.LogLik, r.AIC)

	fmt.Fprintf(&b, "%-16s %12s %12s %9s\n", "Coefficient", "Estimate", "Std.Err", "t value")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 52))
	for _, c := range r.Coefficients {
		fmt.Fprintf(&b, "%-16s %12.5g %12.5g %9.3f\n", c.Name, c.Estimate, c.StdErr, c.TValue)
	}

	fmt.Fprintf(&b, "\nVariance components:\n")
	fmt.Fprintf(&b, "  group intercept: %.5g\n", r.VarIntercept)
	fmt.Fprintf(&b, "  residual:        %.5g\n", r.VarResidual)
	if r.SingleGroup {
		fmt.Fprintf(&b, "\nWarning: single group, intercept variance not identifiable; OLS estimates reported\n")
	}
	return b.String()
}
