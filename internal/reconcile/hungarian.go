package reconcile

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// hungarian solves the square assignment problem for minimum total cost using
// the O(n³) potentials formulation of the Hungarian algorithm. It returns, for
// each row, the column assigned to it.
func hungarian(cost *mat.Dense) []int {
	n, _ := cost.Dims()
	if n == 0 {
		return nil
	}

	// Potentials and the matching are 1-indexed; index 0 is a sentinel column
	// used while growing an augmenting path.
	u := make([]float64, n+1)
	v := make([]float64, n+1)
	colRow := make([]int, n+1)
	way := make([]int, n+1)
	minv := make([]float64, n+1)
	used := make([]bool, n+1)

	for i := 1; i <= n; i++ {
		colRow[0] = i
		j0 := 0
		for j := range minv {
			minv[j] = math.Inf(1)
			used[j] = false
		}

		for {
			used[j0] = true
			i0 := colRow[j0]
			delta := math.Inf(1)
			j1 := 0
			for j := 1; j <= n; j++ {
				if used[j] {
					continue
				}
				cur := cost.At(i0-1, j-1) - u[i0] - v[j]
				if cur < minv[j] {
					minv[j] = cur
					way[j] = j0
				}
				if minv[j] < delta {
					delta = minv[j]
					j1 = j
				}
			}
			for j := 0; j <= n; j++ {
				if used[j] {
					u[colRow[j]] += delta
					v[j] -= delta
				} else {
					minv[j] -= delta
				}
			}
			j0 = j1
			if colRow[j0] == 0 {
				break
			}
		}

		for j0 != 0 {
			j1 := way[j0]
			colRow[j0] = colRow[j1]
			j0 = j1
		}
	}

	rowToCol := make([]int, n)
	for i := range rowToCol {
		rowToCol[i] = -1
	}
	for j := 1; j <= n; j++ {
		if colRow[j] > 0 {
			rowToCol[colRow[j]-1] = j - 1
		}
	}
	return rowToCol
}
