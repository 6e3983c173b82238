package scoring

// ComputeFrontier returns the indices of Pareto-optimal evaluations over
// their stakeholder utility vectors, in input order. An evaluation is
// dominated if another is >= for every stakeholder and strictly better for
// at least one. Identical utility vectors do not dominate each other.
// O(n^2) dominance check, fine for typical candidate set sizes.
func ComputeFrontier(evals []Evaluation) []int {
	if len(evals) == 0 {
		return nil
	}

	var frontier []int
	for i := range evals {
		dominated := false
		for j := range evals {
			if i == j {
				continue
			}
			if dominates(evals[j].Utilities, evals[i].Utilities) {
				dominated = true
				break
			}
		}
		if !dominated {
			frontier = append(frontier, evals[i].Index)
		}
	}
	return frontier
}

// dominates returns true if utility vector a dominates b.
func dominates(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	strictly := false
	for k := range a {
		if a[k] < b[k] {
			return false
		}
		if a[k] > b[k] {
			strictly = true
		}
	}
	return strictly
}
