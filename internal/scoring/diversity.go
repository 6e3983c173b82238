package scoring

// Diversity returns 1 minus the mean pairwise Jaccard similarity of the
// items' category tags. Slates with fewer than two items score 0 so that
// trivially small slates are not rewarded. O(n^2) in slate size.
func Diversity(slate Slate) float64 {
	n := len(slate)
	if n < 2 {
		return 0
	}

	tags := make([]map[string]struct{}, n)
	for i, it := range slate {
		tags[i] = it.Tags()
	}

	var total float64
	pairs := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			total += Jaccard(tags[i], tags[j])
			pairs++
		}
	}

	return clamp(1.0-total/float64(pairs), 0, 1)
}

// Jaccard returns |a ∩ b| / |a ∪ b|. Two empty sets are identical (1.0).
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	intersection := 0
	for t := range a {
		if _, ok := b[t]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
