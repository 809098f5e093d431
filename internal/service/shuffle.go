package service

import "math/rand/v2"

// questionOrder returns the order in which questions are served. With
// shuffle it is a uniform permutation of [0, n).
func questionOrder(n int, shuffle bool, r *rand.Rand) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if !shuffle {
		return order
	}
	// Fisher-Yates
	for i := n - 1; i > 0; i-- {
		j := r.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}
