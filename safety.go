/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package bankcore

import (
	"fmt"

	"github.com/blnkfinance/bankcore/model"
)

// CheckSafety runs the Banker's algorithm over snapshot. It reports whether
// every process can finish and, if so, one order in which they can. An
// unsafe snapshot yields (false, []).
//
// The scan restarts from process 0 after each process finishes, so the
// sequence prefers lower indices.
func CheckSafety(snapshot model.ResourceSnapshot) (bool, []int, error) {
	if err := validateSnapshot(snapshot); err != nil {
		return false, []int{}, err
	}

	n := snapshot.Processes()
	work := make([]int, len(snapshot.Available))
	copy(work, snapshot.Available)
	finished := make([]bool, n)
	sequence := make([]int, 0, n)

	for len(sequence) < n {
		progressed := false
		for i := 0; i < n; i++ {
			if finished[i] || !fits(snapshot.Need(i), work) {
				continue
			}
			for r := range work {
				work[r] += snapshot.Allocated[i][r]
			}
			finished[i] = true
			sequence = append(sequence, i)
			progressed = true
			break
		}
		if !progressed {
			return false, []int{}, nil
		}
	}
	return true, sequence, nil
}

func fits(need, work []int) bool {
	for r := range need {
		if need[r] > work[r] {
			return false
		}
	}
	return true
}

func validateSnapshot(s model.ResourceSnapshot) error {
	m := len(s.Available)
	if len(s.Allocated) != len(s.MaxDemand) {
		return validationError(fmt.Sprintf("allocated has %d processes, max demand has %d", len(s.Allocated), len(s.MaxDemand)))
	}
	for r, v := range s.Available {
		if v < 0 {
			return validationError(fmt.Sprintf("available[%d] is negative", r))
		}
	}
	for i := range s.MaxDemand {
		if len(s.MaxDemand[i]) != m || len(s.Allocated[i]) != m {
			return validationError(fmt.Sprintf("process %d does not list %d resources", i, m))
		}
		for r := 0; r < m; r++ {
			if s.MaxDemand[i][r] < 0 || s.Allocated[i][r] < 0 {
				return validationError(fmt.Sprintf("process %d has a negative demand or allocation", i))
			}
			if s.Allocated[i][r] > s.MaxDemand[i][r] {
				return validationError(fmt.Sprintf("process %d holds more of resource %d than its maximum", i, r))
			}
		}
	}
	return nil
}
