package dataset

import (
	"fmt"
	"math"
	"math/rand"
)

// StratifiedSplit partitions the dataset into disjoint train and test sets,
// holding out testFraction of each class so that class proportions are
// preserved on both sides within rounding. Each class contributes at least
// one sample to each side; a class too small to do so is an error.
func StratifiedSplit(d *FacesDataset, testFraction float64) (train, test *FacesDataset, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}

	byClass := make([][]int, d.NumClasses())
	for i, s := range d.samples {
		byClass[s.Label] = append(byClass[s.Label], i)
	}

	var trainIdx, testIdx []int
	for label, indices := range byClass {
		n := len(indices)
		if n < 2 {
			return nil, nil, fmt.Errorf("class %q has %d samples; need at least 2 to stratify",
				d.classNames[label], n)
		}

		nTest := int(math.Round(testFraction * float64(n)))
		if nTest < 1 {
			nTest = 1
		}
		if nTest > n-1 {
			nTest = n - 1
		}

		shuffled := append([]int(nil), indices...)
		rand.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		testIdx = append(testIdx, shuffled[:nTest]...)
		trainIdx = append(trainIdx, shuffled[nTest:]...)
	}

	return d.Subset(trainIdx), d.Subset(testIdx), nil
}
