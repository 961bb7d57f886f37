package constants

import "strings"

// Split names a dataset partition.
type Split string

const (
	SplitTrain      Split = "train"
	SplitValidation Split = "validation"
	SplitTest       Split = "test"
)

// Splits lists the partitions in the order they are cut from the samples.
var Splits = []Split{SplitTrain, SplitValidation, SplitTest}

// CanonicalSplit maps a split name or a common alias to its Split.
func CanonicalSplit(input string) (Split, bool) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "train", "training":
		return SplitTrain, true
	case "validation", "valid", "val", "dev":
		return SplitValidation, true
	case "test", "testing":
		return SplitTest, true
	}
	return "", false
}
