// Package dataset turns a directory of page images and their transcripts into a
// train/validation/test dataset for fine-tuning a line OCR model, and reads it back.
//
// Input layout:
//
//	<data>/fulltext/*.txt   one UTF-8 transcript per page
//	<data>/images/*.png     one image per page
//
// Both lists are sorted and paired by position; the longer list's extra files are ignored.
package dataset

import (
	"fmt"

	"github.com/joseph-ayodele/persian-ocr/constants"
)

// Sample is one image/transcript pair. Image is the path of the image file.
type Sample struct {
	Image string `json:"image"`
	Text  string `json:"text"`
}

// Dataset holds the samples of every split.
type Dataset struct {
	Splits map[constants.Split][]Sample
}

func newDataset() *Dataset {
	return &Dataset{Splits: make(map[constants.Split][]Sample, len(constants.Splits))}
}

// Split returns the samples of one partition.
func (d *Dataset) Split(s constants.Split) []Sample {
	if d == nil {
		return nil
	}
	return d.Splits[s]
}

// Len is the total number of samples.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	n := 0
	for _, s := range d.Splits {
		n += len(s)
	}
	return n
}

// String summarizes the row counts per split.
func (d *Dataset) String() string {
	out := "Dataset{"
	for i, s := range constants.Splits {
		if i > 0 {
			out += ", "
		}
		out += fmt.Sprintf("%s: %d rows", s, len(d.Split(s)))
	}
	return out + "}"
}

// SplitSamples cuts samples into 80% train, 10% validation and the rest test,
// in input order. Sizes are truncated, so small inputs favor the test split.
func SplitSamples(samples []Sample) *Dataset {
	n := len(samples)
	trainN := int(0.8 * float64(n))
	valN := int(0.1 * float64(n))

	ds := newDataset()
	ds.Splits[constants.SplitTrain] = samples[:trainN]
	ds.Splits[constants.SplitValidation] = samples[trainN : trainN+valN]
	ds.Splits[constants.SplitTest] = samples[trainN+valN:]
	return ds
}
