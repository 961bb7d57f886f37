package dataset

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/persian-ocr/constants"
	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
)

const previewRunes = 100

var ErrEmptySplit = errors.New("split has no samples")

// Preview describes the first training sample.
type Preview struct {
	Text      string // first previewRunes runes of the transcript
	Truncated bool
	Image     string
	Width     int
	Height    int
	ImageErr  error // set when the image cannot be decoded; not fatal
}

func (p Preview) String() string {
	var b strings.Builder
	text := p.Text
	if p.Truncated {
		text += "..."
	}
	fmt.Fprintf(&b, "text: %s\nimage: %s\n", text, p.Image)
	if p.ImageErr != nil {
		fmt.Fprintf(&b, "image error: %v\n", p.ImageErr)
	} else {
		fmt.Fprintf(&b, "size: %dx%d\n", p.Width, p.Height)
	}
	return b.String()
}

// Inspect previews the first train sample and reads its image dimensions.
func Inspect(ds *Dataset) (Preview, error) {
	train := ds.Split(constants.SplitTrain)
	if len(train) == 0 {
		return Preview{}, fmt.Errorf("%w: %s", ErrEmptySplit, constants.SplitTrain)
	}
	s := train[0]
	p := Preview{Image: s.Image}
	p.Text, p.Truncated = truncateRunes(s.Text, previewRunes)
	p.Width, p.Height, p.ImageErr = ocr.ImageSize(s.Image)
	return p, nil
}

func truncateRunes(s string, n int) (string, bool) {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
