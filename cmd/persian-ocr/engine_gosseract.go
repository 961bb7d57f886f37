//go:build gosseract

package main

import (
	"fmt"

	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
)

// engineOption selects the recognizer; "gosseract" links libtesseract in-process.
func engineOption(name string, cfg ocr.Config) ([]ocr.Option, func(), error) {
	switch name {
	case "", "cli":
		return nil, func() {}, nil
	case "gosseract":
		en, err := ocr.NewGosseractEngine(cfg)
		if err != nil {
			return nil, nil, err
		}
		return []ocr.Option{ocr.WithEngine(en)}, func() { _ = en.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown engine %q", name)
}
