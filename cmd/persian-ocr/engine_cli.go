//go:build !gosseract

package main

import (
	"fmt"

	"github.com/joseph-ayodele/persian-ocr/internal/core/ocr"
)

func engineOption(name string, _ ocr.Config) ([]ocr.Option, func(), error) {
	switch name {
	case "", "cli":
		return nil, func() {}, nil
	case "gosseract":
		return nil, nil, fmt.Errorf("engine %q needs a build with -tags gosseract", name)
	}
	return nil, nil, fmt.Errorf("unknown engine %q", name)
}
