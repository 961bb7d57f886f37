//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// GosseractEngine runs libtesseract in-process. A client is not safe for
// concurrent use, so calls are serialized.
type GosseractEngine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

// NewGosseractEngine configures a client the same way the CLI engine is invoked.
func NewGosseractEngine(cfg Config) (*GosseractEngine, error) {
	client := gosseract.NewClient()
	if cfg.TessdataDir != "" {
		client.TessdataPrefix = cfg.TessdataDir
	}
	if err := client.SetLanguage(strings.Split(cfg.TesseractLang, "+")...); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gosseract language: %w", err)
	}
	if cfg.PSM >= 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(cfg.PSM)); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gosseract psm: %w", err)
		}
	}
	if cfg.PreserveInterwordSpaces {
		if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("gosseract variable: %w", err)
		}
	}
	return &GosseractEngine{client: client}, nil
}

func (g *GosseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.client.SetImage(imagePath); err != nil {
		return "", fmt.Errorf("gosseract set image %s: %w", imagePath, err)
	}
	text, err := g.client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract text %s: %w", imagePath, err)
	}
	return text, nil
}

func (g *GosseractEngine) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
