package ocr

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

type ctxKey string

const ctxKeyContentHash ctxKey = "ocr.content_hash_hex"

// WithContentHash stores the hex-encoded SHA256 of the source file so
// converted artifacts can be cached under it.
func WithContentHash(ctx context.Context, hex string) context.Context {
	return context.WithValue(ctx, ctxKeyContentHash, hex)
}

func contentHashFromCtx(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(ctxKeyContentHash).(string)
	return v, ok && v != ""
}

// heicCommands builds the argv for each supported converter.
var heicCommands = map[string]func(in, out string) (string, []string){
	"heif-convert": func(in, out string) (string, []string) { return "heif-convert", []string{in, out} },
	"magick":       func(in, out string) (string, []string) { return "magick", []string{in, out} },
	"sips": func(in, out string) (string, []string) {
		return "sips", []string{"-s", "format", "png", in, "--out", out}
	},
}

// convertHEICtoPNG converts a HEIC/HEIF file to PNG.
// With cacheDir and hashHex set, the PNG is kept at {cacheDir}/{hashHex}.png
// and reused on later calls; cleanup is then nil. Otherwise the PNG lives in a
// temp dir that cleanup removes.
func convertHEICtoPNG(
	ctx context.Context,
	r Runner,
	logger *slog.Logger,
	converter string,
	in string,
	cacheDir string,
	hashHex string,
) (string, []string, func(), error) {
	build, ok := heicCommands[converter]
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: HEIC needs HeicConverter set to one of heif-convert | magick | sips", ErrUnsupportedFormat)
	}

	cached := ""
	if cacheDir != "" && hashHex != "" {
		cached = filepath.Join(cacheDir, hashHex+".png")
		if st, err := os.Stat(cached); err == nil && !st.IsDir() {
			logger.Debug("using cached heic->png", "cache", cached)
			return cached, nil, nil, nil
		}
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			return "", nil, nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "pocr-heic-*")
	if err != nil {
		return "", nil, nil, err
	}
	cleanup := func() { _ = os.RemoveAll(tmpDir) }
	out := filepath.Join(tmpDir, "page.png")

	name, args := build(in, out)
	if _, errb, err := r.Run(ctx, name, args...); err != nil {
		return "", []string{string(errb)}, cleanup, fmt.Errorf("%s failed: %w", name, err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", nil, cleanup, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	if cached == "" {
		return out, nil, cleanup, nil
	}

	defer cleanup()
	if err := persistArtifact(out, cached); err != nil {
		// another process may have won the race
		if st, statErr := os.Stat(cached); statErr == nil && !st.IsDir() {
			return cached, nil, nil, nil
		}
		return "", nil, nil, err
	}
	logger.Debug("cached heic->png", "cache", cached)
	return cached, nil, nil, nil
}

// persistArtifact moves src to dst, copying when a rename crosses devices.
func persistArtifact(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
