package service

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/models"
	"quill/internal/observability"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // Register WebP decoder
)

const (
	AvatarSize        = 125
	AvatarJPEGQuality = 90
	AvatarWebPQuality = 90

	// MaxPicturePixels bounds the decoded size of an upload. A small,
	// highly compressed file can declare dimensions whose pixel buffer
	// would not fit in memory.
	MaxPicturePixels = 40_000_000
)

// PictureUpload is an avatar submitted with the account form.
type PictureUpload struct {
	Filename string
	Content  []byte
}

// PictureService stores avatar thumbnails in a directory served under
// /static/profile_pics.
type PictureService struct {
	dir string
}

func NewPictureService(dir string) *PictureService {
	return &PictureService{dir: dir}
}

// Dir returns the directory avatars are written to.
func (s *PictureService) Dir() string {
	return s.dir
}

// SavePicture shrinks the upload to fit within AvatarSize×AvatarSize and
// writes it under a fresh random name with the original extension. It
// returns the bare file name.
func (s *PictureService) SavePicture(ctx context.Context, upload PictureUpload) (name string, err error) {
	_, finish := observability.StartSpan(ctx, "PictureService", "SavePicture")
	defer func() {
		observability.RecordAvatarUpload(err)
		finish(err)
	}()

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	encode, ok := encoderFor(ext)
	if !ok {
		return "", models.NewUnsupportedImageError(fmt.Errorf("unsupported extension %q", ext))
	}

	conf, _, err := image.DecodeConfig(bytes.NewReader(upload.Content))
	if err != nil {
		return "", models.NewUnsupportedImageError(err)
	}
	if pixels := int64(conf.Width) * int64(conf.Height); pixels > MaxPicturePixels {
		return "", models.NewUnsupportedImageError(
			fmt.Errorf("image is %dx%d, above the %d pixel limit", conf.Width, conf.Height, MaxPicturePixels))
	}

	src, _, err := image.Decode(bytes.NewReader(upload.Content))
	if err != nil {
		return "", models.NewUnsupportedImageError(err)
	}

	var buf bytes.Buffer
	if err := encode(&buf, resizeToFit(src, AvatarSize, AvatarSize)); err != nil {
		return "", models.NewIOError(fmt.Errorf("encode avatar: %w", err))
	}

	name, err = randomPictureName(ext)
	if err != nil {
		return "", models.NewIOError(err)
	}
	if err := writeBytesToFile(filepath.Join(s.dir, name), buf.Bytes()); err != nil {
		return "", models.NewIOError(fmt.Errorf("write avatar: %w", err))
	}
	return name, nil
}

type encodeFunc func(*bytes.Buffer, image.Image) error

func encoderFor(ext string) (encodeFunc, bool) {
	switch ext {
	case ".jpg", ".jpeg":
		return func(w *bytes.Buffer, img image.Image) error {
			return jpeg.Encode(w, img, &jpeg.Options{Quality: AvatarJPEGQuality})
		}, true
	case ".png":
		return func(w *bytes.Buffer, img image.Image) error {
			return png.Encode(w, img)
		}, true
	case ".gif":
		return func(w *bytes.Buffer, img image.Image) error {
			return gif.Encode(w, img, nil)
		}, true
	case ".webp":
		return func(w *bytes.Buffer, img image.Image) error {
			return webp.Encode(w, img, &webp.Options{Quality: AvatarWebPQuality})
		}, true
	default:
		return nil, false
	}
}

func randomPictureName(ext string) (string, error) {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate avatar name: %w", err)
	}
	return hex.EncodeToString(b) + ext, nil
}

// resizeToFit scales src down to fit within maxWidth×maxHeight keeping its
// aspect ratio. Images already inside the box are returned unchanged.
func resizeToFit(src image.Image, maxWidth, maxHeight int) image.Image {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w <= 0 || h <= 0 {
		return src
	}
	if w <= maxWidth && h <= maxHeight {
		return src
	}

	scaleW := float64(maxWidth) / float64(w)
	scaleH := float64(maxHeight) / float64(h)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	newW := int(float64(w) * scale)
	newH := int(float64(h) * scale)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, xdraw.Over, nil)
	return dst
}

func writeBytesToFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
