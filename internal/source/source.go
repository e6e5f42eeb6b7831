package source

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/skip2/go-qrcode"

	"github.com/ivlev/bouncegif/internal/analyzer"
)

var (
	ErrUnsupportedType = errors.New("неподдерживаемый тип логотипа")
	ErrTooLarge        = errors.New("файл логотипа слишком большой")
)

// pdfDPI - разрешение рендеринга первой страницы PDF; логотип все равно
// масштабируется до размера бокса.
const pdfDPI = 150

// contentPadding - отступ вокруг найденного рисунка, px.
const contentPadding = 8

// LoadLogo проверяет и декодирует пользовательский логотип. Проверки типа
// и размера выполняются до чтения содержимого, поэтому отклоненный файл
// не меняет состояния приложения.
func LoadLogo(path string, maxBytes int64) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".pdf":
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s - директория", ErrUnsupportedType, path)
	}
	if maxBytes > 0 && fi.Size() > maxBytes {
		return nil, fmt.Errorf("%w: %d КБ при лимите %d КБ", ErrTooLarge, fi.Size()>>10, maxBytes>>10)
	}

	if ext == ".pdf" {
		return renderPDF(path)
	}
	return decodeImage(path)
}

func renderPDF(path string) (image.Image, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, fmt.Errorf("%w: в PDF нет страниц", ErrUnsupportedType)
	}
	img, err := doc.ImageDPI(0, pdfDPI)
	if err != nil {
		return nil, err
	}
	return cropToContent(img), nil
}

// cropToContent обрезает поля страницы вокруг рисунка.
func cropToContent(img image.Image) image.Image {
	r, ok := analyzer.ContentBounds(analyzer.NewContrastDetector(), img, contentPadding)
	if !ok {
		return img
	}
	if sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return sub.SubImage(r)
	}
	return img
}

// QRLogo генерирует QR-код как логотип.
func QRLogo(text string, px int) (image.Image, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: пустой текст QR-кода", ErrUnsupportedType)
	}
	q, err := qrcode.New(text, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	q.DisableBorder = true
	return q.Image(px), nil
}
