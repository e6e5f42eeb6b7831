package download

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/zenity"
)

// Saver доставляет готовый файл пользователю.
type Saver interface {
	Save(ctx context.Context, data []byte, filename string) (string, error)
}

// Filename строит имя по схеме <name>-<ratio>-<unix ms>.<ext>.
// Двоеточие в метке формата недопустимо в именах файлов на Windows.
func Filename(name, ratio, ext string, t time.Time) string {
	cleanName := strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if cleanName == "" {
		cleanName = "bouncing-logo"
	}
	label := strings.ReplaceAll(ratio, ":", "-")
	return fmt.Sprintf("%s-%s-%d.%s", cleanName, label, t.UnixMilli(), strings.TrimPrefix(ext, "."))
}

// DirSaver пишет файл в директорию вывода.
type DirSaver struct {
	Dir string
}

func (s *DirSaver) Save(ctx context.Context, data []byte, filename string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("пустой файл не сохраняется")
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи %s: %w", path, err)
	}
	return path, nil
}

// DialogSaver показывает системный диалог сохранения. Если пользователь
// отменил диалог или он недоступен (нет дисплея), файл пишется через Fallback.
type DialogSaver struct {
	Fallback Saver
}

func (s *DialogSaver) Save(ctx context.Context, data []byte, filename string) (string, error) {
	ext := filepath.Ext(filename)
	path, err := zenity.SelectFileSave(
		zenity.Context(ctx),
		zenity.Title("Сохранить анимацию"),
		zenity.Filename(filename),
		zenity.ConfirmOverwrite(),
		zenity.FileFilters{{
			Name:     strings.ToUpper(strings.TrimPrefix(ext, ".")),
			Patterns: []string{"*" + ext},
		}},
	)
	if err != nil {
		if errors.Is(err, zenity.ErrCanceled) {
			fmt.Println("[!] Диалог отменен, файл сохраняется в папку по умолчанию")
		} else {
			fmt.Printf("[!] Диалог сохранения недоступен: %v\n", err)
		}
		if s.Fallback == nil {
			return "", err
		}
		return s.Fallback.Save(ctx, data, filename)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("ошибка записи %s: %w", path, err)
	}
	return path, nil
}
