package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

var ErrInsufficientMemory = errors.New("недостаточно памяти для кадров")

// LogoExtensions - форматы, которые принимает source.LoadLogo.
var LogoExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".pdf"}

// FrameBytes - оценка памяти под n RGBA-кадров w x h.
func FrameBytes(n, w, h int) uint64 {
	return uint64(n) * uint64(w) * uint64(h) * 4
}

// CheckFrameMemory проверяет, что кадры экспорта поместятся в доступную
// память с запасом (не больше половины свободной). Если статистика
// недоступна, проверка пропускается.
func CheckFrameMemory(n, w, h int) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return nil
	}
	need := FrameBytes(n, w, h)
	if need > vm.Available/2 {
		return fmt.Errorf("%w: нужно %d МБ, доступно %d МБ", ErrInsufficientMemory, need>>20, vm.Available>>20)
	}
	return nil
}

// MemoryUsage возвращает занятую память системы в процентах.
func MemoryUsage() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// FindLatestLogo ищет самый свежий файл логотипа в указанной директории
func FindLatestLogo(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		isLogo := false
		for _, ext := range LogoExtensions {
			if strings.HasSuffix(strings.ToLower(f.Name()), ext) {
				isLogo = true
				break
			}
		}
		if isLogo {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latestTime) {
				latestTime = info.ModTime()
				latestFile = filepath.Join(dir, f.Name())
			}
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено логотипов", dir)
	}

	return latestFile, nil
}
