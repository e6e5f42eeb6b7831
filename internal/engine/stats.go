package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/bouncegif/internal/system"
)

// writeReport печатает отчет о производительности и дописывает строку в
// benchmark.log в директории вывода.
func (p *Pipeline) writeReport(s *session, res Result) {
	fps := 0.0
	if res.Timings.Total > 0 {
		fps = float64(res.Frames) / res.Timings.Total.Seconds()
	}
	memUsage, err := system.MemoryUsage()
	if err != nil {
		memUsage = 0
	}

	report := fmt.Sprintf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Capture: %.2fs\n"+
			"Encoding (CPU): %.2fs\n"+
			"Frames: %d\n"+
			"Simulated: %.2fs\n"+
			"Effective FPS: %.2f\n"+
			"Memory: %.1f%%\n"+
			"----------------------------\n",
		p.cfg.BuildVersion, res.Timings.Total.Seconds(), res.Timings.Capture.Seconds(),
		res.Timings.Encode.Seconds(), res.Frames, s.sim.Clock().Seconds(), fps, memUsage,
	)
	fmt.Fprint(p.out, report)

	logEntry := fmt.Sprintf("[%s] Build: %s | Ratio: %s | Quality: %.0f fps | Frames: %d | Total: %.2fs | Capture: %.2fs | Encode: %.2fs | Size: %d\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.cfg.BuildVersion,
		s.scene.Label,
		s.preset.FPS(),
		res.Frames,
		res.Timings.Total.Seconds(),
		res.Timings.Capture.Seconds(),
		res.Timings.Encode.Seconds(),
		res.Bytes,
	)

	if err := os.MkdirAll(p.cfg.OutputDir, 0755); err != nil {
		fmt.Fprintf(p.out, "[!] Не удалось записать benchmark.log: %v\n", err)
		return
	}
	f, err := os.OpenFile(filepath.Join(p.cfg.OutputDir, "benchmark.log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err == nil {
		f.WriteString(logEntry)
		f.Close()
	} else {
		fmt.Fprintf(p.out, "[!] Не удалось записать benchmark.log: %v\n", err)
	}
}
