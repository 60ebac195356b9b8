package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/poiesic/equiptrack"
	"github.com/poiesic/equiptrack/config"
	"github.com/poiesic/equiptrack/ingestion"
)

var equipment = []string{
	"Centrifugal pump",
	"Hydraulic press",
	"Air compressor",
	"PLC controller",
	"Conveyor belt",
	"CNC lathe",
	"Cooling tower",
	"Gearbox",
	"Servo drive",
	"Boiler",
}

var symptoms = []struct {
	title       string
	description string
}{
	{"Overheating", "Housing temperature exceeds the rated limit after two hours of continuous load"},
	{"Abnormal vibration", "Vibration amplitude doubles at full speed and the mounting bolts loosen"},
	{"Oil leak", "Oil collects under the unit after shutdown; the shaft seal shows wear"},
	{"Pressure drop", "Outlet pressure falls below the setpoint during peak demand"},
	{"Intermittent stop", "Unit stops without an alarm and restarts after a manual reset"},
	{"Firmware crash", "Controller reboots when the communication bus is under heavy traffic"},
	{"Excessive noise", "Grinding noise from the bearing housing at low speed"},
	{"Corrosion", "Rust forms on the flange within weeks of installation in a humid area"},
	{"Calibration drift", "Sensor readings drift by several percent over one shift"},
	{"Wiring fault", "Loose terminal causes the motor to trip on overcurrent"},
	{"Design interference", "Guard panel collides with the drive pulley during assembly"},
	{"Slow response", "Actuator takes twice the specified time to reach position"},
}

var (
	phases     = []string{"design", "development", "usage", "maintenance"}
	priorities = []string{"low", "medium", "high", "critical"}
	engineers  = []string{"Chen", "Alvarez", "Okafor", "Nakamura", "Schmidt", "Larsen"}
)

var (
	configPath = flag.String("config", "", "path to the equiptrack config file")
	rowCount   = flag.Int("rows", 200, "number of problems to generate")
	outName    = flag.String("out", "seed_problems.csv", "file to write, relative to import.base_dir")
	seed       = flag.Uint64("seed", 42, "random seed")
	writeOnly  = flag.Bool("write-only", false, "write the file without importing it")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
	flag.Parse()
}

// sampleProblems returns an iterator over n generated import rows.
func sampleProblems(n int, rng *rand.Rand) iter.Seq[[]string] {
	start := time.Now().AddDate(-1, 0, 0)
	return func(yield func([]string) bool) {
		for i := range n {
			s := symptoms[rng.IntN(len(symptoms))]
			eq := equipment[rng.IntN(len(equipment))]
			discovered := start.AddDate(0, 0, rng.IntN(365))
			row := []string{
				fmt.Sprintf("%s #%d", s.title, i+1),
				fmt.Sprintf("%s: %s", eq, s.description),
				eq,
				phases[rng.IntN(len(phases))],
				priorities[rng.IntN(len(priorities))],
				engineers[rng.IntN(len(engineers))],
				discovered.Format(time.DateOnly),
			}
			if !yield(row) {
				return
			}
		}
	}
}

// writeRows writes a header and every row of source to path.
func writeRows(path string, source iter.Seq[[]string]) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{
		string(ingestion.FieldTitle),
		string(ingestion.FieldDescription),
		string(ingestion.FieldEquipmentType),
		string(ingestion.FieldPhase),
		string(ingestion.FieldPriority),
		string(ingestion.FieldDiscoveredBy),
		string(ingestion.FieldDiscoveredAt),
	}
	if err := w.Write(header); err != nil {
		return 0, err
	}
	count := 0
	for row := range source {
		if err := w.Write(row); err != nil {
			return count, err
		}
		count++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return count, err
	}
	return count, f.Close()
}

func main() {
	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	path := filepath.Join(cfg.Import.BaseDir, *outName)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		panic(err)
	}
	rng := rand.New(rand.NewPCG(*seed, *seed))
	written, err := writeRows(path, sampleProblems(*rowCount, rng))
	if err != nil {
		panic(err)
	}
	slog.Info("wrote sample problems", "path", path, "rows", written)
	if *writeOnly {
		return
	}

	app, err := equiptrack.NewApp(cfg)
	if err != nil {
		panic(err)
	}
	defer app.Close()

	importer, err := app.NewImporter()
	if err != nil {
		panic(err)
	}
	result, err := importer.ImportFile(context.Background(), *outName, ingestion.ImportOptions{ImportedBy: "seeder"})
	if err != nil {
		panic(err)
	}
	slog.Info(result.Message, "history_id", result.HistoryID, "seconds", result.ProcessingTimeSeconds)
}
