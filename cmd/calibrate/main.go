package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"goreg/adapters/entropy"
	"goreg/adapters/excel"
	"goreg/internal/config"
	"goreg/internal/engine"
	"goreg/internal/logging"
)

// calibrate runs a one-shot calibration batch against the system entropy
// source and prints the verdict, optionally exporting an .xlsx report.
func main() {
	trials := flag.Int("trials", 1000, "number of calibration trials")
	out := flag.String("out", "", "optional .xlsx report path")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	eng, err := engine.New(cfg.Engine, entropy.NewCryptoSource(), nil, logging.NewFromEnv("calibrate"))
	if err != nil {
		log.Fatalf("engine construction failed: %v", err)
	}
	defer eng.Destroy()

	result, err := eng.RunCalibration(*trials)
	if err != nil {
		log.Fatalf("calibration failed: %v", err)
	}

	fmt.Printf("Calibration %s\n", result.ID)
	fmt.Printf("  trials:     %d (%s .. %s)\n", result.TrialCount,
		result.StartTime.Time().Format("15:04:05.000"), result.EndTime.Time().Format("15:04:05.000"))
	fmt.Printf("  mean:       %.4f (expected %.1f)\n", result.Statistics.Mean, result.Statistics.ExpectedMean)
	fmt.Printf("  variance:   %.4f\n", result.Statistics.Variance)
	fmt.Printf("  z-score:    %.4f (p=%.4f)\n", result.Statistics.ZScore, result.Statistics.PValue)
	fmt.Printf("  rating:     %s\n", result.Quality.Rating)
	fmt.Printf("  passed:     %t\n", result.Passed)
	for _, issue := range result.Issues {
		fmt.Printf("  issue:      %s\n", issue)
	}

	if *out != "" {
		if err := excel.WriteCalibrationReport(result, *out); err != nil {
			log.Fatalf("report export failed: %v", err)
		}
		fmt.Printf("  report:     %s\n", *out)
	}

	if !result.Passed {
		os.Exit(1)
	}
}
