// Command redecode runs the current band decoder over the raw bands stored
// with every reading and updates readings whose value changed, together with
// the components measured from them.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"resistorserver/internal/dto"
	"resistorserver/internal/model"
	"resistorserver/internal/repository"
	"resistorserver/internal/repository/sqlite"
	"resistorserver/internal/resistor"
)

// pageSize is the number of readings loaded per query.
const pageSize = 200

type summary struct {
	Checked   int
	Changed   int
	NoBands   int
	Failed    int
	Unchanged int
}

func main() {
	dbPath := flag.String("db", "data/readings.db", "Database path")
	dryRun := flag.Bool("dry-run", false, "Report changes without writing them")
	flag.Parse()

	if _, err := os.Stat(*dbPath); err != nil {
		log.Fatalf("Database %s not available: %v", *dbPath, err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Re-decoding readings in %s (dry run: %v)\n", *dbPath, *dryRun)

	s, err := redecode(sqlite.NewReadingRepository(db), sqlite.NewBandRepository(db), *dryRun)
	if err != nil {
		log.Fatalf("Re-decoding failed: %v", err)
	}

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("   Checked:   %d\n", s.Checked)
	fmt.Printf("   Changed:   %d\n", s.Changed)
	fmt.Printf("   Unchanged: %d\n", s.Unchanged)
	fmt.Printf("   No bands:  %d\n", s.NoBands)
	if s.Failed > 0 {
		fmt.Printf("   ⚠️  Failed: %d\n", s.Failed)
	}
}

func redecode(readings repository.ReadingRepository, bands repository.BandRepository, dryRun bool) (summary, error) {
	var s summary

	for offset := 0; ; offset += pageSize {
		page, err := readings.GetAll(&dto.ReadingFilters{Limit: pageSize, Offset: offset})
		if err != nil {
			return s, fmt.Errorf("failed to load readings: %w", err)
		}
		if len(page) == 0 {
			return s, nil
		}

		for i := range page {
			reading := &page[i]
			s.Checked++

			stored, err := bands.GetByReadingID(reading.ID)
			if err != nil {
				log.Printf("⚠️  Reading %d: %v", reading.ID, err)
				s.Failed++
				continue
			}

			detections := make([]resistor.RawDetection, len(stored))
			for j, b := range stored {
				detections[j] = b.Detection()
			}

			result, err := resistor.Decode(detections)
			if errors.Is(err, resistor.ErrEmptyInput) {
				s.NoBands++
				continue
			}

			if !changed(reading, result) {
				s.Unchanged++
				continue
			}

			fmt.Printf("   Reading %d: %s -> %s\n", reading.ID, describe(reading.Resistance, reading.Fallback), resistor.FormatOhms(result.Resistance))
			s.Changed++
			if dryRun {
				continue
			}

			reading.Resistance = result.Resistance
			reading.Digits = result.Digits
			reading.Multiplier = result.Multiplier
			reading.Colors = result.Colors[:]
			reading.Fallback = false
			if err := readings.UpdateResult(reading); err != nil {
				log.Printf("⚠️  Reading %d: %v", reading.ID, err)
				s.Failed++
				s.Changed--
			}
		}
	}
}

func changed(reading *model.Reading, result resistor.DecodeResult) bool {
	if reading.Fallback || reading.Resistance != result.Resistance || len(reading.Colors) != len(result.Colors) {
		return true
	}
	for i, c := range reading.Colors {
		if c != result.Colors[i] {
			return true
		}
	}
	return false
}

func describe(resistance float64, fallback bool) string {
	if fallback {
		return "fallback"
	}
	return resistor.FormatOhms(resistance)
}
