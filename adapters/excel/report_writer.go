package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"goreg/domain/trial"
	"goreg/internal/errors"
)

// WriteCalibrationReport exports a calibration result as an .xlsx workbook
// for lab records: a summary sheet plus the cumulative deviation series.
func WriteCalibrationReport(result trial.CalibrationResult, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	const summary = "Summary"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return errors.Wrap(err, "renaming summary sheet")
	}

	rows := [][]interface{}{
		{"Calibration ID", result.ID.String()},
		{"Started", result.StartTime.Time().Format("2006-01-02 15:04:05.000")},
		{"Ended", result.EndTime.Time().Format("2006-01-02 15:04:05.000")},
		{"Trials", result.TrialCount},
		{"Passed", result.Passed},
		{"Rating", string(result.Quality.Rating)},
		{},
		{"Mean", result.Statistics.Mean},
		{"Expected mean", result.Statistics.ExpectedMean},
		{"Variance", result.Statistics.Variance},
		{"Std deviation", result.Statistics.StandardDeviation},
		{"Z-score", result.Statistics.ZScore},
		{"P-value", result.Statistics.PValue},
		{"Stouffer Z", result.Statistics.StoufferZ},
		{"Network variance", result.Statistics.NetworkVariance},
		{},
		{"Chi-square passed", result.Quality.ChiSquarePassed},
		{"Runs test passed", result.Quality.RunsTestPassed},
		{"Autocorrelation passed", result.Quality.AutocorrelationPassed},
		{"Mean deviation", result.Quality.MeanDeviation},
	}
	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return errors.Wrap(err, "writing summary row")
		}
	}

	for i, issue := range result.Issues {
		cell := fmt.Sprintf("A%d", len(rows)+2+i)
		row := []interface{}{"Issue", issue}
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return errors.Wrap(err, "writing issue row")
		}
	}

	const deviation = "Cumulative Deviation"
	if _, err := f.NewSheet(deviation); err != nil {
		return errors.Wrap(err, "creating deviation sheet")
	}
	header := []interface{}{"Trial", "Deviation"}
	if err := f.SetSheetRow(deviation, "A1", &header); err != nil {
		return errors.Wrap(err, "writing deviation header")
	}
	for i, d := range result.Statistics.CumulativeDeviation {
		row := []interface{}{i + 1, d}
		if err := f.SetSheetRow(deviation, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return errors.Wrap(err, "writing deviation row")
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.Wrapf(err, "saving report to %s", path)
	}
	return nil
}
